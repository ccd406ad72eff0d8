package repository

import "errors"

// Persistence error taxonomy. Callers branch on these with errors.Is;
// the services layer maps them onto API-visible failures.
var (
	// ErrNotFound signals the requested entity does not exist
	ErrNotFound = errors.New("record not found")

	// ErrConflict signals a concurrent-write race was detected by the
	// version check. The caller must re-run its whole read-modify-write
	// sequence, not just the save.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrUnavailable signals the store could not confirm the operation in
	// time. The operation must not be assumed applied.
	ErrUnavailable = errors.New("storage unavailable")
)
