package services

import "errors"

// Common service errors. Every rejected operation surfaces one of these
// so callers can distinguish bad input from bad timing from a transient
// persistence failure.
var (
	// ErrInvalidArgument signals malformed or out-of-range input.
	// Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState signals an operation not permitted in the entity's
	// current state, e.g. repaying a closed loan. Never retried.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrRetriesExhausted signals the orchestrator gave up after its
	// bounded retry budget for conflicts or unavailability.
	ErrRetriesExhausted = errors.New("retries exhausted")
)
