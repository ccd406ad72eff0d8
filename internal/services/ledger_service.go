package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmwangi/kopa-api/internal/models"
	"github.com/dmwangi/kopa-api/internal/repository"
	"github.com/dmwangi/kopa-api/internal/statemachine"
)

// Ledger transition outcomes
const (
	TransitionNone   = "none"
	TransitionClosed = "closed"
)

// LedgerService applies validated repayment allocations to a loan's
// persisted balance. It is the only engine component with side effects:
// the new state is persisted through LoanRepository before the mutation
// is reported applied, so a persistence failure leaves no partial state.
type LedgerService struct {
	loanRepo repository.LoanRepository
}

// NewLedgerService creates a new ledger service
func NewLedgerService(loanRepo repository.LoanRepository) *LedgerService {
	return &LedgerService{loanRepo: loanRepo}
}

// ApplyRepayment reduces the loan's outstanding balance and open dues by
// the allocation, closing the loan when the balance reaches zero. The
// input loan is never mutated; the returned loan is the persisted state.
//
// Repayments against closed or written-off loans fail with
// ErrInvalidState; this is the primary guard against double-processing.
// Recovery from arrears is not implicit here: it is a separate, explicit
// transition owned by the orchestrator.
func (s *LedgerService) ApplyRepayment(ctx context.Context, loan *models.Loan, alloc models.RepaymentAllocation, paidAt time.Time) (*models.Loan, string, error) {
	return s.applyWith(ctx, s.loanRepo, loan, alloc, paidAt)
}

// applyWith performs the mutation against an explicit repository so the
// orchestrator can run it inside a transaction alongside the repayment
// record append.
func (s *LedgerService) applyWith(ctx context.Context, repo repository.LoanRepository, loan *models.Loan, alloc models.RepaymentAllocation, paidAt time.Time) (*models.Loan, string, error) {
	if loan.IsTerminal() {
		return nil, "", fmt.Errorf("%w: loan %d is %s", ErrInvalidState, loan.ID, loan.Status)
	}
	if !loan.MayRepay() {
		return nil, "", fmt.Errorf("%w: loan %d is %s, not yet disbursed", ErrInvalidState, loan.ID, loan.Status)
	}
	if alloc.Principal.GreaterThan(loan.Outstanding) {
		return nil, "", fmt.Errorf("%w: principal allocation exceeds outstanding balance", ErrInvalidArgument)
	}

	updated := *loan
	updated.Outstanding = floorZero(loan.Outstanding.Sub(alloc.Principal))
	updated.PenaltiesDue = floorZero(loan.PenaltiesDue.Sub(alloc.Penalties))
	updated.FeesDue = floorZero(loan.FeesDue.Sub(alloc.Fees))
	updated.InterestDue = floorZero(loan.InterestDue.Sub(alloc.Interest))

	transition := TransitionNone
	if updated.Outstanding.IsZero() {
		lfsm := statemachine.NewLoanFSM(&updated)
		if err := lfsm.Close(ctx); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		closedAt := paidAt
		updated.ClosedAt = &closedAt
		updated.NextDueDate = nil
		transition = TransitionClosed
	} else if updated.NextDueDate != nil && settledCurrentDues(&updated) {
		next := updated.NextDueDate.AddDate(0, 1, 0)
		updated.NextDueDate = &next
	}

	if err := repo.Update(ctx, &updated); err != nil {
		// Not applied: the caller retries the whole read-modify-write
		// sequence, never just this save.
		return nil, "", fmt.Errorf("persist repayment for loan %d: %w", loan.ID, err)
	}

	return &updated, transition, nil
}

// settledCurrentDues reports whether the period's obligations are clear,
// which advances the next due date by one month
func settledCurrentDues(loan *models.Loan) bool {
	return loan.PenaltiesDue.IsZero() && loan.FeesDue.IsZero() && loan.InterestDue.IsZero()
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
