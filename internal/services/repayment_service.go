package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmwangi/kopa-api/internal/jobs"
	"github.com/dmwangi/kopa-api/internal/models"
	"github.com/dmwangi/kopa-api/internal/repository"
	"github.com/dmwangi/kopa-api/internal/statemachine"
	"github.com/dmwangi/kopa-api/pkg/logger"
)

// RepaymentReceipt summarizes an accepted repayment
type RepaymentReceipt struct {
	Loan        *models.Loan               `json:"loan"`
	Allocation  models.RepaymentAllocation `json:"allocation"`
	Bucket      models.DelinquencyBucket   `json:"bucket"`
	DaysOverdue int                        `json:"days_overdue"`
	Transition  string                     `json:"transition"`
	Reference   string                     `json:"reference"`
}

// RepaymentService orchestrates repayment posting: validate, classify
// delinquency, allocate, then mutate the ledger and append the
// immutable repayment record in one transaction, and finally
// recompute staging in the background when the delinquency bucket
// changed.
//
// Staging is advisory reporting, not a payment-acceptance gate: its
// failure is logged and never rolls an accepted repayment back. Every
// other step's failure aborts the whole operation and leaves nothing
// persisted.
type RepaymentService struct {
	loanRepo      repository.LoanRepository
	repaymentRepo repository.RepaymentRepository
	tx            repository.TxRunner
	arrears       *ArrearsService
	allocator     *AllocationService
	ledger        *LedgerService
	staging       *StagingService
	worker        *jobs.Worker
	maxAttempts   int
	retryBackoff  time.Duration
}

// NewRepaymentService creates a new repayment orchestrator.
// maxAttempts bounds the conflict/unavailability retry loop; values
// below 1 fall back to 3 attempts.
func NewRepaymentService(
	loanRepo repository.LoanRepository,
	repaymentRepo repository.RepaymentRepository,
	tx repository.TxRunner,
	arrears *ArrearsService,
	allocator *AllocationService,
	ledger *LedgerService,
	staging *StagingService,
	worker *jobs.Worker,
	maxAttempts int,
) *RepaymentService {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &RepaymentService{
		loanRepo:      loanRepo,
		repaymentRepo: repaymentRepo,
		tx:            tx,
		arrears:       arrears,
		allocator:     allocator,
		ledger:        ledger,
		staging:       staging,
		worker:        worker,
		maxAttempts:   maxAttempts,
		retryBackoff:  100 * time.Millisecond,
	}
}

// PostRepayment applies one repayment to a loan. Conflicts and transient
// persistence failures re-run the whole read-modify-write sequence from
// scratch, bounded by the retry budget with backoff; a mutation that
// could not be confirmed is never assumed applied.
func (s *RepaymentService) PostRepayment(ctx context.Context, loanID uint, amount decimal.Decimal, paidAt time.Time, order []models.AllocationBucket) (*RepaymentReceipt, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	now := time.Now()
	if paidAt.IsZero() {
		paidAt = now
	}
	// Payment date at most today, in the server's timezone.
	y, m, d := now.Date()
	endOfToday := time.Date(y, m, d, 23, 59, 59, 0, now.Location())
	if paidAt.After(endOfToday) {
		return nil, fmt.Errorf("%w: payment date must not be in the future", ErrInvalidArgument)
	}

	var (
		applied    *models.Loan
		alloc      models.RepaymentAllocation
		record     *models.RepaymentRecord
		transition string
		prevDays   int
		lastErr    error
	)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		loan, err := s.loanRepo.FindByID(ctx, loanID)
		if err != nil {
			return nil, fmt.Errorf("load loan %d: %w", loanID, err)
		}
		if loan.IsTerminal() {
			return nil, fmt.Errorf("%w: loan %d is %s", ErrInvalidState, loanID, loan.Status)
		}

		_, prevDays = s.arrears.Classify(loan, paidAt)

		alloc, err = s.allocator.Allocate(amount, Obligations{
			Penalties: loan.PenaltiesDue,
			Fees:      loan.FeesDue,
			Interest:  loan.InterestDue,
			Principal: loan.Outstanding,
		}, order)
		if err != nil {
			return nil, err
		}

		// The ledger mutation and the record append commit together:
		// either failure rolls both back before the retry.
		err = s.tx.RunInTx(ctx, func(loans repository.LoanRepository, repayments repository.RepaymentRepository) error {
			var txErr error
			applied, transition, txErr = s.ledger.applyWith(ctx, loans, loan, alloc, paidAt)
			if txErr != nil {
				return txErr
			}
			record = &models.RepaymentRecord{
				Reference:   uuid.NewString(),
				LoanID:      applied.ID,
				Amount:      amount,
				Penalties:   alloc.Penalties,
				Fees:        alloc.Fees,
				Interest:    alloc.Interest,
				Principal:   alloc.Principal,
				Unallocated: alloc.Unallocated,
				DaysOverdue: prevDays,
				PaidAt:      paidAt,
			}
			if txErr := repayments.Append(ctx, record); txErr != nil {
				return fmt.Errorf("append repayment record for loan %d: %w", applied.ID, txErr)
			}
			return nil
		})
		if err == nil {
			lastErr = nil
			break
		}
		if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrUnavailable) {
			lastErr = err
			logger.Warn("Repayment attempt failed, retrying",
				"loan_id", loanID,
				"attempt", attempt,
				"error", err)
			if attempt < s.maxAttempts {
				select {
				case <-ctx.Done():
					return nil, fmt.Errorf("%w: %v", repository.ErrUnavailable, ctx.Err())
				case <-time.After(s.retryBackoff * time.Duration(attempt)):
				}
			}
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr)
	}

	if alloc.Unallocated.IsPositive() {
		logger.Info("Repayment exceeds total dues, excess left unallocated",
			"loan_id", applied.ID,
			"unallocated", alloc.Unallocated.StringFixed(2))
	}

	newBucket, newDays := s.arrears.Classify(applied, paidAt)
	if s.arrears.Bucket(prevDays) != newBucket {
		snapshot := *applied
		s.worker.EnqueueAsync(func(jobCtx context.Context) error {
			if err := s.staging.Snapshot(jobCtx, &snapshot, paidAt); err != nil {
				logger.Error("Staging recomputation failed after repayment",
					"loan_id", snapshot.ID,
					"error", err)
			}
			// Advisory only: never propagate into the payment path.
			return nil
		})
	}

	return &RepaymentReceipt{
		Loan:        applied,
		Allocation:  alloc,
		Bucket:      newBucket,
		DaysOverdue: newDays,
		Transition:  transition,
		Reference:   record.Reference,
	}, nil
}

// CureArrears explicitly recovers a loan from arrears to active once its
// past-due obligations are settled. Recovery is never implicit in the
// ledger mutation; business confirmed it stays a separate action.
func (s *RepaymentService) CureArrears(ctx context.Context, loanID uint, asOf time.Time) (*models.Loan, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}

	loan, err := s.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("load loan %d: %w", loanID, err)
	}
	if !loan.MayCure() {
		return nil, fmt.Errorf("%w: loan %d is %s, not in arrears", ErrInvalidState, loanID, loan.Status)
	}
	if _, days := s.arrears.Classify(loan, asOf); days > 0 {
		return nil, fmt.Errorf("%w: loan %d is still %d days past due", ErrInvalidState, loanID, days)
	}
	if !loan.PenaltiesDue.IsZero() || !loan.InterestDue.IsZero() {
		return nil, fmt.Errorf("%w: loan %d has unsettled arrears obligations", ErrInvalidState, loanID)
	}

	lfsm := statemachine.NewLoanFSM(loan)
	if err := lfsm.Cure(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("persist cure for loan %d: %w", loanID, err)
	}

	snapshot := *loan
	s.worker.EnqueueAsync(func(jobCtx context.Context) error {
		if err := s.staging.Snapshot(jobCtx, &snapshot, asOf); err != nil {
			logger.Error("Staging recomputation failed after cure",
				"loan_id", snapshot.ID,
				"error", err)
		}
		return nil
	})

	return loan, nil
}

// History returns the append-only repayment trail for a loan
func (s *RepaymentService) History(ctx context.Context, loanID uint) ([]models.RepaymentRecord, error) {
	if _, err := s.loanRepo.FindByID(ctx, loanID); err != nil {
		return nil, fmt.Errorf("load loan %d: %w", loanID, err)
	}
	return s.repaymentRepo.FindByLoan(ctx, loanID)
}
