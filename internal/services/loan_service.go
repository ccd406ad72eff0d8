package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmwangi/kopa-api/internal/models"
	"github.com/dmwangi/kopa-api/internal/repository"
	"github.com/dmwangi/kopa-api/internal/statemachine"
	"github.com/dmwangi/kopa-api/pkg/logger"
)

// OriginateLoanInput carries the terms of a new credit facility
type OriginateLoanInput struct {
	BorrowerName string
	Principal    decimal.Decimal
	AnnualRate   float64
	TermMonths   int
	Convention   string
}

// LoanService handles loan origination and lifecycle up to disbursement.
// Post-disbursement mutation belongs to the ledger and orchestrator.
type LoanService struct {
	loanRepo repository.LoanRepository
	interest *InterestService
}

// NewLoanService creates a new loan service
func NewLoanService(loanRepo repository.LoanRepository, interest *InterestService) *LoanService {
	return &LoanService{loanRepo: loanRepo, interest: interest}
}

// Originate creates a pending loan with validated terms
func (s *LoanService) Originate(ctx context.Context, in OriginateLoanInput) (*models.Loan, error) {
	if err := validateTerms(in.Principal, in.AnnualRate, in.TermMonths); err != nil {
		return nil, err
	}
	if in.BorrowerName == "" {
		return nil, fmt.Errorf("%w: borrower name is required", ErrInvalidArgument)
	}
	if in.Convention == "" {
		in.Convention = models.ConventionReducingBalance
	}
	if !models.ValidConvention(in.Convention) {
		return nil, fmt.Errorf("%w: unknown interest convention %q", ErrInvalidArgument, in.Convention)
	}

	loan := &models.Loan{
		Reference:    uuid.NewString(),
		BorrowerName: in.BorrowerName,
		Principal:    in.Principal.Round(2),
		AnnualRate:   in.AnnualRate,
		TermMonths:   in.TermMonths,
		Convention:   in.Convention,
		Outstanding:  in.Principal.Round(2),
		PenaltiesDue: decimal.Zero,
		FeesDue:      decimal.Zero,
		InterestDue:  decimal.Zero,
		Status:       models.LoanStatusPending,
	}
	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, fmt.Errorf("create loan: %w", err)
	}

	logger.Info("Loan originated",
		"loan_id", loan.ID,
		"reference", loan.Reference,
		"principal", loan.Principal.StringFixed(2))
	return loan, nil
}

// Approve moves a pending loan to approved
func (s *LoanService) Approve(ctx context.Context, id uint) (*models.Loan, error) {
	loan, err := s.loanRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load loan %d: %w", id, err)
	}

	lfsm := statemachine.NewLoanFSM(loan)
	if err := lfsm.Approve(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("persist approval for loan %d: %w", id, err)
	}
	return loan, nil
}

// Disburse activates an approved loan: stamps the disbursement date,
// sets the outstanding balance to the principal and schedules the first
// payment one month out.
func (s *LoanService) Disburse(ctx context.Context, id uint, when time.Time) (*models.Loan, error) {
	if when.IsZero() {
		when = time.Now()
	}

	loan, err := s.loanRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load loan %d: %w", id, err)
	}

	lfsm := statemachine.NewLoanFSM(loan)
	if err := lfsm.Disburse(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	disbursedAt := when
	firstDue := when.AddDate(0, 1, 0)
	loan.DisbursedAt = &disbursedAt
	loan.Outstanding = loan.Principal
	loan.NextDueDate = &firstDue

	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("persist disbursement for loan %d: %w", id, err)
	}

	logger.Info("Loan disbursed",
		"loan_id", loan.ID,
		"principal", loan.Principal.StringFixed(2),
		"first_due", firstDue.Format("2006-01-02"))
	return loan, nil
}

// WriteOff marks an arrears loan as unrecoverable. Terminal: the loan
// can never be mutated again, and its staging history stays as-is.
func (s *LoanService) WriteOff(ctx context.Context, id uint) (*models.Loan, error) {
	loan, err := s.loanRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load loan %d: %w", id, err)
	}

	lfsm := statemachine.NewLoanFSM(loan)
	if err := lfsm.WriteOff(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	loan.NextDueDate = nil

	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("persist write-off for loan %d: %w", id, err)
	}

	logger.Warn("Loan written off",
		"loan_id", loan.ID,
		"outstanding", loan.Outstanding.StringFixed(2))
	return loan, nil
}

// FindByID returns a loan by its numeric id
func (s *LoanService) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	return s.loanRepo.FindByID(ctx, id)
}

// List returns a paginated loan listing
func (s *LoanService) List(ctx context.Context, query *repository.ListQuery) ([]models.Loan, int64, error) {
	return s.loanRepo.List(ctx, query)
}

// Schedule generates the amortization schedule for a loan's terms,
// anchored at the disbursement date (or today for undisbursed loans)
func (s *LoanService) Schedule(ctx context.Context, id uint) ([]models.ScheduleEntry, error) {
	loan, err := s.loanRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load loan %d: %w", id, err)
	}

	start := time.Now()
	if loan.DisbursedAt != nil {
		start = *loan.DisbursedAt
	}
	return s.interest.GenerateSchedule(loan.Principal, loan.AnnualRate, loan.TermMonths, start, loan.Convention)
}
