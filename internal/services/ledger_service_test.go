package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmwangi/kopa-api/internal/models"
	"github.com/dmwangi/kopa-api/internal/repository"
)

// Mock LoanRepository (using embedding to avoid implementing all methods)
type mockLoanRepository struct {
	repository.LoanRepository
	mockCreate      func(ctx context.Context, loan *models.Loan) error
	mockFindByID    func(ctx context.Context, id uint) (*models.Loan, error)
	mockUpdate      func(ctx context.Context, loan *models.Loan) error
	mockFindOpen    func(ctx context.Context) ([]models.Loan, error)
	mockFindPastDue func(ctx context.Context, asOf time.Time) ([]models.Loan, error)
}

func (m *mockLoanRepository) Create(ctx context.Context, loan *models.Loan) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, loan)
	}
	return nil
}

func (m *mockLoanRepository) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockLoanRepository) Update(ctx context.Context, loan *models.Loan) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, loan)
	}
	return nil
}

func (m *mockLoanRepository) FindOpen(ctx context.Context) ([]models.Loan, error) {
	if m.mockFindOpen != nil {
		return m.mockFindOpen(ctx)
	}
	return nil, nil
}

func (m *mockLoanRepository) FindPastDue(ctx context.Context, asOf time.Time) ([]models.Loan, error) {
	if m.mockFindPastDue != nil {
		return m.mockFindPastDue(ctx, asOf)
	}
	return nil, nil
}

func activeLoan() *models.Loan {
	due := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return &models.Loan{
		ID:           1,
		Status:       models.LoanStatusActive,
		Outstanding:  decimal.NewFromInt(10000),
		PenaltiesDue: decimal.NewFromInt(200),
		FeesDue:      decimal.Zero,
		InterestDue:  decimal.NewFromInt(300),
		NextDueDate:  &due,
	}
}

func TestApplyRepayment_ReducesBalances(t *testing.T) {
	repo := &mockLoanRepository{}
	svc := NewLedgerService(repo)

	loan := activeLoan()
	alloc := models.RepaymentAllocation{
		Penalties: decimal.NewFromInt(200),
		Fees:      decimal.Zero,
		Interest:  decimal.NewFromInt(300),
		Principal: decimal.NewFromInt(500),
	}

	updated, transition, err := svc.ApplyRepayment(context.Background(), loan, alloc, time.Now())
	require.NoError(t, err)

	assert.Equal(t, TransitionNone, transition)
	assert.Equal(t, "9500.00", updated.Outstanding.StringFixed(2))
	assert.True(t, updated.PenaltiesDue.IsZero())
	assert.True(t, updated.InterestDue.IsZero())
	assert.Equal(t, models.LoanStatusActive, updated.Status)

	// The input loan is never mutated.
	assert.Equal(t, "10000.00", loan.Outstanding.StringFixed(2))
	assert.Equal(t, "200.00", loan.PenaltiesDue.StringFixed(2))
}

func TestApplyRepayment_AdvancesDueDateWhenDuesSettle(t *testing.T) {
	repo := &mockLoanRepository{}
	svc := NewLedgerService(repo)

	loan := activeLoan()
	alloc := models.RepaymentAllocation{
		Penalties: decimal.NewFromInt(200),
		Interest:  decimal.NewFromInt(300),
		Principal: decimal.NewFromInt(500),
	}

	updated, _, err := svc.ApplyRepayment(context.Background(), loan, alloc, time.Now())
	require.NoError(t, err)

	require.NotNil(t, updated.NextDueDate)
	assert.Equal(t, loan.NextDueDate.AddDate(0, 1, 0), *updated.NextDueDate)
}

func TestApplyRepayment_DueDateHeldWhileDuesRemain(t *testing.T) {
	repo := &mockLoanRepository{}
	svc := NewLedgerService(repo)

	loan := activeLoan()
	alloc := models.RepaymentAllocation{
		Penalties: decimal.NewFromInt(100), // half the penalties stay open
		Principal: decimal.NewFromInt(400),
	}

	updated, _, err := svc.ApplyRepayment(context.Background(), loan, alloc, time.Now())
	require.NoError(t, err)

	require.NotNil(t, updated.NextDueDate)
	assert.Equal(t, *loan.NextDueDate, *updated.NextDueDate)
	assert.Equal(t, "100.00", updated.PenaltiesDue.StringFixed(2))
}

func TestApplyRepayment_FullSettlementClosesLoan(t *testing.T) {
	repo := &mockLoanRepository{}
	svc := NewLedgerService(repo)

	loan := activeLoan()
	loan.Outstanding = decimal.NewFromInt(500)
	loan.PenaltiesDue = decimal.Zero
	loan.InterestDue = decimal.Zero

	paidAt := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	alloc := models.RepaymentAllocation{Principal: decimal.NewFromInt(500)}

	updated, transition, err := svc.ApplyRepayment(context.Background(), loan, alloc, paidAt)
	require.NoError(t, err)

	assert.Equal(t, TransitionClosed, transition)
	assert.Equal(t, models.LoanStatusClosed, updated.Status)
	assert.True(t, updated.Outstanding.IsZero())
	require.NotNil(t, updated.ClosedAt)
	assert.Equal(t, paidAt, *updated.ClosedAt)
	assert.Nil(t, updated.NextDueDate)
}

func TestApplyRepayment_ClosedLoanRejected(t *testing.T) {
	repo := &mockLoanRepository{}
	svc := NewLedgerService(repo)

	loan := activeLoan()
	loan.Status = models.LoanStatusClosed

	_, _, err := svc.ApplyRepayment(context.Background(), loan, models.RepaymentAllocation{Principal: decimal.NewFromInt(100)}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestApplyRepayment_WrittenOffLoanRejected(t *testing.T) {
	repo := &mockLoanRepository{}
	svc := NewLedgerService(repo)

	loan := activeLoan()
	loan.Status = models.LoanStatusWrittenOff

	_, _, err := svc.ApplyRepayment(context.Background(), loan, models.RepaymentAllocation{Principal: decimal.NewFromInt(100)}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestApplyRepayment_UndisbursedLoanRejected(t *testing.T) {
	repo := &mockLoanRepository{}
	svc := NewLedgerService(repo)

	loan := activeLoan()
	loan.Status = models.LoanStatusApproved

	_, _, err := svc.ApplyRepayment(context.Background(), loan, models.RepaymentAllocation{Principal: decimal.NewFromInt(100)}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestApplyRepayment_PrincipalOverpayRejected(t *testing.T) {
	repo := &mockLoanRepository{}
	svc := NewLedgerService(repo)

	loan := activeLoan()
	loan.Outstanding = decimal.NewFromInt(100)

	_, _, err := svc.ApplyRepayment(context.Background(), loan, models.RepaymentAllocation{Principal: decimal.NewFromInt(150)}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestApplyRepayment_PersistenceFailureLeavesLoanUntouched(t *testing.T) {
	repo := &mockLoanRepository{
		mockUpdate: func(ctx context.Context, l *models.Loan) error {
			return repository.ErrConflict
		},
	}
	svc := NewLedgerService(repo)

	loan := activeLoan()
	alloc := models.RepaymentAllocation{Principal: decimal.NewFromInt(500)}

	_, _, err := svc.ApplyRepayment(context.Background(), loan, alloc, time.Now())
	assert.ErrorIs(t, err, repository.ErrConflict)

	// Nothing applied: caller retries from a fresh read.
	assert.Equal(t, "10000.00", loan.Outstanding.StringFixed(2))
	assert.Equal(t, models.LoanStatusActive, loan.Status)
}

func TestApplyRepayment_ArrearsLoanStaysInArrears(t *testing.T) {
	repo := &mockLoanRepository{}
	svc := NewLedgerService(repo)

	loan := activeLoan()
	loan.Status = models.LoanStatusArrears
	alloc := models.RepaymentAllocation{
		Penalties: decimal.NewFromInt(200),
		Interest:  decimal.NewFromInt(300),
		Principal: decimal.NewFromInt(500),
	}

	updated, transition, err := svc.ApplyRepayment(context.Background(), loan, alloc, time.Now())
	require.NoError(t, err)

	// Recovery from arrears is an explicit transition, never a side
	// effect of the ledger mutation.
	assert.Equal(t, TransitionNone, transition)
	assert.Equal(t, models.LoanStatusArrears, updated.Status)
}
