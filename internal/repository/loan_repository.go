package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmwangi/kopa-api/internal/models"

	"gorm.io/gorm"
)

// LoanRepository defines the interface for loan data access
type LoanRepository interface {
	Create(ctx context.Context, loan *models.Loan) error
	FindByID(ctx context.Context, id uint) (*models.Loan, error)
	FindByReference(ctx context.Context, reference string) (*models.Loan, error)
	// Update persists the loan guarded by its version column. A stale
	// version yields ErrConflict; on success the in-memory version is
	// bumped alongside the row.
	Update(ctx context.Context, loan *models.Loan) error
	FindOpen(ctx context.Context) ([]models.Loan, error)
	FindPastDue(ctx context.Context, asOf time.Time) ([]models.Loan, error)
	List(ctx context.Context, query *ListQuery) ([]models.Loan, int64, error)
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	if err := r.db.WithContext(ctx).Create(loan).Error; err != nil {
		return mapError(err)
	}
	return nil
}

func (r *loanRepository) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	if err := r.db.WithContext(ctx).First(&loan, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &loan, nil
}

func (r *loanRepository) FindByReference(ctx context.Context, reference string) (*models.Loan, error) {
	var loan models.Loan
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&loan).Error; err != nil {
		return nil, mapError(err)
	}
	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	current := loan.Version
	loan.Version = current + 1

	res := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id = ? AND version = ?", loan.ID, current).
		Select("*").
		Omit("id", "created_at").
		Updates(loan)
	if res.Error != nil {
		loan.Version = current
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		loan.Version = current
		return fmt.Errorf("loan %d: %w", loan.ID, ErrConflict)
	}
	return nil
}

func (r *loanRepository) FindOpen(ctx context.Context) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{models.LoanStatusActive, models.LoanStatusArrears}).
		Order("id ASC").
		Find(&loans).Error
	if err != nil {
		return nil, mapError(err)
	}
	return loans, nil
}

func (r *loanRepository) FindPastDue(ctx context.Context, asOf time.Time) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{models.LoanStatusActive, models.LoanStatusArrears}).
		Where("next_due_date IS NOT NULL AND next_due_date < ?", asOf).
		Order("next_due_date ASC").
		Find(&loans).Error
	if err != nil {
		return nil, mapError(err)
	}
	return loans, nil
}

func (r *loanRepository) List(ctx context.Context, query *ListQuery) ([]models.Loan, int64, error) {
	var loans []models.Loan
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Loan{})

	if status, ok := query.Filters["status"]; ok && status != "" {
		db = db.Where("status = ?", status)
	}
	if search, ok := query.Filters["search_term"]; ok && search != "" {
		db = db.Where("borrower_name ILIKE ? OR reference ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, mapError(err)
	}

	err := db.Order(query.OrderClause("created_at", "desc")).
		Offset(query.Offset()).
		Limit(query.PerPage).
		Find(&loans).Error
	if err != nil {
		return nil, 0, mapError(err)
	}

	return loans, total, nil
}

// mapError converts gorm and context errors into the repository taxonomy
func mapError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}
