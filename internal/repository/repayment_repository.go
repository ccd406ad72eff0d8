package repository

import (
	"context"

	"github.com/dmwangi/kopa-api/internal/models"

	"gorm.io/gorm"
)

// RepaymentRepository defines the interface for repayment records.
// Records are immutable: the interface deliberately exposes no update
// or delete operations.
type RepaymentRepository interface {
	Append(ctx context.Context, record *models.RepaymentRecord) error
	FindByLoan(ctx context.Context, loanID uint) ([]models.RepaymentRecord, error)
	FindByReference(ctx context.Context, reference string) (*models.RepaymentRecord, error)
}

type repaymentRepository struct {
	db *gorm.DB
}

// NewRepaymentRepository creates a new repayment repository
func NewRepaymentRepository(db *gorm.DB) RepaymentRepository {
	return &repaymentRepository{db: db}
}

func (r *repaymentRepository) Append(ctx context.Context, record *models.RepaymentRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return mapError(err)
	}
	return nil
}

func (r *repaymentRepository) FindByLoan(ctx context.Context, loanID uint) ([]models.RepaymentRecord, error) {
	var records []models.RepaymentRecord
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("paid_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, mapError(err)
	}
	return records, nil
}

func (r *repaymentRepository) FindByReference(ctx context.Context, reference string) (*models.RepaymentRecord, error) {
	var record models.RepaymentRecord
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&record).Error; err != nil {
		return nil, mapError(err)
	}
	return &record, nil
}
