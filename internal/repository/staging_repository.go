package repository

import (
	"context"

	"github.com/dmwangi/kopa-api/internal/models"

	"gorm.io/gorm"
)

// StagingRepository defines the interface for credit staging and
// provisioning snapshots. Both tables are append-only: snapshots are
// recomputed and appended, never updated in place, so the full staging
// history of a loan stays auditable.
type StagingRepository interface {
	AppendStage(ctx context.Context, result *models.CreditStageResult) error
	AppendProvision(ctx context.Context, result *models.ProvisionResult) error
	StageHistory(ctx context.Context, loanID uint) ([]models.CreditStageResult, error)
	ProvisionHistory(ctx context.Context, loanID uint) ([]models.ProvisionResult, error)
	LatestStage(ctx context.Context, loanID uint) (*models.CreditStageResult, error)
}

type stagingRepository struct {
	db *gorm.DB
}

// NewStagingRepository creates a new staging repository
func NewStagingRepository(db *gorm.DB) StagingRepository {
	return &stagingRepository{db: db}
}

func (r *stagingRepository) AppendStage(ctx context.Context, result *models.CreditStageResult) error {
	if err := r.db.WithContext(ctx).Create(result).Error; err != nil {
		return mapError(err)
	}
	return nil
}

func (r *stagingRepository) AppendProvision(ctx context.Context, result *models.ProvisionResult) error {
	if err := r.db.WithContext(ctx).Create(result).Error; err != nil {
		return mapError(err)
	}
	return nil
}

func (r *stagingRepository) StageHistory(ctx context.Context, loanID uint) ([]models.CreditStageResult, error) {
	var results []models.CreditStageResult
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("computed_at ASC, id ASC").
		Find(&results).Error
	if err != nil {
		return nil, mapError(err)
	}
	return results, nil
}

func (r *stagingRepository) ProvisionHistory(ctx context.Context, loanID uint) ([]models.ProvisionResult, error) {
	var results []models.ProvisionResult
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("computed_at ASC, id ASC").
		Find(&results).Error
	if err != nil {
		return nil, mapError(err)
	}
	return results, nil
}

func (r *stagingRepository) LatestStage(ctx context.Context, loanID uint) (*models.CreditStageResult, error) {
	var result models.CreditStageResult
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("computed_at DESC, id DESC").
		First(&result).Error
	if err != nil {
		return nil, mapError(err)
	}
	return &result, nil
}
