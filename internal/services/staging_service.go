package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmwangi/kopa-api/internal/models"
	"github.com/dmwangi/kopa-api/internal/repository"
	"github.com/dmwangi/kopa-api/pkg/logger"
)

// Reference risk defaults, tunable per organisation through config
const (
	DefaultBasePD = 0.05
	DefaultLGD    = 0.45
)

// StagingService maps delinquency onto IFRS 9 stages and onto the
// jurisdictional provisioning ladder, and computes expected credit loss.
// The two classifications run over the same days-overdue input but are
// independent ladders and are never conflated.
//
// Staging is a derived snapshot: recomputing with identical inputs yields
// an identical result, and a loan brought current mid-period keeps its
// last recorded stage until an explicit recomputation.
type StagingService struct {
	stagingRepo repository.StagingRepository
	arrears     *ArrearsService
	basePD      float64
	lgd         float64
}

// NewStagingService creates a new staging service. Non-positive basePD or
// lgd fall back to the reference defaults.
func NewStagingService(stagingRepo repository.StagingRepository, arrears *ArrearsService, basePD, lgd float64) *StagingService {
	if basePD <= 0 {
		basePD = DefaultBasePD
	}
	if lgd <= 0 {
		lgd = DefaultLGD
	}
	return &StagingService{
		stagingRepo: stagingRepo,
		arrears:     arrears,
		basePD:      basePD,
		lgd:         lgd,
	}
}

// pdMultiplier returns the IFRS 9 stage and its PD multiplier for a
// days-overdue count: Stage 1 through 30 days, Stage 2 through 90,
// Stage 3 beyond.
func pdMultiplier(daysOverdue int) (string, float64) {
	switch {
	case daysOverdue <= 30:
		return models.Stage1, 1.0
	case daysOverdue <= 90:
		return models.Stage2, 1.5
	default:
		return models.Stage3, 2.5
	}
}

// Stage computes the IFRS 9 staging result for the given exposure.
// A zero basePD or lgd uses the configured default; the adjusted PD is
// probability-bounded at 1.0 regardless of multiplier. ECL is rounded to
// 2 decimals only at output.
func (s *StagingService) Stage(loanID uint, daysOverdue int, basePD, lgd float64, ead decimal.Decimal, asOf time.Time) (*models.CreditStageResult, error) {
	if daysOverdue < 0 {
		return nil, fmt.Errorf("%w: days overdue must not be negative", ErrInvalidArgument)
	}
	if basePD < 0 || basePD > 1 {
		return nil, fmt.Errorf("%w: base PD must be within [0, 1]", ErrInvalidArgument)
	}
	if lgd < 0 || lgd > 1 {
		return nil, fmt.Errorf("%w: LGD must be within [0, 1]", ErrInvalidArgument)
	}
	if ead.IsNegative() {
		return nil, fmt.Errorf("%w: EAD must not be negative", ErrInvalidArgument)
	}
	if basePD == 0 {
		basePD = s.basePD
	}
	if lgd == 0 {
		lgd = s.lgd
	}

	stage, multiplier := pdMultiplier(daysOverdue)
	adjustedPD := basePD * multiplier
	if adjustedPD > 1.0 {
		adjustedPD = 1.0
	}

	ecl := ead.
		Mul(decimal.NewFromFloat(adjustedPD)).
		Mul(decimal.NewFromFloat(lgd)).
		Round(2)

	return &models.CreditStageResult{
		LoanID:      loanID,
		Stage:       stage,
		Bucket:      s.arrears.Bucket(daysOverdue),
		DaysOverdue: daysOverdue,
		PD:          adjustedPD,
		LGD:         lgd,
		EAD:         ead,
		ECL:         ecl,
		ComputedAt:  asOf,
	}, nil
}

// Provision computes the jurisdictional provisioning classification:
// Standard 1%, Watch 5%, Substandard 10%, Doubtful 50%, Loss 100%.
func (s *StagingService) Provision(loanID uint, daysOverdue int, outstanding decimal.Decimal, asOf time.Time) (*models.ProvisionResult, error) {
	if daysOverdue < 0 {
		return nil, fmt.Errorf("%w: days overdue must not be negative", ErrInvalidArgument)
	}
	if outstanding.IsNegative() {
		return nil, fmt.Errorf("%w: outstanding must not be negative", ErrInvalidArgument)
	}

	var class string
	var rate float64
	switch {
	case daysOverdue <= 30:
		class, rate = models.ClassStandard, 0.01
	case daysOverdue <= 60:
		class, rate = models.ClassWatch, 0.05
	case daysOverdue <= 90:
		class, rate = models.ClassSubstandard, 0.10
	case daysOverdue <= 180:
		class, rate = models.ClassDoubtful, 0.50
	default:
		class, rate = models.ClassLoss, 1.00
	}

	amount := outstanding.Mul(decimal.NewFromFloat(rate)).Round(2)

	return &models.ProvisionResult{
		LoanID:         loanID,
		Classification: class,
		DaysOverdue:    daysOverdue,
		Rate:           rate,
		Outstanding:    outstanding,
		Amount:         amount,
		ComputedAt:     asOf,
	}, nil
}

// Snapshot recomputes both classifications for a loan and appends them to
// the staging history. Prior results are never overwritten.
func (s *StagingService) Snapshot(ctx context.Context, loan *models.Loan, asOf time.Time) error {
	_, days := s.arrears.Classify(loan, asOf)

	stage, err := s.Stage(loan.ID, days, 0, 0, loan.Outstanding, asOf)
	if err != nil {
		return fmt.Errorf("stage loan %d: %w", loan.ID, err)
	}
	provision, err := s.Provision(loan.ID, days, loan.Outstanding, asOf)
	if err != nil {
		return fmt.Errorf("provision loan %d: %w", loan.ID, err)
	}

	if err := s.stagingRepo.AppendStage(ctx, stage); err != nil {
		return fmt.Errorf("append stage result: %w", err)
	}
	if err := s.stagingRepo.AppendProvision(ctx, provision); err != nil {
		return fmt.Errorf("append provision result: %w", err)
	}

	logger.Debug("Staging snapshot recorded",
		"loan_id", loan.ID,
		"stage", stage.Stage,
		"classification", provision.Classification,
		"days_overdue", days)
	return nil
}

// StageHistory returns the append-only staging trail for a loan
func (s *StagingService) StageHistory(ctx context.Context, loanID uint) ([]models.CreditStageResult, error) {
	return s.stagingRepo.StageHistory(ctx, loanID)
}

// ProvisionHistory returns the append-only provisioning trail for a loan
func (s *StagingService) ProvisionHistory(ctx context.Context, loanID uint) ([]models.ProvisionResult, error) {
	return s.stagingRepo.ProvisionHistory(ctx, loanID)
}
