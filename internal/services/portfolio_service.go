package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmwangi/kopa-api/internal/models"
	"github.com/dmwangi/kopa-api/internal/repository"
	"github.com/dmwangi/kopa-api/internal/statemachine"
	"github.com/dmwangi/kopa-api/pkg/logger"
)

// PortfolioAtRiskResult summarizes outstanding value at risk beyond a
// days-overdue threshold
type PortfolioAtRiskResult struct {
	ThresholdDays    int             `json:"threshold_days"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	AtRisk           decimal.Decimal `json:"at_risk"`
	Ratio            float64         `json:"ratio"`
	LoanCount        int             `json:"loan_count"`
	AtRiskCount      int             `json:"at_risk_count"`
	AsOf             time.Time       `json:"as_of"`
}

// PortfolioService runs portfolio-wide batch work: the daily arrears
// sweep, penalty accrual, staging recomputation and PAR reporting.
// Batch staging is a per-loan recomputation; two batch runs, or a batch
// run and an in-flight repayment, are serialized per loan by the same
// version check the ledger uses.
type PortfolioService struct {
	loanRepo    repository.LoanRepository
	arrears     *ArrearsService
	staging     *StagingService
	penaltyRate float64
}

// NewPortfolioService creates a new portfolio service. penaltyRate is
// the annual overdue penalty rate as a percentage; zero disables
// penalty accrual.
func NewPortfolioService(loanRepo repository.LoanRepository, arrears *ArrearsService, staging *StagingService, penaltyRate float64) *PortfolioService {
	return &PortfolioService{
		loanRepo:    loanRepo,
		arrears:     arrears,
		staging:     staging,
		penaltyRate: penaltyRate,
	}
}

// PortfolioAtRisk computes the PAR ratio: overdue-beyond-threshold
// outstanding value over total outstanding value of open loans
func (s *PortfolioService) PortfolioAtRisk(ctx context.Context, thresholdDays int, asOf time.Time) (*PortfolioAtRiskResult, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}

	loans, err := s.loanRepo.FindOpen(ctx)
	if err != nil {
		return nil, err
	}

	result := &PortfolioAtRiskResult{
		ThresholdDays:    thresholdDays,
		TotalOutstanding: decimal.Zero,
		AtRisk:           decimal.Zero,
		AsOf:             asOf,
	}

	for i := range loans {
		loan := &loans[i]
		result.TotalOutstanding = result.TotalOutstanding.Add(loan.Outstanding)
		result.LoanCount++

		if _, days := s.arrears.Classify(loan, asOf); days > thresholdDays {
			result.AtRisk = result.AtRisk.Add(loan.Outstanding)
			result.AtRiskCount++
		}
	}

	if result.TotalOutstanding.IsPositive() {
		ratio, _ := result.AtRisk.Div(result.TotalOutstanding).Float64()
		result.Ratio = ratio
	}
	return result, nil
}

// RunStaging recomputes staging and provisioning snapshots across all
// open loans. Per-loan failures are logged and skipped so one bad loan
// never stalls the batch.
func (s *PortfolioService) RunStaging(ctx context.Context) (int, error) {
	asOf := time.Now()

	loans, err := s.loanRepo.FindOpen(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range loans {
		loan := &loans[i]
		if err := s.staging.Snapshot(ctx, loan, asOf); err != nil {
			logger.Error("Portfolio staging failed for loan",
				"loan_id", loan.ID,
				"error", err)
			continue
		}
		processed++
	}

	logger.Info("Portfolio staging run completed",
		"loans", len(loans),
		"processed", processed)
	return processed, nil
}

// SweepArrears moves past-due active loans into arrears and appends a
// staging snapshot for each transition. Intended to run once per day.
func (s *PortfolioService) SweepArrears(ctx context.Context) (int, error) {
	asOf := time.Now()

	loans, err := s.loanRepo.FindPastDue(ctx, asOf)
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range loans {
		loan := &loans[i]
		if loan.Status != models.LoanStatusActive {
			continue
		}
		_, days := s.arrears.Classify(loan, asOf)
		if days <= 0 {
			continue
		}

		lfsm := statemachine.NewLoanFSM(loan)
		if err := lfsm.FallBehind(ctx); err != nil {
			logger.Error("Arrears transition failed", "loan_id", loan.ID, "error", err)
			continue
		}
		if err := s.loanRepo.Update(ctx, loan); err != nil {
			logger.Error("Persisting arrears status failed", "loan_id", loan.ID, "error", err)
			continue
		}
		if err := s.staging.Snapshot(ctx, loan, asOf); err != nil {
			logger.Error("Staging snapshot failed during sweep", "loan_id", loan.ID, "error", err)
		}
		swept++
	}

	if swept > 0 {
		logger.Info("Arrears sweep completed", "swept", swept)
	}
	return swept, nil
}

// AccruePenalties recomputes the accumulated overdue penalty for each
// past-due loan: outstanding * (daysOverdue / 365) * penaltyRate. The
// loan keeps a lifetime accrual watermark; only the growth beyond it
// is added to the penalties-due bucket. Re-runs are no-ops and
// penalties already settled through the allocator stay settled.
func (s *PortfolioService) AccruePenalties(ctx context.Context) (int, error) {
	if s.penaltyRate <= 0 {
		return 0, nil
	}
	asOf := time.Now()

	loans, err := s.loanRepo.FindPastDue(ctx, asOf)
	if err != nil {
		return 0, err
	}

	accrued := 0
	for i := range loans {
		loan := &loans[i]
		_, days := s.arrears.Classify(loan, asOf)
		if days <= 0 {
			continue
		}

		total := loan.Outstanding.
			Mul(decimal.NewFromInt(int64(days))).
			Div(decimal.NewFromInt(365)).
			Mul(decimal.NewFromFloat(s.penaltyRate)).
			Div(decimal.NewFromInt(100)).
			Round(2)
		delta := total.Sub(loan.PenaltiesAccrued)
		if !delta.IsPositive() {
			continue
		}

		loan.PenaltiesDue = loan.PenaltiesDue.Add(delta)
		loan.PenaltiesAccrued = total
		if err := s.loanRepo.Update(ctx, loan); err != nil {
			logger.Error("Persisting penalty accrual failed", "loan_id", loan.ID, "error", err)
			continue
		}
		accrued++
	}

	if accrued > 0 {
		logger.Info("Penalty accrual completed", "loans", accrued)
	}
	return accrued, nil
}
