package services

import (
	"github.com/dmwangi/kopa-api/internal/config"
	"github.com/dmwangi/kopa-api/internal/jobs"
	"github.com/dmwangi/kopa-api/internal/repository"
)

// Services holds all service instances
type Services struct {
	Interest   *InterestService
	Allocation *AllocationService
	Arrears    *ArrearsService
	Staging    *StagingService
	Ledger     *LedgerService
	Loan       *LoanService
	Repayment  *RepaymentService
	Portfolio  *PortfolioService
}

// NewServices creates all service instances wired to the configured
// organisation policy (allocation order, risk defaults, retry budget)
func NewServices(repos *repository.Repositories, worker *jobs.Worker, cfg *config.Config) (*Services, error) {
	order, err := ParseAllocationOrder(cfg.AllocationOrder)
	if err != nil {
		return nil, err
	}

	interest := NewInterestService()
	allocation := NewAllocationService(order)
	arrears := NewArrearsService()
	staging := NewStagingService(repos.Staging, arrears, cfg.BasePD, cfg.LGD)
	ledger := NewLedgerService(repos.Loan)

	return &Services{
		Interest:   interest,
		Allocation: allocation,
		Arrears:    arrears,
		Staging:    staging,
		Ledger:     ledger,
		Loan:       NewLoanService(repos.Loan, interest),
		Repayment:  NewRepaymentService(repos.Loan, repos.Repayment, repos.Tx, arrears, allocation, ledger, staging, worker, cfg.RepaymentRetries),
		Portfolio:  NewPortfolioService(repos.Loan, arrears, staging, cfg.PenaltyRate),
	}, nil
}
