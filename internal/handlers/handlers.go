package handlers

import (
	"github.com/dmwangi/kopa-api/internal/config"
	"github.com/dmwangi/kopa-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health     *HealthHandler
	Loan       *LoanHandler
	Repayment  *RepaymentHandler
	Calculator *CalculatorHandler
	Portfolio  *PortfolioHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, cfg *config.Config) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(),
		Loan:       NewLoanHandler(svcs.Loan),
		Repayment:  NewRepaymentHandler(svcs.Repayment),
		Calculator: NewCalculatorHandler(svcs.Interest),
		Portfolio:  NewPortfolioHandler(svcs.Portfolio, svcs.Staging, cfg.PARThresholdDays),
	}
}
