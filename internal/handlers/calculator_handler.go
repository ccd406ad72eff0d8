package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dmwangi/kopa-api/internal/models"
	"github.com/dmwangi/kopa-api/internal/services"
)

// CalculatorHandler exposes the pure interest calculations for previews
// that don't touch a persisted loan
type CalculatorHandler struct {
	interestService *services.InterestService
}

func NewCalculatorHandler(interestService *services.InterestService) *CalculatorHandler {
	return &CalculatorHandler{interestService: interestService}
}

type scheduleRequest struct {
	Principal  decimal.Decimal `json:"principal" binding:"required"`
	AnnualRate float64         `json:"annual_rate"`
	TermMonths int             `json:"term_months" binding:"required"`
	StartDate  string          `json:"start_date"` // YYYY-MM-DD, defaults to today
	Convention string          `json:"convention"`
}

// Schedule previews an amortization schedule from raw parameters
func (h *CalculatorHandler) Schedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	if req.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
			return
		}
		start = parsed
	}
	if req.Convention == "" {
		req.Convention = models.ConventionReducingBalance
	}

	entries, err := h.interestService.GenerateSchedule(req.Principal, req.AnnualRate, req.TermMonths, start, req.Convention)
	if err != nil {
		respondError(c, err)
		return
	}

	payment, err := h.interestService.MonthlyPayment(req.Principal, req.AnnualRate, req.TermMonths)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"monthly_payment": payment.Round(2),
		"schedule":        entries,
	})
}

type aprRequest struct {
	Principal      decimal.Decimal `json:"principal" binding:"required"`
	Fees           decimal.Decimal `json:"fees"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment" binding:"required"`
	TermMonths     int             `json:"term_months" binding:"required"`
}

// APR solves the annualized rate implied by a payment stream and fees
func (h *CalculatorHandler) APR(c *gin.Context) {
	var req aprRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	apr, err := h.interestService.CalculateAPR(req.Principal, req.Fees, req.MonthlyPayment, req.TermMonths)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"apr": apr})
}
