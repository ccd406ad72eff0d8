package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dmwangi/kopa-api/internal/services"
)

type RepaymentHandler struct {
	repaymentService *services.RepaymentService
}

func NewRepaymentHandler(repaymentService *services.RepaymentService) *RepaymentHandler {
	return &RepaymentHandler{repaymentService: repaymentService}
}

type postRepaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	PaidAt string          `json:"paid_at"` // YYYY-MM-DD, defaults to today
	Order  []string        `json:"order"`   // optional allocation order override
}

// Create posts a repayment against a loan
func (h *RepaymentHandler) Create(c *gin.Context) {
	id, err := loanID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	var req postRepaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var paidAt time.Time
	if req.PaidAt != "" {
		paidAt, err = time.Parse("2006-01-02", req.PaidAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "paid_at must be YYYY-MM-DD"})
			return
		}
	}

	var order []string
	if len(req.Order) > 0 {
		order = req.Order
	}
	bucketOrder, err := services.ParseAllocationOrder(order)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(req.Order) == 0 {
		bucketOrder = nil // use the configured organisation default
	}

	receipt, err := h.repaymentService.PostRepayment(c.Request.Context(), id, req.Amount, paidAt, bucketOrder)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"reference":    receipt.Reference,
		"loan":         receipt.Loan.ToResponse(),
		"allocation":   receipt.Allocation,
		"bucket":       receipt.Bucket,
		"days_overdue": receipt.DaysOverdue,
		"transition":   receipt.Transition,
	})
}

// Index returns the append-only repayment history for a loan
func (h *RepaymentHandler) Index(c *gin.Context) {
	id, err := loanID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	records, err := h.repaymentService.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"repayments": records})
}

// Cure explicitly recovers a loan from arrears to active
func (h *RepaymentHandler) Cure(c *gin.Context) {
	id, err := loanID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	loan, err := h.repaymentService.CureArrears(c.Request.Context(), id, time.Time{})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, loan.ToResponse())
}
