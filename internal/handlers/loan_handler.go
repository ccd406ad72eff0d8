package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dmwangi/kopa-api/internal/repository"
	"github.com/dmwangi/kopa-api/internal/services"
)

type LoanHandler struct {
	loanService *services.LoanService
}

func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

type createLoanRequest struct {
	BorrowerName string          `json:"borrower_name" binding:"required"`
	Principal    decimal.Decimal `json:"principal" binding:"required"`
	AnnualRate   float64         `json:"annual_rate"`
	TermMonths   int             `json:"term_months" binding:"required"`
	Convention   string          `json:"convention"`
}

// Create originates a new pending loan
func (h *LoanHandler) Create(c *gin.Context) {
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loan, err := h.loanService.Originate(c.Request.Context(), services.OriginateLoanInput{
		BorrowerName: req.BorrowerName,
		Principal:    req.Principal,
		AnnualRate:   req.AnnualRate,
		TermMonths:   req.TermMonths,
		Convention:   req.Convention,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, loan.ToResponse())
}

// Index returns a paginated loan listing
func (h *LoanHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Filters["status"] = c.Query("status")
	if search := c.Query("search"); search != "" {
		query.Filters["search_term"] = search
	}

	// Parse sort parameter (format: field-direction)
	if sort := c.Query("sort"); sort != "" {
		parts := strings.Split(sort, "-")
		query.SortBy = parts[0]
		if len(parts) > 1 {
			query.SortDir = parts[1]
		}
	}

	loans, total, err := h.loanService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]interface{}, 0, len(loans))
	for i := range loans {
		responses = append(responses, loans[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"loans": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// Show returns a loan by id
func (h *LoanHandler) Show(c *gin.Context) {
	id, err := loanID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	loan, err := h.loanService.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, loan.ToResponse())
}

// Approve moves a pending loan to approved
func (h *LoanHandler) Approve(c *gin.Context) {
	id, err := loanID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	loan, err := h.loanService.Approve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, loan.ToResponse())
}

type disburseRequest struct {
	DisbursedAt string `json:"disbursed_at"` // YYYY-MM-DD, defaults to today
}

// Disburse activates an approved loan
func (h *LoanHandler) Disburse(c *gin.Context) {
	id, err := loanID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	var req disburseRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var when time.Time
	if req.DisbursedAt != "" {
		when, err = time.Parse("2006-01-02", req.DisbursedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "disbursed_at must be YYYY-MM-DD"})
			return
		}
	}

	loan, err := h.loanService.Disburse(c.Request.Context(), id, when)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, loan.ToResponse())
}

// WriteOff marks an arrears loan as unrecoverable
func (h *LoanHandler) WriteOff(c *gin.Context) {
	id, err := loanID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	loan, err := h.loanService.WriteOff(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, loan.ToResponse())
}

// Schedule returns the amortization schedule for a loan's terms
func (h *LoanHandler) Schedule(c *gin.Context) {
	id, err := loanID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	entries, err := h.loanService.Schedule(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"schedule": entries})
}

func loanID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("loan_id"), 10, 32)
	return uint(id), err
}
