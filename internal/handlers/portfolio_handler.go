package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmwangi/kopa-api/internal/services"
)

type PortfolioHandler struct {
	portfolioService *services.PortfolioService
	stagingService   *services.StagingService
	parThreshold     int
}

func NewPortfolioHandler(portfolioService *services.PortfolioService, stagingService *services.StagingService, parThreshold int) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
		stagingService:   stagingService,
		parThreshold:     parThreshold,
	}
}

// AtRisk returns the portfolio-at-risk summary
func (h *PortfolioHandler) AtRisk(c *gin.Context) {
	threshold := h.parThreshold
	if raw := c.Query("threshold_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold_days must be a non-negative integer"})
			return
		}
		threshold = parsed
	}

	result, err := h.portfolioService.PortfolioAtRisk(c.Request.Context(), threshold, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RunStaging triggers a portfolio-wide staging recomputation
func (h *PortfolioHandler) RunStaging(c *gin.Context) {
	processed, err := h.portfolioService.RunStaging(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"processed": processed})
}

// StagingHistory returns the append-only staging and provisioning trail
// for a loan
func (h *PortfolioHandler) StagingHistory(c *gin.Context) {
	id, err := loanID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	stages, err := h.stagingService.StageHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	provisions, err := h.stagingService.ProvisionHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stages":     stages,
		"provisions": provisions,
	})
}
