package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmwangi/kopa-api/internal/repository"
	"github.com/dmwangi/kopa-api/internal/services"
)

// respondError maps the service/repository error taxonomy onto HTTP
// statuses so callers can always distinguish bad input (400) from bad
// timing (422) from races (409) and transient storage trouble (503).
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidState):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, repository.ErrUnavailable), errors.Is(err, services.ErrRetriesExhausted):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		c.Error(err) //nolint:errcheck // surfaced via request logger
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
