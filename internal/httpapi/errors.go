package httpapi

import (
	"errors"
	"net/http"

	"xdial-backend/internal/apperr"
	"xdial-backend/internal/recordings"
	"xdial-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// writeError maps the internal error taxonomy onto HTTP statuses:
// NotFound -> 404, ValidationError -> 400, PermissionDenied -> 403,
// InvariantViolation and everything unexpected -> 500. Invariant
// violations are additionally logged at error level; they indicate
// corrupted state, never user error.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})

	case apperr.IsValidation(err):
		var ve *apperr.ValidationError
		errors.As(err, &ve)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ve.Msg, "field": ve.Field})

	case errors.Is(err, apperr.ErrPermissionDenied):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})

	case errors.Is(err, recordings.ErrServerBusy):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "recording server busy, retry shortly"})

	case apperr.IsInvariant(err):
		logger.From(c.Request.Context()).Error("invariant violation surfaced", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})

	default:
		var ue *recordings.UpstreamError
		if errors.As(err, &ue) {
			status := http.StatusBadGateway
			if ue.StatusCode >= 400 {
				status = ue.StatusCode
			}
			c.AbortWithStatusJSON(status, gin.H{"error": ue.Msg})
			return
		}
		logger.From(c.Request.Context()).Error("request failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
