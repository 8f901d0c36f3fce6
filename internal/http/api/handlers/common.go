// Package handlers implements the HTTP surface over the billing engine: admin CRUD
// for rate tables and the preview/proration endpoints the billing layer calls.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rockyway/rephlo-sites-sub016/internal/billing"
)

// respondEngineError maps the engine error taxonomy onto HTTP statuses.
func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, billing.ErrInvalidUsage),
		errors.Is(err, billing.ErrProrationRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, billing.ErrPricingNotFound),
		errors.Is(err, billing.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, billing.ErrReversalConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, billing.ErrInvalidConfiguration):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
