package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rockyway/rephlo-sites-sub016/internal/models"
	"github.com/rockyway/rephlo-sites-sub016/internal/rates"
)

// MarginConfigHandler manages admin endpoints for margin configuration rows.
type MarginConfigHandler struct {
	db *gorm.DB // Database handle for margin rows.
}

// NewMarginConfigHandler constructs a margin config handler.
func NewMarginConfigHandler(db *gorm.DB) *MarginConfigHandler {
	return &MarginConfigHandler{db: db}
}

// createMarginConfigRequest captures the payload for inserting a margin row.
type createMarginConfigRequest struct {
	Scope          string   `json:"scope"`           // Cascade scope tag.
	Tier           *string  `json:"tier"`            // Tier, when scoped.
	Provider       *string  `json:"provider"`        // Provider, when scoped.
	Model          *string  `json:"model"`           // Model, when scoped.
	Multiplier     *float64 `json:"multiplier"`      // Margin multiplier, > 0.
	EffectiveFrom  *string  `json:"effective_from"`  // RFC3339; defaults to now.
	EffectiveUntil *string  `json:"effective_until"` // RFC3339; nil when unbounded.
}

// Create validates and inserts a margin configuration row.
func (h *MarginConfigHandler) Create(c *gin.Context) {
	var body createMarginConfigRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Multiplier == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multiplier is required"})
		return
	}

	row := models.MarginConfig{
		Scope:      models.MarginScope(strings.TrimSpace(body.Scope)),
		Tier:       body.Tier,
		Provider:   body.Provider,
		Model:      body.Model,
		Multiplier: *body.Multiplier,
		IsEnabled:  true,
	}
	if body.EffectiveFrom != nil {
		parsed, errParse := time.Parse(time.RFC3339, *body.EffectiveFrom)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid effective_from"})
			return
		}
		row.EffectiveFrom = parsed.UTC()
	}
	if body.EffectiveUntil != nil {
		parsed, errParse := time.Parse(time.RFC3339, *body.EffectiveUntil)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid effective_until"})
			return
		}
		until := parsed.UTC()
		if !row.EffectiveFrom.IsZero() && until.Before(row.EffectiveFrom) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "effective_until before effective_from"})
			return
		}
		row.EffectiveUntil = &until
	}

	if errInsert := rates.InsertMarginConfig(c.Request.Context(), h.db, &row); errInsert != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInsert.Error()})
		return
	}
	c.JSON(http.StatusCreated, row)
}

// List returns margin rows filtered by scope, newest window first.
func (h *MarginConfigHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.MarginConfig{})

	if scope := strings.TrimSpace(c.Query("scope")); scope != "" {
		q = q.Where("scope = ?", scope)
	}
	if tier := strings.TrimSpace(c.Query("tier")); tier != "" {
		q = q.Where("tier = ?", tier)
	}

	var rows []models.MarginConfig
	if errFind := q.Order("scope ASC, effective_from DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query margin configs failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "total": len(rows)})
}

// Disable turns off a margin row without touching its effective window.
func (h *MarginConfigHandler) Disable(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	res := h.db.WithContext(c.Request.Context()).
		Model(&models.MarginConfig{}).
		Where("id = ?", id).
		Update("is_enabled", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "disable margin config failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "margin config not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disabled"})
}
