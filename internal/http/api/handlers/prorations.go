package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rockyway/rephlo-sites-sub016/internal/billing"
	"github.com/rockyway/rephlo-sites-sub016/internal/models"
)

// ProrationHandler exposes the proration lifecycle: calculate, complete, reverse.
type ProrationHandler struct {
	db     *gorm.DB
	engine *billing.Engine
}

// NewProrationHandler constructs a proration handler.
func NewProrationHandler(db *gorm.DB, engine *billing.Engine) *ProrationHandler {
	return &ProrationHandler{db: db, engine: engine}
}

// calculateProrationRequest captures a tier-change proration request.
type calculateProrationRequest struct {
	SubscriptionID uint64   `json:"subscription_id"` // Subscription identifier.
	FromTier       string   `json:"from_tier"`       // Current tier name.
	FromPriceUSD   *float64 `json:"from_price_usd"`  // Current tier list price.
	ToTier         string   `json:"to_tier"`         // Target tier name.
	ToPriceUSD     *float64 `json:"to_price_usd"`    // Target tier list price.
	PeriodStart    string   `json:"period_start"`    // RFC3339 period start.
	PeriodEnd      string   `json:"period_end"`      // RFC3339 period end.
	ChangeDate     *string  `json:"change_date"`     // RFC3339; defaults to now.
}

// Calculate computes and stores a pending proration event.
func (h *ProrationHandler) Calculate(c *gin.Context) {
	var body calculateProrationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.SubscriptionID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subscription_id is required"})
		return
	}
	if strings.TrimSpace(body.FromTier) == "" || strings.TrimSpace(body.ToTier) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from_tier and to_tier are required"})
		return
	}
	if body.FromPriceUSD == nil || body.ToPriceUSD == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from_price_usd and to_price_usd are required"})
		return
	}

	periodStart, errStart := time.Parse(time.RFC3339, body.PeriodStart)
	if errStart != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_start"})
		return
	}
	periodEnd, errEnd := time.Parse(time.RFC3339, body.PeriodEnd)
	if errEnd != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_end"})
		return
	}
	changeDate := time.Now().UTC()
	if body.ChangeDate != nil {
		parsed, errChange := time.Parse(time.RFC3339, *body.ChangeDate)
		if errChange != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid change_date"})
			return
		}
		changeDate = parsed.UTC()
	}

	snap := billing.SubscriptionSnapshot{
		SubscriptionID: body.SubscriptionID,
		Tier:           strings.TrimSpace(body.FromTier),
		ListPriceUSD:   *body.FromPriceUSD,
		PeriodStart:    periodStart.UTC(),
		PeriodEnd:      periodEnd.UTC(),
	}
	change := billing.TierChange{
		Tier:         strings.TrimSpace(body.ToTier),
		ListPriceUSD: *body.ToPriceUSD,
	}

	event, errCalc := h.engine.CalculateProration(c.Request.Context(), snap, change, changeDate)
	if errCalc != nil {
		respondEngineError(c, errCalc)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// Complete transitions a pending proration event to completed.
func (h *ProrationHandler) Complete(c *gin.Context) {
	id, ok := parseEventID(c)
	if !ok {
		return
	}
	event, errComplete := h.engine.CompleteProration(c.Request.Context(), id)
	if errComplete != nil {
		respondEngineError(c, errComplete)
		return
	}
	c.JSON(http.StatusOK, event)
}

// reverseProrationRequest captures the admin-supplied reversal reason.
type reverseProrationRequest struct {
	Reason string `json:"reason"` // Why the proration is being undone.
}

// Reverse creates the linked inverse event and marks the original reversed.
func (h *ProrationHandler) Reverse(c *gin.Context) {
	id, ok := parseEventID(c)
	if !ok {
		return
	}
	var body reverseProrationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Reason) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	reversal, errReverse := h.engine.ReverseProration(c.Request.Context(), id, body.Reason)
	if errReverse != nil {
		respondEngineError(c, errReverse)
		return
	}
	c.JSON(http.StatusCreated, reversal)
}

// List returns proration events for a subscription, newest first.
func (h *ProrationHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.ProrationEvent{})

	if raw := strings.TrimSpace(c.Query("subscription_id")); raw != "" {
		id, errParse := strconv.ParseUint(raw, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription_id"})
			return
		}
		q = q.Where("subscription_id = ?", id)
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		q = q.Where("status = ?", status)
	}

	var rows []models.ProrationEvent
	if errFind := q.Order("id DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query proration events failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "total": len(rows)})
}

// parseEventID reads the :id path parameter, responding on failure.
func parseEventID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return 0, false
	}
	return id, true
}
