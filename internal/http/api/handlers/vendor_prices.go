package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	dbutil "github.com/rockyway/rephlo-sites-sub016/internal/db"
	"github.com/rockyway/rephlo-sites-sub016/internal/models"
	"github.com/rockyway/rephlo-sites-sub016/internal/rates"
)

// VendorPriceHandler manages admin endpoints for vendor price rows.
type VendorPriceHandler struct {
	db *gorm.DB // Database handle for price rows.
}

// NewVendorPriceHandler constructs a vendor price handler.
func NewVendorPriceHandler(db *gorm.DB) *VendorPriceHandler {
	return &VendorPriceHandler{db: db}
}

// createVendorPriceRequest captures the payload for superseding a price.
type createVendorPriceRequest struct {
	Provider           string   `json:"provider"`               // Provider identifier.
	Model              string   `json:"model"`                  // Model identifier.
	DisplayName        string   `json:"display_name"`           // Human-readable name.
	InputPricePerK     *float64 `json:"input_price_per_k"`      // USD per 1K input tokens.
	OutputPricePerK    *float64 `json:"output_price_per_k"`     // USD per 1K output tokens.
	CacheReadPricePerK *float64 `json:"cache_read_price_per_k"` // Optional cache-read price.
	EffectiveFrom      *string  `json:"effective_from"`         // RFC3339; defaults to now.
}

// Create inserts a new current price row, closing the superseded one.
func (h *VendorPriceHandler) Create(c *gin.Context) {
	var body createVendorPriceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Provider) == "" || strings.TrimSpace(body.Model) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provider and model are required"})
		return
	}
	if body.InputPricePerK == nil || body.OutputPricePerK == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "input_price_per_k and output_price_per_k are required"})
		return
	}
	if *body.InputPricePerK < 0 || *body.OutputPricePerK < 0 ||
		(body.CacheReadPricePerK != nil && *body.CacheReadPricePerK < 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prices must be >= 0"})
		return
	}

	row := models.VendorPrice{
		Provider:           body.Provider,
		Model:              body.Model,
		DisplayName:        strings.TrimSpace(body.DisplayName),
		InputPricePerK:     *body.InputPricePerK,
		OutputPricePerK:    *body.OutputPricePerK,
		CacheReadPricePerK: body.CacheReadPricePerK,
	}
	if body.EffectiveFrom != nil {
		parsed, errParse := time.Parse(time.RFC3339, *body.EffectiveFrom)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid effective_from"})
			return
		}
		row.EffectiveFrom = parsed.UTC()
	}

	if errSupersede := rates.SupersedeVendorPrice(c.Request.Context(), h.db, &row); errSupersede != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errSupersede.Error()})
		return
	}
	c.JSON(http.StatusCreated, row)
}

// List returns price rows, newest window first, with optional provider/model search.
func (h *VendorPriceHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.VendorPrice{})

	if provider := strings.TrimSpace(c.Query("provider")); provider != "" {
		q = q.Where("provider = ?", strings.ToLower(provider))
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+search+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "model"), pattern)
	}
	if c.Query("current") == "true" {
		q = q.Where("is_active = ? AND effective_until IS NULL", true)
	}

	var rows []models.VendorPrice
	if errFind := q.Order("provider ASC, model ASC, effective_from DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query vendor prices failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "total": len(rows)})
}
