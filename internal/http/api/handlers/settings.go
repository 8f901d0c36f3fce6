package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rockyway/rephlo-sites-sub016/internal/billing"
	"github.com/rockyway/rephlo-sites-sub016/internal/models"
	"github.com/rockyway/rephlo-sites-sub016/internal/settings"
)

// SettingsHandler manages the DB-backed billing knobs. Writes refresh the in-memory
// snapshot and reload the engine, so changes take effect without a restart.
type SettingsHandler struct {
	db     *gorm.DB
	engine *billing.Engine
	base   billing.Config // File-config baseline the DB values override.
}

// NewSettingsHandler constructs a settings handler.
func NewSettingsHandler(db *gorm.DB, engine *billing.Engine, base billing.Config) *SettingsHandler {
	return &SettingsHandler{db: db, engine: engine, base: base}
}

// Get returns the billing configuration currently in effect.
func (h *SettingsHandler) Get(c *gin.Context) {
	cfg := h.engine.Config()
	c.JSON(http.StatusOK, gin.H{
		"default_margin_multiplier": cfg.DefaultMultiplier,
		"credit_cent_value":         cfg.CreditCentValue,
		"conversion_mode":           string(cfg.DefaultMode),
		"proration_grace_days":      cfg.ProrationGrace.Hours() / 24,
		"updated_at":                settings.UpdatedAt(),
	})
}

// updateSettingsRequest captures a partial update of the billing knobs. Pointer
// fields distinguish "leave unchanged" from an explicit value.
type updateSettingsRequest struct {
	DefaultMarginMultiplier *float64 `json:"default_margin_multiplier"` // Fallback multiplier, > 0.
	CreditCentValue         *float64 `json:"credit_cent_value"`         // USD cents per credit, > 0.
	ConversionMode          *string  `json:"conversion_mode"`           // "separate" or "legacy".
	ProrationGraceDays      *float64 `json:"proration_grace_days"`      // Grace window in days, >= 0.
}

// Update validates and upserts the supplied knobs, then refreshes the snapshot and
// reloads the engine configuration.
func (h *SettingsHandler) Update(c *gin.Context) {
	var body updateSettingsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	rows := make([]models.Setting, 0, 4)
	if body.DefaultMarginMultiplier != nil {
		if *body.DefaultMarginMultiplier <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "default_margin_multiplier must be > 0"})
			return
		}
		rows = append(rows, settingRow(settings.DefaultMarginMultiplierKey, *body.DefaultMarginMultiplier))
	}
	if body.CreditCentValue != nil {
		if *body.CreditCentValue <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "credit_cent_value must be > 0"})
			return
		}
		rows = append(rows, settingRow(settings.CreditCentValueKey, *body.CreditCentValue))
	}
	if body.ConversionMode != nil {
		if !billing.ConversionMode(*body.ConversionMode).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown conversion_mode"})
			return
		}
		rows = append(rows, settingRow(settings.ConversionModeKey, *body.ConversionMode))
	}
	if body.ProrationGraceDays != nil {
		if *body.ProrationGraceDays < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "proration_grace_days must be >= 0"})
			return
		}
		rows = append(rows, settingRow(settings.ProrationGraceDaysKey, *body.ProrationGraceDays))
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no settings supplied"})
		return
	}

	ctx := c.Request.Context()
	errTx := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			if errUpsert := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&rows[i]).Error; errUpsert != nil {
				return errUpsert
			}
		}
		return nil
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store settings failed"})
		return
	}

	if errRefresh := settings.Refresh(ctx, h.db); errRefresh != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh settings failed"})
		return
	}
	if errReload := h.engine.Reload(settings.EngineConfig(h.base)); errReload != nil {
		respondEngineError(c, errReload)
		return
	}
	h.Get(c)
}

// settingRow JSON-encodes one knob into a Setting row.
func settingRow(key string, value any) models.Setting {
	encoded, _ := json.Marshal(value)
	return models.Setting{Key: key, Value: encoded, UpdatedAt: time.Now().UTC()}
}
