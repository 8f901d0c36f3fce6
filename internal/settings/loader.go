package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rockyway/rephlo-sites-sub016/internal/billing"
	"github.com/rockyway/rephlo-sites-sub016/internal/models"
)

// Refresh reloads all settings rows and swaps the in-memory snapshot.
//
// Required at process startup; otherwise the getters serve compile-time defaults
// until an admin update triggers a refresh.
func Refresh(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = row.Value
		if rowUpdatedAt := row.UpdatedAt.UTC(); rowUpdatedAt.After(maxUpdatedAt) {
			maxUpdatedAt = rowUpdatedAt
		}
	}

	Store(maxUpdatedAt, values)
	return nil
}

// EngineConfig assembles the engine configuration from the current snapshot,
// overriding the given file-config baseline where a DB setting is present.
func EngineConfig(base billing.Config) billing.Config {
	cfg := base
	cfg.DefaultMultiplier = Float(DefaultMarginMultiplierKey, base.DefaultMultiplier)
	cfg.CreditCentValue = Float(CreditCentValueKey, base.CreditCentValue)
	mode := billing.ConversionMode(String(ConversionModeKey, string(base.DefaultMode)))
	if mode.Valid() {
		cfg.DefaultMode = mode
	}
	graceDays := Float(ProrationGraceDaysKey, base.ProrationGrace.Hours()/24)
	if graceDays >= 0 {
		cfg.ProrationGrace = time.Duration(graceDays * 24 * float64(time.Hour))
	}
	return cfg
}
