package rates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rockyway/rephlo-sites-sub016/internal/models"
)

// SupersedeVendorPrice inserts a new current price row for (provider, model),
// closing the previous open-ended row at the new row's effective-from. Historical
// windows are never rewritten; superseding only closes the one open row. Runs in a
// single transaction.
func SupersedeVendorPrice(ctx context.Context, db *gorm.DB, row *models.VendorPrice) error {
	if row == nil {
		return errors.New("rates: nil vendor price")
	}
	row.Provider = normalize(row.Provider)
	row.Model = strings.TrimSpace(row.Model)
	if row.Provider == "" || row.Model == "" {
		return errors.New("rates: provider and model are required")
	}
	if row.InputPricePerK < 0 || row.OutputPricePerK < 0 {
		return errors.New("rates: negative price")
	}
	if row.EffectiveFrom.IsZero() {
		row.EffectiveFrom = time.Now().UTC()
	}
	row.EffectiveUntil = nil
	row.IsActive = true

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.VendorPrice
		errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("provider = ? AND model = ?", row.Provider, row.Model).
			Where("is_active = ? AND effective_until IS NULL", true).
			First(&current).Error
		switch {
		case errFind == nil:
			if !row.EffectiveFrom.After(current.EffectiveFrom) {
				return fmt.Errorf("rates: new effective_from %s not after current %s",
					row.EffectiveFrom.Format(time.RFC3339), current.EffectiveFrom.Format(time.RFC3339))
			}
			closedAt := row.EffectiveFrom
			if errClose := tx.Model(&models.VendorPrice{}).
				Where("id = ?", current.ID).
				Update("effective_until", closedAt).Error; errClose != nil {
				return errClose
			}
		case errors.Is(errFind, gorm.ErrRecordNotFound):
			// First price row for the pair.
		default:
			return errFind
		}
		return tx.Create(row).Error
	})
}

// InsertMarginConfig validates scope-field consistency and inserts a margin row.
// The derived target percentage is recomputed from the multiplier before insert.
func InsertMarginConfig(ctx context.Context, db *gorm.DB, row *models.MarginConfig) error {
	if row == nil {
		return errors.New("rates: nil margin config")
	}
	if !row.Scope.Valid() {
		return fmt.Errorf("rates: unknown margin scope %q", row.Scope)
	}
	if row.Multiplier <= 0 {
		return fmt.Errorf("rates: multiplier %v must be > 0", row.Multiplier)
	}
	if row.Provider != nil {
		normalized := normalize(*row.Provider)
		row.Provider = &normalized
	}
	if !row.ValidateScopeFields() {
		return fmt.Errorf("rates: scope fields do not match scope %q", row.Scope)
	}
	if row.EffectiveFrom.IsZero() {
		row.EffectiveFrom = time.Now().UTC()
	}
	row.TargetMarginPercent = (1 - 1/row.Multiplier) * 100
	return db.WithContext(ctx).Create(row).Error
}
