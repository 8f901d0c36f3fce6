// Package rates provides the relational implementation of the engine's
// RateRepository: time-window lookups over vendor price and margin config rows.
package rates

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rockyway/rephlo-sites-sub016/internal/models"
)

// GormRateRepository reads time-versioned pricing and margin rows through GORM.
// Rows are immutable once written, so concurrent reads need no coordination.
type GormRateRepository struct {
	db *gorm.DB
}

// NewGormRateRepository constructs a repository over the given connection.
func NewGormRateRepository(db *gorm.DB) *GormRateRepository {
	return &GormRateRepository{db: db}
}

// CurrentVendorPrice returns the single active open-ended row for the pair, or nil.
func (r *GormRateRepository) CurrentVendorPrice(ctx context.Context, provider, model string) (*models.VendorPrice, error) {
	var row models.VendorPrice
	errFind := r.db.WithContext(ctx).
		Where("provider = ? AND model = ?", normalize(provider), strings.TrimSpace(model)).
		Where("is_active = ? AND effective_until IS NULL", true).
		Order("effective_from DESC").
		First(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errFind
	}
	return &row, nil
}

// HistoricalVendorPrice returns the row whose effective window covers at, or nil.
// The newest covering window wins when admin data left overlaps behind.
func (r *GormRateRepository) HistoricalVendorPrice(ctx context.Context, provider, model string, at time.Time) (*models.VendorPrice, error) {
	var row models.VendorPrice
	errFind := r.db.WithContext(ctx).
		Where("provider = ? AND model = ?", normalize(provider), strings.TrimSpace(model)).
		Where("effective_from <= ?", at).
		Where("effective_until IS NULL OR effective_until >= ?", at).
		Order("effective_from DESC").
		First(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errFind
	}
	return &row, nil
}

// MarginConfigAt returns the enabled margin row for one cascade level whose window
// covers at, or nil. Each scope pins exactly the fields its level matches on, so a
// model-scope row never shadows a provider-scope query.
func (r *GormRateRepository) MarginConfigAt(ctx context.Context, scope models.MarginScope, tier, provider, model string, at time.Time) (*models.MarginConfig, error) {
	q := r.db.WithContext(ctx).
		Model(&models.MarginConfig{}).
		Where("scope = ? AND is_enabled = ?", scope, true).
		Where("effective_from <= ?", at).
		Where("effective_until IS NULL OR effective_until >= ?", at)

	switch scope {
	case models.MarginScopeCombination:
		q = q.Where("tier = ? AND provider = ? AND model = ?",
			strings.TrimSpace(tier), normalize(provider), strings.TrimSpace(model))
	case models.MarginScopeModel:
		q = q.Where("provider = ? AND model = ?", normalize(provider), strings.TrimSpace(model))
	case models.MarginScopeProvider:
		q = q.Where("provider = ?", normalize(provider))
	case models.MarginScopeTier:
		q = q.Where("tier = ?", strings.TrimSpace(tier))
	case models.MarginScopeDefault:
		// No scope fields.
	default:
		return nil, nil
	}

	var row models.MarginConfig
	errFind := q.Order("effective_from DESC").First(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errFind
	}
	return &row, nil
}

// normalize lower-cases provider identifiers, matching the write path.
func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
