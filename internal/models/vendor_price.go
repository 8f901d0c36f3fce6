package models

import "time"

// VendorPrice is one time-versioned price row for a provider/model pair.
//
// At most one row per (provider, model) is current: is_active=true with a null
// effective_until. Every other row is an immutable historical entry. The engine never
// writes these rows; the admin workflow inserts new rows and closes the open-ended
// current row when superseding it.
type VendorPrice struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Provider    string `gorm:"type:text;not null;index:idx_vendor_prices_pm"` // Provider identifier.
	Model       string `gorm:"type:text;not null;index:idx_vendor_prices_pm"` // Model identifier.
	DisplayName string `gorm:"type:text"`                                     // Human-readable model name.

	InputPricePerK     float64  `gorm:"type:decimal(20,10);not null"` // USD per 1K input tokens.
	OutputPricePerK    float64  `gorm:"type:decimal(20,10);not null"` // USD per 1K output tokens.
	CacheReadPricePerK *float64 `gorm:"type:decimal(20,10)"`          // USD per 1K cache-read tokens; input price when nil.

	EffectiveFrom  time.Time  `gorm:"not null;index"` // Start of the effective window.
	EffectiveUntil *time.Time `gorm:"index"`          // End of the effective window; nil while current.

	IsActive bool `gorm:"not null;default:true"` // Whether the row participates in current lookup.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// IsCurrent reports whether the row is the open-ended current price.
func (p *VendorPrice) IsCurrent() bool {
	return p != nil && p.IsActive && p.EffectiveUntil == nil
}

// CoversAt reports whether the effective window contains the given instant.
func (p *VendorPrice) CoversAt(at time.Time) bool {
	if p == nil || at.Before(p.EffectiveFrom) {
		return false
	}
	return p.EffectiveUntil == nil || !at.After(*p.EffectiveUntil)
}

// CacheReadPrice returns the cache-read price, falling back to the input price.
func (p *VendorPrice) CacheReadPrice() float64 {
	if p.CacheReadPricePerK != nil {
		return *p.CacheReadPricePerK
	}
	return p.InputPricePerK
}
