package models

import "time"

// MarginScope identifies the specificity of a margin configuration row.
type MarginScope string

// Margin scopes, from most to least specific.
const (
	// MarginScopeCombination matches tier + provider + model.
	MarginScopeCombination MarginScope = "combination"
	// MarginScopeModel matches provider + model for any tier.
	MarginScopeModel MarginScope = "model"
	// MarginScopeProvider matches provider only.
	MarginScopeProvider MarginScope = "provider"
	// MarginScopeTier matches subscription tier only.
	MarginScopeTier MarginScope = "tier"
	// MarginScopeDefault is the unconditional fallback.
	MarginScopeDefault MarginScope = "default"
)

// Valid reports whether the scope is one of the known values.
func (s MarginScope) Valid() bool {
	switch s {
	case MarginScopeCombination, MarginScopeModel, MarginScopeProvider, MarginScopeTier, MarginScopeDefault:
		return true
	}
	return false
}

// MarginConfig is one time-versioned margin multiplier row.
//
// Scope fields present must match the scope tag: combination requires tier, provider
// and model all set; model requires provider and model; provider requires provider;
// tier requires tier; default requires none. The multiplier is the source of truth,
// the target margin percentage is informational and derived as (1 - 1/multiplier)*100.
type MarginConfig struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Scope    MarginScope `gorm:"type:text;not null;index"` // Cascade scope tag.
	Tier     *string     `gorm:"type:text;index"`          // Subscription tier, when scoped.
	Provider *string     `gorm:"type:text;index"`          // Provider identifier, when scoped.
	Model    *string     `gorm:"type:text;index"`          // Model identifier, when scoped.

	Multiplier          float64 `gorm:"type:decimal(20,10);not null"` // Margin multiplier, > 0.
	TargetMarginPercent float64 `gorm:"type:decimal(20,10);not null"` // Derived gross-margin percentage.

	EffectiveFrom  time.Time  `gorm:"not null;index"` // Start of the effective window.
	EffectiveUntil *time.Time `gorm:"index"`          // End of the effective window; nil when unbounded.

	IsEnabled bool `gorm:"not null;default:true"` // Whether the row participates in resolution.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// CoversAt reports whether the effective window contains the given instant.
func (m *MarginConfig) CoversAt(at time.Time) bool {
	if m == nil || at.Before(m.EffectiveFrom) {
		return false
	}
	return m.EffectiveUntil == nil || !at.After(*m.EffectiveUntil)
}

// ValidateScopeFields checks that the populated scope fields match the scope tag.
func (m *MarginConfig) ValidateScopeFields() bool {
	hasTier := m.Tier != nil && *m.Tier != ""
	hasProvider := m.Provider != nil && *m.Provider != ""
	hasModel := m.Model != nil && *m.Model != ""

	switch m.Scope {
	case MarginScopeCombination:
		return hasTier && hasProvider && hasModel
	case MarginScopeModel:
		return hasProvider && hasModel
	case MarginScopeProvider:
		return hasProvider && !hasModel
	case MarginScopeTier:
		return hasTier && !hasProvider && !hasModel
	case MarginScopeDefault:
		return !hasTier && !hasProvider && !hasModel
	}
	return false
}
