package billing

import (
	"context"
	"time"

	"github.com/rockyway/rephlo-sites-sub016/internal/models"
)

// UsageEvent is one token usage report from the metering layer.
type UsageEvent struct {
	EventID      string    // Caller-unique identifier for idempotent persistence.
	Provider     string    // Provider identifier.
	Model        string    // Model identifier.
	Tier         string    // Subscription tier; empty when unknown.
	InputTokens  int64     // Input token count.
	OutputTokens int64     // Output token count.
	CachedTokens int64     // Cached-input token count, a subset of InputTokens.
	RequestedAt  time.Time // Request timestamp; zero means now.
}

// CostResult is the unrounded USD cost breakdown for one usage event.
type CostResult struct {
	InputCost  float64   // Cost of regular (non-cached) input tokens.
	CachedCost float64   // Cost of cached input tokens.
	OutputCost float64   // Cost of output tokens.
	TotalCost  float64   // InputCost + CachedCost + OutputCost.
	PriceID    uint64    // Vendor price row that supplied the rates.
	Source     string    // Pricing source label, e.g. "current" or "historical".
	PricedAt   time.Time // Effective-from of the price row used.
}

// MarginResult is the outcome of one margin cascade resolution.
type MarginResult struct {
	Multiplier          float64            // Applied margin multiplier.
	TargetMarginPercent float64            // (1 - 1/Multiplier) * 100.
	ConfigID            *uint64            // Margin config row; nil for the engine default.
	Scope               models.MarginScope // Cascade level that matched.
}

// ConversionMode selects how USD cost becomes credits.
type ConversionMode string

const (
	// ModeSeparate rounds input and output credits independently.
	ModeSeparate ConversionMode = "separate"
	// ModeLegacy averages input and output cost before rounding.
	ModeLegacy ConversionMode = "legacy"
)

// Valid reports whether the mode is a known conversion mode.
func (m ConversionMode) Valid() bool {
	return m == ModeSeparate || m == ModeLegacy
}

// CreditResult is the ceil-rounded credit outcome of a conversion.
//
// In legacy mode InputCredits carries the single averaged value and OutputCredits is
// zero. EstimatedTotal is a display heuristic only; billed credits for a real request
// are always InputCredits + OutputCredits from measured tokens.
type CreditResult struct {
	InputCredits   int64          // Input-side credits (or the legacy single value).
	OutputCredits  int64          // Output-side credits; zero in legacy mode.
	EstimatedTotal int64          // 1:10 weighted per-1K estimate, display only.
	Mode           ConversionMode // Mode the conversion ran in.
}

// TotalCredits returns the billable credit total.
func (r CreditResult) TotalCredits() int64 {
	return r.InputCredits + r.OutputCredits
}

// SubscriptionSnapshot is the caller's view of a subscription at change time.
type SubscriptionSnapshot struct {
	SubscriptionID uint64    // Subscription identifier.
	Tier           string    // Current tier name.
	ListPriceUSD   float64   // Current tier list price for the billing interval.
	PeriodStart    time.Time // Billing period start.
	PeriodEnd      time.Time // Billing period end.
}

// TierChange describes the target of a tier or interval change.
type TierChange struct {
	Tier         string  // New tier name.
	ListPriceUSD float64 // New tier list price for the billing interval.
}

// RateRepository is the read-only, time-indexed lookup the engine consumes.
//
// Implementations return (nil, nil) when no row matches; errors are reserved for
// storage failures, which the engine propagates untouched.
type RateRepository interface {
	// CurrentVendorPrice returns the active open-ended price row, if any.
	CurrentVendorPrice(ctx context.Context, provider, model string) (*models.VendorPrice, error)
	// HistoricalVendorPrice returns the price row whose window covers at, if any.
	HistoricalVendorPrice(ctx context.Context, provider, model string, at time.Time) (*models.VendorPrice, error)
	// MarginConfigAt returns the margin row for one cascade level, if any. Scope
	// fields not used by the level are ignored by the implementation.
	MarginConfigAt(ctx context.Context, scope models.MarginScope, tier, provider, model string, at time.Time) (*models.MarginConfig, error)
}
