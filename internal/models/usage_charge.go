package models

import "time"

// UsageCharge persists the full billing pipeline output for one usage event.
//
// EventID carries the caller's unique usage event identifier; the unique index on it
// is what enforces at-most-once credit deduction per event.
type UsageCharge struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EventID string `gorm:"type:text;not null;uniqueIndex"` // Caller-supplied usage event ID.

	Provider string `gorm:"type:text;not null;index"` // Provider identifier.
	Model    string `gorm:"type:text;not null;index"` // Model identifier.
	Tier     string `gorm:"type:text;index"`          // Subscription tier at request time.

	RequestedAt time.Time `gorm:"not null;index"` // Usage event timestamp.

	InputTokens  int64 `gorm:"not null;default:0"` // Input token count.
	OutputTokens int64 `gorm:"not null;default:0"` // Output token count.
	CachedTokens int64 `gorm:"not null;default:0"` // Cached-input token count.

	InputCost  float64 `gorm:"type:decimal(20,10);not null"` // USD cost of regular input tokens.
	CachedCost float64 `gorm:"type:decimal(20,10);not null"` // USD cost of cached input tokens.
	OutputCost float64 `gorm:"type:decimal(20,10);not null"` // USD cost of output tokens.
	TotalCost  float64 `gorm:"type:decimal(20,10);not null"` // Total vendor cost, USD.

	PriceID  uint64  `gorm:"not null"`                     // Vendor price row used.
	MarginID *uint64 // Margin config row used, nil for engine default.
	Margin   float64 `gorm:"type:decimal(20,10);not null"` // Applied margin multiplier.

	InputCredits  int64 `gorm:"not null;default:0"` // Billed input-side credits.
	OutputCredits int64 `gorm:"not null;default:0"` // Billed output-side credits.
	TotalCredits  int64 `gorm:"not null;default:0"` // Billed credits, input + output.

	ConversionMode string `gorm:"type:text;not null"` // Credit conversion mode used.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
