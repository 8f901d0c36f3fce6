package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProrationStatus tracks the lifecycle of a proration event.
type ProrationStatus string

// Proration statuses. Completed, reversed and failed are terminal.
const (
	// ProrationStatusPending marks an event computed but not yet invoiced.
	ProrationStatusPending ProrationStatus = "pending"
	// ProrationStatusCompleted marks an event applied to an invoice.
	ProrationStatusCompleted ProrationStatus = "completed"
	// ProrationStatusReversed marks an event undone by a linked inverse event.
	ProrationStatusReversed ProrationStatus = "reversed"
	// ProrationStatusFailed marks an event that could not be applied.
	ProrationStatusFailed ProrationStatus = "failed"
)

// ProrationEvent records the prorated charge or credit for a mid-period tier change.
//
// NetCharge is signed: positive is an extra charge, negative a refund-like credit.
// A reversal is a new row with the sign flipped and the tiers swapped, pointing back
// at the original through OriginalEventID.
type ProrationEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SubscriptionID uint64 `gorm:"not null;index"`   // Subscription undergoing the change.
	FromTier       string `gorm:"type:text;not null"` // Tier before the change.
	ToTier         string `gorm:"type:text;not null"` // Tier after the change.

	PeriodStart time.Time `gorm:"not null"` // Billing period start.
	PeriodEnd   time.Time `gorm:"not null"` // Billing period end.
	ChangeDate  time.Time `gorm:"not null"` // Effective date of the tier change.

	DaysInPeriod  int `gorm:"not null"` // Ceiled day count of the full period, >= 1.
	DaysRemaining int `gorm:"not null"` // Ceiled remaining days, clamped to the period.

	UnusedCredit float64 `gorm:"type:decimal(20,10);not null"` // Pro-rata value of the unused old tier, USD.
	NewTierCost  float64 `gorm:"type:decimal(20,10);not null"` // Pro-rata cost of the new tier, USD.
	NetCharge    float64 `gorm:"type:decimal(20,10);not null"` // NewTierCost - UnusedCredit, USD.

	Status ProrationStatus `gorm:"type:text;not null;default:'pending';index"` // Lifecycle status.

	OriginalEventID *uint64         `gorm:"index"`                     // Reversed event, for reversal rows.
	OriginalEvent   *ProrationEvent `gorm:"foreignKey:OriginalEventID"` // Original event relation.

	Detail datatypes.JSON `gorm:"type:jsonb"` // Structured context (reversal reason, operator).

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Terminal reports whether the status admits no further transitions.
func (s ProrationStatus) Terminal() bool {
	switch s {
	case ProrationStatusCompleted, ProrationStatusReversed, ProrationStatusFailed:
		return true
	}
	return false
}
