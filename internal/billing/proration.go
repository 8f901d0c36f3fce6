package billing

import (
	"fmt"
	"math"
	"time"

	"github.com/rockyway/rephlo-sites-sub016/internal/models"
)

// ProrationCalculator computes the net charge or credit for a mid-period tier or
// interval change, and builds the inverse event for a reversal. It is pure; state
// transitions and persistence belong to the engine facade.
type ProrationCalculator struct {
	cfg Config
}

// NewProrationCalculator constructs a ProrationCalculator.
func NewProrationCalculator(cfg Config) *ProrationCalculator {
	return &ProrationCalculator{cfg: cfg}
}

// Calculate returns a pending proration event for changing the subscription to the
// new tier at changeDate. Day counts use ceiling day arithmetic; money rounds to
// cents per component, so NetCharge == NewTierCost - UnusedCredit holds exactly on
// the stored values.
func (p *ProrationCalculator) Calculate(snap SubscriptionSnapshot, change TierChange, changeDate time.Time) (models.ProrationEvent, error) {
	if !snap.PeriodEnd.After(snap.PeriodStart) {
		return models.ProrationEvent{}, fmt.Errorf("%w: period end %s not after start %s",
			ErrInvalidConfiguration, snap.PeriodEnd.Format(time.RFC3339), snap.PeriodStart.Format(time.RFC3339))
	}
	if changeDate.Before(snap.PeriodStart.Add(-p.cfg.ProrationGrace)) ||
		changeDate.After(snap.PeriodEnd.Add(p.cfg.ProrationGrace)) {
		return models.ProrationEvent{}, fmt.Errorf("%w: change %s outside [%s, %s] grace %s",
			ErrProrationRange, changeDate.Format(time.RFC3339),
			snap.PeriodStart.Format(time.RFC3339), snap.PeriodEnd.Format(time.RFC3339), p.cfg.ProrationGrace)
	}

	daysInPeriod := ceilDays(snap.PeriodEnd.Sub(snap.PeriodStart))
	if daysInPeriod < 1 {
		daysInPeriod = 1
	}
	daysRemaining := ceilDays(snap.PeriodEnd.Sub(changeDate))
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	if daysRemaining > daysInPeriod {
		daysRemaining = daysInPeriod
	}

	fraction := float64(daysRemaining) / float64(daysInPeriod)
	unusedCredit := roundCents(fraction * snap.ListPriceUSD)
	newTierCost := roundCents(fraction * change.ListPriceUSD)

	return models.ProrationEvent{
		SubscriptionID: snap.SubscriptionID,
		FromTier:       snap.Tier,
		ToTier:         change.Tier,
		PeriodStart:    snap.PeriodStart,
		PeriodEnd:      snap.PeriodEnd,
		ChangeDate:     changeDate,
		DaysInPeriod:   daysInPeriod,
		DaysRemaining:  daysRemaining,
		UnusedCredit:   unusedCredit,
		NewTierCost:    newTierCost,
		NetCharge:      newTierCost - unusedCredit,
		Status:         models.ProrationStatusPending,
	}, nil
}

// Inverse builds the linked reversal event for a completed original: net charge
// negated, tiers swapped, explicit reference back to the original.
func (p *ProrationCalculator) Inverse(original models.ProrationEvent) (models.ProrationEvent, error) {
	if original.Status != models.ProrationStatusCompleted {
		return models.ProrationEvent{}, fmt.Errorf("%w: event %d is %s, only completed events reverse",
			ErrReversalConflict, original.ID, original.Status)
	}
	originalID := original.ID
	return models.ProrationEvent{
		SubscriptionID:  original.SubscriptionID,
		FromTier:        original.ToTier,
		ToTier:          original.FromTier,
		PeriodStart:     original.PeriodStart,
		PeriodEnd:       original.PeriodEnd,
		ChangeDate:      original.ChangeDate,
		DaysInPeriod:    original.DaysInPeriod,
		DaysRemaining:   original.DaysRemaining,
		UnusedCredit:    original.NewTierCost,
		NewTierCost:     original.UnusedCredit,
		NetCharge:       -original.NetCharge,
		Status:          models.ProrationStatusPending,
		OriginalEventID: &originalID,
	}, nil
}

// ceilDays converts a duration into whole days, rounding up partial days.
func ceilDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}

// roundCents rounds a USD amount half-up to whole cents.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
