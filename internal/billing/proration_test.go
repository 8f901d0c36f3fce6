package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/rockyway/rephlo-sites-sub016/internal/models"
)

func monthPeriod(t *testing.T) (time.Time, time.Time) {
	t.Helper()
	start := fixedTime(t, "2025-03-01T00:00:00Z")
	return start, start.Add(30 * 24 * time.Hour)
}

func TestProrationUpgradeMidPeriod(t *testing.T) {
	calc := NewProrationCalculator(DefaultConfig())
	start, end := monthPeriod(t)
	changeDate := end.Add(-10 * 24 * time.Hour)

	event, errCalc := calc.Calculate(SubscriptionSnapshot{
		SubscriptionID: 42,
		Tier:           "starter",
		ListPriceUSD:   20,
		PeriodStart:    start,
		PeriodEnd:      end,
	}, TierChange{Tier: "pro", ListPriceUSD: 50}, changeDate)
	if errCalc != nil {
		t.Fatalf("calculate: %v", errCalc)
	}

	if event.DaysInPeriod != 30 {
		t.Fatalf("days in period = %d, want 30", event.DaysInPeriod)
	}
	if event.DaysRemaining != 10 {
		t.Fatalf("days remaining = %d, want 10", event.DaysRemaining)
	}
	if !almostEqual(event.UnusedCredit, 6.67) {
		t.Fatalf("unused credit = %v, want 6.67", event.UnusedCredit)
	}
	if !almostEqual(event.NewTierCost, 16.67) {
		t.Fatalf("new tier cost = %v, want 16.67", event.NewTierCost)
	}
	if !almostEqual(event.NetCharge, 10.00) {
		t.Fatalf("net charge = %v, want 10.00", event.NetCharge)
	}
	if event.Status != models.ProrationStatusPending {
		t.Fatalf("status = %s, want pending", event.Status)
	}
}

func TestProrationDowngradeYieldsCredit(t *testing.T) {
	calc := NewProrationCalculator(DefaultConfig())
	start, end := monthPeriod(t)
	changeDate := start.Add(15 * 24 * time.Hour)

	event, errCalc := calc.Calculate(SubscriptionSnapshot{
		SubscriptionID: 42,
		Tier:           "pro",
		ListPriceUSD:   50,
		PeriodStart:    start,
		PeriodEnd:      end,
	}, TierChange{Tier: "starter", ListPriceUSD: 20}, changeDate)
	if errCalc != nil {
		t.Fatalf("calculate: %v", errCalc)
	}
	if event.NetCharge >= 0 {
		t.Fatalf("net charge = %v, want negative on downgrade", event.NetCharge)
	}
	if !almostEqual(event.NetCharge, event.NewTierCost-event.UnusedCredit) {
		t.Fatalf("identity broken: %v != %v - %v", event.NetCharge, event.NewTierCost, event.UnusedCredit)
	}
}

func TestProrationClampsDaysRemaining(t *testing.T) {
	cfg := DefaultConfig()
	calc := NewProrationCalculator(cfg)
	start, end := monthPeriod(t)

	// Change just inside the grace window after period end: zero days remain.
	after, errAfter := calc.Calculate(SubscriptionSnapshot{
		Tier: "starter", ListPriceUSD: 20, PeriodStart: start, PeriodEnd: end,
	}, TierChange{Tier: "pro", ListPriceUSD: 50}, end.Add(time.Hour))
	if errAfter != nil {
		t.Fatalf("calculate after end: %v", errAfter)
	}
	if after.DaysRemaining != 0 {
		t.Fatalf("days remaining = %d, want 0", after.DaysRemaining)
	}
	if after.NetCharge != 0 {
		t.Fatalf("net charge = %v, want 0 with nothing remaining", after.NetCharge)
	}

	// Change just before period start clamps to the full period.
	before, errBefore := calc.Calculate(SubscriptionSnapshot{
		Tier: "starter", ListPriceUSD: 20, PeriodStart: start, PeriodEnd: end,
	}, TierChange{Tier: "pro", ListPriceUSD: 50}, start.Add(-time.Hour))
	if errBefore != nil {
		t.Fatalf("calculate before start: %v", errBefore)
	}
	if before.DaysRemaining != before.DaysInPeriod {
		t.Fatalf("days remaining = %d, want full period %d", before.DaysRemaining, before.DaysInPeriod)
	}
}

func TestProrationRejectsChangeBeyondGrace(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProrationGrace = 24 * time.Hour
	calc := NewProrationCalculator(cfg)
	start, end := monthPeriod(t)

	if _, errCalc := calc.Calculate(SubscriptionSnapshot{
		Tier: "starter", ListPriceUSD: 20, PeriodStart: start, PeriodEnd: end,
	}, TierChange{Tier: "pro", ListPriceUSD: 50}, end.Add(48*time.Hour)); !errors.Is(errCalc, ErrProrationRange) {
		t.Fatalf("error = %v, want ErrProrationRange", errCalc)
	}
	if _, errCalc := calc.Calculate(SubscriptionSnapshot{
		Tier: "starter", ListPriceUSD: 20, PeriodStart: start, PeriodEnd: end,
	}, TierChange{Tier: "pro", ListPriceUSD: 50}, start.Add(-48*time.Hour)); !errors.Is(errCalc, ErrProrationRange) {
		t.Fatalf("error = %v, want ErrProrationRange", errCalc)
	}
}

func TestProrationMinimumOneDayPeriod(t *testing.T) {
	calc := NewProrationCalculator(DefaultConfig())
	start := fixedTime(t, "2025-03-01T00:00:00Z")
	end := start.Add(6 * time.Hour)

	event, errCalc := calc.Calculate(SubscriptionSnapshot{
		Tier: "starter", ListPriceUSD: 20, PeriodStart: start, PeriodEnd: end,
	}, TierChange{Tier: "pro", ListPriceUSD: 50}, start)
	if errCalc != nil {
		t.Fatalf("calculate: %v", errCalc)
	}
	if event.DaysInPeriod != 1 {
		t.Fatalf("days in period = %d, want minimum 1", event.DaysInPeriod)
	}
	if event.DaysRemaining != 1 {
		t.Fatalf("days remaining = %d, want 1", event.DaysRemaining)
	}
}

func TestInverseSwapsAndNegates(t *testing.T) {
	calc := NewProrationCalculator(DefaultConfig())
	original := models.ProrationEvent{
		ID:             7,
		SubscriptionID: 42,
		FromTier:       "starter",
		ToTier:         "pro",
		DaysInPeriod:   30,
		DaysRemaining:  10,
		UnusedCredit:   6.67,
		NewTierCost:    16.67,
		NetCharge:      10.00,
		Status:         models.ProrationStatusCompleted,
	}

	reversal, errInverse := calc.Inverse(original)
	if errInverse != nil {
		t.Fatalf("inverse: %v", errInverse)
	}
	if reversal.FromTier != "pro" || reversal.ToTier != "starter" {
		t.Fatalf("tiers = %s -> %s, want pro -> starter", reversal.FromTier, reversal.ToTier)
	}
	if !almostEqual(reversal.NetCharge, -10.00) {
		t.Fatalf("net charge = %v, want -10.00", reversal.NetCharge)
	}
	if reversal.OriginalEventID == nil || *reversal.OriginalEventID != 7 {
		t.Fatalf("original event id = %v, want 7", reversal.OriginalEventID)
	}
	if !almostEqual(reversal.NetCharge, reversal.NewTierCost-reversal.UnusedCredit) {
		t.Fatalf("identity broken on reversal")
	}
}

func TestInverseRejectsNonCompleted(t *testing.T) {
	calc := NewProrationCalculator(DefaultConfig())
	for _, status := range []models.ProrationStatus{
		models.ProrationStatusPending,
		models.ProrationStatusReversed,
		models.ProrationStatusFailed,
	} {
		if _, errInverse := calc.Inverse(models.ProrationEvent{ID: 1, Status: status}); !errors.Is(errInverse, ErrReversalConflict) {
			t.Fatalf("status %s: error = %v, want ErrReversalConflict", status, errInverse)
		}
	}
}
