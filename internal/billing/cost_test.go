package billing

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fixedTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, errParse := time.Parse(time.RFC3339, value)
	if errParse != nil {
		t.Fatalf("parse time %s: %v", value, errParse)
	}
	return parsed
}

func TestCalculatePlainUsage(t *testing.T) {
	repo := &stubRateRepository{}
	repo.prices = append(repo.prices, currentPrice("openai", "gpt-4", 0.005, 0.015, nil))

	calc := NewCostCalculator(repo)
	cost, errCalc := calc.Calculate(context.Background(), UsageEvent{
		Provider:     "openai",
		Model:        "gpt-4",
		InputTokens:  500,
		OutputTokens: 1500,
	}, time.Now().UTC())
	if errCalc != nil {
		t.Fatalf("calculate: %v", errCalc)
	}

	if !almostEqual(cost.InputCost, 0.0025) {
		t.Fatalf("input cost = %v, want 0.0025", cost.InputCost)
	}
	if !almostEqual(cost.OutputCost, 0.0225) {
		t.Fatalf("output cost = %v, want 0.0225", cost.OutputCost)
	}
	if !almostEqual(cost.TotalCost, 0.025) {
		t.Fatalf("total cost = %v, want 0.025", cost.TotalCost)
	}
	if cost.Source != PricingSourceCurrent {
		t.Fatalf("source = %s, want current", cost.Source)
	}
}

func TestCalculateCachedInput(t *testing.T) {
	repo := &stubRateRepository{}
	repo.prices = append(repo.prices, currentPrice("anthropic", "claude-3", 0.003, 0.015, floatPtr(0.0003)))

	calc := NewCostCalculator(repo)
	cost, errCalc := calc.Calculate(context.Background(), UsageEvent{
		Provider:     "anthropic",
		Model:        "claude-3",
		InputTokens:  500,
		OutputTokens: 1500,
		CachedTokens: 200,
	}, time.Now().UTC())
	if errCalc != nil {
		t.Fatalf("calculate: %v", errCalc)
	}

	if !almostEqual(cost.InputCost, 0.0009) {
		t.Fatalf("input cost = %v, want 0.0009", cost.InputCost)
	}
	if !almostEqual(cost.CachedCost, 0.00006) {
		t.Fatalf("cached cost = %v, want 0.00006", cost.CachedCost)
	}
	if !almostEqual(cost.OutputCost, 0.0225) {
		t.Fatalf("output cost = %v, want 0.0225", cost.OutputCost)
	}
	if !almostEqual(cost.TotalCost, 0.02316) {
		t.Fatalf("total cost = %v, want 0.02316", cost.TotalCost)
	}
}

func TestCalculateCacheReadDefaultsToInputPrice(t *testing.T) {
	repo := &stubRateRepository{}
	repo.prices = append(repo.prices, currentPrice("openai", "gpt-4", 0.005, 0.015, nil))

	calc := NewCostCalculator(repo)
	cost, errCalc := calc.Calculate(context.Background(), UsageEvent{
		Provider:     "openai",
		Model:        "gpt-4",
		InputTokens:  1000,
		CachedTokens: 1000,
	}, time.Now().UTC())
	if errCalc != nil {
		t.Fatalf("calculate: %v", errCalc)
	}
	if !almostEqual(cost.CachedCost, 0.005) {
		t.Fatalf("cached cost = %v, want input-priced 0.005", cost.CachedCost)
	}
	if !almostEqual(cost.InputCost, 0) {
		t.Fatalf("input cost = %v, want 0", cost.InputCost)
	}
}

func TestCalculateClampsCachedAboveInput(t *testing.T) {
	repo := &stubRateRepository{}
	repo.prices = append(repo.prices, currentPrice("openai", "gpt-4", 0.005, 0.015, floatPtr(0.001)))

	calc := NewCostCalculator(repo)
	cost, errCalc := calc.Calculate(context.Background(), UsageEvent{
		Provider:     "openai",
		Model:        "gpt-4",
		InputTokens:  100,
		CachedTokens: 500,
	}, time.Now().UTC())
	if errCalc != nil {
		t.Fatalf("calculate: %v", errCalc)
	}
	// Clamped to 100 cached, 0 regular.
	if !almostEqual(cost.InputCost, 0) {
		t.Fatalf("input cost = %v, want 0 after clamp", cost.InputCost)
	}
	if !almostEqual(cost.CachedCost, 0.0001) {
		t.Fatalf("cached cost = %v, want 0.0001", cost.CachedCost)
	}
}

func TestCalculateRejectsNegativeTokens(t *testing.T) {
	repo := &stubRateRepository{}
	repo.prices = append(repo.prices, currentPrice("openai", "gpt-4", 0.005, 0.015, nil))
	calc := NewCostCalculator(repo)

	for _, usage := range []UsageEvent{
		{Provider: "openai", Model: "gpt-4", InputTokens: -1},
		{Provider: "openai", Model: "gpt-4", OutputTokens: -1},
		{Provider: "openai", Model: "gpt-4", CachedTokens: -1},
	} {
		if _, errCalc := calc.Calculate(context.Background(), usage, time.Now().UTC()); !errors.Is(errCalc, ErrInvalidUsage) {
			t.Fatalf("usage %+v: error = %v, want ErrInvalidUsage", usage, errCalc)
		}
	}
}

func TestCalculateZeroTokensZeroCost(t *testing.T) {
	repo := &stubRateRepository{}
	repo.prices = append(repo.prices, currentPrice("openai", "gpt-4", 0.005, 0.015, nil))

	calc := NewCostCalculator(repo)
	cost, errCalc := calc.Calculate(context.Background(), UsageEvent{Provider: "openai", Model: "gpt-4"}, time.Now().UTC())
	if errCalc != nil {
		t.Fatalf("calculate: %v", errCalc)
	}
	if cost.TotalCost != 0 {
		t.Fatalf("total cost = %v, want 0", cost.TotalCost)
	}
}

func TestCalculateFallsBackToHistoricalWindow(t *testing.T) {
	repo := &stubRateRepository{}
	from := fixedTime(t, "2025-01-01T00:00:00Z")
	until := fixedTime(t, "2025-06-30T23:59:59Z")
	repo.prices = append(repo.prices, historicalPrice("openai", "gpt-4", 0.01, 0.03, from, until))

	calc := NewCostCalculator(repo)
	at := fixedTime(t, "2025-03-15T12:00:00Z")
	cost, errCalc := calc.Calculate(context.Background(), UsageEvent{
		Provider:    "openai",
		Model:       "gpt-4",
		InputTokens: 1000,
	}, at)
	if errCalc != nil {
		t.Fatalf("calculate: %v", errCalc)
	}
	if cost.Source != PricingSourceHistorical {
		t.Fatalf("source = %s, want historical", cost.Source)
	}
	if !almostEqual(cost.InputCost, 0.01) {
		t.Fatalf("input cost = %v, want 0.01", cost.InputCost)
	}

	// Outside the window there is nothing to price with.
	outside := fixedTime(t, "2025-08-01T00:00:00Z")
	if _, errOutside := calc.Calculate(context.Background(), UsageEvent{
		Provider:    "openai",
		Model:       "gpt-4",
		InputTokens: 1,
	}, outside); !errors.Is(errOutside, ErrPricingNotFound) {
		t.Fatalf("error = %v, want ErrPricingNotFound", errOutside)
	}
}

func TestCalculateUnknownModelPricingNotFound(t *testing.T) {
	calc := NewCostCalculator(&stubRateRepository{})
	if _, errCalc := calc.Calculate(context.Background(), UsageEvent{
		Provider:    "openai",
		Model:       "no-such-model",
		InputTokens: 1,
	}, time.Now().UTC()); !errors.Is(errCalc, ErrPricingNotFound) {
		t.Fatalf("error = %v, want ErrPricingNotFound", errCalc)
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	repo := &stubRateRepository{}
	repo.prices = append(repo.prices, currentPrice("openai", "gpt-4", 0.0037, 0.0153, floatPtr(0.00037)))

	calc := NewCostCalculator(repo)
	usage := UsageEvent{Provider: "openai", Model: "gpt-4", InputTokens: 1234, OutputTokens: 5678, CachedTokens: 234}
	at := fixedTime(t, "2025-05-01T00:00:00Z")

	first, errFirst := calc.Calculate(context.Background(), usage, at)
	if errFirst != nil {
		t.Fatalf("calculate: %v", errFirst)
	}
	for i := 0; i < 10; i++ {
		again, errAgain := calc.Calculate(context.Background(), usage, at)
		if errAgain != nil {
			t.Fatalf("calculate repeat: %v", errAgain)
		}
		if again != first {
			t.Fatalf("repeat %d differs: %+v vs %+v", i, again, first)
		}
	}
}
