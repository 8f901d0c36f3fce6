package billing

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rockyway/rephlo-sites-sub016/internal/models"
)

// stubRateRepository serves fixture rows from memory for calculator tests.
type stubRateRepository struct {
	prices  []models.VendorPrice
	margins []models.MarginConfig
}

func (s *stubRateRepository) CurrentVendorPrice(_ context.Context, provider, model string) (*models.VendorPrice, error) {
	for i := range s.prices {
		p := &s.prices[i]
		if strings.EqualFold(p.Provider, provider) && p.Model == model && p.IsCurrent() {
			return p, nil
		}
	}
	return nil, nil
}

func (s *stubRateRepository) HistoricalVendorPrice(_ context.Context, provider, model string, at time.Time) (*models.VendorPrice, error) {
	for i := range s.prices {
		p := &s.prices[i]
		if strings.EqualFold(p.Provider, provider) && p.Model == model && p.CoversAt(at) {
			return p, nil
		}
	}
	return nil, nil
}

func (s *stubRateRepository) MarginConfigAt(_ context.Context, scope models.MarginScope, tier, provider, model string, at time.Time) (*models.MarginConfig, error) {
	for i := range s.margins {
		m := &s.margins[i]
		if m.Scope != scope || !m.IsEnabled || !m.CoversAt(at) {
			continue
		}
		if !matchField(m.Tier, tier, scope == models.MarginScopeCombination || scope == models.MarginScopeTier) {
			continue
		}
		if !matchField(m.Provider, provider, scope == models.MarginScopeCombination || scope == models.MarginScopeModel || scope == models.MarginScopeProvider) {
			continue
		}
		if !matchField(m.Model, model, scope == models.MarginScopeCombination || scope == models.MarginScopeModel) {
			continue
		}
		return m, nil
	}
	return nil, nil
}

func matchField(stored *string, want string, relevant bool) bool {
	if !relevant {
		return true
	}
	return stored != nil && strings.EqualFold(*stored, want)
}

func currentPrice(provider, model string, inPerK, outPerK float64, cachePerK *float64) models.VendorPrice {
	return models.VendorPrice{
		ID:                 1,
		Provider:           provider,
		Model:              model,
		InputPricePerK:     inPerK,
		OutputPricePerK:    outPerK,
		CacheReadPricePerK: cachePerK,
		EffectiveFrom:      time.Now().UTC().Add(-24 * time.Hour),
		IsActive:           true,
	}
}

func historicalPrice(provider, model string, inPerK, outPerK float64, from, until time.Time) models.VendorPrice {
	return models.VendorPrice{
		ID:              2,
		Provider:        provider,
		Model:           model,
		InputPricePerK:  inPerK,
		OutputPricePerK: outPerK,
		EffectiveFrom:   from,
		EffectiveUntil:  &until,
	}
}

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
