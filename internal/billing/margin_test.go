package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rockyway/rephlo-sites-sub016/internal/models"
)

func marginRow(id uint64, scope models.MarginScope, tier, provider, model *string, multiplier float64) models.MarginConfig {
	return models.MarginConfig{
		ID:            id,
		Scope:         scope,
		Tier:          tier,
		Provider:      provider,
		Model:         model,
		Multiplier:    multiplier,
		EffectiveFrom: time.Now().UTC().Add(-24 * time.Hour),
		IsEnabled:     true,
	}
}

func TestResolveTierScope(t *testing.T) {
	repo := &stubRateRepository{}
	repo.margins = append(repo.margins,
		marginRow(1, models.MarginScopeTier, strPtr("pro"), nil, nil, 1.5),
		marginRow(2, models.MarginScopeDefault, nil, nil, nil, 1.2),
	)

	resolver := NewMarginResolver(repo, DefaultConfig())
	result, errResolve := resolver.Resolve(context.Background(), "pro", "openai", "gpt-4-turbo", time.Now().UTC())
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if result.Scope != models.MarginScopeTier {
		t.Fatalf("scope = %s, want tier", result.Scope)
	}
	if !almostEqual(result.Multiplier, 1.5) {
		t.Fatalf("multiplier = %v, want 1.5", result.Multiplier)
	}
	// 1.5x multiplier is a one-third target margin.
	if result.TargetMarginPercent < 33.33 || result.TargetMarginPercent > 33.34 {
		t.Fatalf("margin percent = %v, want ~33.33", result.TargetMarginPercent)
	}
}

func TestResolveCombinationBeatsEverything(t *testing.T) {
	repo := &stubRateRepository{}
	repo.margins = append(repo.margins,
		marginRow(1, models.MarginScopeTier, strPtr("pro"), nil, nil, 1.5),
		marginRow(2, models.MarginScopeModel, nil, strPtr("openai"), strPtr("gpt-4-turbo"), 1.8),
		marginRow(3, models.MarginScopeCombination, strPtr("pro"), strPtr("openai"), strPtr("gpt-4-turbo"), 1.65),
	)

	resolver := NewMarginResolver(repo, DefaultConfig())
	result, errResolve := resolver.Resolve(context.Background(), "pro", "openai", "gpt-4-turbo", time.Now().UTC())
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if result.Scope != models.MarginScopeCombination {
		t.Fatalf("scope = %s, want combination", result.Scope)
	}
	if !almostEqual(result.Multiplier, 1.65) {
		t.Fatalf("multiplier = %v, want 1.65", result.Multiplier)
	}
	if result.ConfigID == nil || *result.ConfigID != 3 {
		t.Fatalf("config id = %v, want 3", result.ConfigID)
	}
}

func TestResolveModelBeatsProviderAndTier(t *testing.T) {
	repo := &stubRateRepository{}
	repo.margins = append(repo.margins,
		marginRow(1, models.MarginScopeTier, strPtr("pro"), nil, nil, 1.5),
		marginRow(2, models.MarginScopeProvider, nil, strPtr("openai"), nil, 1.4),
		marginRow(3, models.MarginScopeModel, nil, strPtr("openai"), strPtr("gpt-4-turbo"), 1.8),
	)

	resolver := NewMarginResolver(repo, DefaultConfig())
	result, errResolve := resolver.Resolve(context.Background(), "pro", "openai", "gpt-4-turbo", time.Now().UTC())
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if result.Scope != models.MarginScopeModel {
		t.Fatalf("scope = %s, want model", result.Scope)
	}
}

func TestResolveMissingTierDegrades(t *testing.T) {
	repo := &stubRateRepository{}
	repo.margins = append(repo.margins,
		marginRow(1, models.MarginScopeCombination, strPtr("pro"), strPtr("openai"), strPtr("gpt-4"), 2.0),
		marginRow(2, models.MarginScopeProvider, nil, strPtr("openai"), nil, 1.4),
	)

	resolver := NewMarginResolver(repo, DefaultConfig())
	result, errResolve := resolver.Resolve(context.Background(), "", "openai", "gpt-4", time.Now().UTC())
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if result.Scope != models.MarginScopeProvider {
		t.Fatalf("scope = %s, want provider (tier levels skipped)", result.Scope)
	}
}

func TestResolveFallsBackToConfiguredDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultMultiplier = 1.25

	resolver := NewMarginResolver(&stubRateRepository{}, cfg)
	result, errResolve := resolver.Resolve(context.Background(), "free", "nobody", "nothing", time.Now().UTC())
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if result.Scope != models.MarginScopeDefault {
		t.Fatalf("scope = %s, want default", result.Scope)
	}
	if !almostEqual(result.Multiplier, 1.25) {
		t.Fatalf("multiplier = %v, want 1.25", result.Multiplier)
	}
	if result.ConfigID != nil {
		t.Fatalf("config id = %v, want nil for engine default", result.ConfigID)
	}
}

func TestResolveStoredDefaultBeatsEngineDefault(t *testing.T) {
	repo := &stubRateRepository{}
	repo.margins = append(repo.margins, marginRow(9, models.MarginScopeDefault, nil, nil, nil, 1.1))

	resolver := NewMarginResolver(repo, DefaultConfig())
	result, errResolve := resolver.Resolve(context.Background(), "", "", "", time.Now().UTC())
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if result.ConfigID == nil || *result.ConfigID != 9 {
		t.Fatalf("config id = %v, want stored default row 9", result.ConfigID)
	}
}

func TestResolveRejectsNonPositiveMultiplier(t *testing.T) {
	repo := &stubRateRepository{}
	repo.margins = append(repo.margins, marginRow(1, models.MarginScopeTier, strPtr("pro"), nil, nil, 0))

	resolver := NewMarginResolver(repo, DefaultConfig())
	if _, errResolve := resolver.Resolve(context.Background(), "pro", "openai", "gpt-4", time.Now().UTC()); !errors.Is(errResolve, ErrInvalidConfiguration) {
		t.Fatalf("error = %v, want ErrInvalidConfiguration", errResolve)
	}
}

func TestResolveExpiredWindowSkipped(t *testing.T) {
	expired := marginRow(1, models.MarginScopeTier, strPtr("pro"), nil, nil, 3.0)
	from := time.Now().UTC().Add(-48 * time.Hour)
	until := time.Now().UTC().Add(-24 * time.Hour)
	expired.EffectiveFrom = from
	expired.EffectiveUntil = &until

	repo := &stubRateRepository{}
	repo.margins = append(repo.margins, expired)

	resolver := NewMarginResolver(repo, DefaultConfig())
	result, errResolve := resolver.Resolve(context.Background(), "pro", "openai", "gpt-4", time.Now().UTC())
	if errResolve != nil {
		t.Fatalf("resolve: %v", errResolve)
	}
	if result.Scope != models.MarginScopeDefault {
		t.Fatalf("scope = %s, want default after expired window", result.Scope)
	}
}

func TestMarginPercentConsistency(t *testing.T) {
	cases := []struct {
		multiplier float64
		percent    float64
	}{
		{1.0, 0},
		{2.0, 50},
		{4.0, 75},
	}
	for _, tc := range cases {
		if got := marginPercent(tc.multiplier); !almostEqual(got, tc.percent) {
			t.Fatalf("marginPercent(%v) = %v, want %v", tc.multiplier, got, tc.percent)
		}
	}
}
