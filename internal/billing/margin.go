package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rockyway/rephlo-sites-sub016/internal/models"
)

// MarginResolver resolves the applicable margin multiplier through the cascade
// combination > model > provider > tier > default, one repository query per level,
// stopping at the first time-matching row.
type MarginResolver struct {
	repo RateRepository
	cfg  Config
}

// NewMarginResolver constructs a MarginResolver with injected defaults.
func NewMarginResolver(repo RateRepository, cfg Config) *MarginResolver {
	return &MarginResolver{repo: repo, cfg: cfg}
}

// cascadeLevel is one strategy in the ordered cascade.
type cascadeLevel struct {
	scope        models.MarginScope
	requiresTier bool
}

// cascade is the fixed resolution order, most specific first. The default level is
// handled separately so resolution always terminates with a result.
var cascade = []cascadeLevel{
	{scope: models.MarginScopeCombination, requiresTier: true},
	{scope: models.MarginScopeModel},
	{scope: models.MarginScopeProvider},
	{scope: models.MarginScopeTier, requiresTier: true},
}

// Resolve walks the cascade for (tier, provider, model) at the given instant.
// A missing or unknown tier skips the tier-bearing levels and degrades toward the
// default; it never fails. Only repository storage errors are returned.
func (r *MarginResolver) Resolve(ctx context.Context, tier, provider, model string, at time.Time) (MarginResult, error) {
	tier = strings.TrimSpace(tier)
	provider = strings.TrimSpace(provider)
	model = strings.TrimSpace(model)

	for _, level := range cascade {
		if level.requiresTier && tier == "" {
			continue
		}
		row, errQuery := r.repo.MarginConfigAt(ctx, level.scope, tier, provider, model, at)
		if errQuery != nil {
			return MarginResult{}, errQuery
		}
		if row == nil {
			continue
		}
		result, errRow := resultFromConfig(row)
		if errRow != nil {
			return MarginResult{}, errRow
		}
		return result, nil
	}

	row, errDefault := r.repo.MarginConfigAt(ctx, models.MarginScopeDefault, "", "", "", at)
	if errDefault != nil {
		return MarginResult{}, errDefault
	}
	if row != nil {
		result, errRow := resultFromConfig(row)
		if errRow != nil {
			return MarginResult{}, errRow
		}
		return result, nil
	}

	// No stored default either; fall back to the injected engine configuration.
	return MarginResult{
		Multiplier:          r.cfg.DefaultMultiplier,
		TargetMarginPercent: marginPercent(r.cfg.DefaultMultiplier),
		Scope:               models.MarginScopeDefault,
	}, nil
}

// resultFromConfig converts a stored row, deriving the percentage from the
// multiplier rather than trusting the stored informational value.
func resultFromConfig(row *models.MarginConfig) (MarginResult, error) {
	if !row.Scope.Valid() {
		return MarginResult{}, fmt.Errorf("%w: margin config %d has unknown scope %q",
			ErrInvalidConfiguration, row.ID, row.Scope)
	}
	if row.Multiplier <= 0 {
		return MarginResult{}, fmt.Errorf("%w: margin config %d has non-positive multiplier %v",
			ErrInvalidConfiguration, row.ID, row.Multiplier)
	}
	id := row.ID
	return MarginResult{
		Multiplier:          row.Multiplier,
		TargetMarginPercent: marginPercent(row.Multiplier),
		ConfigID:            &id,
		Scope:               row.Scope,
	}, nil
}
