package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rockyway/rephlo-sites-sub016/internal/models"
)

// Pricing source labels reported in CostResult.
const (
	// PricingSourceCurrent marks a cost priced from the open-ended current row.
	PricingSourceCurrent = "current"
	// PricingSourceHistorical marks a cost priced from a closed historical window.
	PricingSourceHistorical = "historical"
)

// CostCalculator converts token usage into an unrounded USD cost breakdown.
type CostCalculator struct {
	repo RateRepository
}

// NewCostCalculator constructs a CostCalculator over the given repository.
func NewCostCalculator(repo RateRepository) *CostCalculator {
	return &CostCalculator{repo: repo}
}

// Calculate resolves the applicable vendor price for the event's timestamp and
// returns the USD cost breakdown. Costs stay at full float precision; rounding is
// deferred to credit conversion.
func (c *CostCalculator) Calculate(ctx context.Context, usage UsageEvent, at time.Time) (CostResult, error) {
	if usage.InputTokens < 0 || usage.OutputTokens < 0 || usage.CachedTokens < 0 {
		return CostResult{}, fmt.Errorf("%w: tokens in=%d out=%d cached=%d",
			ErrInvalidUsage, usage.InputTokens, usage.OutputTokens, usage.CachedTokens)
	}

	provider := strings.TrimSpace(usage.Provider)
	model := strings.TrimSpace(usage.Model)

	price, source, errResolve := c.resolvePrice(ctx, provider, model, at)
	if errResolve != nil {
		return CostResult{}, errResolve
	}

	// Upstream usage formats report cached tokens as a subset of input tokens.
	// A cached count above the input count is a caller bug; clamp and proceed so a
	// malformed report still bills rather than dropping the event.
	cached := usage.CachedTokens
	if cached > usage.InputTokens {
		log.WithFields(log.Fields{
			"provider": provider,
			"model":    model,
			"input":    usage.InputTokens,
			"cached":   cached,
		}).Debug("billing: cached tokens exceed input tokens, clamping")
		cached = usage.InputTokens
	}
	regularInput := usage.InputTokens - cached

	inputCost := float64(regularInput) * price.InputPricePerK / 1000
	cachedCost := float64(cached) * price.CacheReadPrice() / 1000
	outputCost := float64(usage.OutputTokens) * price.OutputPricePerK / 1000

	return CostResult{
		InputCost:  inputCost,
		CachedCost: cachedCost,
		OutputCost: outputCost,
		TotalCost:  inputCost + cachedCost + outputCost,
		PriceID:    price.ID,
		Source:     source,
		PricedAt:   price.EffectiveFrom,
	}, nil
}

// resolvePrice prefers the current row, then scans for a covering historical window.
func (c *CostCalculator) resolvePrice(ctx context.Context, provider, model string, at time.Time) (*models.VendorPrice, string, error) {
	current, errCurrent := c.repo.CurrentVendorPrice(ctx, provider, model)
	if errCurrent != nil {
		return nil, "", errCurrent
	}
	if current != nil {
		return current, PricingSourceCurrent, nil
	}

	historical, errHistorical := c.repo.HistoricalVendorPrice(ctx, provider, model, at)
	if errHistorical != nil {
		return nil, "", errHistorical
	}
	if historical != nil {
		return historical, PricingSourceHistorical, nil
	}

	return nil, "", fmt.Errorf("%w: provider=%s model=%s at=%s",
		ErrPricingNotFound, provider, model, at.UTC().Format(time.RFC3339))
}
