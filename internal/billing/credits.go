package billing

import (
	"fmt"
	"math"
)

// creditRoundEpsilon absorbs binary float representation error before the ceiling.
// It is far below any representable credit fraction, so the no-under-billing
// guarantee is intact beyond float noise.
const creditRoundEpsilon = 1e-9

// CreditConverter turns USD costs plus a margin multiplier into whole credits under
// a mandatory ceiling rounding policy.
type CreditConverter struct {
	cfg Config
}

// NewCreditConverter constructs a CreditConverter with injected defaults.
func NewCreditConverter(cfg Config) *CreditConverter {
	return &CreditConverter{cfg: cfg}
}

// ConvertPerK converts per-1K-token USD costs into per-1K credit rates, for display
// and pricing-table comparison. EstimatedTotal uses a fixed 1:10 input:output token
// ratio and is never what a real request bills.
func (c *CreditConverter) ConvertPerK(inputCostPerK, outputCostPerK, multiplier float64, mode ConversionMode) (CreditResult, error) {
	if mode == "" {
		mode = c.cfg.DefaultMode
	}
	if multiplier <= 0 {
		return CreditResult{}, fmt.Errorf("%w: multiplier %v must be > 0", ErrInvalidConfiguration, multiplier)
	}

	switch mode {
	case ModeSeparate:
		in := c.toCredits(inputCostPerK, multiplier)
		out := c.toCredits(outputCostPerK, multiplier)
		return CreditResult{
			InputCredits:   in,
			OutputCredits:  out,
			EstimatedTotal: weightedEstimate(in, out),
			Mode:           ModeSeparate,
		}, nil
	case ModeLegacy:
		avg := (inputCostPerK + outputCostPerK) / 2
		credits := c.toCredits(avg, multiplier)
		return CreditResult{
			InputCredits:   credits,
			EstimatedTotal: credits,
			Mode:           ModeLegacy,
		}, nil
	default:
		return CreditResult{}, fmt.Errorf("%w: unknown conversion mode %q", ErrInvalidConfiguration, mode)
	}
}

// ConvertCost converts a measured cost breakdown into the credits actually billed.
// Cached input cost bills on the input side. In legacy mode the whole cost rounds as
// one value, preserving the historical single-rate behavior.
func (c *CreditConverter) ConvertCost(cost CostResult, multiplier float64, mode ConversionMode) (CreditResult, error) {
	if mode == "" {
		mode = c.cfg.DefaultMode
	}
	if multiplier <= 0 {
		return CreditResult{}, fmt.Errorf("%w: multiplier %v must be > 0", ErrInvalidConfiguration, multiplier)
	}

	switch mode {
	case ModeSeparate:
		in := c.toCredits(cost.InputCost+cost.CachedCost, multiplier)
		out := c.toCredits(cost.OutputCost, multiplier)
		return CreditResult{
			InputCredits:   in,
			OutputCredits:  out,
			EstimatedTotal: in + out,
			Mode:           ModeSeparate,
		}, nil
	case ModeLegacy:
		credits := c.toCredits(cost.TotalCost, multiplier)
		return CreditResult{
			InputCredits:   credits,
			EstimatedTotal: credits,
			Mode:           ModeLegacy,
		}, nil
	default:
		return CreditResult{}, fmt.Errorf("%w: unknown conversion mode %q", ErrInvalidConfiguration, mode)
	}
}

// toCredits applies margin, converts USD to cents, and ceils to whole credits.
func (c *CreditConverter) toCredits(costUSD, multiplier float64) int64 {
	cents := costUSD * 100 * multiplier
	if cents <= 0 {
		return 0
	}
	return int64(math.Ceil(cents/c.cfg.CreditCentValue - creditRoundEpsilon))
}

// weightedEstimate is the 1:10 input:output heuristic over per-1K credit rates.
func weightedEstimate(inputCredits, outputCredits int64) int64 {
	weighted := inputCredits + 10*outputCredits
	return (weighted + 10) / 11
}
