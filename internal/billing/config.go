package billing

import (
	"fmt"
	"time"
)

// Config carries the engine-level defaults injected at construction time.
type Config struct {
	// DefaultMultiplier is the margin applied when no config row matches any
	// cascade level, including the stored default scope.
	DefaultMultiplier float64
	// CreditCentValue is the USD-cent value of one credit ($0.01/credit -> 1.0).
	CreditCentValue float64
	// DefaultMode is the conversion mode used when the caller passes none.
	DefaultMode ConversionMode
	// ProrationGrace is how far outside the billing period a change date may fall
	// before proration is rejected.
	ProrationGrace time.Duration
}

// DefaultConfig returns the stock engine configuration.
func DefaultConfig() Config {
	return Config{
		DefaultMultiplier: 1.0,
		CreditCentValue:   1.0,
		DefaultMode:       ModeSeparate,
		ProrationGrace:    72 * time.Hour,
	}
}

// Validate rejects configurations the calculators cannot run with.
func (c Config) Validate() error {
	if c.DefaultMultiplier <= 0 {
		return fmt.Errorf("%w: default multiplier %v must be > 0", ErrInvalidConfiguration, c.DefaultMultiplier)
	}
	if c.CreditCentValue <= 0 {
		return fmt.Errorf("%w: credit cent value %v must be > 0", ErrInvalidConfiguration, c.CreditCentValue)
	}
	if !c.DefaultMode.Valid() {
		return fmt.Errorf("%w: unknown conversion mode %q", ErrInvalidConfiguration, c.DefaultMode)
	}
	if c.ProrationGrace < 0 {
		return fmt.Errorf("%w: negative proration grace %v", ErrInvalidConfiguration, c.ProrationGrace)
	}
	return nil
}

// marginPercent derives the informational gross-margin percentage from a multiplier.
func marginPercent(multiplier float64) float64 {
	if multiplier <= 0 {
		return 0
	}
	return (1 - 1/multiplier) * 100
}
