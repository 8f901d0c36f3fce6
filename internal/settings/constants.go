package settings

// DB config keys and defaults for billing settings.
const (
	// DefaultMarginMultiplierKey is the DB config key for the fallback multiplier.
	DefaultMarginMultiplierKey = "DEFAULT_MARGIN_MULTIPLIER"
	// CreditCentValueKey is the DB config key for the USD-cent value of one credit.
	CreditCentValueKey = "CREDIT_CENT_VALUE"
	// ConversionModeKey is the DB config key for the default conversion mode.
	ConversionModeKey = "CREDIT_CONVERSION_MODE"
	// ProrationGraceDaysKey is the DB config key for the proration grace window.
	ProrationGraceDaysKey = "PRORATION_GRACE_DAYS"

	// DefaultMarginMultiplier is the fallback margin multiplier.
	DefaultMarginMultiplier = 1.0
	// DefaultCreditCentValue is the fallback credit value ($0.01 per credit).
	DefaultCreditCentValue = 1.0
	// DefaultConversionMode is the fallback conversion mode.
	DefaultConversionMode = "separate"
	// DefaultProrationGraceDays is the fallback grace window in days.
	DefaultProrationGraceDays = 3
)
