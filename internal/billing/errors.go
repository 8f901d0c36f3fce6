package billing

import "errors"

// Engine error taxonomy. Callers classify with errors.Is; repository/storage errors
// pass through unwrapped into these and keep their own identity.
var (
	// ErrPricingNotFound means no current or historical vendor price row matched.
	ErrPricingNotFound = errors.New("billing: pricing not found")
	// ErrInvalidUsage means a usage event carried negative token counts.
	ErrInvalidUsage = errors.New("billing: invalid usage")
	// ErrInvalidConfiguration means a malformed margin scope or conversion mode.
	ErrInvalidConfiguration = errors.New("billing: invalid configuration")
	// ErrProrationRange means the change date fell outside the billing period
	// beyond the configured grace window.
	ErrProrationRange = errors.New("billing: change date outside billing period")
	// ErrReversalConflict means the proration event is not in a reversible state.
	ErrReversalConflict = errors.New("billing: proration event not reversible")
	// ErrEventNotFound means no proration event exists with the given id.
	ErrEventNotFound = errors.New("billing: proration event not found")
)
