package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rockyway/rephlo-sites-sub016/internal/models"
)

// calculatorSet bundles one configuration with the calculators built from it. The
// set is immutable once built; Reload swaps the whole bundle so in-flight requests
// never see a half-applied configuration.
type calculatorSet struct {
	cfg       Config
	costs     *CostCalculator
	margins   *MarginResolver
	credits   *CreditConverter
	proration *ProrationCalculator
}

// Engine is the facade the billing/ledger layer calls. The calculators behind it are
// pure; the engine adds persistence for proration lifecycle records and usage
// charges. A nil db disables the persisting operations.
type Engine struct {
	db   *gorm.DB
	repo RateRepository

	mu  sync.RWMutex
	set *calculatorSet
}

// NewEngine wires the calculators over a repository and optional database handle.
func NewEngine(repo RateRepository, db *gorm.DB, cfg Config) (*Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("%w: nil rate repository", ErrInvalidConfiguration)
	}
	set, errBuild := buildCalculatorSet(repo, cfg)
	if errBuild != nil {
		return nil, errBuild
	}
	return &Engine{db: db, repo: repo, set: set}, nil
}

// buildCalculatorSet validates the configuration and constructs the calculators.
func buildCalculatorSet(repo RateRepository, cfg Config) (*calculatorSet, error) {
	if errValidate := cfg.Validate(); errValidate != nil {
		return nil, errValidate
	}
	return &calculatorSet{
		cfg:       cfg,
		costs:     NewCostCalculator(repo),
		margins:   NewMarginResolver(repo, cfg),
		credits:   NewCreditConverter(cfg),
		proration: NewProrationCalculator(cfg),
	}, nil
}

// Reload rebuilds the calculators from a new configuration, typically after a
// settings refresh. An invalid configuration is rejected and the running one stays.
func (e *Engine) Reload(cfg Config) error {
	set, errBuild := buildCalculatorSet(e.repo, cfg)
	if errBuild != nil {
		return errBuild
	}
	e.mu.Lock()
	e.set = set
	e.mu.Unlock()
	log.WithFields(log.Fields{
		"default_multiplier": cfg.DefaultMultiplier,
		"credit_cent_value":  cfg.CreditCentValue,
		"conversion_mode":    cfg.DefaultMode,
	}).Info("billing: engine configuration reloaded")
	return nil
}

// load returns the current calculator bundle.
func (e *Engine) load() *calculatorSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.set
}

// Config returns the engine configuration currently in effect.
func (e *Engine) Config() Config { return e.load().cfg }

// CalculateCost converts a usage event into a USD cost breakdown priced at the
// event's timestamp (now when zero).
func (e *Engine) CalculateCost(ctx context.Context, usage UsageEvent) (CostResult, error) {
	at := usage.RequestedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return e.load().costs.Calculate(ctx, usage, at)
}

// ResolveMargin resolves the margin multiplier for the given context and instant.
func (e *Engine) ResolveMargin(ctx context.Context, tier, provider, model string, at time.Time) (MarginResult, error) {
	return e.load().margins.Resolve(ctx, tier, provider, model, at)
}

// ConvertToCredits converts a measured cost breakdown into billed credits.
func (e *Engine) ConvertToCredits(cost CostResult, margin MarginResult, mode ConversionMode) (CreditResult, error) {
	return e.load().credits.ConvertCost(cost, margin.Multiplier, mode)
}

// ConvertRateToCredits converts per-1K USD rates into a per-1K credit rate for
// display and comparison surfaces.
func (e *Engine) ConvertRateToCredits(inputCostPerK, outputCostPerK, multiplier float64, mode ConversionMode) (CreditResult, error) {
	return e.load().credits.ConvertPerK(inputCostPerK, outputCostPerK, multiplier, mode)
}

// ChargeUsage runs the full pipeline for one usage event and persists the outcome
// as a UsageCharge row. The unique index on the event ID makes the operation
// idempotent: a duplicate report returns the previously stored charge.
func (e *Engine) ChargeUsage(ctx context.Context, usage UsageEvent, mode ConversionMode) (*models.UsageCharge, error) {
	if e.db == nil {
		return nil, fmt.Errorf("%w: engine has no database, usage charging disabled", ErrInvalidConfiguration)
	}
	eventID := strings.TrimSpace(usage.EventID)
	if eventID == "" {
		return nil, fmt.Errorf("%w: empty usage event id", ErrInvalidUsage)
	}

	cost, errCost := e.CalculateCost(ctx, usage)
	if errCost != nil {
		return nil, errCost
	}
	at := usage.RequestedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	margin, errMargin := e.ResolveMargin(ctx, usage.Tier, usage.Provider, usage.Model, at)
	if errMargin != nil {
		return nil, errMargin
	}
	creditsRes, errConvert := e.ConvertToCredits(cost, margin, mode)
	if errConvert != nil {
		return nil, errConvert
	}

	row := models.UsageCharge{
		EventID:        eventID,
		Provider:       strings.TrimSpace(usage.Provider),
		Model:          strings.TrimSpace(usage.Model),
		Tier:           strings.TrimSpace(usage.Tier),
		RequestedAt:    at,
		InputTokens:    usage.InputTokens,
		OutputTokens:   usage.OutputTokens,
		CachedTokens:   usage.CachedTokens,
		InputCost:      cost.InputCost,
		CachedCost:     cost.CachedCost,
		OutputCost:     cost.OutputCost,
		TotalCost:      cost.TotalCost,
		PriceID:        cost.PriceID,
		MarginID:       margin.ConfigID,
		Margin:         margin.Multiplier,
		InputCredits:   creditsRes.InputCredits,
		OutputCredits:  creditsRes.OutputCredits,
		TotalCredits:   creditsRes.TotalCredits(),
		ConversionMode: string(creditsRes.Mode),
	}

	errCreate := e.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&row).Error
	if errCreate != nil {
		return nil, errCreate
	}
	if row.ID == 0 {
		// Conflict path: the event was already charged; return the stored row.
		var existing models.UsageCharge
		if errFind := e.db.WithContext(ctx).
			Where("event_id = ?", eventID).
			Take(&existing).Error; errFind != nil {
			return nil, errFind
		}
		log.WithField("event_id", eventID).Debug("billing: duplicate usage event, returning stored charge")
		return &existing, nil
	}
	return &row, nil
}

// CalculateProration computes and persists a pending proration event for the tier
// change. With no database the computed event is returned unpersisted.
func (e *Engine) CalculateProration(ctx context.Context, snap SubscriptionSnapshot, change TierChange, changeDate time.Time) (*models.ProrationEvent, error) {
	event, errCalc := e.load().proration.Calculate(snap, change, changeDate)
	if errCalc != nil {
		return nil, errCalc
	}
	if e.db == nil {
		return &event, nil
	}
	if errCreate := e.db.WithContext(ctx).Create(&event).Error; errCreate != nil {
		return nil, errCreate
	}
	return &event, nil
}

// CompleteProration transitions a pending event to completed once the caller has
// applied it to an invoice.
func (e *Engine) CompleteProration(ctx context.Context, eventID uint64) (*models.ProrationEvent, error) {
	if e.db == nil {
		return nil, fmt.Errorf("%w: engine has no database, proration lifecycle disabled", ErrInvalidConfiguration)
	}
	var event models.ProrationEvent
	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&event, eventID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: id %d", ErrEventNotFound, eventID)
			}
			return errFind
		}
		if event.Status != models.ProrationStatusPending {
			return fmt.Errorf("%w: event %d is %s, only pending events complete",
				ErrReversalConflict, eventID, event.Status)
		}
		event.Status = models.ProrationStatusCompleted
		return tx.Model(&models.ProrationEvent{}).
			Where("id = ?", eventID).
			Update("status", models.ProrationStatusCompleted).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return &event, nil
}

// reversalDetail is the structured context stored on a reversal row.
type reversalDetail struct {
	Reason string `json:"reason"`
}

// ReverseProration creates the linked inverse event and marks the original
// reversed, atomically. Restoring the subscription's prior tier belongs to the same
// caller transaction when the caller runs inside one; on its own the engine keeps
// the two record writes atomic.
func (e *Engine) ReverseProration(ctx context.Context, eventID uint64, reason string) (*models.ProrationEvent, error) {
	if e.db == nil {
		return nil, fmt.Errorf("%w: engine has no database, proration lifecycle disabled", ErrInvalidConfiguration)
	}

	var reversal models.ProrationEvent
	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var original models.ProrationEvent
		if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&original, eventID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: id %d", ErrEventNotFound, eventID)
			}
			return errFind
		}

		inverse, errInverse := e.load().proration.Inverse(original)
		if errInverse != nil {
			return errInverse
		}
		inverse.Status = models.ProrationStatusCompleted
		if detail, errMarshal := json.Marshal(reversalDetail{Reason: strings.TrimSpace(reason)}); errMarshal == nil {
			inverse.Detail = datatypes.JSON(detail)
		}

		if errCreate := tx.Create(&inverse).Error; errCreate != nil {
			return errCreate
		}
		if errUpdate := tx.Model(&models.ProrationEvent{}).
			Where("id = ?", original.ID).
			Update("status", models.ProrationStatusReversed).Error; errUpdate != nil {
			return errUpdate
		}
		reversal = inverse
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	log.WithFields(log.Fields{
		"event_id":    eventID,
		"reversal_id": reversal.ID,
		"net_charge":  reversal.NetCharge,
	}).Info("billing: proration reversed")
	return &reversal, nil
}
