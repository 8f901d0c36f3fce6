package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/rockyway/rephlo-sites-sub016/internal/billing"
	"github.com/rockyway/rephlo-sites-sub016/internal/models"
)

// CachedRateRepository is a read-through cache over a RateRepository. Current-price
// and margin lookups are hot on every metered request and their rows change only
// through the admin workflow, so a short TTL is safe. Historical lookups are rare
// (they only fire when no current row exists) and pass through uncached.
//
// Cache failures degrade to the underlying repository; they never fail a billing
// calculation.
type CachedRateRepository struct {
	inner billing.RateRepository
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedRateRepository wraps inner with a redis read-through cache.
func NewCachedRateRepository(inner billing.RateRepository, rdb *redis.Client, ttl time.Duration) *CachedRateRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedRateRepository{inner: inner, rdb: rdb, ttl: ttl}
}

// CurrentVendorPrice returns the cached current row, filling from the repository.
func (c *CachedRateRepository) CurrentVendorPrice(ctx context.Context, provider, model string) (*models.VendorPrice, error) {
	key := fmt.Sprintf("rates:vendor:current:%s:%s", normalize(provider), model)

	var cached models.VendorPrice
	if hit, errGet := c.lookup(ctx, key, &cached); errGet == nil && hit {
		return &cached, nil
	}

	row, errInner := c.inner.CurrentVendorPrice(ctx, provider, model)
	if errInner != nil {
		return nil, errInner
	}
	if row != nil {
		c.store(ctx, key, row)
	}
	return row, nil
}

// HistoricalVendorPrice passes through to the underlying repository.
func (c *CachedRateRepository) HistoricalVendorPrice(ctx context.Context, provider, model string, at time.Time) (*models.VendorPrice, error) {
	return c.inner.HistoricalVendorPrice(ctx, provider, model, at)
}

// MarginConfigAt returns the cached margin row for the level, filling from the
// repository. The key buckets the timestamp by TTL window so a burst of lookups for
// the same context shares one entry.
func (c *CachedRateRepository) MarginConfigAt(ctx context.Context, scope models.MarginScope, tier, provider, model string, at time.Time) (*models.MarginConfig, error) {
	bucket := at.Truncate(c.ttl).Unix()
	key := fmt.Sprintf("rates:margin:%s:%s:%s:%s:%d", scope, tier, normalize(provider), model, bucket)

	var cached models.MarginConfig
	if hit, errGet := c.lookup(ctx, key, &cached); errGet == nil && hit {
		return &cached, nil
	}

	row, errInner := c.inner.MarginConfigAt(ctx, scope, tier, provider, model, at)
	if errInner != nil {
		return nil, errInner
	}
	if row != nil {
		c.store(ctx, key, row)
	}
	return row, nil
}

// lookup fetches and decodes a cached row. A decode failure counts as a miss.
func (c *CachedRateRepository) lookup(ctx context.Context, key string, out any) (bool, error) {
	if c.rdb == nil {
		return false, nil
	}
	payload, errGet := c.rdb.Get(ctx, key).Bytes()
	if errGet != nil {
		if errGet != redis.Nil {
			log.WithError(errGet).WithField("key", key).Debug("rates: cache read failed")
		}
		return false, errGet
	}
	if errUnmarshal := json.Unmarshal(payload, out); errUnmarshal != nil {
		return false, errUnmarshal
	}
	return true, nil
}

// store writes a row into the cache, best effort.
func (c *CachedRateRepository) store(ctx context.Context, key string, row any) {
	if c.rdb == nil {
		return
	}
	payload, errMarshal := json.Marshal(row)
	if errMarshal != nil {
		return
	}
	if errSet := c.rdb.Set(ctx, key, payload, c.ttl).Err(); errSet != nil {
		log.WithError(errSet).WithField("key", key).Debug("rates: cache write failed")
	}
}
