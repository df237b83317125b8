package shopify

import (
	"context"
	"time"

	"archie-core-shopify-app/internal/domain"
	"archie-core-shopify-app/internal/infrastructure/metrics"
	"archie-core-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// KeyValueStore is the cache backend used by CachedBillingChecker
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedBillingChecker remembers positive billing checks per shop for a TTL.
// Only HasPayment is cached: a shop that still has to pay is asked again.
type CachedBillingChecker struct {
	next    ports.BillingChecker
	store   KeyValueStore
	ttl     time.Duration
	metrics metrics.Recorder
	logger  zerolog.Logger
}

// NewCachedBillingChecker wraps next with a cache
func NewCachedBillingChecker(next ports.BillingChecker, store KeyValueStore, ttl time.Duration, recorder metrics.Recorder, logger zerolog.Logger) *CachedBillingChecker {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &CachedBillingChecker{
		next:    next,
		store:   store,
		ttl:     ttl,
		metrics: recorder,
		logger:  logger,
	}
}

// Check answers from the cache when possible and delegates otherwise
func (c *CachedBillingChecker) Check(ctx context.Context, session *domain.Session, config domain.BillingConfig) domain.BillingResult {
	key := billingCacheKey(session.Shop)

	paidCharge, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("shop", session.Shop).Msg("Billing cache lookup failed")
	}
	if ok && paidCharge == config.ChargeName {
		c.metrics.RecordBillingCache(true)
		return domain.HasPayment()
	}
	c.metrics.RecordBillingCache(false)

	result := c.next.Check(ctx, session, config)
	if result.Status == domain.BillingHasPayment {
		if err := c.store.Set(ctx, key, config.ChargeName, c.ttl); err != nil {
			c.logger.Warn().Err(err).Str("shop", session.Shop).Msg("Billing cache write failed")
		}
	}
	return result
}

// Forget drops the cached billing state of a shop
func (c *CachedBillingChecker) Forget(ctx context.Context, shop string) error {
	return c.store.Delete(ctx, billingCacheKey(shop))
}

func billingCacheKey(shop string) string {
	return "billing:" + shop
}

var (
	_ ports.BillingChecker       = (*CachedBillingChecker)(nil)
	_ ports.ShopCacheInvalidator = (*CachedBillingChecker)(nil)
)
