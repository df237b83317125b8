package shopify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// shopLimiter holds a shop's limiter and when it was last used
type shopLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles outbound admin API calls per shop. A nil RateLimiter
// does not throttle.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	mu       sync.Mutex
	limiters map[string]*shopLimiter
	lastGC   time.Time
}

// NewRateLimiter creates a per-shop limiter allowing rps requests per second.
// Returns nil when rps is not positive.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		limiters: make(map[string]*shopLimiter),
		lastGC:   time.Now(),
	}
}

// Wait blocks until shop may issue another call or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context, shop string) error {
	if rl == nil {
		return nil
	}
	return rl.get(shop).Wait(ctx)
}

func (rl *RateLimiter) get(shop string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastGC) > rl.idleTTL {
		for key, entry := range rl.limiters {
			if now.Sub(entry.lastAccess) > rl.idleTTL {
				delete(rl.limiters, key)
			}
		}
		rl.lastGC = now
	}

	entry, ok := rl.limiters[shop]
	if !ok {
		entry = &shopLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[shop] = entry
	}
	entry.lastAccess = now
	return entry.limiter
}
