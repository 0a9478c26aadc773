package venue

import (
	"context"
	"sync"

	"github.com/il101/breakout-engine/internal/errs"
	"golang.org/x/time/rate"
)

// RateLimiter is a per-endpoint token bucket. Exceeding the bucket queues
// the caller (blocks) rather than failing, unless the caller opts out via
// TryAcquire, in which case exhaustion surfaces errs.ErrRateLimitExceeded.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	perSec    rate.Limit
	burst     int
}

// NewRateLimiter builds a limiter family sized from venue-published
// limits: perSec tokens refill per second, burst is the bucket size.
func NewRateLimiter(perSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		perSec:   rate.Limit(perSec),
		burst:    burst,
	}
}

func (rl *RateLimiter) limiterFor(endpoint string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.limiters[endpoint]
	if !ok {
		l = rate.NewLimiter(rl.perSec, rl.burst)
		rl.limiters[endpoint] = l
	}
	return l
}

// Wait queues the caller until a token for endpoint is available, or
// returns early if ctx is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context, endpoint string) error {
	return rl.limiterFor(endpoint).Wait(ctx)
}

// TryAcquire takes a token immediately or returns
// errs.ErrRateLimitExceeded without blocking.
func (rl *RateLimiter) TryAcquire(endpoint string) error {
	if !rl.limiterFor(endpoint).Allow() {
		return errs.ErrRateLimitExceeded
	}
	return nil
}
