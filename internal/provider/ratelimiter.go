package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum delay between provider calls. Alpha Vantage
// allows 5 calls per minute, so the default spacing is 12 seconds.
type RateLimiter struct {
	mu       sync.Mutex
	minDelay time.Duration
	lastCall time.Time
	now      func() time.Time
}

// NewRateLimiter creates a limiter that spaces calls at least minDelay apart.
func NewRateLimiter(minDelay time.Duration) *RateLimiter {
	return &RateLimiter{minDelay: minDelay, now: time.Now}
}

// Wait blocks until enough time has passed since the previous call, or until
// ctx is cancelled. The first call never waits.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	now := r.now()
	var wait time.Duration
	if !r.lastCall.IsZero() {
		if elapsed := now.Sub(r.lastCall); elapsed < r.minDelay {
			wait = r.minDelay - elapsed
		}
	}
	r.lastCall = now.Add(wait)
	r.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
