package oura

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRetryAfter is the pause applied after a 429 without Retry-After.
const DefaultRetryAfter = 60 * time.Second

// RateLimiter throttles API requests with a token bucket and pauses all
// callers after a 429.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing perMinute requests per minute.
// A non-positive budget disables the token bucket.
func NewRateLimiter(perMinute float64) *RateLimiter {
	limit := rate.Inf
	burst := 1
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60)
		burst = max(1, int(math.Ceil(perMinute/60)))
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
}

// SetBudget changes the sustained rate, e.g. after a config reload.
func (r *RateLimiter) SetBudget(perMinute float64) {
	if perMinute <= 0 {
		r.limiter.SetLimit(rate.Inf)
		return
	}
	r.limiter.SetLimit(rate.Limit(perMinute / 60))
	r.limiter.SetBurst(max(1, int(math.Ceil(perMinute/60))))
}

// Wait blocks until a request may be sent. It honours any pause recorded
// by RecordRateLimit before consuming a token.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := retryAt.Sub(r.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimit pauses requests for retryAfter (DefaultRetryAfter when
// non-positive). An earlier pause is never shortened.
func (r *RateLimiter) RecordRateLimit(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if at := r.now().Add(retryAfter); at.After(r.retryAt) {
		r.retryAt = at
	}
}

// RetryAt returns the end of the current pause, if any.
func (r *RateLimiter) RetryAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryAt
}
