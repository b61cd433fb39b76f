package arr

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBackoff is used when a 429 response carries no usable Retry-After.
const DefaultBackoff = 5 * time.Second

// ErrRateLimited is returned when the instance asked for a backoff longer
// than the limiter is allowed to wait.
var ErrRateLimited = errors.New("rate limited by instance")

// RateLimiter paces requests to the instance.
// It uses a token bucket with a backoff window opened by 429 responses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	maxWait time.Duration
}

// NewRateLimiter creates a limiter allowing rps sustained requests with the
// given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// WithMaxWait caps how long Wait may block. Zero means no cap.
func (r *RateLimiter) WithMaxWait(d time.Duration) *RateLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxWait = d
	return r
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by RecordRateLimited. A backoff
// longer than the max wait fails immediately with ErrRateLimited.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt, maxWait := r.retryAt, r.maxWait
	r.mu.Unlock()

	if maxWait > 0 {
		if backoff := time.Until(retryAt); backoff > maxWait {
			return fmt.Errorf("%w: retry in %s", ErrRateLimited, backoff.Round(time.Second))
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxWait)
		defer cancel()
	}

	if delay := time.Until(retryAt); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimited opens a backoff window from a Retry-After header value
// (seconds). Invalid or missing values use DefaultBackoff.
func (r *RateLimiter) RecordRateLimited(retryAfter string) {
	backoff := DefaultBackoff
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
		backoff = time.Duration(secs) * time.Second
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAt = time.Now().Add(backoff)
}

// Allow reports whether a request can be made immediately.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return r.limiter.Allow()
}
