package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// lowWatermark is the remaining-call count below which calls wait for the reset
const lowWatermark = 10

// RateLimiter manages GitHub API rate limiting
type RateLimiter interface {
	Wait(ctx context.Context) error
	CheckLimit() (remaining int, resetTime time.Time, err error)
	UpdateLimit(remaining int, resetTime time.Time)
}

// githubRateLimiter implements RateLimiter for GitHub API
type githubRateLimiter struct {
	mu        sync.Mutex
	remaining int
	resetTime time.Time
	spacing   *rate.Limiter
	logger    *slog.Logger
}

// NewRateLimiter creates a new rate limiter. minDelay spaces consecutive calls; zero disables spacing.
func NewRateLimiter(minDelay time.Duration, logger *slog.Logger) RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}
	return &githubRateLimiter{
		remaining: 5000, // GitHub API default limit
		resetTime: time.Now().Add(time.Hour),
		spacing:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

// Wait waits until it's safe to make another API call
func (r *githubRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	remaining, resetTime := r.remaining, r.resetTime
	r.mu.Unlock()

	if remaining <= lowWatermark {
		if waitDuration := time.Until(resetTime); waitDuration > 0 {
			r.logger.Warn("github rate limit low, waiting for reset",
				"remaining", remaining, "wait", waitDuration.Round(time.Second))
			timer := time.NewTimer(waitDuration)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			r.logger.Info("github rate limit reset, continuing")
		}
		r.mu.Lock()
		if r.resetTime.Equal(resetTime) {
			r.remaining = 5000
			r.resetTime = time.Now().Add(time.Hour)
		}
		r.mu.Unlock()
	}

	return r.spacing.Wait(ctx)
}

// CheckLimit returns the current rate limit status
func (r *githubRateLimiter) CheckLimit() (remaining int, resetTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining, r.resetTime, nil
}

// UpdateLimit updates the rate limit from API response headers
func (r *githubRateLimiter) UpdateLimit(remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = remaining
	r.resetTime = resetTime
}
