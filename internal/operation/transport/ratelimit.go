package transport

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures client-side request throttling.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate (0 disables limiting)
	RequestsPerSecond float64

	// Burst is the maximum number of requests allowed at once (default: 1)
	Burst int
}

// Validate checks if the rate limit configuration is valid.
func (c RateLimitConfig) Validate() error {
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative, got %v", c.RequestsPerSecond)
	}
	if c.Burst < 0 {
		return fmt.Errorf("burst must be non-negative, got %d", c.Burst)
	}
	return nil
}

// TokenBucketLimiter adapts rate.Limiter to the RateLimiter interface.
type TokenBucketLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a token bucket limiter from cfg.
// Returns nil when limiting is disabled.
func NewRateLimiter(cfg RateLimitConfig) *TokenBucketLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucketLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)}
}

// Wait blocks until the limiter allows one request.
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Limit returns the configured requests per second.
func (l *TokenBucketLimiter) Limit() float64 {
	return float64(l.limiter.Limit())
}
