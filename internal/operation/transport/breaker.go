package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig configures the circuit breaker placed in front of a transport.
type BreakerConfig struct {
	// Name identifies the breaker in logs
	Name string

	// MaxRequests is the number of trial requests allowed while half-open
	MaxRequests uint32

	// Interval is the cyclic period of the closed state to clear counts
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the breaker (0.6 = 60%)
	FailureThreshold float64

	// MinRequests is the minimum request count before the ratio is evaluated
	MinRequests uint32
}

// DefaultBreakerConfig returns the breaker settings used for the GRC API.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "grc-api",
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// BreakerTransport short-circuits requests while the upstream is failing.
type BreakerTransport struct {
	next    Transport
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerTransport wraps next with a circuit breaker.
func NewBreakerTransport(next Transport, cfg BreakerConfig) *BreakerTransport {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}

	return &BreakerTransport{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// countsAsSuccess treats caller mistakes (4xx, cancellation) as healthy
// upstream responses so they never trip the breaker.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	te, ok := AsTransportError(err)
	if !ok {
		return false
	}
	switch te.Type {
	case ErrorTypeClient, ErrorTypeAuth, ErrorTypeInvalidReq, ErrorTypeCancelled:
		return true
	default:
		return false
	}
}

// Name returns "breaker".
func (b *BreakerTransport) Name() string {
	return "breaker"
}

// SetRateLimiter forwards the limiter to the wrapped transport.
func (b *BreakerTransport) SetRateLimiter(limiter RateLimiter) {
	b.next.SetRateLimiter(limiter)
}

// State returns the breaker state ("closed", "half-open", "open").
func (b *BreakerTransport) State() string {
	return b.breaker.State().String()
}

// Execute runs the request through the breaker.
func (b *BreakerTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.Execute(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &TransportError{
				Type:      ErrorTypeCircuitOpen,
				Message:   "circuit breaker is open; upstream is failing",
				Retryable: false,
				Cause:     err,
			}
		}
		return nil, err
	}
	return result.(*Response), nil
}
