package transport

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"slices"
	"strconv"
	"time"
)

// RetryConfig is the retry policy of a transport. Retries happen here and
// nowhere above: the pager never repeats a page request on its own.
type RetryConfig struct {
	// MaxAttempts counts the first try. 1 disables retries.
	MaxAttempts int

	// The delay before retry n is InitialBackoff * BackoffFactor^(n-1),
	// capped at MaxBackoff. A longer Retry-After replaces it, also capped.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64

	// RetryableErrors lists the HTTP statuses worth repeating. Network
	// failures and timeouts are always retried.
	RetryableErrors []int
}

// DefaultRetryConfig returns three attempts with 1s, 2s backoff.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     3,
		InitialBackoff:  time.Second,
		MaxBackoff:      30 * time.Second,
		BackoffFactor:   2,
		RetryableErrors: []int{408, 429, 500, 502, 503, 504},
	}
}

// Validate reports every unusable setting at once.
func (c *RetryConfig) Validate() error {
	var errs []error
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts))
	}
	if c.InitialBackoff < 0 {
		errs = append(errs, fmt.Errorf("initial_backoff must not be negative, got %v", c.InitialBackoff))
	}
	if c.MaxBackoff < c.InitialBackoff {
		errs = append(errs, fmt.Errorf("max_backoff %v is below initial_backoff %v", c.MaxBackoff, c.InitialBackoff))
	}
	if c.BackoffFactor < 1 {
		errs = append(errs, fmt.Errorf("backoff_factor must be at least 1, got %g", c.BackoffFactor))
	}
	return errors.Join(errs...)
}

// ExecuteFunc makes one attempt.
type ExecuteFunc func(ctx context.Context) (*Response, error)

// Execute calls fn until it succeeds, fails permanently or runs out of
// attempts. A nil config means DefaultRetryConfig. The successful
// response records how many retries it took under MetadataRetryCount.
func Execute(ctx context.Context, config *RetryConfig, fn ExecuteFunc) (*Response, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}

	for attempt := 1; ; attempt++ {
		resp, err := fn(ctx)
		if err == nil {
			if resp.Metadata == nil {
				resp.Metadata = map[string]interface{}{}
			}
			resp.Metadata[MetadataRetryCount] = attempt - 1
			return resp, nil
		}

		retry, hint := config.shouldRetry(err)
		if !retry || attempt >= config.MaxAttempts {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, cancelledError("request cancelled before retry", ctx.Err())
		}

		timer := time.NewTimer(config.backoff(attempt, hint))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, cancelledError("request cancelled during retry backoff", ctx.Err())
		}
	}
}

func cancelledError(msg string, cause error) *TransportError {
	return &TransportError{Type: ErrorTypeCancelled, Message: msg, Cause: cause}
}

// shouldRetry decides whether err is worth another attempt and returns the
// server's Retry-After hint for 429 and 503.
func (c *RetryConfig) shouldRetry(err error) (bool, time.Duration) {
	te, ok := AsTransportError(err)
	switch {
	case !ok || !te.Retryable:
		return false, 0
	case te.StatusCode == 0:
		return true, 0
	case !slices.Contains(c.RetryableErrors, te.StatusCode):
		return false, 0
	case te.StatusCode == http.StatusTooManyRequests, te.StatusCode == http.StatusServiceUnavailable:
		return true, retryAfter(te)
	}
	return true, 0
}

// backoff returns the delay before the retry that follows attempt, plus up
// to 100ms of jitter.
func (c *RetryConfig) backoff(attempt int, hint time.Duration) time.Duration {
	exp := float64(c.InitialBackoff) * math.Pow(c.BackoffFactor, float64(attempt-1))
	delay := time.Duration(math.Min(exp, float64(c.MaxBackoff)))
	if hint > delay {
		delay = min(hint, c.MaxBackoff)
	}
	return delay + time.Duration(rand.Int64N(101))*time.Millisecond
}

// retryAfter parses the Retry-After header kept on te, in either
// delta-seconds or HTTP-date form. Unparseable or past values yield 0.
func retryAfter(te *TransportError) time.Duration {
	raw, _ := te.Metadata[MetadataRetryAfter].(string)
	if raw == "" {
		return 0
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		return max(time.Until(at), 0)
	}
	return 0
}
