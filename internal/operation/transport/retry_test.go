package transport

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func fastRetry() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     3,
		InitialBackoff:  1 * time.Millisecond,
		MaxBackoff:      10 * time.Millisecond,
		BackoffFactor:   2.0,
		RetryableErrors: []int{429, 500, 503},
	}
}

func TestRetryConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *RetryConfig
		wantErr bool
	}{
		{"default config", DefaultRetryConfig(), false},
		{"max_attempts too low", &RetryConfig{MaxAttempts: 0, MaxBackoff: time.Second, BackoffFactor: 2}, true},
		{"negative initial_backoff", &RetryConfig{MaxAttempts: 3, InitialBackoff: -time.Second, MaxBackoff: time.Second, BackoffFactor: 2}, true},
		{"max below initial", &RetryConfig{MaxAttempts: 3, InitialBackoff: 30 * time.Second, MaxBackoff: time.Second, BackoffFactor: 2}, true},
		{"factor below one", &RetryConfig{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 30 * time.Second, BackoffFactor: 0.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryConfig_Backoff(t *testing.T) {
	config := &RetryConfig{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}

	tests := []struct {
		name       string
		attempt    int
		retryAfter time.Duration
		want       time.Duration
	}{
		{"first retry", 1, 0, 1 * time.Second},
		{"third retry", 3, 0, 4 * time.Second},
		{"capped at max_backoff", 10, 0, 30 * time.Second},
		{"retry-after wins when larger", 1, 5 * time.Second, 5 * time.Second},
		{"calculated wins when larger", 3, 1 * time.Second, 4 * time.Second},
		{"retry-after capped", 1, 60 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay := config.backoff(tt.attempt, tt.retryAfter)
			if delay < tt.want || delay > tt.want+100*time.Millisecond {
				t.Errorf("backoff() = %v, want %v plus at most 100ms jitter", delay, tt.want)
			}
		})
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]interface{}
		want     time.Duration
	}{
		{"no metadata", nil, 0},
		{"seconds", map[string]interface{}{MetadataRetryAfter: "120"}, 120 * time.Second},
		{"malformed", map[string]interface{}{MetadataRetryAfter: "soon"}, 0},
		{"wrong type", map[string]interface{}{MetadataRetryAfter: 12}, 0},
		{"date in the past", map[string]interface{}{MetadataRetryAfter: "Wed, 21 Oct 2015 07:28:00 GMT"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryAfter(&TransportError{Metadata: tt.metadata}); got != tt.want {
				t.Errorf("retryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecute_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	resp, err := Execute(context.Background(), fastRetry(), func(ctx context.Context) (*Response, error) {
		calls++
		if calls < 3 {
			return nil, &TransportError{Type: ErrorTypeServer, StatusCode: http.StatusServiceUnavailable, Retryable: true}
		}
		return &Response{StatusCode: http.StatusOK}, nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("called %d times, want 3", calls)
	}
	if got := resp.Metadata[MetadataRetryCount]; got != 2 {
		t.Errorf("retry_count = %v, want 2", got)
	}
}

func TestExecute_StopsOnNonRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"client error", &TransportError{Type: ErrorTypeClient, StatusCode: 400, Retryable: false}},
		{"status not in list", &TransportError{Type: ErrorTypeServer, StatusCode: 501, Retryable: true}},
		{"plain error", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := Execute(context.Background(), fastRetry(), func(ctx context.Context) (*Response, error) {
				calls++
				return nil, tt.err
			})
			if !errors.Is(err, tt.err) {
				t.Errorf("expected original error, got %v", err)
			}
			if calls != 1 {
				t.Errorf("called %d times, want 1", calls)
			}
		})
	}
}

func TestExecute_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Execute(context.Background(), fastRetry(), func(ctx context.Context) (*Response, error) {
		calls++
		return nil, &TransportError{Type: ErrorTypeConnection, Message: "refused", Retryable: true}
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("called %d times, want 3", calls)
	}
}

func TestExecute_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := &RetryConfig{
		MaxAttempts:     5,
		InitialBackoff:  time.Second,
		MaxBackoff:      time.Second,
		BackoffFactor:   1,
		RetryableErrors: []int{500},
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Execute(ctx, config, func(ctx context.Context) (*Response, error) {
		return nil, &TransportError{Type: ErrorTypeServer, StatusCode: 500, Retryable: true}
	})

	te, ok := AsTransportError(err)
	if !ok || te.Type != ErrorTypeCancelled {
		t.Fatalf("expected cancelled transport error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("cancelled error should wrap context.Canceled")
	}
}
