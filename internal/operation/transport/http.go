package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	pkgerrors "github.com/tombee/grcconnector/pkg/errors"
	"github.com/tombee/grcconnector/pkg/httpclient"
)

// Error bodies longer than this are kept in Metadata but left out of
// TransportError.Message.
const maxErrorMessageBody = 500

// HTTPTransportConfig configures an HTTPTransport.
type HTTPTransportConfig struct {
	// BaseURL is prepended to relative request URLs. Required.
	BaseURL string

	// Timeout bounds each attempt. Zero means the httpclient default.
	Timeout time.Duration

	// Headers are sent with every request; per-request headers win.
	Headers map[string]string

	Auth        *AuthConfig
	UserAgent   string
	TLSInsecure bool

	// RetryConfig nil means DefaultRetryConfig.
	RetryConfig *RetryConfig

	// Client replaces the client New would build from the fields above.
	Client *http.Client
	Logger *slog.Logger
}

// Validate reports every unusable setting at once.
func (c *HTTPTransportConfig) Validate() error {
	var errs []error
	switch {
	case c.BaseURL == "":
		errs = append(errs, &pkgerrors.ConfigError{Key: "base_url", Reason: "is required"})
	default:
		if err := validateAbsoluteURL(c.BaseURL); err != nil {
			errs = append(errs, &pkgerrors.ConfigError{Key: "base_url", Reason: err.Error(), Cause: err})
		}
	}
	if c.Timeout < 0 {
		errs = append(errs, &pkgerrors.ConfigError{Key: "timeout", Reason: "must not be negative"})
	}
	if c.Auth != nil {
		errs = append(errs, c.Auth.Validate())
	}
	if c.RetryConfig != nil {
		if err := c.RetryConfig.Validate(); err != nil {
			errs = append(errs, &pkgerrors.ConfigError{Key: "retry", Reason: err.Error(), Cause: err})
		}
	}
	return errors.Join(errs...)
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	switch {
	case err != nil:
		return err
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	case u.Host == "":
		return errors.New("host is required")
	}
	return nil
}

// HTTPTransport sends requests to a JSON HTTP API. Each attempt waits on
// the rate limiter, carries an X-Request-ID and is authorized from the
// configured token source; failed attempts are retried per RetryConfig.
type HTTPTransport struct {
	config  *HTTPTransportConfig
	client  *http.Client
	tokens  oauth2.TokenSource
	limiter RateLimiter
}

// NewHTTPTransport validates config and builds the transport.
func NewHTTPTransport(config *HTTPTransportConfig) (*HTTPTransport, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := config.Client
	if client == nil {
		cc := httpclient.DefaultConfig()
		if config.Timeout > 0 {
			cc.Timeout = config.Timeout
		}
		if config.UserAgent != "" {
			cc.UserAgent = config.UserAgent
		}
		cc.TLSInsecure = config.TLSInsecure
		cc.Logger = config.Logger

		var err error
		if client, err = httpclient.New(cc); err != nil {
			return nil, err
		}
	}

	t := &HTTPTransport{config: config, client: client}
	if config.Auth != nil {
		t.tokens = config.Auth.tokenSource(client)
	}
	return t, nil
}

func (t *HTTPTransport) Name() string { return "http" }

func (t *HTTPTransport) SetRateLimiter(limiter RateLimiter) { t.limiter = limiter }

// Execute sends req, retrying retryable failures.
func (t *HTTPTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, &TransportError{Type: ErrorTypeInvalidReq, Message: "invalid request: " + err.Error(), Cause: err}
	}
	return Execute(ctx, t.config.RetryConfig, func(ctx context.Context) (*Response, error) {
		return t.attempt(ctx, req)
	})
}

func (t *HTTPTransport) attempt(ctx context.Context, req *Request) (*Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, cancelledError("rate limit wait cancelled", err)
		}
	}

	httpReq, err := t.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifyNetworkError(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Type: ErrorTypeConnection, Message: "reading response body: " + err.Error(), Retryable: true, Cause: err}
	}

	metadata := map[string]interface{}{}
	requestID := httpResp.Header.Get(httpclient.RequestIDHeader)
	if requestID == "" {
		requestID = httpReq.Header.Get(httpclient.RequestIDHeader)
	}
	metadata[MetadataRequestID] = requestID

	if httpResp.StatusCode >= http.StatusBadRequest {
		if ra := httpResp.Header.Get("Retry-After"); ra != "" {
			metadata[MetadataRetryAfter] = ra
		}
		metadata[MetadataResponseBody] = body
		return nil, statusError(httpResp.StatusCode, body, requestID, metadata)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		Metadata:   metadata,
	}, nil
}

func validateRequest(req *Request) error {
	if req == nil {
		return errors.New("request is nil")
	}
	switch req.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodHead, http.MethodOptions:
	case "":
		return errors.New("method is required")
	default:
		return fmt.Errorf("invalid HTTP method: %q", req.Method)
	}
	if req.URL == "" {
		return errors.New("URL is required")
	}
	if _, err := url.Parse(req.URL); err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	return nil
}

// resolveURL joins a relative request URL onto the base URL.
func (t *HTTPTransport) resolveURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return strings.TrimRight(t.config.BaseURL, "/") + "/" + strings.TrimLeft(raw, "/")
}

func (t *HTTPTransport) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.resolveURL(req.URL), body)
	if err != nil {
		return nil, &TransportError{Type: ErrorTypeInvalidReq, Message: "building HTTP request: " + err.Error(), Cause: err}
	}

	h := httpReq.Header
	for k, v := range t.config.Headers {
		h.Set(k, v)
	}
	for k, v := range req.Headers {
		h.Set(k, v)
	}
	setDefault(h, httpclient.RequestIDHeader, uuid.NewString())
	setDefault(h, "Accept", "application/json")
	if req.Body != nil {
		setDefault(h, "Content-Type", "application/json")
	}

	if err := t.authorize(httpReq); err != nil {
		return nil, err
	}
	return httpReq, nil
}

func setDefault(h http.Header, key, value string) {
	if h.Get(key) == "" {
		h.Set(key, value)
	}
}

// classifyNetworkError maps a failed client.Do to a TransportError.
func classifyNetworkError(err error) *TransportError {
	if errors.Is(err, context.Canceled) {
		return cancelledError("request cancelled", err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TransportError{Type: ErrorTypeTimeout, Message: "request timeout", Retryable: true, Cause: err}
	}
	return &TransportError{Type: ErrorTypeConnection, Message: "connection error", Retryable: true, Cause: err}
}

// statusClasses maps specific HTTP statuses to an error type and whether
// a retry may succeed. Statuses not listed fall back to server (5xx,
// retryable) or client (other 4xx).
var statusClasses = map[int]struct {
	errType   ErrorType
	retryable bool
}{
	http.StatusUnauthorized:    {ErrorTypeAuth, false},
	http.StatusForbidden:       {ErrorTypeAuth, false},
	http.StatusTooManyRequests: {ErrorTypeRateLimit, true},
	http.StatusRequestTimeout:  {ErrorTypeTimeout, true},
}

func statusError(status int, body []byte, requestID string, metadata map[string]interface{}) *TransportError {
	class, ok := statusClasses[status]
	if !ok {
		class.errType, class.retryable = ErrorTypeClient, false
		if status >= http.StatusInternalServerError {
			class.errType, class.retryable = ErrorTypeServer, true
		}
	}

	message := fmt.Sprintf("HTTP %d", status)
	if len(body) > 0 && len(body) < maxErrorMessageBody {
		message += ": " + strings.TrimSpace(string(body))
	}

	return &TransportError{
		Type:       class.errType,
		StatusCode: status,
		Message:    message,
		RequestID:  requestID,
		Retryable:  class.retryable,
		Metadata:   metadata,
	}
}
