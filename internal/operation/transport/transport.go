// Package transport moves requests between the GRC connector and the API.
//
// Everything protocol-shaped lives here: bearer and OAuth2 credentials,
// retry with backoff, the token bucket, the circuit breaker and the
// classification of failures into TransportError. The connector above only
// deals in operations, inputs and pages. Decorators wrap a Transport and
// can be stacked in any order.
package transport

import (
	"context"
	"net/http"
)

// Transport sends one logical request, retrying as configured, and
// returns the final response. Failures are *TransportError.
type Transport interface {
	Execute(ctx context.Context, req *Request) (*Response, error)

	// Name identifies the outermost layer ("http", "breaker").
	Name() string

	// SetRateLimiter installs a limiter consulted before each attempt,
	// retries included.
	SetRateLimiter(limiter RateLimiter)
}

// RateLimiter gates attempts. Wait returns early with an error when ctx
// ends first.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// Request is a single API call. URL may be relative to the transport's
// base URL.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte

	// Metadata is opaque to the HTTP layer and available to decorators.
	Metadata map[string]interface{}
}

// Response is the last attempt's outcome.
type Response struct {
	StatusCode int
	Headers    map[string][]string
	Body       []byte

	// Metadata carries the Metadata* keys below.
	Metadata map[string]interface{}
}

// Header returns the first value of the named response header.
func (r *Response) Header(name string) string {
	return http.Header(r.Headers).Get(name)
}

// Keys of Response.Metadata.
const (
	MetadataRequestID    = "request_id"
	MetadataRetryCount   = "retry_count"
	MetadataRetryAfter   = "retry_after"
	MetadataResponseBody = "response_body"
)
