package transport

import (
	"errors"
	"fmt"
)

// ErrorType says which part of the exchange failed.
type ErrorType string

const (
	ErrorTypeConnection  ErrorType = "connection"      // dial, DNS, reset
	ErrorTypeTimeout     ErrorType = "timeout"         // deadline exceeded
	ErrorTypeAuth        ErrorType = "auth"            // 401, 403, token endpoint failure
	ErrorTypeRateLimit   ErrorType = "rate_limit"      // 429
	ErrorTypeServer      ErrorType = "server"          // 5xx
	ErrorTypeClient      ErrorType = "client"          // other 4xx
	ErrorTypeInvalidReq  ErrorType = "invalid_request" // rejected before sending
	ErrorTypeCancelled   ErrorType = "cancelled"       // caller's context ended
	ErrorTypeCircuitOpen ErrorType = "circuit_open"    // breaker refused the call
)

// TransportError is the only error type a Transport returns.
//
// Message never contains credentials. For HTTP status failures the raw
// response body is kept in Metadata and available through Body.
type TransportError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	RequestID  string

	// Retryable is decided when the error is built; retry.go consults it
	// together with RetryConfig.
	Retryable bool

	Cause    error
	Metadata map[string]interface{}
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s error: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Body returns the response body of an HTTP status failure, or nil.
func (e *TransportError) Body() []byte {
	body, _ := e.Metadata[MetadataResponseBody].([]byte)
	return body
}

// AsTransportError finds the *TransportError in err's chain.
func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	ok := errors.As(err, &te)
	return te, ok
}
