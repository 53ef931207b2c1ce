package operation

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tombee/grcconnector/internal/operation/transport"
)

// ErrorType is the caller-facing class of an operation failure. Hosts map
// it to exit codes and HTTP statuses.
type ErrorType string

const (
	ErrorTypeAuth          ErrorType = "auth_error"       // 401, 403
	ErrorTypeNotFound      ErrorType = "not_found"        // 404
	ErrorTypeValidation    ErrorType = "validation_error" // bad inputs, other 4xx
	ErrorTypeRateLimit     ErrorType = "rate_limited"     // 429
	ErrorTypeServer        ErrorType = "server_error"     // 5xx or open circuit
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeConnection    ErrorType = "connection_error"
	ErrorTypeCancelled     ErrorType = "cancelled"
	ErrorTypeTransform     ErrorType = "transform_error" // undecodable response, failed jq
	ErrorTypePathInjection ErrorType = "path_injection"
)

type errorKind struct {
	retryable  bool
	suggestion string
}

var kinds = map[ErrorType]errorKind{
	ErrorTypeAuth:       {false, "Check the API token or OAuth2 client credentials and their permissions"},
	ErrorTypeNotFound:   {false, "Verify the resource exists and the ID is correct"},
	ErrorTypeValidation: {false, "Check request inputs against the operation schema (grc schema <operation>)"},
	ErrorTypeRateLimit:  {true, "Wait for the rate limit window or lower rate_limit.requests_per_second"},
	ErrorTypeServer:     {true, "Retry later or contact the service provider"},
	ErrorTypeTimeout:    {true, "Increase timeout or check service responsiveness"},
	ErrorTypeConnection: {true, "Check network connectivity and the configured base_url"},
}

// Error is a classified operation failure.
type Error struct {
	Type        ErrorType
	Message     string
	StatusCode  int
	SuggestText string

	// RequestID is the API's ID for the failing request, when it sent one.
	RequestID string
	Cause     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	var details []string
	if e.Type != "" {
		details = append(details, string(e.Type))
	}
	if e.StatusCode > 0 {
		details = append(details, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.RequestID != "" {
		details = append(details, "request "+e.RequestID)
	}
	if len(details) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(details, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// IsRetryable reports whether repeating the call later may succeed.
func (e *Error) IsRetryable() bool { return kinds[e.Type].retryable }

func (e *Error) IsUserVisible() bool { return true }
func (e *Error) UserMessage() string { return e.Message }
func (e *Error) Suggestion() string  { return e.SuggestText }

// ClassifyHTTPError maps an HTTP status to an ErrorType. 4xx statuses
// without a dedicated type are validation errors.
func ClassifyHTTPError(status int) ErrorType {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorTypeAuth
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case http.StatusRequestTimeout:
		return ErrorTypeTimeout
	}
	if status >= http.StatusInternalServerError {
		return ErrorTypeServer
	}
	return ErrorTypeValidation
}

// ErrorFromHTTPStatus builds an Error for a failed API response. The body
// is deliberately not part of the message; callers pass the API's own
// error message if they parsed one.
func ErrorFromHTTPStatus(status int, message, requestID string) *Error {
	t := ClassifyHTTPError(status)
	if message == "" {
		message = fmt.Sprintf("%d %s", status, http.StatusText(status))
	}
	return &Error{
		Type:        t,
		StatusCode:  status,
		Message:     message,
		RequestID:   requestID,
		SuggestText: kinds[t].suggestion,
	}
}

var fromTransport = map[transport.ErrorType]ErrorType{
	transport.ErrorTypeAuth:        ErrorTypeAuth,
	transport.ErrorTypeRateLimit:   ErrorTypeRateLimit,
	transport.ErrorTypeServer:      ErrorTypeServer,
	transport.ErrorTypeCircuitOpen: ErrorTypeServer,
	transport.ErrorTypeTimeout:     ErrorTypeTimeout,
	transport.ErrorTypeConnection:  ErrorTypeConnection,
	transport.ErrorTypeCancelled:   ErrorTypeCancelled,
}

// FromTransportError wraps a transport failure in an Error. Anything else
// is returned as is.
func FromTransportError(err error) error {
	te, ok := transport.AsTransportError(err)
	if !ok {
		return err
	}

	t, ok := fromTransport[te.Type]
	switch {
	case te.Type == transport.ErrorTypeClient:
		t = ClassifyHTTPError(te.StatusCode)
	case !ok:
		t = ErrorTypeValidation
	}

	return &Error{
		Type:        t,
		StatusCode:  te.StatusCode,
		Message:     te.Message,
		RequestID:   te.RequestID,
		SuggestText: kinds[t].suggestion,
		Cause:       err,
	}
}

// NewValidationError rejects caller input.
func NewValidationError(message, suggestion string) *Error {
	return &Error{Type: ErrorTypeValidation, Message: message, SuggestText: suggestion}
}

// NewTransformError reports a response that could not be decoded or shaped.
func NewTransformError(what string, cause error) *Error {
	return &Error{
		Type:        ErrorTypeTransform,
		Message:     "response transform failed: " + what,
		SuggestText: "Check that the response matches the expected structure",
		Cause:       cause,
	}
}

// NewPathInjectionError rejects a path parameter that would escape its
// segment. The offending value is not echoed back.
func NewPathInjectionError(param string) *Error {
	return &Error{
		Type:        ErrorTypePathInjection,
		Message:     fmt.Sprintf("path parameter %q contains invalid characters", param),
		SuggestText: "Remove path separators and traversal sequences (../, %2e%2e) from IDs",
	}
}
