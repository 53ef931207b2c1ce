package grc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tombee/grcconnector/internal/operation"
	"github.com/tombee/grcconnector/internal/operation/transport"
)

// GRCError represents a GRC API error response.
type GRCError struct {
	StatusCode int
	Code       string
	Message    string
	Errors     []FieldError
	RequestID  string
}

// FieldError is one entry of the API's errors array.
type FieldError struct {
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *GRCError) Error() string {
	msg := fmt.Sprintf("GRC API error: %s (status %d)", e.Message, e.StatusCode)
	if len(e.Errors) > 1 || (len(e.Errors) == 1 && e.Errors[0].Field != "") {
		parts := make([]string, 0, len(e.Errors))
		for _, fe := range e.Errors {
			if fe.Field != "" {
				parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
			} else {
				parts = append(parts, fe.Message)
			}
		}
		msg += " - " + strings.Join(parts, "; ")
	}
	return msg
}

// Unwrap exposes the classified operation error so callers can use
// errors.As with *operation.Error.
func (e *GRCError) Unwrap() error {
	return operation.ErrorFromHTTPStatus(e.StatusCode, e.Message, e.RequestID)
}

// IsNotFound reports whether the API returned 404.
func (e *GRCError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsRateLimited reports whether the API returned 429.
func (e *GRCError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsAuthError reports whether the API rejected the credentials.
func (e *GRCError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// ParseError returns a GRCError for a non-2xx response, or nil.
func ParseError(resp *transport.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	requestID, _ := resp.Metadata[transport.MetadataRequestID].(string)
	if requestID == "" {
		requestID = resp.Header("X-Request-ID")
	}
	return parseErrorBody(resp.StatusCode, resp.Body, requestID)
}

// fromTransportError converts a transport failure into a connector error.
// HTTP status failures carry the response body and become a GRCError.
func fromTransportError(err error) error {
	if te, ok := transport.AsTransportError(err); ok && te.StatusCode > 0 {
		return parseErrorBody(te.StatusCode, te.Body(), te.RequestID)
	}
	return operation.FromTransportError(err)
}

func parseErrorBody(statusCode int, body []byte, requestID string) *GRCError {
	grcErr := &GRCError{
		StatusCode: statusCode,
		RequestID:  requestID,
	}

	if len(body) > 0 {
		var errResp struct {
			Code    string          `json:"code"`
			Message string          `json:"message"`
			Error   json.RawMessage `json:"error"`
			Errors  []FieldError    `json:"errors"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil {
			grcErr.Code = errResp.Code
			grcErr.Message = errResp.Message
			grcErr.Errors = errResp.Errors

			var errString string
			if grcErr.Message == "" && json.Unmarshal(errResp.Error, &errString) == nil {
				grcErr.Message = errString
			}
			if grcErr.Message == "" && len(grcErr.Errors) > 0 {
				grcErr.Message = grcErr.Errors[0].Message
				if grcErr.Code == "" {
					grcErr.Code = grcErr.Errors[0].Code
				}
			}
		}
	}

	if grcErr.Message == "" {
		grcErr.Message = getDefaultMessage(statusCode)
	}
	return grcErr
}

// getDefaultMessage returns a default error message for a status code.
func getDefaultMessage(statusCode int) string {
	switch statusCode {
	case 400:
		return "Bad request"
	case 401:
		return "Unauthorized - check your API token"
	case 403:
		return "Forbidden - the token lacks permission for this resource"
	case 404:
		return "Not found"
	case 422:
		return "Unprocessable entity - validation failed"
	case 429:
		return "Rate limit exceeded"
	case 500:
		return "Internal server error"
	case 502:
		return "Bad gateway"
	case 503:
		return "Service unavailable"
	default:
		return fmt.Sprintf("Request failed with status %d", statusCode)
	}
}
