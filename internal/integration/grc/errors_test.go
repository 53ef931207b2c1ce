package grc

import (
	"errors"
	"strings"
	"testing"

	"github.com/tombee/grcconnector/internal/operation"
	"github.com/tombee/grcconnector/internal/operation/transport"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
		wantType    operation.ErrorType
	}{
		{
			name:   "success",
			status: 200,
			body:   `{"data":{}}`,
		},
		{
			name:        "errors array",
			status:      422,
			body:        `{"errors":[{"code":"invalid","field":"name","message":"can't be blank"}]}`,
			wantMessage: "can't be blank",
			wantCode:    "invalid",
			wantType:    operation.ErrorTypeValidation,
		},
		{
			name:        "message",
			status:      404,
			body:        `{"message":"Risk not found"}`,
			wantMessage: "Risk not found",
			wantType:    operation.ErrorTypeNotFound,
		},
		{
			name:        "error string",
			status:      401,
			body:        `{"error":"invalid token"}`,
			wantMessage: "invalid token",
			wantType:    operation.ErrorTypeAuth,
		},
		{
			name:        "unparseable body",
			status:      502,
			body:        `<html>bad gateway</html>`,
			wantMessage: "Bad gateway",
			wantType:    operation.ErrorTypeServer,
		},
		{
			name:        "empty body",
			status:      429,
			wantMessage: "Rate limit exceeded",
			wantType:    operation.ErrorTypeRateLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseError(&transport.Response{StatusCode: tt.status, Body: []byte(tt.body)})
			if tt.wantType == "" {
				if err != nil {
					t.Fatalf("expected nil, got %v", err)
				}
				return
			}

			var grcErr *GRCError
			if !errors.As(err, &grcErr) {
				t.Fatalf("expected *GRCError, got %T", err)
			}
			if grcErr.Message != tt.wantMessage || grcErr.Code != tt.wantCode {
				t.Errorf("got message %q code %q", grcErr.Message, grcErr.Code)
			}

			var opErr *operation.Error
			if !errors.As(err, &opErr) || opErr.Type != tt.wantType {
				t.Errorf("expected operation error type %s, got %v", tt.wantType, opErr)
			}
		})
	}
}

func TestGRCError_Helpers(t *testing.T) {
	e := &GRCError{StatusCode: 404, Message: "Not found"}
	if !e.IsNotFound() || e.IsRateLimited() || e.IsAuthError() {
		t.Error("404 misclassified")
	}
	if !(&GRCError{StatusCode: 403}).IsAuthError() {
		t.Error("403 should be an auth error")
	}

	multi := &GRCError{
		StatusCode: 422,
		Message:    "validation failed",
		Errors:     []FieldError{{Field: "name", Message: "is required"}, {Field: "owner_id", Message: "unknown user"}},
	}
	if !strings.Contains(multi.Error(), "name: is required; owner_id: unknown user") {
		t.Errorf("unexpected message: %s", multi.Error())
	}
}

func TestFromTransportError(t *testing.T) {
	statusErr := &transport.TransportError{
		Type:       transport.ErrorTypeClient,
		StatusCode: 404,
		RequestID:  "req-9",
		Metadata:   map[string]interface{}{transport.MetadataResponseBody: []byte(`{"message":"Vendor not found"}`)},
	}
	err := fromTransportError(statusErr)
	var grcErr *GRCError
	if !errors.As(err, &grcErr) || grcErr.Message != "Vendor not found" || grcErr.RequestID != "req-9" {
		t.Fatalf("unexpected conversion: %v", err)
	}

	connErr := &transport.TransportError{Type: transport.ErrorTypeConnection, Message: "dial tcp: refused", Retryable: true}
	var opErr *operation.Error
	if !errors.As(fromTransportError(connErr), &opErr) || opErr.Type != operation.ErrorTypeConnection {
		t.Fatalf("expected connection error, got %v", opErr)
	}
}

func TestParseError_RequestID(t *testing.T) {
	fromMetadata := ParseError(&transport.Response{
		StatusCode: 500,
		Headers:    map[string][]string{"X-Request-Id": {"hdr-1"}},
		Metadata:   map[string]interface{}{transport.MetadataRequestID: "meta-1"},
	})
	fromHeader := ParseError(&transport.Response{
		StatusCode: 500,
		Headers:    map[string][]string{"X-Request-Id": {"hdr-2"}},
	})

	for want, err := range map[string]error{"meta-1": fromMetadata, "hdr-2": fromHeader} {
		var grcErr *GRCError
		if !errors.As(err, &grcErr) {
			t.Fatalf("expected *GRCError, got %T", err)
		}
		if grcErr.RequestID != want {
			t.Errorf("RequestID = %q, want %q", grcErr.RequestID, want)
		}
	}
}
