// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tombee/grcconnector/internal/operation"
	pkgerrors "github.com/tombee/grcconnector/pkg/errors"
)

// ErrorBody is the JSON body of an error response.
type ErrorBody struct {
	Error      string `json:"error"`
	Type       string `json:"type,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", slog.Any("error", err))
	}
}

// WriteError writes err as a JSON error response, choosing the status code
// from the operation error type.
func WriteError(w http.ResponseWriter, err error) {
	body := ErrorBody{Error: err.Error()}
	status := http.StatusInternalServerError

	var opErr *operation.Error
	if errors.As(err, &opErr) {
		body.Type = string(opErr.Type)
		body.Suggestion = opErr.SuggestText
		body.RequestID = opErr.RequestID
		status = statusFor(opErr)
	} else {
		switch {
		case pkgerrors.IsTimeout(err):
			body.Type, status = string(operation.ErrorTypeTimeout), http.StatusGatewayTimeout
		case pkgerrors.IsValidation(err), pkgerrors.IsNotFound(err):
			body.Type, status = string(operation.ErrorTypeValidation), http.StatusBadRequest
		}
		body.Suggestion = pkgerrors.SuggestionFor(err)
	}
	WriteJSON(w, status, body)
}

// statusFor maps an operation error to the status returned to gateway
// clients. Upstream failures surface as 502 so callers can tell them apart
// from gateway faults.
func statusFor(err *operation.Error) int {
	switch err.Type {
	case operation.ErrorTypeValidation, operation.ErrorTypePathInjection:
		return http.StatusBadRequest
	case operation.ErrorTypeNotFound:
		return http.StatusNotFound
	case operation.ErrorTypeAuth:
		return http.StatusBadGateway
	case operation.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case operation.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case operation.ErrorTypeCancelled:
		return 499
	case operation.ErrorTypeServer, operation.ErrorTypeConnection, operation.ErrorTypeTransform:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
