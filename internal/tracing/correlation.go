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

package tracing

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HTTP headers carrying request IDs.
const (
	// HeaderRequestID is the primary request ID header.
	HeaderRequestID = "X-Request-ID"
	// HeaderCorrelationID is accepted as an alternative on incoming requests.
	HeaderCorrelationID = "X-Correlation-ID"
)

type requestIDKey struct{}

// NewRequestID generates a new request ID.
func NewRequestID() string {
	return uuid.NewString()
}

// ValidRequestID reports whether id is a UUID.
func ValidRequestID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// WithRequestID stores id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDMiddleware assigns every request an ID. A caller-supplied
// X-Request-ID (or X-Correlation-ID) must be a UUID or the request is
// rejected with 400. The ID is stored in the request context and echoed in
// the X-Request-ID response header.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = r.Header.Get(HeaderCorrelationID)
		}

		if id == "" {
			id = NewRequestID()
		} else if !ValidRequestID(id) {
			http.Error(w, "invalid X-Request-ID: must be a UUID", http.StatusBadRequest)
			return
		}

		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}
