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

package secrets

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSecretNotFound is returned when a referenced secret does not exist.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrBackendUnavailable is returned when a backend cannot be used in the current environment.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrInvalidReference is returned for malformed references.
	ErrInvalidReference = errors.New("invalid secret reference")
)

// Provider resolves the key part of a scheme:key reference.
type Provider interface {
	// Scheme returns the reference scheme handled by this provider (e.g. "env").
	Scheme() string

	// Resolve returns the secret value for key.
	Resolve(ctx context.Context, key string) (string, error)
}

// Store is a Provider that can also persist secrets.
type Store interface {
	Provider
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ResolutionError describes a failed resolution without exposing the secret.
type ResolutionError struct {
	// Reference is the reference as written in configuration.
	Reference string

	// Scheme is the provider scheme, empty for syntax errors.
	Scheme string

	// Reason is a short human-readable explanation.
	Reason string

	// Cause is the provider error.
	Cause error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving secret %q: %s", e.Reference, e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}
