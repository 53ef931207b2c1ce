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
	"fmt"
	"regexp"
	"strings"
)

var (
	// ${GRC_API_TOKEN}
	bracedEnvPattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

	// env:GRC_API_TOKEN, keychain:grc-api-token
	schemePattern = regexp.MustCompile(`^([a-z][a-z0-9]*):(.*)$`)
)

// Registry dispatches references to the Provider registered for their
// scheme.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry returns a registry with no providers.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}}
}

// DefaultRegistry returns a registry with the env, file and keychain
// providers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range []Provider{NewEnvProvider(), NewFileProvider(0), NewKeychainProvider()} {
		_ = r.Register(p)
	}
	return r
}

// Register adds provider. Each scheme may be registered once.
func (r *Registry) Register(provider Provider) error {
	scheme := provider.Scheme()
	if _, dup := r.providers[scheme]; dup {
		return fmt.Errorf("secret scheme %q is already registered", scheme)
	}
	r.providers[scheme] = provider
	return nil
}

// Provider returns the provider for scheme, or nil.
func (r *Registry) Provider(scheme string) Provider {
	return r.providers[scheme]
}

// IsReference reports whether value names a secret in a registered scheme.
func (r *Registry) IsReference(value string) bool {
	_, _, ok := r.lookup(value)
	return ok
}

// Resolve returns the secret behind reference. Anything that is not a
// reference to a registered scheme, URLs included, comes back unchanged.
func (r *Registry) Resolve(ctx context.Context, reference string) (string, error) {
	provider, key, ok := r.lookup(reference)
	if !ok {
		return reference, nil
	}

	fail := func(reason string, cause error) error {
		return &ResolutionError{Reference: reference, Scheme: provider.Scheme(), Reason: reason, Cause: cause}
	}
	if strings.TrimSpace(key) == "" {
		return "", fail("empty key", ErrInvalidReference)
	}
	value, err := provider.Resolve(ctx, key)
	if err != nil {
		return "", fail("secret resolution failed", err)
	}
	return value, nil
}

func (r *Registry) lookup(reference string) (Provider, string, bool) {
	scheme, key, ok := splitReference(reference)
	if !ok {
		return nil, "", false
	}
	provider, known := r.providers[scheme]
	return provider, key, known
}

func splitReference(reference string) (scheme, key string, ok bool) {
	if m := bracedEnvPattern.FindStringSubmatch(reference); m != nil {
		return "env", m[1], true
	}
	if m := schemePattern.FindStringSubmatch(reference); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}
