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
	"os"
)

// EnvProvider resolves secrets from environment variables.
//
// Reference format:
//   - env:GRC_API_TOKEN
//   - ${GRC_API_TOKEN}
//
// The zero value reads the process environment.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvProvider creates a new environment variable secret provider.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

// Scheme returns "env".
func (e *EnvProvider) Scheme() string {
	return "env"
}

// Resolve returns the value of the named environment variable. Unset and
// empty variables are both reported as not found.
func (e *EnvProvider) Resolve(ctx context.Context, name string) (string, error) {
	lookup := e.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	value, ok := lookup(name)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrSecretNotFound, name)
	}
	return value, nil
}
