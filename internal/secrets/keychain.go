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
	"strings"

	"github.com/zalando/go-keyring"
)

// KeychainService is the service name used for keychain entries.
const KeychainService = "grc-connector"

// KeychainProvider stores secrets in the system keychain.
// Supported platforms:
//   - macOS: Keychain Access
//   - Linux: Secret Service API (GNOME Keyring, KWallet)
//   - Windows: Credential Manager
type KeychainProvider struct {
	service string
}

// NewKeychainProvider creates a keychain provider.
func NewKeychainProvider() *KeychainProvider {
	return &KeychainProvider{service: KeychainService}
}

// Scheme returns "keychain".
func (k *KeychainProvider) Scheme() string {
	return "keychain"
}

// Resolve retrieves a secret from the system keychain.
func (k *KeychainProvider) Resolve(ctx context.Context, key string) (string, error) {
	value, err := keyring.Get(k.service, key)
	if err != nil {
		return "", keychainError(key, err)
	}
	return value, nil
}

// Set stores a secret in the system keychain.
func (k *KeychainProvider) Set(ctx context.Context, key, value string) error {
	if err := keyring.Set(k.service, key, value); err != nil {
		return keychainError(key, err)
	}
	return nil
}

// Delete removes a secret from the system keychain.
func (k *KeychainProvider) Delete(ctx context.Context, key string) error {
	if err := keyring.Delete(k.service, key); err != nil {
		return keychainError(key, err)
	}
	return nil
}

func keychainError(key string, err error) error {
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	if isKeychainUnavailableError(err) {
		return fmt.Errorf("%w: %s", ErrBackendUnavailable, err.Error())
	}
	return fmt.Errorf("keychain error: %w", err)
}

// isKeychainUnavailableError checks if an error indicates the keychain is locked or inaccessible.
func isKeychainUnavailableError(err error) bool {
	errStr := strings.ToLower(err.Error())

	unavailableIndicators := []string{
		"locked",
		"cannot access",
		"permission denied",
		"failed to unlock",
		"user interaction required",
		"secret service",
		"dbus",
		"user canceled",
	}

	for _, indicator := range unavailableIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}
