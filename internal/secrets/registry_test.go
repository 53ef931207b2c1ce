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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestRegistry_Resolve(t *testing.T) {
	keyring.MockInit()
	t.Setenv("GRC_TEST_TOKEN", "env-token")

	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	if err := os.WriteFile(tokenFile, []byte("file-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	kc := NewKeychainProvider()
	if err := kc.Set(ctx, "grc-api-token", "keychain-token"); err != nil {
		t.Fatal(err)
	}

	reg := DefaultRegistry()
	tests := []struct {
		reference string
		want      string
	}{
		{"", ""},
		{"plain-token", "plain-token"},
		{"${GRC_TEST_TOKEN}", "env-token"},
		{"env:GRC_TEST_TOKEN", "env-token"},
		{"file:" + tokenFile, "file-token"},
		{"keychain:grc-api-token", "keychain-token"},
		{"https://grc.example.com", "https://grc.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.reference, func(t *testing.T) {
			got, err := reg.Resolve(ctx, tt.reference)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegistry_ResolveErrors(t *testing.T) {
	keyring.MockInit()
	reg := DefaultRegistry()
	ctx := context.Background()

	tests := []struct {
		name      string
		reference string
		wantErr   error
	}{
		{"unset env", "env:GRC_DEFINITELY_UNSET_VAR", ErrSecretNotFound},
		{"empty key", "env:", ErrInvalidReference},
		{"relative file", "file:token.txt", ErrInvalidReference},
		{"missing file", "file:/nonexistent/grc/token", ErrSecretNotFound},
		{"missing keychain entry", "keychain:nothing-here", ErrSecretNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Resolve(ctx, tt.reference)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var resErr *ResolutionError
			if !errors.As(err, &resErr) || resErr.Reference != tt.reference {
				t.Errorf("expected ResolutionError for %q, got %v", tt.reference, err)
			}
		})
	}
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(NewEnvProvider()); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(NewEnvProvider()); err == nil {
		t.Error("expected duplicate scheme error")
	}
	if reg.Provider("env") == nil || reg.Provider("vault") != nil {
		t.Error("Provider() lookup mismatch")
	}
	if !reg.IsReference("${X}") || reg.IsReference("keychain:x") || reg.IsReference("plain") {
		t.Error("IsReference() mismatch")
	}
}

func TestFileProvider_Limits(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	big := filepath.Join(dir, "big")
	if err := os.WriteFile(big, []byte(strings.Repeat("x", 100)), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileProvider(10).Resolve(ctx, big); err == nil {
		t.Error("expected size limit error")
	}

	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileProvider(0).Resolve(ctx, empty); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("expected not found for empty file, got %v", err)
	}

	if _, err := NewFileProvider(0).Resolve(ctx, dir); !errors.Is(err, ErrInvalidReference) {
		t.Errorf("expected invalid reference for directory, got %v", err)
	}
}

func TestKeychainProvider_SetDelete(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	kc := NewKeychainProvider()

	if err := kc.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	if got, err := kc.Resolve(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("Resolve() = %q, %v", got, err)
	}
	if err := kc.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if err := kc.Delete(ctx, "k"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("second delete should report not found, got %v", err)
	}

	if !isKeychainUnavailableError(errors.New("The keychain is LOCKED")) {
		t.Error("expected locked keychain to be reported unavailable")
	}
}

func TestEnvProvider_ZeroValue(t *testing.T) {
	t.Setenv("GRC_TEST_ZERO_PROVIDER", "zero-value")
	ctx := context.Background()

	var p EnvProvider
	got, err := p.Resolve(ctx, "GRC_TEST_ZERO_PROVIDER")
	if err != nil || got != "zero-value" {
		t.Fatalf("Resolve() = %q, %v", got, err)
	}
	if _, err := p.Resolve(ctx, "GRC_DEFINITELY_UNSET_VAR"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
