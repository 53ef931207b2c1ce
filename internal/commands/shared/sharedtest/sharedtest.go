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

// Package sharedtest points the grc commands at a test configuration.
package sharedtest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/tombee/grcconnector/internal/commands/shared"
)

var envKeys = []string{
	"GRC_BASE_URL", "GRC_API_TOKEN", "GRC_CLIENT_ID", "GRC_CLIENT_SECRET", "GRC_TOKEN_URL",
	"GRC_AUTH_TYPE", "GRC_PAGE_SIZE", "GRC_TIMEOUT", "GRC_RATE_LIMIT", "GRC_TRACING_EXPORTER",
	"GRC_TRACING_ENDPOINT", "GRC_LISTEN_ADDR", "GRC_DEBUG", "GRC_LOG_LEVEL", "LOG_LEVEL", "LOG_FORMAT",
}

// Isolate clears the connector environment, moves the test into an empty
// directory and points XDG_CONFIG_HOME at it. It returns the directory.
func Isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Chdir(dir)

	shared.SetConfigPathForTest("")
	shared.SetJSONForTest(false)
	t.Cleanup(func() {
		shared.SetConfigPathForTest("")
		shared.SetJSONForTest(false)
	})
	return dir
}

// Configure isolates the test and writes a config file for the API at
// baseURL, selected through --config. Extra YAML is appended verbatim.
func Configure(t *testing.T, baseURL, token, extra string) string {
	t.Helper()
	dir := Isolate(t)

	path := filepath.Join(dir, "grc.yaml")
	content := fmt.Sprintf("base_url: %s\nauth:\n  token: %s\nretry:\n  max_attempts: 1\nlog:\n  level: error\n%s", baseURL, token, extra)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	shared.SetConfigPathForTest(path)
	return path
}
