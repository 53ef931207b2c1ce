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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg-test/grc", dir)

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/tester")
	dir, err = ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/.config/grc", dir)

	path, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/.config/grc/config.yaml", path)
}

func TestWriteAndLoadFile(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	cfg.BaseURL = "https://acme.grc.example.com/api/v1"
	cfg.Auth.Token = "keychain:api-token"
	cfg.PageSize = 40

	path, err := Write(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "grc", "config.yaml"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, cfg.BaseURL, loaded.BaseURL)
	assert.Equal(t, "keychain:api-token", loaded.Auth.Token)
	assert.Equal(t, 40, loaded.PageSize)
	assert.Equal(t, cfg.Timeout, loaded.Timeout)
}

func TestLoadFile_Missing(t *testing.T) {
	isolate(t)

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, Default().PageSize, cfg.PageSize)
	assert.Empty(t, cfg.BaseURL)
}
