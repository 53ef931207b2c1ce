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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	appDir   = "grc"
	fileName = "config.yaml"
)

// ConfigDir returns $XDG_CONFIG_HOME/grc, falling back to ~/.config/grc.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locating home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appDir), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

func pathOrDefault(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return ConfigPath()
}

// Write saves cfg as YAML to path, or to ConfigPath when path is empty.
// The directory is created 0700 and the file written 0600 through a
// rename so readers never observe a partial file.
func Write(cfg *Config, path string) (string, error) {
	path, err := pathOrDefault(path)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	staged := path + ".tmp"
	if err := os.WriteFile(staged, data, 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", staged, err)
	}
	if err := os.Rename(staged, path); err != nil {
		_ = os.Remove(staged)
		return "", fmt.Errorf("replacing %s: %w", path, err)
	}
	return path, nil
}

// LoadFile reads the file at path, or ConfigPath when empty, with neither
// the environment applied nor validation run. A missing file yields the
// defaults.
func LoadFile(path string) (*Config, error) {
	path, err := pathOrDefault(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := cfg.loadFromFile(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}
