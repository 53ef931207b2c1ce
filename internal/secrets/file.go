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
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the default limit on secret file size (64KB).
const MaxFileSize = 64 * 1024

// FileProvider resolves secrets from files, such as mounted container
// secrets.
//
// Reference format:
//   - file:/run/secrets/grc-token
//   - file:~/.config/grc/token
type FileProvider struct {
	maxSize int64
}

// NewFileProvider creates a file provider. maxSize of 0 uses MaxFileSize.
func NewFileProvider(maxSize int64) *FileProvider {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}
	return &FileProvider{maxSize: maxSize}
}

// Scheme returns "file".
func (f *FileProvider) Scheme() string {
	return "file"
}

// Resolve reads the file at path and returns its contents with trailing
// whitespace trimmed. Paths must be absolute or start with ~/.
func (f *FileProvider) Resolve(ctx context.Context, path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: path must be absolute", ErrInvalidReference)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: file does not exist", ErrSecretNotFound)
		}
		return "", fmt.Errorf("opening secret file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("reading secret file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: path is a directory", ErrInvalidReference)
	}
	if info.Size() > f.maxSize {
		return "", fmt.Errorf("secret file exceeds %d bytes", f.maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(file, f.maxSize))
	if err != nil {
		return "", fmt.Errorf("reading secret file: %w", err)
	}

	value := strings.TrimRight(string(data), " \t\r\n")
	if value == "" {
		return "", fmt.Errorf("%w: secret file is empty", ErrSecretNotFound)
	}
	return value, nil
}
