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
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay is how long the file must stay quiet before a reload.
const DefaultReloadDelay = 250 * time.Millisecond

// reloadOps are the events that can change the file's contents.
const reloadOps = fsnotify.Create | fsnotify.Write | fsnotify.Rename | fsnotify.Remove

// Watcher reloads a config file when it changes on disk and hands the
// result to a callback. Bursts of events (editor saves, Write's
// rename-into-place) collapse into one reload.
type Watcher struct {
	path     string
	delay    time.Duration
	logger   *slog.Logger
	onReload func(*Config, error)
	fsw      *fsnotify.Watcher
}

// NewWatcher watches path, or ConfigPath when empty. onReload receives the
// output of Load for every settled change; a nil Config comes with the
// error that prevented loading.
func NewWatcher(path string, delay time.Duration, logger *slog.Logger, onReload func(*Config, error)) (*Watcher, error) {
	path, err := pathOrDefault(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if delay <= 0 {
		delay = DefaultReloadDelay
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	// The directory, not the file: a rename replaces the inode and would
	// silently end a watch on the file itself.
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		delay:    delay,
		logger:   logger.With(slog.String("component", "config_watcher"), slog.String("path", abs)),
		onReload: onReload,
		fsw:      fsw,
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Run delivers reloads until ctx is cancelled, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || event.Op&reloadOps == 0 {
				continue
			}
			w.logger.Debug("config file changed", slog.String("op", event.Op.String()))
			timer.Reset(w.delay)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", slog.Any("error", err))
		case <-timer.C:
			cfg, err := Load(w.path)
			w.onReload(cfg, err)
		}
	}
}
