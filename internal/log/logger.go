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

// Package log configures the structured logger used by the CLI and the hosts.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format is the log encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// LevelTrace is more verbose than Debug and is used for request and
// response bodies.
const LevelTrace = slog.Level(-8)

// Attribute keys shared by every component.
const (
	OperationKey = "operation"
	ResourceKey  = "resource" // GRC resource kind, e.g. "risk"
	PageKey      = "page"
	RequestIDKey = "request_id"
	DurationKey  = "duration_ms"
	EventKey     = "event"
)

// Config selects the level, format and destination of a logger.
type Config struct {
	// Level is one of trace, debug, info, warn or error.
	Level     string
	Format    Format
	Output    io.Writer
	AddSource bool
}

// DefaultConfig returns info-level JSON logging to stderr.
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: FormatJSON, Output: os.Stderr}
}

// FromEnv builds a Config from the environment:
//
//	GRC_DEBUG=1|true   debug level with source locations, ignores the level variables
//	GRC_LOG_LEVEL      trace, debug, info, warn or error; wins over LOG_LEVEL
//	LOG_LEVEL          as above
//	LOG_FORMAT         json or text
//	LOG_SOURCE=1       add source locations
func FromEnv() *Config {
	cfg := DefaultConfig()

	switch os.Getenv("GRC_DEBUG") {
	case "1", "true":
		cfg.Level, cfg.AddSource = "debug", true
	case "":
		for _, key := range []string{"GRC_LOG_LEVEL", "LOG_LEVEL"} {
			if v := os.Getenv(key); v != "" {
				cfg.Level = strings.ToLower(v)
				break
			}
		}
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Format = Format(strings.ToLower(v))
	}
	if os.Getenv("LOG_SOURCE") == "1" {
		cfg.AddSource = true
	}
	return cfg
}

// New returns a logger for cfg. A nil cfg means DefaultConfig.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		AddSource:   cfg.AddSource,
		ReplaceAttr: nameTraceLevel,
	}
	if cfg.Format == FormatText {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}

var levels = map[string]slog.Level{
	"trace":   LevelTrace,
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// parseLevel maps a level name to its slog.Level. Unknown names are info.
func parseLevel(name string) slog.Level {
	if level, ok := levels[strings.ToLower(name)]; ok {
		return level
	}
	return slog.LevelInfo
}

// nameTraceLevel prints LevelTrace as "TRACE" instead of "DEBUG-4".
func nameTraceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey && len(groups) == 0 {
		if level, ok := a.Value.Any().(slog.Level); ok && level == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// WithRequestID scopes logger to one request.
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With(RequestIDKey, requestID)
}

// WithComponent scopes logger to a subsystem such as "gateway" or "mcp".
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// WithOperation scopes logger to one connector operation.
func WithOperation(logger *slog.Logger, operation, resource string) *slog.Logger {
	return logger.With(
		slog.String(OperationKey, operation),
		slog.String(ResourceKey, resource),
	)
}

// SanitizeAPIKey keeps the last four characters of key for display.
// Keys of four characters or fewer are hidden entirely.
func SanitizeAPIKey(key string) string {
	if len(key) <= 4 {
		return "[REDACTED]"
	}
	return "..." + key[len(key)-4:]
}

// Trace logs at LevelTrace. Attributes are only built into a record when
// trace logging is enabled.
func Trace(logger *slog.Logger, msg string, attrs ...slog.Attr) {
	ctx := context.Background()
	if logger.Enabled(ctx, LevelTrace) {
		logger.LogAttrs(ctx, LevelTrace, msg, attrs...)
	}
}
