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

package log

import (
	"context"
	"log/slog"
	"time"
)

// Invocation describes one operation call arriving through a host
// (HTTP gateway, MCP server, CLI).
type Invocation struct {
	// Operation is the connector operation name (e.g., "list_assets").
	Operation string

	// Source identifies the host that received the call ("http", "mcp", "cli").
	Source string

	// RequestID is the unique ID for this call.
	RequestID string

	// RemoteAddr is the remote address of the client, when known.
	RemoteAddr string
}

// Outcome describes how an invocation finished.
type Outcome struct {
	// Success indicates whether the operation succeeded.
	Success bool

	// Error is the error message if the operation failed.
	Error string

	// DurationMs is the duration of the call in milliseconds.
	DurationMs int64

	// Metadata contains additional response metadata (page counts, status code).
	Metadata map[string]interface{}
}

func (inv *Invocation) attrs(event string) []any {
	attrs := []any{
		EventKey, event,
		OperationKey, inv.Operation,
		"source", inv.Source,
	}
	if inv.RequestID != "" {
		attrs = append(attrs, RequestIDKey, inv.RequestID)
	}
	if inv.RemoteAddr != "" {
		attrs = append(attrs, "remote", inv.RemoteAddr)
	}
	return attrs
}

// LogInvocation logs an incoming operation call.
func LogInvocation(logger *slog.Logger, inv *Invocation) {
	logger.Info("operation invoked", inv.attrs("invocation_start")...)
}

// LogOutcome logs the end of an operation call.
func LogOutcome(logger *slog.Logger, inv *Invocation, out *Outcome) {
	attrs := append(inv.attrs("invocation_end"),
		"success", out.Success,
		DurationKey, out.DurationMs,
	)
	if out.Error != "" {
		attrs = append(attrs, "error", out.Error)
	}
	for k, v := range out.Metadata {
		attrs = append(attrs, k, v)
	}

	level := slog.LevelInfo
	message := "operation completed"
	if !out.Success {
		level = slog.LevelError
		message = "operation failed"
	}

	logger.Log(context.Background(), level, message, attrs...)
}

// InvocationMiddleware wraps operation handlers with start/end logging.
type InvocationMiddleware struct {
	logger *slog.Logger
}

// NewInvocationMiddleware creates a new invocation logging middleware.
func NewInvocationMiddleware(logger *slog.Logger) *InvocationMiddleware {
	return &InvocationMiddleware{logger: logger}
}

// Handle runs handler, logging the invocation before and its outcome after.
// The metadata returned by handler is attached to the outcome log line.
func (m *InvocationMiddleware) Handle(inv *Invocation, handler func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	start := time.Now()
	LogInvocation(m.logger, inv)

	metadata, err := handler()

	out := &Outcome{
		Success:    err == nil,
		DurationMs: time.Since(start).Milliseconds(),
		Metadata:   metadata,
	}
	if err != nil {
		out.Error = err.Error()
	}
	LogOutcome(m.logger, inv, out)

	return metadata, err
}
