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

// Package mcp exposes the connector operations as Model Context Protocol
// tools over stdio.
//
// Every operation becomes a tool of the same name whose input schema is
// derived from the operation parameters. Two catalog tools, grc_operations
// and grc_schema, let clients discover operations without calling them.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/time/rate"

	"github.com/tombee/grcconnector/internal/invoke"
)

// DefaultCallsPerMinute bounds tool calls from one client.
const DefaultCallsPerMinute = 120

// ServerConfig configures the MCP server.
type ServerConfig struct {
	// Name is the server name (default: "grc")
	Name string

	// Version is the connector version (default: "dev")
	Version string

	// Invoker executes the operations.
	Invoker *invoke.Invoker

	// CallsPerMinute limits tool calls (default: DefaultCallsPerMinute)
	CallsPerMinute int

	// Logger must not write to stdout, which carries the protocol.
	Logger *slog.Logger
}

// Server wraps the MCP server and the tools it exposes.
type Server struct {
	mcpServer *server.MCPServer
	invoker   *invoke.Invoker
	limiter   *rate.Limiter
	version   string
	logger    *slog.Logger
	tools     map[string]mcp.Tool
	handlers  map[string]server.ToolHandlerFunc
}

// NewServer creates an MCP server with one tool per operation.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Invoker == nil {
		return nil, fmt.Errorf("mcp server requires an invoker")
	}
	if cfg.Name == "" {
		cfg.Name = "grc"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.CallsPerMinute <= 0 {
		cfg.CallsPerMinute = DefaultCallsPerMinute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		mcpServer: server.NewMCPServer(cfg.Name, cfg.Version),
		invoker:   cfg.Invoker,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.CallsPerMinute)), cfg.CallsPerMinute),
		version:   cfg.Version,
		logger:    cfg.Logger,
		tools:     make(map[string]mcp.Tool),
		handlers:  make(map[string]server.ToolHandlerFunc),
	}

	s.registerCatalogTools()
	if err := s.registerOperationTools(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	limited := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !s.limiter.Allow() {
			return errorResponse("Rate limit exceeded. Please try again later."), nil
		}
		return handler(ctx, request)
	}
	s.tools[tool.Name] = tool
	s.handlers[tool.Name] = limited
	s.mcpServer.AddTool(tool, limited)
}

// Tools returns the registered tools by name.
func (s *Server) Tools() map[string]mcp.Tool {
	return s.tools
}

// Call invokes a registered tool directly.
func (s *Server) Call(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	handler, ok := s.handlers[name]
	if !ok {
		return errorResponse(fmt.Sprintf("unknown tool %q", name)), nil
	}
	var request mcp.CallToolRequest
	request.Params.Name = name
	request.Params.Arguments = args
	return handler(ctx, request)
}

// Run serves the protocol on stdin/stdout until the input closes.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server",
		slog.String("version", s.version),
		slog.Int("tools", len(s.tools)))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

func errorResponse(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

func textResponse(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}
