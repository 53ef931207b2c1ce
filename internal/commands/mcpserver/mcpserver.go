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

// Package mcpserver implements the grc mcp command.
package mcpserver

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tombee/grcconnector/internal/commands/shared"
	"github.com/tombee/grcconnector/internal/mcp"
)

// NewCommand creates the mcp command.
func NewCommand() *cobra.Command {
	var callsPerMinute int

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the operations as MCP tools over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout. Every operation is
exposed as a tool, alongside grc_operations and grc_schema for discovery.

Logs go to stderr; stdout carries only protocol messages.

Example client configuration:
  {"mcpServers": {"grc": {"command": "grc", "args": ["mcp"]}}}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := shared.NewRuntime(ctx, shared.RuntimeOptions{LogOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			server, err := newServer(rt, callsPerMinute)
			if err != nil {
				return shared.NewExecutionError("failed to create MCP server", err)
			}
			if err := server.Run(ctx); err != nil {
				return shared.NewExecutionError("MCP server failed", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&callsPerMinute, "calls-per-minute", mcp.DefaultCallsPerMinute, "Maximum tool calls per minute")

	return cmd
}

func newServer(rt *shared.Runtime, callsPerMinute int) (*mcp.Server, error) {
	return mcp.NewServer(mcp.ServerConfig{
		Version:        shared.Build().Version,
		Invoker:        rt.Invoker,
		CallsPerMinute: callsPerMinute,
		Logger:         rt.Logger,
	})
}
