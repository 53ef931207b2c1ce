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

// Package cli assembles the grc command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/tombee/grcconnector/internal/commands/auth"
	"github.com/tombee/grcconnector/internal/commands/mcpserver"
	"github.com/tombee/grcconnector/internal/commands/operations"
	"github.com/tombee/grcconnector/internal/commands/run"
	"github.com/tombee/grcconnector/internal/commands/schema"
	"github.com/tombee/grcconnector/internal/commands/serve"
	"github.com/tombee/grcconnector/internal/commands/shared"
	versioncmd "github.com/tombee/grcconnector/internal/commands/version"
)

// SetVersion records the build identity injected into main.
func SetVersion(version, commit, date string) {
	shared.SetBuildInfo(shared.BuildInfo{Version: version, Commit: commit, Date: date})
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grc",
		Short: "grc - connector for GRC platform APIs",
		Long: `grc exposes the records of a GRC platform (assets, risks, controls,
vendors, findings and more) as typed operations. Run them from the command
line, serve them over HTTP or hand them to an AI assistant over MCP.

Run 'grc operations' to see what is available and 'grc auth login' to
store an API token.`,
		SilenceUsage:  true,
		SilenceErrors: true, // HandleExitError prints errors with exit codes
	}

	shared.BindGlobalFlags(cmd.PersistentFlags())
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		operations.NewCommand(),
		schema.NewCommand(),
		run.NewCommand(),
		auth.NewCommand(),
		serve.NewCommand(),
		mcpserver.NewCommand(),
		versioncmd.NewVersionCommand(),
	)

	return cmd
}

// HandleExitError prints err and exits with the code it maps to.
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
