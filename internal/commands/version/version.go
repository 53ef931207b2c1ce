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

// Package version implements the grc version command.
package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tombee/grcconnector/internal/commands/shared"
)

// VersionInfo is the --json form of the command's output.
type VersionInfo struct {
	shared.BuildInfo
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Current describes the running binary.
func Current() VersionInfo {
	return VersionInfo{
		BuildInfo: shared.Build(),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Print the connector version, commit, build date and Go toolchain.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := Current()
			out := cmd.OutOrStdout()
			if shared.GetJSON() {
				return shared.EmitJSON(out, info)
			}

			fmt.Fprintf(out, "grc version %s\n", info.Version)
			table := shared.NewTable("", "")
			table.HideHeader = true
			table.AddRow("commit", info.Commit)
			table.AddRow("built", info.Date)
			table.AddRow("go", info.GoVersion+" "+info.Platform)
			return table.Render(out)
		},
	}
}
