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

// Package schema implements the grc schema command.
package schema

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/grcconnector/internal/commands/shared"
	"github.com/tombee/grcconnector/internal/integration/grc"
	pkgerrors "github.com/tombee/grcconnector/pkg/errors"
)

// NewCommand creates the schema command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <operation>",
		Short: "Show the parameters of an operation",
		Long: `Show the HTTP method, path and parameters of an operation.

Examples:
  grc schema list_risks
  grc schema create_asset --json`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return grc.OperationNames(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s := grc.OperationSchema(args[0])
			if s == nil {
				return shared.NewInvalidInputError("schema lookup failed",
					&pkgerrors.NotFoundError{Resource: "operation", ID: args[0]})
			}

			out := cmd.OutOrStdout()
			if shared.GetJSON() {
				return shared.EmitJSON(out, s)
			}

			fmt.Fprintf(out, "%s\n", s.Description)
			fmt.Fprintf(out, "%s %s\n\n", s.Method, s.Path)

			table := shared.NewTable("PARAMETER", "TYPE", "REQUIRED", "DEFAULT", "DESCRIPTION")
			table.Styled = shared.IsTTY()
			table.MaxWidth = shared.TerminalWidth()
			for _, p := range s.Parameters {
				required := ""
				if p.Required {
					required = "yes"
				}
				def := ""
				if p.Default != nil {
					def = fmt.Sprint(p.Default)
				}
				table.AddRow(p.Name, p.Type, required, def, p.Description)
			}
			return table.Render(out)
		},
	}
}
