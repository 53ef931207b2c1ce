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

// Package operations implements the grc operations command.
package operations

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/grcconnector/internal/commands/shared"
	"github.com/tombee/grcconnector/internal/integration/grc"
	"github.com/tombee/grcconnector/internal/operation/api"
	pkgerrors "github.com/tombee/grcconnector/pkg/errors"
)

// NewCommand creates the operations command.
func NewCommand() *cobra.Command {
	var resource, tag string

	cmd := &cobra.Command{
		Use:     "operations",
		Aliases: []string{"ops"},
		Short:   "List available operations",
		Long: `List the operations the connector supports, one create, get, list,
update and delete operation per resource.

Examples:
  grc operations
  grc operations --resource risk
  grc operations --tag destructive --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops := filter(grc.Operations(), resource, tag)
			if len(ops) == 0 && resource != "" {
				if _, ok := grc.ResourceByKind(grc.Resource(resource)); !ok {
					return shared.NewInvalidInputError("invalid --resource", &pkgerrors.NotFoundError{Resource: "resource", ID: resource})
				}
			}

			out := cmd.OutOrStdout()
			if shared.GetJSON() {
				return shared.EmitJSON(out, map[string]interface{}{"operations": ops})
			}

			table := shared.NewTable("OPERATION", "RESOURCE", "TAGS", "DESCRIPTION")
			table.Styled = shared.IsTTY()
			table.MaxWidth = shared.TerminalWidth()
			for _, op := range ops {
				table.AddRow(op.Name, shared.DisplayName(op.Category), strings.Join(op.Tags, ","), op.Description)
			}
			if err := table.Render(out); err != nil {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, shared.RenderLabel(fmt.Sprintf("%d operations. Run 'grc schema <operation>' for parameters.", table.Len())))
			return nil
		},
	}

	cmd.Flags().StringVarP(&resource, "resource", "r", "", "Only list operations for this resource kind")
	cmd.Flags().StringVar(&tag, "tag", "", "Only list operations with this tag (read, write, paginated, destructive)")

	return cmd
}

func filter(ops []api.OperationInfo, resource, tag string) []api.OperationInfo {
	return slices.DeleteFunc(slices.Clone(ops), func(op api.OperationInfo) bool {
		if resource != "" && op.Category != resource {
			return true
		}
		return tag != "" && !slices.Contains(op.Tags, tag)
	})
}
