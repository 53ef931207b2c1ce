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

// Package run implements the grc run command.
package run

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/tombee/grcconnector/internal/commands/shared"
	"github.com/tombee/grcconnector/internal/integration/grc"
	"github.com/tombee/grcconnector/internal/invoke"
	"github.com/tombee/grcconnector/internal/tracing"
)

type options struct {
	params    paramsValue
	inputFile string
	all       bool
	limit     int
	maxPages  int
	jq        string
	where     string
	stream    bool
}

// NewCommand creates the run command.
func NewCommand() *cobra.Command {
	opts := &options{params: paramsValue{}}

	cmd := &cobra.Command{
		Use:   "run <operation>",
		Short: "Run an operation against the GRC API",
		Long: `Run an operation and print its result as JSON.

Inputs come from --input (a JSON object, "-" for stdin) and repeated --param
flags, which take precedence. List operations return one page of up to
--limit records unless --all is given.

Examples:
  grc run get_risk --param id=42
  grc run list_risks --all --where 'status == "open"' --jq 'map({id, name})'
  grc run create_asset --input asset.json
  grc run list_assets --all --stream > assets.ndjson`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return grc.OperationNames(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.VarP(opts.params, "param", "p", "Operation input as key=value (repeatable)")
	f.StringVarP(&opts.inputFile, "input", "i", "", "JSON file with operation inputs (- for stdin)")
	f.BoolVar(&opts.all, "all", false, "Fetch every page of a list operation")
	f.IntVar(&opts.limit, "limit", grc.DefaultLimit, "Maximum records for a single-page list")
	f.IntVar(&opts.maxPages, "max-pages", 0, "Stop after this many pages with --all (0 = no cap)")
	f.StringVar(&opts.jq, "jq", "", "jq expression applied to the result")
	f.StringVar(&opts.where, "where", "", "Filter expression applied to each listed record")
	f.BoolVar(&opts.stream, "stream", false, "Print each page as one JSON line while paging")

	return cmd
}

func runOperation(cmd *cobra.Command, name string, opts *options) error {
	inputs, err := opts.inputs(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	rt, err := shared.NewRuntime(ctx, shared.RuntimeOptions{LogOutput: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	req := &invoke.Request{
		Operation: name,
		Inputs:    inputs,
		Where:     opts.where,
		JQ:        opts.jq,
		Source:    invoke.SourceCLI,
		RequestID: tracing.NewRequestID(),
	}
	out := cmd.OutOrStdout()

	if opts.stream {
		enc := json.NewEncoder(out)
		err := rt.Invoker.Stream(ctx, req, func(resp *invoke.Response) error {
			if shared.GetJSON() {
				return enc.Encode(resp)
			}
			return enc.Encode(resp.Data)
		})
		if err != nil {
			return shared.NewOperationError(fmt.Sprintf("%s failed", name), err)
		}
		return nil
	}

	resp, err := rt.Invoker.Invoke(ctx, req)
	if err != nil {
		return shared.NewOperationError(fmt.Sprintf("%s failed", name), err)
	}

	if shared.GetJSON() {
		return shared.EmitJSON(out, resp)
	}
	return printData(out, resp.Data)
}

// inputs merges the --input document with --param values and the paging
// flags the user set explicitly.
func (o *options) inputs(cmd *cobra.Command) (map[string]interface{}, error) {
	inputs := map[string]interface{}{}

	if o.inputFile != "" {
		var (
			data []byte
			err  error
		)
		if o.inputFile == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(o.inputFile)
		}
		if err != nil {
			return nil, shared.NewInvalidInputError("failed to read input", err)
		}

		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&inputs); err != nil {
			return nil, shared.NewInvalidInputError("input must be a JSON object", err)
		}
	}

	maps.Copy(inputs, o.params)

	flags := cmd.Flags()
	if o.all {
		inputs[grc.InputReturnAll] = true
	}
	if flags.Changed("limit") {
		inputs[grc.InputLimit] = o.limit
	}
	if flags.Changed("max-pages") {
		inputs[grc.InputMaxPages] = o.maxPages
	}
	return inputs, nil
}

// printData prints strings raw and everything else as indented JSON.
func printData(w io.Writer, data interface{}) error {
	if s, ok := data.(string); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	return shared.EmitJSON(w, data)
}
