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

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tombee/grcconnector/internal/invoke"
	"github.com/tombee/grcconnector/internal/operation"
	"github.com/tombee/grcconnector/internal/operation/api"
)

// Arguments shared by every operation tool.
const (
	argWhere = "where"
	argJQ    = "jq"
)

func (s *Server) registerCatalogTools() {
	s.addTool(mcp.Tool{
		Name:        "grc_operations",
		Description: "List the available GRC operations with their resource category and tags (read, write, paginated, destructive).",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Only list operations for this resource kind (e.g. risk, asset)",
				},
			},
		},
	}, s.handleOperations)

	s.addTool(mcp.Tool{
		Name:        "grc_schema",
		Description: "Describe the parameters, HTTP method and path of a GRC operation.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"operation": map[string]interface{}{
					"type":        "string",
					"description": "Operation name from grc_operations",
				},
			},
			Required: []string{"operation"},
		},
	}, s.handleSchema)
}

func (s *Server) registerOperationTools() error {
	provider := s.invoker.Provider()
	for _, info := range provider.Operations() {
		schema := provider.OperationSchema(info.Name)
		if schema == nil {
			return fmt.Errorf("operation %s has no schema", info.Name)
		}
		s.addTool(operationTool(info, schema), s.operationHandler(info.Name))
	}
	return nil
}

// operationTool derives a tool definition from an operation schema.
func operationTool(info api.OperationInfo, schema *api.OperationSchema) mcp.Tool {
	props := make(map[string]interface{}, len(schema.Parameters)+2)
	var required []string

	for _, p := range schema.Parameters {
		props[p.Name] = propertyFor(p)
		if p.Required {
			required = append(required, p.Name)
		}
	}

	if slices.Contains(info.Tags, "paginated") {
		props[argWhere] = map[string]interface{}{
			"type":        "string",
			"description": `Record filter expression, e.g. status == "open" && criticality in ["high", "critical"]`,
		}
	}
	props[argJQ] = map[string]interface{}{
		"type":        "string",
		"description": "jq expression applied to the output, e.g. map({id, name})",
	}

	description := fmt.Sprintf("%s (%s %s).", schema.Description, schema.Method, schema.Path)
	if slices.Contains(info.Tags, "destructive") {
		description += " This permanently deletes the record."
	}

	return mcp.Tool{
		Name:        info.Name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   required,
		},
	}
}

func propertyFor(p api.ParameterInfo) map[string]interface{} {
	prop := map[string]interface{}{"description": p.Description}
	switch p.Type {
	case "date":
		prop["type"] = "string"
		prop["format"] = "date"
	case "array":
		prop["type"] = "array"
		prop["items"] = map[string]interface{}{}
	default:
		prop["type"] = p.Type
	}
	if p.Default != nil {
		prop["default"] = p.Default
	}
	return prop
}

func (s *Server) operationHandler(name string) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		inputs := map[string]interface{}{}
		for k, v := range request.GetArguments() {
			inputs[k] = v
		}

		req := &invoke.Request{Operation: name, Inputs: inputs, Source: invoke.SourceMCP}
		if v, ok := inputs[argWhere].(string); ok {
			req.Where = v
			delete(inputs, argWhere)
		}
		if v, ok := inputs[argJQ].(string); ok {
			req.JQ = v
			delete(inputs, argJQ)
		}

		resp, err := s.invoker.Invoke(ctx, req)
		if err != nil {
			return errorResponse(describeError(err)), nil
		}
		return jsonResponse(resp)
	}
}

func (s *Server) handleOperations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := strings.TrimSpace(request.GetString("category", ""))

	ops := s.invoker.Provider().Operations()
	if category != "" {
		ops = slices.DeleteFunc(slices.Clone(ops), func(info api.OperationInfo) bool {
			return info.Category != category
		})
		if len(ops) == 0 {
			return errorResponse(fmt.Sprintf("no operations for category %q", category)), nil
		}
	}
	return jsonResponse(map[string]interface{}{"operations": ops})
}

func (s *Server) handleSchema(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("operation")
	if err != nil {
		return errorResponse(err.Error()), nil
	}
	schema := s.invoker.Provider().OperationSchema(name)
	if schema == nil {
		return errorResponse(fmt.Sprintf("unknown operation %q; call grc_operations to list them", name)), nil
	}
	return jsonResponse(schema)
}

// describeError renders an error with its suggestion for the client.
func describeError(err error) string {
	msg := err.Error()
	var opErr *operation.Error
	if errors.As(err, &opErr) && opErr.SuggestText != "" {
		msg += "\nSuggestion: " + opErr.SuggestText
	}
	return msg
}

func jsonResponse(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResponse(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return textResponse(string(data)), nil
}
