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
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/grcconnector/internal/integration/grc/grctest"
	"github.com/tombee/grcconnector/internal/invoke"
)

func newTestServer(t *testing.T, callsPerMinute int) *Server {
	t.Helper()
	upstream := grctest.NewServer(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	s, err := NewServer(ServerConfig{
		Version:        "1.2.3",
		Invoker:        invoke.New(grctest.NewIntegration(t, upstream, 2), logger),
		CallsPerMinute: callsPerMinute,
		Logger:         logger,
	})
	require.NoError(t, err)
	return s
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.False(t, result.IsError, resultText(t, result))
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	return out
}

func TestNewServer_RequiresInvoker(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestNewServer_RegistersTools(t *testing.T) {
	s := newTestServer(t, 0)
	tools := s.Tools()

	// 53 operations plus the two catalog tools.
	assert.Len(t, tools, 55)
	assert.Contains(t, tools, "grc_operations")
	assert.Contains(t, tools, "grc_schema")

	list := tools["list_risks"]
	assert.Contains(t, list.InputSchema.Properties, argWhere)
	assert.Contains(t, list.InputSchema.Properties, argJQ)

	get := tools["get_risk"]
	assert.NotContains(t, get.InputSchema.Properties, argWhere)
	assert.Contains(t, get.InputSchema.Required, "id")

	del := tools["delete_risk"]
	assert.Contains(t, del.Description, "permanently deletes")
}

func TestOperationTool_DateParameters(t *testing.T) {
	s := newTestServer(t, 0)
	for _, tool := range s.Tools() {
		for name, raw := range tool.InputSchema.Properties {
			prop := raw.(map[string]interface{})
			assert.NotEqual(t, "date", prop["type"], "%s.%s should be exposed as a string", tool.Name, name)
			if prop["format"] == "date" {
				assert.Equal(t, "string", prop["type"])
			}
		}
	}
}

func TestCall_Get(t *testing.T) {
	s := newTestServer(t, 0)

	result, err := s.Call(context.Background(), "get_risk", map[string]interface{}{"id": "2"})
	require.NoError(t, err)

	out := decodeResult(t, result)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "Data loss", data["name"])
}

func TestCall_ListWithWhereAndJQ(t *testing.T) {
	s := newTestServer(t, 0)

	result, err := s.Call(context.Background(), "list_risks", map[string]interface{}{
		"return_all": true,
		argWhere:     `status == "open"`,
		argJQ:        "map(.name)",
	})
	require.NoError(t, err)

	out := decodeResult(t, result)
	assert.Equal(t, []interface{}{"Vendor breach", "Outage"}, out["data"])
}

func TestCall_MissingRequiredParameter(t *testing.T) {
	s := newTestServer(t, 0)

	result, err := s.Call(context.Background(), "get_risk", map[string]interface{}{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "id")
}

func TestCall_UpstreamNotFound(t *testing.T) {
	s := newTestServer(t, 0)

	result, err := s.Call(context.Background(), "get_risk", map[string]interface{}{"id": "404"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Suggestion:")
}

func TestCall_UnknownTool(t *testing.T) {
	s := newTestServer(t, 0)

	result, err := s.Call(context.Background(), "list_widgets", nil)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestCatalogTools(t *testing.T) {
	s := newTestServer(t, 0)
	ctx := context.Background()

	result, err := s.Call(ctx, "grc_operations", map[string]interface{}{"category": "risk"})
	require.NoError(t, err)
	ops := decodeResult(t, result)["operations"].([]interface{})
	assert.NotEmpty(t, ops)
	for _, raw := range ops {
		assert.Equal(t, "risk", raw.(map[string]interface{})["category"])
	}

	result, err = s.Call(ctx, "grc_operations", map[string]interface{}{"category": "widget"})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.Call(ctx, "grc_schema", map[string]interface{}{"operation": "create_risk"})
	require.NoError(t, err)
	schema := decodeResult(t, result)
	assert.Equal(t, "POST", schema["method"])

	result, err = s.Call(ctx, "grc_schema", map[string]interface{}{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, 1)
	ctx := context.Background()

	result, err := s.Call(ctx, "grc_schema", map[string]interface{}{"operation": "get_risk"})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	result, err = s.Call(ctx, "grc_schema", map[string]interface{}{"operation": "get_risk"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Rate limit")
}
