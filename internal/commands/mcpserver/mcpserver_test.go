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

package mcpserver

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/grcconnector/internal/commands/shared"
	"github.com/tombee/grcconnector/internal/commands/shared/sharedtest"
	"github.com/tombee/grcconnector/internal/integration/grc/grctest"
)

func TestNewServer_FromConfig(t *testing.T) {
	upstream := grctest.NewServer(t)
	sharedtest.Configure(t, upstream.BaseURL(), grctest.Token, "")

	rt, err := shared.NewRuntime(context.Background(), shared.RuntimeOptions{LogOutput: io.Discard})
	require.NoError(t, err)
	defer rt.Close(context.Background())

	server, err := newServer(rt, 10)
	require.NoError(t, err)
	assert.Contains(t, server.Tools(), "list_assets")

	result, err := server.Call(context.Background(), "list_assets", map[string]interface{}{"jq": "map(.name)"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestCommand_Flags(t *testing.T) {
	cmd := NewCommand()
	assert.Equal(t, "mcp", cmd.Name())
	assert.NotNil(t, cmd.Flags().Lookup("calls-per-minute"))
}

func TestCommand_BadConfig(t *testing.T) {
	sharedtest.Isolate(t)

	cmd := NewCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, shared.ExitConfigError, shared.ExitCodeFor(err))
}
