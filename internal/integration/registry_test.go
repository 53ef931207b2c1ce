package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/grcconnector/internal/config"
	"github.com/tombee/grcconnector/internal/integration/grc/grctest"
	"github.com/tombee/grcconnector/internal/operation/transport"
)

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.BaseURL = baseURL
	cfg.Auth.Token = "tok_registry"
	cfg.Retry.MaxAttempts = 1
	return cfg
}

func TestNewRegistry_ExecutesThroughStack(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer tok_registry", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/assets", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"id": 1}, {"id": 2}},
			"meta": map[string]interface{}{"page": 1, "per_page": 50, "total_count": 2},
		})
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL + "/api/v1")
	cfg.RateLimit.RequestsPerSecond = 100

	registry, err := NewRegistry(cfg, Options{HTTPClient: srv.Client()})
	require.NoError(t, err)
	assert.Equal(t, []string{"grc"}, registry.Names())

	result, err := registry.Execute(context.Background(), "grc.list_assets", map[string]interface{}{})
	require.NoError(t, err)
	assert.Len(t, result.Response, 2)
	assert.Equal(t, false, result.Metadata["has_more"])
	assert.EqualValues(t, 1, calls.Load())
}

func TestNewTransport_Layers(t *testing.T) {
	cfg := testConfig("https://acme.grc.example.com/api/v1")

	tr, err := NewTransport(cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, "breaker", tr.Name())

	cfg.CircuitBreaker.Enabled = false
	tr, err = NewTransport(cfg, Options{})
	require.NoError(t, err)
	_, isHTTP := tr.(*transport.HTTPTransport)
	assert.True(t, isHTTP)
}

func TestNewRegistry_InvalidConfig(t *testing.T) {
	cfg := testConfig("not a url")

	_, err := NewRegistry(cfg, Options{})
	assert.Error(t, err)

	cfg = testConfig("https://acme.grc.example.com/api/v1")
	cfg.PageSize = 500
	_, err = NewRegistry(cfg, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_size")
}

func TestNewProvider(t *testing.T) {
	upstream := grctest.NewServer(t)
	cfg := testConfig(upstream.BaseURL())
	cfg.Auth.Token = grctest.Token

	provider, err := NewProvider(cfg, Options{HTTPClient: upstream.Client()})
	require.NoError(t, err)
	assert.Equal(t, "grc", provider.Name())
	assert.NotNil(t, provider.OperationSchema("list_risks"))

	result, err := provider.Execute(context.Background(), "get_risk", map[string]interface{}{"id": "1"})
	require.NoError(t, err)
	assert.Equal(t, "Vendor breach", result.Response.(map[string]interface{})["name"])
}
