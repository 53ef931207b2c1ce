// Package integration wires the built-in connectors to their transport stack.
package integration

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tombee/grcconnector/internal/config"
	"github.com/tombee/grcconnector/internal/integration/grc"
	"github.com/tombee/grcconnector/internal/operation"
	"github.com/tombee/grcconnector/internal/operation/api"
	"github.com/tombee/grcconnector/internal/operation/transport"
)

// Factory creates a connector from provider configuration.
type Factory func(config *api.ProviderConfig) (operation.Connector, error)

// BuiltinRegistry holds all built-in connector factories.
var BuiltinRegistry = map[string]Factory{
	grc.Name: func(config *api.ProviderConfig) (operation.Connector, error) {
		return grc.NewGRCIntegration(config)
	},
}

// Options carries the ambient dependencies shared by every connector.
type Options struct {
	Logger  *slog.Logger
	Metrics *operation.Metrics

	// HTTPClient overrides the client used by the HTTP transport (tests).
	HTTPClient *http.Client
}

// NewTransport builds the transport stack described by cfg: an HTTP
// transport with retries, an optional token bucket limiter and an optional
// circuit breaker in front. Secrets in cfg must already be resolved.
func NewTransport(cfg *config.Config, opts Options) (transport.Transport, error) {
	tc := cfg.TransportConfig()
	tc.Client = opts.HTTPClient
	tc.Logger = opts.Logger

	httpTransport, err := transport.NewHTTPTransport(tc)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP transport: %w", err)
	}

	var t transport.Transport = httpTransport
	if cfg.CircuitBreaker.Enabled {
		t = transport.NewBreakerTransport(httpTransport, cfg.BreakerConfig())
	}
	if limiter := transport.NewRateLimiter(cfg.RateLimitConfig()); limiter != nil {
		t.SetRateLimiter(limiter)
	}
	return t, nil
}

// NewRegistry creates an operation registry holding every built-in
// connector configured from cfg.
func NewRegistry(cfg *config.Config, opts Options) (*operation.Registry, error) {
	t, err := NewTransport(cfg, opts)
	if err != nil {
		return nil, err
	}

	registry := operation.NewRegistry()
	for name, factory := range BuiltinRegistry {
		connector, err := factory(&api.ProviderConfig{
			Transport: t,
			BaseURL:   cfg.BaseURL,
			PageSize:  cfg.PageSize,
			Metrics:   opts.Metrics,
			Logger:    opts.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating %s connector: %w", name, err)
		}
		registry.Register(name, connector)
	}
	return registry, nil
}

// NewProvider returns the GRC connector from a registry built from cfg.
func NewProvider(cfg *config.Config, opts Options) (api.Provider, error) {
	registry, err := NewRegistry(cfg, opts)
	if err != nil {
		return nil, err
	}
	connector, err := registry.Get(grc.Name)
	if err != nil {
		return nil, err
	}
	provider, ok := connector.(api.Provider)
	if !ok {
		return nil, fmt.Errorf("connector %s does not expose typed operations", grc.Name)
	}
	return provider, nil
}
