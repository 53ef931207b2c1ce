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

package shared

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/tombee/grcconnector/internal/config"
	"github.com/tombee/grcconnector/internal/integration"
	"github.com/tombee/grcconnector/internal/invoke"
	"github.com/tombee/grcconnector/internal/log"
	"github.com/tombee/grcconnector/internal/operation"
	"github.com/tombee/grcconnector/internal/secrets"
	"github.com/tombee/grcconnector/internal/tracing"
)

// ServiceName identifies the connector in traces and metrics.
const ServiceName = "grc-connector"

// Runtime is the configured connector shared by the commands that talk to
// the GRC API.
type Runtime struct {
	Config  *config.Config
	Logger  *slog.Logger
	Invoker *invoke.Invoker
	Tracing *tracing.Provider

	metrics    *operation.Metrics
	httpClient *http.Client
}

// RuntimeOptions customizes NewRuntime.
type RuntimeOptions struct {
	// LogOutput receives logs and stdout-exported spans (default: os.Stderr).
	LogOutput io.Writer

	// HTTPClient overrides the API client (tests).
	HTTPClient *http.Client
}

// NewRuntime loads the configuration named by --config, resolves its
// secrets and builds the invoker with tracing and metrics attached.
func NewRuntime(ctx context.Context, opts RuntimeOptions) (*Runtime, error) {
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}

	cfg, err := config.Load(GetConfigPath())
	if err != nil {
		return nil, NewConfigError("failed to load config", err)
	}
	if err := cfg.ResolveSecrets(ctx, secrets.DefaultRegistry()); err != nil {
		return nil, NewConfigError("failed to resolve secrets", err)
	}

	logger := NewLogger(cfg, opts.LogOutput)

	tp, err := tracing.NewProvider(ctx, tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: Build().Version,
		Exporter:       cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRate:     cfg.Tracing.SampleRate,
		Writer:         opts.LogOutput,
	})
	if err != nil {
		return nil, NewConfigError("failed to set up tracing", err)
	}

	metrics, err := operation.NewMetrics(tp.MeterProvider())
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, NewExecutionError("failed to create metrics", err)
	}

	rt := &Runtime{
		Config:     cfg,
		Logger:     logger,
		Tracing:    tp,
		metrics:    metrics,
		httpClient: opts.HTTPClient,
	}
	if rt.Invoker, err = rt.newInvoker(cfg); err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	return rt, nil
}

// Reload builds an invoker for a freshly loaded cfg. Logging, tracing and
// metrics stay as they were set up, so only the connector settings (base
// URL, credentials, paging, transport policy) take effect. The runtime
// itself is not modified.
func (r *Runtime) Reload(ctx context.Context, cfg *config.Config) (*invoke.Invoker, error) {
	if err := cfg.ResolveSecrets(ctx, secrets.DefaultRegistry()); err != nil {
		return nil, NewConfigError("failed to resolve secrets", err)
	}
	return r.newInvoker(cfg)
}

func (r *Runtime) newInvoker(cfg *config.Config) (*invoke.Invoker, error) {
	provider, err := integration.NewProvider(cfg, integration.Options{
		Logger:     r.Logger,
		Metrics:    r.metrics,
		HTTPClient: r.httpClient,
	})
	if err != nil {
		return nil, NewConfigError("failed to create connector", err)
	}
	return invoke.New(provider, r.Logger), nil
}

// Close flushes telemetry.
func (r *Runtime) Close(ctx context.Context) error {
	return r.Tracing.Shutdown(ctx)
}

// NewLogger builds the logger from the log section of cfg. GRC_DEBUG
// overrides the configured level, and --verbose and --quiet override both.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	lc := log.FromEnv()
	lc.Output = w
	if cfg != nil && os.Getenv("GRC_DEBUG") == "" {
		lc.Level = cfg.Log.Level
		lc.Format = log.Format(cfg.Log.Format)
		lc.AddSource = lc.AddSource || cfg.Log.AddSource
	}

	switch {
	case GetVerbose():
		lc.Level = "debug"
	case GetQuiet():
		lc.Level = "error"
	}
	return log.New(lc)
}
