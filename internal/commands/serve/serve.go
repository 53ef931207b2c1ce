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

// Package serve implements the grc serve command.
package serve

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tombee/grcconnector/internal/commands/shared"
	"github.com/tombee/grcconnector/internal/config"
	"github.com/tombee/grcconnector/internal/gateway"
	"github.com/tombee/grcconnector/internal/invoke"
	"github.com/tombee/grcconnector/internal/log"
)

// NewCommand creates the serve command.
func NewCommand() *cobra.Command {
	var addr string
	var metrics, watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the operations over HTTP",
		Long: `Serve the operations as a JSON HTTP API until interrupted.

Routes:
  GET  /healthz
  GET  /metrics
  GET  /v1/operations
  GET  /v1/operations/{name}
  POST /v1/operations/{name}          body: JSON inputs; query: where, jq
  POST /v1/operations/{name}/pages    NDJSON, one line per page

The config file is watched while serving. When it changes the connector
is rebuilt from it (base URL, credentials, paging, transport settings) and
new requests use it; an invalid file is logged and the current connector
kept. Log and tracing settings apply on restart only.

Examples:
  grc serve
  grc serve --addr 0.0.0.0:9090 --watch=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := shared.NewRuntime(ctx, shared.RuntimeOptions{LogOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			if addr == "" {
				addr = rt.Config.Server.Addr
			}

			logger := log.WithComponent(rt.Logger, "gateway")
			router := newHandler(rt, logger, metrics)
			if watch {
				startReloader(ctx, rt, router, logger)
			}

			server := gateway.NewServer(router, rt.Config.Server.ShutdownTimeout, logger)
			if err := server.ListenAndServe(ctx, addr); err != nil {
				return shared.NewExecutionError("gateway failed", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from config, 127.0.0.1:8080)")
	cmd.Flags().BoolVar(&metrics, "metrics", true, "Expose Prometheus metrics on /metrics")
	cmd.Flags().BoolVar(&watch, "watch", true, "Reload the connector when the config file changes")

	return cmd
}

func newHandler(rt *shared.Runtime, logger *slog.Logger, metrics bool) *gateway.Router {
	cfg := gateway.RouterConfig{Version: shared.Build().Version, Logger: logger}
	if metrics {
		cfg.MetricsHandler = rt.Tracing.MetricsHandler()
	}
	return gateway.NewRouter(rt.Invoker, cfg)
}

// startReloader watches the config file until ctx ends. Without a watchable
// file the gateway keeps serving on the configuration it started with.
func startReloader(ctx context.Context, rt *shared.Runtime, router *gateway.Router, logger *slog.Logger) {
	w, err := config.NewWatcher(shared.GetConfigPath(), config.DefaultReloadDelay, logger, reloadInto(ctx, rt, router, logger))
	if err != nil {
		logger.Warn("config reload disabled", slog.Any("error", err))
		return
	}
	logger.Info("watching config file", slog.String("path", w.Path()))
	go func() { _ = w.Run(ctx) }()
}

// reloadInto swaps a rebuilt invoker into router, or keeps the current one
// when the new configuration does not load.
func reloadInto(ctx context.Context, rt *shared.Runtime, router *gateway.Router, logger *slog.Logger) func(*config.Config, error) {
	return func(cfg *config.Config, err error) {
		if err == nil {
			var invoker *invoke.Invoker
			if invoker, err = rt.Reload(ctx, cfg); err == nil {
				router.SetInvoker(invoker)
				logger.Info("config reloaded", slog.String("base_url", cfg.BaseURL))
				return
			}
		}
		logger.Warn("config reload failed, keeping current connector", slog.Any("error", err))
	}
}
