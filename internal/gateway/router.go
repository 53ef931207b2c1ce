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

// Package gateway serves connector operations over HTTP.
//
// Routes:
//
//	GET  /healthz                           liveness and version
//	GET  /metrics                           Prometheus metrics (when configured)
//	GET  /v1/operations                     operation catalog
//	GET  /v1/operations/{name}              operation schema
//	POST /v1/operations/{name}              execute; body is the JSON inputs object
//	POST /v1/operations/{name}/pages        execute a list operation, streaming NDJSON pages
//
// The execute routes accept optional "where" and "jq" query parameters.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tombee/grcconnector/internal/invoke"
	"github.com/tombee/grcconnector/internal/log"
	"github.com/tombee/grcconnector/internal/operation"
	"github.com/tombee/grcconnector/internal/tracing"
)

// maxBodySize bounds request bodies (1MB).
const maxBodySize = 1 << 20

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version string

	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler

	Logger *slog.Logger
}

// Router dispatches HTTP requests to the invoker. Each request uses the
// invoker current when it arrived, so SetInvoker never affects calls in
// flight.
type Router struct {
	mux     *http.ServeMux
	invoker atomic.Pointer[invoke.Invoker]
	config  RouterConfig
	logger  *slog.Logger
}

// NewRouter creates a router serving the invoker's operations.
func NewRouter(invoker *invoke.Invoker, cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		mux:    http.NewServeMux(),
		config: cfg,
		logger: log.WithComponent(logger, "gateway"),
	}
	r.invoker.Store(invoker)

	r.mux.HandleFunc("GET /healthz", r.handleHealth)
	r.mux.HandleFunc("GET /v1/operations", r.handleList)
	r.mux.HandleFunc("GET /v1/operations/{name}", r.handleSchema)
	r.mux.HandleFunc("POST /v1/operations/{name}", r.handleExecute)
	r.mux.HandleFunc("POST /v1/operations/{name}/pages", r.handleStream)
	if cfg.MetricsHandler != nil {
		r.mux.Handle("GET /metrics", cfg.MetricsHandler)
	}
	return r
}

// SetInvoker replaces the invoker used by subsequent requests.
func (r *Router) SetInvoker(invoker *invoke.Invoker) {
	r.invoker.Store(invoker)
}

// ServeHTTP implements http.Handler. Requests get an ID, then a log line
// once served.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			log.WithRequestID(r.logger, tracing.RequestIDFromContext(req.Context())).Info("request completed",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", sw.status),
				slog.Int64(log.DurationKey, time.Since(start).Milliseconds()),
			)
		}()
		r.mux.ServeHTTP(sw, req)
	})
	tracing.RequestIDMiddleware(inner).ServeHTTP(w, req)
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": r.config.Version,
	})
}

func (r *Router) handleList(w http.ResponseWriter, req *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"operations": r.invoker.Load().Provider().Operations(),
	})
}

func (r *Router) handleSchema(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("name")
	schema := r.invoker.Load().Provider().OperationSchema(name)
	if schema == nil {
		WriteError(w, unknownOperation(name))
		return
	}
	WriteJSON(w, http.StatusOK, schema)
}

func (r *Router) handleExecute(w http.ResponseWriter, req *http.Request) {
	invoker := r.invoker.Load()
	ireq, err := invocation(invoker, req)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp, err := invoker.Invoke(req.Context(), ireq)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// handleStream writes one JSON object per page, flushing after each. Once
// the first page is written the status is fixed, so a later failure is
// reported as a final {"error": ...} line.
func (r *Router) handleStream(w http.ResponseWriter, req *http.Request) {
	invoker := r.invoker.Load()
	ireq, err := invocation(invoker, req)
	if err != nil {
		WriteError(w, err)
		return
	}

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	started := false

	err = invoker.Stream(req.Context(), ireq, func(page *invoke.Response) error {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := enc.Encode(page); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err == nil {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
		}
		return
	}
	if !started {
		WriteError(w, err)
		return
	}
	_ = enc.Encode(ErrorBody{Error: err.Error(), RequestID: tracing.RequestIDFromContext(req.Context())})
}

// invocation builds an invoke request from the HTTP request.
func invocation(invoker *invoke.Invoker, req *http.Request) (*invoke.Request, error) {
	name := req.PathValue("name")
	if invoker.Provider().OperationSchema(name) == nil {
		return nil, unknownOperation(name)
	}

	inputs, err := decodeInputs(http.MaxBytesReader(nil, req.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	query := req.URL.Query()
	return &invoke.Request{
		Operation:  name,
		Inputs:     inputs,
		Where:      query.Get("where"),
		JQ:         query.Get("jq"),
		Source:     invoke.SourceHTTP,
		RequestID:  tracing.RequestIDFromContext(req.Context()),
		RemoteAddr: req.RemoteAddr,
	}, nil
}

// decodeInputs reads a JSON object. An empty body means no inputs.
func decodeInputs(body io.Reader) (map[string]interface{}, error) {
	inputs := map[string]interface{}{}
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&inputs); err != nil && !errors.Is(err, io.EOF) {
		return nil, operation.NewValidationError(
			fmt.Sprintf("request body must be a JSON object of inputs: %v", err),
			`Send e.g. {"id": 42}`,
		)
	}
	if inputs == nil {
		inputs = map[string]interface{}{}
	}
	return inputs, nil
}

func unknownOperation(name string) *operation.Error {
	return &operation.Error{
		Type:        operation.ErrorTypeNotFound,
		Message:     fmt.Sprintf("unknown operation %q", name),
		SuggestText: "GET /v1/operations lists the available operations",
	}
}

// statusWriter records the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the underlying writer when it supports flushing.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
