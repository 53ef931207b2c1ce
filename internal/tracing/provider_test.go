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

package tracing

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	tp := otel.GetTracerProvider()
	mp := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})
}

func TestNewProvider_RecordsSpans(t *testing.T) {
	restoreGlobals(t)
	recorder := tracetest.NewSpanRecorder()

	p, err := NewProvider(context.Background(), Config{
		ServiceName:    "grc-test",
		ServiceVersion: "0.0.1",
		SampleRate:     1,
	}, sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	_, span := otel.Tracer("test").Start(context.Background(), "grc.list_assets")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "grc.list_assets", spans[0].Name())

	var service string
	for _, kv := range spans[0].Resource().Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	assert.Equal(t, "grc-test", service)
}

func TestNewProvider_MetricsHandler(t *testing.T) {
	restoreGlobals(t)

	p, err := NewProvider(context.Background(), Config{ServiceName: "grc-test", SampleRate: 1})
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	counter, err := p.MeterProvider().Meter("test").Int64Counter("grc_test_calls")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	p.MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "grc_test_calls_total")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewExporter(t *testing.T) {
	ctx := context.Background()

	exp, err := NewExporter(ctx, Config{Exporter: ExporterNone})
	require.NoError(t, err)
	assert.Nil(t, exp)

	var buf bytes.Buffer
	exp, err = NewExporter(ctx, Config{Exporter: ExporterStdout, Writer: &buf})
	require.NoError(t, err)
	require.NotNil(t, exp)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	_, span := tp.Tracer("test").Start(ctx, "exported")
	span.End()
	require.NoError(t, tp.Shutdown(ctx))
	assert.True(t, strings.Contains(buf.String(), `"Name":"exported"`))

	_, err = NewExporter(ctx, Config{Exporter: ExporterOTLPHTTP})
	assert.Error(t, err)

	_, err = NewExporter(ctx, Config{Exporter: "zipkin"})
	assert.Error(t, err)

	exp, err = NewExporter(ctx, Config{Exporter: ExporterOTLPGRPC, Endpoint: "localhost:4317", Insecure: true})
	require.NoError(t, err)
	assert.NoError(t, exp.Shutdown(ctx))
}

func TestNewSampler(t *testing.T) {
	assert.Contains(t, NewSampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, NewSampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, NewSampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}
