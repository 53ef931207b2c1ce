package operation

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records connector activity through OpenTelemetry instruments.
// Exported by the Prometheus reader configured in internal/tracing.
type Metrics struct {
	requests metric.Int64Counter
	pages    metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates the connector instruments on the given meter provider.
// A nil provider uses the global one.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter("github.com/tombee/grcconnector/internal/operation")

	m := &Metrics{}
	var err error

	m.requests, err = meter.Int64Counter(
		"grc_operation_requests_total",
		metric.WithDescription("Total number of HTTP requests issued by operations"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.pages, err = meter.Int64Counter(
		"grc_operation_pages_total",
		metric.WithDescription("Total number of list pages fetched"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	m.errors, err = meter.Int64Counter(
		"grc_operation_errors_total",
		metric.WithDescription("Total number of failed operations by error type"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	m.duration, err = meter.Float64Histogram(
		"grc_operation_duration_seconds",
		metric.WithDescription("Operation duration in seconds, across all pages"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRequest records one HTTP request made for an operation.
func (m *Metrics) RecordRequest(ctx context.Context, operation string, statusCode int) {
	if m == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", strconv.Itoa(statusCode)),
	))
}

// RecordPage records one list page fetched for an operation.
func (m *Metrics) RecordPage(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.pages.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordOperation records the outcome and duration of a whole operation.
func (m *Metrics) RecordOperation(ctx context.Context, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	m.duration.Record(ctx, duration.Seconds(), attrs)

	if err != nil {
		errType := "unknown"
		var opErr *Error
		if errors.As(err, &opErr) {
			errType = string(opErr.Type)
		}
		m.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("error_type", errType),
		))
	}
}
