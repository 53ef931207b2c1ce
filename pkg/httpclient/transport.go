package httpclient

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// RequestIDHeader carries the correlation ID shared with the GRC API logs.
const RequestIDHeader = "X-Request-ID"

type loggingTransport struct {
	base      http.RoundTripper
	userAgent string
	logger    *slog.Logger
}

// NewLoggingTransport wraps base so that each request gets a User-Agent, an
// X-Request-ID and the W3C trace headers of its context, and each round trip
// is logged with a redacted URL. A nil base means http.DefaultTransport and
// a nil logger means slog.Default().
func NewLoggingTransport(base http.RoundTripper, userAgent string, logger *slog.Logger) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{base: base, userAgent: userAgent, logger: logger}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	logger := t.logger
	if logger == nil {
		logger = slog.Default()
	}

	out := req.Clone(req.Context())
	if out.Header.Get("User-Agent") == "" {
		out.Header.Set("User-Agent", t.userAgent)
	}
	id := out.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
		out.Header.Set(RequestIDHeader, id)
	}
	otel.GetTextMapPropagator().Inject(out.Context(), propagation.HeaderCarrier(out.Header))

	start := time.Now()
	resp, err := t.base.RoundTrip(out)

	attrs := []slog.Attr{
		slog.String("method", out.Method),
		slog.String("url", RedactURL(out.URL)),
		slog.String("request_id", id),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	}
	if err != nil {
		logger.LogAttrs(out.Context(), slog.LevelWarn, "http round trip failed", append(attrs, slog.String("error", err.Error()))...)
		return nil, err
	}

	level := slog.LevelDebug
	if resp.StatusCode >= http.StatusBadRequest {
		level = slog.LevelWarn
	}
	logger.LogAttrs(out.Context(), level, "http round trip", append(attrs, slog.Int("status", resp.StatusCode))...)
	return resp, nil
}
