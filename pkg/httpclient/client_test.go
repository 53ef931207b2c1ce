package httpclient

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/tombee/grcconnector/pkg/errors"
)

func TestNew(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 5 * time.Second

	client, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, client.Timeout)
	assert.IsType(t, &loggingTransport{}, client.Transport)
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		key  string
	}{
		{"zero timeout", Config{UserAgent: "x"}, "timeout"},
		{"negative timeout", Config{Timeout: -time.Second, UserAgent: "x"}, "timeout"},
		{"empty user agent", Config{Timeout: time.Second}, "user_agent"},
		{"negative conns", Config{Timeout: time.Second, UserAgent: "x", MaxConnsPerHost: -1}, "max_conns_per_host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.cfg)
			require.Error(t, err)
			assert.Nil(t, client)

			var cfgErr *pkgerrors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestLoggingTransport_SetsHeaders(t *testing.T) {
	var gotUA, gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotID = r.Header.Get(RequestIDHeader)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := NewLoggingTransport(nil, "grc-test/1.0", slog.New(slog.DiscardHandler)).RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "grc-test/1.0", gotUA)
	_, err = uuid.Parse(gotID)
	assert.NoError(t, err, "expected a generated UUID, got %q", gotID)
	assert.Empty(t, req.Header.Get(RequestIDHeader), "caller request must not be mutated")
}

func TestLoggingTransport_KeepsCallerHeaders(t *testing.T) {
	var gotUA, gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotID = r.Header.Get(RequestIDHeader)
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("User-Agent", "custom/2.0")
	req.Header.Set(RequestIDHeader, "req-42")

	resp, err := NewLoggingTransport(http.DefaultTransport, "grc-test/1.0", slog.New(slog.DiscardHandler)).RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "custom/2.0", gotUA)
	assert.Equal(t, "req-42", gotID)
}

func TestLoggingTransport_LogsRedactedURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/risks?access_token=abc&page=2", nil)
	resp, err := NewLoggingTransport(nil, "grc-test/1.0", logger).RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
	assert.Equal(t, server.URL+"/risks?access_token=%5BREDACTED%5D&page=2", entry["url"])
}
