package httpclient

import (
	"log/slog"
	"time"

	pkgerrors "github.com/tombee/grcconnector/pkg/errors"
)

// DefaultUserAgent identifies the connector to the GRC API.
const DefaultUserAgent = "grc-connector/1.0"

// Config holds the settings of a client built by New.
type Config struct {
	// Timeout bounds a whole request, body included. Must be positive.
	Timeout time.Duration

	// UserAgent is sent when the caller did not set one. Must be non-empty.
	UserAgent string

	// TLSInsecure skips certificate checks. Local mock servers only.
	TLSInsecure bool

	// MaxConnsPerHost caps idle keep-alive connections to the GRC host.
	MaxConnsPerHost int

	// Logger receives one line per round trip. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the client settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		UserAgent:       DefaultUserAgent,
		MaxConnsPerHost: 10,
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case c.Timeout <= 0:
		return &pkgerrors.ConfigError{Key: "timeout", Reason: "must be positive, got " + c.Timeout.String()}
	case c.UserAgent == "":
		return &pkgerrors.ConfigError{Key: "user_agent", Reason: "must not be empty"}
	case c.MaxConnsPerHost < 0:
		return &pkgerrors.ConfigError{Key: "max_conns_per_host", Reason: "must not be negative"}
	}
	return nil
}
