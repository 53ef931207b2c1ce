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

// Package config loads the connector configuration from YAML, a .env file
// and environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tombee/grcconnector/internal/operation/transport"
	"github.com/tombee/grcconnector/internal/secrets"
	pkgerrors "github.com/tombee/grcconnector/pkg/errors"
)

// Auth types.
const (
	AuthTypeToken  = "token"
	AuthTypeOAuth2 = "oauth2"
)

// Tracing exporters.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// Config represents the complete connector configuration.
type Config struct {
	// BaseURL is the tenant's API root (e.g. https://acme.grc.example.com/api/v1).
	// Environment: GRC_BASE_URL
	BaseURL string `yaml:"base_url"`

	Auth AuthConfig `yaml:"auth"`

	// PageSize is the per_page value used when paging through lists (1-100).
	// Environment: GRC_PAGE_SIZE
	// Default: 100
	PageSize int `yaml:"page_size"`

	// Timeout is the per-request HTTP timeout.
	// Environment: GRC_TIMEOUT
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	Retry          RetryConfig          `yaml:"retry"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Log            LogConfig            `yaml:"log"`
	Tracing        TracingConfig        `yaml:"tracing"`
	Server         ServerConfig         `yaml:"server"`
}

// AuthConfig configures how requests are authenticated.
type AuthConfig struct {
	// Type is "token" (static bearer token) or "oauth2" (client credentials).
	Type string `yaml:"type"`

	// Token is the bearer token or a secret reference (env:, file:, keychain:, ${VAR}).
	// Environment: GRC_API_TOKEN
	Token string `yaml:"token,omitempty"`

	// ClientID, ClientSecret, TokenURL and Scopes configure oauth2.
	// Environment: GRC_CLIENT_ID, GRC_CLIENT_SECRET, GRC_TOKEN_URL
	ClientID     string   `yaml:"client_id,omitempty"`
	ClientSecret string   `yaml:"client_secret,omitempty"`
	TokenURL     string   `yaml:"token_url,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`
}

// RetryConfig configures transport retries.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// RateLimitConfig configures client-side throttling. Zero disables it.
type RateLimitConfig struct {
	// RequestsPerSecond. Environment: GRC_RATE_LIMIT
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// CircuitBreakerConfig configures the circuit breaker around the API.
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold float64       `yaml:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests"`
	Timeout          time.Duration `yaml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the log level (trace, debug, info, warn, error).
	Level string `yaml:"level"`

	// Format is the log format (json, text).
	Format string `yaml:"format"`

	// AddSource adds source file information to log entries.
	AddSource bool `yaml:"add_source"`
}

// TracingConfig configures OpenTelemetry trace export.
type TracingConfig struct {
	// Exporter is none, stdout, otlp-http or otlp-grpc.
	// Environment: GRC_TRACING_EXPORTER
	Exporter string `yaml:"exporter"`

	// Endpoint is the collector address for OTLP exporters.
	// Environment: GRC_TRACING_ENDPOINT
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// SampleRate is the fraction of traces recorded (0-1).
	SampleRate float64 `yaml:"sample_rate"`
}

// ServerConfig configures the HTTP host started by `grc serve`.
type ServerConfig struct {
	// Addr is the listen address.
	// Environment: GRC_LISTEN_ADDR
	Addr string `yaml:"addr"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Auth:     AuthConfig{Type: AuthTypeToken},
		PageSize: 100,
		Timeout:  30 * time.Second,
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 0.6,
			MinRequests:      5,
			Timeout:          60 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Exporter:   ExporterNone,
			SampleRate: 1.0,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load reads configuration from configPath (or the default location when
// empty), a .env file in the working directory and the environment, then
// validates it. A missing default config file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if err := loadDotEnv(".env"); err != nil {
		return nil, &pkgerrors.ConfigError{Key: "dotenv", Reason: fmt.Sprintf("failed to load .env: %v", err), Cause: err}
	}

	explicit := configPath != ""
	if !explicit {
		if p, err := ConfigPath(); err == nil {
			configPath = p
		}
	}

	if configPath != "" {
		err := cfg.loadFromFile(configPath)
		if err != nil && (explicit || !errors.Is(err, os.ErrNotExist)) {
			return nil, &pkgerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s: %v", configPath, err),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs from path without overriding variables
// that are already set. A missing file is ignored.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// applyDefaults fills zero values left by a minimal config file.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Auth.Type == "" {
		c.Auth.Type = def.Auth.Type
	}
	if c.PageSize == 0 {
		c.PageSize = def.PageSize
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = def.Retry
	}
	if c.CircuitBreaker.FailureThreshold == 0 {
		c.CircuitBreaker.FailureThreshold = def.CircuitBreaker.FailureThreshold
	}
	if c.CircuitBreaker.MinRequests == 0 {
		c.CircuitBreaker.MinRequests = def.CircuitBreaker.MinRequests
	}
	if c.CircuitBreaker.Timeout == 0 {
		c.CircuitBreaker.Timeout = def.CircuitBreaker.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = def.Tracing.Exporter
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = def.Tracing.SampleRate
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
}

// loadFromEnv loads configuration from environment variables.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("GRC_BASE_URL"); val != "" {
		c.BaseURL = val
	}
	if val := os.Getenv("GRC_API_TOKEN"); val != "" {
		c.Auth.Token = val
	}
	if val := os.Getenv("GRC_CLIENT_ID"); val != "" {
		c.Auth.ClientID = val
	}
	if val := os.Getenv("GRC_CLIENT_SECRET"); val != "" {
		c.Auth.ClientSecret = val
	}
	if val := os.Getenv("GRC_TOKEN_URL"); val != "" {
		c.Auth.TokenURL = val
	}
	if val := os.Getenv("GRC_AUTH_TYPE"); val != "" {
		c.Auth.Type = strings.ToLower(val)
	}
	if val := os.Getenv("GRC_PAGE_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			c.PageSize = size
		}
	}
	if val := os.Getenv("GRC_TIMEOUT"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			c.Timeout = duration
		}
	}
	if val := os.Getenv("GRC_RATE_LIMIT"); val != "" {
		if rps, err := strconv.ParseFloat(val, 64); err == nil {
			c.RateLimit.RequestsPerSecond = rps
		}
	}
	if val := os.Getenv("GRC_TRACING_EXPORTER"); val != "" {
		c.Tracing.Exporter = strings.ToLower(val)
	}
	if val := os.Getenv("GRC_TRACING_ENDPOINT"); val != "" {
		c.Tracing.Endpoint = val
	}
	if val := os.Getenv("GRC_LISTEN_ADDR"); val != "" {
		c.Server.Addr = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
}

// Validate checks that the configuration is valid. All problems are
// reported, each as a *errors.ConfigError.
func (c *Config) Validate() error {
	var errs []error
	add := func(key, reason string) {
		errs = append(errs, &pkgerrors.ConfigError{Key: key, Reason: reason})
	}

	if c.BaseURL == "" {
		add("base_url", "must be set (or export GRC_BASE_URL)")
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		add("base_url", "must be an absolute http(s) URL")
	}

	switch c.Auth.Type {
	case AuthTypeToken:
		if c.Auth.Token == "" {
			add("auth.token", "must be set (run 'grc auth login' or export GRC_API_TOKEN)")
		}
	case AuthTypeOAuth2:
		if c.Auth.ClientID == "" {
			add("auth.client_id", "is required for oauth2")
		}
		if c.Auth.ClientSecret == "" {
			add("auth.client_secret", "is required for oauth2")
		}
		if c.Auth.TokenURL == "" {
			add("auth.token_url", "is required for oauth2")
		}
	default:
		add("auth.type", fmt.Sprintf("unknown auth type %q (must be token or oauth2)", c.Auth.Type))
	}

	if c.PageSize < 1 || c.PageSize > 100 {
		add("page_size", fmt.Sprintf("must be between 1 and 100, got %d", c.PageSize))
	}
	if c.Timeout < 0 {
		add("timeout", "must not be negative")
	}
	if c.Retry.MaxAttempts < 1 {
		add("retry.max_attempts", "must be at least 1")
	}
	if c.Retry.MaxBackoff < c.Retry.InitialBackoff {
		add("retry.max_backoff", "must be >= retry.initial_backoff")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		add("rate_limit", "values must not be negative")
	}
	if t := c.CircuitBreaker.FailureThreshold; t <= 0 || t > 1 {
		add("circuit_breaker.failure_threshold", "must be in (0, 1]")
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		add("log.format", fmt.Sprintf("unknown format %q (must be json or text)", c.Log.Format))
	}

	switch c.Tracing.Exporter {
	case ExporterNone, ExporterStdout:
	case ExporterOTLPHTTP, ExporterOTLPGRPC:
		if c.Tracing.Endpoint == "" {
			add("tracing.endpoint", fmt.Sprintf("is required for the %s exporter", c.Tracing.Exporter))
		}
	default:
		add("tracing.exporter", fmt.Sprintf("unknown exporter %q", c.Tracing.Exporter))
	}
	if r := c.Tracing.SampleRate; r < 0 || r > 1 {
		add("tracing.sample_rate", "must be between 0 and 1")
	}

	return errors.Join(errs...)
}

// ResolveSecrets replaces secret references in the auth section with their
// values.
func (c *Config) ResolveSecrets(ctx context.Context, reg *secrets.Registry) error {
	for key, field := range map[string]*string{
		"auth.token":         &c.Auth.Token,
		"auth.client_secret": &c.Auth.ClientSecret,
	} {
		value, err := reg.Resolve(ctx, *field)
		if err != nil {
			return &pkgerrors.ConfigError{Key: key, Reason: err.Error(), Cause: err}
		}
		*field = value
	}
	return nil
}

// TransportConfig returns the HTTP transport configuration. Secrets must
// be resolved first.
func (c *Config) TransportConfig() *transport.HTTPTransportConfig {
	tc := &transport.HTTPTransportConfig{
		BaseURL:   c.BaseURL,
		Timeout:   c.Timeout,
		UserAgent: c.UserAgent,
		RetryConfig: &transport.RetryConfig{
			MaxAttempts:     c.Retry.MaxAttempts,
			InitialBackoff:  c.Retry.InitialBackoff,
			MaxBackoff:      c.Retry.MaxBackoff,
			BackoffFactor:   2.0,
			RetryableErrors: transport.DefaultRetryConfig().RetryableErrors,
		},
	}

	switch c.Auth.Type {
	case AuthTypeOAuth2:
		tc.Auth = &transport.AuthConfig{
			Type:         transport.AuthTypeOAuth2,
			ClientID:     c.Auth.ClientID,
			ClientSecret: c.Auth.ClientSecret,
			TokenURL:     c.Auth.TokenURL,
			Scopes:       c.Auth.Scopes,
		}
	default:
		tc.Auth = &transport.AuthConfig{Type: transport.AuthTypeBearer, Token: c.Auth.Token}
	}
	return tc
}

// RateLimitConfig returns the transport rate limit settings.
func (c *Config) RateLimitConfig() transport.RateLimitConfig {
	return transport.RateLimitConfig{
		RequestsPerSecond: c.RateLimit.RequestsPerSecond,
		Burst:             c.RateLimit.Burst,
	}
}

// BreakerConfig returns the circuit breaker settings.
func (c *Config) BreakerConfig() transport.BreakerConfig {
	bc := transport.DefaultBreakerConfig()
	bc.FailureThreshold = c.CircuitBreaker.FailureThreshold
	bc.MinRequests = c.CircuitBreaker.MinRequests
	bc.Timeout = c.CircuitBreaker.Timeout
	return bc
}
