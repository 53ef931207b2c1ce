package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// New returns an *http.Client for talking to the GRC API. Every request
// passes through the observing round tripper; see NewLoggingTransport.
func New(cfg Config) (*http.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: &loggingTransport{
			base:      baseTransport(cfg),
			userAgent: cfg.UserAgent,
			logger:    cfg.Logger,
		},
		Timeout: cfg.Timeout,
	}, nil
}

func baseTransport(cfg Config) *http.Transport {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}

	perHost := cfg.MaxConnsPerHost
	if perHost == 0 {
		perHost = DefaultConfig().MaxConnsPerHost
	}

	return &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.TLSInsecure, //nolint:gosec // opt-in for local mocks
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          perHost * 4,
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
	}
}
