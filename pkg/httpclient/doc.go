// Package httpclient builds the *http.Client behind the GRC transport.
//
// The client enforces TLS 1.2 or later and wraps its round tripper with
// request correlation and logging. Logged URLs go through RedactURL so that
// tokens passed as query parameters never reach the logs.
//
//	cfg := httpclient.DefaultConfig()
//	cfg.Logger = logger
//	client, err := httpclient.New(cfg)
//
// Retries belong to the operation transport, not to this client, so that
// each attempt is seen by the rate limiter and the circuit breaker.
package httpclient
