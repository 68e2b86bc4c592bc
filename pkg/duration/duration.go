// Package duration provides the canonical time constants for netbridge.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.Request)
//	cfg.DialTimeout = duration.Dial
//
// Reference these constants instead of hardcoding time.Duration values.
package duration

import "time"

// ============================================================================
// HTTP CLIENT TIMEOUTS
// ============================================================================
//
// Defaults applied by engine.New for zero-valued Config fields.
// ============================================================================

const (
	// Request is the total request timeout (30s)
	Request = 30 * time.Second

	// Dial is for establishing TCP connections (10s)
	Dial = 10 * time.Second

	// KeepAlive is the TCP keep-alive interval (30s)
	KeepAlive = 30 * time.Second

	// IdleConn is how long idle pooled connections are kept (90s)
	IdleConn = 90 * time.Second

	// TLSHandshake is for the TLS handshake (10s)
	TLSHandshake = 10 * time.Second

	// ExpectContinue is how long to wait for a 100-continue (1s)
	ExpectContinue = 1 * time.Second
)

// ============================================================================
// DNS
// ============================================================================

const (
	// DNSCache is how long successful lookups are cached (5min)
	DNSCache = 5 * time.Minute

	// DNSNegative is how long failed lookups are cached (30s)
	DNSNegative = 30 * time.Second
)

// ============================================================================
// WEBSOCKET
// ============================================================================

const (
	// WebSocketHandshake bounds the opening handshake (10s)
	WebSocketHandshake = 10 * time.Second

	// WebSocketClose bounds writing the close frame (1s)
	WebSocketClose = 1 * time.Second
)

// ============================================================================
// PROCESS LIFECYCLE
// ============================================================================

const (
	// Shutdown bounds flushing exporters and stopping servers (5s)
	Shutdown = 5 * time.Second

	// MetricsReadHeader is the metrics server ReadHeaderTimeout (5s)
	MetricsReadHeader = 5 * time.Second
)
