// Package defaults provides canonical default values for netbridge.
//
// Usage:
//
//	cfg.MaxRedirects = defaults.MaxRedirects
//	req.Header.Set("Content-Type", defaults.ContentTypeJSON)
//
// Reference these constants instead of hardcoding values.
package defaults

import "fmt"

// Version is the current netbridge version
const Version = "0.3.1"

// ToolName is used in user agents and telemetry resource attributes
const ToolName = "netbridge"

// ============================================================================
// CLIENT LIMITS
// ============================================================================

const (
	// MaxRedirects is the redirect limit applied when none is configured (10)
	MaxRedirects = 10

	// MaxIdleConns is the idle connection pool size across hosts (100)
	MaxIdleConns = 100

	// MaxConnsPerHost is the connection limit per host (25)
	MaxConnsPerHost = 25

	// RateBurst is the limiter burst when a rate is configured (1)
	RateBurst = 1
)

// ============================================================================
// BUFFER SIZES
// ============================================================================

const (
	// ChunkSize is the read size used by body iterators (16KB)
	ChunkSize = 16 * 1024

	// WebSocketFrameMax bounds a single received WebSocket message (16MB)
	WebSocketFrameMax = 16 * 1024 * 1024
)

// ============================================================================
// HTTP CONTENT TYPES
// ============================================================================

const (
	// ContentTypeJSON is application/json
	ContentTypeJSON = "application/json"

	// ContentTypeForm is application/x-www-form-urlencoded
	ContentTypeForm = "application/x-www-form-urlencoded"

	// ContentTypeOctetStream is application/octet-stream
	ContentTypeOctetStream = "application/octet-stream"
)

// ============================================================================
// USER AGENTS
// ============================================================================

const (
	// UAChrome is a Chrome user agent
	UAChrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// UAFirefox is a Firefox user agent
	UAFirefox = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0"

	// UASafari is a Safari user agent
	UASafari = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Safari/605.1.15"

	// UAEdge is an Edge user agent
	UAEdge = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/106.0.0.0 Safari/537.36 Edg/106.0.1370.34"

	// UAMinimal is the netbridge user agent
	UAMinimal = ToolName + "/" + Version
)

// UserAgent returns the netbridge user agent with context
func UserAgent(context string) string {
	if context == "" {
		return UAMinimal
	}
	return fmt.Sprintf("%s/%s (%s)", ToolName, Version, context)
}
