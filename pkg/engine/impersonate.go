package engine

// This file implements browser TLS fingerprint impersonation. The
// ClientHello of a real browser is replayed with uTLS so the handshake
// matches what servers expect from that browser.

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"

	"github.com/waftester/netbridge/pkg/defaults"
)

// Profile is a browser fingerprint: a ClientHello and the headers that
// browser sends by default.
type Profile struct {
	Name        string
	UserAgent   string
	ClientHello *utls.ClientHelloID
	Headers     map[string]string
}

// DefaultProfiles returns the built-in browser profiles.
func DefaultProfiles() []*Profile {
	chromeHeaders := map[string]string{
		"Accept":             "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":    "en-US,en;q=0.9",
		"Sec-Ch-Ua":          `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
		"Sec-Ch-Ua-Mobile":   "?0",
		"Sec-Ch-Ua-Platform": `"Windows"`,
	}
	firefoxHeaders := map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	}
	return []*Profile{
		{
			Name:        "chrome_120",
			UserAgent:   defaults.UAChrome,
			ClientHello: &utls.HelloChrome_120,
			Headers:     chromeHeaders,
		},
		{
			Name:        "chrome_106",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/106.0.0.0 Safari/537.36",
			ClientHello: &utls.HelloChrome_106_Shuffle,
			Headers:     chromeHeaders,
		},
		{
			Name:        "firefox_120",
			UserAgent:   defaults.UAFirefox,
			ClientHello: &utls.HelloFirefox_120,
			Headers:     firefoxHeaders,
		},
		{
			Name:        "safari_16",
			UserAgent:   defaults.UASafari,
			ClientHello: &utls.HelloSafari_16_0,
		},
		{
			Name:        "edge_106",
			UserAgent:   defaults.UAEdge,
			ClientHello: &utls.HelloEdge_106,
			Headers:     chromeHeaders,
		},
		{
			Name:        "randomized",
			UserAgent:   defaults.UAChrome,
			ClientHello: &utls.HelloRandomizedNoALPN,
		},
	}
}

// ProfileNames lists the built-in profile names.
func ProfileNames() []string {
	profiles := DefaultProfiles()
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}

// ProfileByName looks up a built-in profile, case-insensitively.
func ProfileByName(name string) (*Profile, error) {
	for _, p := range DefaultProfiles() {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown impersonation profile %q (available: %s)", name, strings.Join(ProfileNames(), ", "))
}

// impersonatingTLSDialer returns a DialTLSContext func that performs the
// handshake with the profile's ClientHello over connections from dial.
func impersonatingTLSDialer(p *Profile, dial ContextDialer, base *tls.Config, handshakeTimeout time.Duration) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		conn, err := dial.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		cfg := &utls.Config{
			ServerName:         host,
			InsecureSkipVerify: base.InsecureSkipVerify,
			RootCAs:            base.RootCAs,
		}

		uConn, err := newUConn(conn, cfg, *p.ClientHello)
		if err != nil {
			conn.Close()
			return nil, &ConnectError{Addr: addr, Err: fmt.Errorf("%w: %w", ErrTLS, err)}
		}

		deadline := time.Now().Add(handshakeTimeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		_ = conn.SetDeadline(deadline)
		if err := uConn.Handshake(); err != nil {
			conn.Close()
			return nil, &ConnectError{Addr: addr, Err: fmt.Errorf("%w: %w", ErrTLS, err)}
		}
		_ = conn.SetDeadline(time.Time{})
		return uConn, nil
	}
}

// newUConn builds a uTLS client for id with ALPN pinned to http/1.1:
// net/http only speaks HTTP/2 over *tls.Conn, so advertising h2 on a uTLS
// connection would break the exchange.
func newUConn(conn net.Conn, cfg *utls.Config, id utls.ClientHelloID) (*utls.UConn, error) {
	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		// Randomized IDs have no static ClientHello; profiles only use the NoALPN variant.
		return utls.UClient(conn, cfg, id), nil
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	uConn := utls.UClient(conn, cfg, utls.HelloCustom)
	if err := uConn.ApplyPreset(&spec); err != nil {
		return nil, err
	}
	return uConn, nil
}
