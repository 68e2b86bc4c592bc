package engine

// This file implements proxy URL parsing and SOCKS dialer creation.
//
// Supported proxy schemes:
//   - http://   HTTP CONNECT proxy
//   - https://  HTTPS CONNECT proxy
//   - socks5:// SOCKS5 proxy (local DNS resolution)
//   - socks5h:// SOCKS5 proxy with remote DNS resolution

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

var supportedProxySchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true, // resolve on the proxy side
}

// ProxyConfig holds a parsed proxy URL.
type ProxyConfig struct {
	URL         *url.URL
	Scheme      string
	Host        string
	Port        string
	Username    string
	Password    string
	IsSOCKS     bool
	IsDNSRemote bool
}

// ParseProxyURL validates and parses a proxy URL string.
// Returns nil, nil if proxyURL is empty (no proxy configured).
// A missing scheme defaults to http://.
func ParseProxyURL(proxyURL string) (*ProxyConfig, error) {
	if proxyURL == "" {
		return nil, nil
	}
	if !strings.Contains(proxyURL, "://") {
		proxyURL = "http://" + proxyURL
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !supportedProxySchemes[scheme] {
		return nil, fmt.Errorf("unsupported proxy scheme %q, supported: http, https, socks5, socks5h", scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("proxy URL missing host")
	}
	port := parsed.Port()
	if port == "" {
		switch scheme {
		case "http":
			port = "8080"
		case "https":
			port = "8443"
		default:
			port = "1080"
		}
	}

	cfg := &ProxyConfig{
		URL:         parsed,
		Scheme:      scheme,
		Host:        host,
		Port:        port,
		IsSOCKS:     strings.HasPrefix(scheme, "socks"),
		IsDNSRemote: scheme == "socks5h",
	}
	if parsed.User != nil {
		cfg.Username = parsed.User.Username()
		cfg.Password, _ = parsed.User.Password()
	}
	return cfg, nil
}

// Address returns the proxy address in host:port form.
func (p *ProxyConfig) Address() string {
	if p == nil {
		return ""
	}
	return net.JoinHostPort(p.Host, p.Port)
}

// ContextDialer is the dialer shape http.Transport expects.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// socksDialer wraps a proxy.Dialer with a timeout and tags failures with
// ErrProxyConnect. SOCKS dialers do not all honour contexts, so the dial
// runs in a goroutine.
type socksDialer struct {
	dialer  proxy.Dialer
	timeout time.Duration
	// lookup resolves hostnames locally before tunnelling; nil leaves
	// resolution to the proxy (socks5h).
	lookup func(ctx context.Context, host string) ([]string, error)
}

func (d *socksDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if d.lookup != nil {
		if host, port, err := net.SplitHostPort(address); err == nil && net.ParseIP(host) == nil {
			addrs, err := d.lookup(ctx, host)
			if err != nil {
				return nil, &ConnectError{Addr: address, Err: err}
			}
			address = net.JoinHostPort(addrs[0], port)
		}
	}

	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		var r result
		if cd, ok := d.dialer.(proxy.ContextDialer); ok {
			r.conn, r.err = cd.DialContext(ctx, network, address)
		} else {
			r.conn, r.err = d.dialer.Dial(network, address)
		}
		select {
		case ch <- r:
		case <-ctx.Done():
			if r.conn != nil {
				r.conn.Close()
			}
		}
	}()

	select {
	case <-ctx.Done():
		return nil, &ConnectError{Addr: address, Err: fmt.Errorf("%w: %w", ErrProxyConnect, ctx.Err())}
	case r := <-ch:
		if r.err != nil {
			return nil, &ConnectError{Addr: address, Err: fmt.Errorf("%w: %w", ErrProxyConnect, r.err)}
		}
		return r.conn, nil
	}
}

// newSOCKSDialer creates a SOCKS5 dialer that tunnels through cfg using
// forward for the connection to the proxy itself.
func newSOCKSDialer(cfg *ProxyConfig, forward proxy.Dialer, timeout time.Duration, dns *DNSCache) (ContextDialer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("proxy config is nil")
	}
	u := &url.URL{Scheme: "socks5", Host: cfg.Address()}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	d, err := proxy.FromURL(u, forward)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS dialer: %w", err)
	}
	sd := &socksDialer{dialer: d, timeout: timeout}
	if !cfg.IsDNSRemote && dns != nil {
		sd.lookup = dns.LookupHostString
	}
	return sd, nil
}
