// Package engine is the HTTP networking engine behind netbridge: a pooled
// client with proxy, DNS, rate limiting and TLS fingerprint support whose
// failures are all *Error values.
package engine

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/waftester/netbridge/pkg/defaults"
	"github.com/waftester/netbridge/pkg/duration"
	"github.com/waftester/netbridge/pkg/iohelper"
)

// Config holds client configuration. Zero values take the defaults listed
// on each field.
type Config struct {
	// Timeout is the total request timeout (default: 30s)
	Timeout time.Duration

	// DialTimeout is the timeout for establishing connections (default: 10s)
	DialTimeout time.Duration

	// TLSHandshakeTimeout is the timeout for the TLS handshake (default: 10s)
	TLSHandshakeTimeout time.Duration

	// IdleConnTimeout is how long idle connections stay in the pool (default: 90s)
	IdleConnTimeout time.Duration

	// MaxIdleConns is the idle pool size across all hosts (default: 100)
	MaxIdleConns int

	// MaxConnsPerHost is the maximum connections per host (default: 25)
	MaxConnsPerHost int

	// DisableKeepAlives disables HTTP keep-alives
	DisableKeepAlives bool

	// InsecureSkipVerify skips TLS certificate verification
	InsecureSkipVerify bool

	// CACertFile is a PEM bundle of trusted roots; empty uses the system
	// roots
	CACertFile string

	// Proxy is the proxy URL: http, https, socks5 or socks5h (optional)
	Proxy string

	// MaxRedirects is the redirect limit (default: 10); negative disables
	// following redirects
	MaxRedirects int

	// Resolvers are DNS servers (ip or ip:port) used instead of the system
	// configuration
	Resolvers []string

	// DNSCacheTTL is how long lookups are cached (default: 5m)
	DNSCacheTTL time.Duration

	// RateLimit is the maximum requests per second; 0 is unlimited
	RateLimit float64

	// RateBurst is the limiter burst (default: 1)
	RateBurst int

	// Impersonate names a browser TLS profile (see ProfileNames)
	Impersonate string

	// UserAgent overrides the default or profile user agent
	UserAgent string

	// DefaultHeaders are sent with every request unless overridden
	DefaultHeaders http.Header

	// MaxBodySize bounds Response.Bytes and friends (default: 32MB)
	MaxBodySize int64
}

// DefaultConfig returns the defaults New applies to zero fields.
func DefaultConfig() Config {
	return Config{
		Timeout:             duration.Request,
		DialTimeout:         duration.Dial,
		TLSHandshakeTimeout: duration.TLSHandshake,
		IdleConnTimeout:     duration.IdleConn,
		MaxIdleConns:        defaults.MaxIdleConns,
		MaxConnsPerHost:     defaults.MaxConnsPerHost,
		MaxRedirects:        defaults.MaxRedirects,
		DNSCacheTTL:         duration.DNSCache,
		RateBurst:           defaults.RateBurst,
		MaxBodySize:         iohelper.DefaultMaxBodySize,
	}
}

func (cfg *Config) applyDefaults() {
	d := DefaultConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = d.DialTimeout
	}
	if cfg.TLSHandshakeTimeout == 0 {
		cfg.TLSHandshakeTimeout = d.TLSHandshakeTimeout
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = d.IdleConnTimeout
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = d.MaxIdleConns
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = d.MaxConnsPerHost
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = d.MaxRedirects
	}
	if cfg.DNSCacheTTL == 0 {
		cfg.DNSCacheTTL = d.DNSCacheTTL
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = d.RateBurst
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = d.MaxBodySize
	}
}

// Client sends requests. It is safe for concurrent use.
type Client struct {
	cfg       Config
	http      *http.Client
	transport *http.Transport
	dialer    ContextDialer
	tlsConfig *tls.Config
	profile   *Profile
	limiter   *rate.Limiter // nil when unlimited
	dns       *DNSCache
}

// New creates a client. Invalid configuration is reported as a builder
// Error; an unusable resolver list additionally wraps ErrResolver.
func New(cfg Config) (*Client, error) {
	cfg.applyDefaults()

	dns, err := NewDNSCache(cfg.DNSCacheTTL, 0, cfg.Resolvers)
	if err != nil {
		return nil, builderError(err)
	}
	c, err := build(cfg, dns)
	if err != nil {
		dns.Close()
		return nil, builderError(err)
	}
	return c, nil
}

func build(cfg Config, dns *DNSCache) (*Client, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}
	if cfg.CACertFile != "" {
		pool, err := loadCertPool(cfg.CACertFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = pool
	}

	var dialer ContextDialer = newCachingDialer(dns, cfg.DialTimeout)

	transport := &http.Transport{
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		DisableKeepAlives:     cfg.DisableKeepAlives,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: duration.ExpectContinue,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		TLSClientConfig:       tlsConfig,
	}

	pc, err := ParseProxyURL(cfg.Proxy)
	if err != nil {
		return nil, err
	}
	if pc != nil {
		if pc.IsSOCKS {
			forward := &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: duration.KeepAlive}
			dialer, err = newSOCKSDialer(pc, forward, cfg.DialTimeout, dns)
			if err != nil {
				return nil, err
			}
		} else {
			transport.Proxy = http.ProxyURL(pc.URL)
		}
	}
	transport.DialContext = dialer.DialContext

	var profile *Profile
	if cfg.Impersonate != "" {
		profile, err = ProfileByName(cfg.Impersonate)
		if err != nil {
			return nil, err
		}
		if pc != nil && !pc.IsSOCKS {
			return nil, fmt.Errorf("impersonation cannot be combined with an %s proxy", pc.Scheme)
		}
		transport.DialTLSContext = impersonatingTLSDialer(profile, dialer, tlsConfig, cfg.TLSHandshakeTimeout)
		transport.ForceAttemptHTTP2 = false
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	maxRedirects := cfg.MaxRedirects
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if maxRedirects < 0 {
					return http.ErrUseLastResponse
				}
				if len(via) > maxRedirects {
					return ErrTooManyRedirects
				}
				return nil
			},
		},
		transport: transport,
		dialer:    dialer,
		tlsConfig: tlsConfig,
		profile:   profile,
		limiter:   limiter,
		dns:       dns,
	}, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("CA bundle %s contains no certificates", path)
	}
	return pool, nil
}

// Do sends req. A non-2xx status is not an error; see
// Response.ErrorForStatus.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, cancel, err := req.build(ctx, c)
	if err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(httpReq.Context()); err != nil {
			cancel()
			return nil, NewError(KindRequest, req.url, fmt.Errorf("rate limit: %w", err))
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		cancel()
		if resp != nil {
			iohelper.DrainAndClose(resp.Body)
		}
		if errors.Is(err, ErrTooManyRedirects) {
			return nil, NewError(KindRedirect, req.url, err)
		}
		return nil, NewError(KindRequest, req.url, err)
	}
	return newResponse(resp, cancel, c.cfg.MaxBodySize), nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Profile returns the impersonation profile, or nil.
func (c *Client) Profile() *Profile { return c.profile }

// Dialer returns the connection dialer (DNS cache and proxy applied) for
// protocols layered on the engine.
func (c *Client) Dialer() ContextDialer { return c.dialer }

// TLSConfig returns a copy of the client TLS configuration.
func (c *Client) TLSConfig() *tls.Config { return c.tlsConfig.Clone() }

// UserAgent returns the User-Agent sent when a request sets none.
func (c *Client) UserAgent() string {
	switch {
	case c.cfg.UserAgent != "":
		return c.cfg.UserAgent
	case c.profile != nil:
		return c.profile.UserAgent
	}
	return defaults.UAMinimal
}

// DNSCache returns the client's lookup cache.
func (c *Client) DNSCache() *DNSCache { return c.dns }

// Close releases pooled connections and stops the DNS cache.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
	c.dns.Close()
}
