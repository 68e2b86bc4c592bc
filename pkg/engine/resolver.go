package engine

// This file implements DNS caching and custom nameserver support for the
// engine's dialer.

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"github.com/waftester/netbridge/pkg/duration"
)

// DNSCache provides thread-safe caching of DNS lookups.
type DNSCache struct {
	cache        sync.Map // map[string]*cacheEntry
	resolver     *net.Resolver
	ttl          time.Duration
	negativeTTL  time.Duration
	stopEviction chan struct{}
	stopOnce     sync.Once
}

type cacheEntry struct {
	mu        sync.RWMutex
	addrs     []string
	err       error
	expiresAt time.Time
}

// NewDNSCache creates a cache. When nameservers is non-empty, lookups go to
// those servers (host:port, port defaults to 53) instead of the system
// configuration; malformed entries fail with ErrResolver.
//
// A background goroutine evicts expired entries every 2*ttl. Call Close to
// stop it.
func NewDNSCache(ttl, negativeTTL time.Duration, nameservers []string) (*DNSCache, error) {
	resolver, err := newResolver(nameservers)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = duration.DNSCache
	}
	if negativeTTL <= 0 {
		negativeTTL = duration.DNSNegative
	}
	d := &DNSCache{
		resolver:     resolver,
		ttl:          ttl,
		negativeTTL:  negativeTTL,
		stopEviction: make(chan struct{}),
	}
	go d.evictionLoop(2 * ttl)
	return d, nil
}

func newResolver(nameservers []string) (*net.Resolver, error) {
	if len(nameservers) == 0 {
		return &net.Resolver{PreferGo: true}, nil
	}
	servers := make([]string, 0, len(nameservers))
	for _, ns := range nameservers {
		host, port, err := net.SplitHostPort(ns)
		if err != nil {
			host, port = ns, "53"
		}
		if net.ParseIP(host) == nil {
			return nil, fmt.Errorf("%w: nameserver %q is not an IP address", ErrResolver, ns)
		}
		if _, err := net.LookupPort("udp", port); err != nil {
			return nil, fmt.Errorf("%w: nameserver %q has invalid port: %w", ErrResolver, ns, err)
		}
		servers = append(servers, net.JoinHostPort(host, port))
	}
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, servers[rand.IntN(len(servers))])
		},
	}, nil
}

// Close stops the background eviction goroutine.
func (d *DNSCache) Close() {
	d.stopOnce.Do(func() { close(d.stopEviction) })
}

func (d *DNSCache) evictionLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopEviction:
			return
		case <-ticker.C:
			now := time.Now()
			d.cache.Range(func(key, value any) bool {
				entry, ok := value.(*cacheEntry)
				if !ok {
					d.cache.Delete(key)
					return true
				}
				entry.mu.RLock()
				expired := now.After(entry.expiresAt)
				entry.mu.RUnlock()
				if expired {
					d.cache.Delete(key)
				}
				return true
			})
		}
	}
}

// LookupHostString returns cached addresses for host, refreshing expired
// or missing entries. Failures are cached for negativeTTL unless the
// context was cancelled.
func (d *DNSCache) LookupHostString(ctx context.Context, host string) ([]string, error) {
	if v, ok := d.cache.Load(host); ok {
		if e, ok := v.(*cacheEntry); ok {
			e.mu.RLock()
			if time.Now().Before(e.expiresAt) {
				addrs, err := e.addrs, e.err
				e.mu.RUnlock()
				return addrs, err
			}
			e.mu.RUnlock()
		}
	}
	return d.refresh(ctx, host)
}

func (d *DNSCache) refresh(ctx context.Context, host string) ([]string, error) {
	v, _ := d.cache.LoadOrStore(host, &cacheEntry{})
	entry, ok := v.(*cacheEntry)
	if !ok {
		return nil, fmt.Errorf("dnscache: corrupt entry type %T for host %s", v, host)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if time.Now().Before(entry.expiresAt) {
		return entry.addrs, entry.err
	}

	addrs, err := d.resolver.LookupHost(ctx, host)
	if err == nil && len(addrs) == 0 {
		err = fmt.Errorf("dnscache: no addresses for host %s", host)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrDNS, err)
		if ctx.Err() != nil {
			return nil, err
		}
		entry.addrs = nil
		entry.err = err
		entry.expiresAt = time.Now().Add(d.negativeTTL)
		return nil, err
	}

	entry.addrs = addrs
	entry.err = nil
	entry.expiresAt = time.Now().Add(d.ttl)
	return addrs, nil
}

// Invalidate removes a host from the cache.
func (d *DNSCache) Invalidate(host string) {
	d.cache.Delete(host)
}

// Len returns the number of cached hosts, expired or not.
func (d *DNSCache) Len() int {
	n := 0
	d.cache.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// cachingDialer dials through the DNS cache and wraps every failure in a
// ConnectError.
type cachingDialer struct {
	cache  *DNSCache
	dialer *net.Dialer
}

func newCachingDialer(cache *DNSCache, timeout time.Duration) *cachingDialer {
	return &cachingDialer{
		cache: cache,
		dialer: &net.Dialer{
			Timeout:   timeout,
			KeepAlive: duration.KeepAlive,
		},
	}
}

// DialContext is compatible with http.Transport.DialContext.
func (d *cachingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil || net.ParseIP(host) != nil {
		conn, err := d.dialer.DialContext(ctx, network, address)
		if err != nil {
			return nil, &ConnectError{Addr: address, Err: err}
		}
		return conn, nil
	}

	addrs, err := d.cache.LookupHostString(ctx, host)
	if err != nil {
		return nil, &ConnectError{Addr: address, Err: err}
	}

	var lastErr error
	for _, ip := range addrs {
		conn, err := d.dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	// Every address failed; the cached answer may be stale.
	d.cache.Invalidate(host)
	return nil, &ConnectError{Addr: address, Err: lastErr}
}
