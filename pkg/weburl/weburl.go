// Package weburl parses caller-supplied URLs for the HTTP and WebSocket
// engines. It is stricter than net/url: hosts are IDNA-mapped, ports are
// range-checked and every rejection carries a ParseErrorKind.
package weburl

import (
	"errors"
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// MaxLength bounds the accepted input size.
const MaxLength = 64 * 1024

// ParseErrorKind names the reason a URL was rejected.
type ParseErrorKind int

const (
	EmptyHost ParseErrorKind = iota + 1
	IdnaError
	InvalidPort
	InvalidIPv4Address
	InvalidIPv6Address
	InvalidDomainCharacter
	InvalidEscape
	RelativeURLWithoutBase
	RelativeURLWithCannotBeABaseBase
	SetHostOnCannotBeABaseURL
	Overflow
)

var kindNames = map[ParseErrorKind]string{
	EmptyHost:                        "EmptyHost",
	IdnaError:                        "IdnaError",
	InvalidPort:                      "InvalidPort",
	InvalidIPv4Address:               "InvalidIpv4Address",
	InvalidIPv6Address:               "InvalidIpv6Address",
	InvalidDomainCharacter:           "InvalidDomainCharacter",
	InvalidEscape:                    "InvalidEscape",
	RelativeURLWithoutBase:           "RelativeUrlWithoutBase",
	RelativeURLWithCannotBeABaseBase: "RelativeUrlWithCannotBeABaseBase",
	SetHostOnCannotBeABaseURL:        "SetHostOnCannotBeABaseUrl",
	Overflow:                         "Overflow",
}

var kindDescriptions = map[ParseErrorKind]string{
	EmptyHost:                        "empty host",
	IdnaError:                        "invalid international domain name",
	InvalidPort:                      "invalid port number",
	InvalidIPv4Address:               "invalid IPv4 address",
	InvalidIPv6Address:               "invalid IPv6 address",
	InvalidDomainCharacter:           "invalid domain character",
	InvalidEscape:                    "invalid percent-encoding",
	RelativeURLWithoutBase:           "relative URL without a base",
	RelativeURLWithCannotBeABaseBase: "relative URL with a cannot-be-a-base base",
	SetHostOnCannotBeABaseURL:        "a cannot-be-a-base URL doesn't have a host to set",
	Overflow:                         "URLs longer than the supported maximum are not supported",
}

func (k ParseErrorKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "ParseErrorKind(" + strconv.Itoa(int(k)) + ")"
}

// ParseError is returned for every rejected URL.
type ParseError struct {
	Kind  ParseErrorKind
	Input string
	Err   error // underlying net/url or idna error, if any
}

func (e *ParseError) Error() string {
	msg := kindDescriptions[e.Kind]
	if msg == "" {
		msg = e.Kind.String()
	}
	return "weburl: " + msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// GoString renders just the kind, which is what diagnostics show.
func (e *ParseError) GoString() string { return e.Kind.String() }

// Is matches another *ParseError with the same Kind.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind
}

// specialSchemes require a non-empty host.
var specialSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ws":    true,
	"wss":   true,
	"ftp":   true,
	"file":  false,
}

var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.StrictDomainName(false),
)

// Parse parses an absolute URL.
func Parse(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > MaxLength {
		return nil, &ParseError{Kind: Overflow, Input: raw[:64]}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, classify(raw, err)
	}
	if u.Scheme == "" {
		return nil, &ParseError{Kind: RelativeURLWithoutBase, Input: raw}
	}
	if err := normalizeHost(u, raw); err != nil {
		return nil, err
	}
	return u, nil
}

// ParseWithBase resolves ref against base. An empty base behaves like Parse.
func ParseWithBase(base, ref string) (*url.URL, error) {
	if strings.TrimSpace(base) == "" {
		return Parse(ref)
	}
	b, err := Parse(base)
	if err != nil {
		return nil, err
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, classify(ref, err)
	}
	if b.Opaque != "" && !r.IsAbs() {
		return nil, &ParseError{Kind: RelativeURLWithCannotBeABaseBase, Input: ref}
	}
	u := b.ResolveReference(r)
	if err := normalizeHost(u, ref); err != nil {
		return nil, err
	}
	return u, nil
}

// SetHost replaces the host of u after validating it.
func SetHost(u *url.URL, host string) error {
	if u.Opaque != "" {
		return &ParseError{Kind: SetHostOnCannotBeABaseURL, Input: host}
	}
	next := *u
	next.Host = host
	if err := normalizeHost(&next, host); err != nil {
		return err
	}
	*u = next
	return nil
}

func classify(raw string, err error) *ParseError {
	var hostErr url.InvalidHostError
	var escErr url.EscapeError
	msg := err.Error()
	switch {
	case strings.Contains(msg, "invalid port"):
		return &ParseError{Kind: InvalidPort, Input: raw, Err: err}
	case strings.Contains(msg, "IPv6"):
		return &ParseError{Kind: InvalidIPv6Address, Input: raw, Err: err}
	case errors.As(err, &hostErr):
		return &ParseError{Kind: InvalidDomainCharacter, Input: raw, Err: err}
	case errors.As(err, &escErr):
		return &ParseError{Kind: InvalidEscape, Input: raw, Err: err}
	case strings.Contains(msg, "missing protocol scheme"),
		strings.Contains(msg, "first path segment in URL cannot contain colon"):
		return &ParseError{Kind: RelativeURLWithoutBase, Input: raw, Err: err}
	default:
		return &ParseError{Kind: InvalidDomainCharacter, Input: raw, Err: err}
	}
}

func normalizeHost(u *url.URL, raw string) error {
	if u.Opaque != "" {
		return nil
	}
	host := u.Hostname()
	if host == "" {
		if specialSchemes[strings.ToLower(u.Scheme)] {
			return &ParseError{Kind: EmptyHost, Input: raw}
		}
		return nil
	}

	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 65535 {
			return &ParseError{Kind: InvalidPort, Input: raw, Err: err}
		}
	}

	switch {
	case strings.HasPrefix(u.Host, "["):
		addr, err := netip.ParseAddr(host)
		if err != nil || !addr.Is6() {
			return &ParseError{Kind: InvalidIPv6Address, Input: raw, Err: err}
		}
		return nil
	case looksLikeIPv4(host):
		if _, err := netip.ParseAddr(host); err != nil {
			return &ParseError{Kind: InvalidIPv4Address, Input: raw, Err: err}
		}
		return nil
	}

	if i := strings.IndexAny(host, " %<>^|\\#?@"); i >= 0 {
		return &ParseError{Kind: InvalidDomainCharacter, Input: raw}
	}
	ascii, err := hostProfile.ToASCII(host)
	if err != nil {
		return &ParseError{Kind: IdnaError, Input: raw, Err: err}
	}
	if ascii == "" {
		return &ParseError{Kind: EmptyHost, Input: raw}
	}
	if p := u.Port(); p != "" {
		u.Host = net.JoinHostPort(ascii, p)
	} else {
		u.Host = ascii
	}
	return nil
}

// looksLikeIPv4 reports whether the last label is numeric, which makes the
// host an IPv4 literal rather than a domain.
func looksLikeIPv4(host string) bool {
	host = strings.TrimSuffix(host, ".")
	last := host
	if i := strings.LastIndexByte(host, '.'); i >= 0 {
		last = host[i+1:]
	}
	if last == "" {
		return false
	}
	for _, c := range last {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
