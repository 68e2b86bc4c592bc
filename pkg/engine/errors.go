package engine

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// Sentinel errors for connector failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrProxyConnect indicates the client failed to connect through
	// the configured proxy (SOCKS5, HTTP).
	ErrProxyConnect = errors.New("engine: proxy connection failed")

	// ErrDNS indicates a DNS resolution failure for the target host.
	ErrDNS = errors.New("engine: DNS resolution failed")

	// ErrTLS indicates a TLS handshake or certificate verification failure.
	ErrTLS = errors.New("engine: TLS handshake failed")

	// ErrResolver indicates the resolver configuration is unusable
	// (malformed nameserver address, unsupported network).
	ErrResolver = errors.New("engine: invalid resolver configuration")

	// ErrTooManyRedirects is the source of a redirect error raised when the
	// redirect limit is exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Kind is the stage of a request at which an Error was raised.
type Kind uint8

const (
	KindBuilder Kind = iota + 1
	KindRequest
	KindRedirect
	KindStatus
	KindBody
	KindDecode
	KindUpgrade
)

func (k Kind) String() string {
	switch k {
	case KindBuilder:
		return "Builder"
	case KindRequest:
		return "Request"
	case KindRedirect:
		return "Redirect"
	case KindStatus:
		return "Status"
	case KindBody:
		return "Body"
	case KindDecode:
		return "Decode"
	case KindUpgrade:
		return "Upgrade"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Error is every failure the engine returns. Callers classify it through
// the Is* predicates, which may overlap: a dial that times out is both a
// connect and a timeout error.
type Error struct {
	kind   Kind
	url    *url.URL
	status int
	source error
}

// NewError builds an Error. It is exported for the protocol packages built
// on top of the engine (websocket).
func NewError(kind Kind, u *url.URL, source error) *Error {
	return &Error{kind: kind, url: u, source: source}
}

func builderError(err error) *Error { return NewError(KindBuilder, nil, err) }

func statusError(u *url.URL, code int) *Error {
	return &Error{kind: KindStatus, url: u, status: code}
}

// Kind returns the stage that failed.
func (e *Error) Kind() Kind { return e.kind }

// URL returns the request URL, if known.
func (e *Error) URL() *url.URL { return e.url }

// StatusCode returns the HTTP status for status errors, 0 otherwise.
func (e *Error) StatusCode() int { return e.status }

func (e *Error) Unwrap() error { return e.source }

func (e *Error) Error() string {
	var b strings.Builder
	switch e.kind {
	case KindBuilder:
		b.WriteString("builder error")
	case KindRequest:
		b.WriteString("error sending request")
	case KindRedirect:
		b.WriteString("error following redirect")
	case KindStatus:
		prefix := "HTTP status server error"
		if e.status < 500 {
			prefix = "HTTP status client error"
		}
		fmt.Fprintf(&b, "%s (%d %s)", prefix, e.status, http.StatusText(e.status))
	case KindBody:
		b.WriteString("request or response body error")
	case KindDecode:
		b.WriteString("error decoding response body")
	case KindUpgrade:
		b.WriteString("error upgrading connection")
	default:
		b.WriteString("engine error")
	}
	if e.url != nil {
		fmt.Fprintf(&b, " for url (%s)", e.url.Redacted())
	}
	if e.source != nil {
		b.WriteString(": ")
		b.WriteString(e.source.Error())
	}
	return b.String()
}

// GoString is the diagnostic rendering embedded in exception messages.
func (e *Error) GoString() string {
	var b strings.Builder
	b.WriteString("engine.Error { kind: ")
	b.WriteString(e.kind.String())
	if e.url != nil {
		fmt.Fprintf(&b, ", url: %q", e.url.Redacted())
	}
	if e.status != 0 {
		fmt.Fprintf(&b, ", status: %d", e.status)
	}
	if e.source != nil {
		fmt.Fprintf(&b, ", source: %T(%q)", e.source, e.source.Error())
	}
	b.WriteString(" }")
	return b.String()
}

func (e *Error) IsBuilder() bool  { return e.kind == KindBuilder }
func (e *Error) IsRequest() bool  { return e.kind == KindRequest }
func (e *Error) IsRedirect() bool { return e.kind == KindRedirect }
func (e *Error) IsStatus() bool   { return e.kind == KindStatus }
func (e *Error) IsBody() bool     { return e.kind == KindBody }
func (e *Error) IsDecode() bool   { return e.kind == KindDecode }
func (e *Error) IsUpgrade() bool  { return e.kind == KindUpgrade }

// IsTimeout reports whether a deadline expired anywhere in the chain.
func (e *Error) IsTimeout() bool {
	return anyInChain(e.source, func(err error) bool {
		if err == context.DeadlineExceeded || err == os.ErrDeadlineExceeded {
			return true
		}
		if ne, ok := err.(net.Error); ok {
			return ne.Timeout()
		}
		return false
	})
}

// IsConnect reports whether the failure happened while establishing the
// connection: dialing, proxy negotiation, DNS or the TLS handshake.
func (e *Error) IsConnect() bool {
	return anyInChain(e.source, func(err error) bool {
		switch x := err.(type) {
		case *ConnectError, *net.DNSError, *tls.CertificateVerificationError,
			x509.UnknownAuthorityError, x509.HostnameError, x509.CertificateInvalidError:
			return true
		case *net.OpError:
			return x.Op == "dial" || x.Op == "proxyconnect"
		}
		return err == ErrProxyConnect || err == ErrDNS || err == ErrTLS
	})
}

// IsConnectionReset reports whether the peer reset the connection.
func (e *Error) IsConnectionReset() bool {
	return errors.Is(e.source, syscall.ECONNRESET)
}

// ConnectError wraps every failure raised by the engine's dialers.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// anyInChain walks err's wrap tree depth-first and reports whether match
// holds for any node.
func anyInChain(err error, match func(error) bool) bool {
	for err != nil {
		if match(err) {
			return true
		}
		switch x := err.(type) {
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				if anyInChain(inner, match) {
					return true
				}
			}
			return false
		default:
			return false
		}
	}
	return false
}
