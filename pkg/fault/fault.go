// Package fault defines the closed set of failures the binding can produce.
//
// Every fallible operation at the binding boundary ends in exactly one Kind.
// Four kinds carry no payload and are raised explicitly by the call site
// that detects the misuse (Consumed, Exhausted, AsyncExhausted,
// Disconnected). The remaining five wrap the foreign error unchanged so it
// can be rendered later.
//
// A Fault is a transient carrier: it is built where the failure happens and
// handed once to exceptions.Project. Nothing here performs I/O or keeps
// state, so all functions are safe for concurrent use.
package fault

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/waftester/netbridge/pkg/header"
	"github.com/waftester/netbridge/pkg/weburl"
)

// Kind identifies a Fault variant.
type Kind uint8

const (
	// ResourceAlreadyConsumed: a single-use value was used a second time.
	ResourceAlreadyConsumed Kind = iota + 1
	// IteratorExhausted: a synchronous iterator was advanced past its end.
	IteratorExhausted
	// AsyncIteratorExhausted: an asynchronous iterator was advanced past its end.
	AsyncIteratorExhausted
	// StreamDisconnected: a duplex stream was used after the peer closed it.
	StreamDisconnected
	// InvalidHeaderName wraps *header.InvalidNameError.
	InvalidHeaderName
	// InvalidHeaderValue wraps *header.InvalidValueError.
	InvalidHeaderValue
	// URLMalformed wraps *weburl.ParseError.
	URLMalformed
	// IOFailure wraps an I/O error raised outside the engine's error channel.
	IOFailure
	// EngineFault wraps an opaque engine error (see Engine).
	EngineFault
)

var kindNames = [...]string{
	ResourceAlreadyConsumed: "ResourceAlreadyConsumed",
	IteratorExhausted:       "IteratorExhausted",
	AsyncIteratorExhausted:  "AsyncIteratorExhausted",
	StreamDisconnected:      "StreamDisconnected",
	InvalidHeaderName:       "InvalidHeaderName",
	InvalidHeaderValue:      "InvalidHeaderValue",
	URLMalformed:            "URLMalformed",
	IOFailure:               "IOFailure",
	EngineFault:             "EngineFault",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Nullary reports whether the kind carries no payload.
func (k Kind) Nullary() bool {
	return k >= ResourceAlreadyConsumed && k <= StreamDisconnected
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		ResourceAlreadyConsumed,
		IteratorExhausted,
		AsyncIteratorExhausted,
		StreamDisconnected,
		InvalidHeaderName,
		InvalidHeaderValue,
		URLMalformed,
		IOFailure,
		EngineFault,
	}
}

// Engine is the contract an engine error satisfies. Classification only
// ever goes through these predicates; fields are never inspected.
type Engine interface {
	error
	IsBody() bool
	IsConnect() bool
	IsConnectionReset() bool
	IsDecode() bool
	IsRedirect() bool
	IsTimeout() bool
	IsStatus() bool
	IsRequest() bool
	IsBuilder() bool
}

// Fault is one classified failure.
type Fault struct {
	kind Kind
	err  error
}

// Kind returns the variant.
func (f *Fault) Kind() Kind { return f.kind }

// Payload returns the wrapped foreign error, nil for nullary kinds.
func (f *Fault) Payload() error { return f.err }

func (f *Fault) Error() string {
	if f.err == nil {
		return "fault: " + f.kind.String()
	}
	return "fault: " + f.kind.String() + ": " + f.err.Error()
}

func (f *Fault) Unwrap() error { return f.err }

// Consumed signals reuse of a single-use value.
func Consumed() *Fault { return &Fault{kind: ResourceAlreadyConsumed} }

// Exhausted signals a synchronous iterator advanced past its end.
func Exhausted() *Fault { return &Fault{kind: IteratorExhausted} }

// AsyncExhausted signals an asynchronous iterator advanced past its end.
func AsyncExhausted() *Fault { return &Fault{kind: AsyncIteratorExhausted} }

// Disconnected signals use of a duplex stream after the peer closed it.
func Disconnected() *Fault { return &Fault{kind: StreamDisconnected} }

// FromHeaderName converts a header name fault.
func FromHeaderName(err *header.InvalidNameError) *Fault {
	return &Fault{kind: InvalidHeaderName, err: err}
}

// FromHeaderValue converts a header value fault.
func FromHeaderValue(err *header.InvalidValueError) *Fault {
	return &Fault{kind: InvalidHeaderValue, err: err}
}

// FromURL converts a URL parse fault.
func FromURL(err *weburl.ParseError) *Fault {
	return &Fault{kind: URLMalformed, err: err}
}

// FromIO converts an I/O fault.
func FromIO(err error) *Fault {
	return &Fault{kind: IOFailure, err: err}
}

// FromEngine converts an engine fault.
func FromEngine(err Engine) *Fault {
	return &Fault{kind: EngineFault, err: err}
}

// From classifies an arbitrary error. The order matters: engine errors may
// carry a URL or header fault as their source, and must stay engine faults.
// Errors matching none of the foreign types are I/O failures.
func From(err error) *Fault {
	if err == nil {
		return nil
	}

	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	var eng Engine
	if errors.As(err, &eng) {
		return FromEngine(eng)
	}
	var nameErr *header.InvalidNameError
	if errors.As(err, &nameErr) {
		return FromHeaderName(nameErr)
	}
	var valueErr *header.InvalidValueError
	if errors.As(err, &valueErr) {
		return FromHeaderValue(valueErr)
	}
	var urlErr *weburl.ParseError
	if errors.As(err, &urlErr) {
		return FromURL(urlErr)
	}
	return FromIO(err)
}

// IsKind reports whether err classifies as k.
func IsKind(err error, k Kind) bool {
	f := From(err)
	return f != nil && f.kind == k
}

// Debug renders v for diagnostics. Values implementing fmt.GoStringer
// control their own rendering; anything else shows its dynamic type and
// its text.
func Debug(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case fmt.GoStringer:
		return x.GoString()
	case error:
		return fmt.Sprintf("%T(%q)", x, x.Error())
	case fmt.Stringer:
		return fmt.Sprintf("%T(%q)", x, x.String())
	default:
		return fmt.Sprintf("%#v", x)
	}
}
