// Package exceptions declares the error types raised across the binding
// boundary and the projector that selects one for every fault.
//
// Each failure category is a distinct type so callers can discriminate with
// errors.As. Network-origin errors share the BaseError marker:
//
//	var base exceptions.BaseError
//	if errors.As(err, &base) {
//	    // any failure coming from the transport or protocol layer
//	}
//
//	var timeout *exceptions.TimeoutError
//	if errors.As(err, &timeout) {
//	    // only timeouts
//	}
//
// Usage errors (BorrowingError, StopIteration, StopAsyncIteration and
// RuntimeError) sit outside the BaseError root: they report misuse of a
// single-use or stateful value, not a network condition.
package exceptions

import "strconv"

// Class identifies an exception type.
type Class uint8

const (
	ClassBody Class = iota + 1
	ClassBuilder
	ClassConnection
	ClassDecoding
	ClassRedirect
	ClassTimeout
	ClassStatus
	ClassRequest
	ClassUnknown
	ClassBorrowing
	ClassDNSResolver
	ClassStopIteration
	ClassStopAsyncIteration
	ClassRuntime
	ClassHTTPMethodParse
	ClassURLParse
	ClassMIMEParse
)

var classNames = [...]string{
	ClassBody:               "BodyError",
	ClassBuilder:            "BuilderError",
	ClassConnection:         "ConnectionError",
	ClassDecoding:           "DecodingError",
	ClassRedirect:           "RedirectError",
	ClassTimeout:            "TimeoutError",
	ClassStatus:             "StatusError",
	ClassRequest:            "RequestError",
	ClassUnknown:            "UnknownError",
	ClassBorrowing:          "BorrowingError",
	ClassDNSResolver:        "DNSResolverError",
	ClassStopIteration:      "StopIteration",
	ClassStopAsyncIteration: "StopAsyncIteration",
	ClassRuntime:            "RuntimeError",
	ClassHTTPMethodParse:    "HTTPMethodParseError",
	ClassURLParse:           "URLParseError",
	ClassMIMEParse:          "MIMEParseError",
}

// String returns the exported type name of the class.
func (c Class) String() string {
	if c > 0 && int(c) < len(classNames) {
		return classNames[c]
	}
	return "Class(" + strconv.Itoa(int(c)) + ")"
}

// Network reports whether the class is under the BaseError root.
func (c Class) Network() bool {
	return c >= ClassBody && c <= ClassUnknown
}

// Classes returns every class in declaration order.
func Classes() []Class {
	out := make([]Class, 0, len(classNames)-1)
	for c := ClassBody; c <= ClassMIMEParse; c++ {
		out = append(out, c)
	}
	return out
}

// Exception is implemented by every error type in this package.
type Exception interface {
	error
	Class() Class
}

// BaseError is the root of network-origin errors.
type BaseError interface {
	Exception
	baseError()
}

// Runtime is implemented by RuntimeError and the classes that specialise a
// runtime failure (BorrowingError, DNSResolverError).
type Runtime interface {
	Exception
	runtimeError()
}

// exception holds what every type shares: the message and the originating
// fault, if any.
type exception struct {
	msg   string
	cause error
}

func (e *exception) Error() string   { return e.msg }
func (e *exception) Unwrap() error   { return e.cause }
func (e *exception) Message() string { return e.msg }

type network struct{ exception }

func (*network) baseError() {}

type runtime struct{ exception }

func (*runtime) runtimeError() {}

// Network-origin errors.
type (
	BodyError       struct{ network }
	BuilderError    struct{ network }
	ConnectionError struct{ network }
	DecodingError   struct{ network }
	RedirectError   struct{ network }
	TimeoutError    struct{ network }
	StatusError     struct{ network }
	RequestError    struct{ network }
	UnknownError    struct{ network }
)

// Usage and runtime errors.
type (
	BorrowingError     struct{ runtime }
	DNSResolverError   struct{ runtime }
	RuntimeError       struct{ runtime }
	StopIteration      struct{ exception }
	StopAsyncIteration struct{ exception }
)

// Parse errors raised by the parsing utilities.
type (
	HTTPMethodParseError struct{ exception }
	URLParseError        struct{ exception }
	MIMEParseError       struct{ exception }
)

func (*BodyError) Class() Class            { return ClassBody }
func (*BuilderError) Class() Class         { return ClassBuilder }
func (*ConnectionError) Class() Class      { return ClassConnection }
func (*DecodingError) Class() Class        { return ClassDecoding }
func (*RedirectError) Class() Class        { return ClassRedirect }
func (*TimeoutError) Class() Class         { return ClassTimeout }
func (*StatusError) Class() Class          { return ClassStatus }
func (*RequestError) Class() Class         { return ClassRequest }
func (*UnknownError) Class() Class         { return ClassUnknown }
func (*BorrowingError) Class() Class       { return ClassBorrowing }
func (*DNSResolverError) Class() Class     { return ClassDNSResolver }
func (*RuntimeError) Class() Class         { return ClassRuntime }
func (*StopIteration) Class() Class        { return ClassStopIteration }
func (*StopAsyncIteration) Class() Class   { return ClassStopAsyncIteration }
func (*HTTPMethodParseError) Class() Class { return ClassHTTPMethodParse }
func (*URLParseError) Class() Class        { return ClassURLParse }
func (*MIMEParseError) Class() Class       { return ClassMIMEParse }

// New constructs an exception of class c carrying msg. An unknown class
// yields an UnknownError.
func New(c Class, msg string) Exception {
	return Wrap(c, msg, nil)
}

// Wrap is New with an underlying cause exposed through Unwrap.
func Wrap(c Class, msg string, cause error) Exception {
	e := exception{msg: msg, cause: cause}
	n := network{e}
	r := runtime{e}
	switch c {
	case ClassBody:
		return &BodyError{n}
	case ClassBuilder:
		return &BuilderError{n}
	case ClassConnection:
		return &ConnectionError{n}
	case ClassDecoding:
		return &DecodingError{n}
	case ClassRedirect:
		return &RedirectError{n}
	case ClassTimeout:
		return &TimeoutError{n}
	case ClassStatus:
		return &StatusError{n}
	case ClassRequest:
		return &RequestError{n}
	case ClassBorrowing:
		return &BorrowingError{r}
	case ClassDNSResolver:
		return &DNSResolverError{r}
	case ClassRuntime:
		return &RuntimeError{r}
	case ClassStopIteration:
		return &StopIteration{e}
	case ClassStopAsyncIteration:
		return &StopAsyncIteration{e}
	case ClassHTTPMethodParse:
		return &HTTPMethodParseError{e}
	case ClassURLParse:
		return &URLParseError{e}
	case ClassMIMEParse:
		return &MIMEParseError{e}
	default:
		return &UnknownError{n}
	}
}
