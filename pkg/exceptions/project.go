package exceptions

import (
	"slices"

	"github.com/waftester/netbridge/pkg/fault"
)

// BorrowingMessage is the fixed message of a BorrowingError.
const BorrowingMessage = `This value can only be used once and has already been consumed.

This error can occur in the following cases:
1) A response body was read more than once (Bytes, Text, JSON and Stream each consume it).
2) A body stream was requested after the body had already been read.
3) A single-use handle was reused after it was handed to another operation.

Potential solutions:
1) Read the body once and keep the returned value.
2) Send a new request when the body is needed again.
3) Finish with a value before passing it on.
`

// Fixed messages for the remaining payload-free faults.
const (
	ExhaustedMessage    = "The iterator is exhausted"
	DisconnectedMessage = "The WebSocket has been disconnected"
)

// Rule is one step of the engine fault cascade.
type Rule struct {
	Name  string
	Match func(fault.Engine) bool
	Class Class
}

// cascade is tested in order; the first match wins. Name is the predicate's
// method name and prefixes the message. An engine error may
// satisfy several predicates (a dial that timed out is both a connect and a
// timeout fault), so the order is part of the contract.
var cascade = []Rule{
	{"IsBody", fault.Engine.IsBody, ClassBody},
	{"IsConnect", fault.Engine.IsConnect, ClassConnection},
	{"IsConnectionReset", fault.Engine.IsConnectionReset, ClassConnection},
	{"IsDecode", fault.Engine.IsDecode, ClassDecoding},
	{"IsRedirect", fault.Engine.IsRedirect, ClassRedirect},
	{"IsTimeout", fault.Engine.IsTimeout, ClassTimeout},
	{"IsStatus", fault.Engine.IsStatus, ClassStatus},
	{"IsRequest", fault.Engine.IsRequest, ClassRequest},
	{"IsBuilder", fault.Engine.IsBuilder, ClassBuilder},
}

// Cascade returns a copy of the engine fault cascade in evaluation order.
func Cascade() []Rule {
	return slices.Clone(cascade)
}

// Project maps a fault to the exception raised for it. It is total: every
// kind yields exactly one class, and engine faults that match no rule
// become UnknownError. A nil fault projects to nil.
func Project(f *fault.Fault) Exception {
	if f == nil {
		return nil
	}

	switch f.Kind() {
	case fault.ResourceAlreadyConsumed:
		return Wrap(ClassBorrowing, BorrowingMessage, f)
	case fault.IteratorExhausted:
		return Wrap(ClassStopIteration, ExhaustedMessage, f)
	case fault.AsyncIteratorExhausted:
		return Wrap(ClassStopAsyncIteration, ExhaustedMessage, f)
	case fault.StreamDisconnected:
		return Wrap(ClassRuntime, DisconnectedMessage, f)
	case fault.InvalidHeaderName:
		return Wrap(ClassRuntime, "Invalid header name: "+fault.Debug(f.Payload()), f)
	case fault.InvalidHeaderValue:
		return Wrap(ClassRuntime, "Invalid header value: "+fault.Debug(f.Payload()), f)
	case fault.URLMalformed:
		return Wrap(ClassURLParse, "URL parse error: "+fault.Debug(f.Payload()), f)
	case fault.IOFailure:
		return Wrap(ClassRuntime, "IO error: "+fault.Debug(f.Payload()), f)
	case fault.EngineFault:
		if eng, ok := f.Payload().(fault.Engine); ok {
			return classify(eng, f)
		}
	}
	return Wrap(ClassUnknown, "Unknown error occurred: "+fault.Debug(f.Payload()), f)
}

func classify(eng fault.Engine, cause error) Exception {
	for _, r := range cascade {
		if r.Match(eng) {
			return Wrap(r.Class, r.Name+" error: "+fault.Debug(eng), cause)
		}
	}
	return Wrap(ClassUnknown, "Unknown error occurred: "+fault.Debug(eng), cause)
}

// Raise converts any error into the exception the boundary returns for it.
// Exceptions pass through unchanged; nil stays nil.
func Raise(err error) error {
	if err == nil {
		return nil
	}
	if exc, ok := err.(Exception); ok {
		return exc
	}
	return Project(fault.From(err))
}

// ClassOf returns the class of the first exception in err's chain.
func ClassOf(err error) (Class, bool) {
	for err != nil {
		if exc, ok := err.(Exception); ok {
			return exc.Class(), true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0, false
		}
		err = u.Unwrap()
	}
	return 0, false
}
