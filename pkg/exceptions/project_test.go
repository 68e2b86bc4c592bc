package exceptions

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/netbridge/pkg/fault"
	"github.com/waftester/netbridge/pkg/header"
	"github.com/waftester/netbridge/pkg/weburl"
)

// synthetic is an engine error with a fixed set of true predicates.
type synthetic map[string]bool

func (s synthetic) Error() string           { return "synthetic engine error" }
func (s synthetic) GoString() string        { return "Synthetic" }
func (s synthetic) IsBody() bool            { return s["body"] }
func (s synthetic) IsConnect() bool         { return s["connect"] }
func (s synthetic) IsConnectionReset() bool { return s["reset"] }
func (s synthetic) IsDecode() bool          { return s["decode"] }
func (s synthetic) IsRedirect() bool        { return s["redirect"] }
func (s synthetic) IsTimeout() bool         { return s["timeout"] }
func (s synthetic) IsStatus() bool          { return s["status"] }
func (s synthetic) IsRequest() bool         { return s["request"] }
func (s synthetic) IsBuilder() bool         { return s["builder"] }

func engineFault(preds ...string) *fault.Fault {
	s := synthetic{}
	for _, p := range preds {
		s[p] = true
	}
	return fault.FromEngine(s)
}

func payloadFault(k fault.Kind) *fault.Fault {
	switch k {
	case fault.ResourceAlreadyConsumed:
		return fault.Consumed()
	case fault.IteratorExhausted:
		return fault.Exhausted()
	case fault.AsyncIteratorExhausted:
		return fault.AsyncExhausted()
	case fault.StreamDisconnected:
		return fault.Disconnected()
	case fault.InvalidHeaderName:
		return fault.FromHeaderName(&header.InvalidNameError{Name: "a b", Reason: "space"})
	case fault.InvalidHeaderValue:
		return fault.FromHeaderValue(&header.InvalidValueError{Name: "A", Reason: "ctl"})
	case fault.URLMalformed:
		return fault.FromURL(&weburl.ParseError{Kind: weburl.EmptyHost})
	case fault.IOFailure:
		return fault.FromIO(fs.ErrPermission)
	case fault.EngineFault:
		return engineFault("request")
	}
	panic("unhandled kind " + k.String())
}

func TestProject_Totality(t *testing.T) {
	t.Parallel()

	for _, k := range fault.Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			exc := Project(payloadFault(k))
			require.NotNil(t, exc)
			assert.NotEmpty(t, exc.Error())
			assert.NotContains(t, exc.Class().String(), "Class(")
		})
	}
	assert.Nil(t, Project(nil))
}

func TestProject_FixedClasses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind    fault.Kind
		class   Class
		message string
	}{
		{fault.ResourceAlreadyConsumed, ClassBorrowing, BorrowingMessage},
		{fault.IteratorExhausted, ClassStopIteration, "The iterator is exhausted"},
		{fault.AsyncIteratorExhausted, ClassStopAsyncIteration, "The iterator is exhausted"},
		{fault.StreamDisconnected, ClassRuntime, "The WebSocket has been disconnected"},
		{fault.InvalidHeaderName, ClassRuntime, `Invalid header name: InvalidHeaderName { name: "a b", reason: "space" }`},
		{fault.InvalidHeaderValue, ClassRuntime, `Invalid header value: InvalidHeaderValue { name: "A", reason: "ctl" }`},
		{fault.URLMalformed, ClassURLParse, "URL parse error: EmptyHost"},
		{fault.IOFailure, ClassRuntime, `IO error: *errors.errorString("permission denied")`},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			exc := Project(payloadFault(tt.kind))
			assert.Equal(t, tt.class, exc.Class())
			assert.Equal(t, tt.message, exc.Error())
		})
	}
}

func TestProject_UsageErrorsOutsideBaseError(t *testing.T) {
	t.Parallel()

	for _, k := range []fault.Kind{
		fault.ResourceAlreadyConsumed,
		fault.IteratorExhausted,
		fault.AsyncIteratorExhausted,
		fault.StreamDisconnected,
	} {
		exc := Project(payloadFault(k))
		var base BaseError
		assert.False(t, errors.As(exc, &base), "%s must not be a BaseError", k)
		assert.False(t, exc.Class().Network())
	}

	var borrowing *BorrowingError
	require.ErrorAs(t, Project(fault.Consumed()), &borrowing)
	var rt Runtime
	assert.ErrorAs(t, borrowing, &rt, "BorrowingError specialises a runtime failure")

	var stop *StopIteration
	assert.ErrorAs(t, Project(fault.Exhausted()), &stop)
	var stopAsync *StopAsyncIteration
	assert.ErrorAs(t, Project(fault.AsyncExhausted()), &stopAsync)
	assert.False(t, errors.As(Project(fault.Exhausted()), &stopAsync))
}

func TestProject_CascadeSingle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pred  string
		class Class
		name  string
	}{
		{"body", ClassBody, "IsBody"},
		{"connect", ClassConnection, "IsConnect"},
		{"reset", ClassConnection, "IsConnectionReset"},
		{"decode", ClassDecoding, "IsDecode"},
		{"redirect", ClassRedirect, "IsRedirect"},
		{"timeout", ClassTimeout, "IsTimeout"},
		{"status", ClassStatus, "IsStatus"},
		{"request", ClassRequest, "IsRequest"},
		{"builder", ClassBuilder, "IsBuilder"},
	}

	for _, tt := range tests {
		t.Run(tt.pred, func(t *testing.T) {
			exc := Project(engineFault(tt.pred))
			assert.Equal(t, tt.class, exc.Class())
			assert.Equal(t, tt.name+" error: Synthetic", exc.Error())
			var base BaseError
			assert.ErrorAs(t, exc, &base)
		})
	}
}

func TestProject_CascadeOrder(t *testing.T) {
	t.Parallel()

	exc := Project(engineFault("connect", "timeout"))
	assert.Equal(t, ClassConnection, exc.Class())
	var conn *ConnectionError
	assert.ErrorAs(t, exc, &conn)
	var timeout *TimeoutError
	assert.False(t, errors.As(exc, &timeout))

	assert.Equal(t, ClassBody, Project(engineFault("builder", "body", "timeout")).Class())
	assert.Equal(t, ClassTimeout, Project(engineFault("timeout", "request")).Class())
	assert.Equal(t, ClassStatus, Project(engineFault("request", "status")).Class())
}

func TestCascade_OrderIsDocumented(t *testing.T) {
	t.Parallel()

	var names []string
	for _, r := range Cascade() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{
		"IsBody", "IsConnect", "IsConnectionReset", "IsDecode", "IsRedirect",
		"IsTimeout", "IsStatus", "IsRequest", "IsBuilder",
	}, names)

	c := Cascade()
	c[0] = Rule{}
	assert.Equal(t, "IsBody", Cascade()[0].Name, "Cascade must return a copy")
}

func TestProject_Fallback(t *testing.T) {
	t.Parallel()

	exc := Project(engineFault())
	assert.Equal(t, ClassUnknown, exc.Class())
	assert.True(t, strings.HasPrefix(exc.Error(), "Unknown error occurred:"))
	assert.Equal(t, "Unknown error occurred: Synthetic", exc.Error())
	var base BaseError
	assert.ErrorAs(t, exc, &base)
}

func TestProject_Deterministic(t *testing.T) {
	t.Parallel()

	f := engineFault("redirect", "status", "request")
	want := Project(f).Class()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, want, Project(f).Class())
			}
		}()
	}
	wg.Wait()
}

func TestProject_HeaderFaultsInjective(t *testing.T) {
	t.Parallel()

	name := Project(fault.From(&header.InvalidNameError{Name: "x y"}))
	value := Project(fault.From(&header.InvalidValueError{Name: "X"}))
	assert.True(t, strings.HasPrefix(name.Error(), "Invalid header name:"))
	assert.True(t, strings.HasPrefix(value.Error(), "Invalid header value:"))
}

func TestProject_KeepsCause(t *testing.T) {
	t.Parallel()

	urlErr := &weburl.ParseError{Kind: weburl.InvalidPort}
	exc := Project(fault.FromURL(urlErr))
	var pe *weburl.ParseError
	require.ErrorAs(t, exc, &pe)
	assert.Same(t, urlErr, pe)
	assert.True(t, fault.IsKind(exc, fault.URLMalformed))
}

func TestRaise(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Raise(nil))

	exc := New(ClassStatus, "already raised")
	assert.Same(t, exc, Raise(exc))

	err := Raise(fmt.Errorf("read config: %w", fs.ErrNotExist))
	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.True(t, strings.HasPrefix(err.Error(), "IO error: "))
}

func TestClassOf(t *testing.T) {
	t.Parallel()

	c, ok := ClassOf(fmt.Errorf("outer: %w", New(ClassTimeout, "slow")))
	require.True(t, ok)
	assert.Equal(t, ClassTimeout, c)

	_, ok = ClassOf(errors.New("plain"))
	assert.False(t, ok)
}
