package fault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/netbridge/pkg/header"
	"github.com/waftester/netbridge/pkg/weburl"
)

// stubEngine is an engine error whose predicates are all false except the
// ones named in set.
type stubEngine struct {
	set    map[string]bool
	source error
}

func (s *stubEngine) Error() string           { return "stub engine error" }
func (s *stubEngine) Unwrap() error           { return s.source }
func (s *stubEngine) IsBody() bool            { return s.set["body"] }
func (s *stubEngine) IsConnect() bool         { return s.set["connect"] }
func (s *stubEngine) IsConnectionReset() bool { return s.set["reset"] }
func (s *stubEngine) IsDecode() bool          { return s.set["decode"] }
func (s *stubEngine) IsRedirect() bool        { return s.set["redirect"] }
func (s *stubEngine) IsTimeout() bool         { return s.set["timeout"] }
func (s *stubEngine) IsStatus() bool          { return s.set["status"] }
func (s *stubEngine) IsRequest() bool         { return s.set["request"] }
func (s *stubEngine) IsBuilder() bool         { return s.set["builder"] }

func TestKinds_ClosedAndNamed(t *testing.T) {
	t.Parallel()

	kinds := Kinds()
	require.Len(t, kinds, 9)
	seen := map[string]bool{}
	for _, k := range kinds {
		name := k.String()
		assert.NotContains(t, name, "Kind(", "kind %d has no name", k)
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
	assert.Equal(t, "Kind(0)", Kind(0).String())
}

func TestNullaryConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		f    *Fault
		want Kind
	}{
		{Consumed(), ResourceAlreadyConsumed},
		{Exhausted(), IteratorExhausted},
		{AsyncExhausted(), AsyncIteratorExhausted},
		{Disconnected(), StreamDisconnected},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.f.Kind())
		assert.True(t, tt.f.Kind().Nullary())
		assert.Nil(t, tt.f.Payload())
		assert.Equal(t, "fault: "+tt.want.String(), tt.f.Error())
	}
}

func TestFrom_SelectsExactlyOneKind(t *testing.T) {
	t.Parallel()

	nameErr := &header.InvalidNameError{Name: "a b", Reason: "space"}
	valueErr := &header.InvalidValueError{Name: "A", Reason: "ctl"}
	urlErr := &weburl.ParseError{Kind: weburl.EmptyHost}
	ioErr := &fs.PathError{Op: "open", Path: "/missing", Err: fs.ErrNotExist}
	eng := &stubEngine{set: map[string]bool{"timeout": true}}

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"header name", nameErr, InvalidHeaderName},
		{"header value", valueErr, InvalidHeaderValue},
		{"url", urlErr, URLMalformed},
		{"io", ioErr, IOFailure},
		{"engine", eng, EngineFault},
		{"wrapped header name", fmt.Errorf("building request: %w", nameErr), InvalidHeaderName},
		{"engine wrapping url fault", &stubEngine{source: urlErr}, EngineFault},
		{"already classified", Disconnected(), StreamDisconnected},
		{"plain error", errors.New("disk on fire"), IOFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := From(tt.err)
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.Kind())
			if !tt.want.Nullary() {
				assert.NotNil(t, f.Payload(), "payload must be preserved")
			}
		})
	}

	assert.Nil(t, From(nil))
}

func TestFrom_HeaderFaultsAreNotInterchangeable(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, InvalidHeaderValue, From(&header.InvalidNameError{Name: "x y"}).Kind())
	assert.NotEqual(t, InvalidHeaderName, From(&header.InvalidValueError{Name: "X"}).Kind())
}

func TestFrom_PreservesPayloadIdentity(t *testing.T) {
	t.Parallel()

	ioErr := &os.SyscallError{Syscall: "read", Err: fs.ErrClosed}
	f := From(ioErr)
	assert.Same(t, ioErr, f.Payload())
	assert.ErrorIs(t, f, fs.ErrClosed)
}

func TestIsKind(t *testing.T) {
	t.Parallel()

	assert.True(t, IsKind(Exhausted(), IteratorExhausted))
	assert.True(t, IsKind(fmt.Errorf("ctx: %w", AsyncExhausted()), AsyncIteratorExhausted))
	assert.False(t, IsKind(nil, IOFailure))
	assert.False(t, IsKind(Exhausted(), AsyncIteratorExhausted))
}

func TestDebug(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "EmptyHost", Debug(&weburl.ParseError{Kind: weburl.EmptyHost}))
	assert.Equal(t, `*errors.errorString("boom")`, Debug(errors.New("boom")))
	assert.Equal(t, "nil", Debug(nil))
	assert.Equal(t, "42", Debug(42))
}
