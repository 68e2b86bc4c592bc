package exceptions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClasses_NewRoundTrip(t *testing.T) {
	t.Parallel()

	classes := Classes()
	require.Len(t, classes, 17)

	for _, c := range classes {
		t.Run(c.String(), func(t *testing.T) {
			exc := New(c, "message for "+c.String())
			assert.Equal(t, c, exc.Class())
			assert.Equal(t, "message for "+c.String(), exc.Error())

			var base BaseError
			assert.Equal(t, c.Network(), errors.As(exc, &base))
		})
	}
}

func TestNew_UnknownClassFallsBack(t *testing.T) {
	t.Parallel()

	exc := New(Class(200), "odd")
	assert.Equal(t, ClassUnknown, exc.Class())
	assert.Equal(t, "Class(200)", Class(200).String())
}

func TestWrap_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("root cause")
	exc := Wrap(ClassRequest, "request failed", cause)
	assert.ErrorIs(t, exc, cause)
}

func TestRuntimeMarker(t *testing.T) {
	t.Parallel()

	for _, c := range []Class{ClassRuntime, ClassBorrowing, ClassDNSResolver} {
		var rt Runtime
		assert.True(t, errors.As(New(c, "x"), &rt), "%s should satisfy Runtime", c)
	}
	for _, c := range []Class{ClassStopIteration, ClassURLParse, ClassTimeout} {
		var rt Runtime
		assert.False(t, errors.As(New(c, "x"), &rt), "%s should not satisfy Runtime", c)
	}
}

func TestDistinctTypes(t *testing.T) {
	t.Parallel()

	var conn *ConnectionError
	assert.False(t, errors.As(New(ClassTimeout, "x"), &conn))
	var urlErr *URLParseError
	assert.True(t, errors.As(New(ClassURLParse, "x"), &urlErr))
	var methodErr *HTTPMethodParseError
	assert.False(t, errors.As(New(ClassMIMEParse, "x"), &methodErr))
}
