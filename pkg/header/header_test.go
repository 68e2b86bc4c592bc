package header

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"content-type", "Content-Type", false},
		{"X-Custom-Header", "X-Custom-Header", false},
		{"", "", true},
		{"bad name", "", true},
		{"colon:", "", true},
		{"tab\tname", "", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			got, err := ParseName(tt.in)
			if tt.wantErr {
				var nameErr *InvalidNameError
				require.ErrorAs(t, err, &nameErr)
				assert.Equal(t, tt.in, nameErr.Name)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseValue(t *testing.T) {
	t.Parallel()

	got, err := ParseValue("Accept", "  text/html ")
	require.NoError(t, err)
	assert.Equal(t, "text/html", got)

	_, err = ParseValue("Accept", "line\r\nbreak")
	var valueErr *InvalidValueError
	require.ErrorAs(t, err, &valueErr)
	assert.Equal(t, "Accept", valueErr.Name)

	var nameErr *InvalidNameError
	assert.False(t, errors.As(err, &nameErr), "value fault must not look like a name fault")
}

func TestInvalidValueError_GoStringOmitsValue(t *testing.T) {
	t.Parallel()

	err := &InvalidValueError{Name: "Authorization", Value: "Bearer secret\n", Reason: "contains control characters"}
	assert.NotContains(t, err.GoString(), "secret")
	assert.Contains(t, err.GoString(), "Authorization")
}

func TestFromMap(t *testing.T) {
	t.Parallel()

	m, err := FromMap(map[string]string{"x-one": "1", "x-two": "2"})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, "1", m.Header().Get("X-One"))

	_, err = FromMap(map[string]string{"a b": "1", "zz": "bad\x00"})
	var nameErr *InvalidNameError
	require.ErrorAs(t, err, &nameErr, "sorted order reports the name fault first")
}

func TestMap_SetLeavesMapOnError(t *testing.T) {
	t.Parallel()

	m := New()
	require.NoError(t, m.Set("Accept", "a"))
	require.Error(t, m.Set("Accept", "b\x7f"))
	assert.Equal(t, "a", m.Header().Get("Accept"))
}
