// Package header validates HTTP header names and values supplied by callers
// before they reach the engine. Invalid input is reported with typed errors
// so the binding can tell a bad name from a bad value.
package header

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// InvalidNameError reports a header key that is not a valid RFC 7230 token.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("header: invalid name %q: %s", e.Name, e.Reason)
}

// GoString renders the error for diagnostics.
func (e *InvalidNameError) GoString() string {
	return fmt.Sprintf("InvalidHeaderName { name: %q, reason: %q }", e.Name, e.Reason)
}

// InvalidValueError reports a header value containing forbidden bytes.
type InvalidValueError struct {
	Name   string
	Value  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("header: invalid value for %q: %s", e.Name, e.Reason)
}

// GoString renders the error for diagnostics. The value itself is omitted
// because header values routinely carry credentials.
func (e *InvalidValueError) GoString() string {
	return fmt.Sprintf("InvalidHeaderValue { name: %q, reason: %q }", e.Name, e.Reason)
}

// ParseName validates name and returns its canonical form.
func ParseName(name string) (string, error) {
	if name == "" {
		return "", &InvalidNameError{Name: name, Reason: "empty name"}
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return "", &InvalidNameError{Name: name, Reason: "contains characters outside the token set"}
	}
	return http.CanonicalHeaderKey(name), nil
}

// ParseValue validates a value for the header called name.
func ParseValue(name, value string) (string, error) {
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", &InvalidValueError{Name: name, Value: value, Reason: "contains control characters"}
	}
	return strings.TrimSpace(value), nil
}

// Map is a validated header set.
type Map struct {
	h http.Header
}

// New returns an empty Map.
func New() *Map {
	return &Map{h: make(http.Header)}
}

// Add validates and appends a header. The map is left untouched on error.
func (m *Map) Add(name, value string) error {
	n, err := ParseName(name)
	if err != nil {
		return err
	}
	v, err := ParseValue(n, value)
	if err != nil {
		return err
	}
	m.h.Add(n, v)
	return nil
}

// Set validates and replaces a header.
func (m *Map) Set(name, value string) error {
	n, err := ParseName(name)
	if err != nil {
		return err
	}
	v, err := ParseValue(n, value)
	if err != nil {
		return err
	}
	m.h.Set(n, v)
	return nil
}

// Len returns the number of distinct header names.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.h)
}

// Header returns a copy usable with net/http.
func (m *Map) Header() http.Header {
	if m == nil {
		return http.Header{}
	}
	return m.h.Clone()
}

// FromMap validates every entry of in. Keys are processed in sorted order so
// the first reported error is deterministic.
func FromMap(in map[string]string) (*Map, error) {
	m := New()
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := m.Add(k, in[k]); err != nil {
			return nil, err
		}
	}
	return m, nil
}
