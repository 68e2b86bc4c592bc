// Package jsonutil wraps github.com/go-json-experiment/json for request
// and response bodies.
//
// Usage:
//
//	data, err := jsonutil.Marshal(v)
//	err := jsonutil.Unmarshal(data, &v)
package jsonutil

import (
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalIndent returns the indented JSON encoding of v with map keys
// sorted.
func MarshalIndent(v any, indent string) ([]byte, error) {
	return json.Marshal(v, jsontext.WithIndent(indent), json.Deterministic(true))
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return jsontext.Value(data).IsValid()
}

// Indent reformats a JSON document for display.
func Indent(data []byte, indent string) ([]byte, error) {
	var v any
	if err := Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return MarshalIndent(v, indent)
}
