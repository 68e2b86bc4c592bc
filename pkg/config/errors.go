package config

import "errors"

// Sentinel errors for configuration failures. Check with errors.Is.
var (
	// ErrInvalidConfig means the file or flags could not be parsed or hold
	// an out-of-range value.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrMissingRequired means a field that has no default was left empty.
	ErrMissingRequired = errors.New("config: missing required field")
)
