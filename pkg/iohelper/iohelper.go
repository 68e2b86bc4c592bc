// Package iohelper provides bounded reads of response bodies.
package iohelper

import (
	"errors"
	"fmt"
	"io"
)

// Body size limits.
const (
	// DrainLimit is how much of an unread body is discarded before closing
	// so the connection can be reused (64KB).
	DrainLimit int64 = 64 * 1024

	// DefaultMaxBodySize bounds a full body read (32MB).
	DefaultMaxBodySize int64 = 32 * 1024 * 1024
)

// ErrBodyTooLarge is returned when a body exceeds the read limit.
var ErrBodyTooLarge = errors.New("body exceeds size limit")

// ReadBody reads all of r, failing with ErrBodyTooLarge if more than
// maxSize bytes are available. A nil reader yields an empty slice.
func ReadBody(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxBodySize
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return data, err
	}
	if int64(len(data)) > maxSize {
		return data[:maxSize], fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, maxSize)
	}
	return data, nil
}

// DrainAndClose discards up to DrainLimit bytes of r and closes it if it
// is an io.ReadCloser. Always returns nil so it can be deferred.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, DrainLimit))
	if rc, ok := r.(io.ReadCloser); ok {
		rc.Close()
	}
	return nil
}
