package bridge

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/waftester/netbridge/pkg/defaults"
	"github.com/waftester/netbridge/pkg/engine"
	"github.com/waftester/netbridge/pkg/fault"
	"github.com/waftester/netbridge/pkg/stream"
)

// Response is a received response. Its body is single-use: after one of
// Bytes, Text, JSON, Stream or AsyncStream, every further call raises
// BorrowingError.
type Response struct {
	raw      *engine.Response
	boundary *Boundary
	consumed atomic.Bool
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int { return r.raw.StatusCode() }

// Status returns the status line text.
func (r *Response) Status() string { return r.raw.Status() }

// Header returns the response headers.
func (r *Response) Header() http.Header { return r.raw.Header() }

// URL returns the final URL after redirects.
func (r *Response) URL() string { return r.raw.URL().String() }

// Proto returns the protocol version.
func (r *Response) Proto() string { return r.raw.Proto() }

// ErrorForStatus raises StatusError for 4xx and 5xx responses.
func (r *Response) ErrorForStatus() error {
	return r.boundary.Raise(context.Background(), "response.status", r.raw.ErrorForStatus())
}

// take claims the body.
func (r *Response) take() error {
	if r.consumed.Swap(true) {
		return fault.Consumed()
	}
	return nil
}

// Bytes reads the whole body.
func (r *Response) Bytes() ([]byte, error) {
	ctx := context.Background()
	if err := r.take(); err != nil {
		return nil, r.boundary.Raise(ctx, "response.bytes", err)
	}
	data, err := r.raw.Bytes()
	if err != nil {
		return nil, r.boundary.Raise(ctx, "response.bytes", err)
	}
	return data, nil
}

// Text reads the body as text.
func (r *Response) Text() (string, error) {
	ctx := context.Background()
	if err := r.take(); err != nil {
		return "", r.boundary.Raise(ctx, "response.text", err)
	}
	s, err := r.raw.Text()
	if err != nil {
		return "", r.boundary.Raise(ctx, "response.text", err)
	}
	return s, nil
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	ctx := context.Background()
	if err := r.take(); err != nil {
		return r.boundary.Raise(ctx, "response.json", err)
	}
	return r.boundary.Raise(ctx, "response.json", r.raw.JSON(v))
}

// Stream returns the body as a chunk iterator.
func (r *Response) Stream() (*Stream, error) {
	if err := r.take(); err != nil {
		return nil, r.boundary.Raise(context.Background(), "response.stream", err)
	}
	return &Stream{it: stream.New(r.raw.Reader(), defaults.ChunkSize), boundary: r.boundary}, nil
}

// AsyncStream returns the body as an asynchronous chunk iterator.
func (r *Response) AsyncStream() (*AsyncStream, error) {
	if err := r.take(); err != nil {
		return nil, r.boundary.Raise(context.Background(), "response.stream", err)
	}
	return &AsyncStream{it: stream.NewAsync(r.raw.Reader(), defaults.ChunkSize), boundary: r.boundary}, nil
}

// Close releases the body without reading it. It does not count as
// consuming the body.
func (r *Response) Close() error {
	return r.raw.Close()
}

// Stream iterates over a response body. Past the end, Next raises
// StopIteration.
type Stream struct {
	it       *stream.Iterator
	boundary *Boundary
}

// Next returns the next chunk.
func (s *Stream) Next() ([]byte, error) {
	chunk, err := s.it.Next()
	if err != nil {
		return nil, s.boundary.Raise(context.Background(), "stream.next", err)
	}
	return chunk, nil
}

// Close stops the iteration and releases the body.
func (s *Stream) Close() error { return s.it.Close() }

// AsyncStream iterates over a response body from a background reader.
// Past the end, Next raises StopAsyncIteration.
type AsyncStream struct {
	it       *stream.AsyncIterator
	boundary *Boundary
}

// Next waits for the next chunk or ctx's end.
func (s *AsyncStream) Next(ctx context.Context) ([]byte, error) {
	chunk, err := s.it.Next(ctx)
	if err != nil {
		return nil, s.boundary.Raise(ctx, "stream.next", err)
	}
	return chunk, nil
}

// Close stops the iteration and releases the body.
func (s *AsyncStream) Close() error { return s.it.Close() }
