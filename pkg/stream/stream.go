// Package stream iterates over a response body in chunks.
//
// Past the end an Iterator returns fault.Exhausted and an AsyncIterator
// returns fault.AsyncExhausted, on every call.
package stream

import (
	"context"
	"errors"
	"io"
	"runtime"
	"sync"

	"github.com/waftester/netbridge/pkg/defaults"
	"github.com/waftester/netbridge/pkg/fault"
)

// Iterator reads a body synchronously. It is safe for concurrent use;
// chunks are handed out in order.
type Iterator struct {
	mu    sync.Mutex
	r     io.ReadCloser
	chunk int
	done  bool
}

// New iterates over r in chunks of at most chunkSize bytes (default 16KB).
// The iterator closes r once it is exhausted.
func New(r io.ReadCloser, chunkSize int) *Iterator {
	if chunkSize <= 0 {
		chunkSize = defaults.ChunkSize
	}
	return &Iterator{r: r, chunk: chunkSize}
}

// Next returns the next non-empty chunk. A read failure is returned once
// and ends the iteration.
func (it *Iterator) Next() ([]byte, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.done {
		return nil, fault.Exhausted()
	}
	data, err := readChunk(it.r, it.chunk)
	if err != nil {
		it.finish()
		if errors.Is(err, io.EOF) {
			return nil, fault.Exhausted()
		}
		return nil, err
	}
	return data, nil
}

// Close ends the iteration early and releases the body.
func (it *Iterator) Close() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.finish()
	return nil
}

func (it *Iterator) finish() {
	if !it.done {
		it.done = true
		it.r.Close()
	}
}

// readChunk reads until it has at least one byte or an error. Data read
// alongside io.EOF is returned first; EOF surfaces on the next call.
func readChunk(r io.Reader, size int) ([]byte, error) {
	buf := make([]byte, size)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			return buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
	}
}

type result struct {
	data []byte
	err  error
}

// pump is the reading side of an AsyncIterator. It holds no reference to the
// iterator, so an iterator dropped without Close can still be collected.
type pump struct {
	r       io.ReadCloser
	chunk   int
	results chan result
	stop    chan struct{}
	halted  sync.Once
}

func (p *pump) run() {
	defer close(p.results)
	defer p.r.Close()
	for {
		data, err := readChunk(p.r, p.chunk)
		select {
		case p.results <- result{data: data, err: err}:
		case <-p.stop:
			return
		}
		if err != nil {
			return
		}
	}
}

// halt stops the reader goroutine and closes the body, which also unblocks
// a read in progress.
func (p *pump) halt() {
	p.halted.Do(func() {
		close(p.stop)
		p.r.Close()
	})
}

// AsyncIterator reads a body on a background goroutine so Next can honour
// context cancellation. Close it when done; an iterator that is dropped
// undrained is stopped when the garbage collector reclaims it.
type AsyncIterator struct {
	p     *pump
	start sync.Once

	mu   sync.Mutex
	done bool
}

// NewAsync iterates over r in chunks of at most chunkSize bytes.
func NewAsync(r io.ReadCloser, chunkSize int) *AsyncIterator {
	if chunkSize <= 0 {
		chunkSize = defaults.ChunkSize
	}
	p := &pump{
		r:       r,
		chunk:   chunkSize,
		results: make(chan result),
		stop:    make(chan struct{}),
	}
	a := &AsyncIterator{p: p}
	runtime.AddCleanup(a, (*pump).halt, p)
	return a
}

// Next waits for the next chunk or for ctx to end. Cancellation returns
// ctx.Err() and leaves the iterator usable.
func (a *AsyncIterator) Next(ctx context.Context) ([]byte, error) {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done {
		return nil, fault.AsyncExhausted()
	}
	a.start.Do(func() { go a.p.run() })

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r, ok := <-a.p.results:
		if !ok || r.err != nil {
			a.mu.Lock()
			a.done = true
			a.mu.Unlock()
		}
		switch {
		case !ok, errors.Is(r.err, io.EOF):
			return nil, fault.AsyncExhausted()
		case r.err != nil:
			return nil, r.err
		}
		return r.data, nil
	}
}

// Close ends the iteration and releases the body.
func (a *AsyncIterator) Close() error {
	a.mu.Lock()
	a.done = true
	a.mu.Unlock()
	a.start.Do(func() {})
	a.p.halt()
	return nil
}
