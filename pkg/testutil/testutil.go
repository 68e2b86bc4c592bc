// Package testutil provides shared test helpers for netbridge.
// Fault injection, goroutine leak detection, and deadlock assertion utilities.
package testutil

import (
	"errors"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ErrFault is the sentinel error returned by fault injection helpers.
var ErrFault = errors.New("injected fault")

// FailingReader returns Data, then fails every read with Err (ErrFault if
// nil). It simulates a connection dropping mid-body.
type FailingReader struct {
	Data []byte
	Err  error
	off  int
}

func (r *FailingReader) Read(p []byte) (int, error) {
	if r.off < len(r.Data) {
		n := copy(p, r.Data[r.off:])
		r.off += n
		return n, nil
	}
	if r.Err != nil {
		return 0, r.Err
	}
	return 0, ErrFault
}

// TrackingBody is an io.ReadCloser that counts Close calls.
type TrackingBody struct {
	io.Reader
	closed atomic.Int32
}

// NewTrackingBody wraps r.
func NewTrackingBody(r io.Reader) *TrackingBody {
	return &TrackingBody{Reader: r}
}

func (b *TrackingBody) Close() error {
	b.closed.Add(1)
	return nil
}

// Closed returns how many times Close was called.
func (b *TrackingBody) Closed() int { return int(b.closed.Load()) }

// GoroutineTracker captures goroutine count before/after a test to detect leaks.
type GoroutineTracker struct {
	before int
}

// TrackGoroutines snapshots the current goroutine count. Call CheckLeaks after.
func TrackGoroutines() *GoroutineTracker {
	runtime.Gosched()
	return &GoroutineTracker{before: runtime.NumGoroutine()}
}

// CheckLeaks waits briefly for goroutines to drain, then fails the test if
// more goroutines are running than when tracking started.
// tolerance allows N extra goroutines (for runtime jitter).
func (g *GoroutineTracker) CheckLeaks(t *testing.T, tolerance int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		runtime.Gosched()
		if runtime.NumGoroutine() <= g.before+tolerance {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	if after := runtime.NumGoroutine(); after > g.before+tolerance {
		t.Errorf("goroutine leak: before=%d after=%d tolerance=%d", g.before, after, tolerance)
	}
}

// AssertTimeout runs fn and fails if it doesn't complete within d.
func AssertTimeout(t *testing.T, name string, d time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s: timed out after %v (possible deadlock)", name, d)
	}
}

// RunConcurrently runs fn count times across goroutines and waits for all to finish.
func RunConcurrently(count int, fn func(i int)) {
	var wg sync.WaitGroup
	start := make(chan struct{})
	wg.Add(count)
	for i := 0; i < count; i++ {
		go func(idx int) {
			defer wg.Done()
			<-start
			fn(idx)
		}(i)
	}
	close(start)
	wg.Wait()
}
