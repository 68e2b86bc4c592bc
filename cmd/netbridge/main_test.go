package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/netbridge/pkg/defaults"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/hello", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Served-By", "test")
		fmt.Fprintf(w, "hello %s", r.Method)
	})
	mux.HandleFunc("/missing", http.NotFound)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			for {
				msg, op, err := wsutil.ReadClientData(conn)
				if err != nil {
					return
				}
				if err := wsutil.WriteServerMessage(conn, op, bytes.ToUpper(msg)); err != nil {
					return
				}
			}
		}()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestRun_Usage(t *testing.T) {
	r := runCLI(t, "")
	assert.Equal(t, defaults.ExitUserError, r.code)
	assert.Contains(t, r.stderr, "Usage:")

	r = runCLI(t, "", "-h")
	assert.Equal(t, defaults.ExitSuccess, r.code)

	r = runCLI(t, "", "frobnicate")
	assert.Equal(t, defaults.ExitUserError, r.code)
	assert.Contains(t, r.stderr, `unknown command "frobnicate"`)

	r = runCLI(t, "", "-no-such-flag", "fetch")
	assert.Equal(t, defaults.ExitUserError, r.code)
}

func TestRun_Version(t *testing.T) {
	r := runCLI(t, "", "version")
	assert.Equal(t, defaults.ExitSuccess, r.code)
	assert.Equal(t, "netbridge "+defaults.Version+"\n", r.stdout)
}

func TestRun_Classes(t *testing.T) {
	r := runCLI(t, "", "classes")
	assert.Equal(t, defaults.ExitSuccess, r.code)
	assert.Contains(t, r.stdout, "TimeoutError BaseError\n")
	assert.Contains(t, r.stdout, "BorrowingError RuntimeError\n")
	assert.Contains(t, r.stdout, "RuntimeError Exception\n")
	assert.Contains(t, r.stdout, "StopIteration Exception\n")
}

func TestRun_InvalidConfig(t *testing.T) {
	r := runCLI(t, "", "-log-format", "xml", "fetch", "http://example.com/")
	assert.Equal(t, defaults.ExitUserError, r.code)
	assert.Contains(t, r.stderr, "config:")
}

func TestFetch(t *testing.T) {
	srv := newServer(t)

	r := runCLI(t, "", "fetch", "-i", srv.URL+"/hello")
	assert.Equal(t, defaults.ExitSuccess, r.code, r.stderr)
	assert.Equal(t, "hello GET", r.stdout)
	assert.Contains(t, r.stderr, "200 "+srv.URL+"/hello HTTP/1.1")
	assert.Contains(t, r.stderr, "X-Served-By: test")
}

func TestFetch_Method(t *testing.T) {
	srv := newServer(t)

	r := runCLI(t, "", "fetch", "-X", "post", "-d", "x=1", srv.URL+"/hello")
	assert.Equal(t, defaults.ExitSuccess, r.code, r.stderr)
	assert.Equal(t, "hello POST", r.stdout)
}

func TestFetch_Errors(t *testing.T) {
	srv := newServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	refused := "http://" + ln.Addr().String() + "/"
	ln.Close()

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{"status with -fail", []string{"fetch", "-fail", srv.URL + "/missing"}, defaults.ExitNetworkError, "StatusError IsStatus error"},
		{"status without -fail", []string{"fetch", srv.URL + "/missing"}, defaults.ExitSuccess, "404"},
		{"empty host", []string{"fetch", "http://"}, defaults.ExitUserError, "URLParseError URL parse error: EmptyHost"},
		{"bad method", []string{"fetch", "-X", "G T", srv.URL}, defaults.ExitUserError, "HTTPMethodParseError"},
		{"bad header", []string{"-H", "X-Bad: a\nb", "fetch", srv.URL}, defaults.ExitUserError, "RuntimeError Invalid header value"},
		{"refused", []string{"fetch", refused}, defaults.ExitNetworkError, "ConnectionError IsConnect error"},
		{"bad resolver", []string{"-c", writeConfig(t, "client:\n  resolvers: [\"not-an-ip\"]\n"), "fetch", srv.URL}, defaults.ExitUserError, "DNSResolverError"},
		{"missing url", []string{"fetch"}, defaults.ExitUserError, "exactly one URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runCLI(t, "", tt.args...)
			assert.Equal(t, tt.wantCode, r.code, r.stderr)
			assert.Contains(t, r.stderr, tt.wantErr)
		})
	}
}

func TestFetch_MetricsServer(t *testing.T) {
	srv := newServer(t)

	r := runCLI(t, "", "-metrics-addr", "127.0.0.1:0", "fetch", srv.URL+"/hello")
	assert.Equal(t, defaults.ExitSuccess, r.code, r.stderr)
	assert.Equal(t, "hello GET", r.stdout)
}

func TestWebSocket_Args(t *testing.T) {
	srv := newServer(t)

	r := runCLI(t, "", "ws", srv.URL+"/ws", "one", "two")
	assert.Equal(t, defaults.ExitSuccess, r.code, r.stderr)
	assert.Equal(t, "ONE\nTWO\n", r.stdout)
	assert.Contains(t, r.stderr, "connected")
}

func TestWebSocket_Stdin(t *testing.T) {
	srv := newServer(t)

	r := runCLI(t, "alpha\nbeta\n", "ws", srv.URL+"/ws")
	assert.Equal(t, defaults.ExitSuccess, r.code, r.stderr)
	assert.Equal(t, "ALPHA\nBETA\n", r.stdout)
}

func TestWebSocket_Errors(t *testing.T) {
	srv := newServer(t)

	r := runCLI(t, "", "ws")
	assert.Equal(t, defaults.ExitUserError, r.code)

	r = runCLI(t, "", "ws", srv.URL+"/hello", "x")
	assert.Equal(t, defaults.ExitNetworkError, r.code)
	assert.Contains(t, r.stderr, "UnknownError")
}
