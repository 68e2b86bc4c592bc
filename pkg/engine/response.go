package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/waftester/netbridge/pkg/iohelper"
	"github.com/waftester/netbridge/pkg/jsonutil"
)

// Response is a received response. Its body may be read once, through
// Bytes, Text, JSON or Reader.
type Response struct {
	raw     *http.Response
	url     *url.URL
	maxBody int64

	closeOnce sync.Once
	cancel    context.CancelFunc
}

func newResponse(raw *http.Response, cancel context.CancelFunc, maxBody int64) *Response {
	u := raw.Request.URL
	return &Response{raw: raw, url: u, maxBody: maxBody, cancel: cancel}
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int { return r.raw.StatusCode }

// Status returns the status line text, e.g. "200 OK".
func (r *Response) Status() string { return r.raw.Status }

// Header returns the response headers.
func (r *Response) Header() http.Header { return r.raw.Header }

// URL returns the final URL after redirects.
func (r *Response) URL() *url.URL { return r.url }

// Proto returns the protocol version, e.g. "HTTP/1.1".
func (r *Response) Proto() string { return r.raw.Proto }

// ContentLength returns the declared body length, or -1 if unknown.
func (r *Response) ContentLength() int64 { return r.raw.ContentLength }

// ErrorForStatus returns a status Error for 4xx and 5xx responses.
func (r *Response) ErrorForStatus() error {
	if code := r.raw.StatusCode; code >= 400 && code < 600 {
		return statusError(r.url, code)
	}
	return nil
}

// Bytes reads and closes the body.
func (r *Response) Bytes() ([]byte, error) {
	defer r.Close()
	data, err := iohelper.ReadBody(r.raw.Body, r.maxBody)
	if err != nil {
		return nil, NewError(KindBody, r.url, err)
	}
	return data, nil
}

// Text reads the body as text. Invalid UTF-8 sequences are replaced.
func (r *Response) Text() (string, error) {
	data, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	data, err := r.Bytes()
	if err != nil {
		return err
	}
	if err := jsonutil.Unmarshal(data, v); err != nil {
		return NewError(KindDecode, r.url, err)
	}
	return nil
}

// Reader returns the body as a stream. Read failures are body Errors;
// closing the reader closes the response.
func (r *Response) Reader() io.ReadCloser {
	return &bodyReader{resp: r}
}

// Close releases the body and any per-request timeout. It is idempotent.
func (r *Response) Close() error {
	r.closeOnce.Do(func() {
		iohelper.DrainAndClose(r.raw.Body)
		if r.cancel != nil {
			r.cancel()
		}
	})
	return nil
}

type bodyReader struct {
	resp *Response
}

func (b *bodyReader) Read(p []byte) (int, error) {
	n, err := b.resp.raw.Body.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, NewError(KindBody, b.resp.url, err)
	}
	return n, err
}

func (b *bodyReader) Close() error { return b.resp.Close() }
