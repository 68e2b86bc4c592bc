package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/waftester/netbridge/pkg/defaults"
	"github.com/waftester/netbridge/pkg/header"
	"github.com/waftester/netbridge/pkg/jsonutil"
	"github.com/waftester/netbridge/pkg/weburl"
)

// Request is a request builder. Builder methods record the first error;
// it is reported as a builder Error when the request is sent.
type Request struct {
	method  string
	url     *url.URL
	header  http.Header
	query   url.Values
	body    []byte
	timeout time.Duration
	err     error
}

// NewRequest starts a request for method and rawURL.
func NewRequest(method, rawURL string) *Request {
	r := &Request{
		method: strings.ToUpper(method),
		header: make(http.Header),
		query:  make(url.Values),
	}
	if !validMethod(r.method) {
		r.err = fmt.Errorf("invalid HTTP method %q", method)
		return r
	}
	u, err := weburl.Parse(rawURL)
	if err != nil {
		r.err = err
		return r
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		r.url = u
		r.err = fmt.Errorf("URL scheme %q is not allowed", u.Scheme)
		return r
	}
	r.url = u
	return r
}

func validMethod(m string) bool {
	if m == "" {
		return false
	}
	for _, c := range m {
		if !httpguts.IsTokenRune(c) {
			return false
		}
	}
	return true
}

func (r *Request) fail(err error) *Request {
	if r.err == nil {
		r.err = err
	}
	return r
}

// Header sets a header after validating its name and value.
func (r *Request) Header(name, value string) *Request {
	if r.err != nil {
		return r
	}
	canonical, err := header.ParseName(name)
	if err != nil {
		return r.fail(err)
	}
	v, err := header.ParseValue(canonical, value)
	if err != nil {
		return r.fail(err)
	}
	r.header.Set(canonical, v)
	return r
}

// Headers merges an already validated header set.
func (r *Request) Headers(m *header.Map) *Request {
	if m == nil {
		return r
	}
	for k, vs := range m.Header() {
		r.header[k] = vs
	}
	return r
}

// Query appends a query parameter.
func (r *Request) Query(key, value string) *Request {
	r.query.Add(key, value)
	return r
}

// Body sets the raw request body.
func (r *Request) Body(b []byte) *Request {
	r.body = b
	return r
}

// JSON encodes v as the body and sets the JSON content type.
func (r *Request) JSON(v any) *Request {
	if r.err != nil {
		return r
	}
	data, err := jsonutil.Marshal(v)
	if err != nil {
		return r.fail(fmt.Errorf("encode JSON body: %w", err))
	}
	r.body = data
	if r.header.Get("Content-Type") == "" {
		r.header.Set("Content-Type", defaults.ContentTypeJSON)
	}
	return r
}

// Form encodes values as an urlencoded body.
func (r *Request) Form(values url.Values) *Request {
	r.body = []byte(values.Encode())
	if r.header.Get("Content-Type") == "" {
		r.header.Set("Content-Type", defaults.ContentTypeForm)
	}
	return r
}

// Timeout bounds this request, including reading the body.
func (r *Request) Timeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// Method returns the upper-cased method.
func (r *Request) Method() string { return r.method }

// URL returns the parsed URL, or nil if it failed to parse.
func (r *Request) URL() *url.URL { return r.url }

// Build returns the *http.Request that would be sent, without client
// defaults or the per-request timeout applied.
func (r *Request) Build(ctx context.Context) (*http.Request, error) {
	req, cancel, err := r.build(ctx, nil)
	if err != nil {
		return nil, err
	}
	cancel()
	return req.WithContext(ctx), nil
}

// build assembles the request. The returned cancel releases the per-request
// timeout and must be called once the response body is done.
func (r *Request) build(ctx context.Context, c *Client) (*http.Request, context.CancelFunc, error) {
	if r.err != nil {
		return nil, nil, NewError(KindBuilder, r.url, r.err)
	}

	u := *r.url
	if len(r.query) > 0 {
		q := u.Query()
		for k, vs := range r.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	cancel := context.CancelFunc(func() {})
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		cancel()
		return nil, nil, NewError(KindBuilder, r.url, err)
	}

	if c != nil {
		for k, vs := range c.cfg.DefaultHeaders {
			req.Header[k] = append([]string(nil), vs...)
		}
		if c.profile != nil {
			for k, v := range c.profile.Headers {
				if req.Header.Get(k) == "" {
					req.Header.Set(k, v)
				}
			}
		}
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", c.UserAgent())
		}
	}
	for k, vs := range r.header {
		req.Header[k] = vs
	}
	return req, cancel, nil
}
