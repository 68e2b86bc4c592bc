package bridge

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/waftester/netbridge/pkg/config"
	"github.com/waftester/netbridge/pkg/engine"
	"github.com/waftester/netbridge/pkg/header"
	"github.com/waftester/netbridge/pkg/httpparse"
	"github.com/waftester/netbridge/pkg/weburl"
)

const tracerName = "github.com/waftester/netbridge/pkg/bridge"

// Option configures a Client.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	registry *prometheus.Registry
	tracers  trace.TracerProvider
}

// WithLogger sets the logger for raised exceptions.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry registers the client's metrics on r.
func WithRegistry(r *prometheus.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithTracerProvider sets the provider for request spans (default: the
// global provider).
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracers = tp }
}

// RequestOptions are the optional parts of a request.
type RequestOptions struct {
	// Headers are validated before anything is sent.
	Headers map[string]string

	// Query is appended to the URL's query.
	Query url.Values

	// Body is the raw request body.
	Body []byte

	// JSON is encoded as the body when Body is nil.
	JSON any

	// Timeout bounds the request including reading the body; zero uses
	// the client timeout.
	Timeout time.Duration
}

// Client is the host-facing HTTP client. Every error it returns, and every
// error returned by the values it hands out, is an exceptions.Exception.
type Client struct {
	engine   *engine.Client
	boundary *Boundary
	tracer   trace.Tracer
}

// NewClient builds a client from cfg. Invalid configuration raises
// BuilderError, except for unusable DNS resolvers which raise
// DNSResolverError.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracers == nil {
		o.tracers = otel.GetTracerProvider()
	}
	boundary, err := NewBoundary(o.logger, o.registry)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, boundary.Raise(ctx, "client.new", engine.NewError(engine.KindBuilder, nil, err))
	}
	ec := cfg.EngineConfig()
	if ec.DefaultHeaders, err = cfg.DefaultHeaders(); err != nil {
		return nil, boundary.Raise(ctx, "client.new", err)
	}
	eng, err := engine.New(ec)
	if err != nil {
		return nil, boundary.Raise(ctx, "client.new", err)
	}
	return &Client{
		engine:   eng,
		boundary: boundary,
		tracer:   o.tracers.Tracer(tracerName),
	}, nil
}

// Boundary returns the client's exception boundary.
func (c *Client) Boundary() *Boundary { return c.boundary }

// Engine returns the underlying engine client.
func (c *Client) Engine() *engine.Client { return c.engine }

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, rawURL string, opts RequestOptions) (*Response, error) {
	return c.Request(ctx, http.MethodGet, rawURL, opts)
}

// Post sends a POST request.
func (c *Client) Post(ctx context.Context, rawURL string, opts RequestOptions) (*Response, error) {
	return c.Request(ctx, http.MethodPost, rawURL, opts)
}

// Request sends a request. The method, headers and URL are validated first
// and raise HTTPMethodParseError, RuntimeError and URLParseError
// respectively. A non-2xx status is not an error; see
// Response.ErrorForStatus.
func (c *Client) Request(ctx context.Context, method, rawURL string, opts RequestOptions) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "netbridge.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.request.method", method)),
	)
	defer span.End()

	m, err := httpparse.ParseMethod(method)
	if err != nil {
		return nil, c.boundary.Raise(ctx, "request", err)
	}
	h, err := header.FromMap(opts.Headers)
	if err != nil {
		return nil, c.boundary.Raise(ctx, "request", err)
	}
	u, err := weburl.Parse(rawURL)
	if err != nil {
		return nil, c.boundary.Raise(ctx, "request", err)
	}
	span.SetAttributes(attribute.String("url.full", u.Redacted()))

	req := engine.NewRequest(m, u.String()).Headers(h)
	for k, vs := range opts.Query {
		for _, v := range vs {
			req.Query(k, v)
		}
	}
	switch {
	case opts.Body != nil:
		req.Body(opts.Body)
	case opts.JSON != nil:
		req.JSON(opts.JSON)
	}
	if opts.Timeout > 0 {
		req.Timeout(opts.Timeout)
	}

	resp, err := c.engine.Do(ctx, req)
	if err != nil {
		return nil, c.boundary.Raise(ctx, "request", err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode()))
	return &Response{raw: resp, boundary: c.boundary}, nil
}

// Close releases pooled connections.
func (c *Client) Close() {
	c.engine.Close()
}
