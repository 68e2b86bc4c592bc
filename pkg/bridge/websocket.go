package bridge

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/waftester/netbridge/pkg/engine/websocket"
	"github.com/waftester/netbridge/pkg/header"
	"github.com/waftester/netbridge/pkg/weburl"
)

// WebSocketOptions are the optional parts of a WebSocket handshake.
type WebSocketOptions struct {
	Headers        map[string]string
	Protocols      []string
	MaxMessageSize int64
}

// Message is one received WebSocket message.
type Message = websocket.Message

// WebSocket is the host-facing WebSocket connection. Once either side has
// closed it, every operation raises RuntimeError.
type WebSocket struct {
	conn     *websocket.Conn
	boundary *Boundary
}

// WebSocket opens a WebSocket connection through the client's dialer, so
// proxy, DNS and TLS settings apply.
func (c *Client) WebSocket(ctx context.Context, rawURL string, opts WebSocketOptions) (*WebSocket, error) {
	ctx, span := c.tracer.Start(ctx, "netbridge.websocket", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	h, err := header.FromMap(opts.Headers)
	if err != nil {
		return nil, c.boundary.Raise(ctx, "websocket.dial", err)
	}
	u, err := weburl.Parse(rawURL)
	if err != nil {
		return nil, c.boundary.Raise(ctx, "websocket.dial", err)
	}
	span.SetAttributes(attribute.String("url.full", u.Redacted()))

	hdr := h.Header()
	if hdr.Get("User-Agent") == "" {
		hdr.Set("User-Agent", c.engine.UserAgent())
	}
	conn, err := websocket.Dial(ctx, u.String(), websocket.Options{
		Header:         hdr,
		Protocols:      opts.Protocols,
		Dialer:         c.engine.Dialer(),
		TLSConfig:      c.engine.TLSConfig(),
		MaxMessageSize: opts.MaxMessageSize,
	})
	if err != nil {
		return nil, c.boundary.Raise(ctx, "websocket.dial", err)
	}
	return &WebSocket{conn: conn, boundary: c.boundary}, nil
}

// Protocol returns the negotiated subprotocol.
func (w *WebSocket) Protocol() string { return w.conn.Protocol() }

// Send writes a binary message.
func (w *WebSocket) Send(ctx context.Context, data []byte) error {
	return w.boundary.Raise(ctx, "websocket.send", w.conn.Send(ctx, data))
}

// SendText writes a text message.
func (w *WebSocket) SendText(ctx context.Context, text string) error {
	return w.boundary.Raise(ctx, "websocket.send", w.conn.SendText(ctx, text))
}

// Recv reads the next data message.
func (w *WebSocket) Recv(ctx context.Context) (Message, error) {
	msg, err := w.conn.Recv(ctx)
	if err != nil {
		return Message{}, w.boundary.Raise(ctx, "websocket.recv", err)
	}
	return msg, nil
}

// Close closes the connection. Closing twice is not an error.
func (w *WebSocket) Close() error {
	return w.boundary.Raise(context.Background(), "websocket.close", w.conn.Close())
}
