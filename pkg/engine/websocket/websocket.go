// Package websocket is the engine's duplex streaming connection. It speaks
// RFC 6455 through github.com/gobwas/ws over the engine's dialer, so proxy
// and DNS settings apply to WebSocket connections too.
package websocket

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/waftester/netbridge/pkg/defaults"
	"github.com/waftester/netbridge/pkg/duration"
	"github.com/waftester/netbridge/pkg/engine"
	"github.com/waftester/netbridge/pkg/fault"
	"github.com/waftester/netbridge/pkg/weburl"
)

// Options configures Dial.
type Options struct {
	// Header is sent with the opening handshake.
	Header http.Header

	// Protocols are the offered subprotocols.
	Protocols []string

	// Dialer opens the TCP connection; nil dials directly.
	Dialer engine.ContextDialer

	// TLSConfig is used for wss URLs.
	TLSConfig *tls.Config

	// HandshakeTimeout bounds the opening handshake (default: 10s).
	HandshakeTimeout time.Duration

	// MaxMessageSize bounds a received message (default: 16MB).
	MaxMessageSize int64
}

// Message is one received data message.
type Message struct {
	Text bool
	Data []byte
}

// Conn is a client WebSocket connection. Send and Recv may be called
// concurrently with each other; Close may be called from any goroutine.
type Conn struct {
	url      *url.URL
	conn     net.Conn
	protocol string
	maxSize  int64

	wmu sync.Mutex

	// Reader state, guarded by rmu. Control frame replies are buffered in
	// ctrl and flushed under wmu so they never interleave with Send.
	rmu    sync.Mutex
	reader *wsutil.Reader
	onCtrl wsutil.FrameHandlerFunc
	ctrl   bytes.Buffer

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// Dial opens a connection. http and https URLs are mapped to ws and wss.
// Handshake rejections are upgrade Errors; everything else is a request
// Error.
func Dial(ctx context.Context, rawURL string, opts Options) (*Conn, error) {
	u, err := weburl.Parse(rawURL)
	if err != nil {
		return nil, engine.NewError(engine.KindBuilder, nil, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, engine.NewError(engine.KindBuilder, u, fmt.Errorf("URL scheme %q is not allowed", u.Scheme))
	}

	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = duration.WebSocketHandshake
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaults.WebSocketFrameMax
	}
	netDial := opts.Dialer
	if netDial == nil {
		netDial = &net.Dialer{Timeout: duration.Dial, KeepAlive: duration.KeepAlive}
	}

	var rejected []byte
	dialer := ws.Dialer{
		Timeout:   opts.HandshakeTimeout,
		Protocols: opts.Protocols,
		NetDial:   netDial.DialContext,
		TLSConfig: opts.TLSConfig,
		OnStatusError: func(status int, reason []byte, resp io.Reader) {
			rejected = append([]byte(nil), reason...)
		},
	}
	if len(opts.Header) > 0 {
		dialer.Header = ws.HandshakeHeaderHTTP(opts.Header)
	}

	conn, br, hs, err := dialer.Dial(ctx, u.String())
	if err != nil {
		var status ws.StatusError
		if errors.As(err, &status) {
			if len(rejected) > 0 {
				err = fmt.Errorf("%w (%s)", err, rejected)
			}
			return nil, engine.NewError(engine.KindUpgrade, u, err)
		}
		return nil, engine.NewError(engine.KindRequest, u, err)
	}

	c := &Conn{
		url:      u,
		conn:     conn,
		protocol: hs.Protocol,
		maxSize:  opts.MaxMessageSize,
	}
	var src io.Reader = conn
	if br != nil {
		// The server may have sent frames right after the handshake.
		pending, _ := br.Peek(br.Buffered())
		src = io.MultiReader(bytes.NewReader(bytes.Clone(pending)), conn)
		ws.PutReader(br)
	}
	c.onCtrl = wsutil.ControlFrameHandler(&c.ctrl, ws.StateClientSide)
	c.reader = &wsutil.Reader{
		Source:         src,
		State:          ws.StateClientSide,
		CheckUTF8:      true,
		OnIntermediate: c.onCtrl,
	}
	return c, nil
}

// URL returns the connected URL.
func (c *Conn) URL() *url.URL { return c.url }

// Protocol returns the negotiated subprotocol, if any.
func (c *Conn) Protocol() string { return c.protocol }

// Closed reports whether the connection has been closed by either side.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Send writes a binary message.
func (c *Conn) Send(ctx context.Context, data []byte) error {
	return c.write(ctx, ws.OpBinary, data)
}

// SendText writes a text message.
func (c *Conn) SendText(ctx context.Context, text string) error {
	return c.write(ctx, ws.OpText, []byte(text))
}

func (c *Conn) write(ctx context.Context, op ws.OpCode, data []byte) error {
	if c.Closed() {
		return fault.Disconnected()
	}
	stop := c.bindDeadline(ctx, c.conn.SetWriteDeadline)
	defer stop()

	c.wmu.Lock()
	err := wsutil.WriteClientMessage(c.conn, op, data)
	c.wmu.Unlock()
	if err != nil {
		if isClosure(err) {
			c.shutdown()
			return fault.Disconnected()
		}
		return engine.NewError(engine.KindRequest, c.url, err)
	}
	return nil
}

// Recv reads the next data message, answering pings and close frames on
// the way. Once the peer has closed, Recv returns fault.Disconnected.
func (c *Conn) Recv(ctx context.Context) (Message, error) {
	if c.Closed() {
		return Message{}, fault.Disconnected()
	}
	c.rmu.Lock()
	defer c.rmu.Unlock()

	stop := c.bindDeadline(ctx, c.conn.SetReadDeadline)
	defer stop()

	for {
		hdr, err := c.reader.NextFrame()
		if err != nil {
			return Message{}, c.readError(err)
		}
		if hdr.OpCode.IsControl() {
			err := c.onCtrl(hdr, c.reader)
			c.flushControl()
			if err != nil {
				return Message{}, c.readError(err)
			}
			continue
		}
		if hdr.OpCode&(ws.OpText|ws.OpBinary) == 0 {
			if err := c.reader.Discard(); err != nil {
				return Message{}, c.readError(err)
			}
			continue
		}

		data, err := io.ReadAll(io.LimitReader(c.reader, c.maxSize+1))
		c.flushControl()
		if err != nil {
			return Message{}, c.readError(err)
		}
		if int64(len(data)) > c.maxSize {
			c.closeWith(ws.StatusMessageTooBig, "message too big")
			return Message{}, engine.NewError(engine.KindBody, c.url,
				fmt.Errorf("message exceeds %d bytes", c.maxSize))
		}
		return Message{Text: hdr.OpCode == ws.OpText, Data: data}, nil
	}
}

func (c *Conn) flushControl() {
	if c.ctrl.Len() == 0 {
		return
	}
	c.wmu.Lock()
	_, _ = c.conn.Write(c.ctrl.Bytes())
	c.wmu.Unlock()
	c.ctrl.Reset()
}

func (c *Conn) readError(err error) error {
	if isClosure(err) {
		c.shutdown()
		return fault.Disconnected()
	}
	return engine.NewError(engine.KindRequest, c.url, err)
}

// Close sends a normal close frame and closes the connection. Further
// operations return fault.Disconnected.
func (c *Conn) Close() error {
	if c.Closed() {
		return nil
	}
	c.closeWith(ws.StatusNormalClosure, "")
	return nil
}

func (c *Conn) closeWith(code ws.StatusCode, reason string) {
	_ = c.conn.SetWriteDeadline(time.Now().Add(duration.WebSocketClose))
	frame := ws.MaskFrameInPlace(ws.NewCloseFrame(ws.NewCloseFrameBody(code, reason)))
	c.wmu.Lock()
	_ = ws.WriteFrame(c.conn, frame)
	c.wmu.Unlock()
	c.shutdown()
}

func (c *Conn) shutdown() {
	c.markClosed()
	c.closeOnce.Do(func() { c.conn.Close() })
}

// bindDeadline applies ctx's deadline and cancellation to one operation.
func (c *Conn) bindDeadline(ctx context.Context, set func(time.Time) error) func() {
	if d, ok := ctx.Deadline(); ok {
		_ = set(d)
	} else {
		_ = set(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() { _ = set(time.Now()) })
	return func() { stop() }
}

// isClosure reports whether err means the peer is gone.
func isClosure(err error) bool {
	var closed wsutil.ClosedError
	return errors.As(err, &closed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}
