package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrConnClosed is returned by Send after the connection was closed.
var ErrConnClosed = errors.New("connection is closed")

// Conn is the write side of a live connection. It is what the registry
// hands to the router.
type Conn interface {
	ID() string
	Send(ctx context.Context, payload []byte) error
}

// Transport is a live connection owned by exactly one session.
type Transport interface {
	Conn
	// Receive blocks until the next text frame arrives or the connection fails.
	Receive() ([]byte, error)
	Close() error
}

// ConnOptions tunes the websocket transport. Zero values disable limits.
type ConnOptions struct {
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	MaxMessageBytes int64
}

// WSConn adapts a gorilla websocket. Writes are serialised by writeMu; the
// single reader is the owning session.
type WSConn struct {
	conn    *websocket.Conn
	id      string
	opts    ConnOptions
	writeMu sync.Mutex
	closed  atomic.Bool
	done    chan struct{}
	once    sync.Once
}

var _ Transport = (*WSConn)(nil)

func NewWSConn(conn *websocket.Conn, opts ConnOptions) *WSConn {
	c := &WSConn{
		conn: conn,
		id:   uuid.NewString(),
		opts: opts,
		done: make(chan struct{}),
	}

	if opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(opts.MaxMessageBytes)
	}
	if opts.PingInterval > 0 {
		c.extendReadDeadline()
		conn.SetPongHandler(func(string) error {
			c.extendReadDeadline()
			return nil
		})
		go c.keepalive()
	}

	return c
}

func (c *WSConn) ID() string {
	return c.id
}

func (c *WSConn) Send(ctx context.Context, payload []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(c.writeDeadline(ctx)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (c *WSConn) Receive() ([]byte, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// Close sends a close frame (best effort) and closes the socket. Safe to
// call more than once.
func (c *WSConn) Close() error {
	var err error
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.done)

		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	return err
}

func (c *WSConn) writeDeadline(ctx context.Context) time.Time {
	var deadline time.Time
	if c.opts.WriteTimeout > 0 {
		deadline = time.Now().Add(c.opts.WriteTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}

func (c *WSConn) extendReadDeadline() {
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * c.opts.PingInterval))
}

func (c *WSConn) keepalive() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.PingInterval))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
