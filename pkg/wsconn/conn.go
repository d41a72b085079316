// Package wsconn adapts a raw gobwas/ws server connection to hub.Conn.
package wsconn

import (
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrClosed     = errors.New("connection closed")
	ErrBufferFull = errors.New("send buffer full")
)

type Options struct {
	SendBuffer     int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

func DefaultOptions() Options {
	return Options{
		SendBuffer:     256,
		MaxMessageSize: 512 * 1024,
		WriteWait:      5 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     50 * time.Second,
	}
}

// Handlers are invoked from the read pump goroutine.
type Handlers struct {
	OnMessage func(c *Conn, msg []byte)
	OnClose   func(c *Conn)
}

type Conn struct {
	id       string
	conn     net.Conn
	send     chan []byte
	pongs    chan []byte
	done     chan struct{}
	logger   *zap.Logger
	opts     Options
	handlers Handlers

	mu     sync.RWMutex
	closed bool
}

// Accept upgrades the request and wraps the connection. The caller calls Start.
func Accept(w http.ResponseWriter, r *http.Request, logger *zap.Logger, opts Options, h Handlers) (*Conn, error) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return nil, err
	}
	return New(conn, logger, opts, h), nil
}

func New(conn net.Conn, logger *zap.Logger, opts Options, h Handlers) *Conn {
	id := uuid.NewString()
	return &Conn{
		id:       id,
		conn:     conn,
		send:     make(chan []byte, opts.SendBuffer),
		pongs:    make(chan []byte, 4),
		done:     make(chan struct{}),
		logger:   logger.With(zap.String("conn_id", id)),
		opts:     opts,
		handlers: h,
	}
}

func (c *Conn) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) RemoteAddr() string { return c.conn.RemoteAddr().String() }

// Send queues msg without blocking. A full queue drops the message (backpressure).
func (c *Conn) Send(msg []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close stops the write pump, which sends a close frame and closes the socket.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

func (c *Conn) readPump() {
	defer func() {
		c.Close()
		c.conn.Close()
		if c.handlers.OnClose != nil {
			c.handlers.OnClose(c)
		}
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))

	for {
		header, err := ws.ReadHeader(c.conn)
		if err != nil {
			return
		}

		if header.Length > c.opts.MaxMessageSize {
			c.logger.Warn("Msg too big", zap.Int64("size", header.Length))
			return
		}

		if !header.Fin {
			c.logger.Warn("Client sent fragmented message (not supported)")
			return
		}

		payload := make([]byte, header.Length)
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			return
		}

		// Client frames must be masked (RFC 6455 5.1)
		if !header.Masked {
			c.logger.Warn("Client sent unmasked frame")
			return
		}
		ws.Cipher(payload, header.Mask, 0)

		switch header.OpCode {
		case ws.OpClose:
			return
		case ws.OpPing:
			c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
			select {
			case c.pongs <- payload:
			default:
			}
		case ws.OpPong:
			c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		case ws.OpText, ws.OpBinary:
			c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
			if c.handlers.OnMessage != nil {
				c.handlers.OnMessage(c, payload)
			}
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := wsutil.WriteServerText(c.conn, msg); err != nil {
				c.logger.Debug("Write failed", zap.Error(err))
				c.Close()
				return
			}

		case payload := <-c.pongs:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := wsutil.WriteServerMessage(c.conn, ws.OpPong, payload); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			c.conn.Write(ws.CompiledClose)
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := wsutil.WriteServerMessage(c.conn, ws.OpPing, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
