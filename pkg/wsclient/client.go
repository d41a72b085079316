// Package wsclient is a websocket client that keeps one logical subscription
// alive, reconnecting with linearly increasing backoff.
package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrNotConnected = errors.New("websocket not connected")
	ErrGaveUp       = errors.New("max reconnection attempts reached")
)

type Options struct {
	// Delay is multiplied by the attempt number: 3s, 6s, 9s...
	Delay       time.Duration
	MaxAttempts int
	Dialer      *websocket.Dialer
	// Sleep waits between attempts. nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultOptions() Options {
	return Options{
		Delay:       3 * time.Second,
		MaxAttempts: 5,
		Dialer:      websocket.DefaultDialer,
	}
}

type Client struct {
	url       string
	opts      Options
	onMessage func(msg []byte)
	logger    *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func New(url string, opts Options, onMessage func(msg []byte), logger *zap.Logger) *Client {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	return &Client{url: url, opts: opts, onMessage: onMessage, logger: logger}
}

// Run connects and reads until ctx is cancelled (nil) or the reconnect budget
// is spent (ErrGaveUp). A successful connection resets the attempt counter.
func (c *Client) Run(ctx context.Context) error {
	attempts := 0
	for {
		conn, _, err := c.opts.Dialer.DialContext(ctx, c.url, nil)
		if err == nil {
			attempts = 0
			c.logger.Info("WebSocket connected", zap.String("url", c.url))
			c.readLoop(ctx, conn)
		} else {
			c.logger.Warn("WebSocket dial failed", zap.String("url", c.url), zap.Error(err))
		}

		if ctx.Err() != nil {
			return nil
		}

		if attempts >= c.opts.MaxAttempts {
			c.logger.Error("Max reconnection attempts reached", zap.String("url", c.url), zap.Int("attempts", attempts))
			return ErrGaveUp
		}
		attempts++
		delay := c.opts.Delay * time.Duration(attempts)
		c.logger.Info("Reconnecting", zap.Duration("delay", delay), zap.Int("attempt", attempts))

		if err := c.opts.Sleep(ctx, delay); err != nil {
			return nil
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	}
}

// Send writes v as JSON on the current connection.
func (c *Client) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
