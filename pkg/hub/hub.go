// Package hub tracks the open connections of one channel and fans messages out to them.
package hub

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Conn is one open persistent channel. Send must not block on the network.
type Conn interface {
	ID() string
	Send(msg []byte) error
	Close()
}

type Hub struct {
	mu     sync.RWMutex
	conns  map[Conn]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[Conn]struct{}),
		logger: logger,
	}
}

// Register adds c to the broadcast set. Registering the same connection twice is a no-op.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		return
	}
	h.conns[c] = struct{}{}
	h.logger.Debug("Connection registered", zap.String("conn_id", c.ID()), zap.Int("connections", len(h.conns)))
}

// Unregister removes c. It is safe to call for a connection that is already gone.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	h.logger.Debug("Connection unregistered", zap.String("conn_id", c.ID()), zap.Int("connections", len(h.conns)))
}

func (h *Hub) Has(c Conn) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[c]
	return ok
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends msg to every registered connection and returns how many accepted it.
// A failing connection is logged and skipped; it stays registered until its own
// close callback unregisters it.
func (h *Hub) Broadcast(msg []byte) int {
	return h.BroadcastExcept(nil, msg)
}

// BroadcastExcept is Broadcast without the connection skip. skip may be nil.
func (h *Hub) BroadcastExcept(skip Conn, msg []byte) int {
	delivered := 0
	for _, c := range h.snapshot() {
		if skip != nil && c == skip {
			continue
		}
		if err := h.send(c, msg); err != nil {
			h.logger.Warn("Failed to deliver message", zap.String("conn_id", c.ID()), zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}

// CloseAll closes every registered connection. Used on shutdown.
func (h *Hub) CloseAll() {
	for _, c := range h.snapshot() {
		c.Close()
	}
}

// snapshot copies the set so sends run without holding the lock.
func (h *Hub) snapshot() []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Conn, 0, len(h.conns))
	for c := range h.conns {
		out = append(out, c)
	}
	return out
}

func (h *Hub) send(c Conn, msg []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during send: %v", r)
		}
	}()
	return c.Send(msg)
}
