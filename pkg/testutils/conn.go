// Package testutils holds fakes shared by the service tests.
package testutils

import (
	"encoding/json"
	"errors"
	"sync"
)

var ErrSendFailed = errors.New("mock send failed")

// MockConn simulates a connected websocket client.
type MockConn struct {
	IDVal string

	// FailSend makes every Send return ErrSendFailed; PanicSend makes it panic.
	FailSend  bool
	PanicSend bool

	mu       sync.Mutex
	messages [][]byte
	closed   bool
}

func NewMockConn(id string) *MockConn {
	return &MockConn{IDVal: id}
}

func (m *MockConn) ID() string { return m.IDVal }

func (m *MockConn) Send(msg []byte) error {
	if m.PanicSend {
		panic("mock connection exploded")
	}
	if m.FailSend {
		return ErrSendFailed
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, append([]byte(nil), msg...))
	return nil
}

func (m *MockConn) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *MockConn) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Messages returns a copy of everything sent so far.
func (m *MockConn) Messages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.messages))
	copy(out, m.messages)
	return out
}

// Types decodes the "type" field of each message in order.
func (m *MockConn) Types() []string {
	var out []string
	for _, raw := range m.Messages() {
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(raw, &env)
		out = append(out, env.Type)
	}
	return out
}

// Last decodes the most recent message into v. It reports false when nothing was sent.
func (m *MockConn) Last(v interface{}) bool {
	msgs := m.Messages()
	if len(msgs) == 0 {
		return false
	}
	return json.Unmarshal(msgs[len(msgs)-1], v) == nil
}
