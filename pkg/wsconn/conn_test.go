package wsconn_test

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws/wsutil"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shubham-shewale/fx-platform/pkg/wsconn"
)

func TestConn_SendIsNonBlocking(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	opts := wsconn.DefaultOptions()
	opts.SendBuffer = 1
	c := wsconn.New(server, zap.NewNop(), opts, wsconn.Handlers{})

	require.NoError(t, c.Send([]byte("first")))
	assert.ErrorIs(t, c.Send([]byte("second")), wsconn.ErrBufferFull)

	c.Close()
	c.Close()
	assert.ErrorIs(t, c.Send([]byte("third")), wsconn.ErrClosed)
}

func TestConn_IDsAreUnique(t *testing.T) {
	a, _ := net.Pipe()
	b, _ := net.Pipe()
	c1 := wsconn.New(a, zap.NewNop(), wsconn.DefaultOptions(), wsconn.Handlers{})
	c2 := wsconn.New(b, zap.NewNop(), wsconn.DefaultOptions(), wsconn.Handlers{})

	assert.NotEmpty(t, c1.ID())
	assert.NotEqual(t, c1.ID(), c2.ID())
}

func TestConn_EchoAndCloseCallback(t *testing.T) {
	closed := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := wsconn.Accept(w, r, zap.NewNop(), wsconn.DefaultOptions(), wsconn.Handlers{
			OnMessage: func(c *wsconn.Conn, msg []byte) {
				_ = c.Send(append([]byte("echo:"), msg...))
			},
			OnClose: func(c *wsconn.Conn) { closed <- c.ID() },
		})
		if err != nil {
			return
		}
		c.Start()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("hello")))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "echo:hello", string(msg))

	ws.Close()

	select {
	case id := <-closed:
		assert.NotEmpty(t, id)
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose was not called")
	}
}

func TestConn_MessageTooBigDisconnects(t *testing.T) {
	closed := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		opts := wsconn.DefaultOptions()
		opts.MaxMessageSize = 8
		c, err := wsconn.Accept(w, r, zap.NewNop(), opts, wsconn.Handlers{
			OnClose: func(*wsconn.Conn) { close(closed) },
		})
		if err != nil {
			return
		}
		c.Start()
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("this is far too long")))

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("oversized message should close the connection")
	}
}

func TestConn_AnswersPingWithPong(t *testing.T) {
	remote := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := wsconn.Accept(w, r, zap.NewNop(), wsconn.DefaultOptions(), wsconn.Handlers{})
		if err != nil {
			return
		}
		remote <- c.RemoteAddr()
		c.Start()
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()

	pong := make(chan string, 1)
	ws.SetPongHandler(func(data string) error {
		pong <- data
		return nil
	})
	// control frames are only processed while reading
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	assert.Equal(t, ws.LocalAddr().String(), <-remote)

	require.NoError(t, ws.WriteControl(websocket.PingMessage, []byte("heartbeat"), time.Now().Add(time.Second)))

	select {
	case data := <-pong:
		assert.Equal(t, "heartbeat", data)
	case <-time.After(2 * time.Second):
		t.Fatal("no pong received")
	}
}

func TestConn_UnmaskedFrameDisconnects(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	closed := make(chan struct{})
	got := make(chan []byte, 1)
	c := wsconn.New(server, zap.NewNop(), wsconn.DefaultOptions(), wsconn.Handlers{
		OnMessage: func(_ *wsconn.Conn, msg []byte) { got <- msg },
		OnClose:   func(*wsconn.Conn) { close(closed) },
	})
	c.Start()

	// server-style frames carry no mask
	go wsutil.WriteServerText(client, []byte("hello"))

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("unmasked frame should close the connection")
	}
	assert.Empty(t, got)
}
