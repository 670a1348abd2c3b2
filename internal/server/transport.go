// Package server wires persistence, the in-memory registry, the
// connection manager, and the router into a running WebSocket service,
// following the startup/per-connection/shutdown sequence.
package server

import (
	"sync"

	"github.com/gorilla/websocket"
)

// wsTransport adapts a *websocket.Conn to connections.Transport.
// gorilla/websocket forbids concurrent writes to the same connection,
// so every Send is serialized behind a mutex — both the connection's
// writer goroutine and the server's receive loop (for parse-error
// replies) write through it.
type wsTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, frame)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
