package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/forge-bridge/forge-bridge/internal/platform/testutil"
	"github.com/forge-bridge/forge-bridge/internal/protocol"
)

// fakeBridge is a minimal stand-in for the real server: it completes
// the hello/welcome handshake and echoes back an `ok` for every
// request it receives, letting client tests run without a database.
type fakeBridge struct {
	upgrader websocket.Upgrader
	server   *httptest.Server
}

func newFakeBridge(t *testing.T) *fakeBridge {
	t.Helper()
	fb := &fakeBridge{}
	fb.server = testutil.NewHTTPTestServer(t, http.HandlerFunc(fb.handle))
	return fb
}

func (fb *fakeBridge) wsURL() string {
	u, _ := url.Parse(fb.server.URL)
	u.Scheme = "ws"
	return u.String()
}

func (fb *fakeBridge) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := fb.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return
	}
	hello, err := protocol.Parse(raw)
	if err != nil || hello.Type() != protocol.MsgHello {
		return
	}

	welcome := protocol.Welcome("session-1", hello.ID(), "0.1.0", map[string]any{})
	frame, _ := welcome.Serialize()
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.Parse(raw)
		if err != nil {
			continue
		}
		if msg.Type() == protocol.MsgBye {
			return
		}
		reply := protocol.OK(msg.ID(), map[string]any{"echo": string(msg.Type())})
		replyFrame, _ := reply.Serialize()
		if err := conn.WriteMessage(websocket.TextMessage, replyFrame); err != nil {
			return
		}
	}
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestClientStartPerformsHandshake(t *testing.T) {
	fb := newFakeBridge(t)
	defer fb.server.Close()

	c := New(Config{URL: fb.wsURL(), ClientName: "test", EndpointType: "cli"}, testLog())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	if c.SessionID() != "session-1" {
		t.Errorf("SessionID = %q, want session-1", c.SessionID())
	}
}

func TestClientRequestResolves(t *testing.T) {
	fb := newFakeBridge(t)
	defer fb.server.Close()

	c := New(Config{URL: fb.wsURL(), ClientName: "test", EndpointType: "cli"}, testLog())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	reply, err := c.Request(context.Background(), protocol.ProjectList(), time.Second)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if reply.Type() != protocol.MsgOK {
		t.Errorf("reply type = %s, want ok", reply.Type())
	}
}

func TestClientRequestTimeout(t *testing.T) {
	// A server that never replies to anything past the handshake.
	var upgrader websocket.Upgrader
	server := testutil.NewHTTPTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		hello, _ := protocol.Parse(raw)
		welcome := protocol.Welcome("session-2", hello.ID(), "0.1.0", map[string]any{})
		frame, _ := welcome.Serialize()
		conn.WriteMessage(websocket.TextMessage, frame)
		// Read and discard forever without ever replying.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	u, _ := url.Parse(server.URL)
	u.Scheme = "ws"

	c := New(Config{URL: u.String(), ClientName: "test", EndpointType: "cli"}, testLog())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	_, err := c.Request(context.Background(), protocol.ProjectList(), 50*time.Millisecond)
	if err == nil {
		t.Fatal("Request() expected a timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("err = %v, want a timeout error", err)
	}
}

func TestOffRemovesListener(t *testing.T) {
	fb := newFakeBridge(t)
	defer fb.server.Close()

	c := New(Config{URL: fb.wsURL(), ClientName: "test", EndpointType: "cli"}, testLog())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	calls := 0
	handle := c.On("*", func(msg protocol.Message) { calls++ })
	c.Off("*", handle)

	c.mu.Lock()
	n := len(c.listeners["*"])
	c.mu.Unlock()
	if n != 0 {
		t.Errorf("listeners[*] has %d entries after Off, want 0", n)
	}
}
