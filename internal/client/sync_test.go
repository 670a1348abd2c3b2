package client

import (
	"context"
	"sync"
	"testing"

	"github.com/forge-bridge/forge-bridge/internal/protocol"
)

func TestSyncAdapterRequest(t *testing.T) {
	fb := newFakeBridge(t)
	defer fb.server.Close()

	s := NewSync(Config{URL: fb.wsURL(), ClientName: "test", EndpointType: "cli"}, testLog())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	reply, err := s.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if reply.Type() != protocol.MsgOK {
		t.Errorf("reply type = %s, want ok", reply.Type())
	}
}

// TestSyncAdapterListenerDoesNotDeadlockExecutor registers a listener
// whose callback is itself routed through the executor, then issues a
// request on the same executor. The fake bridge never emits a real
// event frame, so this only proves registration plus a subsequent
// blocking call don't deadlock each other.
func TestSyncAdapterListenerDoesNotDeadlockExecutor(t *testing.T) {
	fb := newFakeBridge(t)
	defer fb.server.Close()

	s := NewSync(Config{URL: fb.wsURL(), ClientName: "test", EndpointType: "cli"}, testLog())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	var mu sync.Mutex
	s.On("*", func(msg protocol.Message) {
		mu.Lock()
		mu.Unlock()
	})

	if _, err := s.ListProjects(context.Background()); err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
}
