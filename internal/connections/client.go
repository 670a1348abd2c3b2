// Package connections tracks every live socket the server is talking
// to: registration on connect, cleanup on disconnect, project
// subscriptions, targeted sends, and broadcasts. It has no persistence
// access — it only knows about live connections. The router calls it
// to send messages; it never calls back into the router.
package connections

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/forge-bridge/forge-bridge/internal/protocol"
)

// Transport is the minimal send/close surface a connection needs. The
// production implementation wraps a *websocket.Conn; tests substitute
// an in-memory fake.
type Transport interface {
	Send(frame []byte) error
	Close() error
	RemoteAddr() string
}

// outboundQueueSize bounds each connection's pending-send buffer. A
// broadcast that would overflow this queue drops that one send rather
// than block on a slow recipient.
const outboundQueueSize = 256

// ConnectedClient is everything the server knows about one live
// connection.
type ConnectedClient struct {
	SessionID    uuid.UUID
	ClientName   string
	EndpointType string
	transport    Transport

	mu            sync.Mutex
	subscriptions map[uuid.UUID]struct{}
	lastEventID   int64

	outbound chan []byte
	limiter  *rate.Limiter
	closed   chan struct{}
	closeOne sync.Once
}

// NewConnectedClient wraps transport with the bookkeeping the
// connection manager needs. It starts a writer goroutine draining the
// outbound queue so handler goroutines never block on transport I/O.
func NewConnectedClient(sessionID uuid.UUID, transport Transport, clientName, endpointType string) *ConnectedClient {
	c := &ConnectedClient{
		SessionID:     sessionID,
		ClientName:    clientName,
		EndpointType:  endpointType,
		transport:     transport,
		subscriptions: make(map[uuid.UUID]struct{}),
		outbound:      make(chan []byte, outboundQueueSize),
		limiter:       rate.NewLimiter(rate.Limit(50), 100),
		closed:        make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *ConnectedClient) writeLoop() {
	for frame := range c.outbound {
		if err := c.limiter.Wait(context.Background()); err != nil {
			continue
		}
		_ = c.transport.Send(frame)
	}
}

// Send enqueues msg for delivery. Returns false immediately if the
// outbound queue is full — the caller is never blocked on a slow
// recipient.
func (c *ConnectedClient) Send(msg protocol.Message) bool {
	frame, err := msg.Serialize()
	if err != nil {
		return false
	}
	select {
	case c.outbound <- frame:
		return true
	default:
		return false
	}
}

// Close stops the writer goroutine and closes the underlying transport.
func (c *ConnectedClient) Close() {
	c.closeOne.Do(func() {
		close(c.closed)
		close(c.outbound)
		_ = c.transport.Close()
	})
}

// RemoteAddress is the best-effort peer address for logging.
func (c *ConnectedClient) RemoteAddress() string {
	return c.transport.RemoteAddr()
}

// SubscribesTo reports whether this client should receive events
// scoped to projectID. An empty subscription set is the wildcard
// default — it receives every scoped event until the first explicit
// subscribe call narrows it.
func (c *ConnectedClient) SubscribesTo(projectID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subscriptions) == 0 {
		return true
	}
	_, ok := c.subscriptions[projectID]
	return ok
}

func (c *ConnectedClient) addSubscription(projectID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[projectID] = struct{}{}
}

func (c *ConnectedClient) removeSubscription(projectID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, projectID)
}

func (c *ConnectedClient) subscriptionList() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uuid.UUID, 0, len(c.subscriptions))
	for pid := range c.subscriptions {
		out = append(out, pid)
	}
	return out
}

// LastEventID returns the most recent event id delivered to this client.
func (c *ConnectedClient) LastEventID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEventID
}

func (c *ConnectedClient) setLastEventID(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id > c.lastEventID {
		c.lastEventID = id
	}
}
