// Package client is the forge-bridge counterpart to internal/server: a
// long-lived WebSocket connection that performs the hello/welcome
// handshake, correlates requests to replies by message id, dispatches
// server-push events to registered listeners, and reconnects with
// exponential backoff when the transport drops.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/forge-bridge/forge-bridge/internal/protocol"
)

const (
	baseReconnectDelay = 1 * time.Second
	maxReconnectDelay  = 60 * time.Second
	reconnectFactor    = 2.0
	defaultTimeout     = 30 * time.Second
)

// Listener receives server-push `event` frames. eventType "*" matches
// every event.
type Listener func(msg protocol.Message)

type listenerEntry struct {
	id uint64
	fn Listener
}

// Config describes how to connect and identify this client.
type Config struct {
	URL           string
	ClientName    string
	EndpointType  string
	Capabilities  map[string]any
	AutoReconnect bool
}

type requestResult struct {
	msg protocol.Message
	err error
}

type pendingRequest struct {
	resultCh chan requestResult
}

// Client is the async client. Every exported method is safe for
// concurrent use.
type Client struct {
	cfg Config
	log *logrus.Entry

	dialer *websocket.Dialer

	mu            sync.Mutex
	conn          *websocket.Conn
	sessionID     string
	lastEventID   string
	pending       map[string]pendingRequest
	listeners     map[string][]listenerEntry
	subscriptions map[string]struct{}
	nextHandle    uint64
	stopped       bool

	stopCh chan struct{}
	loopWG sync.WaitGroup
}

// New constructs a client. Call Start to connect.
func New(cfg Config, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		cfg:           cfg,
		log:           log,
		dialer:        websocket.DefaultDialer,
		pending:       make(map[string]pendingRequest),
		listeners:     make(map[string][]listenerEntry),
		subscriptions: make(map[string]struct{}),
		stopCh:        make(chan struct{}),
	}
}

// Start connects, performs the hello/welcome exchange, and launches the
// receive loop (with reconnect supervision if AutoReconnect is set).
func (c *Client) Start(ctx context.Context) error {
	if err := c.connectOnce(ctx); err != nil {
		return err
	}
	c.loopWG.Add(1)
	go c.runLoop()
	return nil
}

// Stop sends bye, closes the transport, halts reconnect, and fails
// every pending request with ErrNotConnected.
func (c *Client) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	conn := c.conn
	c.mu.Unlock()

	close(c.stopCh)

	if conn != nil {
		frame, _ := protocol.Bye("client_shutdown").Serialize()
		_ = conn.WriteMessage(websocket.TextMessage, frame)
		_ = conn.Close()
	}

	c.failAllPending(&ErrNotConnected{})
	c.loopWG.Wait()
	return nil
}

// Send writes a fire-and-forget frame; it does not wait for a reply.
func (c *Client) Send(msg protocol.Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return &ErrNotConnected{}
	}
	frame, err := msg.Serialize()
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// Request writes msg and blocks until the matching ok/error/pong
// arrives or timeout elapses. The pending entry is removed on every
// exit path.
func (c *Client) Request(ctx context.Context, msg protocol.Message, timeout time.Duration) (protocol.Message, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	id := msg.ID()
	if id == "" {
		return nil, fmt.Errorf("message has no request id")
	}

	resultCh := make(chan requestResult, 1)
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, &ErrNotConnected{}
	}
	c.pending[id] = pendingRequest{resultCh: resultCh}
	conn := c.conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	frame, err := msg.Serialize()
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return nil, err
	}

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, res.err
		}
		if res.msg.Type() == protocol.MsgError {
			code, _ := res.msg.String("code")
			message, _ := res.msg.String("message")
			return nil, &ServerError{Code: protocol.ErrorCode(code), Message: message, Details: res.msg.Map("details")}
		}
		return res.msg, nil
	case <-time.After(timeout):
		return nil, &TimeoutError{RequestType: string(msg.Type())}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe requests a project subscription and remembers it locally
// so reconnect can replay every active subscription.
func (c *Client) Subscribe(ctx context.Context, projectID string) error {
	_, err := c.Request(ctx, protocol.Subscribe(projectID), defaultTimeout)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.subscriptions[projectID] = struct{}{}
	c.mu.Unlock()
	return nil
}

// Unsubscribe cancels a project subscription.
func (c *Client) Unsubscribe(ctx context.Context, projectID string) error {
	_, err := c.Request(ctx, protocol.Unsubscribe(projectID), defaultTimeout)
	if err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.subscriptions, projectID)
	c.mu.Unlock()
	return nil
}

// On registers a listener for eventType ("*" for every event) and
// returns a handle usable with Off. Go funcs aren't comparable, so
// removal is by handle rather than by function identity.
func (c *Client) On(eventType string, fn Listener) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextHandle++
	handle := c.nextHandle
	c.listeners[eventType] = append(c.listeners[eventType], listenerEntry{id: handle, fn: fn})
	return handle
}

// Off removes the listener registered under handle for eventType.
func (c *Client) Off(eventType string, handle uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.listeners[eventType]
	for i, e := range entries {
		if e.id == handle {
			c.listeners[eventType] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// SessionID returns the session id assigned by the most recent welcome.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// LastEventID returns the cursor of the most recent event this client
// has observed, for persisting across process restarts.
func (c *Client) LastEventID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEventID
}

func (c *Client) connectOnce(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	lastEventID := c.lastEventID
	c.mu.Unlock()

	hello := protocol.Hello(c.cfg.ClientName, c.cfg.EndpointType, c.cfg.Capabilities, lastEventID)
	frame, _ := hello.Serialize()
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		conn.Close()
		return fmt.Errorf("send hello: %w", err)
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return fmt.Errorf("read welcome: %w", err)
	}
	welcome, err := protocol.Parse(raw)
	if err != nil || welcome.Type() != protocol.MsgWelcome {
		conn.Close()
		return fmt.Errorf("expected welcome, got %v (err=%v)", welcome.Type(), err)
	}

	sessionID, _ := welcome.String("session_id")

	c.mu.Lock()
	c.conn = conn
	c.sessionID = sessionID
	c.mu.Unlock()

	return nil
}

// runLoop owns the receive loop and, when AutoReconnect is set,
// supervises reconnection with exponential backoff.
func (c *Client) runLoop() {
	defer c.loopWG.Done()

	for {
		c.receiveUntilClosed()

		c.mu.Lock()
		stopped := c.stopped
		c.mu.Unlock()
		if stopped {
			return
		}

		c.failAllPending(&ErrNotConnected{})

		if !c.cfg.AutoReconnect {
			return
		}

		if !c.reconnectLoop() {
			return
		}
	}
}

// reconnectLoop retries connectOnce with exponential backoff until it
// succeeds, Stop is called, or the connect itself fails in a way that
// warrants giving up (never — retries indefinitely, matching the
// documented "sleep current delay, try connect" contract). Returns
// false if Stop was observed.
func (c *Client) reconnectLoop() bool {
	delay := baseReconnectDelay
	for {
		select {
		case <-c.stopCh:
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		err := c.connectOnce(ctx)
		cancel()
		if err == nil {
			c.resubscribeAll()
			return true
		}

		c.log.WithError(err).Warn("reconnect attempt failed")
		delay = time.Duration(float64(delay) * reconnectFactor)
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (c *Client) resubscribeAll() {
	c.mu.Lock()
	projects := make([]string, 0, len(c.subscriptions))
	for p := range c.subscriptions {
		projects = append(projects, p)
	}
	c.mu.Unlock()

	for _, p := range projects {
		if err := c.Send(protocol.Subscribe(p)); err != nil {
			c.log.WithError(err).Warn("resubscribe failed after reconnect")
		}
	}
}

// receiveUntilClosed reads frames until the connection errors or closes.
func (c *Client) receiveUntilClosed() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.Parse(raw)
		if err != nil {
			c.log.WithError(err).Warn("discarding unparseable frame")
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg protocol.Message) {
	switch msg.Type() {
	case protocol.MsgOK, protocol.MsgError, protocol.MsgPong:
		c.resolvePending(msg)
	case protocol.MsgEvent:
		c.mu.Lock()
		if eventID, ok := msg["event_id"].(float64); ok {
			c.lastEventID = fmt.Sprintf("%d", int64(eventID))
		}
		c.mu.Unlock()
		c.fireListeners(msg)
	case protocol.MsgWelcome:
		sessionID, _ := msg.String("session_id")
		c.mu.Lock()
		c.sessionID = sessionID
		c.mu.Unlock()
	}
}

func (c *Client) resolvePending(msg protocol.Message) {
	id := msg.ID()
	c.mu.Lock()
	pr, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		return
	}
	select {
	case pr.resultCh <- requestResult{msg: msg}:
	default:
	}
}

// fireListeners never blocks the receive loop: the matched listeners
// run in order on a separate goroutine, and panics are caught so one
// bad handler can't take down the others.
func (c *Client) fireListeners(msg protocol.Message) {
	eventType, _ := msg.String("event_type")

	c.mu.Lock()
	matched := append([]listenerEntry{}, c.listeners[eventType]...)
	matched = append(matched, c.listeners["*"]...)
	c.mu.Unlock()

	go func() {
		for _, entry := range matched {
			c.safeInvoke(entry.fn, msg)
		}
	}()
}

func (c *Client) safeInvoke(fn Listener, msg protocol.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warnf("event listener panicked: %v", r)
		}
	}()
	fn(msg)
}

func (c *Client) failAllPending(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]pendingRequest)
	c.mu.Unlock()

	for _, pr := range pending {
		select {
		case pr.resultCh <- requestResult{err: err}:
		default:
		}
	}
}
