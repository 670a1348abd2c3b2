package connections

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/forge-bridge/forge-bridge/internal/protocol"
)

// Manager owns every live connection. Thread-safety: unlike the
// single-threaded asyncio original, handlers run on one goroutine per
// connection, so every index is guarded by a mutex.
type Manager struct {
	log *logrus.Entry

	mu           sync.RWMutex
	clients      map[uuid.UUID]*ConnectedClient
	projectSubs  map[uuid.UUID]map[uuid.UUID]struct{} // project_id -> session_ids
}

func NewManager(log *logrus.Entry) *Manager {
	return &Manager{
		log:         log,
		clients:     make(map[uuid.UUID]*ConnectedClient),
		projectSubs: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// Register adds a new connection, called after the hello/welcome
// handshake completes.
func (m *Manager) Register(sessionID uuid.UUID, transport Transport, clientName, endpointType string) *ConnectedClient {
	client := NewConnectedClient(sessionID, transport, clientName, endpointType)

	m.mu.Lock()
	m.clients[sessionID] = client
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"client_name":   clientName,
		"endpoint_type": endpointType,
		"session_id":    shortID(sessionID),
		"address":       client.RemoteAddress(),
	}).Info("client connected")
	return client
}

// Unregister removes a connection and every subscription index entry
// that referenced it. Called on disconnect.
func (m *Manager) Unregister(sessionID uuid.UUID) *ConnectedClient {
	m.mu.Lock()
	client, ok := m.clients[sessionID]
	if ok {
		delete(m.clients, sessionID)
		for _, subs := range m.projectSubs {
			delete(subs, sessionID)
		}
	}
	m.mu.Unlock()

	if ok {
		m.log.WithFields(logrus.Fields{
			"client_name": client.ClientName,
			"session_id":  shortID(sessionID),
		}).Info("client disconnected")
		client.Close()
	}
	return client
}

// Get returns the client for sessionID, or false if not connected.
func (m *Manager) Get(sessionID uuid.UUID) (*ConnectedClient, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[sessionID]
	return c, ok
}

// AllClients returns every currently connected client.
func (m *Manager) AllClients() []*ConnectedClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ConnectedClient, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	return out
}

// Count returns the number of live connections.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Subscribe adds projectID to sessionID's subscription set.
func (m *Manager) Subscribe(sessionID, projectID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	client, ok := m.clients[sessionID]
	if !ok {
		return
	}
	client.addSubscription(projectID)
	if m.projectSubs[projectID] == nil {
		m.projectSubs[projectID] = make(map[uuid.UUID]struct{})
	}
	m.projectSubs[projectID][sessionID] = struct{}{}
}

// Unsubscribe removes projectID from sessionID's subscription set.
func (m *Manager) Unsubscribe(sessionID, projectID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	client, ok := m.clients[sessionID]
	if !ok {
		return
	}
	client.removeSubscription(projectID)
	if subs, ok := m.projectSubs[projectID]; ok {
		delete(subs, sessionID)
	}
}

// SendTo delivers msg to one specific client. Returns false if the
// client isn't connected or its outbound queue is full.
func (m *Manager) SendTo(sessionID uuid.UUID, msg protocol.Message) bool {
	m.mu.RLock()
	client, ok := m.clients[sessionID]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return client.Send(msg)
}

// Broadcast fans msg out to every eligible recipient. When projectID is
// the zero UUID the target set is every connected client; otherwise it
// is the project's subscribers unioned with every wildcard client
// (empty subscription set). exclude, if non-zero, drops the originator
// from the target set. Returns the number of clients reached.
func (m *Manager) Broadcast(msg protocol.Message, projectID, exclude uuid.UUID) int {
	targets := m.broadcastTargets(projectID, exclude)
	sent := 0
	for _, client := range targets {
		if client.Send(msg) {
			sent++
		}
	}
	return sent
}

func (m *Manager) broadcastTargets(projectID, exclude uuid.UUID) []*ConnectedClient {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	var targets []*ConnectedClient

	add := func(sessionID uuid.UUID) {
		if sessionID == exclude {
			return
		}
		if _, dup := seen[sessionID]; dup {
			return
		}
		client, ok := m.clients[sessionID]
		if !ok {
			return
		}
		seen[sessionID] = struct{}{}
		targets = append(targets, client)
	}

	if projectID == uuid.Nil {
		for sessionID := range m.clients {
			add(sessionID)
		}
		return targets
	}

	for sessionID := range m.projectSubs[projectID] {
		add(sessionID)
	}
	for sessionID, client := range m.clients {
		if client.SubscribesTo(projectID) && len(client.subscriptionList()) == 0 {
			add(sessionID)
		}
	}
	return targets
}

// BroadcastEvent builds the wire event message and broadcasts it,
// excluding the originator. The last_event_id cursor advances only for
// recipients whose send was enqueued; a dropped send leaves it stale.
func (m *Manager) BroadcastEvent(eventType string, payload map[string]any, projectID, entityID, originator uuid.UUID, eventID int64) int {
	msg := protocol.Event(eventType, payload, uuidOrEmpty(projectID), uuidOrEmpty(entityID), eventID)

	sent := 0
	for _, client := range m.broadcastTargets(projectID, originator) {
		if client.Send(msg) {
			client.setLastEventID(eventID)
			sent++
		}
	}
	return sent
}

// StatusClient is the wire-facing shape of one client in Status.
type StatusClient struct {
	SessionID     string   `json:"session_id"`
	ClientName    string   `json:"client_name"`
	EndpointType  string   `json:"endpoint_type"`
	Address       string   `json:"address"`
	Subscriptions []string `json:"subscriptions"`
}

// Status summarizes current connection state for diagnostics.
func (m *Manager) Status() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	clients := make([]StatusClient, 0, len(m.clients))
	for _, c := range m.clients {
		subs := c.subscriptionList()
		subStrings := make([]string, 0, len(subs))
		for _, s := range subs {
			subStrings = append(subStrings, s.String())
		}
		clients = append(clients, StatusClient{
			SessionID:     c.SessionID.String(),
			ClientName:    c.ClientName,
			EndpointType:  c.EndpointType,
			Address:       c.RemoteAddress(),
			Subscriptions: subStrings,
		})
	}
	return map[string]any{
		"total_connections": len(m.clients),
		"clients":           clients,
	}
}

func uuidOrEmpty(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func shortID(id uuid.UUID) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
