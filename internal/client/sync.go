package client

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forge-bridge/forge-bridge/internal/protocol"
)

// job is a unit of work submitted to the sync adapter's executor.
type job func()

// SyncAdapter runs a dedicated background executor goroutine that owns
// the underlying async Client. Start, Stop, Request, Send, Subscribe,
// Unsubscribe and the convenience wrappers submit a job onto that
// executor and block the caller until it completes; On, Off and
// SessionID call the async client directly. Event callbacks registered
// through On also run on the executor — so a handler registered through
// this adapter must not block, or it stalls every other queued call.
type SyncAdapter struct {
	async  *Client
	workCh chan job
	doneCh chan struct{}
}

// NewSync builds a sync adapter around a fresh async client using cfg.
func NewSync(cfg Config, log *logrus.Entry) *SyncAdapter {
	s := &SyncAdapter{
		async:  New(cfg, log),
		workCh: make(chan job, 64),
		doneCh: make(chan struct{}),
	}
	go s.executor()
	return s
}

func (s *SyncAdapter) executor() {
	for {
		select {
		case j, ok := <-s.workCh:
			if !ok {
				return
			}
			j()
		case <-s.doneCh:
			return
		}
	}
}

// submit runs fn on the executor goroutine and blocks until it returns.
func (s *SyncAdapter) submit(fn func() error) error {
	resultCh := make(chan error, 1)
	s.workCh <- func() {
		resultCh <- fn()
	}
	return <-resultCh
}

// Start connects the underlying client and blocks until the handshake
// completes.
func (s *SyncAdapter) Start(ctx context.Context) error {
	return s.submit(func() error {
		return s.async.Start(ctx)
	})
}

// Stop tears down the executor after draining the underlying client.
func (s *SyncAdapter) Stop() error {
	err := s.submit(func() error {
		return s.async.Stop()
	})
	close(s.doneCh)
	return err
}

// Request blocks until the reply arrives, same contract as the async
// client's Request but routed through the executor.
func (s *SyncAdapter) Request(ctx context.Context, msg protocol.Message, timeout time.Duration) (protocol.Message, error) {
	var result protocol.Message
	err := s.submit(func() error {
		r, rerr := s.async.Request(ctx, msg, timeout)
		result = r
		return rerr
	})
	return result, err
}

// Send is fire-and-forget, same as the async client.
func (s *SyncAdapter) Send(msg protocol.Message) error {
	return s.submit(func() error {
		return s.async.Send(msg)
	})
}

// Subscribe blocks until the subscription is acknowledged.
func (s *SyncAdapter) Subscribe(ctx context.Context, projectID string) error {
	return s.submit(func() error {
		return s.async.Subscribe(ctx, projectID)
	})
}

// Unsubscribe blocks until the unsubscription is acknowledged.
func (s *SyncAdapter) Unsubscribe(ctx context.Context, projectID string) error {
	return s.submit(func() error {
		return s.async.Unsubscribe(ctx, projectID)
	})
}

// On registers a listener whose callback body runs on the executor
// goroutine — serialized with every other submitted call.
func (s *SyncAdapter) On(eventType string, fn Listener) uint64 {
	wrapped := func(msg protocol.Message) {
		done := make(chan struct{})
		s.workCh <- func() {
			fn(msg)
			close(done)
		}
		<-done
	}
	return s.async.On(eventType, wrapped)
}

// Off removes a listener previously registered through On.
func (s *SyncAdapter) Off(eventType string, handle uint64) {
	s.async.Off(eventType, handle)
}

// SessionID returns the current session id.
func (s *SyncAdapter) SessionID() string {
	return s.async.SessionID()
}

// Convenience wrappers matching the request constructors in protocol.

func (s *SyncAdapter) CreateProject(ctx context.Context, name, code string, metadata map[string]any) (protocol.Message, error) {
	return s.Request(ctx, protocol.ProjectCreate(name, code, metadata), 0)
}

func (s *SyncAdapter) GetProject(ctx context.Context, projectID string) (protocol.Message, error) {
	return s.Request(ctx, protocol.ProjectGet(projectID), 0)
}

func (s *SyncAdapter) ListProjects(ctx context.Context) (protocol.Message, error) {
	return s.Request(ctx, protocol.ProjectList(), 0)
}

func (s *SyncAdapter) CreateEntity(ctx context.Context, entityType, projectID string, attributes map[string]any, name, status string) (protocol.Message, error) {
	return s.Request(ctx, protocol.EntityCreate(entityType, projectID, attributes, name, status), 0)
}

func (s *SyncAdapter) CreateRelationship(ctx context.Context, sourceID, targetID, relType string, attributes map[string]any) (protocol.Message, error) {
	return s.Request(ctx, protocol.RelationshipCreate(sourceID, targetID, relType, attributes), 0)
}

func (s *SyncAdapter) QueryDependents(ctx context.Context, entityID string) (protocol.Message, error) {
	return s.Request(ctx, protocol.QueryDependents(entityID), 0)
}

func (s *SyncAdapter) QueryDependencies(ctx context.Context, entityID string) (protocol.Message, error) {
	return s.Request(ctx, protocol.QueryDependencies(entityID), 0)
}
