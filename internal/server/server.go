package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/forge-bridge/forge-bridge/internal/platform/config"
	"github.com/forge-bridge/forge-bridge/internal/connections"
	"github.com/forge-bridge/forge-bridge/internal/platform/logging"
	"github.com/forge-bridge/forge-bridge/internal/platform/metrics"
	"github.com/forge-bridge/forge-bridge/internal/platform/middleware"
	"github.com/forge-bridge/forge-bridge/internal/platform/migrations"
	"github.com/forge-bridge/forge-bridge/internal/protocol"
	"github.com/forge-bridge/forge-bridge/internal/registry"
	"github.com/forge-bridge/forge-bridge/internal/router"
	"github.com/forge-bridge/forge-bridge/internal/store"
)

// ServerVersion is reported in every welcome message.
const ServerVersion = "0.1.0"

// Server owns the accept socket, every collaborator a connection
// handler needs, and the auxiliary HTTP surface (/metrics, /healthz).
type Server struct {
	Config   *config.Config
	Store    *store.Store
	Registry *registry.Registry
	Conns    *connections.Manager
	Router   *router.Router
	Metrics  *metrics.Metrics
	Log      *logging.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader
	cron       *cron.Cron
	health     *middleware.HealthChecker

	mu       sync.Mutex
	lastPong map[uuid.UUID]time.Time
}

// New runs the startup sequence: ensure schema, restore the registry,
// construct the connection manager and router, and build the HTTP
// surface. It does not start accepting connections — call Run for that.
func New(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st, err := store.Open(ctx, cfg.PersistenceURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := migrations.Apply(ctx, st.DB.DB); err != nil {
		st.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	reg, err := st.Registry.RestoreRegistry(ctx, st.DB)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("restore registry: %w", err)
	}

	connLog := log.WithFields(map[string]interface{}{"component": "connections"})
	conns := connections.NewManager(connLog)

	routerLog := log.WithFields(map[string]interface{}{"component": "router"})
	rt := router.New(reg, st, conns, routerLog)

	m := metrics.Init("forge-bridge")
	health := middleware.NewHealthChecker(ServerVersion)
	health.RegisterCheck("database", func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return st.DB.PingContext(pingCtx)
	})

	s := &Server{
		Config:   cfg,
		Store:    st,
		Registry: reg,
		Conns:    conns,
		Router:   rt,
		Metrics:  m,
		Log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		cron:     cron.New(),
		health:   health,
		lastPong: make(map[uuid.UUID]time.Time),
	}

	mr := mux.NewRouter()
	mr.Use(middleware.LoggingMiddleware(log))
	mr.Use(middleware.NewRecoveryMiddleware(log).Handler)
	mr.Use(middleware.MetricsMiddleware("forge-bridge", m))
	mr.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	mr.HandleFunc("/healthz", health.Handler()).Methods(http.MethodGet)
	mr.HandleFunc("/ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mr,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.scheduleMaintenance()

	return s, nil
}

// Run starts accepting connections and blocks until ctx is cancelled,
// then performs the shutdown sequence: close the accept socket, close
// each connection cooperatively, close the persistence layer.
func (s *Server) Run(ctx context.Context) error {
	s.cron.Start()

	errCh := make(chan error, 1)
	go func() {
		s.Log.Info(ctx, fmt.Sprintf("forge-bridge listening on %s", s.Config.Addr()), nil)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	return s.Shutdown(context.Background())
}

// Shutdown closes the accept socket, closes every live connection, and
// closes the persistence layer.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cronStopCtx := s.cron.Stop()
	<-cronStopCtx.Done()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.Log.Error(ctx, "http server shutdown error", err, nil)
	}

	for _, client := range s.Conns.AllClients() {
		s.Conns.Unregister(client.SessionID)
	}

	return s.Store.Close()
}

// handleWS upgrades one HTTP request to a WebSocket connection and runs
// its lifetime to completion; it does not return until the socket closes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Error(r.Context(), "websocket upgrade failed", err, nil)
		return
	}
	s.handleConnection(r.Context(), newWSTransport(conn))
}

// handleConnection implements the per-connection flow from hello
// through disconnect.
func (s *Server) handleConnection(ctx context.Context, transport *wsTransport) {
	defer transport.Close()

	hello, err := s.awaitHello(transport)
	if err != nil {
		s.Log.Warn(ctx, "handshake failed", map[string]interface{}{"error": err.Error(), "remote": transport.RemoteAddr()})
		return
	}

	clientName, _ := hello.String("client_name")
	endpointType, _ := hello.String("endpoint_type")
	capabilities := hello.Map("capabilities")
	lastEventID, _ := hello.String("last_event_id")

	sessionID := uuid.New()
	client := s.Conns.Register(sessionID, transport, clientName, endpointType)
	s.markPong(sessionID)
	s.Metrics.RecordConnection("forge-bridge", "connected", endpointType)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.pingLoop(connCtx, sessionID)

	defer func() {
		s.Metrics.RecordConnection("forge-bridge", "disconnected", endpointType)
		_ = s.Store.Sessions.Close(context.Background(), s.Store.DB, sessionID)
		s.Conns.Unregister(sessionID)
		s.forgetPong(sessionID)
	}()

	if err := s.Store.Sessions.Open(ctx, s.Store.DB, sessionID, clientName, endpointType, transport.RemoteAddr(), capabilities); err != nil {
		s.Log.Error(ctx, "failed to open session row", err, nil)
	}

	welcome := protocol.Welcome(sessionID.String(), hello.ID(), ServerVersion, s.Registry.Summary())
	client.Send(welcome)

	s.replayCatchUp(ctx, client, lastEventID)

	s.receiveLoop(ctx, transport, sessionID)
}

// awaitHello waits up to the configured handshake timeout for a hello
// frame. Timeout or malformed input is reported as an error; the caller
// closes the socket either way.
func (s *Server) awaitHello(transport *wsTransport) (protocol.Message, error) {
	type result struct {
		msg protocol.Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		_, raw, err := transport.conn.ReadMessage()
		if err != nil {
			done <- result{err: err}
			return
		}
		msg, err := protocol.Parse(raw)
		if err != nil {
			done <- result{err: err}
			return
		}
		if msg.Type() != protocol.MsgHello {
			done <- result{err: fmt.Errorf("expected hello, got %q", msg.Type())}
			return
		}
		done <- result{msg: msg}
	}()

	select {
	case r := <-done:
		return r.msg, r.err
	case <-time.After(s.Config.HelloTimeout):
		return nil, fmt.Errorf("hello timeout after %s", s.Config.HelloTimeout)
	}
}

// replayCatchUp is best-effort: a read failure leaves the client to
// proceed without catch-up rather than failing the connection.
func (s *Server) replayCatchUp(ctx context.Context, client *connections.ConnectedClient, lastEventID string) {
	if lastEventID == "" {
		return
	}
	cursor, err := parseCursor(lastEventID)
	if err != nil {
		return
	}
	events, err := s.Store.Events.GetSince(ctx, s.Store.DB, cursor, 1000)
	if err != nil {
		s.Log.Warn(ctx, "catch-up replay failed", map[string]interface{}{"error": err.Error()})
		return
	}
	for _, row := range events {
		client.Send(protocol.Event(row.EventType, row.Payload, uuidString(row.ProjectID), uuidString(row.EntityID), row.ID))
	}
}

// receiveLoop parses and routes frames until bye, error, or close. An
// incoming pong updates the ping watchdog and the session row's
// last_seen_at instead of going through the router — pong carries no
// request id a handler could reply to.
func (s *Server) receiveLoop(ctx context.Context, transport *wsTransport, sessionID uuid.UUID) {
	for {
		_, raw, err := transport.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.Parse(raw)
		if err != nil {
			_ = transport.Send(mustSerialize(protocol.Error("", protocol.ErrInvalid, err.Error(), nil)))
			continue
		}

		if msg.Type() == protocol.MsgPong {
			s.markPong(sessionID)
			_ = s.Store.Sessions.Heartbeat(ctx, s.Store.DB, sessionID)
			continue
		}

		start := time.Now()
		reply := s.Router.Dispatch(ctx, sessionID, msg)
		s.Metrics.RecordDispatch("forge-bridge", string(msg.Type()), "ok", time.Since(start))

		if msg.Type() == protocol.MsgBye {
			return
		}
		if reply != nil {
			if client, ok := s.Conns.Get(sessionID); ok {
				client.Send(*reply)
			}
		}
	}
}

// pingLoop sends an application-level ping every PingInterval and
// disconnects the client if no pong has been seen for PongTimeout past
// the last ping.
func (s *Server) pingLoop(ctx context.Context, sessionID uuid.UUID) {
	ticker := time.NewTicker(s.Config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			client, ok := s.Conns.Get(sessionID)
			if !ok {
				return
			}
			client.Send(protocol.Ping(""))

			deadline := time.After(s.Config.PongTimeout)
			select {
			case <-ctx.Done():
				return
			case <-deadline:
				if s.pongAge(sessionID) > s.Config.PongTimeout {
					s.Log.Warn(ctx, "ping timeout, disconnecting", map[string]interface{}{"session_id": sessionID.String()})
					s.Conns.Unregister(sessionID)
					return
				}
			}
		}
	}
}

func (s *Server) markPong(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPong[sessionID] = time.Now()
}

func (s *Server) forgetPong(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastPong, sessionID)
}

func (s *Server) pongAge(sessionID uuid.UUID) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastPong[sessionID]
	if !ok {
		return time.Hour
	}
	return time.Since(last)
}

func mustSerialize(msg protocol.Message) []byte {
	frame, _ := msg.Serialize()
	return frame
}

func uuidString(id uuid.NullUUID) string {
	if !id.Valid {
		return ""
	}
	return id.UUID.String()
}

func parseCursor(s string) (int64, error) {
	var cursor int64
	_, err := fmt.Sscanf(s, "%d", &cursor)
	return cursor, err
}
