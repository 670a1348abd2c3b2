package server

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/forge-bridge/forge-bridge/internal/connections"
	"github.com/forge-bridge/forge-bridge/internal/platform/config"
	"github.com/forge-bridge/forge-bridge/internal/platform/logging"
	"github.com/forge-bridge/forge-bridge/internal/platform/metrics"
	"github.com/forge-bridge/forge-bridge/internal/platform/testutil"
	"github.com/forge-bridge/forge-bridge/internal/protocol"
	"github.com/forge-bridge/forge-bridge/internal/registry"
	"github.com/forge-bridge/forge-bridge/internal/router"
	"github.com/forge-bridge/forge-bridge/internal/store"
)

// testServer builds a Server without going through New, so the test
// never opens a real Postgres connection or registers metrics against
// the global prometheus registry twice across test runs.
func testServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "postgres")
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	reg := registry.Default()
	log := logging.New("forge-bridge-test", "error", "text")
	conns := connections.NewManager(log.WithFields(nil))
	rt := router.New(reg, st, conns, log.WithFields(nil))

	s := &Server{
		Config:   config.DefaultConfig(),
		Store:    st,
		Registry: reg,
		Conns:    conns,
		Router:   rt,
		Metrics:  metrics.NewWithRegistry("forge-bridge-test", prometheus.NewRegistry()),
		Log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		lastPong: make(map[uuid.UUID]time.Time),
	}
	s.Config.PingInterval = 100 * time.Millisecond
	s.Config.PongTimeout = 50 * time.Millisecond
	s.Config.HelloTimeout = time.Second
	return s, mock
}

func TestHandshakeAndBye(t *testing.T) {
	s, mock := testServer(t)

	mock.ExpectExec("INSERT INTO sessions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE sessions SET disconnected_at").WillReturnResult(sqlmock.NewResult(1, 1))

	httpSrv := testutil.NewHTTPTestServer(t, http.HandlerFunc(s.handleWS))
	defer httpSrv.Close()

	u, _ := url.Parse(httpSrv.URL)
	u.Scheme = "ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer conn.Close()

	hello := protocol.Hello("tester", "cli", nil, "")
	frame, _ := hello.Serialize()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))

	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	welcome, err := protocol.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, protocol.MsgWelcome, welcome.Type())

	bye := protocol.Bye("done")
	frame, _ = bye.Serialize()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))

	// Give the server goroutine a moment to run the deferred cleanup.
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParseCursor(t *testing.T) {
	cursor, err := parseCursor("42")
	require.NoError(t, err)
	require.Equal(t, int64(42), cursor)

	_, err = parseCursor("not-a-number")
	require.Error(t, err)
}
