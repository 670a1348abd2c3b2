package router

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forge-bridge/forge-bridge/internal/connections"
	"github.com/forge-bridge/forge-bridge/internal/protocol"
	"github.com/forge-bridge/forge-bridge/internal/registry"
	"github.com/forge-bridge/forge-bridge/internal/store"
)

// fakeTransport records every frame sent to it; it never touches a
// real socket, letting handler tests run without a server.
type fakeTransport struct {
	sent [][]byte
}

func (f *fakeTransport) Send(frame []byte) error {
	f.sent = append(f.sent, frame)
	return nil
}
func (f *fakeTransport) Close() error      { return nil }
func (f *fakeTransport) RemoteAddr() string { return "test" }

func testRouter(t *testing.T) (*Router, sqlmock.Sqlmock, *fakeTransport, uuid.UUID) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "postgres")
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	reg := registry.Default()

	log := logrus.NewEntry(logrus.New())
	conns := connections.NewManager(log)
	r := New(reg, st, conns, log)

	sessionID := uuid.New()
	transport := &fakeTransport{}
	conns.Register(sessionID, transport, "test-client", "cli")

	return r, mock, transport, sessionID
}

func TestDispatchPing(t *testing.T) {
	r, _, _, sessionID := testRouter(t)
	reply := r.Dispatch(context.Background(), sessionID, protocol.Ping("req-1"))
	require.NotNil(t, reply)
	assert.Equal(t, protocol.MsgPong, reply.Type())
	assert.Equal(t, "req-1", reply.ID())
}

func TestDispatchUnknownType(t *testing.T) {
	r, _, _, sessionID := testRouter(t)
	reply := r.Dispatch(context.Background(), sessionID, protocol.Message{"type": "nonsense", "id": "req-2"})
	require.NotNil(t, reply)
	assert.Equal(t, protocol.MsgError, reply.Type())
	code, _ := (*reply).String("code")
	assert.Equal(t, string(protocol.ErrUnknownType), code)
}

func TestDispatchBye(t *testing.T) {
	r, _, _, sessionID := testRouter(t)
	reply := r.Dispatch(context.Background(), sessionID, protocol.Bye(""))
	assert.Nil(t, reply)
}

func TestDispatchSubscribeMalformedProjectIDIsRejected(t *testing.T) {
	r, _, _, sessionID := testRouter(t)
	reply := r.Dispatch(context.Background(), sessionID, protocol.Message{"type": "subscribe", "id": "req-3", "project_id": "not-a-uuid"})
	require.NotNil(t, reply)
	assert.Equal(t, protocol.MsgError, reply.Type())
}

func TestDispatchProjectCreatePersistsAppendsBroadcasts(t *testing.T) {
	r, mock, _, sessionID := testRouter(t)
	observer := r.Conns.Register(uuid.New(), &fakeTransport{}, "observer", "cli")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO projects").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("INSERT INTO events").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	msg := protocol.ProjectCreate("My Show", "SHOW", nil)
	reply := r.Dispatch(context.Background(), sessionID, msg)

	require.NotNil(t, reply)
	assert.Equal(t, protocol.MsgOK, reply.Type())
	require.NoError(t, mock.ExpectationsWereMet())

	// The broadcast after commit skips the originator and reaches the
	// other (wildcard-subscribed) client, whose cursor advances to the
	// appended event id.
	assert.Equal(t, int64(7), observer.LastEventID())
	originator, _ := r.Conns.Get(sessionID)
	assert.Equal(t, int64(0), originator.LastEventID())
}

func TestDispatchProjectCreateRollsBackOnPersistenceFailure(t *testing.T) {
	r, mock, _, sessionID := testRouter(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO projects").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	msg := protocol.ProjectCreate("My Show", "SHOW", nil)
	reply := r.Dispatch(context.Background(), sessionID, msg)

	require.NotNil(t, reply)
	assert.Equal(t, protocol.MsgError, reply.Type())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchProjectGetNotFound(t *testing.T) {
	r, mock, _, sessionID := testRouter(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "attributes", "created_at", "updated_at"}))

	msg := protocol.ProjectGet(id.String())
	reply := r.Dispatch(context.Background(), sessionID, msg)

	require.NotNil(t, reply)
	assert.Equal(t, protocol.MsgError, reply.Type())
	code, _ := (*reply).String("code")
	assert.Equal(t, string(protocol.ErrNotFound), code)
}

func TestDispatchQueryDependentsReturnsFlatEntityIDs(t *testing.T) {
	r, mock, _, sessionID := testRouter(t)

	shotID := uuid.New()
	dependentID := uuid.New()
	relType := uuid.New()

	mock.ExpectQuery("SELECT source_id, target_id, rel_type_key, attributes, created_at FROM relationships WHERE target_id").
		WithArgs(shotID).
		WillReturnRows(sqlmock.NewRows([]string{"source_id", "target_id", "rel_type_key", "attributes", "created_at"}).
			AddRow(dependentID, shotID, relType, []byte(`{}`), time.Now()))

	msg := protocol.QueryDependents(shotID.String())
	reply := r.Dispatch(context.Background(), sessionID, msg)

	require.NotNil(t, reply)
	assert.Equal(t, protocol.MsgOK, reply.Type())
	result := reply.Map("result")
	deps, _ := result["dependents"].([]string)
	require.Len(t, deps, 1)
	assert.Equal(t, dependentID.String(), deps[0])
}

func TestDispatchRoleRegisterDuplicateNameRejected(t *testing.T) {
	r, _, _, sessionID := testRouter(t)

	// registry.Default() seeds the system roles; registering one of
	// them again must fail before any persistence call is attempted.
	existing := r.Registry.Roles.All()
	require.NotEmpty(t, existing)

	msg := protocol.RoleRegister(existing[0].Name, "", 0, "", nil)
	reply := r.Dispatch(context.Background(), sessionID, msg)

	require.NotNil(t, reply)
	assert.Equal(t, protocol.MsgError, reply.Type())
}
