package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forge-bridge/forge-bridge/internal/platform/bridgeerr"
)

func testDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "postgres")
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestProjectRepo_SaveAndGet(t *testing.T) {
	db, mock := testDB(t)
	repo := NewProjectRepo()
	id := uuid.New()

	mock.ExpectExec("INSERT INTO projects").
		WithArgs(id, "SHOW", "My Show", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	saved, err := repo.Save(context.Background(), db, ProjectRow{ID: id, Code: "SHOW", Name: "My Show"})
	require.NoError(t, err)
	assert.Equal(t, id, saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepo_GetNotFound(t *testing.T) {
	db, mock := testDB(t)
	repo := NewProjectRepo()
	id := uuid.New()

	mock.ExpectQuery("SELECT id, code, name, attributes, created_at, updated_at FROM projects").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "attributes", "created_at", "updated_at"}))

	_, err := repo.Get(context.Background(), db, id)
	require.Error(t, err)
}

func TestProjectRepo_SaveDuplicateCodeReturnsAlreadyExists(t *testing.T) {
	db, mock := testDB(t)
	repo := NewProjectRepo()
	id := uuid.New()

	mock.ExpectExec("INSERT INTO projects").
		WithArgs(id, "SHOW", "My Show", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: "projects_code_key"})

	_, err := repo.Save(context.Background(), db, ProjectRow{ID: id, Code: "SHOW", Name: "My Show"})
	require.Error(t, err)
	be, ok := bridgeerr.AsBridgeError(err)
	require.True(t, ok)
	assert.Equal(t, bridgeerr.CodeAlreadyExists, be.Code)
}

func TestEventRepo_AppendReturnsCursor(t *testing.T) {
	db, mock := testDB(t)
	repo := NewEventRepo()

	mock.ExpectQuery("INSERT INTO events").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := repo.Append(context.Background(), db, "project.created", map[string]any{"name": "x"}, AppendOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_GetSince(t *testing.T) {
	db, mock := testDB(t)
	repo := NewEventRepo()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "event_type", "session_id", "client_name", "project_id", "entity_id", "payload", "occurred_at"}).
		AddRow(int64(11), "project.created", nil, "flame", nil, nil, []byte(`{}`), now)

	mock.ExpectQuery("SELECT id, event_type").WithArgs(int64(10), 500).WillReturnRows(rows)

	events, err := repo.GetSince(context.Background(), db, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(11), events[0].ID)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, mock := testDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := WithTx(context.Background(), db, func(tx *sqlx.Tx) error {
		return assert.AnError
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db, mock := testDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := WithTx(context.Background(), db, func(tx *sqlx.Tx) error {
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
