package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/forge-bridge/forge-bridge/internal/platform/bridgeerr"
)

// ClientSessionRepo tracks the sessions table: one row per live or
// recently-live connection, used for the welcome handshake and for
// diagnosing stale connections.
type ClientSessionRepo struct{}

func NewClientSessionRepo() *ClientSessionRepo { return &ClientSessionRepo{} }

// Open inserts a new session row at connect time.
func (r *ClientSessionRepo) Open(ctx context.Context, db DBTX, id uuid.UUID, clientName, endpointType, host string, capabilities map[string]any) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
		INSERT INTO sessions (id, client_name, endpoint_type, host, capabilities, connected_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, id, clientName, endpointType, host, JSONMap(capabilities), now)
	if err != nil {
		return bridgeerr.Internal("open session", err)
	}
	return nil
}

// Close marks a session row disconnected at the current time.
func (r *ClientSessionRepo) Close(ctx context.Context, db DBTX, id uuid.UUID) error {
	_, err := db.ExecContext(ctx, `
		UPDATE sessions SET disconnected_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return bridgeerr.Internal("close session", err)
	}
	return nil
}

// Heartbeat refreshes last_seen_at for an active session.
func (r *ClientSessionRepo) Heartbeat(ctx context.Context, db DBTX, id uuid.UUID) error {
	_, err := db.ExecContext(ctx, `
		UPDATE sessions SET last_seen_at = now() WHERE id = $1 AND disconnected_at IS NULL
	`, id)
	if err != nil {
		return bridgeerr.Internal("heartbeat session", err)
	}
	return nil
}

// ListActive returns every session that has not been closed.
func (r *ClientSessionRepo) ListActive(ctx context.Context, db DBTX) ([]SessionRow, error) {
	var rows []SessionRow
	err := db.SelectContext(ctx, &rows, `
		SELECT id, client_name, endpoint_type, host, capabilities, connected_at, disconnected_at, last_seen_at
		FROM sessions WHERE disconnected_at IS NULL ORDER BY connected_at
	`)
	if err != nil {
		return nil, bridgeerr.Internal("list active sessions", err)
	}
	return rows, nil
}

// ReapStale marks every active session whose last_seen_at predates
// cutoff as disconnected, for the maintenance job to clean up
// connections whose sockets died without a clean close. Returns the
// number of rows closed.
func (r *ClientSessionRepo) ReapStale(ctx context.Context, db DBTX, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE sessions SET disconnected_at = now()
		WHERE disconnected_at IS NULL AND last_seen_at < $1
	`, cutoff)
	if err != nil {
		return 0, bridgeerr.Internal("reap stale sessions", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
