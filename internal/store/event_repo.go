package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/forge-bridge/forge-bridge/internal/platform/bridgeerr"
)

// EventRepo is the append-only event log. Appending within the same
// transaction as the triggering write is what guarantees a committed
// mutation always has a committed event: see the router for where
// Append is called alongside the mutating repository call.
type EventRepo struct{}

func NewEventRepo() *EventRepo { return &EventRepo{} }

// AppendOptions carries the optional correlation fields an event may
// carry.
type AppendOptions struct {
	SessionID  uuid.UUID
	ClientName string
	ProjectID  uuid.UUID
	EntityID   uuid.UUID
}

// Append inserts one event row and returns its assigned cursor id.
func (r *EventRepo) Append(ctx context.Context, db DBTX, eventType string, payload map[string]any, opts AppendOptions) (int64, error) {
	row := struct {
		ID int64 `db:"id"`
	}{}
	rows, err := db.QueryxContext(ctx, `
		INSERT INTO events (event_type, session_id, client_name, project_id, entity_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id
	`,
		eventType,
		nullableUUID(opts.SessionID),
		opts.ClientName,
		nullableUUID(opts.ProjectID),
		nullableUUID(opts.EntityID),
		JSONMap(payload),
	)
	if err != nil {
		return 0, bridgeerr.Internal("append event", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, bridgeerr.Internal("append event", rows.Err())
	}
	if err := rows.StructScan(&row); err != nil {
		return 0, bridgeerr.Internal("scan appended event id", err)
	}
	return row.ID, nil
}

// GetRecent returns up to limit most recent events, optionally scoped
// to one project and/or entity.
func (r *EventRepo) GetRecent(ctx context.Context, db DBTX, limit int, projectID, entityID uuid.UUID) ([]EventRow, error) {
	if limit <= 0 {
		limit = 50
	}
	query := eventSelect + ` WHERE 1=1 `
	args := []any{}
	if projectID != uuid.Nil {
		args = append(args, projectID)
		query += fmt.Sprintf("AND project_id = $%d ", len(args))
	}
	if entityID != uuid.Nil {
		args = append(args, entityID)
		query += fmt.Sprintf("AND entity_id = $%d ", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf("ORDER BY occurred_at DESC, id DESC LIMIT $%d", len(args))

	var rows []EventRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, bridgeerr.Internal("list recent events", err)
	}
	return rows, nil
}

// GetSince returns every event strictly after cursorID, in ascending
// order, for client catch-up replay. An unknown cursor is treated as
// "client is too far behind to catch up" and returns empty rather than
// erroring, so the server replays nothing for it.
func (r *EventRepo) GetSince(ctx context.Context, db DBTX, cursorID int64, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 500
	}
	var rows []EventRow
	err := db.SelectContext(ctx, &rows, eventSelect+`
		WHERE id > $1 AND EXISTS (SELECT 1 FROM events WHERE id = $1)
		ORDER BY occurred_at, id LIMIT $2
	`, cursorID, limit)
	if err != nil {
		return nil, bridgeerr.Internal("get events since cursor", err)
	}
	return rows, nil
}

const eventSelect = `
	SELECT id, event_type, session_id, client_name, project_id, entity_id, payload, occurred_at
	FROM events `

func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
