package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/forge-bridge/forge-bridge/internal/platform/bridgeerr"
)

// EntityRepo reads and writes the entities table: sequences, shots,
// assets, versions, media, layers, and stacks all share one table
// keyed by entity_type.
type EntityRepo struct{}

func NewEntityRepo() *EntityRepo { return &EntityRepo{} }

// Save inserts or updates an entity, preserving its id across updates.
func (r *EntityRepo) Save(ctx context.Context, db DBTX, row EntityRow) (EntityRow, error) {
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	_, err := db.ExecContext(ctx, `
		INSERT INTO entities (id, entity_type, project_id, name, status, parent_id, parent_type, role_key, attributes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			parent_id = EXCLUDED.parent_id,
			parent_type = EXCLUDED.parent_type,
			role_key = EXCLUDED.role_key,
			attributes = EXCLUDED.attributes,
			updated_at = EXCLUDED.updated_at
	`, row.ID, row.EntityType, row.ProjectID, row.Name, row.Status, row.ParentID, row.ParentType, row.RoleKey, row.Attributes, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return EntityRow{}, bridgeerr.Internal("save entity", err)
	}
	return row, nil
}

// Get fetches an entity by id.
func (r *EntityRepo) Get(ctx context.Context, db DBTX, id uuid.UUID) (EntityRow, error) {
	var row EntityRow
	err := db.GetContext(ctx, &row, entitySelect+` WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return EntityRow{}, bridgeerr.NotFound("entity", id.String())
	}
	if err != nil {
		return EntityRow{}, bridgeerr.Internal("get entity", err)
	}
	return row, nil
}

// ListByType returns every entity of entityType, optionally scoped to
// one project.
func (r *EntityRepo) ListByType(ctx context.Context, db DBTX, entityType string, projectID uuid.UUID) ([]EntityRow, error) {
	var rows []EntityRow
	var err error
	if projectID == uuid.Nil {
		err = db.SelectContext(ctx, &rows, entitySelect+` WHERE entity_type = $1 ORDER BY created_at`, entityType)
	} else {
		err = db.SelectContext(ctx, &rows, entitySelect+` WHERE entity_type = $1 AND project_id = $2 ORDER BY created_at`, entityType, projectID)
	}
	if err != nil {
		return nil, bridgeerr.Internal("list entities by type", err)
	}
	return rows, nil
}

// FindByAttribute returns every entity of entityType whose attributes
// column contains every key/value pair in filter (JSONB containment),
// the authoritative source of truth over any in-memory cache.
func (r *EntityRepo) FindByAttribute(ctx context.Context, db DBTX, entityType string, filter map[string]any) ([]EntityRow, error) {
	payload, err := json.Marshal(filter)
	if err != nil {
		return nil, bridgeerr.Invalid("attributes", "filter is not valid JSON")
	}
	var rows []EntityRow
	err = db.SelectContext(ctx, &rows, entitySelect+`
		WHERE entity_type = $1 AND attributes @> $2::jsonb
		ORDER BY created_at
	`, entityType, string(payload))
	if err != nil {
		return nil, bridgeerr.Internal("find entities by attribute", err)
	}
	return rows, nil
}

// Delete removes an entity by id.
func (r *EntityRepo) Delete(ctx context.Context, db DBTX, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM entities WHERE id = $1`, id)
	if err != nil {
		return bridgeerr.Internal("delete entity", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return bridgeerr.NotFound("entity", id.String())
	}
	return nil
}

const entitySelect = `
	SELECT id, entity_type, project_id, name, status, parent_id, parent_type, role_key, attributes, created_at, updated_at
	FROM entities`
