package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/forge-bridge/forge-bridge/internal/platform/bridgeerr"
)

// LocationRepo reads and writes the locations table.
type LocationRepo struct{}

func NewLocationRepo() *LocationRepo { return &LocationRepo{} }

// ReplaceEntityLocations atomically replaces every location owned by
// entityID with rows, preserving priority order. Called from within a
// transaction so the delete and the inserts commit or roll back
// together.
func (r *LocationRepo) ReplaceEntityLocations(ctx context.Context, db DBTX, entityID uuid.UUID, rows []LocationRow) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM locations WHERE owner_entity_id = $1`, entityID); err != nil {
		return bridgeerr.Internal("clear entity locations", err)
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO locations (id, owner_entity_id, path, storage_type, priority, exists_cache, checked_at, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		`, row.ID, entityID, row.Path, row.StorageType, row.Priority, row.ExistsCache, row.CheckedAt, row.Metadata)
		if err != nil {
			return bridgeerr.Internal("insert entity location", err)
		}
	}
	return nil
}

// ReplaceProjectLocations is ReplaceEntityLocations's project-owned
// counterpart, used for project-level asset roots.
func (r *LocationRepo) ReplaceProjectLocations(ctx context.Context, db DBTX, projectID uuid.UUID, rows []LocationRow) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM locations WHERE owner_project_id = $1`, projectID); err != nil {
		return bridgeerr.Internal("clear project locations", err)
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO locations (id, owner_project_id, path, storage_type, priority, exists_cache, checked_at, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		`, row.ID, projectID, row.Path, row.StorageType, row.Priority, row.ExistsCache, row.CheckedAt, row.Metadata)
		if err != nil {
			return bridgeerr.Internal("insert project location", err)
		}
	}
	return nil
}

// ListForEntity returns entityID's locations, highest priority first.
func (r *LocationRepo) ListForEntity(ctx context.Context, db DBTX, entityID uuid.UUID) ([]LocationRow, error) {
	var rows []LocationRow
	err := db.SelectContext(ctx, &rows, `
		SELECT id, owner_project_id, owner_entity_id, path, storage_type, priority, exists_cache, checked_at, metadata, created_at
		FROM locations WHERE owner_entity_id = $1 ORDER BY priority DESC
	`, entityID)
	if err != nil {
		return nil, bridgeerr.Internal("list entity locations", err)
	}
	return rows, nil
}

// StaleSince returns every location whose exists_cache has not been
// rechecked since before cutoff, for the maintenance job's recheck pass.
func (r *LocationRepo) StaleSince(ctx context.Context, db DBTX, cutoffUnixSeconds int64, limit int) ([]LocationRow, error) {
	var rows []LocationRow
	err := db.SelectContext(ctx, &rows, `
		SELECT id, owner_project_id, owner_entity_id, path, storage_type, priority, exists_cache, checked_at, metadata, created_at
		FROM locations
		WHERE checked_at IS NULL OR checked_at < to_timestamp($1)
		ORDER BY checked_at NULLS FIRST
		LIMIT $2
	`, cutoffUnixSeconds, limit)
	if err != nil {
		return nil, bridgeerr.Internal("list stale locations", err)
	}
	return rows, nil
}

// UpdateExistence persists a recheck's outcome for one location.
func (r *LocationRepo) UpdateExistence(ctx context.Context, db DBTX, id uuid.UUID, exists bool) error {
	_, err := db.ExecContext(ctx, `
		UPDATE locations SET exists_cache = $1, checked_at = now() WHERE id = $2
	`, exists, id)
	if err != nil {
		return bridgeerr.Internal("update location existence", err)
	}
	return nil
}
