package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/forge-bridge/forge-bridge/internal/platform/bridgeerr"
)

// RelationshipRepo reads and writes the relationships table: directed
// edges keyed by (source_id, target_id, rel_type_key).
type RelationshipRepo struct{}

func NewRelationshipRepo() *RelationshipRepo { return &RelationshipRepo{} }

// Save is idempotent on the unique (source, target, rel_type) triple —
// a repeated declare just refreshes attributes.
func (r *RelationshipRepo) Save(ctx context.Context, db DBTX, row RelationshipRow) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO relationships (source_id, target_id, rel_type_key, attributes, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (source_id, target_id, rel_type_key) DO UPDATE SET attributes = EXCLUDED.attributes
	`, row.SourceID, row.TargetID, row.RelTypeKey, row.Attributes)
	if err != nil {
		return bridgeerr.Internal("save relationship", err)
	}
	return nil
}

// Outgoing returns every edge whose source is entityID, optionally
// filtered to one relationship type.
func (r *RelationshipRepo) Outgoing(ctx context.Context, db DBTX, entityID uuid.UUID, relTypeKey uuid.UUID) ([]RelationshipRow, error) {
	var rows []RelationshipRow
	var err error
	if relTypeKey == uuid.Nil {
		err = db.SelectContext(ctx, &rows, `
			SELECT source_id, target_id, rel_type_key, attributes, created_at FROM relationships WHERE source_id = $1
		`, entityID)
	} else {
		err = db.SelectContext(ctx, &rows, `
			SELECT source_id, target_id, rel_type_key, attributes, created_at FROM relationships
			WHERE source_id = $1 AND rel_type_key = $2
		`, entityID, relTypeKey)
	}
	if err != nil {
		return nil, bridgeerr.Internal("list outgoing relationships", err)
	}
	return rows, nil
}

// Incoming returns every edge whose target is entityID, optionally
// filtered to one relationship type.
func (r *RelationshipRepo) Incoming(ctx context.Context, db DBTX, entityID uuid.UUID, relTypeKey uuid.UUID) ([]RelationshipRow, error) {
	var rows []RelationshipRow
	var err error
	if relTypeKey == uuid.Nil {
		err = db.SelectContext(ctx, &rows, `
			SELECT source_id, target_id, rel_type_key, attributes, created_at FROM relationships WHERE target_id = $1
		`, entityID)
	} else {
		err = db.SelectContext(ctx, &rows, `
			SELECT source_id, target_id, rel_type_key, attributes, created_at FROM relationships
			WHERE target_id = $1 AND rel_type_key = $2
		`, entityID, relTypeKey)
	}
	if err != nil {
		return nil, bridgeerr.Internal("list incoming relationships", err)
	}
	return rows, nil
}

// GetDependents returns every entity that depends on entityID — the
// incoming edges, i.e. things that would orphan if entityID vanished.
func (r *RelationshipRepo) GetDependents(ctx context.Context, db DBTX, entityID uuid.UUID) ([]RelationshipRow, error) {
	return r.Incoming(ctx, db, entityID, uuid.Nil)
}

// GetDependencies returns every entity entityID depends on — its
// outgoing edges.
func (r *RelationshipRepo) GetDependencies(ctx context.Context, db DBTX, entityID uuid.UUID) ([]RelationshipRow, error) {
	return r.Outgoing(ctx, db, entityID, uuid.Nil)
}

// Delete removes one edge by its full triple.
func (r *RelationshipRepo) Delete(ctx context.Context, db DBTX, sourceID, targetID, relTypeKey uuid.UUID) error {
	res, err := db.ExecContext(ctx, `
		DELETE FROM relationships WHERE source_id = $1 AND target_id = $2 AND rel_type_key = $3
	`, sourceID, targetID, relTypeKey)
	if err != nil {
		return bridgeerr.Internal("delete relationship", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return bridgeerr.NotFound("relationship", sourceID.String()+"->"+targetID.String())
	}
	return nil
}
