package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/forge-bridge/forge-bridge/internal/platform/bridgeerr"
)

// pqUniqueViolation is the Postgres error code for a unique constraint
// violation (23505), per lib/pq's pq.Error.Code.
const pqUniqueViolation = "23505"

// ProjectRepo reads and writes the projects table.
type ProjectRepo struct{}

func NewProjectRepo() *ProjectRepo { return &ProjectRepo{} }

// Save inserts or, if id already exists, updates a project.
func (r *ProjectRepo) Save(ctx context.Context, db DBTX, row ProjectRow) (ProjectRow, error) {
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	_, err := db.ExecContext(ctx, `
		INSERT INTO projects (id, code, name, attributes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code,
			name = EXCLUDED.name,
			attributes = EXCLUDED.attributes,
			updated_at = EXCLUDED.updated_at
	`, row.ID, row.Code, row.Name, row.Attributes, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ProjectRow{}, bridgeerr.AlreadyExists("project", row.Code)
		}
		return ProjectRow{}, bridgeerr.Internal("save project", err)
	}
	return row, nil
}

// Get fetches a project by id.
func (r *ProjectRepo) Get(ctx context.Context, db DBTX, id uuid.UUID) (ProjectRow, error) {
	var row ProjectRow
	err := db.GetContext(ctx, &row, `
		SELECT id, code, name, attributes, created_at, updated_at FROM projects WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ProjectRow{}, bridgeerr.NotFound("project", id.String())
	}
	if err != nil {
		return ProjectRow{}, bridgeerr.Internal("get project", err)
	}
	return row, nil
}

// GetByCode fetches a project by its unique short code.
func (r *ProjectRepo) GetByCode(ctx context.Context, db DBTX, code string) (ProjectRow, error) {
	var row ProjectRow
	err := db.GetContext(ctx, &row, `
		SELECT id, code, name, attributes, created_at, updated_at FROM projects WHERE code = $1
	`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return ProjectRow{}, bridgeerr.NotFound("project", code)
	}
	if err != nil {
		return ProjectRow{}, bridgeerr.Internal("get project by code", err)
	}
	return row, nil
}

// ListAll returns every project ordered by creation time.
func (r *ProjectRepo) ListAll(ctx context.Context, db DBTX) ([]ProjectRow, error) {
	var rows []ProjectRow
	err := db.SelectContext(ctx, &rows, `
		SELECT id, code, name, attributes, created_at, updated_at FROM projects ORDER BY created_at
	`)
	if err != nil {
		return nil, bridgeerr.Internal("list projects", err)
	}
	return rows, nil
}

// Delete removes a project by id.
func (r *ProjectRepo) Delete(ctx context.Context, db DBTX, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return bridgeerr.Internal("delete project", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return bridgeerr.NotFound("project", id.String())
	}
	return nil
}
