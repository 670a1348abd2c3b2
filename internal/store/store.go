package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/forge-bridge/forge-bridge/internal/platform/database"
)

// Store bundles one repository per aggregate over a shared connection
// pool. Handlers call WithTx themselves when a mutation and its event
// append must commit together; read-only query handlers can use DB
// directly.
type Store struct {
	DB *sqlx.DB

	Projects      *ProjectRepo
	Entities      *EntityRepo
	Locations     *LocationRepo
	Relationships *RelationshipRepo
	Events        *EventRepo
	Sessions      *ClientSessionRepo
	Registry      *RegistryRepo
}

// Open connects to Postgres and wraps the pool in a Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := database.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return New(sqlx.NewDb(db, "postgres")), nil
}

// New builds a Store over an already-open connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{
		DB:            db,
		Projects:      NewProjectRepo(),
		Entities:      NewEntityRepo(),
		Locations:     NewLocationRepo(),
		Relationships: NewRelationshipRepo(),
		Events:        NewEventRepo(),
		Sessions:      NewClientSessionRepo(),
		Registry:      NewRegistryRepo(),
	}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.DB.Close()
}
