package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// WithTx scopes fn to one transaction: commit if fn returns nil,
// rollback otherwise. A panic inside fn is rolled back and re-raised,
// matching the commit-on-success/rollback-on-exception contract every
// router handler needs when it appends an event alongside a write.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("store: rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}
	return nil
}
