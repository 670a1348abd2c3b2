// Package migrations embeds and applies the bridge server's schema. Each
// embedded file is a single forward-only migration, executed once per
// process startup in filename order against whatever Postgres instance
// Config.PersistenceURL points at.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
)

//go:embed *.sql
var files embed.FS

// Apply executes every embedded migration file, in lexical filename order,
// against db. It is not idempotent across partial failures: a migration
// file that fails halfway through leaves the schema in whatever state its
// own statements left it in, since Postgres only treats a single Exec call
// as one implicit transaction when the driver doesn't wrap it in BEGIN/COMMIT.
func Apply(ctx context.Context, db *sql.DB) error {
	entries, err := files.ReadDir(".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		contents, err := files.ReadFile(entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := db.ExecContext(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}
