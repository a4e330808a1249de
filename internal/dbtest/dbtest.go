// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/Simplici0/cabinetquote/internal/db"
	"github.com/Simplici0/cabinetquote/internal/migrations"
)

// Open returns a migrated in-memory database that is closed when the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	ctx := context.Background()
	database, err := db.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	if _, err := migrations.Up(ctx, database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return database
}
