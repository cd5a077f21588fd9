package migrations_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/msomdec/task-manager/internal/migrations"
	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Every new connection to :memory: is a fresh database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func appliedVersions(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM goose_db_version WHERE version_id > 0").Scan(&count)
	if err != nil {
		t.Fatalf("count goose_db_version: %v", err)
	}
	return count
}

func TestRunMigrations(t *testing.T) {
	db := openMemoryDB(t)

	// Enable foreign keys for consistency with production.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}

	ctx := context.Background()

	if err := migrations.Run(ctx, db, migrations.DialectSQLite); err != nil {
		t.Fatalf("first migration run: %v", err)
	}

	// Verify the users table exists by inserting a row.
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		"u1", "Test User", "test@example.com", "hash123",
	)
	if err != nil {
		t.Fatalf("insert into users: %v", err)
	}

	if n := appliedVersions(t, db); n == 0 {
		t.Fatal("expected at least one migration recorded in goose_db_version")
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	// Run migrations twice; second run should be a no-op.
	if err := migrations.Run(ctx, db, migrations.DialectSQLite); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(ctx, db, migrations.DialectSQLite); err != nil {
		t.Fatalf("second run (idempotent): %v", err)
	}

	if n := appliedVersions(t, db); n != 1 {
		t.Fatalf("expected 1 migration record, got %d", n)
	}
}

func TestRunMigrationsRejectsUnknownDialect(t *testing.T) {
	db := openMemoryDB(t)

	if err := migrations.Run(context.Background(), db, "mysql"); err == nil {
		t.Fatal("expected error for unsupported dialect")
	}
}

func TestRunMigrationsAgeConstraint(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	if err := migrations.Run(ctx, db, migrations.DialectSQLite); err != nil {
		t.Fatalf("run: %v", err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, age, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		"u1", "Neg", "neg@example.com", "hash", -1,
	)
	if err == nil {
		t.Fatal("expected negative age to violate the check constraint")
	}
}
