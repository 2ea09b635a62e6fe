package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	sesevents "github.com/goliatone/go-ses-events"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 registration call, got %d", len(calls))
	}
	if calls[0] != DialectSQLite {
		t.Fatalf("expected sqlite registration, got %q", calls[0])
	}
}

func TestRegister_DefaultsSourceLabel(t *testing.T) {
	reg, err := Register(context.Background(), func(_ context.Context, _ string, sourceLabel string, _ fs.FS) error {
		if sourceLabel != "go-ses-events" {
			t.Fatalf("unexpected source label %q", sourceLabel)
		}
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.SourceLabel != "go-ses-events" {
		t.Fatalf("unexpected registration source label %q", reg.SourceLabel)
	}
}

func TestEventsSchemaMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := sesevents.GetCoreMigrationsFS()
	paths := []string{
		"data/sql/migrations/20250601000000_create_ses_events_schema.up.sql",
		"data/sql/migrations/20250601000000_create_ses_events_schema.down.sql",
		"data/sql/migrations/sqlite/20250601000000_create_ses_events_schema.up.sql",
		"data/sql/migrations/sqlite/20250601000000_create_ses_events_schema.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteEventsSchemaMigration_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-events-schema?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	root := sesevents.GetCoreMigrationsFS()
	sqliteMigrations, err := fs.Sub(root, "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}

	if err := execSQLMigration(
		context.Background(),
		db,
		sqliteMigrations,
		"20250601000000_create_ses_events_schema.up.sql",
	); err != nil {
		t.Fatalf("apply schema migration up: %v", err)
	}

	requiredTables := []string{
		"blacklisted_addresses",
		"ses_bounces",
		"ses_complaints",
		"ses_send_stats",
	}
	for _, tableName := range requiredTables {
		var count int
		if err := db.QueryRowContext(
			context.Background(),
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
			tableName,
		).Scan(&count); err != nil {
			t.Fatalf("query sqlite_master for %s: %v", tableName, err)
		}
		if count != 1 {
			t.Fatalf("expected table %s to exist after up migration", tableName)
		}
	}

	insertStatement := `
		INSERT INTO blacklisted_addresses (id, email, created_at)
		VALUES (?, ?, ?)
	`
	if _, err := db.ExecContext(
		context.Background(),
		insertStatement,
		"addr-1",
		"gone@example.com",
		"2026-01-01T00:00:00Z",
	); err != nil {
		t.Fatalf("insert blacklisted address: %v", err)
	}
	if _, err := db.ExecContext(
		context.Background(),
		insertStatement,
		"addr-2",
		"gone@example.com",
		"2026-01-01T00:01:00Z",
	); err == nil {
		t.Fatalf("expected unique email violation after up migration")
	}

	if err := execSQLMigration(
		context.Background(),
		db,
		sqliteMigrations,
		"20250601000000_create_ses_events_schema.down.sql",
	); err != nil {
		t.Fatalf("apply schema migration down: %v", err)
	}

	var count int
	if err := db.QueryRowContext(
		context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
		"blacklisted_addresses",
	).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master after down migration: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected blacklisted_addresses to be dropped after down migration")
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
