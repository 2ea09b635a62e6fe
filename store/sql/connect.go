package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/goliatone/go-ses-events/core"
)

// Connect opens the configured database and wraps it in a persistence client.
// Supported drivers are sqlite3 and postgres.
func Connect(cfg core.StorageConfig) (*persistence.Client, error) {
	driver, dialect, err := resolveDriver(cfg.GetDriver())
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driver, cfg.GetServer())
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s database: %w", driver, err)
	}
	// Shared in-memory sqlite databases vanish when the last connection
	// closes, so pin the pool to a single connection.
	if driver == "sqlite3" && strings.Contains(cfg.GetServer(), "mode=memory") {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	return client, nil
}

func resolveDriver(driver string) (string, schema.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return "sqlite3", sqlitedialect.New(), nil
	case "postgres", "postgresql":
		return "postgres", pgdialect.New(), nil
	default:
		return "", nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}
