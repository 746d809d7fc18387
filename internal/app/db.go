package app

import (
	"database/sql"
	"fmt"

	"github.com/stockpulse/stockpulse/config"

	_ "github.com/lib/pq"           // PostgreSQL driver for database/sql
	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// sqlOpener is an indirection for unit testing; defaults to sql.Open
var sqlOpener = sql.Open

// InitDB opens the relational store selected by DB_DRIVER.
//
// Behavior:
//   - "sqlite3": opens (and creates if absent) the file at SQLITE_PATH.
//   - "postgres": connects using the DSN computed during config loading.
//   - Immediately pings the database to validate connectivity.
//
// Returns:
//   - *sql.DB: an open database connection pool (safe for concurrent use).
//   - error: if the driver is unknown or opening/pinging fails.
func InitDB(cfg config.Config) (*sql.DB, error) {
	var dsn string
	switch cfg.Database.Driver {
	case "sqlite3":
		dsn = cfg.Database.SQLitePath
	case "postgres":
		dsn = cfg.Database.Postgres.URL
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Database.Driver)
	}

	db, err := sqlOpener(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Database.Driver, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Database.Driver, err)
	}

	return db, nil
}

// dbOpener is an indirection used by InitializeApp; overridden in tests to avoid real connections.
var dbOpener = InitDB
