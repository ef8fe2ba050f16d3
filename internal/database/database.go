// Package database keeps save slots in SQLite or PostgreSQL.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/lawnchairsociety/xianmud/internal/logger"
)

// Database wraps the SQL connection and implements state.SlotStore.
type Database struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*Database, error) {
	return OpenWithConfig(SQLiteConfig(path))
}

// OpenWithConfig opens the backend named by cfg.Dialect and creates the
// saves table if needed.
func OpenWithConfig(cfg Config) (*Database, error) {
	dialect := NewDialect(cfg.Dialect)
	_, postgres := dialect.(*PostgresDialect)

	dsn := cfg.SQLitePath
	if postgres {
		dsn = cfg.PostgresDSN
	} else if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	cfg.Pool.apply(db)

	if postgres {
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init %q: %w", stmt, err)
		}
	}

	d := &Database{db: db, dialect: dialect, qb: NewQueryBuilder(dialect)}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("save database opened", "driver", dialect.DriverName())
	return d, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// migrate creates the database schema if it doesn't exist.
func (d *Database) migrate() error {
	migrations := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS saves (
			slot TEXT PRIMARY KEY,
			version TEXT NOT NULL DEFAULT '',
			data %s NOT NULL,
			saved_at %s NOT NULL
		)`, d.dialect.BlobType(), d.dialect.TimestampType()),
		`CREATE INDEX IF NOT EXISTS idx_saves_saved_at ON saves(saved_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// DB returns the underlying sql.DB for advanced operations.
func (d *Database) DB() *sql.DB {
	return d.db
}
