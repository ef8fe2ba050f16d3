package database

import (
	"database/sql"
	"path/filepath"
	"time"

	"github.com/lawnchairsociety/xianmud/internal/config"
)

// Config selects the backend a Database opens.
type Config struct {
	Dialect DialectType

	// SQLitePath is the database file for DialectSQLite.
	SQLitePath string

	// PostgresDSN is the lib/pq connection string for DialectPostgres.
	PostgresDSN string

	Pool PoolConfig
}

// PoolConfig bounds the connection pool. Zero values keep database/sql
// defaults.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (p PoolConfig) apply(db *sql.DB) {
	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.MaxIdleConns > 0 {
		db.SetMaxIdleConns(p.MaxIdleConns)
	}
	if p.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(p.ConnMaxLifetime)
	}
}

// SQLiteConfig returns a Config for a save database at path.
func SQLiteConfig(path string) Config {
	return Config{Dialect: DialectSQLite, SQLitePath: filepath.Clean(path)}
}

// FromStorage maps the storage section of the game config. Postgres gets a
// pool sized for one server process.
func FromStorage(s config.StorageConfig) Config {
	if DialectType(s.Driver) != DialectPostgres {
		return SQLiteConfig(s.SQLitePath)
	}
	return Config{
		Dialect:     DialectPostgres,
		PostgresDSN: s.Postgres.DSN(),
		Pool: PoolConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
	}
}
