package database

// Dialect is the part of the saves schema and query text that differs
// between backends.
type Dialect interface {
	DriverName() string

	// Placeholder renders the bind parameter at a 1-based position.
	Placeholder(position int) string

	// InitStatements run once after the pool opens.
	InitStatements() []string

	BlobType() string
	TimestampType() string
}

// DialectType names a backend. It matches the storage driver names.
type DialectType string

const (
	DialectSQLite   DialectType = "sqlite"
	DialectPostgres DialectType = "postgres"
)

// NewDialect returns the dialect for t. Anything unrecognized is SQLite.
func NewDialect(t DialectType) Dialect {
	if t == DialectPostgres {
		return &PostgresDialect{}
	}
	return &SQLiteDialect{}
}
