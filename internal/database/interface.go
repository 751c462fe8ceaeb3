package database

import "context"

// DB is the central contract for all database operations.
// Only the code that opens connections imports the postgres, mysql or
// sqlite packages; everything else works against this interface.
type DB interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Query executes a SQL statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement that returns at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) (Row, error)

	// Dialect reports the placeholder and quoting rules of the engine.
	Dialect() Dialect
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Columns returns the column names of the result set.
	Columns() ([]string, error)

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}

// Reflector reads catalog metadata for one schema. Every relational driver
// implements it next to DB.
type Reflector interface {
	// ReflectTables returns every table, view and materialized view in
	// schema, in catalog order. An empty schema means the connection default.
	ReflectTables(ctx context.Context, schema string) ([]ReflectedTable, error)

	// ViewNames lists the plain views in schema.
	ViewNames(ctx context.Context, schema string) ([]string, error)

	// MaterializedViewNames lists materialized views in schema. Engines
	// without them return an ErrKindUnsupported error.
	MaterializedViewNames(ctx context.Context, schema string) ([]string, error)
}

// ReflectingDB is a connection that can also describe its own catalog.
type ReflectingDB interface {
	DB
	Reflector
}
