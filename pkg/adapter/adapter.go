// Package adapter provides the read-only data source contract used by
// remarkql to fetch survey remarks and widget options.
//
// Concrete adapters live in pkg/adapters/ subdirectories and register
// themselves with this package from their init() functions.
package adapter

import (
	"context"
	"database/sql"
	"iter"
)

// Config holds the configuration for connecting to a database.
type Config struct {
	// Type specifies the database type (e.g., "postgres", "duckdb", "sqlite")
	Type string

	// Path is the file path for file-based databases (DuckDB, SQLite).
	// Use ":memory:" for an in-memory database.
	Path string

	// Host is the hostname for network-based databases
	Host string

	// Port is the port number for network-based databases
	Port int

	// Database is the database name
	Database string

	// Username for authentication
	Username string

	// Password for authentication
	Password string

	// Schema is the default schema to use
	Schema string

	// Options contains additional connection-string options (e.g. sslmode)
	Options map[string]string

	// Params holds adapter-specific settings, decoded by each adapter.
	Params map[string]any
}

// Rows wraps sql.Rows to provide a consistent interface across adapters.
type Rows struct {
	*sql.Rows
}

// Records returns a lazy sequence over the remaining rows, each scanned as
// strings (NULL becomes ""). The rows are closed when the sequence finishes
// or the consumer stops early. A scan or iteration error is yielded once and
// ends the sequence.
func (r *Rows) Records() iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		defer func() { _ = r.Close() }()

		cols, err := r.Columns()
		if err != nil {
			yield(nil, err)
			return
		}

		for r.Next() {
			values := make([]sql.NullString, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := r.Scan(ptrs...); err != nil {
				yield(nil, err)
				return
			}

			record := make([]string, len(cols))
			for i, v := range values {
				record[i] = v.String
			}
			if !yield(record, nil) {
				return
			}
		}

		if err := r.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Adapter defines the interface that all database adapters must implement.
// remarkql only ever reads through an adapter; statements are built by the
// widget and orchestrator packages with every user-selected value bound as
// a parameter.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Query executes a read-only SQL statement with bound arguments.
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)

	// Dialect returns the SQL dialect used to render placeholders and
	// dialect-specific expressions.
	Dialect() *Dialect
}
