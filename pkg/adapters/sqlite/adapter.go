// Package sqlite provides a SQLite remark source for remarkql, backed by the
// pure-Go modernc driver.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/leapstack-labs/remarkql/pkg/adapter"

	_ "modernc.org/sqlite" // sqlite driver
)

var dialect = adapter.NewDialect("sqlite", adapter.PlaceholderQuestion, func(column string) string {
	return fmt.Sprintf("strftime('%%Y-%%m', %s)", column)
})

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the sqlite dialect.
func (a *Adapter) Dialect() *adapter.Dialect {
	return dialect
}

// Connect opens the database file at cfg.Path. Use ":memory:" for an
// in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	a.Logger.Debug("connecting to sqlite", slog.String("path", path))

	if err := a.OpenAndPing(ctx, "sqlite", buildDSN(path, cfg.Options), cfg); err != nil {
		return err
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		a.DB.SetMaxOpenConns(1)
	}
	return nil
}

// buildDSN appends options as _pragma query parameters.
func buildDSN(path string, options map[string]string) string {
	if len(options) == 0 {
		return path
	}
	q := url.Values{}
	for k, v := range options {
		q.Add("_pragma", fmt.Sprintf("%s(%s)", k, v))
	}
	return path + "?" + q.Encode()
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
