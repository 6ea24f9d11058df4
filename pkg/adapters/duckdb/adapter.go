// Package duckdb provides a DuckDB remark source for remarkql.
package duckdb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/remarkql/pkg/adapter"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

var dialect = adapter.NewDialect("duckdb", adapter.PlaceholderQuestion, func(column string) string {
	return fmt.Sprintf("strftime(%s, '%%Y-%%m')", column)
})

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
	params *Params
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the duckdb dialect.
func (a *Adapter) Dialect() *adapter.Dialect {
	return dialect
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	if err := a.OpenAndPing(ctx, "duckdb", path, cfg); err != nil {
		return err
	}

	a.params = params
	if err := a.applyParams(ctx); err != nil {
		_ = a.Close()
		a.DB = nil
		return err
	}
	return nil
}

// applyParams installs extensions and applies settings from Params.
func (a *Adapter) applyParams(ctx context.Context) error {
	for _, ext := range a.params.Extensions {
		if err := a.Exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	names := make([]string, 0, len(a.params.Settings))
	for name := range a.params.Settings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := strings.ReplaceAll(a.params.Settings[name], "'", "''")
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = '%s'", name, value)); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", name, err)
		}
	}
	return nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
