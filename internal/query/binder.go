// Package query assembles the parameterized SQL that remarkql sends to a
// data source. Identifiers come from validated configuration; every
// user-selected value goes through a Binder.
package query

import (
	"strings"

	"github.com/leapstack-labs/remarkql/pkg/adapter"
)

// Binder collects bound arguments for one statement and renders the
// matching placeholders for the target dialect.
type Binder struct {
	dialect *adapter.Dialect
	args    []any
}

// NewBinder returns an empty binder for the dialect.
func NewBinder(d *adapter.Dialect) *Binder {
	return &Binder{dialect: d}
}

// Bind records v as the next argument and returns its placeholder.
func (b *Binder) Bind(v any) string {
	b.args = append(b.args, v)
	return b.dialect.FormatPlaceholder(len(b.args))
}

// BindAll binds each value and returns the placeholders joined by ", ".
func (b *Binder) BindAll(values []string) string {
	ph := make([]string, len(values))
	for i, v := range values {
		ph[i] = b.Bind(v)
	}
	return strings.Join(ph, ", ")
}

// Args returns the bound arguments in placeholder order.
func (b *Binder) Args() []any {
	return b.args
}

// Dialect returns the dialect placeholders are rendered for.
func (b *Binder) Dialect() *adapter.Dialect {
	return b.dialect
}
