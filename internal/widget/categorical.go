package widget

import (
	"context"
	"fmt"
	"iter"

	"github.com/leapstack-labs/remarkql/internal/query"
)

// Categorical filters one column by membership in the selected values.
type Categorical struct {
	id     string
	name   string
	src    Source
	table  string
	column string
}

// NewCategorical creates a membership filter over column.
func NewCategorical(src Source, id, name, table, column string) *Categorical {
	return &Categorical{id: id, name: name, src: src, table: table, column: column}
}

func (w *Categorical) ID() string       { return w.id }
func (w *Categorical) Name() string     { return w.name }
func (w *Categorical) Kind() Kind       { return KindSQL }
func (w *Categorical) Control() Control { return ControlMultiSelect }

// Options yields the distinct non-null values of the column.
func (w *Categorical) Options(ctx context.Context) iter.Seq2[string, error] {
	sql := fmt.Sprintf("SELECT DISTINCT %[1]s FROM %[2]s WHERE %[1]s IS NOT NULL ORDER BY %[1]s", w.column, w.table)
	return queryOptions(ctx, w.id, w.src, sql, func(rec []string) string { return rec[0] })
}

// Refine renders "<column> IN (...)".
func (w *Categorical) Refine(b *query.Binder, values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	return fmt.Sprintf("%s IN (%s)", w.column, b.BindAll(values)), nil
}
