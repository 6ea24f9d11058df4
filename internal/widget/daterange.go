package widget

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/leapstack-labs/remarkql/internal/query"
)

const monthLayout = "2006-01"

// DateRange filters observations to whole calendar months.
type DateRange struct {
	src    Source
	table  string
	column string
}

// NewDateRange creates a month filter over a date or timestamp column.
func NewDateRange(src Source, table, column string) *DateRange {
	return &DateRange{src: src, table: table, column: column}
}

func (w *DateRange) ID() string       { return "month" }
func (w *DateRange) Name() string     { return "Month" }
func (w *DateRange) Kind() Kind       { return KindSQL }
func (w *DateRange) Control() Control { return ControlMultiSelect }

// Options yields the YYYY-MM months that have observations up to now,
// newest first.
func (w *DateRange) Options(ctx context.Context) iter.Seq2[string, error] {
	month := w.src.Dialect().MonthExpr(w.column)
	sql := fmt.Sprintf("SELECT DISTINCT %s AS month FROM %s WHERE %s <= CURRENT_TIMESTAMP ORDER BY month DESC",
		month, w.table, w.column)
	return queryOptions(ctx, w.ID(), w.src, sql, func(rec []string) string { return rec[0] })
}

// Refine emits a half-open [first of month, first of next month) range per
// token, ORed together.
func (w *DateRange) Refine(b *query.Binder, values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	ranges := make([]string, 0, len(values))
	for _, v := range values {
		start, err := time.Parse(monthLayout, v)
		if err != nil {
			return "", &SelectionError{Widget: w.ID(), Value: v, Reason: "expected YYYY-MM"}
		}
		end := start.AddDate(0, 1, 0)
		ranges = append(ranges, query.Paren(query.And(
			w.column+" >= "+b.Bind(start.Format(time.DateOnly)),
			w.column+" < "+b.Bind(end.Format(time.DateOnly)),
		)))
	}
	return query.Paren(query.Or(ranges...)), nil
}
