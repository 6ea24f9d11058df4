package widget

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/leapstack-labs/remarkql/internal/query"
)

// LocationDelimiter separates country and region in a location option.
const LocationDelimiter = " / "

// Location filters on a (country, region) pair shown as "Country / Region".
type Location struct {
	src     Source
	table   string
	country string
	region  string
}

// NewLocation creates a location filter over the given columns.
func NewLocation(src Source, table, country, region string) *Location {
	return &Location{src: src, table: table, country: country, region: region}
}

func (w *Location) ID() string       { return "location" }
func (w *Location) Name() string     { return "Location" }
func (w *Location) Kind() Kind       { return KindSQL }
func (w *Location) Control() Control { return ControlMultiSelect }

// Options yields every known "Country / Region" pair in order.
func (w *Location) Options(ctx context.Context) iter.Seq2[string, error] {
	sql := fmt.Sprintf("SELECT DISTINCT %[1]s, %[2]s FROM %[3]s WHERE %[1]s IS NOT NULL AND %[2]s IS NOT NULL ORDER BY %[1]s, %[2]s",
		w.country, w.region, w.table)
	return queryOptions(ctx, w.ID(), w.src, sql, func(rec []string) string {
		return rec[0] + LocationDelimiter + rec[1]
	})
}

// Refine matches any of the selected pairs.
func (w *Location) Refine(b *query.Binder, values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	pairs := make([]string, 0, len(values))
	for _, v := range values {
		parts := strings.Split(v, LocationDelimiter)
		if len(parts) != 2 {
			return "", &SelectionError{Widget: w.ID(), Value: v, Reason: "expected \"Country / Region\""}
		}
		pairs = append(pairs, query.Paren(query.And(
			w.country+" = "+b.Bind(parts[0]),
			w.region+" = "+b.Bind(parts[1]),
		)))
	}
	return query.Paren(query.Or(pairs...)), nil
}
