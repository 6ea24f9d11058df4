// Package widget defines the filter and parameter controls an analyst uses
// to narrow the remark population and shape the summary.
//
// Filter widgets contribute a SQL predicate fragment; parameter widgets
// contribute a prompt parameter. Widgets are built once from a fixed
// catalog and hold only read-only state, so they are safe for concurrent use.
package widget

import (
	"context"
	"fmt"
	"iter"

	"github.com/leapstack-labs/remarkql/internal/query"
	"github.com/leapstack-labs/remarkql/pkg/adapter"
)

// Kind tells the orchestrator which phase consumes a widget.
type Kind int

const (
	// KindSQL widgets produce predicate fragments.
	KindSQL Kind = iota
	// KindLLM widgets produce prompt parameters.
	KindLLM
)

func (k Kind) String() string {
	switch k {
	case KindSQL:
		return "sql"
	case KindLLM:
		return "llm"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Control is the presentation hint a UI uses to render a widget.
type Control int

const (
	ControlMultiSelect Control = iota
	ControlSelect
	ControlSlider
)

// Widget is the display contract shared by every control.
type Widget interface {
	// ID is the stable slot key used in a Selection.
	ID() string
	// Name is the display label.
	Name() string
	Kind() Kind
	Control() Control
	// Options lists the selectable values. Database-backed widgets run
	// their query when the sequence is iterated.
	Options(ctx context.Context) iter.Seq2[string, error]
}

// Filter is a widget that narrows the remark query.
type Filter interface {
	Widget
	// Refine binds the selected values and returns a predicate fragment,
	// or "" for an empty selection.
	Refine(b *query.Binder, values []string) (string, error)
}

// Parameter is a widget that supplies a prompt parameter.
type Parameter interface {
	Widget
	Refine(values []string) (string, error)
}

// Source runs read-only statements for widget option lists.
type Source interface {
	Query(ctx context.Context, sql string, args ...any) (*adapter.Rows, error)
	Dialect() *adapter.Dialect
}

// SelectionError reports a selected value a widget cannot interpret. It is
// never the user's fault in a working UI, so callers treat it as fatal.
type SelectionError struct {
	Widget string
	Value  string
	Reason string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("invalid %s selection %q: %s", e.Widget, e.Value, e.Reason)
}

// queryOptions runs sql against src when iterated and yields format(record)
// for each row.
func queryOptions(ctx context.Context, id string, src Source, sql string, format func([]string) string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		rows, err := src.Query(ctx, sql)
		if err != nil {
			yield("", fmt.Errorf("%s options: %w", id, err))
			return
		}
		for rec, err := range rows.Records() {
			if err != nil {
				yield("", fmt.Errorf("%s options: %w", id, err))
				return
			}
			if !yield(format(rec), nil) {
				return
			}
		}
	}
}

// staticOptions yields a fixed list.
func staticOptions(values []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, v := range values {
			if !yield(v, nil) {
				return
			}
		}
	}
}
