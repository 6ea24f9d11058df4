package widget

import (
	"fmt"
	"iter"
	"slices"
	"sort"
)

// ActivityMode picks the widget used for the activity slot.
type ActivityMode string

const (
	// ActivitySelection lists stored activity values verbatim.
	ActivitySelection ActivityMode = "selection"
	// ActivityFormMode maps stored values onto a fixed form vocabulary.
	ActivityFormMode ActivityMode = "form"
)

// Catalog is the fixed, ordered widget set. The order of the filter widgets
// is the order of the WHERE terms, and the positional order is the order
// Bind expects.
type Catalog struct {
	widgets []Widget
	byID    map[string]Widget
}

// NewCatalog validates and wraps the widgets. Every widget must be a Filter
// or a Parameter matching its Kind, and IDs must be unique.
func NewCatalog(widgets ...Widget) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Widget, len(widgets))}
	for _, w := range widgets {
		if _, dup := c.byID[w.ID()]; dup {
			return nil, fmt.Errorf("duplicate widget id %q", w.ID())
		}
		switch w.Kind() {
		case KindSQL:
			if _, ok := w.(Filter); !ok {
				return nil, fmt.Errorf("widget %q is sql but does not implement Filter", w.ID())
			}
		case KindLLM:
			if _, ok := w.(Parameter); !ok {
				return nil, fmt.Errorf("widget %q is llm but does not implement Parameter", w.ID())
			}
		default:
			return nil, fmt.Errorf("widget %q has unknown kind %s", w.ID(), w.Kind())
		}
		c.byID[w.ID()] = w
		c.widgets = append(c.widgets, w)
	}
	return c, nil
}

// NewDefaultCatalog builds location, activity, program, month, analysis and
// points, in that order.
func NewDefaultCatalog(src Source, t Table, mode ActivityMode) (*Catalog, error) {
	var activity Widget
	switch mode {
	case ActivitySelection, "":
		activity = NewCategorical(src, "activity", "Activity", t.Name, t.Activity)
	case ActivityFormMode:
		activity = NewActivityForm(src, t.Name, t.Activity, nil)
	default:
		return nil, fmt.Errorf("unknown activity mode %q", mode)
	}

	return NewCatalog(
		NewLocation(src, t.Name, t.Country, t.Region),
		activity,
		NewCategorical(src, "program", "Program", t.Name, t.Program),
		NewDateRange(src, t.Name, t.Date),
		SummaryKind{},
		PointCount{},
	)
}

// Widgets returns the widgets in catalog order.
func (c *Catalog) Widgets() []Widget {
	return slices.Clone(c.widgets)
}

// Lookup returns the widget with the given ID.
func (c *Catalog) Lookup(id string) (Widget, bool) {
	w, ok := c.byID[id]
	return w, ok
}

// Filters yields the sql widgets in catalog order.
func (c *Catalog) Filters() iter.Seq[Filter] {
	return func(yield func(Filter) bool) {
		for _, w := range c.widgets {
			if f, ok := w.(Filter); ok && w.Kind() == KindSQL {
				if !yield(f) {
					return
				}
			}
		}
	}
}

// Parameters yields the llm widgets in catalog order.
func (c *Catalog) Parameters() iter.Seq[Parameter] {
	return func(yield func(Parameter) bool) {
		for _, w := range c.widgets {
			if p, ok := w.(Parameter); ok && w.Kind() == KindLLM {
				if !yield(p) {
					return
				}
			}
		}
	}
}

// Bind turns positional values, one per widget in catalog order, into a
// Selection.
func (c *Catalog) Bind(values ...[]string) (Selection, error) {
	if len(values) != len(c.widgets) {
		return nil, &MisalignedSelectionError{Got: len(values), Expected: len(c.widgets)}
	}
	sel := make(Selection, len(values))
	for i, w := range c.widgets {
		sel[w.ID()] = values[i]
	}
	return sel, nil
}

// Validate rejects selections that name widgets outside the catalog.
func (c *Catalog) Validate(sel Selection) error {
	var unknown []string
	for id := range sel {
		if _, ok := c.byID[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &MisalignedSelectionError{Unknown: unknown}
	}
	return nil
}
