package widget

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/remarkql/internal/query"
)

// OtherForm is the display label for stored values that match no known form.
const OtherForm = "Other"

// FormEntry maps a display label onto the prefix of the stored form code.
type FormEntry struct {
	Label  string
	Prefix string
}

// DefaultForms is the vocabulary used when none is configured.
var DefaultForms = []FormEntry{
	{Label: "Coaching call", Prefix: "coaching call"},
	{Label: "Classroom observation", Prefix: "classroom observation"},
}

// ActivityForm filters the activity column through a small display
// vocabulary. Stored values are matched case-insensitively by prefix, and
// the Other bucket matches every value that no known prefix matches.
type ActivityForm struct {
	src     Source
	table   string
	column  string
	entries []FormEntry
}

// NewActivityForm creates the vocabulary-backed activity filter. A nil
// entries list uses DefaultForms.
func NewActivityForm(src Source, table, column string, entries []FormEntry) *ActivityForm {
	if len(entries) == 0 {
		entries = DefaultForms
	}
	normalized := make([]FormEntry, len(entries))
	for i, e := range entries {
		normalized[i] = FormEntry{Label: e.Label, Prefix: lower(e.Prefix)}
	}
	return &ActivityForm{src: src, table: table, column: column, entries: normalized}
}

func (w *ActivityForm) ID() string       { return "activity" }
func (w *ActivityForm) Name() string     { return "Activity" }
func (w *ActivityForm) Kind() Kind       { return KindSQL }
func (w *ActivityForm) Control() Control { return ControlMultiSelect }

// Options yields the labels present in the data, in vocabulary order with
// Other last.
func (w *ActivityForm) Options(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		sql := fmt.Sprintf("SELECT DISTINCT %[1]s FROM %[2]s WHERE %[1]s IS NOT NULL", w.column, w.table)
		present := make(map[string]bool)
		for v, err := range queryOptions(ctx, w.ID(), w.src, sql, func(rec []string) string { return rec[0] }) {
			if err != nil {
				yield("", err)
				return
			}
			present[w.classify(v)] = true
		}
		for _, e := range w.entries {
			if present[e.Label] && !yield(e.Label, nil) {
				return
			}
		}
		if present[OtherForm] {
			yield(OtherForm, nil)
		}
	}
}

// classify returns the label a stored value is shown under.
func (w *ActivityForm) classify(stored string) string {
	v := lower(stored)
	for _, e := range w.entries {
		if strings.HasPrefix(v, e.Prefix) {
			return e.Label
		}
	}
	return OtherForm
}

func (w *ActivityForm) prefix(label string) (string, bool) {
	for _, e := range w.entries {
		if e.Label == label {
			return e.Prefix, true
		}
	}
	return "", false
}

// Refine ORs a prefix match per known label. Other contributes the AND of
// NOT LIKE over every known prefix. NULL activities never match.
func (w *ActivityForm) Refine(b *query.Binder, values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	col := "LOWER(" + w.column + ")"

	var terms []string
	other := false
	for _, v := range values {
		if v == OtherForm {
			other = true
			continue
		}
		p, ok := w.prefix(v)
		if !ok {
			return "", &SelectionError{Widget: w.ID(), Value: v, Reason: "unknown activity form"}
		}
		terms = append(terms, col+" LIKE "+b.Bind(p+"%"))
	}

	if other {
		nots := make([]string, len(w.entries))
		for i, e := range w.entries {
			nots[i] = col + " NOT LIKE " + b.Bind(e.Prefix+"%")
		}
		terms = append(terms, query.Paren(query.And(nots...)))
	}
	return query.Paren(query.Or(terms...)), nil
}

func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
