package widget

import (
	"fmt"
	"strings"
)

// Selection maps widget IDs to the values chosen for them. A missing key
// and an empty list both mean "no selection".
type Selection map[string][]string

// Values returns the non-blank values selected for id.
func (s Selection) Values(id string) []string {
	var out []string
	for _, v := range s[id] {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// Set replaces the values for id and returns s.
func (s Selection) Set(id string, values ...string) Selection {
	s[id] = values
	return s
}

// MisalignedSelectionError is returned when a selection does not line up
// with the catalog it is applied to.
type MisalignedSelectionError struct {
	Unknown  []string
	Got      int
	Expected int
}

func (e *MisalignedSelectionError) Error() string {
	if len(e.Unknown) > 0 {
		return fmt.Sprintf("selection names unknown widgets: %s", strings.Join(e.Unknown, ", "))
	}
	return fmt.Sprintf("selection has %d values, catalog has %d widgets", e.Got, e.Expected)
}
