package common

import (
	"strconv"

	"github.com/leapstack-labs/remarkql/internal/widget"
)

// Signals are the widget values the page keeps in datastar signals and
// sends with every action.
type Signals struct {
	Location []string `json:"location"`
	Activity []string `json:"activity"`
	Program  []string `json:"program"`
	Month    []string `json:"month"`
	Analysis string   `json:"analysis"`
	Points   int      `json:"points"`
}

// DefaultSignals returns the signals of a fresh page.
func DefaultSignals() Signals {
	return Signals{
		Location: []string{},
		Activity: []string{},
		Program:  []string{},
		Month:    []string{},
		Points:   widget.DefaultPoints,
	}
}

// Selection converts the signals into a widget selection.
func (s Signals) Selection() widget.Selection {
	sel := widget.Selection{
		"location": s.Location,
		"activity": s.Activity,
		"program":  s.Program,
		"month":    s.Month,
	}
	if s.Analysis != "" {
		sel.Set("analysis", s.Analysis)
	}
	if s.Points != 0 {
		sel.Set("points", strconv.Itoa(s.Points))
	}
	return sel
}

// Result is what was on screen after an invocation, with the selection it
// was made for.
type Result struct {
	Summary   string           `json:"summary"`
	Remarks   []string         `json:"remarks"`
	Selection widget.Selection `json:"selection"`
}
