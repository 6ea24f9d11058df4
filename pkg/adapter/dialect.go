package adapter

import "fmt"

// PlaceholderStyle controls how bound parameters are written into SQL text.
type PlaceholderStyle int

const (
	// PlaceholderQuestion renders every parameter as "?".
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar renders parameters as "$1", "$2", ...
	PlaceholderDollar
)

// Dialect captures the few SQL differences remarkql has to care about.
type Dialect struct {
	Name        string
	Placeholder PlaceholderStyle

	// monthExpr renders an expression that formats a date or timestamp
	// column as a YYYY-MM string.
	monthExpr func(column string) string
}

// NewDialect creates a dialect. monthExpr must render a YYYY-MM expression
// for the given column.
func NewDialect(name string, placeholder PlaceholderStyle, monthExpr func(column string) string) *Dialect {
	return &Dialect{
		Name:        name,
		Placeholder: placeholder,
		monthExpr:   monthExpr,
	}
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
// Returns "?" for PlaceholderQuestion style, "$1", "$2" etc. for PlaceholderDollar style.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case PlaceholderDollar:
		return fmt.Sprintf("$%d", index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// MonthExpr returns an expression formatting column as YYYY-MM.
func (d *Dialect) MonthExpr(column string) string {
	if d.monthExpr == nil {
		return fmt.Sprintf("TO_CHAR(%s, 'YYYY-MM')", column)
	}
	return d.monthExpr(column)
}
