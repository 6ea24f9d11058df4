package widget

import (
	"context"
	"iter"
	"strconv"
	"strings"
)

// Summary kinds accepted by SummaryKind.
const (
	BestPractices       = "best practices"
	AreasForImprovement = "areas of improvement"
)

// SummaryKind selects which kind of summary to write.
type SummaryKind struct{}

func (SummaryKind) ID() string       { return "analysis" }
func (SummaryKind) Name() string     { return "Type of summary" }
func (SummaryKind) Kind() Kind       { return KindLLM }
func (SummaryKind) Control() Control { return ControlSelect }

// Options yields the kinds with the first letter capitalized.
func (SummaryKind) Options(context.Context) iter.Seq2[string, error] {
	return staticOptions([]string{capitalize(BestPractices), capitalize(AreasForImprovement)})
}

// Refine returns the selected kind unchanged. An empty selection passes
// through so the summarizer can report it.
func (w SummaryKind) Refine(values []string) (string, error) {
	v, err := single(w.ID(), values)
	if err != nil || v == "" {
		return "", err
	}
	if !strings.EqualFold(v, BestPractices) && !strings.EqualFold(v, AreasForImprovement) {
		return "", &SelectionError{Widget: w.ID(), Value: v, Reason: "unknown summary type"}
	}
	return v, nil
}

// Point count bounds.
const (
	MinPoints     = 1
	MaxPoints     = 10
	DefaultPoints = 3
)

// PointCount chooses how many bullet points the summary has.
type PointCount struct{}

func (PointCount) ID() string       { return "points" }
func (PointCount) Name() string     { return "Number of points" }
func (PointCount) Kind() Kind       { return KindLLM }
func (PointCount) Control() Control { return ControlSlider }

// Options yields every allowed count.
func (PointCount) Options(context.Context) iter.Seq2[string, error] {
	values := make([]string, 0, MaxPoints-MinPoints+1)
	for i := MinPoints; i <= MaxPoints; i++ {
		values = append(values, strconv.Itoa(i))
	}
	return staticOptions(values)
}

// Refine returns the count as decimal text, or the default when empty.
func (w PointCount) Refine(values []string) (string, error) {
	v, err := single(w.ID(), values)
	if err != nil {
		return "", err
	}
	if v == "" {
		return strconv.Itoa(DefaultPoints), nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return "", &SelectionError{Widget: w.ID(), Value: v, Reason: "not an integer"}
	}
	if n < MinPoints || n > MaxPoints {
		return "", &SelectionError{Widget: w.ID(), Value: v, Reason: "out of range 1-10"}
	}
	return strconv.Itoa(n), nil
}

func single(id string, values []string) (string, error) {
	switch len(values) {
	case 0:
		return "", nil
	case 1:
		return values[0], nil
	default:
		return "", &SelectionError{Widget: id, Value: strings.Join(values, ","), Reason: "expected a single value"}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
