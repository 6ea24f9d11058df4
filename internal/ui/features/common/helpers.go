package common

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// HTML accumulates writes and keeps the first error, so components can
// write markup without checking every call.
type HTML struct {
	w   io.Writer
	err error
}

// NewHTML wraps w.
func NewHTML(w io.Writer) *HTML {
	return &HTML{w: w}
}

// Raw writes trusted markup.
func (h *HTML) Raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// Text writes escaped text.
func (h *HTML) Text(s string) {
	h.Raw(templ.EscapeString(s))
}

// Rawf writes formatted markup. Text arguments are escaped; numbers and
// booleans are passed through for verbs like %d.
func (h *HTML) Rawf(format string, args ...any) {
	escaped := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			escaped[i] = templ.EscapeString(v)
		case int, int64, float64, bool:
			escaped[i] = v
		default:
			escaped[i] = templ.EscapeString(fmt.Sprint(v))
		}
	}
	h.Raw(fmt.Sprintf(format, escaped...))
}

// Render renders c in place.
func (h *HTML) Render(ctx context.Context, c templ.Component) {
	if h.err != nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// Err returns the first write error.
func (h *HTML) Err() error {
	return h.err
}

// Itoa converts an integer to a string.
func Itoa(n int) string {
	return strconv.Itoa(n)
}
