package summary

import (
	"context"
	"encoding/json"
	"io"
	"slices"

	"github.com/a-h/templ"
	"github.com/leapstack-labs/remarkql/internal/orchestrator"
	"github.com/leapstack-labs/remarkql/internal/ui/features/common"
	"github.com/leapstack-labs/remarkql/internal/widget"
)

// Output states of the summary panel.
const (
	stateIdle      = "idle"
	stateStreaming = "streaming"
	stateDone      = "done"
	stateMessage   = "message"
	stateError     = "error"
)

// Field is one widget control on the form.
type Field struct {
	ID      string
	Name    string
	Control widget.Control
	Options []string
}

// FormData is everything the summary page needs to render.
type FormData struct {
	Fields   []Field
	Selected common.Signals
}

// SummaryView renders the form and the empty output panels.
func SummaryView(data FormData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := common.NewHTML(w)

		signals, err := json.Marshal(map[string]any{
			"location":   data.Selected.Location,
			"activity":   data.Selected.Activity,
			"program":    data.Selected.Program,
			"month":      data.Selected.Month,
			"analysis":   data.Selected.Analysis,
			"points":     data.Selected.Points,
			"result":     common.Result{Remarks: []string{}},
			"flagOption": "inaccurate",
			"busy":       false,
		})
		if err != nil {
			return err
		}

		h.Rawf("<form id=\"controls\" class=\"controls\" data-signals=\"%s\" data-on:submit__prevent=\"$busy = true; @post('/api/summarize')\">\n", string(signals))
		for _, f := range data.Fields {
			h.Render(ctx, fieldControl(f, data.Selected))
		}
		h.Raw("<button type=\"submit\" data-attr:disabled=\"$busy\">Summarize</button>\n")
		h.Raw("</form>\n")

		h.Render(ctx, SummaryOutput("", stateIdle))
		h.Render(ctx, FlagControls(""))
		h.Render(ctx, RemarksTable(nil))
		return h.Err()
	})
}

func fieldControl(f Field, sel common.Signals) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := common.NewHTML(w)
		h.Rawf("<label class=\"field\" for=\"field-%s\">%s\n", f.ID, f.Name)
		switch f.Control {
		case widget.ControlSlider:
			lo, hi := "1", "10"
			if len(f.Options) > 0 {
				lo, hi = f.Options[0], f.Options[len(f.Options)-1]
			}
			h.Rawf("<input id=\"field-%s\" type=\"range\" min=\"%s\" max=\"%s\" step=\"1\" data-bind=\"%s\">\n", f.ID, lo, hi, f.ID)
			h.Rawf("<output data-text=\"$%s\"></output>\n", f.ID)
		case widget.ControlSelect:
			h.Rawf("<select id=\"field-%s\" data-bind=\"%s\">\n", f.ID, f.ID)
			h.Raw("<option value=\"\">(choose)</option>\n")
			for _, opt := range f.Options {
				h.Render(ctx, option(opt, opt == sel.Analysis))
			}
			h.Raw("</select>\n")
		default:
			chosen := selectedValues(f.ID, sel)
			h.Rawf("<select id=\"field-%s\" multiple size=\"6\" data-bind=\"%s\">\n", f.ID, f.ID)
			for _, opt := range f.Options {
				h.Render(ctx, option(opt, slices.Contains(chosen, opt)))
			}
			h.Raw("</select>\n")
		}
		h.Raw("</label>\n")
		return h.Err()
	})
}

func selectedValues(id string, sel common.Signals) []string {
	switch id {
	case "location":
		return sel.Location
	case "activity":
		return sel.Activity
	case "program":
		return sel.Program
	case "month":
		return sel.Month
	}
	return nil
}

func option(value string, selected bool) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := common.NewHTML(w)
		if selected {
			h.Rawf("<option value=\"%s\" selected>%s</option>\n", value, value)
		} else {
			h.Rawf("<option value=\"%s\">%s</option>\n", value, value)
		}
		return h.Err()
	})
}

// SummaryOutput renders the summary panel in the given state.
func SummaryOutput(text, state string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := common.NewHTML(w)
		h.Rawf("<section id=\"summary\" class=\"summary summary-%s\" aria-live=\"polite\">\n", state)
		h.Raw("<h2>LLM summary</h2>\n")
		h.Rawf("<pre>%s</pre>\n", text)
		h.Raw("</section>\n")
		return h.Err()
	})
}

// FlagControls renders the flag button and its status line.
func FlagControls(status string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := common.NewHTML(w)
		h.Raw("<div id=\"flag\" class=\"flag\">\n")
		h.Raw("<button type=\"button\" data-show=\"$result.summary != ''\" data-on:click=\"@post('/api/flag')\">Flag as inaccurate</button>\n")
		h.Rawf("<span id=\"flag-status\">%s</span>\n", status)
		h.Raw("</div>\n")
		return h.Err()
	})
}

// RemarksTable renders the remarks the summary is based on. A nil table
// renders an empty placeholder.
func RemarksTable(t *orchestrator.RemarkTable) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := common.NewHTML(w)
		h.Raw("<section id=\"remarks\" class=\"remarks\">\n")
		if t != nil {
			h.Rawf("<h2>Remarks on which the summary is based (%d)</h2>\n", len(t.Rows))
			h.Raw("<table>\n<thead><tr>")
			for _, col := range t.Headers {
				h.Rawf("<th>%s</th>", col)
			}
			h.Raw("</tr></thead>\n<tbody>\n")
			for _, row := range t.Rows {
				h.Rawf("<tr><td>%d</td><td>%s</td></tr>\n", row.ID, row.Remark)
			}
			h.Raw("</tbody>\n</table>\n")
		}
		h.Raw("</section>\n")
		return h.Err()
	})
}
