package review

import (
	"context"
	"encoding/json"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/a-h/templ"
	"github.com/leapstack-labs/remarkql/internal/audit"
	"github.com/leapstack-labs/remarkql/internal/ui/features/common"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCase = cases.Title(language.English)

func gradeLabel(g audit.Grade) string {
	return titleCase.String(string(g))
}

// ReviewView renders the summary under review, the grade picker and the
// running tally. A nil invocation renders the empty state.
func ReviewView(inv *audit.Invocation, counts map[audit.Grade]int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := common.NewHTML(w)

		signals, err := json.Marshal(JudgementSignals{InvocationID: invocationID(inv)})
		if err != nil {
			return err
		}

		h.Rawf("<div id=\"review-page\" class=\"review\" data-signals=\"%s\">\n", string(signals))
		h.Render(ctx, ReviewPanel(inv))

		h.Raw("<div class=\"judgement\" data-show=\"$invocationId != ''\">\n")
		h.Raw("<select id=\"grade\" data-bind=\"grade\">\n")
		h.Raw("<option value=\"\" selected disabled hidden>Select an option</option>\n")
		for _, g := range audit.Grades {
			h.Rawf("<option value=\"%s\">%s</option>\n", string(g), gradeLabel(g))
		}
		h.Raw("</select>\n")
		h.Raw("<button type=\"button\" data-on:click=\"@post('/api/judgement')\">Submit</button>\n")
		h.Raw("</div>\n")
		h.Render(ctx, JudgementStatus(""))
		h.Render(ctx, JudgementCounts(counts))

		h.Raw("</div>\n")
		return h.Err()
	})
}

// ReviewPanel renders the selection, prompt and response of one invocation.
func ReviewPanel(inv *audit.Invocation) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := common.NewHTML(w)
		h.Raw("<section id=\"review-panel\">\n")
		if inv == nil {
			h.Raw("<p class=\"empty\">Nothing to review yet.</p>\n")
			h.Raw("</section>\n")
			return h.Err()
		}

		h.Rawf("<p class=\"muted\">%s, %d remarks</p>\n", inv.At.UTC().Format("2006-01-02 15:04 MST"), inv.RemarkCount)
		if len(inv.Selection) > 0 {
			h.Raw("<dl class=\"selection\">\n")
			for _, id := range slices.Sorted(maps.Keys(inv.Selection)) {
				if len(inv.Selection[id]) == 0 {
					continue
				}
				h.Rawf("<dt>%s</dt><dd>%s</dd>\n", id, strings.Join(inv.Selection[id], ", "))
			}
			h.Raw("</dl>\n")
		}
		h.Raw("<h2>Prompt</h2>\n")
		h.Rawf("<pre class=\"prompt\">%s</pre>\n", inv.Prompt)
		h.Raw("<h2>Response</h2>\n")
		h.Rawf("<pre class=\"response\">%s</pre>\n", inv.Summary)
		h.Raw("</section>\n")
		return h.Err()
	})
}

// JudgementStatus renders the status line under the grade picker.
func JudgementStatus(message string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := common.NewHTML(w)
		h.Rawf("<span id=\"judgement-status\">%s</span>\n", message)
		return h.Err()
	})
}

// JudgementCounts renders how many summaries got each grade.
func JudgementCounts(counts map[audit.Grade]int) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := common.NewHTML(w)
		h.Raw("<ul id=\"judgement-counts\" class=\"counts\">\n")
		for _, g := range audit.Grades {
			h.Rawf("<li>%s: %d</li>\n", gradeLabel(g), counts[g])
		}
		h.Raw("</ul>\n")
		return h.Err()
	})
}
