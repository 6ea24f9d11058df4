package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/remarkql/internal/audit"
	"github.com/leapstack-labs/remarkql/internal/cli/output"
	"github.com/spf13/cobra"
)

const usageBarWidth = 30

type usageOptions struct {
	Days int
}

// NewUsageCommand creates the usage command.
func NewUsageCommand() *cobra.Command {
	opts := &usageOptions{}
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show daily interaction counts",
		Long: `Show how many summaries were requested per day, split by outcome.

Counts come from the audit database, which records every invocation made
through the CLI or the UI.`,
		Example: `  # Last 30 days
  remarkql usage

  # Last week as JSON
  remarkql usage --days 7 --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUsage(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.Days, "days", 30, "Number of days to include (0 for all)")
	return cmd
}

func runUsage(cmd *cobra.Command, opts *usageOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, err := openAudit(cmd.Context(), cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var since time.Time
	if opts.Days > 0 {
		y, m, d := time.Now().UTC().Date()
		since = time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(opts.Days - 1))
	}
	days, err := store.DailyUsage(cmd.Context(), since)
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return usageJSON(r, days)
	case output.ModeMarkdown:
		usageTable(r, days).RenderMarkdown()
	default:
		r.Header(1, fmt.Sprintf("Usage (%s)", usagePeriod(opts.Days)))
		if len(days) == 0 {
			r.Println(r.Styles.Muted.Render("No invocations recorded."))
			return nil
		}
		usageTable(r, days).Render()
	}
	return nil
}

func usagePeriod(days int) string {
	if days <= 0 {
		return "all time"
	}
	return "last " + humanize.Comma(int64(days)) + " " + plural(days, "day")
}

func usageTable(r *output.Renderer, days []audit.DailyUsage) table.Writer {
	peak := 0
	total := audit.DailyUsage{}
	for _, d := range days {
		peak = max(peak, d.Total)
		total.Total += d.Total
		total.Succeeded += d.Succeeded
		total.Recoverable += d.Recoverable
		total.Fatal += d.Fatal
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Day", "Total", "Succeeded", "Recoverable", "Fatal", ""})
	for _, d := range days {
		t.AppendRow(table.Row{
			d.Day.Format(time.DateOnly),
			humanize.Comma(int64(d.Total)),
			humanize.Comma(int64(d.Succeeded)),
			humanize.Comma(int64(d.Recoverable)),
			humanize.Comma(int64(d.Fatal)),
			bar(d.Total, peak),
		})
	}
	t.AppendFooter(table.Row{
		"Total",
		humanize.Comma(int64(total.Total)),
		humanize.Comma(int64(total.Succeeded)),
		humanize.Comma(int64(total.Recoverable)),
		humanize.Comma(int64(total.Fatal)),
		"",
	})
	return t
}

func bar(n, peak int) string {
	if peak == 0 || n == 0 {
		return ""
	}
	return strings.Repeat("#", max(1, n*usageBarWidth/peak))
}

type usageJSONRow struct {
	Day         string `json:"day"`
	Total       int    `json:"total"`
	Succeeded   int    `json:"succeeded"`
	Recoverable int    `json:"recoverable"`
	Fatal       int    `json:"fatal"`
}

func usageJSON(r *output.Renderer, days []audit.DailyUsage) error {
	rows := make([]usageJSONRow, 0, len(days))
	for _, d := range days {
		rows = append(rows, usageJSONRow{
			Day:         d.Day.Format(time.DateOnly),
			Total:       d.Total,
			Succeeded:   d.Succeeded,
			Recoverable: d.Recoverable,
			Fatal:       d.Fatal,
		})
	}
	enc := json.NewEncoder(r.Writer())
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
