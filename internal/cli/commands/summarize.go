package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/remarkql/internal/audit"
	"github.com/leapstack-labs/remarkql/internal/cli/output"
	"github.com/leapstack-labs/remarkql/internal/orchestrator"
	"github.com/leapstack-labs/remarkql/internal/widget"
	"github.com/spf13/cobra"
)

// SummarizeOptions holds options for the summarize command.
type SummarizeOptions struct {
	Location    []string
	Activity    []string
	Program     []string
	Month       []string
	Analysis    string
	Points      int
	Stream      bool
	HideRemarks bool
	Flag        string
}

// Selection converts the options into a widget selection.
func (o *SummarizeOptions) Selection() widget.Selection {
	sel := make(widget.Selection, len(widgetIDs))
	sel.Set("location", o.Location...)
	sel.Set("activity", o.Activity...)
	sel.Set("program", o.Program...)
	sel.Set("month", o.Month...)
	if o.Analysis != "" {
		sel.Set(orchestrator.AnalysisID, o.Analysis)
	}
	if o.Points != 0 {
		sel.Set(orchestrator.PointsID, strconv.Itoa(o.Points))
	}
	return sel
}

// NewSummarizeCommand creates the summarize command.
func NewSummarizeCommand() *cobra.Command {
	opts := &SummarizeOptions{}

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize the remarks matching a selection",
		Long: `Select remarks with the widget filters and ask the language model for a
bullet-point summary of them.

Each filter flag may be repeated. Values within one filter are alternatives;
different filters must all match. Omitted filters do not restrict anything.

Output adapts to environment:
  - Terminal: summary panel and remark table
  - Piped/Scripted: Markdown format

Use --output to override: auto, text, markdown, json`,
		Example: `  # Best practices in two regions, five points
  remarkql summarize --analysis "best practices" --points 5 \
    --location "Kenya / Nairobi" --location "Kenya / Mombasa"

  # Stream the summary as it is written
  remarkql summarize --analysis "areas of improvement" --month 2024-03 --stream

  # Flag the result as inaccurate
  remarkql summarize --analysis "best practices" --flag inaccurate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSummarize(cmd, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Location, "location", nil, `Location as "Country / Region" (repeatable)`)
	cmd.Flags().StringArrayVar(&opts.Activity, "activity", nil, "Activity or form (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Program, "program", nil, "Program (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Month, "month", nil, "Month as YYYY-MM (repeatable)")
	cmd.Flags().StringVarP(&opts.Analysis, "analysis", "a", "", `Summary type: "best practices" or "areas of improvement"`)
	cmd.Flags().IntVarP(&opts.Points, "points", "n", widget.DefaultPoints, "Number of bullet points (1-10)")
	cmd.Flags().BoolVar(&opts.Stream, "stream", false, "Print the summary while it is generated")
	cmd.Flags().BoolVar(&opts.HideRemarks, "hide-remarks", false, "Do not list the remarks the summary is based on")
	cmd.Flags().StringVar(&opts.Flag, "flag", "", "Record the result as flagged with this option")

	_ = cmd.RegisterFlagCompletionFunc("analysis", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{widget.BestPractices, widget.AreasForImprovement}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// summaryOutcome is what the command shows and, optionally, flags.
type summaryOutcome struct {
	Summary     string
	Remarks     *orchestrator.RemarkTable
	Recoverable bool
}

func runSummarize(cmd *cobra.Command, opts *SummarizeOptions) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmd.Context()
	r := cmdCtx.Renderer

	stack, err := NewStack(ctx, cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	sel := opts.Selection()
	var res *summaryOutcome
	if opts.Stream && r.EffectiveMode() == output.ModeText {
		res, err = streamSummary(ctx, stack.Orchestrator, sel, r)
	} else {
		res, err = blockingSummary(ctx, stack.Orchestrator, sel)
	}
	if err != nil {
		return err
	}

	if err := renderSummary(r, res, opts); err != nil {
		return err
	}

	if opts.Flag != "" && !res.Recoverable {
		flag := &audit.Flag{
			At:        time.Now(),
			Option:    opts.Flag,
			Selection: sel,
			Summary:   res.Summary,
			Remarks:   res.Remarks.Remarks(),
		}
		if err := stack.Audit.RecordFlag(context.WithoutCancel(ctx), flag); err != nil {
			return fmt.Errorf("failed to record flag: %w", err)
		}
		r.Warn(fmt.Sprintf("Flagged as %q (%s)", opts.Flag, flag.ID))
	}
	return nil
}

func blockingSummary(ctx context.Context, o *orchestrator.Orchestrator, sel widget.Selection) (*summaryOutcome, error) {
	result, err := o.Invoke(ctx, sel)
	if err != nil {
		return nil, err
	}
	return &summaryOutcome{
		Summary:     result.Summary,
		Remarks:     result.Remarks,
		Recoverable: result.Remarks == nil,
	}, nil
}

// streamSummary prints the summary as it grows. Snapshots carry the whole
// summary so far, so only the new suffix is written.
func streamSummary(ctx context.Context, o *orchestrator.Orchestrator, sel widget.Selection, r *output.Renderer) (*summaryOutcome, error) {
	seq, err := o.InvokeStream(ctx, sel)
	if err != nil {
		return nil, err
	}

	res := &summaryOutcome{}
	printed := ""
	for snap, err := range seq {
		if err != nil {
			r.Println("")
			return nil, err
		}
		if snap.Remarks == nil {
			res.Recoverable = true
			res.Summary = snap.Summary
			break
		}
		res.Remarks = snap.Remarks
		if strings.HasPrefix(snap.Summary, printed) {
			r.Printf("%s", snap.Summary[len(printed):])
		} else {
			r.Printf("\n%s", snap.Summary)
		}
		printed = snap.Summary
		res.Summary = snap.Summary
	}
	if printed != "" {
		r.Println("")
	}
	return res, nil
}

func renderSummary(r *output.Renderer, res *summaryOutcome, opts *SummarizeOptions) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return summaryJSON(r, res)
	case output.ModeMarkdown:
		summaryMarkdown(r, res, opts)
	default:
		summaryText(r, res, opts)
	}
	return nil
}

func summaryText(r *output.Renderer, res *summaryOutcome, opts *SummarizeOptions) {
	if res.Recoverable {
		r.Warn(res.Summary)
		return
	}
	if !opts.Stream {
		if r.IsTTY() {
			r.Panel("Summary", res.Summary, r.TerminalWidth())
		} else {
			r.Println(res.Summary)
		}
	}
	if opts.HideRemarks {
		return
	}
	r.Println("")
	r.Header(2, fmt.Sprintf("Remarks (%d)", len(res.Remarks.Rows)))
	remarkTable(r, res.Remarks).Render()
}

func summaryMarkdown(r *output.Renderer, res *summaryOutcome, opts *SummarizeOptions) {
	if res.Recoverable {
		r.Println("> " + res.Summary)
		return
	}
	r.Println(output.FormatHeader(1, "Summary"))
	r.Println("")
	r.Println(res.Summary)
	if opts.HideRemarks {
		return
	}
	r.Println("")
	r.Println(output.FormatHeader(2, fmt.Sprintf("Remarks (%d)", len(res.Remarks.Rows))))
	r.Println("")
	remarkTable(r, res.Remarks).RenderMarkdown()
}

func remarkTable(r *output.Renderer, rt *orchestrator.RemarkTable) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	if w := r.TerminalWidth(); w > 20 {
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, WidthMax: w - 12, WidthMaxEnforcer: text.WrapSoft},
		})
	}

	header := make(table.Row, len(rt.Headers))
	for i, h := range rt.Headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range rt.Rows {
		t.AppendRow(table.Row{row.ID, row.Remark})
	}
	return t
}

type summaryDocument struct {
	Summary     string          `json:"summary"`
	Recoverable bool            `json:"recoverable,omitempty"`
	Remarks     []remarkJSONRow `json:"remarks"`
}

type remarkJSONRow struct {
	ID     int    `json:"id"`
	Remark string `json:"remark"`
}

func summaryJSON(r *output.Renderer, res *summaryOutcome) error {
	doc := summaryDocument{Summary: res.Summary, Recoverable: res.Recoverable, Remarks: []remarkJSONRow{}}
	if res.Remarks != nil {
		for _, row := range res.Remarks.Rows {
			doc.Remarks = append(doc.Remarks, remarkJSONRow{ID: row.ID, Remark: row.Remark})
		}
	}
	enc := json.NewEncoder(r.Writer())
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return nil
}
