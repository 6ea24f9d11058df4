package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/remarkql/internal/audit"
	"github.com/leapstack-labs/remarkql/internal/cli/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultFlagDir is where flag records are exported by default.
const DefaultFlagDir = "flagged"

// NewFlagsCommand creates the flags command group.
func NewFlagsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Inspect results analysts flagged",
		Long: `Inspect the summaries analysts flagged, for example as inaccurate.

Flags are stored in the audit database together with the selection, the
summary and the remarks that were on screen.`,
	}
	cmd.AddCommand(newFlagsListCommand())
	cmd.AddCommand(newFlagsExportCommand())
	return cmd
}

type flagsListOptions struct {
	Since time.Duration
}

func newFlagsListCommand() *cobra.Command {
	opts := &flagsListOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List flagged results",
		Example: `  # Everything flagged in the last week
  remarkql flags list --since 168h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFlagsList(cmd, opts)
		},
	}
	cmd.Flags().DurationVar(&opts.Since, "since", 0, "Only list flags newer than this (0 lists all)")
	return cmd
}

func sinceTime(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(-d)
}

func runFlagsList(cmd *cobra.Command, opts *flagsListOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, err := openAudit(cmd.Context(), cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	flags, err := store.ListFlags(cmd.Context(), sinceTime(opts.Since))
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if flags == nil {
			flags = []*audit.Flag{}
		}
		enc := json.NewEncoder(r.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(flags)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Flags (%d total)", len(flags))))
		for _, f := range flags {
			r.Println("")
			r.Println(output.FormatHeader(2, f.ID))
			r.Println(output.FormatKeyValue("Date", f.At.Format(time.RFC3339)))
			r.Println(output.FormatKeyValue("Option", f.Option))
			r.Println(output.FormatKeyValue("Selection", describeSelection(f.Selection)))
			r.Println(output.FormatKeyValue("Remarks", fmt.Sprint(len(f.Remarks))))
			r.Println("")
			r.Println(f.Summary)
		}
		return nil
	}

	r.Header(1, fmt.Sprintf("Flags (%d total)", len(flags)))
	if len(flags) == 0 {
		return nil
	}
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "When", "Option", "Selection", "Remarks"})
	for _, f := range flags {
		t.AppendRow(table.Row{shortID(f.ID), humanize.Time(f.At), f.Option, describeSelection(f.Selection), len(f.Remarks)})
	}
	t.Render()
	return nil
}

type flagsExportOptions struct {
	Dir    string
	Format string
	Since  time.Duration
}

func newFlagsExportCommand() *cobra.Command {
	opts := &flagsExportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write each flagged result to its own file",
		Long: `Write every flagged result to its own file in a directory, as JSON or
YAML. Files are named after the flag ID, so exporting again overwrites
the same files.`,
		Example: `  # Export as JSON into ./flagged
  remarkql flags export

  # Export as YAML somewhere else
  remarkql flags export --format yaml --dir /tmp/flags`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFlagsExport(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Dir, "dir", DefaultFlagDir, "Directory to write records into")
	cmd.Flags().StringVar(&opts.Format, "format", "json", "Record format (json|yaml)")
	cmd.Flags().DurationVar(&opts.Since, "since", 0, "Only export flags newer than this (0 exports all)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runFlagsExport(cmd *cobra.Command, opts *flagsExportOptions) error {
	encode, ext, err := flagEncoder(opts.Format)
	if err != nil {
		return err
	}

	cmdCtx := NewCommandContext(cmd)
	store, err := openAudit(cmd.Context(), cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	flags, err := store.ListFlags(cmd.Context(), sinceTime(opts.Since))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", opts.Dir, err)
	}
	for _, f := range flags {
		data, err := encode(f)
		if err != nil {
			return fmt.Errorf("failed to encode flag %s: %w", f.ID, err)
		}
		path := filepath.Join(opts.Dir, f.ID+ext)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	cmdCtx.Renderer.Printf("Exported %s to %s\n", humanize.Comma(int64(len(flags)))+" "+plural(len(flags), "flag"), opts.Dir)
	return nil
}

func flagEncoder(format string) (func(*audit.Flag) ([]byte, error), string, error) {
	switch strings.ToLower(format) {
	case "json":
		return func(f *audit.Flag) ([]byte, error) {
			data, err := json.MarshalIndent(f, "", "  ")
			return append(data, '\n'), err
		}, ".json", nil
	case "yaml", "yml":
		return func(f *audit.Flag) ([]byte, error) {
			return yaml.Marshal(f)
		}, ".yaml", nil
	default:
		return nil, "", fmt.Errorf("unknown format %q (expected json or yaml)", format)
	}
}

// describeSelection renders the non-empty slots of a selection in catalog order.
func describeSelection(sel map[string][]string) string {
	var parts []string
	for _, id := range widgetIDs {
		if values := sel[id]; len(values) > 0 {
			parts = append(parts, id+"="+strings.Join(values, "|"))
		}
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, " ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
