package commands

import (
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/remarkql/internal/cli/output"
	"github.com/leapstack-labs/remarkql/internal/widget"
	"github.com/spf13/cobra"
)

// widgetIDs are the catalog slots, in positional order.
var widgetIDs = []string{"location", "activity", "program", "month", "analysis", "points"}

// NewOptionsCommand creates the options command.
func NewOptionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options <widget>",
		Short: "List the selectable values of a widget",
		Long: `List the values an analyst can pick for one widget.

Database-backed widgets (location, activity, program, month) query the
configured target. The analysis and points parameters list their fixed
choices.`,
		Example: `  # Countries and regions
  remarkql options location

  # Months with observations, newest first, as JSON
  remarkql options month --output json`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: widgetIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptions(cmd, args[0])
		},
	}
	return cmd
}

func runOptions(cmd *cobra.Command, id string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	src, catalog, err := openCatalog(cmd.Context(), cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	w, ok := catalog.Lookup(id)
	if !ok {
		return fmt.Errorf("unknown widget %q (available: %v)", id, widgetIDs)
	}

	var values []string
	for v, err := range w.Options(cmd.Context()) {
		if err != nil {
			return fmt.Errorf("failed to list %s options: %w", id, err)
		}
		values = append(values, v)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return optionsJSON(r, w, values)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("%s (%d options)", w.Name(), len(values))))
		r.Println("")
		for _, v := range values {
			r.Println("- " + v)
		}
	default:
		r.Header(1, fmt.Sprintf("%s (%d options)", w.Name(), len(values)))
		for _, v := range values {
			r.Println("  " + v)
		}
	}
	return nil
}

func optionsJSON(r *output.Renderer, w widget.Widget, values []string) error {
	if values == nil {
		values = []string{}
	}
	enc := json.NewEncoder(r.Writer())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		ID      string   `json:"id"`
		Name    string   `json:"name"`
		Kind    string   `json:"kind"`
		Options []string `json:"options"`
	}{w.ID(), w.Name(), w.Kind().String(), values})
}
