package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/remarkql/internal/cli/config"
	"github.com/leapstack-labs/remarkql/internal/cli/output"
	"github.com/spf13/cobra"
)

// Check statuses.
const (
	statusPass  = "pass"
	statusWarn  = "warn"
	statusError = "error"
)

// Check groups, in report order.
const (
	groupConfig  = "configuration"
	groupPrompts = "prompts"
	groupSource  = "data source"
	groupAudit   = "audit"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that remarkql is set up correctly",
		Long: `Check the configuration, prompts, survey database and audit store.

The doctor command connects to the survey database, lists every widget's
options, parses the prompt templates and opens the audit store, then reports
what works and what needs attention. It does not call the language model.

Exits with an error when any check fails.`,
		Example: `  # Run all checks
  remarkql doctor

  # Machine-readable report
  remarkql doctor --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
}

// HealthCheck is one check result.
type HealthCheck struct {
	Group  string `json:"group"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Checks   []HealthCheck `json:"checks"`
	Errors   int           `json:"errors"`
	Warnings int           `json:"warnings"`
}

func (o *DoctorOutput) add(group, name, status, detail string) {
	o.Checks = append(o.Checks, HealthCheck{Group: group, Name: name, Status: status, Detail: detail})
	switch status {
	case statusError:
		o.Errors++
	case statusWarn:
		o.Warnings++
	}
}

func runDoctor(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	out := diagnose(cmd.Context(), cmdCtx)

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		enc := json.NewEncoder(r.Writer())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}

	if out.Errors > 0 {
		return fmt.Errorf("%d %s failed", out.Errors, plural(out.Errors, "check"))
	}
	return nil
}

func diagnose(ctx context.Context, cmdCtx *CommandContext) *DoctorOutput {
	cfg := cmdCtx.Cfg
	out := &DoctorOutput{Checks: []HealthCheck{}}
	logger := cmdCtx.Logger

	if f := config.GetConfigFileUsed(); f != "" {
		out.add(groupConfig, "config file", statusPass, f)
	} else {
		out.add(groupConfig, "config file", statusWarn, "no remarkql.yaml found, using defaults and environment")
	}
	if cfg.LLM.APIKey != "" {
		out.add(groupConfig, "llm api key", statusPass, "model "+cfg.LLM.Model)
	} else {
		out.add(groupConfig, "llm api key", statusError, "set llm.api_key, REMARKQL_LLM__API_KEY or OPENAI_API_KEY")
	}

	if p, err := loadPrompts(cfg); err != nil {
		out.add(groupPrompts, "templates", statusError, err.Error())
	} else {
		source := "built-in"
		if cfg.PromptsDir != "" {
			source = cfg.PromptsDir
		}
		out.add(groupPrompts, "templates", statusPass, source+" (fingerprint "+p.Fingerprint()+")")
	}

	src, catalog, err := openCatalog(ctx, cfg, logger)
	if err != nil {
		out.add(groupSource, "connect", statusError, err.Error())
	} else {
		out.add(groupSource, "connect", statusPass, cfg.Target.Type+" table "+cfg.Table)
		for _, w := range catalog.Widgets() {
			n := 0
			var optErr error
			for _, err := range w.Options(ctx) {
				if err != nil {
					optErr = err
					break
				}
				n++
			}
			switch {
			case optErr != nil:
				out.add(groupSource, w.ID()+" options", statusError, optErr.Error())
			case n == 0:
				out.add(groupSource, w.ID()+" options", statusWarn, "no options, check the column mapping")
			default:
				out.add(groupSource, w.ID()+" options", statusPass, humanize.Comma(int64(n))+" "+plural(n, "option"))
			}
		}
		_ = src.Close()
	}

	store, err := openAudit(ctx, cfg, logger)
	if err != nil {
		out.add(groupAudit, "store", statusError, err.Error())
		return out
	}
	defer func() { _ = store.Close() }()
	if v, err := store.MigrationVersion(ctx); err != nil {
		out.add(groupAudit, "store", statusError, err.Error())
	} else {
		out.add(groupAudit, "store", statusPass, fmt.Sprintf("%s (schema v%d)", cfg.Audit.Path, v))
	}

	return out
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles
	titleCaser := cases.Title(language.English)

	r.Header(1, "remarkql health report")

	currentGroup := ""
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("")
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch check.Status {
		case statusWarn:
			icon = styles.Warning.Render("!")
		case statusError:
			icon = styles.Error.Render("✗")
		}
		line := fmt.Sprintf("   %s %s", icon, check.Name)
		if check.Detail != "" {
			line += styles.Muted.Render(": " + check.Detail)
		}
		r.Println(line)
	}
	r.Println("")

	summary := fmt.Sprintf("%d %s, %d %s", out.Errors, plural(out.Errors, "error"), out.Warnings, plural(out.Warnings, "warning"))
	switch {
	case out.Errors > 0:
		r.Println(styles.Error.Render(summary))
	case out.Warnings > 0:
		r.Println(styles.Warning.Render(summary))
	default:
		r.Println(styles.Success.Render("All checks passed"))
	}
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	titleCaser := cases.Title(language.English)

	r.Println("# remarkql health report")

	currentGroup := ""
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("")
			r.Println("## " + titleCaser.String(currentGroup))
			r.Println("")
		}
		line := fmt.Sprintf("- **[%s]** %s", strings.ToUpper(check.Status), check.Name)
		if check.Detail != "" {
			line += ": " + check.Detail
		}
		r.Println(line)
	}
	r.Println("")
	r.Printf("**%d errors, %d warnings**\n", out.Errors, out.Warnings)
}
