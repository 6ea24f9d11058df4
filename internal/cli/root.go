// Package cli provides the command-line interface for remarkql.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/remarkql/internal/cli/commands"
	"github.com/leapstack-labs/remarkql/internal/cli/config"
	"github.com/spf13/cobra"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "remarkql",
		Short: "remarkql - LLM summaries of survey remarks",
		Long: `remarkql turns free-text survey remarks into short qualitative summaries.

Pick a location, activity, program and month to narrow the remarks, choose
the kind of summary and how many points it has, and remarkql asks a language
model to summarize what the matching remarks say. Results can be flagged for
review, and every request is recorded for the usage report.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", slog.String("path", configFile))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
LLM summaries of survey remarks, built with Go
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: remarkql.yaml in this or a parent directory)")
	rootCmd.PersistentFlags().String("target-type", "", "Survey database type (postgres|duckdb|sqlite)")
	rootCmd.PersistentFlags().String("database", "", "Survey database name, or file path for duckdb and sqlite")
	rootCmd.PersistentFlags().String("table", "", "Survey table, optionally schema-qualified")
	rootCmd.PersistentFlags().String("prompts-dir", "", "Directory with system.tmpl and user.tmpl (default: built-in prompts)")
	rootCmd.PersistentFlags().String("model", "", "LLM model name")
	rootCmd.PersistentFlags().String("audit", "", "Path to the audit database")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	// Register completion for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	_ = rootCmd.RegisterFlagCompletionFunc("target-type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"postgres", "duckdb", "sqlite"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewSummarizeCommand())
	rootCmd.AddCommand(commands.NewOptionsCommand())
	rootCmd.AddCommand(commands.NewFlagsCommand())
	rootCmd.AddCommand(commands.NewUsageCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewDoctorCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for remarkql.

To load completions:

Bash:
  $ source <(remarkql completion bash)
  
  # To load completions for each session, execute once:
  # Linux:
  $ remarkql completion bash > /etc/bash_completion.d/remarkql
  # macOS:
  $ remarkql completion bash > $(brew --prefix)/etc/bash_completion.d/remarkql

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  
  # To load completions for each session, execute once:
  $ remarkql completion zsh > "${fpath[1]}/_remarkql"
  
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ remarkql completion fish | source
  
  # To load completions for each session, execute once:
  $ remarkql completion fish > ~/.config/fish/completions/remarkql.fish

PowerShell:
  PS> remarkql completion powershell | Out-String | Invoke-Expression
  
  # To load completions for every new session, run:
  PS> remarkql completion powershell > remarkql.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}
	return cmd
}
