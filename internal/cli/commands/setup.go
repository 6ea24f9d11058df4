package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/remarkql/internal/audit"
	"github.com/leapstack-labs/remarkql/internal/cli/config"
	"github.com/leapstack-labs/remarkql/internal/cli/output"
	"github.com/leapstack-labs/remarkql/internal/llm"
	"github.com/leapstack-labs/remarkql/internal/llm/openai"
	"github.com/leapstack-labs/remarkql/internal/orchestrator"
	"github.com/leapstack-labs/remarkql/internal/summarize"
	"github.com/leapstack-labs/remarkql/internal/widget"
	"github.com/leapstack-labs/remarkql/pkg/adapter"
	"github.com/spf13/cobra"

	// Register the data source adapters.
	_ "github.com/leapstack-labs/remarkql/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/remarkql/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/remarkql/pkg/adapters/sqlite"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the current configuration, or a validated default one
// when the root command did not load any (tests invoke commands directly).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{OutputFormat: config.DefaultOutput}
	}
	return cfg
}

// ProviderFactory builds the LLM provider. Tests swap it for a fake.
type ProviderFactory func(cfg *config.Config, logger *slog.Logger) (llm.Provider, error)

// DefaultProviderFactory builds the OpenAI provider from the llm config.
func DefaultProviderFactory(cfg *config.Config, logger *slog.Logger) (llm.Provider, error) {
	return openai.New(openai.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
		Logger:  logger,
	})
}

var newProvider ProviderFactory = DefaultProviderFactory

// Stack is the fully wired summarization pipeline.
type Stack struct {
	Source       adapter.Adapter
	Catalog      *widget.Catalog
	Summarizer   *summarize.Summarizer
	Orchestrator *orchestrator.Orchestrator
	Audit        *audit.SQLiteStore
}

// Close releases the data source and audit store.
func (s *Stack) Close() {
	if s.Source != nil {
		_ = s.Source.Close()
	}
	if s.Audit != nil {
		_ = s.Audit.Close()
	}
}

// openSource connects the configured data source adapter.
func openSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (adapter.Adapter, error) {
	ac := cfg.Target.AdapterConfig()
	a, err := adapter.NewAdapter(ac, logger.With("component", "adapter"))
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, ac); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Target.Type, err)
	}
	return a, nil
}

// openCatalog connects the data source and builds the widget catalog.
func openCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (adapter.Adapter, *widget.Catalog, error) {
	src, err := openSource(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := widget.NewDefaultCatalog(src, cfg.SurveyTable(), cfg.ActivityMode())
	if err != nil {
		_ = src.Close()
		return nil, nil, err
	}
	return src, catalog, nil
}

// openAudit opens the audit store at the configured path.
func openAudit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*audit.SQLiteStore, error) {
	store := audit.NewSQLiteStore(logger.With("component", "audit"))
	if err := store.Open(ctx, cfg.Audit.Path); err != nil {
		return nil, fmt.Errorf("failed to open audit store: %w", err)
	}
	return store, nil
}

// loadPrompts returns the prompts from prompts_dir, or the embedded defaults.
func loadPrompts(cfg *config.Config) (*summarize.Prompts, error) {
	if cfg.PromptsDir == "" {
		return summarize.DefaultPrompts()
	}
	return summarize.LoadPrompts(cfg.PromptsDir)
}

// NewStack wires the data source, catalog, summarizer, audit store and
// orchestrator. The caller must Close the stack.
func NewStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	provider, err := newProvider(cfg, logger.With("component", "llm"))
	if err != nil {
		return nil, err
	}
	prompts, err := loadPrompts(cfg)
	if err != nil {
		return nil, err
	}
	summarizer, err := summarize.New(summarize.Config{
		Provider:    provider,
		Prompts:     prompts,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Logger:      logger.With("component", "summarize"),
	})
	if err != nil {
		return nil, err
	}

	src, catalog, err := openCatalog(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	stack := &Stack{Source: src, Catalog: catalog, Summarizer: summarizer}

	stack.Audit, err = openAudit(ctx, cfg, logger)
	if err != nil {
		stack.Close()
		return nil, err
	}

	stack.Orchestrator, err = orchestrator.New(orchestrator.Config{
		Catalog:      catalog,
		Source:       src,
		Summarizer:   summarizer,
		Table:        cfg.Table,
		RemarkColumn: cfg.Columns.Remark,
		Recorder:     stack.Audit,
		Logger:       logger.With("component", "orchestrator"),
	})
	if err != nil {
		stack.Close()
		return nil, err
	}
	return stack, nil
}
