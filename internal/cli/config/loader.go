package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/remarkql/internal/summarize"
	"github.com/leapstack-labs/remarkql/internal/widget"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// EnvPrefix prefixes every environment variable read by the loader.
// A double underscore separates nesting levels: REMARKQL_LLM__API_KEY sets llm.api_key.
const EnvPrefix = "REMARKQL_"

var configFileNames = []string{"remarkql.yaml", "remarkql.yml"}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// configFileIn returns the config file in dir, or "" if there is none.
func configFileIn(dir string) string {
	for _, name := range configFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigFileUpward searches upward from startDir for a remarkql config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findConfigFileUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configFileIn(dir); found != "" {
			return found
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

func defaults() map[string]any {
	table := widget.DefaultTable()
	return map[string]any{
		"target.type":      DefaultTargetType,
		"table":            table.Name,
		"columns.remark":   table.Remark,
		"columns.country":  table.Country,
		"columns.region":   table.Region,
		"columns.activity": table.Activity,
		"columns.program":  table.Program,
		"columns.date":     table.Date,
		"catalog.activity": string(widget.ActivitySelection),
		"llm.model":        summarize.DefaultModel,
		"llm.temperature":  summarize.DefaultTemperature,
		"llm.timeout":      DefaultLLMTimeout.String(),
		"ui.port":          DefaultUIPort,
		"ui.watch":         true,
		"ui.auto_open":     false,
		"audit.path":       DefaultAuditPath,
		"verbose":          false,
		"output":           DefaultOutput,
	}
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// An explicit cfgFile must exist; otherwise remarkql.yaml is searched for
// upward from the working directory.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	projectRoot := cwd
	configFileUsed = ""
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return nil, fmt.Errorf("config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
	} else {
		configFileUsed = findConfigFileUpward(cwd)
	}
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// 3. Load environment variables (REMARKQL_ prefix)
	// Transform: REMARKQL_LLM__API_KEY -> llm.api_key
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = projectRoot
	cfg.Audit.Path = resolvePathRelativeTo(cfg.Audit.Path, projectRoot)
	cfg.PromptsDir = resolvePathRelativeTo(cfg.PromptsDir, projectRoot)
	if isFileTarget(cfg.Target.Type) {
		cfg.Target.Database = resolvePathRelativeTo(cfg.Target.Database, projectRoot)
	}

	expandSecrets(&cfg)
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// flagKeys maps persistent CLI flags to config keys. Flags not listed here
// are command options and never reach the config.
var flagKeys = map[string]string{
	"target-type": "target.type",
	"database":    "target.database",
	"table":       "table",
	"prompts-dir": "prompts_dir",
	"model":       "llm.model",
	"audit":       "audit.path",
	"verbose":     "verbose",
	"output":      "output",
}

func isFileTarget(t string) bool {
	switch strings.ToLower(t) {
	case "duckdb", "sqlite":
		return true
	}
	return false
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandSecrets expands environment variables in fields that usually hold secrets.
func expandSecrets(c *Config) {
	c.Target.Password = expandEnvVars(c.Target.Password)
	c.Target.User = expandEnvVars(c.Target.User)
	c.Target.Host = expandEnvVars(c.Target.Host)
	c.Target.Database = expandEnvVars(c.Target.Database)
	c.LLM.APIKey = expandEnvVars(c.LLM.APIKey)
	c.UI.SessionSecret = expandEnvVars(c.UI.SessionSecret)
	c.UI.ReviewUser = expandEnvVars(c.UI.ReviewUser)
	c.UI.ReviewPassword = expandEnvVars(c.UI.ReviewPassword)
}
