// Package config provides configuration management for the remarkql CLI.
//
// Configuration is layered with koanf: built-in defaults, then a
// remarkql.yaml found in the working directory or one of its parents, then
// REMARKQL_ environment variables, then command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/remarkql/internal/widget"
	"github.com/leapstack-labs/remarkql/pkg/adapter"
)

// TargetConfig describes the survey data source.
type TargetConfig struct {
	Type     string            `koanf:"type"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Schema   string            `koanf:"schema"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// AdapterConfig converts the target into the adapter connection config.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     t.Type,
		Path:     t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
}

// ColumnsConfig names the survey table columns.
type ColumnsConfig struct {
	Remark   string `koanf:"remark"`
	Country  string `koanf:"country"`
	Region   string `koanf:"region"`
	Activity string `koanf:"activity"`
	Program  string `koanf:"program"`
	Date     string `koanf:"date"`
}

// CatalogConfig controls how the widget catalog is assembled.
type CatalogConfig struct {
	Activity string `koanf:"activity"`
}

// LLMConfig holds the language model settings.
type LLMConfig struct {
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	BaseURL     string        `koanf:"base_url"`
	Temperature float64       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
}

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Port          int    `koanf:"port"`
	SessionSecret string `koanf:"session_secret"`
	Watch         bool   `koanf:"watch"`
	AutoOpen      bool   `koanf:"auto_open"`
	// ReviewUser and ReviewPassword guard the review page when both are set.
	ReviewUser     string `koanf:"review_user"`
	ReviewPassword string `koanf:"review_password"`
}

// ReviewAuth returns the review page credentials, or nil when unset.
func (c UIConfig) ReviewAuth() map[string]string {
	if c.ReviewUser == "" || c.ReviewPassword == "" {
		return nil
	}
	return map[string]string{c.ReviewUser: c.ReviewPassword}
}

// AuditConfig locates the local audit database.
type AuditConfig struct {
	Path string `koanf:"path"`
}

// Config holds all CLI configuration options.
type Config struct {
	Target       TargetConfig  `koanf:"target"`
	Table        string        `koanf:"table"`
	Columns      ColumnsConfig `koanf:"columns"`
	Catalog      CatalogConfig `koanf:"catalog"`
	LLM          LLMConfig     `koanf:"llm"`
	PromptsDir   string        `koanf:"prompts_dir"`
	UI           UIConfig      `koanf:"ui"`
	Audit        AuditConfig   `koanf:"audit"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// SurveyTable returns the widget table description for the configured columns.
func (c *Config) SurveyTable() widget.Table {
	return widget.Table{
		Name:     c.Table,
		Remark:   c.Columns.Remark,
		Country:  c.Columns.Country,
		Region:   c.Columns.Region,
		Activity: c.Columns.Activity,
		Program:  c.Columns.Program,
		Date:     c.Columns.Date,
	}
}

// ActivityMode returns the configured activity widget mode.
func (c *Config) ActivityMode() widget.ActivityMode {
	return widget.ActivityMode(c.Catalog.Activity)
}

// Default configuration values.
const (
	DefaultTargetType = "postgres"
	DefaultAuditPath  = ".remarkql/audit.db"
	DefaultUIPort     = 8765
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLLMTimeout = 60 * time.Second
)
