package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/remarkql/internal/widget"
	"github.com/leapstack-labs/remarkql/pkg/adapter"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/remarkql/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/remarkql/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/remarkql/pkg/adapters/sqlite"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "remarkql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("target-type", "", "")
	fs.String("database", "", "")
	fs.String("table", "", "")
	fs.String("model", "", "")
	fs.String("audit", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("output", "o", "", "")
	fs.Int("port", 0, "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	def := widget.DefaultTable()
	assert.Equal(t, DefaultTargetType, cfg.Target.Type)
	assert.Equal(t, def, cfg.SurveyTable())
	assert.Equal(t, widget.ActivitySelection, cfg.ActivityMode())
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	assert.InDelta(t, 1e-6, cfg.LLM.Temperature, 1e-12)
	assert.Equal(t, DefaultLLMTimeout, cfg.LLM.Timeout)
	assert.Equal(t, DefaultUIPort, cfg.UI.Port)
	assert.True(t, cfg.UI.Watch)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultAuditPath), cfg.Audit.Path)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_FileSearchedUpward(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	writeConfig(t, root, `
target:
  type: sqlite
  database: data/surveys.db
table: surveys
columns:
  remark: remark
catalog:
  activity: form
llm:
  model: gpt-4o-mini
  temperature: 0.2
  timeout: 5s
prompts_dir: prompts
`)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Target.Type)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "data", "surveys.db"), cfg.Target.Database)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "prompts"), cfg.PromptsDir)
	assert.Equal(t, "surveys", cfg.Table)
	assert.Equal(t, "remark", cfg.Columns.Remark)
	assert.Equal(t, "country", cfg.Columns.Country, "unset columns keep defaults")
	assert.Equal(t, widget.ActivityFormMode, cfg.ActivityMode())
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.NotEmpty(t, GetConfigFileUsed())
}

func TestLoadConfig_Precedence(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, `
target:
  type: duckdb
table: from_file
llm:
  model: from-file
ui:
  port: 9000
`)
	t.Setenv("REMARKQL_TABLE", "from_env")
	t.Setenv("REMARKQL_LLM__MODEL", "from-env")
	t.Setenv("REMARKQL_UI__PORT", "9100")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--model", "from-flag", "--port", "1"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, "from_env", cfg.Table, "env beats file")
	assert.Equal(t, "from-flag", cfg.LLM.Model, "flag beats env")
	assert.Equal(t, 9100, cfg.UI.Port, "command-local flags never reach the config")
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	other := t.TempDir()
	path := writeConfig(t, other, "target:\n  type: duckdb\ntable: explicit\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Table)
	assert.Equal(t, path, GetConfigFileUsed())

	_, err = LoadConfig(filepath.Join(other, "missing.yaml"), nil)
	require.Error(t, err)
}

func TestLoadConfig_ExpandsSecrets(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, `
target:
  type: postgres
  host: db.internal
  database: surveys
  user: reader
  password: ${TEST_REMARKQL_PG_PASSWORD}
llm:
  api_key: ${TEST_REMARKQL_OPENAI_KEY}
`)
	t.Setenv("TEST_REMARKQL_PG_PASSWORD", "s3cret")
	t.Setenv("TEST_REMARKQL_OPENAI_KEY", "sk-test")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Target.Password)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "surveys", cfg.Target.Database, "network targets keep database as a name")

	ac := cfg.Target.AdapterConfig()
	assert.Equal(t, "reader", ac.Username)
	assert.Equal(t, "db.internal", ac.Host)
}

func TestLoadConfig_OpenAIKeyFallback(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "sk-fallback", cfg.LLM.APIKey)
}

func TestLoadConfig_InvalidFileFails(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, "table: \"surveys; DROP TABLE x\"\n")

	_, err := LoadConfig("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid identifier")
	assert.Nil(t, GetCurrentConfig())
}

func validConfig() Config {
	return Config{
		Target:       TargetConfig{Type: "duckdb"},
		Table:        "prod.surveys",
		Columns:      ColumnsConfig{Remark: "r", Country: "c", Region: "g", Activity: "a", Program: "p", Date: "d"},
		Catalog:      CatalogConfig{Activity: "selection"},
		LLM:          LLMConfig{Temperature: 1},
		UI:           UIConfig{Port: 8765},
		OutputFormat: "auto",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unqualified table", mutate: func(c *Config) { c.Table = "surveys" }},
		{name: "empty type", mutate: func(c *Config) { c.Target.Type = "" }, errSubstr: "target type is required"},
		{name: "unknown type", mutate: func(c *Config) { c.Target.Type = "oracle" }, errSubstr: "unknown adapter type"},
		{name: "table with spaces", mutate: func(c *Config) { c.Table = "my table" }, errSubstr: "not a valid identifier"},
		{name: "three part table", mutate: func(c *Config) { c.Table = "a.b.c" }, errSubstr: "not a valid identifier"},
		{name: "qualified column", mutate: func(c *Config) { c.Columns.Remark = "t.remark" }, errSubstr: "columns.remark"},
		{name: "empty column", mutate: func(c *Config) { c.Columns.Date = "" }, errSubstr: "columns.date"},
		{name: "unknown activity mode", mutate: func(c *Config) { c.Catalog.Activity = "tree" }, errSubstr: "catalog.activity"},
		{name: "temperature too high", mutate: func(c *Config) { c.LLM.Temperature = 2.5 }, errSubstr: "llm.temperature"},
		{name: "temperature negative", mutate: func(c *Config) { c.LLM.Temperature = -0.1 }, errSubstr: "llm.temperature"},
		{name: "negative timeout", mutate: func(c *Config) { c.LLM.Timeout = -time.Second }, errSubstr: "llm.timeout"},
		{name: "port out of range", mutate: func(c *Config) { c.UI.Port = 70000 }, errSubstr: "ui.port"},
		{name: "unknown output", mutate: func(c *Config) { c.OutputFormat = "csv" }, errSubstr: "output must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestTargetConfig_Validate_ErrorContainsAvailable(t *testing.T) {
	target := TargetConfig{Type: "invalid_db"}
	err := target.Validate()
	require.Error(t, err)

	var unknown *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Contains(t, unknown.Available, "duckdb")
	assert.Contains(t, err.Error(), "remarkql.yaml", "error should mention config file")
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")
	t.Setenv("TEST_VAR_TWO", "value_two")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"single variable", "${TEST_VAR_ONE}", "value_one"},
		{"multiple variables", "${TEST_VAR_ONE}/${TEST_VAR_TWO}", "value_one/value_two"},
		{"unset variable stays as-is", "${UNSET_VARIABLE}", "${UNSET_VARIABLE}"},
		{"no variables", "plain string", "plain string"},
		{"empty string", "", ""},
		{"mixed set and unset", "${TEST_VAR_ONE}:${UNSET_VAR}", "value_one:${UNSET_VAR}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestGetLogger_FallsBackToDiscard(t *testing.T) {
	assert.NotNil(t, GetLogger(t.Context()))
}

func TestLoadConfig_ReviewAuth(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, `
target:
  type: duckdb
ui:
  review_user: reviewer
  review_password: ${REVIEW_PASSWORD}
`)
	t.Setenv("REVIEW_PASSWORD", "s3cret")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"reviewer": "s3cret"}, cfg.UI.ReviewAuth())

	assert.Nil(t, UIConfig{ReviewUser: "reviewer"}.ReviewAuth(), "a user without a password leaves the page open")
}
