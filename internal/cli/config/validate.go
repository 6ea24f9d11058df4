package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/leapstack-labs/remarkql/internal/widget"
	"github.com/leapstack-labs/remarkql/pkg/adapter"
)

// identPattern matches a plain SQL identifier, optionally schema-qualified.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// columnPattern matches an unqualified column name.
var columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks if the configuration is valid. Table and column names are
// interpolated into SQL, so anything other than a plain identifier is rejected.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Target.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("invalid target configuration: %w", err))
	}

	if !identPattern.MatchString(c.Table) {
		errs = append(errs, fmt.Errorf("table %q is not a valid identifier", c.Table))
	}

	columns := []struct{ key, value string }{
		{"columns.remark", c.Columns.Remark},
		{"columns.country", c.Columns.Country},
		{"columns.region", c.Columns.Region},
		{"columns.activity", c.Columns.Activity},
		{"columns.program", c.Columns.Program},
		{"columns.date", c.Columns.Date},
	}
	for _, col := range columns {
		if !columnPattern.MatchString(col.value) {
			errs = append(errs, fmt.Errorf("%s %q is not a valid column name", col.key, col.value))
		}
	}

	switch c.ActivityMode() {
	case widget.ActivitySelection, widget.ActivityFormMode:
	default:
		errs = append(errs, fmt.Errorf("catalog.activity must be %q or %q, got %q",
			widget.ActivitySelection, widget.ActivityFormMode, c.Catalog.Activity))
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be between 0 and 2, got %g", c.LLM.Temperature))
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must not be negative"))
	}

	if c.UI.Port < 0 || c.UI.Port > 65535 {
		errs = append(errs, fmt.Errorf("ui.port %d is out of range", c.UI.Port))
	}

	switch c.OutputFormat {
	case "", "auto", "text", "markdown", "json":
	default:
		errs = append(errs, fmt.Errorf("output must be one of auto, text, markdown, json; got %q", c.OutputFormat))
	}

	return errors.Join(errs...)
}

// Validate checks that the target names a registered adapter.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}
