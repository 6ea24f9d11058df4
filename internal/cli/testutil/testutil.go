// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/remarkql/internal/cli/output"
	"github.com/leapstack-labs/remarkql/pkg/adapter"
	"github.com/leapstack-labs/remarkql/pkg/adapters/sqlite"
)

// ProjectConfig is the remarkql.yaml written by SetupTestProject.
const ProjectConfig = `target:
  type: sqlite
  database: survey.db
table: surveys
columns:
  remark: remarks_qualitative
  country: country
  region: region
  activity: forms_verbose_consolidated
  program: program
  date: observation_date
llm:
  api_key: test-key
output: json
`

// SurveyRows are the remarks seeded by SetupTestProject, in column order.
var SurveyRows = [][]any{
	{"Great pacing.", "Kenya", "Nakuru", "Coaching call", "Literacy", "2024-03-04"},
	{"Needs more examples.", "Kenya", "Nakuru", "Classroom observation", "Literacy", "2024-03-30"},
	{"Strong routines.", "Kenya", "Kisumu", "Coaching call", "Numeracy", "2024-04-02"},
}

// SetupTestProject creates a temporary project with a SQLite survey
// database and a remarkql.yaml pointing at it.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	ctx := context.Background()

	src := sqlite.New(slog.New(slog.DiscardHandler))
	if err := src.Connect(ctx, adapter.Config{Path: filepath.Join(tmpDir, "survey.db")}); err != nil {
		t.Fatalf("failed to create survey.db: %v", err)
	}
	if err := src.Exec(ctx, `CREATE TABLE surveys (
		remarks_qualitative TEXT, country TEXT, region TEXT,
		forms_verbose_consolidated TEXT, program TEXT, observation_date TEXT)`); err != nil {
		t.Fatalf("failed to create surveys table: %v", err)
	}
	for _, row := range SurveyRows {
		if err := src.Exec(ctx, "INSERT INTO surveys VALUES (?, ?, ?, ?, ?, ?)", row...); err != nil {
			t.Fatalf("failed to seed surveys: %v", err)
		}
	}
	if err := src.Close(); err != nil {
		t.Fatalf("failed to close survey.db: %v", err)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "remarkql.yaml"), []byte(ProjectConfig), 0o600); err != nil {
		t.Fatalf("failed to create remarkql.yaml: %v", err)
	}

	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
