package summarize

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/zeebo/xxh3"
)

//go:embed prompts/*.tmpl
var defaultPrompts embed.FS

// Prompt file names, both in the embedded set and in a prompts directory.
const (
	SystemPromptFile = "system.tmpl"
	UserPromptFile   = "user.tmpl"
)

// Prompts is a parsed, validated prompt pair. It is immutable.
type Prompts struct {
	system      string
	user        *template.Template
	fingerprint string
}

// sentinels are rendered once at load time to prove every slot is used.
var sentinels = map[string]string{
	"Remarks":  "\x00remarks\x00",
	"Analysis": "\x00analysis\x00",
	"Points":   "\x00points\x00",
}

// DefaultPrompts returns the embedded prompt pair.
func DefaultPrompts() (*Prompts, error) {
	system, err := defaultPrompts.ReadFile("prompts/" + SystemPromptFile)
	if err != nil {
		return nil, err
	}
	user, err := defaultPrompts.ReadFile("prompts/" + UserPromptFile)
	if err != nil {
		return nil, err
	}
	return ParsePrompts(string(system), string(user))
}

// LoadPrompts reads system.tmpl and user.tmpl from dir. An empty dir uses
// the embedded defaults.
func LoadPrompts(dir string) (*Prompts, error) {
	if dir == "" {
		return DefaultPrompts()
	}
	system, err := os.ReadFile(filepath.Join(dir, SystemPromptFile)) //nolint:gosec // operator-configured path
	if err != nil {
		return nil, fmt.Errorf("failed to read system prompt: %w", err)
	}
	user, err := os.ReadFile(filepath.Join(dir, UserPromptFile)) //nolint:gosec // operator-configured path
	if err != nil {
		return nil, fmt.Errorf("failed to read user prompt: %w", err)
	}
	return ParsePrompts(string(system), string(user))
}

// ParsePrompts parses the user template and checks that it renders and
// uses all three slots: .Remarks, .Analysis and .Points.
func ParsePrompts(system, user string) (*Prompts, error) {
	if strings.TrimSpace(system) == "" {
		return nil, errors.New("system prompt is empty")
	}
	tmpl, err := template.New(UserPromptFile).Option("missingkey=error").Parse(user)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user prompt: %w", err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, sentinels); err != nil {
		return nil, fmt.Errorf("failed to render user prompt: %w", err)
	}
	for slot, marker := range sentinels {
		if !strings.Contains(sb.String(), marker) {
			return nil, fmt.Errorf("user prompt does not use {{.%s}}", slot)
		}
	}

	return &Prompts{
		system:      system,
		user:        tmpl,
		fingerprint: strconv.FormatUint(xxh3.HashString(system+"\x00"+user), 16),
	}, nil
}

// System returns the system prompt text.
func (p *Prompts) System() string { return p.system }

// Fingerprint identifies the prompt pair in audit records.
func (p *Prompts) Fingerprint() string { return p.fingerprint }

// RenderUser fills the user template.
func (p *Prompts) RenderUser(remarks, analysis, points string) (string, error) {
	var sb strings.Builder
	err := p.user.Execute(&sb, map[string]string{
		"Remarks":  remarks,
		"Analysis": analysis,
		"Points":   points,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render user prompt: %w", err)
	}
	return sb.String(), nil
}
