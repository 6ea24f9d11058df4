// Package summarize turns a remark list into an LLM-written summary.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/remarkql/internal/llm"
)

// Defaults for Config.
const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 1e-6
)

// Config configures a Summarizer.
type Config struct {
	Provider llm.Provider
	// Prompts defaults to the embedded pair.
	Prompts *Prompts
	Model   string
	// Temperature defaults to DefaultTemperature when zero.
	Temperature float64
	Logger      *slog.Logger
}

// Summarizer renders prompts and calls the provider. Prompts can be swapped
// at runtime; everything else is fixed at construction.
type Summarizer struct {
	provider    llm.Provider
	prompts     atomic.Pointer[Prompts]
	model       string
	temperature float64
	logger      *slog.Logger
}

// New creates a summarizer.
func New(cfg Config) (*Summarizer, error) {
	if cfg.Provider == nil {
		return nil, errors.New("summarizer requires a provider")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	prompts := cfg.Prompts
	if prompts == nil {
		var err error
		if prompts, err = DefaultPrompts(); err != nil {
			return nil, err
		}
	}

	s := &Summarizer{
		provider:    cfg.Provider,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger,
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if s.temperature == 0 {
		s.temperature = DefaultTemperature
	}
	s.prompts.Store(prompts)
	return s, nil
}

// Prompts returns the active prompt pair.
func (s *Summarizer) Prompts() *Prompts {
	return s.prompts.Load()
}

// SetPrompts replaces the prompt pair for subsequent calls.
func (s *Summarizer) SetPrompts(p *Prompts) {
	s.prompts.Store(p)
}

// Summarize returns the complete summary.
func (s *Summarizer) Summarize(ctx context.Context, remarks []string, analysis, points string) (string, error) {
	req, err := s.request(remarks, analysis, points)
	if err != nil {
		return "", err
	}
	out, err := s.provider.Complete(ctx, req)
	if err != nil {
		return "", interrupt(err)
	}
	return out, nil
}

// SummarizeStream checks its inputs, then returns a sequence of growing
// summary prefixes. The last value is the complete summary. Stopping the
// iteration closes the provider stream.
func (s *Summarizer) SummarizeStream(ctx context.Context, remarks []string, analysis, points string) (iter.Seq2[string, error], error) {
	req, err := s.request(remarks, analysis, points)
	if err != nil {
		return nil, err
	}
	return func(yield func(string, error) bool) {
		var sb strings.Builder
		for frag, err := range s.provider.Stream(ctx, req) {
			if err != nil {
				yield(sb.String(), interrupt(err))
				return
			}
			if frag == "" {
				continue
			}
			sb.WriteString(frag)
			if !yield(sb.String(), nil) {
				return
			}
		}
	}, nil
}

// UserPrompt returns the user prompt a call with these inputs sends.
func (s *Summarizer) UserPrompt(remarks []string, analysis, points string) (string, error) {
	req, err := s.request(remarks, analysis, points)
	if err != nil {
		return "", err
	}
	return req.User, nil
}

// request validates inputs and renders the prompt pair.
func (s *Summarizer) request(remarks []string, analysis, points string) (llm.Request, error) {
	if analysis == "" {
		return llm.Request{}, ErrNoSummaryType
	}
	if len(remarks) == 0 {
		return llm.Request{}, ErrNoRemarks
	}

	prompts := s.prompts.Load()
	user, err := prompts.RenderUser(ListRemarks(remarks), cases.Lower(language.Und).String(analysis), points)
	if err != nil {
		return llm.Request{}, err
	}
	s.logger.Debug("user prompt", slog.String("prompt", user))

	return llm.Request{
		Model:       s.model,
		System:      prompts.System(),
		User:        user,
		Temperature: s.temperature,
	}, nil
}

// ListRemarks renders remarks as "Remark N: text" lines, numbered from 1.
func ListRemarks(remarks []string) string {
	lines := make([]string, len(remarks))
	for i, r := range remarks {
		lines[i] = fmt.Sprintf("Remark %d: %s", i+1, r)
	}
	return strings.Join(lines, "\n")
}

func interrupt(err error) error {
	var bad *llm.BadRequestError
	if errors.As(err, &bad) {
		return &InterruptedError{Type: bad.Type, Code: bad.Code, Err: err}
	}
	return err
}
