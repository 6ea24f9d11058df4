// Package openai implements llm.Provider on the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/leapstack-labs/remarkql/internal/llm"
)

// Config configures the client.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint, e.g. for a compatible gateway.
	BaseURL string
	// Timeout bounds each request. Zero leaves the client default.
	Timeout time.Duration
	// MaxRetries overrides the client retry count when positive. Negative
	// disables retries.
	MaxRetries int
	// HTTPClient is used instead of the default client when set.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Provider calls the OpenAI chat completions endpoint.
type Provider struct {
	client openai.Client
	logger *slog.Logger
}

// New creates a provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required (set llm.api_key or REMARKQL_LLM_API_KEY)")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	switch {
	case cfg.MaxRetries > 0:
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	case cfg.MaxRetries < 0:
		opts = append(opts, option.WithMaxRetries(0))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Provider{client: openai.NewClient(opts...), logger: logger}, nil
}

func params(req llm.Request) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
	}
}

// Complete sends a blocking chat completion request.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (string, error) {
	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params(req))
	if err != nil {
		return "", translate(err)
	}
	p.logger.Debug("chat completion",
		slog.String("model", resp.Model),
		slog.Int64("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int64("completion_tokens", resp.Usage.CompletionTokens),
		slog.Duration("elapsed", time.Since(start)))

	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream sends a streaming chat completion request and yields each content
// delta of the first choice.
func (p *Provider) Stream(ctx context.Context, req llm.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream := p.client.Chat.Completions.NewStreaming(ctx, params(req))
		defer func() { _ = stream.Close() }()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if !yield(chunk.Choices[0].Delta.Content, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", translate(err))
		}
	}
}

// translate maps HTTP 400 responses onto llm.BadRequestError and leaves
// every other error unchanged.
func translate(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		return &llm.BadRequestError{
			Type:    apiErr.Type,
			Code:    apiErr.Code,
			Message: apiErr.Message,
		}
	}
	return fmt.Errorf("openai: %w", err)
}

var _ llm.Provider = (*Provider)(nil)
