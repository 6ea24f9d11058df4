// Package llm defines the chat-completion contract remarkql summarizes
// through.
package llm

import (
	"context"
	"fmt"
	"iter"
)

// Request is one system plus user prompt exchange.
type Request struct {
	Model       string
	System      string
	User        string
	Temperature float64
}

// Provider completes chat requests.
type Provider interface {
	// Complete returns the whole response text.
	Complete(ctx context.Context, req Request) (string, error)

	// Stream yields content fragments as they arrive. Fragments may be
	// empty. Stopping the iteration releases the underlying stream.
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// BadRequestError is returned when the provider rejects a request as
// malformed, for example because the prompt is too long.
type BadRequestError struct {
	Type    string
	Code    string
	Message string
}

func (e *BadRequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bad request: %s: %s", e.Type, e.Code)
	}
	return fmt.Sprintf("bad request: %s: %s: %s", e.Type, e.Code, e.Message)
}
