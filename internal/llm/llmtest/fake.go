// Package llmtest provides an in-memory llm.Provider for tests.
package llmtest

import (
	"context"
	"iter"
	"strings"
	"sync"

	"github.com/leapstack-labs/remarkql/internal/llm"
)

// Fake replays canned output and records every request.
type Fake struct {
	// Chunks are streamed in order; Complete returns them joined.
	Chunks []string
	// Err is returned by Complete, and by Stream after StreamErrAfter chunks.
	Err            error
	StreamErrAfter int

	mu       sync.Mutex
	requests []llm.Request
	closed   int
}

// Reply returns a Fake that answers with text.
func Reply(chunks ...string) *Fake {
	return &Fake{Chunks: chunks}
}

// Fail returns a Fake whose calls fail with err.
func Fail(err error) *Fake {
	return &Fake{Err: err}
}

func (f *Fake) record(req llm.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

// Complete implements llm.Provider.
func (f *Fake) Complete(_ context.Context, req llm.Request) (string, error) {
	f.record(req)
	if f.Err != nil {
		return "", f.Err
	}
	return strings.Join(f.Chunks, ""), nil
}

// Stream implements llm.Provider.
func (f *Fake) Stream(_ context.Context, req llm.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f.record(req)
		defer func() {
			f.mu.Lock()
			f.closed++
			f.mu.Unlock()
		}()
		for i, c := range f.Chunks {
			if f.Err != nil && i == f.StreamErrAfter {
				yield("", f.Err)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
		if f.Err != nil && f.StreamErrAfter >= len(f.Chunks) {
			yield("", f.Err)
		}
	}
}

// Requests returns the requests seen so far.
func (f *Fake) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

// Closed counts streams that have been released.
func (f *Fake) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

var _ llm.Provider = (*Fake)(nil)
