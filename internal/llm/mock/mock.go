// Package mock provides a test double for the llm.Generator interface.
//
// Use Generator to feed controlled completions to the pipeline and to verify
// the system prompt and transcript it sends.
package mock

import (
	"context"
	"sync"

	"github.com/nadzzz/voicetone/internal/llm"
)

// Generator is a mock implementation of llm.Generator.
type Generator struct {
	mu sync.Mutex

	// Content is returned as the completion text.
	Content string

	// Tokens is returned as the token usage.
	Tokens int64

	// Err, if non-nil, is returned from Generate.
	Err error

	// Calls records every Request passed to Generate in order.
	Calls []llm.Request
}

// Name returns "mock".
func (g *Generator) Name() string { return "mock" }

// Generate records the call and returns Content or Err.
func (g *Generator) Generate(_ context.Context, req llm.Request) (*llm.Completion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, req)
	if g.Err != nil {
		return nil, g.Err
	}
	return &llm.Completion{Content: g.Content, Tokens: g.Tokens}, nil
}

// CallCount returns the number of Generate calls. Thread-safe.
func (g *Generator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}

// Close is a no-op.
func (g *Generator) Close() error { return nil }

var _ llm.Generator = (*Generator)(nil)
