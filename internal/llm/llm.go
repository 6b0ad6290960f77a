// Package llm defines the interface for reply generation.
//
// A Generator sends a system prompt and the user's transcript to a language
// model and returns the raw completion text. The completion is expected to be
// a JSON object; decoding it is the caller's concern because the schema
// depends on the synthesis strategy.
package llm

import (
	"context"
	"time"
)

// Request is a single chat completion request.
type Request struct {
	SystemPrompt string
	UserText     string

	// Temperature and MaxTokens override backend defaults when non-zero.
	Temperature float64
	MaxTokens   int
}

// Completion is the outcome of a generation call.
type Completion struct {
	// Content is the model's message text.
	Content string

	// Tokens is the total token usage reported by the backend, if any.
	Tokens int64

	// Duration is the time the collaborator took to answer.
	Duration time.Duration
}

// Generator produces replies from a language model.
type Generator interface {
	// Name returns the backend identifier (e.g., "openai", "local").
	Name() string

	// Generate runs one chat completion.
	Generate(ctx context.Context, req Request) (*Completion, error)

	// Close releases any resources held by the generator.
	Close() error
}
