// Package llm provides interfaces and implementations for Large Language Model clients.
package llm

import (
	"context"
	"errors"
)

// ErrCompletionFailed is returned when the provider cannot produce a completion.
var ErrCompletionFailed = errors.New("llm completion failed")

// Options configures a completion request.
type Options struct {
	// Model specifies the model to use; empty selects the client default.
	Model string

	// Temperature controls randomness (0.0 = deterministic scoring).
	Temperature float32

	// MaxTokens limits the response length. 0 means provider default.
	MaxTokens int
}

// Completion is a provider response with the diagnostics needed to tell a
// truncated response from a complete one without replaying the call.
type Completion struct {
	Text         string
	FinishReason string
	PromptBytes  int
	OutputBytes  int
}

// Truncated reports whether the provider stopped for length rather than
// completing naturally.
func (c *Completion) Truncated() bool {
	return c.FinishReason == "length"
}

// Client defines the interface for LLM completion providers.
type Client interface {
	// Complete sends a prompt and returns the full response. It blocks until
	// the response is received or ctx is done.
	Complete(ctx context.Context, prompt string, opts Options) (*Completion, error)
}
