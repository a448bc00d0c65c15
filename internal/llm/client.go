// Package llm wraps chat-completion models behind a small client interface
// and implements the post-processing stage that fills document metadata and
// summaries from model responses.
package llm

import "context"

// Request is a single completion call. When Images is non-empty the user
// message is sent as multimodal content with each image attached as an
// inline data URL.
type Request struct {
	System      string
	User        string
	Images      [][]byte
	Temperature float32
	MaxTokens   int
}

// Client is a chat-completion model. Implementations must be safe for
// concurrent use; stages call them from worker pools.
type Client interface {
	// Complete sends one request and returns the raw text of the reply.
	Complete(ctx context.Context, req Request) (string, error)

	// CountTokens estimates how many input tokens text occupies.
	CountTokens(text string) int

	// MaxInputTokens is the model's input budget. Callers truncate their
	// prompts to stay below it.
	MaxInputTokens() int
}
