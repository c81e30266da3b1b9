// Package llm provides language-model clients for OpenAI-compatible endpoints
// (OpenAI, Groq) and Anthropic, plus the error taxonomy the query generator
// retries on.
package llm

import (
	"context"
	"time"
)

// LLMClient is the capability the query generator needs from a provider: one
// chat-style call with a system instruction and a user message.
type LLMClient interface {
	// GenerateResponse returns the model's free-text reply. Errors are
	// classified *Error values.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// GenerateResponseResult is a model reply with usage stats.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Elapsed          time.Duration
}

var (
	_ LLMClient = (*Client)(nil)
	_ LLMClient = (*AnthropicClient)(nil)
	_ LLMClient = (*MockLLMClient)(nil)
)
