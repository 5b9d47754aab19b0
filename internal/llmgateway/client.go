// Package llmgateway provides a uniform async Generate(prompt, temperature,
// maxTokens) -> text interface over multiple LLM backends, with fallback,
// retry, and key rotation. Grounded on the teacher's internal/perception
// multi-backend client family (ZAIClient/AnthropicClient/OpenAIClient/
// GeminiClient/XAIClient/OpenRouterClient), generalized behind one
// interface instead of per-backend call sites.
package llmgateway

import (
	"context"
	"errors"
	"fmt"
)

// Client is the uniform interface every backend implements. It never
// exposes backend-specific request/response shapes above this boundary.
type Client interface {
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
	Name() string
}

// ErrAllBackendsFailed is returned when the primary backend and every
// configured fallback failed.
var ErrAllBackendsFailed = errors.New("llmgateway: all backends failed")

// ErrRateLimitExhausted is returned when a backend's key rotation pool is
// exhausted and every key returned 429.
var ErrRateLimitExhausted = errors.New("llmgateway: rate limit exhausted on all keys")

// ErrMalformedResponse is returned when a backend's response could not be
// parsed into plain text.
type ErrMalformedResponse struct {
	Backend string
	Detail  string
}

func (e *ErrMalformedResponse) Error() string {
	return fmt.Sprintf("llmgateway: malformed response from %s: %s", e.Backend, e.Detail)
}
