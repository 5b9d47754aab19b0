package llmgateway

import (
	"context"
	"fmt"

	"tcsynth/internal/telemetry"
)

// Gateway composes a primary backend with an ordered list of fallbacks.
// Generate tries the primary first; on any error it falls through the
// fallback chain in order, never exposing which backend ultimately
// answered.
type Gateway struct {
	primary   Client
	fallbacks []Client
}

// New builds a Gateway with the given primary and optional fallbacks.
func New(primary Client, fallbacks ...Client) *Gateway {
	return &Gateway{primary: primary, fallbacks: fallbacks}
}

// Generate asks the primary backend, falling back in order on failure.
// Returns ErrAllBackendsFailed only once every backend has failed.
func (g *Gateway) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	log := telemetry.Get(telemetry.CategoryLLMGateway)

	backends := append([]Client{g.primary}, g.fallbacks...)
	var lastErr error
	for _, backend := range backends {
		if backend == nil {
			continue
		}
		text, err := backend.Generate(ctx, prompt, temperature, maxTokens)
		if err == nil {
			return text, nil
		}
		log.Warn("backend %s failed: %v", backend.Name(), err)
		lastErr = err
	}

	return "", fmt.Errorf("%w: %v", ErrAllBackendsFailed, lastErr)
}
