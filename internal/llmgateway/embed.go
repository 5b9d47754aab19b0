package llmgateway

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"tcsynth/internal/telemetry"
)

// embedDimensions matches gemini-embedding-001's current output size.
const embedDimensions = 768

// Embedder wraps the genai SDK's embedding endpoint, the teacher's own
// path for turning text into vectors (internal/embedding.GenAIEngine),
// narrowed here to the single-text case C15 needs (no batching — the
// Corpus Retriever embeds one problem statement per Retrieve call).
type Embedder struct {
	client *genai.Client
	model  string
}

// NewEmbedder constructs an Embedder. An empty apiKey is a configuration
// error distinct from any per-call failure: C15 treats a nil *Embedder
// as "retrieval disabled", never an error.
func NewEmbedder(ctx context.Context, apiKey, model string) (*Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llmgateway: embedder requires an API key")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("llmgateway: create embedding client: %w", err)
	}
	return &Embedder{client: client, model: model}, nil
}

// Embed returns the embedding vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	log := telemetry.Get(telemetry.CategoryLLMGateway)

	dims := int32(embedDimensions)
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		log.Warn("embed: request failed: %v", err)
		return nil, fmt.Errorf("llmgateway: embed content: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("llmgateway: embed content: no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}

// Dimensions reports the vector size Embed produces.
func (e *Embedder) Dimensions() int { return embedDimensions }
