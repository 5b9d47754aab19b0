package llmgateway

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"tcsynth/internal/telemetry"
)

// geminiClient wraps the google.golang.org/genai SDK, the teacher's own
// path for talking to Gemini (used there for embeddings; here for text
// generation).
type geminiClient struct {
	client *genai.Client
	model  string
}

func newGeminiClient(ctx context.Context, apiKey, model string) (*geminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: no API key configured")
	}
	if model == "" {
		model = "gemini-2.5-pro"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &geminiClient{client: client, model: model}, nil
}

func (c *geminiClient) Name() string { return "gemini" }

func (c *geminiClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	log := telemetry.Get(telemetry.CategoryLLMGateway)

	temp := float32(temperature)
	maxOut := int32(maxTokens)

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: maxOut,
	})
	if err != nil {
		log.Warn("gemini: generate failed: %v", err)
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", &ErrMalformedResponse{Backend: "gemini", Detail: "empty response text"}
	}
	return text, nil
}
