package llmgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tcsynth/internal/telemetry"
)

// openAICompatClient speaks the OpenAI chat-completions wire format, which
// OpenAI, XAI (Grok), Z.AI, and OpenRouter all share. baseURL and extra
// headers are the only per-provider differences.
type openAICompatClient struct {
	name        string
	baseURL     string
	model       string
	apiKeys     []string
	extraHeader map[string]string
	maxRetries  int
	httpClient  *http.Client
}

func newOpenAICompatClient(name, baseURL, model string, apiKeys []string, extraHeader map[string]string, maxRetries int) *openAICompatClient {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &openAICompatClient{
		name:        name,
		baseURL:     baseURL,
		model:       model,
		apiKeys:     apiKeys,
		extraHeader: extraHeader,
		maxRetries:  maxRetries,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *openAICompatClient) Name() string { return c.name }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends prompt as a single user message, rotating through
// apiKeys and backing off exponentially whenever a key returns 429.
func (c *openAICompatClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	log := telemetry.Get(telemetry.CategoryLLMGateway)

	if len(c.apiKeys) == 0 {
		return "", fmt.Errorf("%s: no API key configured", c.name)
	}

	reqBody := openAIRequest{
		Model:       c.model,
		Messages:    []openAIMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", c.name, err)
	}

	var lastErr error
	keyIdx := 0

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<uint(attempt-1)) * time.Second)
		}

		apiKey := c.apiKeys[keyIdx%len(c.apiKeys)]

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("%s: build request: %w", c.name, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)
		for k, v := range c.extraHeader {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%s: request failed: %w", c.name, err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%s: read response: %w", c.name, readErr)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			log.Warn("%s: 429 on key %d, rotating", c.name, keyIdx%len(c.apiKeys))
			lastErr = fmt.Errorf("%s: %w", c.name, ErrRateLimitExhausted)
			keyIdx++
			continue
		}

		if resp.StatusCode == http.StatusServiceUnavailable {
			lastErr = fmt.Errorf("%s: 503 service unavailable", c.name)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("%s: request failed with status %d: %s", c.name, resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var parsed openAIResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", &ErrMalformedResponse{Backend: c.name, Detail: err.Error()}
		}
		if parsed.Error != nil {
			return "", fmt.Errorf("%s: API error: %s", c.name, parsed.Error.Message)
		}
		if len(parsed.Choices) == 0 {
			return "", &ErrMalformedResponse{Backend: c.name, Detail: "no choices returned"}
		}

		return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
	}

	return "", fmt.Errorf("%s: max retries exceeded: %w", c.name, lastErr)
}
