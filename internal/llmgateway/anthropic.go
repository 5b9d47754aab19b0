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

// anthropicClient speaks the Anthropic Messages API.
type anthropicClient struct {
	baseURL    string
	model      string
	apiKey     string
	maxRetries int
	httpClient *http.Client
}

func newAnthropicClient(baseURL, model, apiKey string, maxRetries int) *anthropicClient {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &anthropicClient{baseURL: baseURL, model: model, apiKey: apiKey, maxRetries: maxRetries, httpClient: &http.Client{Timeout: 120 * time.Second}}
}

func (c *anthropicClient) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *anthropicClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	log := telemetry.Get(telemetry.CategoryLLMGateway)

	if c.apiKey == "" {
		return "", fmt.Errorf("anthropic: no API key configured")
	}

	reqBody := anthropicRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<uint(attempt-1)) * time.Second)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("anthropic: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("anthropic: request failed: %w", err)
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("anthropic: read response: %w", readErr)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			log.Warn("anthropic: 429, backing off")
			lastErr = fmt.Errorf("anthropic: %w", ErrRateLimitExhausted)
			continue
		}
		if resp.StatusCode == http.StatusServiceUnavailable {
			lastErr = fmt.Errorf("anthropic: 503 service unavailable")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("anthropic: request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var parsed anthropicResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", &ErrMalformedResponse{Backend: "anthropic", Detail: err.Error()}
		}
		if parsed.Error != nil {
			return "", fmt.Errorf("anthropic: API error: %s", parsed.Error.Message)
		}

		var out strings.Builder
		for _, block := range parsed.Content {
			if block.Type == "text" {
				out.WriteString(block.Text)
			}
		}
		if out.Len() == 0 {
			return "", &ErrMalformedResponse{Backend: "anthropic", Detail: "no text content returned"}
		}
		return strings.TrimSpace(out.String()), nil
	}

	return "", fmt.Errorf("anthropic: max retries exceeded: %w", lastErr)
}
