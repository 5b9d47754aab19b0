package llmgateway

import (
	"context"
	"fmt"
	"os"

	"tcsynth/internal/config"
)

// NewFromConfig constructs the primary backend named by cfg.LLM.Provider,
// wrapped in a Gateway. When a TCSYNTH_FALLBACK_PROVIDER environment
// variable names a second, differently-keyed provider, it is wired in as
// the sole fallback — this is the only way a fallback key ever enters the
// process; nothing here carries a literal default key.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Gateway, error) {
	primary, err := buildClient(ctx, cfg.LLM.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("llmgateway: build primary backend: %w", err)
	}

	var fallbacks []Client
	if fb := os.Getenv("TCSYNTH_FALLBACK_PROVIDER"); fb != "" && fb != cfg.LLM.Provider {
		fallbackCfg := *cfg
		fallbackCfg.LLM.Provider = fb
		fallbackCfg.LLM.APIKey = fallbackAPIKey(fb)
		if fallbackCfg.LLM.APIKey != "" {
			if client, err := buildClient(ctx, fb, &fallbackCfg); err == nil {
				fallbacks = append(fallbacks, client)
			}
		}
	}

	return New(primary, fallbacks...), nil
}

func fallbackAPIKey(provider string) string {
	switch provider {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "xai":
		return os.Getenv("XAI_API_KEY")
	case "zai":
		return os.Getenv("ZAI_API_KEY")
	case "openrouter":
		return os.Getenv("OPENROUTER_API_KEY")
	default:
		return ""
	}
}

func buildClient(ctx context.Context, provider string, cfg *config.Config) (Client, error) {
	keys := []string{cfg.LLM.APIKey}

	switch provider {
	case "anthropic":
		baseURL := cfg.LLM.BaseURL
		return newAnthropicClient(baseURL, modelOr(cfg.LLM.Model, "claude-sonnet-4-5"), cfg.LLM.APIKey, cfg.LLM.MaxRetries), nil
	case "openai":
		baseURL := orDefault(cfg.LLM.BaseURL, "https://api.openai.com/v1")
		return newOpenAICompatClient("openai", baseURL, modelOr(cfg.LLM.Model, "gpt-4o"), keys, nil, cfg.LLM.MaxRetries), nil
	case "gemini":
		return newGeminiClient(ctx, cfg.LLM.APIKey, modelOr(cfg.LLM.Model, "gemini-2.5-pro"))
	case "xai":
		baseURL := orDefault(cfg.LLM.BaseURL, "https://api.x.ai/v1")
		return newOpenAICompatClient("xai", baseURL, modelOr(cfg.LLM.Model, "grok-4"), keys, nil, cfg.LLM.MaxRetries), nil
	case "zai":
		baseURL := orDefault(cfg.LLM.BaseURL, "https://api.z.ai/api/coding/paas/v4")
		return newOpenAICompatClient("zai", baseURL, modelOr(cfg.LLM.Model, "glm-4.7"), keys, nil, cfg.LLM.MaxRetries), nil
	case "openrouter":
		baseURL := orDefault(cfg.LLM.BaseURL, "https://openrouter.ai/api/v1")
		headers := map[string]string{"HTTP-Referer": "https://github.com/tcsynth", "X-Title": "tcsynth"}
		return newOpenAICompatClient("openrouter", baseURL, modelOr(cfg.LLM.Model, "openai/gpt-4o"), keys, headers, cfg.LLM.MaxRetries), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func modelOr(v, def string) string {
	return orDefault(v, def)
}
