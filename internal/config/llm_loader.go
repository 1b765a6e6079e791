package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/josephgoksu/ideaflow/internal/llm"
)

// LLMClientConfig converts the configured provider settings into an llm.Config.
// Precedence: explicit config > provider-specific environment > defaults.
// A missing API key is not an error here; the provider reports it on use.
func (c *Config) LLMClientConfig() (llm.Config, error) {
	provider := strings.TrimSpace(c.LLM.Provider)
	if provider == "" {
		if inferred, ok := llm.InferProviderFromModel(c.LLM.Model); ok {
			provider = inferred
		} else {
			provider = llm.DefaultProvider
		}
	}

	p, err := llm.ValidateProvider(provider)
	if err != nil {
		return llm.Config{}, fmt.Errorf("invalid provider: %w", err)
	}

	model := strings.TrimSpace(c.LLM.Model)
	if model == "" {
		model = llm.DefaultModelForProvider(string(p))
	}

	apiKey := strings.TrimSpace(c.LLM.APIKey)
	if apiKey == "" {
		apiKey = providerEnvKey(p)
	}

	baseURL := strings.TrimSpace(c.LLM.BaseURL)
	if baseURL == "" && p == llm.ProviderOllama {
		baseURL = llm.DefaultOllamaURL
	}

	return llm.Config{
		Provider: p,
		Model:    model,
		APIKey:   apiKey,
		BaseURL:  baseURL,
	}, nil
}

// CompactorOptions returns the compaction tuning for llm.NewCompactor.
func (c *Config) CompactorOptions(prompt string) llm.CompactorOptions {
	return llm.CompactorOptions{
		MaxMessages: c.Compaction.MaxMessages,
		Timeout:     c.Compaction.Timeout,
		Prompt:      prompt,
	}
}

func providerEnvKey(provider llm.Provider) string {
	switch provider {
	case llm.ProviderOpenAI:
		return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	case llm.ProviderAnthropic:
		return strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	case llm.ProviderGemini:
		key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		if key == "" {
			key = strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
		}
		return key
	default:
		return ""
	}
}
