// Package llm provides chat models via CloudWeGo Eino and the conversation
// compactor that seeds child branches.
package llm

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

// Provider identifies the LLM provider to use.
type Provider string

// Config holds configuration for creating an LLM client.
type Config struct {
	Provider Provider
	Model    string // Chat model; empty selects the provider default
	APIKey   string // Required for OpenAI, Anthropic and Gemini
	BaseURL  string // Ollama server, or an OpenAI-compatible endpoint
}

// CloseableChatModel is a chat model that may hold a client needing release.
type CloseableChatModel struct {
	model.BaseChatModel
	closer io.Closer
	once   sync.Once
}

// Close releases the underlying client. It is safe to call more than once.
func (m *CloseableChatModel) Close() error {
	var err error
	m.once.Do(func() {
		if m.closer != nil {
			err = m.closer.Close()
		}
	})
	return err
}

// genaiClientCloser drops the reference to a genai client so its HTTP
// transport can be collected; genai.Client has no Close of its own.
type genaiClientCloser struct {
	client *genai.Client
}

func (c *genaiClientCloser) Close() error {
	c.client = nil
	return nil
}

// NewCloseableChatModel creates a chat model for cfg.Provider.
func NewCloseableChatModel(ctx context.Context, cfg Config) (*CloseableChatModel, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModelForProvider(string(cfg.Provider))
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			Model:   modelName,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return &CloseableChatModel{BaseChatModel: cm}, nil

	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		cm, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   modelName,
		})
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}
		return &CloseableChatModel{BaseChatModel: cm}, nil

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required")
		}
		cm, err := claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     modelName,
			MaxTokens: DefaultMaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}
		return &CloseableChatModel{BaseChatModel: cm}, nil

	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		cm, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelName,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini model: %w", err)
		}
		return &CloseableChatModel{BaseChatModel: cm, closer: &genaiClientCloser{client: client}}, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, ollama, anthropic, gemini)", cfg.Provider)
	}
}

// NewChatModel creates a ChatModel for cfg.Provider without exposing Close.
func NewChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	cm, err := NewCloseableChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return cm, nil
}

// ValidateProvider checks if the given provider string is supported.
func ValidateProvider(p string) (Provider, error) {
	switch Provider(p) {
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderOllama:
		return ProviderOllama, nil
	case ProviderAnthropic:
		return ProviderAnthropic, nil
	case ProviderGemini:
		return ProviderGemini, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", p)
	}
}
