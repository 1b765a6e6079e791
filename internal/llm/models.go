package llm

import "strings"

// Model describes a chat model the compactor can be pointed at.
type Model struct {
	ID         string   // Canonical model ID (e.g., "gpt-5-mini")
	ProviderID string   // Internal provider ID (e.g., "openai")
	Aliases    []string // Alternative IDs including dated versions
	IsDefault  bool     // Whether this is the default model for its provider
}

// ModelRegistry lists the known models. Summaries need a fast, cheap model,
// so the defaults are the small tier of each provider.
var ModelRegistry = []Model{
	// OpenAI
	{ID: "gpt-5-mini", ProviderID: ProviderOpenAI, Aliases: []string{"gpt-5-mini-2025-08-07"}, IsDefault: true},
	{ID: "gpt-5", ProviderID: ProviderOpenAI},
	{ID: "gpt-4.1-mini", ProviderID: ProviderOpenAI, Aliases: []string{"gpt-4.1-mini-2025-04-14"}},
	{ID: "gpt-4o-mini", ProviderID: ProviderOpenAI, Aliases: []string{"gpt-4o-mini-2024-07-18"}},

	// Anthropic
	{ID: "claude-haiku-4-5", ProviderID: ProviderAnthropic, Aliases: []string{"claude-haiku-4-5-20251001"}, IsDefault: true},
	{ID: "claude-sonnet-4-5", ProviderID: ProviderAnthropic, Aliases: []string{"claude-sonnet-4-5-20250929"}},

	// Google
	{ID: "gemini-2.5-flash", ProviderID: ProviderGemini, IsDefault: true},
	{ID: "gemini-2.5-pro", ProviderID: ProviderGemini},

	// Ollama (local)
	{ID: "llama3.2", ProviderID: ProviderOllama, IsDefault: true},
	{ID: "qwen2.5", ProviderID: ProviderOllama},
}

// modelIndex is built at init time for fast lookups
var modelIndex map[string]*Model

func init() {
	buildModelIndex()
}

func buildModelIndex() {
	modelIndex = make(map[string]*Model)
	for i := range ModelRegistry {
		m := &ModelRegistry[i]
		modelIndex[m.ID] = m
		for _, alias := range m.Aliases {
			modelIndex[alias] = m
		}
	}
}

// GetModel returns the model definition for a given model ID or alias.
// Returns nil if the model is not found.
func GetModel(modelID string) *Model {
	return modelIndex[modelID]
}

// GetDefaultModelID returns the default model ID for a provider, or "" for
// an unknown provider.
func GetDefaultModelID(providerID string) string {
	for i := range ModelRegistry {
		m := &ModelRegistry[i]
		if m.ProviderID == providerID && m.IsDefault {
			return m.ID
		}
	}
	return ""
}

// InferProvider attempts to determine the provider from a model name.
// Returns the provider ID and true if inference succeeded.
func InferProvider(modelID string) (string, bool) {
	if m := GetModel(modelID); m != nil {
		return m.ProviderID, true
	}

	// Fallback to prefix-based inference for unknown models
	switch {
	case strings.HasPrefix(modelID, "gpt-"), strings.HasPrefix(modelID, "o1-"), strings.HasPrefix(modelID, "o3"), strings.HasPrefix(modelID, "o4-"):
		return ProviderOpenAI, true
	case strings.HasPrefix(modelID, "claude-"):
		return ProviderAnthropic, true
	case strings.HasPrefix(modelID, "gemini-"):
		return ProviderGemini, true
	case strings.HasPrefix(modelID, "llama"), strings.HasPrefix(modelID, "mistral"),
		strings.HasPrefix(modelID, "qwen"), strings.HasPrefix(modelID, "phi"), strings.HasPrefix(modelID, "codellama"):
		return ProviderOllama, true
	}

	return "", false
}
