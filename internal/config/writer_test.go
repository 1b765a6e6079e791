package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSetValue_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, SetValue(path, "llm.provider", "gemini"))
	require.NoError(t, SetValue(path, "llm.apiKey", "sk-abc:def#123"))
	require.NoError(t, SetValue(path, "verbose", "true"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(content, &got))
	assert.Equal(t, map[string]any{"provider": "gemini", "apiKey": "sk-abc:def#123"}, got["llm"])
	assert.Equal(t, true, got["verbose"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSetValue_PreservesOtherKeysAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`# ideaflow settings
data:
  dir: /srv/ideaflow # shared volume
llm:
  provider: openai
`), 0600))

	require.NoError(t, SetValue(path, "llm.provider", "ollama"))
	require.NoError(t, SetValue(path, "compaction.maxMessages", "120"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# ideaflow settings")
	assert.Contains(t, string(content), "# shared volume")

	var got struct {
		Data struct {
			Dir string `yaml:"dir"`
		} `yaml:"data"`
		LLM struct {
			Provider string `yaml:"provider"`
		} `yaml:"llm"`
		Compaction struct {
			MaxMessages int `yaml:"maxMessages"`
		} `yaml:"compaction"`
	}
	require.NoError(t, yaml.Unmarshal(content, &got))
	assert.Equal(t, "/srv/ideaflow", got.Data.Dir)
	assert.Equal(t, "ollama", got.LLM.Provider)
	assert.Equal(t, 120, got.Compaction.MaxMessages)
}

func TestSetValue_UnknownKey(t *testing.T) {
	err := SetValue(filepath.Join(t.TempDir(), "config.yaml"), "llm.temperature", "1")
	assert.Error(t, err)
}

func TestConfigYAML_MasksAPIKey(t *testing.T) {
	cfg := &Config{LLM: LLMConfig{Provider: "openai", APIKey: "sk-1234567890abcd"}}

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, out, "sk-1****abcd")
	assert.NotContains(t, out, "sk-1234567890abcd")
	assert.Equal(t, "sk-1234567890abcd", cfg.LLM.APIKey, "the original is unchanged")
}
