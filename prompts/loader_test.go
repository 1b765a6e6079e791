package prompts

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPrompt_Defaults(t *testing.T) {
	fs := afero.NewMemMapFs()

	tests := []struct {
		name      string
		promptKey PromptKey
		contains  string
	}{
		{"compact conversation prompt", KeyCompactConversation, "transcript"},
		{"branch seed prompt", KeyBranchSeed, "parent conversation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := GetPrompt(fs, tt.promptKey, "/templates")
			require.NoError(t, err)
			assert.Contains(t, strings.ToLower(prompt), tt.contains)
		})
	}
}

func TestGetPrompt_CustomOverride(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/templates/compact_conversation_prompt.txt", []byte("custom summary prompt"), 0644))

	prompt, err := GetPrompt(fs, KeyCompactConversation, "/templates")
	require.NoError(t, err)
	assert.Equal(t, "custom summary prompt", prompt)

	prompt, err = GetPrompt(fs, KeyCompactConversation, "")
	require.NoError(t, err)
	assert.Equal(t, CompactConversationPrompt, prompt)
}

func TestGetPrompt_UnknownKey(t *testing.T) {
	_, err := GetPrompt(afero.NewMemMapFs(), PromptKey("Nope"), "")
	assert.Error(t, err)
}

func TestBranchSeed(t *testing.T) {
	assert.Equal(t, BranchSeedEmptyPrompt, BranchSeed(BranchSeedPrompt, "  "))

	seeded := BranchSeed(BranchSeedPrompt, "Decided on Stripe.")
	assert.True(t, strings.HasSuffix(seeded, "Decided on Stripe."))

	assert.Equal(t, "custom\n\nsummary", BranchSeed("custom", "summary"))
}
