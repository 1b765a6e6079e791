package prompts

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// PromptKey is a type for identifying specific prompts.
type PromptKey string

const (
	// KeyCompactConversation is the key for the conversation summary prompt.
	KeyCompactConversation PromptKey = "CompactConversation"
	// KeyBranchSeed is the key for the child branch system prompt.
	KeyBranchSeed PromptKey = "BranchSeed"
)

// promptConfig defines the default content and filename for a prompt.
type promptConfig struct {
	defaultContent string
	filename       string
}

// promptRegistry maps a PromptKey to its configuration.
var promptRegistry = map[PromptKey]promptConfig{
	KeyCompactConversation: {
		defaultContent: CompactConversationPrompt,
		filename:       "compact_conversation_prompt.txt",
	},
	KeyBranchSeed: {
		defaultContent: BranchSeedPrompt,
		filename:       "branch_seed_prompt.txt",
	},
}

// GetPrompt searches for a user-provided prompt file in templatesDir. If
// found, it returns the content of that file. Otherwise, it returns the
// built-in default.
func GetPrompt(fs afero.Fs, key PromptKey, templatesDir string) (string, error) {
	config, ok := promptRegistry[key]
	if !ok {
		return "", fmt.Errorf("unrecognized prompt key: %s", key)
	}

	if strings.TrimSpace(templatesDir) == "" || fs == nil {
		return config.defaultContent, nil
	}

	customPromptPath := filepath.Join(templatesDir, config.filename)

	exists, err := afero.Exists(fs, customPromptPath)
	if err != nil {
		return "", fmt.Errorf("check custom prompt file at %s: %w", customPromptPath, err)
	}
	if !exists {
		return config.defaultContent, nil
	}

	content, err := afero.ReadFile(fs, customPromptPath)
	if err != nil {
		return "", fmt.Errorf("read custom prompt file at %s: %w", customPromptPath, err)
	}
	return string(content), nil
}

// BranchSeed renders the system prompt of a child branch conversation from
// template and the parent's summary. An empty summary yields the short form.
func BranchSeed(template, summary string) string {
	if strings.TrimSpace(summary) == "" {
		return BranchSeedEmptyPrompt
	}
	if !strings.Contains(template, "%s") {
		return template + "\n\n" + summary
	}
	return fmt.Sprintf(template, summary)
}
