package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/prompts"
)

// MessageSource reads conversation history.
type MessageSource interface {
	ListMessages(ctx context.Context, conversationID string, limit int) ([]memory.Message, error)
}

// CompactorOptions tunes a Compactor.
type CompactorOptions struct {
	MaxMessages int           // Most recent messages included in the transcript
	Timeout     time.Duration // Per-call deadline for the model
	Prompt      string        // Instructions preceding the transcript
}

// Compactor turns a conversation into a dense summary using a chat model.
type Compactor struct {
	messages MessageSource
	model    model.BaseChatModel
	opts     CompactorOptions
	logger   *zap.Logger
}

// NewCompactor creates a Compactor. Zero options fall back to defaults.
func NewCompactor(messages MessageSource, chatModel model.BaseChatModel, opts CompactorOptions, logger *zap.Logger) *Compactor {
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultCompactionMaxMessages
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultCompactionTimeout
	}
	if strings.TrimSpace(opts.Prompt) == "" {
		opts.Prompt = prompts.CompactConversationPrompt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compactor{
		messages: messages,
		model:    chatModel,
		opts:     opts,
		logger:   logger.Named("compactor"),
	}
}

// Compact summarizes a conversation. A conversation without messages yields
// "" without calling the model.
func (c *Compactor) Compact(ctx context.Context, conversationID string) (string, error) {
	msgs, err := c.messages.ListMessages(ctx, conversationID, c.opts.MaxMessages)
	if err != nil {
		return "", fmt.Errorf("load conversation: %w", err)
	}
	transcript := buildTranscript(msgs)
	if transcript == "" {
		return "", nil
	}
	if c.model == nil {
		return "", fmt.Errorf("no chat model configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.model.Generate(ctx, []*schema.Message{
		schema.UserMessage(c.opts.Prompt + transcript + "</transcript>"),
	})
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}

	summary := strings.TrimSpace(resp.Content)
	c.logger.Debug("conversation compacted",
		zap.String("conversation_id", conversationID),
		zap.Int("messages", len(msgs)),
		zap.Int("summary_chars", len(summary)),
		zap.Duration("elapsed", time.Since(start)))
	return summary, nil
}

// buildTranscript renders messages as "role: content" blocks, skipping
// system messages and blank content.
func buildTranscript(msgs []memory.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		if m.Role == memory.RoleSystem {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}
	return sb.String()
}
