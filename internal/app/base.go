// Package app provides the application layer that orchestrates business logic.
// This layer sits between CLI/MCP handlers and the managers, so both adapters
// share one implementation of every operation.
package app

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/josephgoksu/ideaflow/internal/branch"
	"github.com/josephgoksu/ideaflow/internal/config"
	"github.com/josephgoksu/ideaflow/internal/llm"
	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/project"
	"github.com/josephgoksu/ideaflow/internal/snapshot"
	"github.com/josephgoksu/ideaflow/prompts"
)

// Context holds shared dependencies for all app services.
type Context struct {
	Store     *memory.SQLiteStore
	Files     *project.Materializer
	Branches  *branch.Manager
	Snapshots *snapshot.Manager
	Config    *config.Config
	Logger    *zap.Logger

	chatModel *llm.CloseableChatModel
}

// NewContext opens the database and wires the managers on the OS
// filesystem. A chat model that cannot be built only disables compaction.
func NewContext(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Context, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := memory.NewSQLiteStore(cfg.Data.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	fs := afero.NewOsFs()
	var compactor branch.Compactor
	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		logger.Info("chat model unavailable, branch summaries disabled", zap.Error(err))
	} else {
		prompt, perr := prompts.GetPrompt(fs, prompts.KeyCompactConversation, cfg.Prompts.TemplatesDir)
		if perr != nil {
			logger.Warn("loading compaction prompt failed, using built-in prompt", zap.Error(perr))
			prompt = prompts.CompactConversationPrompt
		}
		compactor = llm.NewCompactor(store, chatModel, cfg.CompactorOptions(prompt), logger)
	}

	c := NewContextWith(store, project.NewMaterializer(fs, logger), compactor, cfg, logger)
	c.chatModel = chatModel
	return c, nil
}

// NewContextWith wires the managers around an existing store and
// materializer. compactor may be nil.
func NewContextWith(store *memory.SQLiteStore, files *project.Materializer, compactor branch.Compactor, cfg *config.Config, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	branches := branch.NewManager(store, files, compactor, logger, branch.Options{
		TemplatesDir: cfg.Prompts.TemplatesDir,
		PromptFs:     files.Fs(),
	})
	return &Context{
		Store:     store,
		Files:     files,
		Branches:  branches,
		Snapshots: snapshot.NewManager(store, files, branches, logger),
		Config:    cfg,
		Logger:    logger,
	}
}

// Close releases the chat model and the database.
func (c *Context) Close() error {
	if c.chatModel != nil {
		_ = c.chatModel.Close()
	}
	return c.Store.Close()
}

func newChatModel(ctx context.Context, cfg *config.Config) (*llm.CloseableChatModel, error) {
	llmCfg, err := cfg.LLMClientConfig()
	if err != nil {
		return nil, err
	}
	if llmCfg.Provider != llm.ProviderOllama && llmCfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for %s", llmCfg.Provider)
	}
	return llm.NewCloseableChatModel(ctx, llmCfg)
}
