package branch

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/project"
	"github.com/josephgoksu/ideaflow/prompts"
)

// CreateChildBranch forks a new branch off parentID and makes it active.
//
// The parent folder is copied whole, dependencies included, so the child
// starts from a working project. The child inherits the parent's text and
// graph and gets a fresh conversation seeded with a summary of the parent's
// conversation. An empty label is replaced by "Branch N".
func (m *Manager) CreateChildBranch(ctx context.Context, parentID, label string) (*memory.Branch, error) {
	parent, err := m.store.GetBranch(ctx, parentID)
	if err != nil {
		return nil, err
	}
	idea, err := m.store.GetIdea(ctx, parent.IdeaID)
	if err != nil {
		return nil, err
	}
	if idea.ProjectPath == "" {
		return nil, fmt.Errorf("idea %s: %w", idea.ID, ErrNoProjectPath)
	}

	if parent.IsActive {
		if err := m.SaveLiveStateToBranch(ctx, parent.ID); err != nil {
			return nil, fmt.Errorf("save parent branch: %w", err)
		}
	}

	siblings, err := m.store.ListBranches(ctx, idea.ID)
	if err != nil {
		return nil, err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = fmt.Sprintf("Branch %d", len(siblings))
	}

	folder, err := m.childFolderName(idea.ProjectPath, label, siblings)
	if err != nil {
		return nil, err
	}
	parentDir := project.FolderPath(idea.ProjectPath, parent.FolderName)
	childDir := project.FolderPath(idea.ProjectPath, folder)
	if err := m.copyParentFolder(parentDir, childDir); err != nil {
		return nil, err
	}

	synthesis, graph, err := m.parentState(ctx, parent, idea)
	if err != nil {
		m.cleanupFolder(childDir)
		return nil, err
	}

	summary := m.parentSummary(ctx, parent)
	template, err := prompts.GetPrompt(m.opts.PromptFs, prompts.KeyBranchSeed, m.opts.TemplatesDir)
	if err != nil {
		m.logger.Warn("loading branch seed prompt failed, using built-in prompt", zap.Error(err))
		template = prompts.BranchSeedPrompt
	}

	conv, err := m.store.CreateConversation(ctx, memory.NewConversation{
		IdeaID:       idea.ID,
		Title:        label,
		SystemPrompt: prompts.BranchSeed(template, summary),
	})
	if err != nil {
		m.cleanupFolder(childDir)
		return nil, fmt.Errorf("create branch conversation: %w", err)
	}

	child, err := m.store.CreateBranch(ctx, memory.Branch{
		IdeaID:         idea.ID,
		ParentID:       parent.ID,
		ConversationID: conv.ID,
		Label:          label,
		Depth:          parent.Depth + 1,
		FolderName:     folder,
		Synthesis:      synthesis,
		Graph:          graph,
	})
	if err != nil {
		m.cleanupFolder(childDir)
		if cerr := m.store.DeleteConversation(ctx, conv.ID); cerr != nil {
			m.logger.Warn("removing orphaned conversation failed", zap.String("conversation_id", conv.ID), zap.Error(cerr))
		}
		return nil, fmt.Errorf("create branch: %w", err)
	}

	m.logger.Info("branch created",
		zap.String("idea_id", idea.ID),
		zap.String("branch_id", child.ID),
		zap.String("parent_id", parent.ID),
		zap.String("folder", folder))

	return m.SwitchToBranch(ctx, child.ID)
}

// childFolderName derives a folder name from label that is used by neither
// a branch row nor an existing directory under the project root.
func (m *Manager) childFolderName(projectRoot, label string, branches []memory.Branch) (string, error) {
	taken := make(map[string]bool, len(branches))
	for _, b := range branches {
		taken[b.FolderName] = true
	}
	dirs, err := m.files.ListFolders(projectRoot)
	if err != nil {
		return "", err
	}
	for _, d := range dirs {
		taken[d] = true
	}
	return project.UniqueFolderName(project.FolderName(label), func(name string) bool {
		return taken[name]
	}), nil
}

// copyParentFolder clones the parent folder. A parent without a folder on
// disk yields an empty child folder.
func (m *Manager) copyParentFolder(parentDir, childDir string) error {
	exists, err := m.files.Exists(parentDir)
	if err != nil {
		return err
	}
	if !exists {
		m.logger.Warn("parent folder is missing, child starts empty",
			zap.String("parent_dir", parentDir), zap.String("child_dir", childDir))
		return m.files.EnsureFolder(childDir)
	}
	if err := m.files.CopyFolder(parentDir, childDir); err != nil {
		m.cleanupFolder(childDir)
		return fmt.Errorf("copy parent folder: %w", err)
	}
	return nil
}

func (m *Manager) cleanupFolder(dir string) {
	if err := m.files.RemoveFolder(dir); err != nil {
		m.logger.Warn("removing partial branch folder failed", zap.String("dir", dir), zap.Error(err))
	}
}

// parentState reads the parent's text and graph: live when the parent is
// active, frozen otherwise.
func (m *Manager) parentState(ctx context.Context, parent *memory.Branch, idea *memory.Idea) (*string, memory.GraphState, error) {
	if !parent.IsActive {
		return parent.Synthesis, parent.Graph, nil
	}
	graph, err := m.store.GetFullState(ctx, idea.ID)
	if err != nil {
		return nil, memory.GraphState{}, fmt.Errorf("read live graph: %w", err)
	}
	return idea.Synthesis, graph, nil
}

// parentSummary returns the compacted summary of the parent conversation.
// A cached summary is reused while the parent's message count is unchanged.
// Failures degrade to SummaryUnavailable, which is not cached.
func (m *Manager) parentSummary(ctx context.Context, parent *memory.Branch) string {
	if parent.ConversationID == "" {
		return ""
	}

	count, err := m.store.GetMessageCount(ctx, parent.ConversationID)
	if err != nil {
		m.logger.Warn("counting parent messages failed",
			zap.String("branch_id", parent.ID), zap.Error(err))
		return SummaryUnavailable
	}
	if count == 0 {
		return ""
	}
	if parent.CompactedSummary != "" && parent.SummaryMessageCount == count {
		m.logger.Debug("reusing cached summary",
			zap.String("branch_id", parent.ID), zap.Int("messages", count))
		return parent.CompactedSummary
	}

	if m.compactor == nil {
		return SummaryUnavailable
	}
	summary, err := m.compactor.Compact(ctx, parent.ConversationID)
	if err != nil {
		m.logger.Warn("compacting parent conversation failed",
			zap.String("branch_id", parent.ID), zap.Error(err))
		return SummaryUnavailable
	}

	if err := m.store.CacheBranchSummary(ctx, parent.ID, summary, count); err != nil {
		m.logger.Warn("caching summary failed", zap.String("branch_id", parent.ID), zap.Error(err))
	}
	return summary
}
