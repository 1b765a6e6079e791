package branch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/project"
)

// DeleteBranch removes a branch and all of its descendants, deepest first:
// folder, conversation, then row. When the active branch is inside the
// removed subtree, the branch's parent is activated first. The root branch
// cannot be deleted.
func (m *Manager) DeleteBranch(ctx context.Context, branchID string) error {
	target, err := m.store.GetBranch(ctx, branchID)
	if err != nil {
		return err
	}
	if target.IsRoot() {
		return fmt.Errorf("branch %s: %w", branchID, ErrRootBranch)
	}

	idea, err := m.store.GetIdea(ctx, target.IdeaID)
	if err != nil {
		return err
	}
	all, err := m.store.ListBranches(ctx, target.IdeaID)
	if err != nil {
		return err
	}
	tree, err := BuildTree(all)
	if err != nil {
		return err
	}
	subtree := tree.Subtree(target.ID)

	for _, b := range subtree {
		if b.IsActive {
			if _, err := m.SwitchToBranch(ctx, target.ParentID); err != nil {
				return fmt.Errorf("activate parent branch: %w", err)
			}
			break
		}
	}

	// Subtree is in pre-order, so walking it backwards removes children
	// before their parents.
	for i := len(subtree) - 1; i >= 0; i-- {
		if err := m.removeBranch(ctx, idea, subtree[i]); err != nil {
			return err
		}
	}

	m.logger.Info("branch deleted",
		zap.String("idea_id", idea.ID),
		zap.String("branch_id", target.ID),
		zap.Int("removed", len(subtree)))
	return nil
}

func (m *Manager) removeBranch(ctx context.Context, idea *memory.Idea, b memory.Branch) error {
	if idea.ProjectPath != "" {
		if err := m.files.RemoveFolder(project.FolderPath(idea.ProjectPath, b.FolderName)); err != nil {
			return err
		}
	}
	if b.ConversationID != "" {
		if err := m.store.DeleteConversation(ctx, b.ConversationID); err != nil && !errors.Is(err, memory.ErrNotFound) {
			return fmt.Errorf("delete conversation of branch %s: %w", b.ID, err)
		}
	}
	return m.store.DeleteBranches(ctx, []string{b.ID})
}
