// Package branch manages the conversation tree of an idea. Every idea owns a
// rooted tree of branches, exactly one of which is active at a time, and each
// branch owns one folder under the idea's project root.
//
// The live text and graph always belong to the active branch. Switching
// freezes the outgoing branch's live state into its row before the incoming
// branch's frozen state is applied.
package branch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/project"
)

var (
	// ErrRootBranch is returned when an operation would delete the root branch.
	ErrRootBranch = errors.New("the root branch cannot be deleted")

	// ErrNoProjectPath is returned when a branch folder is needed but the
	// idea has no project root.
	ErrNoProjectPath = project.ErrNoProjectPath
)

// SummaryUnavailable seeds a child conversation when the parent's
// conversation could not be compacted. It is never cached.
const SummaryUnavailable = "(Summary of the parent conversation is unavailable.)"

// RootLabel is the display label of a newly created root branch.
const RootLabel = "Main"

// Store is the persistence the manager needs.
type Store interface {
	GetIdea(ctx context.Context, id string) (*memory.Idea, error)
	SetSynthesis(ctx context.Context, id string, text *string) error
	SetIdeaConversation(ctx context.Context, id, conversationID string) error
	GetFullState(ctx context.Context, ideaID string) (memory.GraphState, error)
	ReplaceGraph(ctx context.Context, ideaID string, state memory.GraphState) (int, error)

	CreateConversation(ctx context.Context, in memory.NewConversation) (*memory.Conversation, error)
	GetMessageCount(ctx context.Context, conversationID string) (int, error)
	DeleteConversation(ctx context.Context, id string) error

	CreateBranch(ctx context.Context, b memory.Branch) (*memory.Branch, error)
	GetBranch(ctx context.Context, id string) (*memory.Branch, error)
	GetRootBranch(ctx context.Context, ideaID string) (*memory.Branch, error)
	GetActiveBranch(ctx context.Context, ideaID string) (*memory.Branch, error)
	ListBranches(ctx context.Context, ideaID string) ([]memory.Branch, error)
	SetBranchActive(ctx context.Context, id string, active bool) error
	SaveBranchState(ctx context.Context, id string, synthesis *string, graph memory.GraphState) error
	CacheBranchSummary(ctx context.Context, id, summary string, messageCount int) error
	RenameBranch(ctx context.Context, id, label string) error
	DeleteBranches(ctx context.Context, ids []string) error
}

// Compactor summarizes a conversation. Implementations may be slow and may
// fail; a failure never aborts branch creation.
type Compactor interface {
	Compact(ctx context.Context, conversationID string) (string, error)
}

// Options tunes a Manager.
type Options struct {
	// TemplatesDir may hold a branch_seed_prompt.txt overriding the built-in
	// child conversation prompt.
	TemplatesDir string
	// PromptFs is where TemplatesDir is read from. Defaults to the OS filesystem.
	PromptFs afero.Fs
}

// Manager implements the branch operations of an idea.
type Manager struct {
	store     Store
	files     *project.Materializer
	compactor Compactor
	logger    *zap.Logger
	opts      Options
}

// NewManager creates a branch Manager. compactor may be nil, in which case
// child branches are seeded with SummaryUnavailable whenever the parent has
// messages.
func NewManager(store Store, files *project.Materializer, compactor Compactor, logger *zap.Logger, opts Options) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PromptFs == nil {
		opts.PromptFs = afero.NewOsFs()
	}
	return &Manager{
		store:     store,
		files:     files,
		compactor: compactor,
		logger:    logger.Named("branch"),
		opts:      opts,
	}
}

// EnsureRootBranch returns the idea's root branch, creating it on first use.
// A new root is active, uses the default folder name and is linked to the
// idea's current conversation, which is created when missing.
func (m *Manager) EnsureRootBranch(ctx context.Context, ideaID string) (*memory.Branch, error) {
	idea, err := m.store.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}

	root, err := m.store.GetRootBranch(ctx, ideaID)
	if err == nil {
		return root, nil
	}
	if !errors.Is(err, memory.ErrNotFound) {
		return nil, err
	}

	conversationID := idea.ConversationID
	if conversationID == "" {
		conv, err := m.store.CreateConversation(ctx, memory.NewConversation{IdeaID: ideaID, Title: idea.Title})
		if err != nil {
			return nil, fmt.Errorf("create root conversation: %w", err)
		}
		if err := m.store.SetIdeaConversation(ctx, ideaID, conv.ID); err != nil {
			return nil, fmt.Errorf("link root conversation: %w", err)
		}
		conversationID = conv.ID
	}

	root, err = m.store.CreateBranch(ctx, memory.Branch{
		IdeaID:         ideaID,
		ConversationID: conversationID,
		Label:          RootLabel,
		FolderName:     project.DefaultFolderName,
		IsActive:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("create root branch: %w", err)
	}

	if idea.ProjectPath != "" {
		if err := m.files.EnsureFolder(project.FolderPath(idea.ProjectPath, root.FolderName)); err != nil {
			m.logger.Warn("creating root folder failed",
				zap.String("idea_id", ideaID), zap.Error(err))
		}
	}

	m.logger.Info("root branch created", zap.String("idea_id", ideaID), zap.String("branch_id", root.ID))
	return root, nil
}

// GetActiveBranch returns the idea's active branch, or nil when the idea has
// no branches yet.
func (m *Manager) GetActiveBranch(ctx context.Context, ideaID string) (*memory.Branch, error) {
	b, err := m.store.GetActiveBranch(ctx, ideaID)
	if errors.Is(err, memory.ErrNotFound) {
		return nil, nil
	}
	return b, err
}

// GetBranches returns the idea's branches as a flat list. Use BuildTree to
// reconstruct the hierarchy.
func (m *Manager) GetBranches(ctx context.Context, ideaID string) ([]memory.Branch, error) {
	return m.store.ListBranches(ctx, ideaID)
}

// GetBranch returns a branch by ID.
func (m *Manager) GetBranch(ctx context.Context, id string) (*memory.Branch, error) {
	return m.store.GetBranch(ctx, id)
}

// SaveLiveStateToBranch freezes the idea's live text and graph into the
// branch row. Files are not copied; they already live in the branch folder.
func (m *Manager) SaveLiveStateToBranch(ctx context.Context, branchID string) error {
	b, err := m.store.GetBranch(ctx, branchID)
	if err != nil {
		return err
	}
	idea, err := m.store.GetIdea(ctx, b.IdeaID)
	if err != nil {
		return err
	}
	graph, err := m.store.GetFullState(ctx, b.IdeaID)
	if err != nil {
		return fmt.Errorf("read live graph: %w", err)
	}
	if err := m.store.SaveBranchState(ctx, b.ID, idea.Synthesis, graph); err != nil {
		return fmt.Errorf("save branch state: %w", err)
	}
	return nil
}

// RestoreBranchState applies the branch's frozen text and graph to the live
// idea, keeping node and edge identifiers, and points the idea at the
// branch's conversation. Files are not touched.
func (m *Manager) RestoreBranchState(ctx context.Context, branchID string) error {
	b, err := m.store.GetBranch(ctx, branchID)
	if err != nil {
		return err
	}
	if err := m.store.SetSynthesis(ctx, b.IdeaID, b.Synthesis); err != nil {
		return fmt.Errorf("restore text: %w", err)
	}
	skipped, err := m.store.ReplaceGraph(ctx, b.IdeaID, b.Graph)
	if err != nil {
		return fmt.Errorf("restore graph: %w", err)
	}
	if skipped > 0 {
		m.logger.Warn("skipped edges with missing endpoints",
			zap.String("branch_id", b.ID), zap.Int("skipped", skipped))
	}
	if b.ConversationID != "" {
		if err := m.store.SetIdeaConversation(ctx, b.IdeaID, b.ConversationID); err != nil {
			return fmt.Errorf("link branch conversation: %w", err)
		}
	}
	return nil
}

// SwitchToBranch makes the branch active. The outgoing branch is saved and
// deactivated before the target's state is restored. Switching to the
// already active branch does nothing.
func (m *Manager) SwitchToBranch(ctx context.Context, branchID string) (*memory.Branch, error) {
	target, err := m.store.GetBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if target.IsActive {
		return target, nil
	}

	current, err := m.GetActiveBranch(ctx, target.IdeaID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		if err := m.SaveLiveStateToBranch(ctx, current.ID); err != nil {
			return nil, fmt.Errorf("save outgoing branch: %w", err)
		}
		if err := m.store.SetBranchActive(ctx, current.ID, false); err != nil {
			return nil, fmt.Errorf("deactivate outgoing branch: %w", err)
		}
	}

	if err := m.RestoreBranchState(ctx, target.ID); err != nil {
		m.reactivate(ctx, current)
		return nil, err
	}
	if err := m.store.SetBranchActive(ctx, target.ID, true); err != nil {
		m.reactivate(ctx, current)
		return nil, fmt.Errorf("activate branch: %w", err)
	}

	from := ""
	if current != nil {
		from = current.ID
	}
	m.logger.Info("switched branch",
		zap.String("idea_id", target.IdeaID),
		zap.String("from", from),
		zap.String("to", target.ID))
	return m.store.GetBranch(ctx, target.ID)
}

// reactivate hands the idea back to the outgoing branch after a failed
// switch, so the idea keeps an active branch. Failures are only logged.
func (m *Manager) reactivate(ctx context.Context, b *memory.Branch) {
	if b == nil {
		return
	}
	if err := m.store.SetBranchActive(ctx, b.ID, true); err != nil {
		m.logger.Error("reactivating outgoing branch failed",
			zap.String("idea_id", b.IdeaID), zap.String("branch_id", b.ID), zap.Error(err))
		return
	}
	if err := m.RestoreBranchState(ctx, b.ID); err != nil {
		m.logger.Warn("restoring outgoing branch state failed",
			zap.String("idea_id", b.IdeaID), zap.String("branch_id", b.ID), zap.Error(err))
	}
}

// RenameBranch changes a branch's display label. The folder name never
// changes after creation.
func (m *Manager) RenameBranch(ctx context.Context, branchID, label string) (*memory.Branch, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("branch label is required")
	}
	if err := m.store.RenameBranch(ctx, branchID, label); err != nil {
		return nil, err
	}
	return m.store.GetBranch(ctx, branchID)
}

// ActiveBranchFolderPath returns the folder of the idea's active branch,
// falling back to the default folder when the idea has no branches yet.
func (m *Manager) ActiveBranchFolderPath(ctx context.Context, ideaID string) (string, error) {
	idea, err := m.store.GetIdea(ctx, ideaID)
	if err != nil {
		return "", err
	}
	if idea.ProjectPath == "" {
		return "", fmt.Errorf("idea %s: %w", ideaID, ErrNoProjectPath)
	}

	active, err := m.GetActiveBranch(ctx, ideaID)
	if err != nil {
		return "", err
	}
	if active == nil {
		return project.FolderPath(idea.ProjectPath, project.DefaultFolderName), nil
	}
	return project.FolderPath(idea.ProjectPath, active.FolderName), nil
}
