package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/josephgoksu/ideaflow/internal/branch"
	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/project"
	"github.com/josephgoksu/ideaflow/internal/util"
)

// IdeaApp provides idea, note and conversation operations.
// This is THE implementation - CLI and MCP both call these methods.
type IdeaApp struct {
	ctx *Context
}

// NewIdeaApp creates a new idea application service.
func NewIdeaApp(appCtx *Context) *IdeaApp {
	return &IdeaApp{ctx: appCtx}
}

// IdeaStatusView is a one-screen overview of an idea.
type IdeaStatusView struct {
	Idea           *memory.Idea   `json:"idea"`
	ActiveBranch   *memory.Branch `json:"activeBranch,omitempty"`
	BranchCount    int            `json:"branchCount"`
	SnapshotCount  int            `json:"snapshotCount"`
	LatestVersion  int            `json:"latestVersion"`
	NoteCount      int            `json:"noteCount"`
	NodeCount      int            `json:"nodeCount"`
	EdgeCount      int            `json:"edgeCount"`
	ActiveFolder   string         `json:"activeFolder,omitempty"`
	ProjectKind    project.Kind   `json:"projectKind,omitempty"`
	BranchProblems []string       `json:"branchProblems,omitempty"`
}

// TurnResult is the outcome of RecordTurn.
type TurnResult struct {
	Message  *memory.Message  `json:"message"`
	Snapshot *memory.Snapshot `json:"snapshot,omitempty"`
}

// ResolveIdeaID resolves a full idea ID or unique prefix.
func (a *IdeaApp) ResolveIdeaID(ctx context.Context, idOrPrefix string) (string, error) {
	return util.ResolveID(ctx, a.ctx.Store, util.KindIdea, idOrPrefix)
}

// CreateIdea stores a new idea and its first conversation.
func (a *IdeaApp) CreateIdea(ctx context.Context, title string) (*memory.Idea, error) {
	idea, err := a.ctx.Store.CreateIdea(ctx, memory.Idea{Title: title})
	if err != nil {
		return nil, err
	}
	conv, err := a.ctx.Store.CreateConversation(ctx, memory.NewConversation{IdeaID: idea.ID, Title: idea.Title})
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	if err := a.ctx.Store.SetIdeaConversation(ctx, idea.ID, conv.ID); err != nil {
		return nil, fmt.Errorf("link conversation: %w", err)
	}
	idea.ConversationID = conv.ID

	a.ctx.Logger.Info("idea created", zap.String("idea_id", idea.ID), zap.String("title", idea.Title))
	return idea, nil
}

// GetIdea returns an idea by ID.
func (a *IdeaApp) GetIdea(ctx context.Context, id string) (*memory.Idea, error) {
	return a.ctx.Store.GetIdea(ctx, id)
}

// ListIdeas lists ideas, optionally filtered by status.
func (a *IdeaApp) ListIdeas(ctx context.Context, status memory.IdeaStatus) ([]memory.Idea, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("invalid status %q (use active, completed or archived)", status)
	}
	return a.ctx.Store.ListIdeas(ctx, status)
}

// SetStatus moves an idea through its lifecycle.
func (a *IdeaApp) SetStatus(ctx context.Context, id string, status memory.IdeaStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q (use active, completed or archived)", status)
	}
	return a.ctx.Store.UpdateIdeaStatus(ctx, id, status)
}

// ScaffoldProject gives the idea a project root and creates the root branch
// with its folder. root defaults to <projects dir>/<idea ID>.
func (a *IdeaApp) ScaffoldProject(ctx context.Context, ideaID, root string) (*memory.Branch, error) {
	idea, err := a.ctx.Store.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if root == "" {
		root = idea.ProjectPath
	}
	if root == "" {
		if a.ctx.Config.Projects.Dir == "" {
			return nil, fmt.Errorf("no project root given and no projects directory configured")
		}
		root = a.ctx.Config.ProjectRoot(ideaID)
	}
	if idea.ProjectPath != "" && idea.ProjectPath != root {
		return nil, fmt.Errorf("idea %s already has project root %s", ideaID, idea.ProjectPath)
	}

	if idea.ProjectPath == "" {
		if err := a.ctx.Store.SetProjectPath(ctx, ideaID, root); err != nil {
			return nil, err
		}
	}
	rootBranch, err := a.ctx.Branches.EnsureRootBranch(ctx, ideaID)
	if err != nil {
		return nil, err
	}

	folder, err := a.ctx.Branches.ActiveBranchFolderPath(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if err := a.ctx.Files.EnsureFolder(folder); err != nil {
		return nil, fmt.Errorf("create branch folder: %w", err)
	}

	a.ctx.Logger.Info("project scaffolded", zap.String("idea_id", ideaID), zap.String("root", root))
	return rootBranch, nil
}

// DeleteIdea removes the idea with all its rows and its project root.
// Folder removal is best-effort once the rows are gone.
func (a *IdeaApp) DeleteIdea(ctx context.Context, id string) error {
	idea, err := a.ctx.Store.GetIdea(ctx, id)
	if err != nil {
		return err
	}
	branches, err := a.ctx.Store.ListBranches(ctx, id)
	if err != nil {
		return err
	}

	if err := a.ctx.Store.DeleteIdea(ctx, id); err != nil {
		return err
	}

	if idea.ProjectPath == "" {
		return nil
	}
	for _, b := range branches {
		dir := project.FolderPath(idea.ProjectPath, b.FolderName)
		if err := a.ctx.Files.RemoveFolder(dir); err != nil {
			a.ctx.Logger.Warn("removing branch folder failed", zap.String("folder", dir), zap.Error(err))
		}
	}
	if err := a.ctx.Files.RemoveFolder(idea.ProjectPath); err != nil {
		a.ctx.Logger.Warn("removing project root failed", zap.String("root", idea.ProjectPath), zap.Error(err))
	}

	a.ctx.Logger.Info("idea deleted", zap.String("idea_id", id), zap.Int("branches", len(branches)))
	return nil
}

// AddNote captures a note on the idea.
func (a *IdeaApp) AddNote(ctx context.Context, ideaID, content, source string) (*memory.Note, error) {
	if source == "" {
		source = memory.NoteSourceText
	}
	if source != memory.NoteSourceText && source != memory.NoteSourceVoice {
		return nil, fmt.Errorf("invalid note source %q (use text or voice)", source)
	}
	if _, err := a.ctx.Store.GetIdea(ctx, ideaID); err != nil {
		return nil, err
	}
	return a.ctx.Store.AddNote(ctx, memory.Note{IdeaID: ideaID, Content: content, Source: source})
}

// ListNotes lists the idea's notes in capture order.
func (a *IdeaApp) ListNotes(ctx context.Context, ideaID string) ([]memory.Note, error) {
	return a.ctx.Store.ListNotes(ctx, ideaID)
}

// ResolveNoteID resolves a full note ID or unique prefix.
func (a *IdeaApp) ResolveNoteID(ctx context.Context, idOrPrefix string) (string, error) {
	return util.ResolveID(ctx, a.ctx.Store, util.KindNote, idOrPrefix)
}

// DeleteNote removes a note.
func (a *IdeaApp) DeleteNote(ctx context.Context, id string) error {
	return a.ctx.Store.DeleteNote(ctx, id)
}

// UpdateSynthesis replaces the idea's synthesized document.
func (a *IdeaApp) UpdateSynthesis(ctx context.Context, ideaID, text string) (*memory.Idea, error) {
	if err := a.ctx.Store.UpdateSynthesis(ctx, ideaID, text); err != nil {
		return nil, err
	}
	return a.ctx.Store.GetIdea(ctx, ideaID)
}

// RecordTurn appends a message to the idea's current conversation. After an
// assistant message, the idea is snapshotted when toolsUsed names a
// state-changing tool. A failed snapshot does not fail the turn.
func (a *IdeaApp) RecordTurn(ctx context.Context, ideaID, role, content string, toolsUsed []string) (*TurnResult, error) {
	switch role {
	case memory.RoleUser, memory.RoleAssistant, memory.RoleSystem:
	default:
		return nil, fmt.Errorf("invalid role %q", role)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("message content is required")
	}

	idea, err := a.ctx.Store.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if idea.ConversationID == "" {
		return nil, fmt.Errorf("idea %s has no conversation", ideaID)
	}

	msg, err := a.ctx.Store.AddMessage(ctx, idea.ConversationID, role, content)
	if err != nil {
		return nil, err
	}
	result := &TurnResult{Message: msg}
	if role != memory.RoleAssistant {
		return result, nil
	}

	snap, err := a.ctx.Snapshots.AfterTurn(ctx, ideaID, toolsUsed)
	if err != nil {
		a.ctx.Logger.Warn("snapshot after turn failed", zap.String("idea_id", ideaID), zap.Error(err))
		return result, nil
	}
	result.Snapshot = snap
	return result, nil
}

// Conversation returns the last limit messages of the idea's current
// conversation. limit <= 0 returns all of them.
func (a *IdeaApp) Conversation(ctx context.Context, ideaID string, limit int) ([]memory.Message, error) {
	idea, err := a.ctx.Store.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if idea.ConversationID == "" {
		return nil, nil
	}
	return a.ctx.Store.ListMessages(ctx, idea.ConversationID, limit)
}

// Status gathers an overview of the idea, its branches and its snapshots.
func (a *IdeaApp) Status(ctx context.Context, ideaID string) (*IdeaStatusView, error) {
	idea, err := a.ctx.Store.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	view := &IdeaStatusView{Idea: idea}

	branches, err := a.ctx.Branches.GetBranches(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	view.BranchCount = len(branches)
	if view.ActiveBranch, err = a.ctx.Branches.GetActiveBranch(ctx, ideaID); err != nil {
		return nil, err
	}

	snaps, err := a.ctx.Snapshots.GetSnapshots(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	view.SnapshotCount = len(snaps)
	for _, s := range snaps {
		if s.Version > view.LatestVersion {
			view.LatestVersion = s.Version
		}
	}

	notes, err := a.ctx.Store.ListNotes(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	view.NoteCount = len(notes)

	graph, err := a.ctx.Store.GetFullState(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	view.NodeCount, view.EdgeCount = len(graph.Nodes), len(graph.Edges)

	folder, err := a.ctx.Branches.ActiveBranchFolderPath(ctx, ideaID)
	switch {
	case err == nil:
		view.ActiveFolder = folder
		view.ProjectKind = a.ctx.Files.Detect(folder)
	case !errors.Is(err, branch.ErrNoProjectPath):
		return nil, err
	}

	if len(branches) > 0 {
		issues, err := a.ctx.Branches.Check(ctx, ideaID)
		if err != nil {
			return nil, err
		}
		for _, is := range issues {
			view.BranchProblems = append(view.BranchProblems, is.Detail)
		}
	}
	return view, nil
}
