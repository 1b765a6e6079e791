package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/josephgoksu/ideaflow/internal/app"
	"github.com/josephgoksu/ideaflow/internal/branch"
)

// Tools holds the app services behind the MCP tool handlers. Every handler
// matches mcpsdk.ToolHandlerFor so it can be registered with AddTool or
// called directly in tests.
type Tools struct {
	ideas    *app.IdeaApp
	branches *app.BranchApp
	snaps    *app.SnapshotApp
	logger   *zap.Logger
}

// NewTools creates the tool handlers for an app context.
func NewTools(appCtx *app.Context) *Tools {
	logger := appCtx.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tools{
		ideas:    app.NewIdeaApp(appCtx),
		branches: app.NewBranchApp(appCtx),
		snaps:    app.NewSnapshotApp(appCtx),
		logger:   logger.Named("mcp"),
	}
}

// textResult wraps Markdown and structured content in a tool result.
func textResult[T any](markdown string, data T) *mcpsdk.CallToolResultFor[T] {
	return &mcpsdk.CallToolResultFor[T]{
		Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: markdown}},
		StructuredContent: data,
	}
}

// errorResult returns err inside the result with IsError=true. Tool errors
// belong in the result, not the protocol, so the model can see them and
// self-correct.
func (t *Tools) errorResult(tool string, err error) *mcpsdk.CallToolResultFor[any] {
	t.logger.Debug("tool failed", zap.String("tool", tool), zap.Error(err))
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: FormatError(err.Error())}},
		IsError: true,
	}
}

// validationError reports a bad or missing argument with IsError=true.
func validationError(field, message string) *mcpsdk.CallToolResultFor[any] {
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: FormatValidationError(field, message)}},
		IsError: true,
	}
}

// fail converts an untyped error result into the handler's result type.
func fail[T any](r *mcpsdk.CallToolResultFor[any]) (*mcpsdk.CallToolResultFor[T], error) {
	return &mcpsdk.CallToolResultFor[T]{Content: r.Content, IsError: true}, nil
}

// errMissing is returned by the resolvers for empty arguments.
var errMissing = errors.New("required")

func (t *Tools) resolveIdea(ctx context.Context, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", errMissing
	}
	return t.ideas.ResolveIdeaID(ctx, ref)
}

func (t *Tools) resolveBranch(ctx context.Context, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", errMissing
	}
	return t.branches.ResolveBranchID(ctx, ref)
}

// argError picks a validation or a plain error result for a resolver error.
func (t *Tools) argError(tool, field string, err error) *mcpsdk.CallToolResultFor[any] {
	if errors.Is(err, errMissing) {
		return validationError(field, field+" is required")
	}
	return t.errorResult(tool, err)
}

// === Branch tools ===

// BranchList lists an idea's branch tree.
func (t *Tools) BranchList(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[IdeaParams]) (*mcpsdk.CallToolResultFor[BranchListResponse], error) {
	ideaID, err := t.resolveIdea(ctx, params.Arguments.IdeaID)
	if err != nil {
		return fail[BranchListResponse](t.argError(ToolBranchList, "idea_id", err))
	}
	tree, err := t.branches.Tree(ctx, ideaID)
	if err != nil {
		return fail[BranchListResponse](t.errorResult(ToolBranchList, err))
	}

	resp := BranchListResponse{IdeaID: ideaID}
	tree.Walk(func(n *branch.TreeNode, _ int) bool {
		resp.Branches = append(resp.Branches, n.Branch)
		if n.Branch.IsActive {
			resp.ActiveID = n.Branch.ID
		}
		return true
	})
	return textResult(FormatBranchTree(tree), resp), nil
}

// BranchCreate forks a child branch.
func (t *Tools) BranchCreate(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[BranchCreateParams]) (*mcpsdk.CallToolResultFor[BranchResponse], error) {
	args := params.Arguments
	ideaID, err := t.resolveIdea(ctx, args.IdeaID)
	if err != nil {
		return fail[BranchResponse](t.argError(ToolBranchCreate, "idea_id", err))
	}
	parentID := ""
	if args.ParentID != "" {
		if parentID, err = t.resolveBranch(ctx, args.ParentID); err != nil {
			return fail[BranchResponse](t.argError(ToolBranchCreate, "parent_id", err))
		}
	}

	b, err := t.branches.Create(ctx, ideaID, parentID, args.Label)
	if err != nil {
		return fail[BranchResponse](t.errorResult(ToolBranchCreate, err))
	}
	folder, err := t.branches.ActiveFolder(ctx, ideaID)
	if err != nil {
		t.logger.Warn("active folder lookup failed", zap.String("branch_id", b.ID), zap.Error(err))
		folder = ""
	}
	return textResult(FormatBranch("Created and switched to", b, folder), BranchResponse{Branch: b, Folder: folder}), nil
}

// BranchSwitch activates a branch.
func (t *Tools) BranchSwitch(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[BranchParams]) (*mcpsdk.CallToolResultFor[BranchResponse], error) {
	branchID, err := t.resolveBranch(ctx, params.Arguments.BranchID)
	if err != nil {
		return fail[BranchResponse](t.argError(ToolBranchSwitch, "branch_id", err))
	}
	res, err := t.branches.Switch(ctx, branchID)
	if err != nil {
		return fail[BranchResponse](t.errorResult(ToolBranchSwitch, err))
	}
	return textResult(FormatBranch("Switched to", res.Branch, res.Folder), BranchResponse{Branch: res.Branch, Folder: res.Folder}), nil
}

// BranchDelete removes a branch with its descendants.
func (t *Tools) BranchDelete(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[BranchParams]) (*mcpsdk.CallToolResultFor[DeleteResponse], error) {
	branchID, err := t.resolveBranch(ctx, params.Arguments.BranchID)
	if err != nil {
		return fail[DeleteResponse](t.argError(ToolBranchDelete, "branch_id", err))
	}
	if err := t.branches.Delete(ctx, branchID); err != nil {
		return fail[DeleteResponse](t.errorResult(ToolBranchDelete, err))
	}
	return textResult(fmt.Sprintf("Deleted branch `%s` and its descendants.", branchID), DeleteResponse{Deleted: branchID}), nil
}

// BranchRename relabels a branch.
func (t *Tools) BranchRename(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[BranchRenameParams]) (*mcpsdk.CallToolResultFor[BranchResponse], error) {
	args := params.Arguments
	branchID, err := t.resolveBranch(ctx, args.BranchID)
	if err != nil {
		return fail[BranchResponse](t.argError(ToolBranchRename, "branch_id", err))
	}
	if strings.TrimSpace(args.Label) == "" {
		return fail[BranchResponse](validationError("label", "label is required"))
	}
	b, err := t.branches.Rename(ctx, branchID, args.Label)
	if err != nil {
		return fail[BranchResponse](t.errorResult(ToolBranchRename, err))
	}
	return textResult(FormatBranch("Renamed branch", b, ""), BranchResponse{Branch: b}), nil
}

// BranchActiveFolder returns the folder the assistant should write files to.
func (t *Tools) BranchActiveFolder(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[IdeaParams]) (*mcpsdk.CallToolResultFor[FolderResponse], error) {
	ideaID, err := t.resolveIdea(ctx, params.Arguments.IdeaID)
	if err != nil {
		return fail[FolderResponse](t.argError(ToolBranchActiveFolder, "idea_id", err))
	}
	folder, err := t.branches.ActiveFolder(ctx, ideaID)
	if err != nil {
		return fail[FolderResponse](t.errorResult(ToolBranchActiveFolder, err))
	}
	return textResult(fmt.Sprintf("Active branch folder: `%s`", folder), FolderResponse{IdeaID: ideaID, Folder: folder}), nil
}

// BranchCheck reports drift between branch rows and folders.
func (t *Tools) BranchCheck(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[IdeaParams]) (*mcpsdk.CallToolResultFor[CheckResponse], error) {
	ideaID, err := t.resolveIdea(ctx, params.Arguments.IdeaID)
	if err != nil {
		return fail[CheckResponse](t.argError(ToolBranchCheck, "idea_id", err))
	}
	issues, err := t.branches.Check(ctx, ideaID, false)
	if err != nil {
		return fail[CheckResponse](t.errorResult(ToolBranchCheck, err))
	}
	return textResult(FormatIssues(issues), CheckResponse{Issues: issues}), nil
}

// === Snapshot tools ===

// SnapshotCreate captures the idea's current state.
func (t *Tools) SnapshotCreate(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[SnapshotCreateParams]) (*mcpsdk.CallToolResultFor[SnapshotResponse], error) {
	ideaID, err := t.resolveIdea(ctx, params.Arguments.IdeaID)
	if err != nil {
		return fail[SnapshotResponse](t.argError(ToolSnapshotCreate, "idea_id", err))
	}
	snap, err := t.snaps.Create(ctx, ideaID, params.Arguments.ToolsUsed)
	if err != nil {
		return fail[SnapshotResponse](t.errorResult(ToolSnapshotCreate, err))
	}
	text := fmt.Sprintf("Created snapshot **v%d** `%s` (%d files, %d nodes).", snap.Version, snap.ID, len(snap.Files), len(snap.Nodes))
	return textResult(text, SnapshotResponse{Snapshot: snap}), nil
}

// SnapshotList lists an idea's snapshots.
func (t *Tools) SnapshotList(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[IdeaParams]) (*mcpsdk.CallToolResultFor[SnapshotListResponse], error) {
	ideaID, err := t.resolveIdea(ctx, params.Arguments.IdeaID)
	if err != nil {
		return fail[SnapshotListResponse](t.argError(ToolSnapshotList, "idea_id", err))
	}
	list, err := t.snaps.List(ctx, ideaID)
	if err != nil {
		return fail[SnapshotListResponse](t.errorResult(ToolSnapshotList, err))
	}
	return textResult(FormatSnapshotList(list), SnapshotListResponse{IdeaID: ideaID, Snapshots: list}), nil
}

// SnapshotGet returns one snapshot in full.
func (t *Tools) SnapshotGet(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[SnapshotParams]) (*mcpsdk.CallToolResultFor[SnapshotResponse], error) {
	snapID, errResult := t.resolveSnapshot(ctx, ToolSnapshotGet, params.Arguments)
	if errResult != nil {
		return fail[SnapshotResponse](errResult)
	}
	snap, err := t.snaps.Get(ctx, snapID)
	if err != nil {
		return fail[SnapshotResponse](t.errorResult(ToolSnapshotGet, err))
	}
	return textResult(FormatSnapshot(snap), SnapshotResponse{Snapshot: snap}), nil
}

// SnapshotRestore rolls the idea back to a snapshot.
func (t *Tools) SnapshotRestore(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[SnapshotParams]) (*mcpsdk.CallToolResultFor[RestoreResponse], error) {
	snapID, errResult := t.resolveSnapshot(ctx, ToolSnapshotRestore, params.Arguments)
	if errResult != nil {
		return fail[RestoreResponse](errResult)
	}
	report, err := t.snaps.Restore(ctx, snapID)
	if err != nil {
		return fail[RestoreResponse](t.errorResult(ToolSnapshotRestore, err))
	}
	return textResult(FormatRestore(report), RestoreResponse{Report: report}), nil
}

func (t *Tools) resolveSnapshot(ctx context.Context, tool string, args SnapshotParams) (string, *mcpsdk.CallToolResultFor[any]) {
	if strings.TrimSpace(args.Snapshot) == "" {
		return "", validationError("snapshot", "snapshot is required (an ID, a prefix or a version like v3)")
	}
	ideaID := ""
	if args.IdeaID != "" {
		id, err := t.resolveIdea(ctx, args.IdeaID)
		if err != nil {
			return "", t.argError(tool, "idea_id", err)
		}
		ideaID = id
	}
	snapID, err := t.snaps.ResolveSnapshotID(ctx, ideaID, args.Snapshot)
	if err != nil {
		return "", t.errorResult(tool, err)
	}
	return snapID, nil
}

// === Synthesis ===

// UpdateSynthesis replaces the idea's synthesized document.
func (t *Tools) UpdateSynthesis(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[UpdateSynthesisParams]) (*mcpsdk.CallToolResultFor[SynthesisResponse], error) {
	ideaID, err := t.resolveIdea(ctx, params.Arguments.IdeaID)
	if err != nil {
		return fail[SynthesisResponse](t.argError(ToolUpdateSynthesis, "idea_id", err))
	}
	if strings.TrimSpace(params.Arguments.Content) == "" {
		return fail[SynthesisResponse](validationError("content", "content is required"))
	}
	idea, err := t.ideas.UpdateSynthesis(ctx, ideaID, params.Arguments.Content)
	if err != nil {
		return fail[SynthesisResponse](t.errorResult(ToolUpdateSynthesis, err))
	}
	text := fmt.Sprintf("Updated synthesis of **%s** (version %d).", idea.Title, idea.SynthesisVersion)
	return textResult(text, SynthesisResponse{IdeaID: ideaID, Version: idea.SynthesisVersion}), nil
}
