package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/josephgoksu/ideaflow/internal/branch"
	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/snapshot"
	"github.com/josephgoksu/ideaflow/internal/util"
)

// BranchApp provides branch tree operations.
type BranchApp struct {
	ctx *Context
}

// NewBranchApp creates a new branch application service.
func NewBranchApp(appCtx *Context) *BranchApp {
	return &BranchApp{ctx: appCtx}
}

// SwitchResult reports the branch that became active.
type SwitchResult struct {
	Branch *memory.Branch `json:"branch"`
	Folder string         `json:"folder,omitempty"`
}

// ResolveBranchID resolves a full branch ID or unique prefix.
func (a *BranchApp) ResolveBranchID(ctx context.Context, idOrPrefix string) (string, error) {
	return util.ResolveID(ctx, a.ctx.Store, util.KindBranch, idOrPrefix)
}

// Tree returns the idea's branch tree, creating the root branch first.
func (a *BranchApp) Tree(ctx context.Context, ideaID string) (*branch.Tree, error) {
	if _, err := a.ctx.Branches.EnsureRootBranch(ctx, ideaID); err != nil {
		return nil, err
	}
	return a.ctx.Branches.Tree(ctx, ideaID)
}

// Create forks a child of parentID. An empty parentID forks the idea's
// active branch.
func (a *BranchApp) Create(ctx context.Context, ideaID, parentID, label string) (*memory.Branch, error) {
	if parentID == "" {
		if _, err := a.ctx.Branches.EnsureRootBranch(ctx, ideaID); err != nil {
			return nil, err
		}
		active, err := a.ctx.Branches.GetActiveBranch(ctx, ideaID)
		if err != nil {
			return nil, err
		}
		if active == nil {
			return nil, fmt.Errorf("idea %s has no active branch", ideaID)
		}
		parentID = active.ID
	}
	return a.ctx.Branches.CreateChildBranch(ctx, parentID, label)
}

// Switch makes branchID the active branch of its idea.
func (a *BranchApp) Switch(ctx context.Context, branchID string) (*SwitchResult, error) {
	b, err := a.ctx.Branches.SwitchToBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	result := &SwitchResult{Branch: b}
	if folder, err := a.ctx.Branches.ActiveBranchFolderPath(ctx, b.IdeaID); err == nil {
		result.Folder = folder
	}
	return result, nil
}

// Delete removes a branch and its descendants.
func (a *BranchApp) Delete(ctx context.Context, branchID string) error {
	return a.ctx.Branches.DeleteBranch(ctx, branchID)
}

// Rename relabels a branch. Its folder keeps its name.
func (a *BranchApp) Rename(ctx context.Context, branchID, label string) (*memory.Branch, error) {
	return a.ctx.Branches.RenameBranch(ctx, branchID, label)
}

// ActiveFolder returns the folder of the idea's active branch.
func (a *BranchApp) ActiveFolder(ctx context.Context, ideaID string) (string, error) {
	return a.ctx.Branches.ActiveBranchFolderPath(ctx, ideaID)
}

// Check reports drift between branch rows and folders. With repair set,
// missing folders are recreated and the remaining issues are returned.
func (a *BranchApp) Check(ctx context.Context, ideaID string, repair bool) ([]branch.Issue, error) {
	if repair {
		return a.ctx.Branches.Repair(ctx, ideaID)
	}
	return a.ctx.Branches.Check(ctx, ideaID)
}

// SnapshotApp provides snapshot operations.
type SnapshotApp struct {
	ctx *Context
}

// NewSnapshotApp creates a new snapshot application service.
func NewSnapshotApp(appCtx *Context) *SnapshotApp {
	return &SnapshotApp{ctx: appCtx}
}

// ResolveSnapshotID resolves a snapshot reference for an idea. The
// reference is a full ID, a unique ID prefix, or a version ("v3" or "3").
func (a *SnapshotApp) ResolveSnapshotID(ctx context.Context, ideaID, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if n, ok := parseVersion(ref); ok && ideaID != "" {
		snap, err := a.ctx.Snapshots.GetSnapshotByVersion(ctx, ideaID, n)
		if err != nil {
			return "", err
		}
		return snap.ID, nil
	}
	return util.ResolveID(ctx, a.ctx.Store, util.KindSnapshot, ref)
}

func parseVersion(ref string) (int, bool) {
	ref = strings.TrimPrefix(strings.ToLower(ref), "v")
	n, err := strconv.Atoi(ref)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Create captures the idea's current state as the next version.
func (a *SnapshotApp) Create(ctx context.Context, ideaID string, toolsUsed []string) (*memory.Snapshot, error) {
	return a.ctx.Snapshots.CreateSnapshot(ctx, ideaID, toolsUsed)
}

// List returns the idea's snapshots as summaries, newest first.
func (a *SnapshotApp) List(ctx context.Context, ideaID string) ([]memory.SnapshotSummary, error) {
	snaps, err := a.ctx.Snapshots.GetSnapshots(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	out := make([]memory.SnapshotSummary, 0, len(snaps))
	for i := range snaps {
		out = append(out, snaps[i].Summary())
	}
	return out, nil
}

// Get returns a full snapshot.
func (a *SnapshotApp) Get(ctx context.Context, snapshotID string) (*memory.Snapshot, error) {
	return a.ctx.Snapshots.GetSnapshot(ctx, snapshotID)
}

// Restore rolls the idea back to a snapshot.
func (a *SnapshotApp) Restore(ctx context.Context, snapshotID string) (*snapshot.RestoreReport, error) {
	return a.ctx.Snapshots.RestoreSnapshot(ctx, snapshotID)
}

// Diff compares two versions of an idea.
func (a *SnapshotApp) Diff(ctx context.Context, ideaID string, from, to int) (*snapshot.Diff, error) {
	return a.ctx.Snapshots.Diff(ctx, ideaID, from, to)
}
