// Package mcp exposes branch and snapshot operations as Model Context
// Protocol tools.
package mcp

import (
	"github.com/josephgoksu/ideaflow/internal/branch"
	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/snapshot"
)

// Tool names.
const (
	ToolBranchList         = "branch_list"
	ToolBranchCreate       = "branch_create"
	ToolBranchSwitch       = "branch_switch"
	ToolBranchDelete       = "branch_delete"
	ToolBranchRename       = "branch_rename"
	ToolBranchActiveFolder = "branch_active_folder"
	ToolBranchCheck        = "branch_check"
	ToolSnapshotCreate     = "snapshot_create"
	ToolSnapshotList       = "snapshot_list"
	ToolSnapshotGet        = "snapshot_get"
	ToolSnapshotRestore    = "snapshot_restore"
	ToolUpdateSynthesis    = "update_synthesis"
)

// === Tool parameters ===

// IdeaParams selects an idea by ID or unique prefix.
type IdeaParams struct {
	IdeaID string `json:"idea_id"`
}

// BranchCreateParams defines the parameters for branch_create.
type BranchCreateParams struct {
	IdeaID string `json:"idea_id"`

	// ParentID is the branch to fork. Defaults to the active branch.
	ParentID string `json:"parent_id,omitempty"`

	// Label names the branch. Defaults to "Branch N".
	Label string `json:"label,omitempty"`
}

// BranchParams selects a branch by ID or unique prefix.
type BranchParams struct {
	BranchID string `json:"branch_id"`
}

// BranchRenameParams defines the parameters for branch_rename.
type BranchRenameParams struct {
	BranchID string `json:"branch_id"`
	Label    string `json:"label"`
}

// SnapshotCreateParams defines the parameters for snapshot_create.
type SnapshotCreateParams struct {
	IdeaID    string   `json:"idea_id"`
	ToolsUsed []string `json:"tools_used,omitempty"` // Recorded on the snapshot
}

// SnapshotParams selects a snapshot. Snapshot is an ID, a unique ID prefix,
// or a version ("v3") of IdeaID.
type SnapshotParams struct {
	IdeaID   string `json:"idea_id,omitempty"`
	Snapshot string `json:"snapshot"`
}

// UpdateSynthesisParams defines the parameters for update_synthesis.
type UpdateSynthesisParams struct {
	IdeaID  string `json:"idea_id"`
	Content string `json:"content"`
}

// === Structured results ===

// BranchListResponse is the structured result of branch_list.
type BranchListResponse struct {
	IdeaID   string          `json:"idea_id"`
	ActiveID string          `json:"active_id,omitempty"`
	Branches []memory.Branch `json:"branches"`
}

// BranchResponse is the structured result of single-branch tools.
type BranchResponse struct {
	Branch *memory.Branch `json:"branch,omitempty"`
	Folder string         `json:"folder,omitempty"`
}

// DeleteResponse is the structured result of branch_delete.
type DeleteResponse struct {
	Deleted string `json:"deleted"`
}

// FolderResponse is the structured result of branch_active_folder.
type FolderResponse struct {
	IdeaID string `json:"idea_id"`
	Folder string `json:"folder"`
}

// SnapshotListResponse is the structured result of snapshot_list.
type SnapshotListResponse struct {
	IdeaID    string                   `json:"idea_id"`
	Snapshots []memory.SnapshotSummary `json:"snapshots"`
}

// SnapshotResponse is the structured result of snapshot_create and
// snapshot_get.
type SnapshotResponse struct {
	Snapshot *memory.Snapshot `json:"snapshot,omitempty"`
}

// RestoreResponse is the structured result of snapshot_restore.
type RestoreResponse struct {
	Report *snapshot.RestoreReport `json:"report,omitempty"`
}

// SynthesisResponse is the structured result of update_synthesis.
type SynthesisResponse struct {
	IdeaID  string `json:"idea_id"`
	Version int    `json:"version"`
}

// CheckResponse is the structured result of branch_check.
type CheckResponse struct {
	Issues []branch.Issue `json:"issues"`
}
