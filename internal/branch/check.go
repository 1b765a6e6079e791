package branch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/josephgoksu/ideaflow/internal/project"
)

// IssueKind classifies a mismatch between branch rows and folders on disk.
type IssueKind string

// Issue kinds reported by Check.
const (
	IssueMissingFolder  IssueKind = "missing_folder" // row without a folder
	IssueOrphanFolder   IssueKind = "orphan_folder"  // folder without a row
	IssueNoActiveBranch IssueKind = "no_active_branch"
	IssueMultipleActive IssueKind = "multiple_active_branches"
	IssueMissingRoot    IssueKind = "missing_root"
)

// Issue is one finding of Check.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	BranchID string    `json:"branchId,omitempty"`
	Folder   string    `json:"folder,omitempty"`
	Detail   string    `json:"detail"`
}

// Check compares an idea's branch rows with the folders under its project
// root. Database rows and folders are not written transactionally together,
// so a crash mid-operation can leave them out of step. Check only reports.
func (m *Manager) Check(ctx context.Context, ideaID string) ([]Issue, error) {
	idea, err := m.store.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	branches, err := m.store.ListBranches(ctx, ideaID)
	if err != nil {
		return nil, err
	}

	issues := []Issue{}
	if len(branches) == 0 {
		return issues, nil
	}

	roots, active := 0, 0
	for _, b := range branches {
		if b.IsRoot() {
			roots++
		}
		if b.IsActive {
			active++
		}
	}
	if roots == 0 {
		issues = append(issues, Issue{Kind: IssueMissingRoot, Detail: "no branch without a parent"})
	}
	switch {
	case active == 0:
		issues = append(issues, Issue{Kind: IssueNoActiveBranch, Detail: "no branch is active"})
	case active > 1:
		issues = append(issues, Issue{Kind: IssueMultipleActive, Detail: fmt.Sprintf("%d branches are active", active)})
	}

	if idea.ProjectPath == "" {
		return issues, nil
	}

	known := make(map[string]bool, len(branches))
	for _, b := range branches {
		known[b.FolderName] = true
		exists, err := m.files.Exists(project.FolderPath(idea.ProjectPath, b.FolderName))
		if err != nil {
			return nil, err
		}
		if !exists {
			issues = append(issues, Issue{
				Kind:     IssueMissingFolder,
				BranchID: b.ID,
				Folder:   b.FolderName,
				Detail:   fmt.Sprintf("branch %q has no folder", b.Label),
			})
		}
	}

	dirs, err := m.files.ListFolders(idea.ProjectPath)
	if err != nil {
		return nil, err
	}
	for _, d := range dirs {
		if !known[d] {
			issues = append(issues, Issue{
				Kind:   IssueOrphanFolder,
				Folder: d,
				Detail: "folder does not belong to any branch",
			})
		}
	}
	return issues, nil
}

// Repair recreates missing branch folders as empty folders and returns the
// issues it fixed. Orphan folders are left alone since they may hold user
// files.
func (m *Manager) Repair(ctx context.Context, ideaID string) ([]Issue, error) {
	issues, err := m.Check(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	idea, err := m.store.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}

	fixed := []Issue{}
	for _, is := range issues {
		if is.Kind != IssueMissingFolder {
			continue
		}
		if err := m.files.EnsureFolder(project.FolderPath(idea.ProjectPath, is.Folder)); err != nil {
			return fixed, err
		}
		m.logger.Info("recreated branch folder",
			zap.String("idea_id", ideaID), zap.String("folder", is.Folder))
		fixed = append(fixed, is)
	}
	return fixed, nil
}
