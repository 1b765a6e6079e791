package mcp

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/josephgoksu/ideaflow/internal/branch"
	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/snapshot"
)

// FormatBranchTree renders an idea's branches as an indented Markdown list.
// The active branch is marked with ●.
func FormatBranchTree(tree *branch.Tree) string {
	if tree == nil || len(tree.Nodes) == 0 {
		return "No branches yet."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Branches (%d)\n", len(tree.Nodes)))
	tree.Walk(func(n *branch.TreeNode, depth int) bool {
		marker := "○"
		if n.Branch.IsActive {
			marker = "●"
		}
		sb.WriteString(fmt.Sprintf("%s- %s **%s** `%s` → `%s/`\n",
			strings.Repeat("  ", depth), marker, n.Branch.Label, n.Branch.ID, n.Branch.FolderName))
		return true
	})
	return strings.TrimSpace(sb.String())
}

// FormatBranch renders one branch.
func FormatBranch(title string, b *memory.Branch, folder string) string {
	if b == nil {
		return "No branch information."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s: %s\n", title, b.Label))
	sb.WriteString(fmt.Sprintf("**ID**: `%s` | **Depth**: %d | **Folder**: `%s`\n", b.ID, b.Depth, b.FolderName))
	if b.ParentID != "" {
		sb.WriteString(fmt.Sprintf("**Parent**: `%s`\n", b.ParentID))
	}
	if folder != "" {
		sb.WriteString(fmt.Sprintf("**Path**: `%s`\n", folder))
	}
	if b.IsActive {
		sb.WriteString("\nThis branch is active.\n")
	}
	return strings.TrimSpace(sb.String())
}

// FormatSnapshotList renders snapshot summaries, newest first.
func FormatSnapshotList(snaps []memory.SnapshotSummary) string {
	if len(snaps) == 0 {
		return "No snapshots yet."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Snapshots (%d)\n", len(snaps)))
	for _, s := range snaps {
		tools := "manual"
		if len(s.ToolsUsed) > 0 {
			tools = strings.Join(s.ToolsUsed, ", ")
		}
		sb.WriteString(fmt.Sprintf("- **v%d** `%s` %s | %d files, %d nodes | %s\n",
			s.Version, s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.FileCount, s.NodeCount, tools))
	}
	return strings.TrimSpace(sb.String())
}

// FormatSnapshot renders a snapshot with its file list and graph.
func FormatSnapshot(s *memory.Snapshot) string {
	if s == nil {
		return "No snapshot information."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Snapshot v%d\n", s.Version))
	sb.WriteString(fmt.Sprintf("**ID**: `%s` | **Created**: %s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04:05")))
	if s.BranchID != "" {
		sb.WriteString(fmt.Sprintf("**Branch**: `%s`\n", s.BranchID))
	}
	if len(s.ToolsUsed) > 0 {
		sb.WriteString(fmt.Sprintf("**Tools**: %s\n", strings.Join(s.ToolsUsed, ", ")))
	}

	sb.WriteString("\n### Synthesis\n")
	if s.Synthesis == nil || *s.Synthesis == "" {
		sb.WriteString("_(none)_\n")
	} else {
		sb.WriteString(truncate(*s.Synthesis, 600))
		sb.WriteString("\n")
	}

	if len(s.Files) > 0 {
		paths := make([]string, 0, len(s.Files))
		for _, f := range s.Files {
			paths = append(paths, f.Path)
		}
		sort.Strings(paths)
		sb.WriteString(fmt.Sprintf("\n### Files (%d)\n", len(paths)))
		for _, p := range paths {
			sb.WriteString(fmt.Sprintf("- `%s`\n", p))
		}
	}

	if len(s.Nodes) > 0 {
		names := make(map[string]string, len(s.Nodes))
		sb.WriteString(fmt.Sprintf("\n### Graph (%d nodes, %d edges)\n", len(s.Nodes), len(s.Edges)))
		for _, n := range s.Nodes {
			names[n.ID] = n.Name
			if n.Provider != "" {
				sb.WriteString(fmt.Sprintf("- %s (%s)\n", n.Name, n.Provider))
			} else {
				sb.WriteString(fmt.Sprintf("- %s\n", n.Name))
			}
		}
		for _, e := range s.Edges {
			sb.WriteString(fmt.Sprintf("- %s → %s", names[e.SourceID], names[e.TargetID]))
			if e.Label != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", e.Label))
			}
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String())
}

// FormatRestore renders the outcome of a restore. Each part is reported
// separately since they can fail independently.
func FormatRestore(r *snapshot.RestoreReport) string {
	if r == nil || r.Snapshot == nil {
		return "Nothing was restored."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Restored v%d\n", r.Snapshot.Version))
	sb.WriteString(fmt.Sprintf("- Text: %s\n", okText(r.TextRestored)))
	sb.WriteString(fmt.Sprintf("- Files: %s (%d)\n", cases.Title(language.English).String(string(r.FilesSource)), r.FilesRestored))
	sb.WriteString(fmt.Sprintf("- Graph: %s", okText(r.GraphRestored)))
	if r.SkippedEdges > 0 {
		sb.WriteString(fmt.Sprintf(", %d dangling edges skipped", r.SkippedEdges))
	}
	sb.WriteString("\n")
	return strings.TrimSpace(sb.String())
}

// FormatIssues renders a branch consistency check.
func FormatIssues(issues []branch.Issue) string {
	if len(issues) == 0 {
		return "Branches and folders are consistent."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Issues (%d)\n", len(issues)))
	for _, is := range issues {
		kind := cases.Title(language.English).String(strings.ReplaceAll(string(is.Kind), "_", " "))
		sb.WriteString(fmt.Sprintf("- **%s**: %s\n", kind, is.Detail))
	}
	return strings.TrimSpace(sb.String())
}

// FormatError returns a Markdown error for the LLM to read and self-correct.
func FormatError(message string) string {
	return fmt.Sprintf("## Error\n\n**Details**: %s", message)
}

// FormatValidationError returns a Markdown error for validation failures.
func FormatValidationError(field, message string) string {
	return fmt.Sprintf("## Validation Error\n\n**Field**: `%s`\n**Details**: %s", field, message)
}

func okText(ok bool) string {
	if ok {
		return "restored"
	}
	return "not restored"
}

// truncate shortens s to maxLen runes, adding "..." when cut.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
