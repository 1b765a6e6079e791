package mcp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/ideaflow/internal/branch"
	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/project"
	"github.com/josephgoksu/ideaflow/internal/snapshot"
)

func TestFormatBranchTree(t *testing.T) {
	assert.Equal(t, "No branches yet.", FormatBranchTree(nil))

	tree, err := branch.BuildTree([]memory.Branch{
		{ID: "br-root", Label: "Main", FolderName: "main"},
		{ID: "br-a", ParentID: "br-root", Label: "Alt", FolderName: "alt", Depth: 1, IsActive: true},
		{ID: "br-b", ParentID: "br-a", Label: "Deeper", FolderName: "deeper", Depth: 2},
	})
	require.NoError(t, err)

	got := FormatBranchTree(tree)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "## Branches (3)", lines[0])
	assert.Equal(t, "- ○ **Main** `br-root` → `main/`", lines[1])
	assert.Equal(t, "  - ● **Alt** `br-a` → `alt/`", lines[2])
	assert.Equal(t, "    - ○ **Deeper** `br-b` → `deeper/`", lines[3])
}

func TestFormatSnapshot(t *testing.T) {
	text := "Track habits"
	s := &memory.Snapshot{
		ID:        "snap-1",
		Version:   3,
		Synthesis: &text,
		Files:     []project.File{{Path: "src/app.js"}, {Path: "index.html"}},
		Nodes:     []memory.GraphNode{{ID: "n1", Name: "App"}, {ID: "n2", Name: "DB", Provider: "Supabase"}},
		Edges:     []memory.GraphEdge{{SourceID: "n1", TargetID: "n2", Label: "reads"}},
		ToolsUsed: []string{"write_file"},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	got := FormatSnapshot(s)
	assert.Contains(t, got, "## Snapshot v3")
	assert.Contains(t, got, "**Tools**: write_file")
	assert.Less(t, strings.Index(got, "`index.html`"), strings.Index(got, "`src/app.js`"), "files are sorted")
	assert.Contains(t, got, "- DB (Supabase)")
	assert.Contains(t, got, "- App → DB (reads)")

	assert.Contains(t, FormatSnapshot(&memory.Snapshot{Version: 1}), "_(none)_")
}

func TestFormatSnapshotList(t *testing.T) {
	assert.Equal(t, "No snapshots yet.", FormatSnapshotList(nil))

	got := FormatSnapshotList([]memory.SnapshotSummary{
		{ID: "snap-2", Version: 2, FileCount: 3, NodeCount: 1, ToolsUsed: []string{"add_node"}},
		{ID: "snap-1", Version: 1},
	})
	assert.Contains(t, got, "**v2** `snap-2`")
	assert.Contains(t, got, "| add_node")
	assert.Contains(t, got, "| manual")
}

func TestFormatRestore(t *testing.T) {
	assert.Equal(t, "Nothing was restored.", FormatRestore(nil))

	got := FormatRestore(&snapshot.RestoreReport{
		Snapshot:      &memory.Snapshot{Version: 2},
		TextRestored:  true,
		FilesSource:   snapshot.FilesFromDisk,
		FilesRestored: 4,
		SkippedEdges:  1,
	})
	assert.Contains(t, got, "## Restored v2")
	assert.Contains(t, got, "Text: restored")
	assert.Contains(t, got, "Files: Disk (4)")
	assert.Contains(t, got, "Graph: not restored, 1 dangling edges skipped")
}

func TestFormatIssues(t *testing.T) {
	assert.Equal(t, "Branches and folders are consistent.", FormatIssues(nil))

	got := FormatIssues([]branch.Issue{{Kind: branch.IssueMissingFolder, Detail: "alt/ is missing"}})
	assert.Contains(t, got, "**Missing Folder**: alt/ is missing")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
