package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/ideaflow/internal/branch"
	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/snapshot"
)

func TestRenderBranchTree(t *testing.T) {
	tree, err := branch.BuildTree([]memory.Branch{
		{ID: "br-root0001", Label: "Main", FolderName: "main"},
		{ID: "br-week0001", ParentID: "br-root0001", Label: "Weekly view", FolderName: "weekly-view", Depth: 1, IsActive: true},
		{ID: "br-strk0001", ParentID: "br-week0001", Label: "Streaks", FolderName: "streaks", Depth: 2},
		{ID: "br-two00001", ParentID: "br-root0001", Label: "Branch 2", FolderName: "branch-2", Depth: 1},
	})
	require.NoError(t, err)

	out := RenderBranchTree(tree, TreeOptions{ShowFolders: true})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Contains(t, lines[0], "○")
	assert.Contains(t, lines[0], "Main")
	assert.NotContains(t, lines[0], "──", "the root has no guide")

	assert.Contains(t, lines[1], "├── ")
	assert.Contains(t, lines[1], "●", "active branch is filled")
	assert.Contains(t, lines[1], "weekly-view/")

	assert.Contains(t, lines[2], "│   └── ")
	assert.Contains(t, lines[2], "Streaks")

	assert.Contains(t, lines[3], "└── ")
	assert.Contains(t, lines[3], "Branch 2")
	assert.NotContains(t, out, "br-root", "IDs hidden by default")
}

func TestRenderBranchTree_ShowIDs(t *testing.T) {
	tree, err := branch.BuildTree([]memory.Branch{
		{ID: "br-root0001", Label: "Main", FolderName: "main", IsActive: true},
	})
	require.NoError(t, err)

	out := RenderBranchTree(tree, TreeOptions{ShowIDs: true})
	assert.Contains(t, out, "(br-root")
	assert.NotContains(t, out, "main/")
}

func TestRenderBranchTree_Empty(t *testing.T) {
	assert.Contains(t, RenderBranchTree(nil, TreeOptions{}), "No branches yet.")
}

func TestRenderSnapshotTable(t *testing.T) {
	assert.Contains(t, RenderSnapshotTable(nil), "No snapshots yet.")

	out := RenderSnapshotTable([]memory.SnapshotSummary{
		{ID: "snap-0002", Version: 2, FileCount: 3, NodeCount: 1, ToolsUsed: []string{"write_file"}, CreatedAt: time.Now()},
		{ID: "snap-0001", Version: 1, CreatedAt: time.Now()},
	})
	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "v2")
	assert.Contains(t, out, "write_file")
	assert.Contains(t, out, "manual")
	assert.Less(t, strings.Index(out, "v2"), strings.Index(out, "v1"))
}

func TestRenderDiff(t *testing.T) {
	out := RenderDiff(&snapshot.Diff{From: 1, To: 1})
	assert.Contains(t, out, "No changes.")

	out = RenderDiff(&snapshot.Diff{
		From:         1,
		To:           3,
		TextChanged:  true,
		FilesAdded:   []string{"src/app.js"},
		FilesRemoved: []string{"old.html"},
		NodesAdded:   []string{"Database"},
		EdgeDelta:    -1,
	})
	assert.Contains(t, out, "v1 → v3")
	assert.Contains(t, out, "~ text")
	assert.Contains(t, out, "+ src/app.js")
	assert.Contains(t, out, "- old.html")
	assert.Contains(t, out, "+ node Database")
	assert.Contains(t, out, "~ edges -1")
}

func TestIcon(t *testing.T) {
	assert.Contains(t, Icon("●", StyleBranchActive), "●")
}
