package mcp

import (
	"context"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/ideaflow/internal/app"
	"github.com/josephgoksu/ideaflow/internal/config"
	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/project"
)

type fixture struct {
	ctx   context.Context
	fs    afero.Fs
	tools *Tools
	idea  *memory.Idea
}

func setup(t *testing.T) *fixture {
	t.Helper()

	store, err := memory.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fs := afero.NewMemMapFs()
	cfg := &config.Config{}
	cfg.Projects.Dir = "/projects"
	appCtx := app.NewContextWith(store, project.NewMaterializer(fs, nil), nil, cfg, nil)

	ctx := context.Background()
	ideas := app.NewIdeaApp(appCtx)
	idea, err := ideas.CreateIdea(ctx, "Habit tracker")
	require.NoError(t, err)
	_, err = ideas.ScaffoldProject(ctx, idea.ID, "")
	require.NoError(t, err)

	return &fixture{ctx: ctx, fs: fs, tools: NewTools(appCtx), idea: idea}
}

func params[T any](args T) *mcpsdk.CallToolParamsFor[T] {
	return &mcpsdk.CallToolParamsFor[T]{Arguments: args}
}

func text(t *testing.T, content []mcpsdk.Content) string {
	t.Helper()
	require.NotEmpty(t, content)
	tc, ok := content[0].(*mcpsdk.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestBranchTools_Flow(t *testing.T) {
	f := setup(t)

	list, err := f.tools.BranchList(f.ctx, nil, params(IdeaParams{IdeaID: f.idea.ID}))
	require.NoError(t, err)
	require.False(t, list.IsError, text(t, list.Content))
	require.Len(t, list.StructuredContent.Branches, 1)
	rootID := list.StructuredContent.ActiveID
	assert.Equal(t, list.StructuredContent.Branches[0].ID, rootID)

	created, err := f.tools.BranchCreate(f.ctx, nil, params(BranchCreateParams{IdeaID: f.idea.ID, Label: "Alt Idea"}))
	require.NoError(t, err)
	require.False(t, created.IsError, text(t, created.Content))
	child := created.StructuredContent.Branch
	assert.Equal(t, "alt-idea", child.FolderName)
	assert.Equal(t, rootID, child.ParentID)
	assert.True(t, child.IsActive, "a new branch becomes the active branch")
	assert.Equal(t, "/projects/"+f.idea.ID+"/alt-idea", created.StructuredContent.Folder)
	assert.NotContains(t, text(t, created.Content), "not active")

	switched, err := f.tools.BranchSwitch(f.ctx, nil, params(BranchParams{BranchID: rootID}))
	require.NoError(t, err)
	require.False(t, switched.IsError, text(t, switched.Content))
	assert.Equal(t, "/projects/"+f.idea.ID+"/main", switched.StructuredContent.Folder)

	switched, err = f.tools.BranchSwitch(f.ctx, nil, params(BranchParams{BranchID: child.ID}))
	require.NoError(t, err)
	require.False(t, switched.IsError, text(t, switched.Content))
	assert.Equal(t, "/projects/"+f.idea.ID+"/alt-idea", switched.StructuredContent.Folder)

	folder, err := f.tools.BranchActiveFolder(f.ctx, nil, params(IdeaParams{IdeaID: f.idea.ID}))
	require.NoError(t, err)
	assert.Equal(t, switched.StructuredContent.Folder, folder.StructuredContent.Folder)

	renamed, err := f.tools.BranchRename(f.ctx, nil, params(BranchRenameParams{BranchID: child.ID, Label: "Weekly"}))
	require.NoError(t, err)
	require.False(t, renamed.IsError)
	assert.Equal(t, "Weekly", renamed.StructuredContent.Branch.Label)
	assert.Equal(t, "alt-idea", renamed.StructuredContent.Branch.FolderName)

	check, err := f.tools.BranchCheck(f.ctx, nil, params(IdeaParams{IdeaID: f.idea.ID}))
	require.NoError(t, err)
	assert.Empty(t, check.StructuredContent.Issues)

	deleted, err := f.tools.BranchDelete(f.ctx, nil, params(BranchParams{BranchID: child.ID}))
	require.NoError(t, err)
	require.False(t, deleted.IsError, text(t, deleted.Content))

	list, err = f.tools.BranchList(f.ctx, nil, params(IdeaParams{IdeaID: f.idea.ID}))
	require.NoError(t, err)
	assert.Len(t, list.StructuredContent.Branches, 1)
	assert.Equal(t, rootID, list.StructuredContent.ActiveID, "deleting the active branch activates its parent")
}

func TestBranchTools_Errors(t *testing.T) {
	f := setup(t)

	res, err := f.tools.BranchList(f.ctx, nil, params(IdeaParams{}))
	require.NoError(t, err, "tool errors are results, not protocol errors")
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res.Content), "Validation Error")

	res2, err := f.tools.BranchSwitch(f.ctx, nil, params(BranchParams{BranchID: "br-nope"}))
	require.NoError(t, err)
	assert.True(t, res2.IsError)

	list, err := f.tools.BranchList(f.ctx, nil, params(IdeaParams{IdeaID: f.idea.ID}))
	require.NoError(t, err)
	res3, err := f.tools.BranchDelete(f.ctx, nil, params(BranchParams{BranchID: list.StructuredContent.ActiveID}))
	require.NoError(t, err)
	assert.True(t, res3.IsError, "the root branch cannot be deleted")

	res4, err := f.tools.BranchRename(f.ctx, nil, params(BranchRenameParams{BranchID: list.StructuredContent.ActiveID, Label: " "}))
	require.NoError(t, err)
	assert.True(t, res4.IsError)
}

func TestSnapshotTools_Flow(t *testing.T) {
	f := setup(t)
	folder := "/projects/" + f.idea.ID + "/main"
	require.NoError(t, afero.WriteFile(f.fs, folder+"/index.html", []byte("v1"), 0644))

	synth, err := f.tools.UpdateSynthesis(f.ctx, nil, params(UpdateSynthesisParams{IdeaID: f.idea.ID, Content: "First draft"}))
	require.NoError(t, err)
	require.False(t, synth.IsError)
	assert.Equal(t, 1, synth.StructuredContent.Version)

	v1, err := f.tools.SnapshotCreate(f.ctx, nil, params(SnapshotCreateParams{IdeaID: f.idea.ID, ToolsUsed: []string{"write_file"}}))
	require.NoError(t, err)
	require.False(t, v1.IsError, text(t, v1.Content))
	assert.Equal(t, 1, v1.StructuredContent.Snapshot.Version)

	require.NoError(t, afero.WriteFile(f.fs, folder+"/index.html", []byte("v2"), 0644))
	_, err = f.tools.UpdateSynthesis(f.ctx, nil, params(UpdateSynthesisParams{IdeaID: f.idea.ID, Content: "Second draft"}))
	require.NoError(t, err)
	_, err = f.tools.SnapshotCreate(f.ctx, nil, params(SnapshotCreateParams{IdeaID: f.idea.ID}))
	require.NoError(t, err)

	list, err := f.tools.SnapshotList(f.ctx, nil, params(IdeaParams{IdeaID: f.idea.ID}))
	require.NoError(t, err)
	require.Len(t, list.StructuredContent.Snapshots, 2)
	assert.Contains(t, text(t, list.Content), "**v2**")

	got, err := f.tools.SnapshotGet(f.ctx, nil, params(SnapshotParams{IdeaID: f.idea.ID, Snapshot: "v1"}))
	require.NoError(t, err)
	require.False(t, got.IsError, text(t, got.Content))
	assert.Equal(t, v1.StructuredContent.Snapshot.ID, got.StructuredContent.Snapshot.ID)
	assert.Contains(t, text(t, got.Content), "`index.html`")

	restored, err := f.tools.SnapshotRestore(f.ctx, nil, params(SnapshotParams{Snapshot: v1.StructuredContent.Snapshot.ID}))
	require.NoError(t, err)
	require.False(t, restored.IsError, text(t, restored.Content))
	assert.True(t, restored.StructuredContent.Report.TextRestored)

	content, err := afero.ReadFile(f.fs, folder+"/index.html")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(content))
}

func TestSnapshotTools_Errors(t *testing.T) {
	f := setup(t)

	res, err := f.tools.SnapshotGet(f.ctx, nil, params(SnapshotParams{IdeaID: f.idea.ID}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res.Content), "`snapshot`")

	res2, err := f.tools.SnapshotRestore(f.ctx, nil, params(SnapshotParams{IdeaID: f.idea.ID, Snapshot: "v9"}))
	require.NoError(t, err)
	assert.True(t, res2.IsError)

	res3, err := f.tools.UpdateSynthesis(f.ctx, nil, params(UpdateSynthesisParams{IdeaID: f.idea.ID}))
	require.NoError(t, err)
	assert.True(t, res3.IsError)
}

func TestNewServer(t *testing.T) {
	store, err := memory.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	appCtx := app.NewContextWith(store, project.NewMaterializer(afero.NewMemMapFs(), nil), nil, nil, nil)

	assert.NotNil(t, NewServer(appCtx, "test"))
}
