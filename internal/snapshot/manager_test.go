package snapshot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/project"
)

type fakeFolders struct {
	dir      string
	branchID string
	err      error
}

func (f *fakeFolders) GetActiveBranch(ctx context.Context, ideaID string) (*memory.Branch, error) {
	if f.branchID == "" {
		return nil, nil
	}
	return &memory.Branch{ID: f.branchID, IdeaID: ideaID, IsActive: true}, nil
}

func (f *fakeFolders) ActiveBranchFolderPath(ctx context.Context, ideaID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.dir, nil
}

type fixture struct {
	ctx     context.Context
	store   *memory.SQLiteStore
	fs      afero.Fs
	folders *fakeFolders
	mgr     *Manager
	idea    *memory.Idea
}

func setup(t *testing.T) *fixture {
	t.Helper()

	store, err := memory.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	idea, err := store.CreateIdea(ctx, memory.Idea{Title: "Habit tracker"})
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	folders := &fakeFolders{dir: "/projects/habit/main", branchID: "br-00000000"}
	require.NoError(t, fs.MkdirAll(folders.dir, 0755))

	return &fixture{
		ctx:     ctx,
		store:   store,
		fs:      fs,
		folders: folders,
		mgr:     NewManager(store, project.NewMaterializer(fs, nil), folders, nil),
		idea:    idea,
	}
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(f.fs, f.folders.dir+"/"+rel, []byte(content), 0644))
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	b, err := afero.ReadFile(f.fs, f.folders.dir+"/"+rel)
	require.NoError(t, err)
	return string(b)
}

func (f *fixture) exists(rel string) bool {
	ok, _ := afero.Exists(f.fs, f.folders.dir+"/"+rel)
	return ok
}

func TestCreateAndRestore_TextScenario(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "v1 text"))
	v1, err := f.mgr.CreateSnapshot(f.ctx, f.idea.ID, []string{"update_synthesis"})
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, "br-00000000", v1.BranchID)

	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "v2 text"))
	v2, err := f.mgr.CreateSnapshot(f.ctx, f.idea.ID, []string{"update_synthesis"})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)

	report, err := f.mgr.RestoreSnapshot(f.ctx, v1.ID)
	require.NoError(t, err)
	assert.True(t, report.TextRestored)

	text, err := f.store.GetSynthesisContent(f.ctx, f.idea.ID)
	require.NoError(t, err)
	require.NotNil(t, text)
	assert.Equal(t, "v1 text", *text)
}

func TestRestore_RoundTrip(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "original"))
	api, err := f.store.CreateNode(f.ctx, memory.GraphNode{IdeaID: f.idea.ID, Name: "API", Provider: "Vercel", Pricing: map[string]any{"free": true}})
	require.NoError(t, err)
	db, err := f.store.CreateNode(f.ctx, memory.GraphNode{IdeaID: f.idea.ID, Name: "DB", Provider: "Supabase"})
	require.NoError(t, err)
	_, err = f.store.CreateEdge(f.ctx, memory.GraphEdge{SourceID: api.ID, TargetID: db.ID, Label: "queries"})
	require.NoError(t, err)
	f.write(t, "index.html", "<h1>v1</h1>")
	f.write(t, "src/app.js", "console.log(1)")
	f.write(t, "node_modules/lib/index.js", "dep")

	wantGraph, err := f.store.GetFullState(f.ctx, f.idea.ID)
	require.NoError(t, err)

	snap, err := f.mgr.CreateSnapshot(f.ctx, f.idea.ID, []string{"write_file"})
	require.NoError(t, err)
	assert.Equal(t, []project.File{
		{Path: "index.html", Content: "<h1>v1</h1>"},
		{Path: "src/app.js", Content: "console.log(1)"},
	}, snap.Files)
	assert.True(t, f.exists("versions/v1/index.html"), "version folder is written")

	// Mutate everything.
	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "rewritten"))
	require.NoError(t, f.store.DeleteNode(f.ctx, db.ID))
	_, err = f.store.CreateNode(f.ctx, memory.GraphNode{IdeaID: f.idea.ID, Name: "Queue"})
	require.NoError(t, err)
	f.write(t, "index.html", "<h1>v2</h1>")
	f.write(t, "extra.txt", "new")
	require.NoError(t, f.fs.RemoveAll(f.folders.dir+"/src"))

	report, err := f.mgr.RestoreSnapshot(f.ctx, snap.ID)
	require.NoError(t, err)
	assert.True(t, report.TextRestored)
	assert.True(t, report.GraphRestored)
	assert.Equal(t, FilesFromDisk, report.FilesSource)
	assert.Equal(t, 2, report.FilesRestored)
	assert.Zero(t, report.SkippedEdges)

	text, err := f.store.GetSynthesisContent(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", *text)

	gotGraph, err := f.store.GetFullState(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Equal(t, wantGraph, gotGraph, "node and edge identifiers survive the restore")

	assert.Equal(t, "<h1>v1</h1>", f.read(t, "index.html"))
	assert.Equal(t, "console.log(1)", f.read(t, "src/app.js"))
	assert.False(t, f.exists("extra.txt"))
	assert.True(t, f.exists("node_modules/lib/index.js"), "dependencies are left in place")
	assert.True(t, f.exists("versions/v1/index.html"), "version history is left in place")
}

func TestRestore_FallsBackToStoredFiles(t *testing.T) {
	f := setup(t)

	f.write(t, "index.html", "<h1>stored</h1>")
	snap, err := f.mgr.CreateSnapshot(f.ctx, f.idea.ID, []string{"write_file"})
	require.NoError(t, err)

	require.NoError(t, f.fs.RemoveAll(f.folders.dir+"/versions"))
	f.write(t, "index.html", "<h1>changed</h1>")

	report, err := f.mgr.RestoreSnapshot(f.ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, FilesFromDatabase, report.FilesSource)
	assert.Equal(t, "<h1>stored</h1>", f.read(t, "index.html"))
}

func TestRestore_BringsBackBinaryAndOversizedFiles(t *testing.T) {
	f := setup(t)

	logo := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
	big := strings.Repeat("a", project.MaxFileSize+1)
	f.write(t, "index.html", "<h1>v1</h1>")
	f.write(t, "assets/logo.png", logo)
	f.write(t, "data.csv", big)

	snap, err := f.mgr.CreateSnapshot(f.ctx, f.idea.ID, []string{"write_file"})
	require.NoError(t, err)
	assert.Equal(t, []project.File{{Path: "index.html", Content: "<h1>v1</h1>"}}, snap.Files,
		"the stored list holds text files only")
	assert.True(t, f.exists("versions/v1/assets/logo.png"))
	assert.True(t, f.exists("versions/v1/data.csv"))

	f.write(t, "index.html", "<h1>v2</h1>")
	require.NoError(t, f.fs.RemoveAll(f.folders.dir+"/assets"))
	f.write(t, "new.png", "\x00\x01")

	report, err := f.mgr.RestoreSnapshot(f.ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, FilesFromDisk, report.FilesSource)
	assert.Equal(t, "<h1>v1</h1>", f.read(t, "index.html"))
	assert.Equal(t, logo, f.read(t, "assets/logo.png"))
	assert.Equal(t, big, f.read(t, "data.csv"))
	assert.False(t, f.exists("new.png"), "files added after the version are removed")
}

func TestRestore_FallbackKeepsUntrackedFiles(t *testing.T) {
	f := setup(t)

	logo := "\x89PNG\x00"
	f.write(t, "index.html", "<h1>stored</h1>")
	f.write(t, "logo.png", logo)
	snap, err := f.mgr.CreateSnapshot(f.ctx, f.idea.ID, []string{"write_file"})
	require.NoError(t, err)

	require.NoError(t, f.fs.RemoveAll(f.folders.dir+"/versions"))
	f.write(t, "index.html", "<h1>changed</h1>")
	f.write(t, "src/extra.js", "later")

	report, err := f.mgr.RestoreSnapshot(f.ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, FilesFromDatabase, report.FilesSource)
	assert.Equal(t, "<h1>stored</h1>", f.read(t, "index.html"))
	assert.Equal(t, logo, f.read(t, "logo.png"), "the stored list cannot recreate binaries, so they stay")
	assert.False(t, f.exists("src/extra.js"))
	assert.False(t, f.exists("src"), "emptied directories are pruned")
}

func TestRestore_NotFoundChangesNothing(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "keep me"))
	f.write(t, "index.html", "keep")

	_, err := f.mgr.RestoreSnapshot(f.ctx, "snap-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, memory.ErrNotFound)

	text, err := f.store.GetSynthesisContent(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep me", *text)
	assert.Equal(t, "keep", f.read(t, "index.html"))
}

func TestRestore_NoFolderStillRestoresTextAndGraph(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "before"))
	snap, err := f.mgr.CreateSnapshot(f.ctx, f.idea.ID, []string{"update_synthesis"})
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "after"))

	f.folders.err = project.ErrNoProjectPath

	report, err := f.mgr.RestoreSnapshot(f.ctx, snap.ID)
	require.NoError(t, err)
	assert.True(t, report.TextRestored)
	assert.True(t, report.GraphRestored)
	assert.Equal(t, FilesNone, report.FilesSource)
}

func TestCreateSnapshot_WithoutProjectHasNoFiles(t *testing.T) {
	f := setup(t)
	f.folders.err = project.ErrNoProjectPath

	snap, err := f.mgr.CreateSnapshot(f.ctx, f.idea.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, snap.Files)
	assert.Equal(t, []string{}, snap.ToolsUsed)
}

func TestCreateSnapshot_MissingFolderHasNoFiles(t *testing.T) {
	f := setup(t)
	f.folders.dir = "/projects/habit/gone"

	snap, err := f.mgr.CreateSnapshot(f.ctx, f.idea.ID, []string{"add_node"})
	require.NoError(t, err)
	assert.Empty(t, snap.Files)

	exists, _ := afero.DirExists(f.fs, "/projects/habit/gone")
	assert.False(t, exists, "a missing branch folder is not created")
}

func TestCreateSnapshot_UnknownIdea(t *testing.T) {
	f := setup(t)

	_, err := f.mgr.CreateSnapshot(f.ctx, "idea-missing", nil)
	assert.True(t, errors.Is(err, memory.ErrNotFound))
}

func TestVersionsAreMonotonicAcrossBranches(t *testing.T) {
	f := setup(t)

	dirs := []string{"/projects/habit/main", "/projects/habit/alt", "/projects/habit/main"}
	for i, dir := range dirs {
		f.folders.dir = dir
		f.folders.branchID = "br-" + dir[len("/projects/habit/"):]
		require.NoError(t, f.fs.MkdirAll(dir, 0755))

		snap, err := f.mgr.CreateSnapshot(f.ctx, f.idea.ID, []string{"write_file"})
		require.NoError(t, err)
		assert.Equal(t, i+1, snap.Version)
	}

	list, err := f.mgr.GetSnapshots(f.ctx, f.idea.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, snap := range list {
		assert.Equal(t, 3-i, snap.Version, "newest first without gaps")
	}

	byVersion, err := f.mgr.GetSnapshotByVersion(f.ctx, f.idea.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "br-alt", byVersion.BranchID)

	byID, err := f.mgr.GetSnapshot(f.ctx, byVersion.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, byID.Version)
}

func TestAfterTurn(t *testing.T) {
	f := setup(t)

	snap, err := f.mgr.AfterTurn(f.ctx, f.idea.ID, []string{"search_web", "read_file"})
	require.NoError(t, err)
	assert.Nil(t, snap, "read-only turns are not captured")

	snap, err = f.mgr.AfterTurn(f.ctx, f.idea.ID, []string{"read_file", "add_node", "add_node", "write_file"})
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, []string{"read_file", "add_node", "write_file"}, snap.ToolsUsed)
}

func TestDiff(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "one"))
	_, err := f.store.CreateNode(f.ctx, memory.GraphNode{IdeaID: f.idea.ID, Name: "Auth"})
	require.NoError(t, err)
	f.write(t, "a.txt", "a")
	f.write(t, "b.txt", "b")
	_, err = f.mgr.CreateSnapshot(f.ctx, f.idea.ID, []string{"write_file"})
	require.NoError(t, err)

	_, err = f.store.CreateNode(f.ctx, memory.GraphNode{IdeaID: f.idea.ID, Name: "Billing"})
	require.NoError(t, err)
	f.write(t, "b.txt", "B")
	f.write(t, "c.txt", "c")
	require.NoError(t, f.fs.Remove(f.folders.dir+"/a.txt"))
	_, err = f.mgr.CreateSnapshot(f.ctx, f.idea.ID, []string{"write_file"})
	require.NoError(t, err)

	d, err := f.mgr.Diff(f.ctx, f.idea.ID, 1, 2)
	require.NoError(t, err)
	assert.False(t, d.TextChanged)
	assert.Equal(t, []string{"c.txt"}, d.FilesAdded)
	assert.Equal(t, []string{"a.txt"}, d.FilesRemoved)
	assert.Equal(t, []string{"b.txt"}, d.FilesChanged)
	assert.Equal(t, []string{"Billing"}, d.NodesAdded)
	assert.Empty(t, d.NodesRemoved)
	assert.False(t, d.Empty())

	same, err := f.mgr.Diff(f.ctx, f.idea.ID, 2, 2)
	require.NoError(t, err)
	assert.True(t, same.Empty())

	_, err = f.mgr.Diff(f.ctx, f.idea.ID, 1, 9)
	assert.ErrorIs(t, err, memory.ErrNotFound)
}
