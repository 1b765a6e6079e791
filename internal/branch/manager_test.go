package branch

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/project"
	"github.com/josephgoksu/ideaflow/prompts"
)

const projectRoot = "/projects/habit"

type fakeCompactor struct {
	summary string
	err     error
	calls   int
}

func (f *fakeCompactor) Compact(ctx context.Context, conversationID string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

type fixture struct {
	ctx       context.Context
	store     *memory.SQLiteStore
	fs        afero.Fs
	compactor *fakeCompactor
	mgr       *Manager
	idea      *memory.Idea
}

func setup(t *testing.T) *fixture {
	t.Helper()

	store, err := memory.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	idea, err := store.CreateIdea(ctx, memory.Idea{Title: "Habit tracker", ProjectPath: projectRoot})
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	compactor := &fakeCompactor{summary: "They chose Supabase for storage."}
	mgr := NewManager(store, project.NewMaterializer(fs, nil), compactor, nil, Options{PromptFs: fs})

	return &fixture{ctx: ctx, store: store, fs: fs, compactor: compactor, mgr: mgr, idea: idea}
}

func (f *fixture) root(t *testing.T) *memory.Branch {
	t.Helper()
	root, err := f.mgr.EnsureRootBranch(f.ctx, f.idea.ID)
	require.NoError(t, err)
	return root
}

func (f *fixture) write(t *testing.T, folder, rel, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(f.fs, projectRoot+"/"+folder+"/"+rel, []byte(content), 0644))
}

func (f *fixture) exists(path string) bool {
	ok, _ := afero.Exists(f.fs, projectRoot+"/"+path)
	return ok
}

func (f *fixture) text(t *testing.T) string {
	t.Helper()
	text, err := f.store.GetSynthesisContent(f.ctx, f.idea.ID)
	require.NoError(t, err)
	if text == nil {
		return ""
	}
	return *text
}

func (f *fixture) assertSingleActive(t *testing.T, wantID string) {
	t.Helper()
	branches, err := f.mgr.GetBranches(f.ctx, f.idea.ID)
	require.NoError(t, err)
	var active []string
	for _, b := range branches {
		if b.IsActive {
			active = append(active, b.ID)
		}
	}
	assert.Equal(t, []string{wantID}, active)
}

func TestEnsureRootBranch(t *testing.T) {
	f := setup(t)

	root := f.root(t)
	assert.True(t, root.IsRoot())
	assert.True(t, root.IsActive)
	assert.Equal(t, project.DefaultFolderName, root.FolderName)
	assert.Equal(t, 0, root.Depth)
	assert.NotEmpty(t, root.ConversationID)
	assert.True(t, f.exists("main"))

	idea, err := f.store.GetIdea(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ConversationID, idea.ConversationID, "the idea is linked to the new conversation")

	again := f.root(t)
	assert.Equal(t, root.ID, again.ID)

	branches, err := f.mgr.GetBranches(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Len(t, branches, 1)
}

func TestEnsureRootBranch_ReusesIdeaConversation(t *testing.T) {
	f := setup(t)

	conv, err := f.store.CreateConversation(f.ctx, memory.NewConversation{IdeaID: f.idea.ID})
	require.NoError(t, err)
	require.NoError(t, f.store.SetIdeaConversation(f.ctx, f.idea.ID, conv.ID))

	root := f.root(t)
	assert.Equal(t, conv.ID, root.ConversationID)
}

func TestEnsureRootBranch_UnknownIdea(t *testing.T) {
	f := setup(t)

	_, err := f.mgr.EnsureRootBranch(f.ctx, "idea-missing")
	assert.ErrorIs(t, err, memory.ErrNotFound)
}

func TestCreateChildBranch_Scenario(t *testing.T) {
	f := setup(t)
	root := f.root(t)
	f.write(t, "main", "index.html", "<h1>hi</h1>")
	f.write(t, "main", "node_modules/react/index.js", "react")

	child, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "alt")
	require.NoError(t, err)

	assert.Equal(t, "alt", child.FolderName)
	assert.Equal(t, "alt", child.Label)
	assert.Equal(t, 1, child.Depth)
	assert.Equal(t, root.ID, child.ParentID)
	assert.True(t, child.IsActive)

	root, err = f.mgr.GetBranch(f.ctx, root.ID)
	require.NoError(t, err)
	assert.False(t, root.IsActive)

	assert.True(t, f.exists("alt/index.html"))
	assert.True(t, f.exists("alt/node_modules/react/index.js"), "installed dependencies are copied")
	assert.True(t, f.exists("main/index.html"), "the parent folder is untouched")

	dir, err := f.mgr.ActiveBranchFolderPath(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Equal(t, projectRoot+"/alt", dir)

	f.assertSingleActive(t, child.ID)
}

func TestCreateChildBranch_InheritsAndIsolatesState(t *testing.T) {
	f := setup(t)
	root := f.root(t)

	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "root text"))
	node, err := f.store.CreateNode(f.ctx, memory.GraphNode{IdeaID: f.idea.ID, Name: "API"})
	require.NoError(t, err)

	child, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "Alt Idea")
	require.NoError(t, err)
	assert.Equal(t, "alt-idea", child.FolderName)

	assert.Equal(t, "root text", f.text(t))
	nodes, err := f.store.ListNodes(f.ctx, f.idea.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, node.ID, nodes[0].ID, "node identifiers carry over")

	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "child text"))
	_, err = f.store.CreateNode(f.ctx, memory.GraphNode{IdeaID: f.idea.ID, Name: "Queue"})
	require.NoError(t, err)

	_, err = f.mgr.SwitchToBranch(f.ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, "root text", f.text(t))
	nodes, err = f.store.ListNodes(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)

	idea, err := f.store.GetIdea(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ConversationID, idea.ConversationID, "switching re-links the conversation")

	_, err = f.mgr.SwitchToBranch(f.ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "child text", f.text(t))
	nodes, err = f.store.ListNodes(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	f.assertSingleActive(t, child.ID)
}

func TestCreateChildBranch_FromInactiveParentUsesFrozenState(t *testing.T) {
	f := setup(t)
	root := f.root(t)
	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "root text"))

	_, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "first")
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "first text"))

	second, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, "root text", f.text(t))
	assert.Equal(t, 1, second.Depth)
}

func TestCreateChildBranch_UniqueFolderNames(t *testing.T) {
	f := setup(t)
	root := f.root(t)
	require.NoError(t, f.fs.MkdirAll(projectRoot+"/alt-3", 0755))

	var folders []string
	for i := 0; i < 3; i++ {
		b, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "alt")
		require.NoError(t, err)
		folders = append(folders, b.FolderName)
	}
	assert.Equal(t, []string{"alt", "alt-2", "alt-4"}, folders)
}

func TestCreateChildBranch_DefaultLabel(t *testing.T) {
	f := setup(t)
	root := f.root(t)

	b, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "  ")
	require.NoError(t, err)
	assert.Equal(t, "Branch 1", b.Label)
	assert.Equal(t, "branch-1", b.FolderName)
}

func TestCreateChildBranch_NoProjectPath(t *testing.T) {
	f := setup(t)
	root := f.root(t)
	require.NoError(t, f.store.SetProjectPath(f.ctx, f.idea.ID, ""))

	_, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "alt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoProjectPath))

	branches, err := f.mgr.GetBranches(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Len(t, branches, 1)
	f.assertSingleActive(t, root.ID)
}

func TestCreateChildBranch_MissingParent(t *testing.T) {
	f := setup(t)
	f.root(t)

	_, err := f.mgr.CreateChildBranch(f.ctx, "br-missing", "alt")
	assert.ErrorIs(t, err, memory.ErrNotFound)
	assert.False(t, f.exists("alt"))
}

func TestCreateChildBranch_CompactionCache(t *testing.T) {
	f := setup(t)
	root := f.root(t)
	_, err := f.store.AddMessage(f.ctx, root.ConversationID, memory.RoleUser, "Use Supabase")
	require.NoError(t, err)
	_, err = f.store.AddMessage(f.ctx, root.ConversationID, memory.RoleAssistant, "Done")
	require.NoError(t, err)

	first, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "one")
	require.NoError(t, err)
	_, err = f.mgr.CreateChildBranch(f.ctx, root.ID, "two")
	require.NoError(t, err)
	assert.Equal(t, 1, f.compactor.calls, "unchanged parent conversation is compacted once")

	conv, err := f.store.GetConversation(f.ctx, first.ConversationID)
	require.NoError(t, err)
	assert.Contains(t, conv.SystemPrompt, "They chose Supabase for storage.")

	root, err = f.mgr.GetBranch(f.ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, "They chose Supabase for storage.", root.CompactedSummary)
	assert.Equal(t, 2, root.SummaryMessageCount)

	_, err = f.store.AddMessage(f.ctx, root.ConversationID, memory.RoleUser, "Actually use Postgres")
	require.NoError(t, err)
	_, err = f.mgr.CreateChildBranch(f.ctx, root.ID, "three")
	require.NoError(t, err)
	assert.Equal(t, 2, f.compactor.calls, "a new message invalidates the cache")
}

func TestCreateChildBranch_CompactionFailureUsesPlaceholder(t *testing.T) {
	f := setup(t)
	root := f.root(t)
	_, err := f.store.AddMessage(f.ctx, root.ConversationID, memory.RoleUser, "hello")
	require.NoError(t, err)
	f.compactor.err = errors.New("provider unavailable")

	child, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "alt")
	require.NoError(t, err)
	assert.True(t, child.IsActive)

	conv, err := f.store.GetConversation(f.ctx, child.ConversationID)
	require.NoError(t, err)
	assert.Contains(t, conv.SystemPrompt, SummaryUnavailable)

	root, err = f.mgr.GetBranch(f.ctx, root.ID)
	require.NoError(t, err)
	assert.Empty(t, root.CompactedSummary, "placeholders are not cached")

	_, err = f.mgr.CreateChildBranch(f.ctx, root.ID, "again")
	require.NoError(t, err)
	assert.Equal(t, 2, f.compactor.calls)
}

func TestCreateChildBranch_EmptyConversationSkipsCompaction(t *testing.T) {
	f := setup(t)
	root := f.root(t)

	child, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "alt")
	require.NoError(t, err)
	assert.Zero(t, f.compactor.calls)

	conv, err := f.store.GetConversation(f.ctx, child.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, prompts.BranchSeedEmptyPrompt, conv.SystemPrompt)
}

func TestCreateChildBranch_CustomSeedPrompt(t *testing.T) {
	f := setup(t)
	require.NoError(t, afero.WriteFile(f.fs, "/templates/branch_seed_prompt.txt", []byte("Custom seed: %s"), 0644))
	f.mgr.opts.TemplatesDir = "/templates"

	root := f.root(t)
	_, err := f.store.AddMessage(f.ctx, root.ConversationID, memory.RoleUser, "hello")
	require.NoError(t, err)

	child, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "alt")
	require.NoError(t, err)

	conv, err := f.store.GetConversation(f.ctx, child.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "Custom seed: They chose Supabase for storage.", conv.SystemPrompt)
}

func TestSwitchToBranch_ActiveIsNoop(t *testing.T) {
	f := setup(t)
	root := f.root(t)
	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "text"))

	before, err := f.store.GetIdea(f.ctx, f.idea.ID)
	require.NoError(t, err)

	got, err := f.mgr.SwitchToBranch(f.ctx, root.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	after, err := f.store.GetIdea(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Equal(t, before.SynthesisVersion, after.SynthesisVersion)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)

	stored, err := f.mgr.GetBranch(f.ctx, root.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Synthesis, "nothing was frozen")
}

func TestSwitchToBranch_Missing(t *testing.T) {
	f := setup(t)
	root := f.root(t)

	_, err := f.mgr.SwitchToBranch(f.ctx, "br-missing")
	assert.ErrorIs(t, err, memory.ErrNotFound)
	f.assertSingleActive(t, root.ID)
}

// flakyGraphStore makes ReplaceGraph fail while failures is positive.
type flakyGraphStore struct {
	*memory.SQLiteStore
	failures int
}

func (s *flakyGraphStore) ReplaceGraph(ctx context.Context, ideaID string, state memory.GraphState) (int, error) {
	if s.failures > 0 {
		s.failures--
		return 0, errors.New("database is locked")
	}
	return s.SQLiteStore.ReplaceGraph(ctx, ideaID, state)
}

func TestSwitchToBranch_FailedRestoreKeepsOutgoingActive(t *testing.T) {
	f := setup(t)
	root := f.root(t)
	child, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "alt")
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "child text"))

	flaky := &flakyGraphStore{SQLiteStore: f.store, failures: 1}
	mgr := NewManager(flaky, project.NewMaterializer(f.fs, nil), f.compactor, nil, Options{PromptFs: f.fs})

	_, err = mgr.SwitchToBranch(f.ctx, root.ID)
	require.Error(t, err)

	f.assertSingleActive(t, child.ID)
	assert.Equal(t, "child text", f.text(t), "the outgoing branch's state is put back")
}

func TestDeleteBranch_RootIsRejected(t *testing.T) {
	f := setup(t)
	root := f.root(t)
	_, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "alt")
	require.NoError(t, err)

	err = f.mgr.DeleteBranch(f.ctx, root.ID)
	assert.ErrorIs(t, err, ErrRootBranch)

	branches, err := f.mgr.GetBranches(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Len(t, branches, 2)
	assert.True(t, f.exists("main"))
}

func TestDeleteBranch_Cascade(t *testing.T) {
	f := setup(t)
	root := f.root(t)

	a, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "a")
	require.NoError(t, err)
	b, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "b")
	require.NoError(t, err)
	a1, err := f.mgr.CreateChildBranch(f.ctx, a.ID, "a1")
	require.NoError(t, err)
	a2, err := f.mgr.CreateChildBranch(f.ctx, a1.ID, "a2")
	require.NoError(t, err)
	f.assertSingleActive(t, a2.ID)

	require.NoError(t, f.mgr.DeleteBranch(f.ctx, a.ID))

	branches, err := f.mgr.GetBranches(f.ctx, f.idea.ID)
	require.NoError(t, err)
	var ids []string
	for _, br := range branches {
		ids = append(ids, br.ID)
	}
	assert.ElementsMatch(t, []string{root.ID, b.ID}, ids)
	f.assertSingleActive(t, root.ID)

	for _, gone := range []*memory.Branch{a, a1, a2} {
		assert.False(t, f.exists(gone.FolderName), "folder %s removed", gone.FolderName)
		_, err := f.store.GetConversation(f.ctx, gone.ConversationID)
		assert.ErrorIs(t, err, memory.ErrNotFound)
	}
	assert.True(t, f.exists("b"))
	assert.True(t, f.exists("main"))
}

func TestDeleteBranch_ActiveSwitchesToParent(t *testing.T) {
	f := setup(t)
	root := f.root(t)
	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "root text"))

	child, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "alt")
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateSynthesis(f.ctx, f.idea.ID, "alt text"))

	require.NoError(t, f.mgr.DeleteBranch(f.ctx, child.ID))
	f.assertSingleActive(t, root.ID)
	assert.Equal(t, "root text", f.text(t))

	dir, err := f.mgr.ActiveBranchFolderPath(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Equal(t, projectRoot+"/main", dir)
}

func TestDeleteBranch_InactiveKeepsActive(t *testing.T) {
	f := setup(t)
	root := f.root(t)
	alt, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "alt")
	require.NoError(t, err)
	other, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "other")
	require.NoError(t, err)

	require.NoError(t, f.mgr.DeleteBranch(f.ctx, alt.ID))
	f.assertSingleActive(t, other.ID)
}

func TestRenameBranch_KeepsFolder(t *testing.T) {
	f := setup(t)
	root := f.root(t)
	child, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "alt")
	require.NoError(t, err)

	renamed, err := f.mgr.RenameBranch(f.ctx, child.ID, "Serverless version")
	require.NoError(t, err)
	assert.Equal(t, "Serverless version", renamed.Label)
	assert.Equal(t, "alt", renamed.FolderName)

	_, err = f.mgr.RenameBranch(f.ctx, child.ID, " ")
	assert.Error(t, err)
}

func TestActiveBranchFolderPath(t *testing.T) {
	f := setup(t)

	dir, err := f.mgr.ActiveBranchFolderPath(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Equal(t, projectRoot+"/main", dir, "falls back to the default folder")

	bare, err := f.store.CreateIdea(f.ctx, memory.Idea{Title: "No project"})
	require.NoError(t, err)
	_, err = f.mgr.ActiveBranchFolderPath(f.ctx, bare.ID)
	assert.ErrorIs(t, err, ErrNoProjectPath)

	active, err := f.mgr.GetActiveBranch(f.ctx, bare.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}
