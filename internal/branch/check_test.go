package branch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_Clean(t *testing.T) {
	f := setup(t)
	root := f.root(t)
	_, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "alt")
	require.NoError(t, err)

	issues, err := f.mgr.Check(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCheck_NoBranchesYet(t *testing.T) {
	f := setup(t)

	issues, err := f.mgr.Check(f.ctx, f.idea.ID)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCheckAndRepair(t *testing.T) {
	f := setup(t)
	root := f.root(t)
	alt, err := f.mgr.CreateChildBranch(f.ctx, root.ID, "alt")
	require.NoError(t, err)

	require.NoError(t, f.fs.RemoveAll(projectRoot+"/alt"))
	require.NoError(t, f.fs.MkdirAll(projectRoot+"/scratch", 0755))

	issues, err := f.mgr.Check(f.ctx, f.idea.ID)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, IssueMissingFolder, issues[0].Kind)
	assert.Equal(t, alt.ID, issues[0].BranchID)
	assert.Equal(t, IssueOrphanFolder, issues[1].Kind)
	assert.Equal(t, "scratch", issues[1].Folder)

	fixed, err := f.mgr.Repair(f.ctx, f.idea.ID)
	require.NoError(t, err)
	require.Len(t, fixed, 1)
	assert.Equal(t, "alt", fixed[0].Folder)
	assert.True(t, f.exists("alt"))
	assert.True(t, f.exists("scratch"), "orphan folders are never removed")

	issues, err = f.mgr.Check(f.ctx, f.idea.ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueOrphanFolder, issues[0].Kind)
}

func TestCheck_NoActiveBranch(t *testing.T) {
	f := setup(t)
	root := f.root(t)
	require.NoError(t, f.store.SetBranchActive(f.ctx, root.ID, false))

	issues, err := f.mgr.Check(f.ctx, f.idea.ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueNoActiveBranch, issues[0].Kind)
}
