package branch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/ideaflow/internal/memory"
)

func TestBuildTree(t *testing.T) {
	branches := []memory.Branch{
		{ID: "br-root", IdeaID: "idea-1", Label: "Main"},
		{ID: "br-a", IdeaID: "idea-1", ParentID: "br-root", Label: "a", Depth: 1},
		{ID: "br-b", IdeaID: "idea-1", ParentID: "br-root", Label: "b", Depth: 1, IsActive: true},
		{ID: "br-a1", IdeaID: "idea-1", ParentID: "br-a", Label: "a1", Depth: 2},
	}

	tree, err := BuildTree(branches)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Root)
	assert.Equal(t, -1, tree.Nodes[0].Parent)
	assert.Equal(t, []int{1, 2}, tree.Nodes[0].Children)

	type visit struct {
		label string
		depth int
	}
	var visits []visit
	tree.Walk(func(n *TreeNode, depth int) bool {
		visits = append(visits, visit{n.Branch.Label, depth})
		return true
	})
	assert.Equal(t, []visit{{"Main", 0}, {"a", 1}, {"a1", 2}, {"b", 1}}, visits)

	require.NotNil(t, tree.Active())
	assert.Equal(t, "br-b", tree.Active().Branch.ID)
	assert.Nil(t, tree.Find("br-missing"))

	var ids []string
	for _, b := range tree.Subtree("br-a") {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"br-a", "br-a1"}, ids)
}

func TestBuildTree_WalkCanPrune(t *testing.T) {
	tree, err := BuildTree([]memory.Branch{
		{ID: "br-root"},
		{ID: "br-a", ParentID: "br-root"},
		{ID: "br-a1", ParentID: "br-a"},
	})
	require.NoError(t, err)

	var seen []string
	tree.Walk(func(n *TreeNode, _ int) bool {
		seen = append(seen, n.Branch.ID)
		return n.Branch.ID != "br-a"
	})
	assert.Equal(t, []string{"br-root", "br-a"}, seen)
}

func TestBuildTree_Invalid(t *testing.T) {
	_, err := BuildTree([]memory.Branch{{ID: "br-a", ParentID: "br-gone"}, {ID: "br-root"}})
	assert.Error(t, err)

	_, err = BuildTree([]memory.Branch{{ID: "br-1"}, {ID: "br-2"}})
	assert.Error(t, err)

	empty, err := BuildTree(nil)
	require.NoError(t, err)
	assert.Equal(t, -1, empty.Root)
	assert.Nil(t, empty.Active())
}
