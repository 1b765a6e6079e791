package branch

import (
	"context"
	"fmt"

	"github.com/josephgoksu/ideaflow/internal/memory"
)

// TreeNode is one branch in a Tree. Parent and Children index into
// Tree.Nodes; the root's Parent is -1.
type TreeNode struct {
	Branch   memory.Branch
	Parent   int
	Children []int
}

// Tree is an idea's branch hierarchy stored as an arena.
type Tree struct {
	Nodes []TreeNode
	Root  int // -1 when the idea has no branches
	index map[string]int
}

// BuildTree reconstructs the hierarchy from a flat branch list. Children
// keep the order of the input list. A branch whose parent is not in the
// list, or a second root, is an error.
func BuildTree(branches []memory.Branch) (*Tree, error) {
	t := &Tree{
		Nodes: make([]TreeNode, len(branches)),
		Root:  -1,
		index: make(map[string]int, len(branches)),
	}
	for i, b := range branches {
		t.Nodes[i] = TreeNode{Branch: b, Parent: -1}
		t.index[b.ID] = i
	}

	for i := range t.Nodes {
		b := &t.Nodes[i].Branch
		if b.IsRoot() {
			if t.Root != -1 {
				return nil, fmt.Errorf("idea %s has more than one root branch", b.IdeaID)
			}
			t.Root = i
			continue
		}
		p, ok := t.index[b.ParentID]
		if !ok {
			return nil, fmt.Errorf("branch %s: parent %s not found", b.ID, b.ParentID)
		}
		t.Nodes[i].Parent = p
		t.Nodes[p].Children = append(t.Nodes[p].Children, i)
	}

	if len(branches) > 0 && t.Root == -1 {
		return nil, fmt.Errorf("idea %s has no root branch", branches[0].IdeaID)
	}
	return t, nil
}

// Walk visits the tree depth-first from the root, parents before children.
// Returning false from fn skips the node's descendants.
func (t *Tree) Walk(fn func(n *TreeNode, depth int) bool) {
	if t.Root < 0 {
		return
	}
	t.walk(t.Root, 0, fn)
}

func (t *Tree) walk(i, depth int, fn func(n *TreeNode, depth int) bool) {
	n := &t.Nodes[i]
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		t.walk(c, depth+1, fn)
	}
}

// Find returns the node of a branch, or nil.
func (t *Tree) Find(branchID string) *TreeNode {
	i, ok := t.index[branchID]
	if !ok {
		return nil
	}
	return &t.Nodes[i]
}

// Active returns the active node, or nil.
func (t *Tree) Active() *TreeNode {
	for i := range t.Nodes {
		if t.Nodes[i].Branch.IsActive {
			return &t.Nodes[i]
		}
	}
	return nil
}

// Subtree returns the branch and all of its descendants in pre-order.
func (t *Tree) Subtree(branchID string) []memory.Branch {
	start, ok := t.index[branchID]
	if !ok {
		return nil
	}
	var out []memory.Branch
	t.walk(start, 0, func(n *TreeNode, _ int) bool {
		out = append(out, n.Branch)
		return true
	})
	return out
}

// Tree loads the idea's branches and builds their hierarchy.
func (m *Manager) Tree(ctx context.Context, ideaID string) (*Tree, error) {
	branches, err := m.store.ListBranches(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	return BuildTree(branches)
}
