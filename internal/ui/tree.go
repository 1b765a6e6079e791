package ui

import (
	"fmt"
	"strings"

	"github.com/josephgoksu/ideaflow/internal/branch"
	"github.com/josephgoksu/ideaflow/internal/util"
)

// TreeOptions controls RenderBranchTree.
type TreeOptions struct {
	ShowIDs     bool // Append short branch IDs
	ShowFolders bool // Append folder names
}

// RenderBranchTree draws an idea's branches with box-drawing guides:
//
//	● Main  main/
//	├── ○ Weekly view  weekly-view/
//	│   └── ○ Streaks  streaks/
//	└── ○ Branch 2  branch-2/
func RenderBranchTree(tree *branch.Tree, opts TreeOptions) string {
	if tree == nil || tree.Root < 0 {
		return StyleSubtle.Render("No branches yet.") + "\n"
	}

	var sb strings.Builder
	var draw func(i int, prefix string, last, root bool)
	draw = func(i int, prefix string, last, root bool) {
		n := &tree.Nodes[i]

		guide, childPrefix := "", ""
		if !root {
			guide = "├── "
			childPrefix = prefix + "│   "
			if last {
				guide = "└── "
				childPrefix = prefix + "    "
			}
		}

		sb.WriteString(StyleTreeGuide.Render(prefix + guide))
		sb.WriteString(branchLine(n, opts))
		sb.WriteString("\n")

		for j, c := range n.Children {
			draw(c, childPrefix, j == len(n.Children)-1, false)
		}
	}
	draw(tree.Root, "", true, true)
	return sb.String()
}

func branchLine(n *branch.TreeNode, opts TreeOptions) string {
	b := n.Branch
	marker, label := "○", StyleBranchLabel.Render(b.Label)
	if b.IsActive {
		marker, label = "●", StyleBranchActive.Render(b.Label)
	}

	parts := []string{Icon(marker, StyleBranchActive), label}
	if opts.ShowFolders {
		parts = append(parts, StyleBranchFolder.Render(b.FolderName+"/"))
	}
	if opts.ShowIDs {
		parts = append(parts, StyleSubtle.Render(fmt.Sprintf("(%s)", util.ShortID(b.ID, 0))))
	}
	return strings.Join(parts, " ")
}
