package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/ideaflow/internal/app"
	"github.com/josephgoksu/ideaflow/internal/branch"
	"github.com/josephgoksu/ideaflow/internal/logger"
	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/ui"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Explore alternatives on branches",
	Long: `Each idea has a tree of branches. A branch carries its own conversation,
a copy of the synthesis and graph, and its own project folder. Exactly one
branch per idea is active; switching saves the current branch's state and
restores the target's.`,
}

var branchTreeCmd = &cobra.Command{
	Use:     "tree <idea>",
	Aliases: []string{"list", "ls"},
	Short:   "Show the branch tree",
	Args:    cobra.ExactArgs(1),
	RunE:    runBranchTree,
}

var branchCreateCmd = &cobra.Command{
	Use:   "create <idea> <label>",
	Short: "Fork a child branch and switch to it",
	Long: `Fork a child branch and make it active. The child starts from the
parent's synthesis, graph and folder contents; its conversation opens with a
summary of the parent's.

Examples:
  ideaflow branch create idea-1a2b "Weekly view"
  ideaflow branch create idea-1a2b "Dark mode" --parent br-9f8e`,
	Args: cobra.MinimumNArgs(2),
	RunE: runBranchCreate,
}

var branchSwitchCmd = &cobra.Command{
	Use:     "switch <branch>",
	Aliases: []string{"checkout"},
	Short:   "Make a branch active",
	Args:    cobra.ExactArgs(1),
	RunE:    runBranchSwitch,
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete <branch>",
	Short: "Delete a branch with its descendants and folders",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchDelete,
}

var branchRenameCmd = &cobra.Command{
	Use:   "rename <branch> <label>",
	Short: "Change a branch label (the folder keeps its name)",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runBranchRename,
}

var branchPathCmd = &cobra.Command{
	Use:   "path <idea>",
	Short: "Print the active branch folder",
	Long: `Print the active branch folder, for use in scripts:

  cd "$(ideaflow branch path idea-1a2b)"`,
	Args: cobra.ExactArgs(1),
	RunE: runBranchPath,
}

var branchCheckCmd = &cobra.Command{
	Use:   "check <idea>",
	Short: "Compare branches with the folders on disk",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchCheck,
}

func init() {
	rootCmd.AddCommand(branchCmd)
	branchCmd.AddCommand(branchTreeCmd, branchCreateCmd, branchSwitchCmd, branchDeleteCmd,
		branchRenameCmd, branchPathCmd, branchCheckCmd)

	branchTreeCmd.Flags().Bool("ids", false, "Show branch IDs")
	branchCreateCmd.Flags().StringP("parent", "p", "", "Parent branch (default: the active branch)")
	branchDeleteCmd.Flags().BoolP("yes", "y", false, "Skip confirmation")
	branchCheckCmd.Flags().Bool("repair", false, "Recreate missing folders")
}

// resolveBranch resolves a branch ID prefix and records it for crash reports.
func resolveBranch(ctx context.Context, branches *app.BranchApp, ref string) (string, error) {
	id, err := branches.ResolveBranchID(ctx, ref)
	if err != nil {
		return "", err
	}
	logger.SetTarget("", id)
	return id, nil
}

func treeBranches(tree *branch.Tree) []memory.Branch {
	out := make([]memory.Branch, 0, len(tree.Nodes))
	tree.Walk(func(n *branch.TreeNode, depth int) bool {
		out = append(out, n.Branch)
		return true
	})
	return out
}

func runBranchTree(cmd *cobra.Command, args []string) error {
	showIDs, _ := cmd.Flags().GetBool("ids")

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		id, err := resolveIdea(ctx, app.NewIdeaApp(appCtx), args[0])
		if err != nil {
			return err
		}
		tree, err := app.NewBranchApp(appCtx).Tree(ctx, id)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(treeBranches(tree))
		}
		fmt.Print(ui.RenderBranchTree(tree, ui.TreeOptions{ShowIDs: showIDs || isVerbose(), ShowFolders: true}))
		return nil
	})
}

func runBranchCreate(cmd *cobra.Command, args []string) error {
	parent, _ := cmd.Flags().GetString("parent")
	label := strings.Join(args[1:], " ")

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		id, err := resolveIdea(ctx, app.NewIdeaApp(appCtx), args[0])
		if err != nil {
			return err
		}
		branches := app.NewBranchApp(appCtx)
		if parent != "" {
			if parent, err = branches.ResolveBranchID(ctx, parent); err != nil {
				return err
			}
		}
		b, err := branches.Create(ctx, id, parent, label)
		if err != nil {
			return err
		}
		result := &app.SwitchResult{Branch: b}
		if folder, err := branches.ActiveFolder(ctx, id); err == nil {
			result.Folder = folder
		}
		if isJSON() {
			return printJSON(result)
		}
		fmt.Printf("%s Created and switched to %s %s\n", ui.Icon("✓", ui.StyleSuccess), ui.StyleBranchActive.Render(b.Label), ui.StyleSubtle.Render(b.ID))
		if result.Folder != "" {
			fmt.Printf("  Folder: %s\n", ui.StyleBranchFolder.Render(result.Folder))
		}
		return nil
	})
}

func runBranchSwitch(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		branches := app.NewBranchApp(appCtx)
		id, err := resolveBranch(ctx, branches, args[0])
		if err != nil {
			return err
		}
		result, err := branches.Switch(ctx, id)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(result)
		}
		fmt.Printf("%s Switched to %s\n", ui.Icon("●", ui.StyleBranchActive), ui.StyleBranchActive.Render(result.Branch.Label))
		if result.Folder != "" {
			fmt.Printf("  Folder: %s\n", ui.StyleBranchFolder.Render(result.Folder))
		}
		return nil
	})
}

func runBranchDelete(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		branches := app.NewBranchApp(appCtx)
		id, err := resolveBranch(ctx, branches, args[0])
		if err != nil {
			return err
		}
		if !yes && !confirmOrAbort(fmt.Sprintf("Delete branch %s, its descendants and their folders? [y/N] ", id)) {
			return nil
		}
		if err := branches.Delete(ctx, id); err != nil {
			return err
		}
		if isJSON() {
			return printJSON(map[string]any{"id": id, "deleted": true})
		}
		fmt.Printf("%s Deleted branch %s\n", ui.Icon("✓", ui.StyleSuccess), id)
		return nil
	})
}

func runBranchRename(cmd *cobra.Command, args []string) error {
	label := strings.Join(args[1:], " ")

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		branches := app.NewBranchApp(appCtx)
		id, err := resolveBranch(ctx, branches, args[0])
		if err != nil {
			return err
		}
		b, err := branches.Rename(ctx, id, label)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(b)
		}
		fmt.Printf("%s Renamed to %s (folder %s)\n", ui.Icon("✓", ui.StyleSuccess), b.Label, ui.StyleBranchFolder.Render(b.FolderName+"/"))
		return nil
	})
}

func runBranchPath(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		id, err := resolveIdea(ctx, app.NewIdeaApp(appCtx), args[0])
		if err != nil {
			return err
		}
		folder, err := app.NewBranchApp(appCtx).ActiveFolder(ctx, id)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(map[string]string{"ideaId": id, "folder": folder})
		}
		fmt.Println(folder)
		return nil
	})
}

func runBranchCheck(cmd *cobra.Command, args []string) error {
	repair, _ := cmd.Flags().GetBool("repair")

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		id, err := resolveIdea(ctx, app.NewIdeaApp(appCtx), args[0])
		if err != nil {
			return err
		}
		issues, err := app.NewBranchApp(appCtx).Check(ctx, id, repair)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(issues)
		}
		if len(issues) == 0 {
			fmt.Printf("%s Branches and folders are consistent.\n", ui.Icon("✓", ui.StyleSuccess))
			return nil
		}
		lines := make([]string, 0, len(issues))
		for _, issue := range issues {
			lines = append(lines, fmt.Sprintf("%s %s", ui.StyleWarning.Render(string(issue.Kind)), issue.Detail))
		}
		if repair {
			fmt.Println(ui.RenderSuccessPanel("Repaired", strings.Join(lines, "\n")))
			return nil
		}
		fmt.Println(ui.RenderErrorPanel("Branch problems", strings.Join(lines, "\n")))
		fmt.Println(ui.StyleSubtle.Render("Run with --repair to recreate missing folders."))
		return nil
	})
}
