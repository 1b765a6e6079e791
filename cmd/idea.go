package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/ideaflow/internal/app"
	"github.com/josephgoksu/ideaflow/internal/logger"
	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/ui"
	"github.com/josephgoksu/ideaflow/internal/util"
)

var ideaCmd = &cobra.Command{
	Use:   "idea",
	Short: "Create, list and manage ideas",
}

var ideaCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Capture a new idea",
	Long: `Capture a new idea with an empty conversation.

Examples:
  ideaflow idea create "Habit tracker with streaks"
  ideaflow idea create "Recipe planner" --scaffold`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIdeaCreate,
}

var ideaListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List ideas",
	Args:    cobra.NoArgs,
	RunE:    runIdeaList,
}

var ideaShowCmd = &cobra.Command{
	Use:   "show <idea>",
	Short: "Show an idea with its branches, snapshots and project folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdeaShow,
}

var ideaSetStatusCmd = &cobra.Command{
	Use:       "set-status <idea> <active|completed|archived>",
	Short:     "Move an idea through its lifecycle",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"active", "completed", "archived"},
	RunE:      runIdeaSetStatus,
}

var ideaScaffoldCmd = &cobra.Command{
	Use:   "scaffold <idea>",
	Short: "Give an idea a project folder and its root branch",
	Long: `Give an idea a project root and create the root branch with its folder.

The root defaults to <projects dir>/<idea ID>. Branch folders live directly
below it: main/ for the root branch, one folder per child branch.`,
	Args: cobra.ExactArgs(1),
	RunE: runIdeaScaffold,
}

var ideaDeleteCmd = &cobra.Command{
	Use:   "delete <idea>",
	Short: "Delete an idea, its branches, snapshots and project folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdeaDelete,
}

func init() {
	rootCmd.AddCommand(ideaCmd)
	ideaCmd.AddCommand(ideaCreateCmd, ideaListCmd, ideaShowCmd, ideaSetStatusCmd, ideaScaffoldCmd, ideaDeleteCmd)

	ideaCreateCmd.Flags().Bool("scaffold", false, "Also create the project folder")
	ideaListCmd.Flags().StringP("status", "s", "", "Filter by status (active, completed, archived)")
	ideaScaffoldCmd.Flags().String("root", "", "Project root (default <projects dir>/<idea ID>)")
	ideaDeleteCmd.Flags().BoolP("yes", "y", false, "Skip confirmation")
}

// resolveIdea resolves an idea ID prefix and records it for crash reports.
func resolveIdea(ctx context.Context, ideas *app.IdeaApp, ref string) (string, error) {
	id, err := ideas.ResolveIdeaID(ctx, ref)
	if err != nil {
		return "", err
	}
	logger.SetTarget(id, "")
	return id, nil
}

func runIdeaCreate(cmd *cobra.Command, args []string) error {
	title := strings.Join(args, " ")
	scaffold, _ := cmd.Flags().GetBool("scaffold")

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		ideas := app.NewIdeaApp(appCtx)
		idea, err := ideas.CreateIdea(ctx, title)
		if err != nil {
			return err
		}
		if scaffold {
			if _, err := ideas.ScaffoldProject(ctx, idea.ID, ""); err != nil {
				return err
			}
			if idea, err = ideas.GetIdea(ctx, idea.ID); err != nil {
				return err
			}
		}

		if isJSON() {
			return printJSON(idea)
		}
		fmt.Printf("%s Created idea %s %s\n", ui.Icon("✓", ui.StyleSuccess), ui.StyleTitle.Render(idea.Title), ui.StyleSubtle.Render(idea.ID))
		if idea.ProjectPath != "" {
			fmt.Printf("  Project: %s\n", ui.StyleBranchFolder.Render(idea.ProjectPath))
		}
		return nil
	})
}

func runIdeaList(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		ideas, err := app.NewIdeaApp(appCtx).ListIdeas(ctx, memory.IdeaStatus(status))
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(ideas)
		}
		if len(ideas) == 0 {
			fmt.Println(ui.StyleSubtle.Render("No ideas yet. Run `ideaflow idea create <title>`."))
			return nil
		}

		t := &ui.Table{Headers: []string{"ID", "TITLE", "STATUS", "VERSION", "UPDATED"}, MaxWidth: 48}
		for _, i := range ideas {
			t.Rows = append(t.Rows, []string{
				util.ShortID(i.ID, 0),
				i.Title,
				string(i.Status),
				fmt.Sprintf("%d", i.SynthesisVersion),
				i.UpdatedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		fmt.Print(t.Render())
		return nil
	})
}

func runIdeaShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		ideas := app.NewIdeaApp(appCtx)
		id, err := resolveIdea(ctx, ideas, args[0])
		if err != nil {
			return err
		}
		view, err := ideas.Status(ctx, id)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(view)
		}

		ui.RenderPageHeader(view.Idea.Title, fmt.Sprintf("%s · %s", view.Idea.ID, view.Idea.Status))

		var sb strings.Builder
		if view.ActiveBranch != nil {
			fmt.Fprintf(&sb, "Active branch: %s\n", ui.StyleBranchActive.Render(view.ActiveBranch.Label))
		}
		fmt.Fprintf(&sb, "Branches:      %d\n", view.BranchCount)
		if view.LatestVersion > 0 {
			fmt.Fprintf(&sb, "Snapshots:     %d (latest %s)\n", view.SnapshotCount, ui.StyleVersion.Render(fmt.Sprintf("v%d", view.LatestVersion)))
		} else {
			fmt.Fprintf(&sb, "Snapshots:     0\n")
		}
		fmt.Fprintf(&sb, "Notes:         %d\n", view.NoteCount)
		fmt.Fprintf(&sb, "Graph:         %d nodes, %d edges\n", view.NodeCount, view.EdgeCount)
		if view.ActiveFolder != "" {
			fmt.Fprintf(&sb, "Folder:        %s", ui.StyleBranchFolder.Render(view.ActiveFolder))
			if view.ProjectKind != "" {
				fmt.Fprintf(&sb, " (%s)", view.ProjectKind)
			}
			sb.WriteString("\n")
		} else {
			fmt.Fprintf(&sb, "Folder:        %s\n", ui.StyleSubtle.Render("not scaffolded"))
		}
		fmt.Println(ui.RenderPanel("Overview", strings.TrimRight(sb.String(), "\n")))

		if text := view.Idea.SynthesisText(); text != "" {
			fmt.Println(ui.RenderInfoPanel("Synthesis", ui.WrapText(ui.Truncate(text, 600), 76)))
		}
		if len(view.BranchProblems) > 0 {
			fmt.Println(ui.RenderWarningPanel("Branch problems", strings.Join(view.BranchProblems, "\n")+
				"\n\nRun `ideaflow branch check --repair`."))
		}
		return nil
	})
}

func runIdeaSetStatus(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		ideas := app.NewIdeaApp(appCtx)
		id, err := resolveIdea(ctx, ideas, args[0])
		if err != nil {
			return err
		}
		if err := ideas.SetStatus(ctx, id, memory.IdeaStatus(args[1])); err != nil {
			return err
		}
		if isJSON() {
			return printJSON(map[string]string{"id": id, "status": args[1]})
		}
		fmt.Printf("%s %s is now %s\n", ui.Icon("✓", ui.StyleSuccess), id, args[1])
		return nil
	})
}

func runIdeaScaffold(cmd *cobra.Command, args []string) error {
	root, _ := cmd.Flags().GetString("root")

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		ideas := app.NewIdeaApp(appCtx)
		id, err := resolveIdea(ctx, ideas, args[0])
		if err != nil {
			return err
		}
		rootBranch, err := ideas.ScaffoldProject(ctx, id, root)
		if err != nil {
			return err
		}
		folder, err := app.NewBranchApp(appCtx).ActiveFolder(ctx, id)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(app.SwitchResult{Branch: rootBranch, Folder: folder})
		}
		fmt.Printf("%s Project folder ready\n", ui.Icon("✓", ui.StyleSuccess))
		fmt.Printf("  Active folder: %s\n", ui.StyleBranchFolder.Render(folder))
		return nil
	})
}

func runIdeaDelete(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		ideas := app.NewIdeaApp(appCtx)
		id, err := resolveIdea(ctx, ideas, args[0])
		if err != nil {
			return err
		}
		idea, err := ideas.GetIdea(ctx, id)
		if err != nil {
			return err
		}
		if !yes && !confirmOrAbort(fmt.Sprintf("Delete %q with all branches, snapshots and its project folder? [y/N] ", idea.Title)) {
			return nil
		}
		if err := ideas.DeleteIdea(ctx, id); err != nil {
			return err
		}
		if isJSON() {
			return printJSON(map[string]any{"id": id, "deleted": true})
		}
		fmt.Printf("%s Deleted %s\n", ui.Icon("✓", ui.StyleSuccess), idea.Title)
		return nil
	})
}
