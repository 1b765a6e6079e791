package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/ideaflow/internal/app"
	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/project"
	"github.com/josephgoksu/ideaflow/internal/snapshot"
	"github.com/josephgoksu/ideaflow/internal/ui"
)

var snapshotCmd = &cobra.Command{
	Use:     "snapshot",
	Aliases: []string{"snap"},
	Short:   "Numbered versions of an idea",
	Long: `A snapshot records an idea's synthesis, graph and active branch files as
version v1, v2, ... Snapshots are also taken automatically after an
assistant turn that changed the idea.

Snapshots are referenced by ID, ID prefix, or version ("v3").`,
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create <idea>",
	Short: "Capture the current state as the next version",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotCreate,
}

var snapshotListCmd = &cobra.Command{
	Use:     "list <idea>",
	Aliases: []string{"ls"},
	Short:   "List versions, newest first",
	Args:    cobra.ExactArgs(1),
	RunE:    runSnapshotList,
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show <idea> <snapshot>",
	Short: "Show what a version contains",
	Args:  cobra.ExactArgs(2),
	RunE:  runSnapshotShow,
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore <idea> <snapshot>",
	Short: "Roll the idea back to a version",
	Long: `Roll the idea back to a version: the synthesis, the graph and the files
of the active branch folder. Dependency directories such as node_modules are
left in place.

Example:
  ideaflow snapshot restore idea-1a2b v3`,
	Args: cobra.ExactArgs(2),
	RunE: runSnapshotRestore,
}

var snapshotDiffCmd = &cobra.Command{
	Use:   "diff <idea> <from> [to]",
	Short: "Compare two versions (to defaults to the latest)",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runSnapshotDiff,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotCreateCmd, snapshotListCmd, snapshotShowCmd, snapshotRestoreCmd, snapshotDiffCmd)

	snapshotCreateCmd.Flags().String("tools", "", "Comma-separated tools that led to this version")
	snapshotShowCmd.Flags().Bool("content", false, "Print file contents")
	snapshotRestoreCmd.Flags().BoolP("yes", "y", false, "Skip confirmation")
}

// resolveSnapshot resolves an idea reference and a snapshot reference.
func resolveSnapshot(ctx context.Context, appCtx *app.Context, ideaRef, snapRef string) (string, *memory.Snapshot, error) {
	ideaID, err := resolveIdea(ctx, app.NewIdeaApp(appCtx), ideaRef)
	if err != nil {
		return "", nil, err
	}
	snaps := app.NewSnapshotApp(appCtx)
	id, err := snaps.ResolveSnapshotID(ctx, ideaID, snapRef)
	if err != nil {
		return "", nil, err
	}
	s, err := snaps.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if s.IdeaID != ideaID {
		return "", nil, fmt.Errorf("snapshot %s belongs to idea %s", s.ID, s.IdeaID)
	}
	return ideaID, s, nil
}

func runSnapshotCreate(cmd *cobra.Command, args []string) error {
	tools, _ := cmd.Flags().GetString("tools")

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		id, err := resolveIdea(ctx, app.NewIdeaApp(appCtx), args[0])
		if err != nil {
			return err
		}
		s, err := app.NewSnapshotApp(appCtx).Create(ctx, id, splitList(tools))
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(s.Summary())
		}
		fmt.Printf("%s Snapshot %s (%d files, %d nodes)\n", ui.Icon("✓", ui.StyleSuccess),
			ui.StyleVersion.Render(fmt.Sprintf("v%d", s.Version)), len(s.Files), len(s.Nodes))
		return nil
	})
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		id, err := resolveIdea(ctx, app.NewIdeaApp(appCtx), args[0])
		if err != nil {
			return err
		}
		snaps, err := app.NewSnapshotApp(appCtx).List(ctx, id)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(snaps)
		}
		fmt.Print(ui.RenderSnapshotTable(snaps))
		return nil
	})
}

func runSnapshotShow(cmd *cobra.Command, args []string) error {
	withContent, _ := cmd.Flags().GetBool("content")

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		_, s, err := resolveSnapshot(ctx, appCtx, args[0], args[1])
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(s)
		}

		ui.RenderPageHeader(fmt.Sprintf("Snapshot v%d", s.Version), s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		if len(s.ToolsUsed) > 0 {
			fmt.Printf("Tools: %s\n\n", strings.Join(s.ToolsUsed, ", "))
		}
		if s.Synthesis != nil && *s.Synthesis != "" {
			fmt.Println(ui.NewPanel("Synthesis", ui.Truncate(*s.Synthesis, 400)).
				WithBorderColor(ui.ColorCyan).
				WithWidth(80).
				Render())
		}

		files := append([]project.File(nil), s.Files...)
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
		fmt.Println(ui.StyleSectionTitle.Render(fmt.Sprintf("Files (%d)", len(files))))
		for _, f := range files {
			fmt.Printf("  %s\n", f.Path)
			if withContent {
				fmt.Println(ui.StyleSubtle.Render(f.Content))
			}
		}

		fmt.Println(ui.StyleSectionTitle.Render(fmt.Sprintf("Graph (%d nodes, %d edges)", len(s.Nodes), len(s.Edges))))
		for _, n := range s.Nodes {
			if n.Provider != "" {
				fmt.Printf("  %s %s\n", n.Name, ui.StyleSubtle.Render("("+n.Provider+")"))
			} else {
				fmt.Printf("  %s\n", n.Name)
			}
		}
		return nil
	})
}

func runSnapshotRestore(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		_, s, err := resolveSnapshot(ctx, appCtx, args[0], args[1])
		if err != nil {
			return err
		}
		if !yes && !confirmOrAbort(fmt.Sprintf("Restore v%d? The current synthesis, graph and folder are replaced. [y/N] ", s.Version)) {
			return nil
		}
		report, err := app.NewSnapshotApp(appCtx).Restore(ctx, s.ID)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(report)
		}
		printRestoreReport(report)
		return nil
	})
}

func printRestoreReport(r *snapshot.RestoreReport) {
	mark := func(ok bool) string {
		if ok {
			return ui.Icon("✓", ui.StyleSuccess)
		}
		return ui.Icon("✗", ui.StyleError)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s text\n", mark(r.TextRestored))
	fmt.Fprintf(&sb, "%s files from %s (%d)\n", mark(r.FilesSource != snapshot.FilesNone), r.FilesSource, r.FilesRestored)
	fmt.Fprintf(&sb, "%s graph", mark(r.GraphRestored))
	if r.SkippedEdges > 0 {
		fmt.Fprintf(&sb, " %s", ui.StyleWarning.Render(fmt.Sprintf("(%d dangling edges skipped)", r.SkippedEdges)))
	}

	title := fmt.Sprintf("Restored v%d", r.Snapshot.Version)
	if r.TextRestored && r.GraphRestored && r.FilesSource != snapshot.FilesNone {
		fmt.Println(ui.RenderSuccessPanel(title, sb.String()))
		return
	}
	fmt.Println(ui.RenderWarningPanel(title+" (partial)", sb.String()))
}

func runSnapshotDiff(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		ideaID, from, err := resolveSnapshot(ctx, appCtx, args[0], args[1])
		if err != nil {
			return err
		}

		var toVersion int
		if len(args) == 3 {
			_, to, err := resolveSnapshot(ctx, appCtx, args[0], args[2])
			if err != nil {
				return err
			}
			toVersion = to.Version
		} else {
			snaps, err := app.NewSnapshotApp(appCtx).List(ctx, ideaID)
			if err != nil {
				return err
			}
			toVersion = snaps[0].Version // newest first; from exists so the list is non-empty
		}

		d, err := app.NewSnapshotApp(appCtx).Diff(ctx, ideaID, from.Version, toVersion)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(d)
		}
		fmt.Print(ui.RenderDiff(d))
		return nil
	})
}
