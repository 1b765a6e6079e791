package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/ideaflow/internal/app"
	"github.com/josephgoksu/ideaflow/internal/ui"
	"github.com/josephgoksu/ideaflow/internal/util"
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Capture notes on an idea",
}

var noteAddCmd = &cobra.Command{
	Use:   "add <idea> <text|->",
	Short: "Add a note (use - to read stdin)",
	Long: `Add a note to an idea. Pass "-" to read the note from stdin.

Examples:
  ideaflow note add idea-1a2b "Streaks reset at midnight local time"
  pbpaste | ideaflow note add idea-1a2b -
  ideaflow note add idea-1a2b "transcribed memo" --source voice`,
	Args: cobra.MinimumNArgs(2),
	RunE: runNoteAdd,
}

var noteListCmd = &cobra.Command{
	Use:     "list <idea>",
	Aliases: []string{"ls"},
	Short:   "List an idea's notes",
	Args:    cobra.ExactArgs(1),
	RunE:    runNoteList,
}

var noteDeleteCmd = &cobra.Command{
	Use:   "delete <note>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteDelete,
}

func init() {
	rootCmd.AddCommand(noteCmd)
	noteCmd.AddCommand(noteAddCmd, noteListCmd, noteDeleteCmd)
	noteAddCmd.Flags().String("source", "text", "Note source (text, voice)")
}

func runNoteAdd(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	content, err := textArg(cmd.InOrStdin(), args[1:])
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("note is empty")
	}

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		ideas := app.NewIdeaApp(appCtx)
		id, err := resolveIdea(ctx, ideas, args[0])
		if err != nil {
			return err
		}
		note, err := ideas.AddNote(ctx, id, content, source)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(note)
		}
		fmt.Printf("%s Added note %s\n", ui.Icon("✓", ui.StyleSuccess), ui.StyleSubtle.Render(note.ID))
		return nil
	})
}

func runNoteList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		ideas := app.NewIdeaApp(appCtx)
		id, err := resolveIdea(ctx, ideas, args[0])
		if err != nil {
			return err
		}
		notes, err := ideas.ListNotes(ctx, id)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(notes)
		}
		if len(notes) == 0 {
			fmt.Println(ui.StyleSubtle.Render("No notes yet."))
			return nil
		}
		t := &ui.Table{Headers: []string{"ID", "SOURCE", "NOTE", "CREATED"}, MaxWidth: 60}
		for _, n := range notes {
			t.Rows = append(t.Rows, []string{
				util.ShortID(n.ID, 0),
				n.Source,
				ui.FirstLine(n.Content, 60),
				n.CreatedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		fmt.Print(t.Render())
		return nil
	})
}

func runNoteDelete(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		ideas := app.NewIdeaApp(appCtx)
		id, err := ideas.ResolveNoteID(ctx, args[0])
		if err != nil {
			return err
		}
		if err := ideas.DeleteNote(ctx, id); err != nil {
			return err
		}
		if isJSON() {
			return printJSON(map[string]any{"id": id, "deleted": true})
		}
		fmt.Printf("%s Deleted note %s\n", ui.Icon("✓", ui.StyleSuccess), id)
		return nil
	})
}
