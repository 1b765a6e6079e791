package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/ideaflow/internal/app"
	"github.com/josephgoksu/ideaflow/internal/ui"
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Read or replace an idea's synthesized document",
}

var synthShowCmd = &cobra.Command{
	Use:   "show <idea>",
	Short: "Print the synthesized document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSynthShow,
}

var synthSetCmd = &cobra.Command{
	Use:   "set <idea> [text|-]",
	Short: "Replace the synthesized document",
	Long: `Replace the synthesized document. The text comes from the arguments,
from stdin with "-", or from a file with --file. Every write bumps the
synthesis version.

Examples:
  ideaflow synth set idea-1a2b --file synthesis.md
  cat draft.md | ideaflow synth set idea-1a2b -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSynthSet,
}

func init() {
	rootCmd.AddCommand(synthCmd)
	synthCmd.AddCommand(synthShowCmd, synthSetCmd)
	synthSetCmd.Flags().StringP("file", "f", "", "Read the document from a file")
}

func runSynthShow(cmd *cobra.Command, args []string) error {
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
		if isJSON() {
			return printJSON(map[string]any{
				"ideaId":    idea.ID,
				"version":   idea.SynthesisVersion,
				"synthesis": idea.Synthesis,
			})
		}
		text := idea.SynthesisText()
		if text == "" {
			fmt.Println(ui.StyleSubtle.Render("No synthesis yet."))
			return nil
		}
		fmt.Println(text)
		return nil
	})
}

func runSynthSet(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")

	var text string
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		text = string(data)
	case len(args) > 1:
		var err error
		if text, err = textArg(cmd.InOrStdin(), args[1:]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("pass the text, - for stdin, or --file")
	}

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		ideas := app.NewIdeaApp(appCtx)
		id, err := resolveIdea(ctx, ideas, args[0])
		if err != nil {
			return err
		}
		idea, err := ideas.UpdateSynthesis(ctx, id, text)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(map[string]any{"ideaId": idea.ID, "version": idea.SynthesisVersion})
		}
		fmt.Printf("%s Synthesis updated (version %d)\n", ui.Icon("✓", ui.StyleSuccess), idea.SynthesisVersion)
		return nil
	})
}
