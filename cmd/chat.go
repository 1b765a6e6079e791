package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/ideaflow/internal/app"
	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/ui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Record and read the active branch's conversation",
}

var chatAddCmd = &cobra.Command{
	Use:   "add <idea> <user|assistant|system> <text|->",
	Short: "Append a message to the conversation",
	Long: `Append a message to the idea's current conversation.

An assistant message that lists a state-changing tool in --tools takes a
snapshot of the idea right after it is recorded.

Examples:
  ideaflow chat add idea-1a2b user "Add a weekly view"
  ideaflow chat add idea-1a2b assistant "Added the weekly view." --tools write_file,add_node`,
	Args: cobra.MinimumNArgs(3),
	RunE: runChatAdd,
}

var chatLogCmd = &cobra.Command{
	Use:   "log <idea>",
	Short: "Print the conversation, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatLog,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.AddCommand(chatAddCmd, chatLogCmd)
	chatAddCmd.Flags().String("tools", "", "Comma-separated tools used in this turn")
	chatLogCmd.Flags().IntP("limit", "n", 20, "Show the last n messages (0 for all)")
}

func runChatAdd(cmd *cobra.Command, args []string) error {
	tools, _ := cmd.Flags().GetString("tools")
	content, err := textArg(cmd.InOrStdin(), args[2:])
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		ideas := app.NewIdeaApp(appCtx)
		id, err := resolveIdea(ctx, ideas, args[0])
		if err != nil {
			return err
		}
		result, err := ideas.RecordTurn(ctx, id, args[1], content, splitList(tools))
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(result)
		}
		fmt.Printf("%s Recorded %s message\n", ui.Icon("✓", ui.StyleSuccess), result.Message.Role)
		if result.Snapshot != nil {
			fmt.Printf("  Snapshot %s\n", ui.StyleVersion.Render(fmt.Sprintf("v%d", result.Snapshot.Version)))
		}
		return nil
	})
}

func runChatLog(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		ideas := app.NewIdeaApp(appCtx)
		id, err := resolveIdea(ctx, ideas, args[0])
		if err != nil {
			return err
		}
		messages, err := ideas.Conversation(ctx, id, limit)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(messages)
		}
		if len(messages) == 0 {
			fmt.Println(ui.StyleSubtle.Render("No messages yet."))
			return nil
		}
		for _, m := range messages {
			style := ui.StyleText
			switch m.Role {
			case memory.RoleUser:
				style = ui.StylePrimary
			case memory.RoleSystem:
				style = ui.StyleSubtle
			}
			fmt.Printf("%s %s\n", style.Bold(true).Render(m.Role+":"), ui.WrapText(m.Content, 80))
		}
		return nil
	})
}
