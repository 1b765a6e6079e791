package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/ideaflow/internal/app"
	"github.com/josephgoksu/ideaflow/internal/ui"
	"github.com/josephgoksu/ideaflow/internal/util"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Edit an idea's architecture graph",
}

var graphShowCmd = &cobra.Command{
	Use:   "show <idea>",
	Short: "List nodes and edges",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraphShow,
}

var graphNodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Add or remove nodes",
}

var graphNodeAddCmd = &cobra.Command{
	Use:   "add <idea> <name>",
	Short: "Add a node",
	Long: `Add a node to the idea's graph.

Example:
  ideaflow graph node add idea-1a2b "Database" --provider Supabase`,
	Args: cobra.ExactArgs(2),
	RunE: runGraphNodeAdd,
}

var graphNodeRemoveCmd = &cobra.Command{
	Use:     "remove <node>",
	Aliases: []string{"rm"},
	Short:   "Remove a node and its edges",
	Args:    cobra.ExactArgs(1),
	RunE:    runGraphNodeRemove,
}

var graphEdgeCmd = &cobra.Command{
	Use:   "edge",
	Short: "Connect or disconnect nodes",
}

var graphEdgeAddCmd = &cobra.Command{
	Use:   "add <idea> <from-node> <to-node>",
	Short: "Connect two nodes",
	Args:  cobra.ExactArgs(3),
	RunE:  runGraphEdgeAdd,
}

var graphEdgeRemoveCmd = &cobra.Command{
	Use:     "remove <edge>",
	Aliases: []string{"rm"},
	Short:   "Remove an edge",
	Args:    cobra.ExactArgs(1),
	RunE:    runGraphEdgeRemove,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.AddCommand(graphShowCmd, graphNodeCmd, graphEdgeCmd)
	graphNodeCmd.AddCommand(graphNodeAddCmd, graphNodeRemoveCmd)
	graphEdgeCmd.AddCommand(graphEdgeAddCmd, graphEdgeRemoveCmd)

	graphNodeAddCmd.Flags().String("provider", "", "Service provider, e.g. Stripe")
	graphNodeAddCmd.Flags().String("description", "", "What the node does")
	graphNodeAddCmd.Flags().String("color", "", "Display color")
	graphNodeAddCmd.Flags().Float64("x", 0, "Canvas x position")
	graphNodeAddCmd.Flags().Float64("y", 0, "Canvas y position")
	graphEdgeAddCmd.Flags().StringP("label", "l", "", "Edge label")
}

func runGraphShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		id, err := resolveIdea(ctx, app.NewIdeaApp(appCtx), args[0])
		if err != nil {
			return err
		}
		state, err := app.NewGraphApp(appCtx).State(ctx, id)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(state)
		}
		if len(state.Nodes) == 0 {
			fmt.Println(ui.StyleSubtle.Render("The graph is empty."))
			return nil
		}

		names := make(map[string]string, len(state.Nodes))
		nodes := &ui.Table{Headers: []string{"ID", "NAME", "PROVIDER"}, MaxWidth: 40}
		for _, n := range state.Nodes {
			names[n.ID] = n.Name
			nodes.Rows = append(nodes.Rows, []string{util.ShortID(n.ID, 0), n.Name, n.Provider})
		}
		fmt.Println(ui.StyleSectionTitle.Render("Nodes"))
		fmt.Print(nodes.Render())

		if len(state.Edges) > 0 {
			fmt.Println()
			fmt.Println(ui.StyleSectionTitle.Render("Edges"))
			for _, e := range state.Edges {
				line := fmt.Sprintf("  %s → %s", names[e.SourceID], names[e.TargetID])
				if e.Label != "" {
					line += ui.StyleSubtle.Render(" (" + e.Label + ")")
				}
				fmt.Printf("%s %s\n", line, ui.StyleSubtle.Render(util.ShortID(e.ID, 0)))
			}
		}
		return nil
	})
}

func runGraphNodeAdd(cmd *cobra.Command, args []string) error {
	in := app.NodeInput{Name: args[1]}
	in.Provider, _ = cmd.Flags().GetString("provider")
	in.Description, _ = cmd.Flags().GetString("description")
	in.Color, _ = cmd.Flags().GetString("color")
	in.X, _ = cmd.Flags().GetFloat64("x")
	in.Y, _ = cmd.Flags().GetFloat64("y")

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		id, err := resolveIdea(ctx, app.NewIdeaApp(appCtx), args[0])
		if err != nil {
			return err
		}
		node, err := app.NewGraphApp(appCtx).AddNode(ctx, id, in)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(node)
		}
		fmt.Printf("%s Added node %s %s\n", ui.Icon("✓", ui.StyleSuccess), node.Name, ui.StyleSubtle.Render(node.ID))
		return nil
	})
}

func runGraphNodeRemove(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		graph := app.NewGraphApp(appCtx)
		id, err := graph.ResolveNodeID(ctx, args[0])
		if err != nil {
			return err
		}
		if err := graph.RemoveNode(ctx, id); err != nil {
			return err
		}
		if isJSON() {
			return printJSON(map[string]any{"id": id, "deleted": true})
		}
		fmt.Printf("%s Removed node %s\n", ui.Icon("✓", ui.StyleSuccess), id)
		return nil
	})
}

func runGraphEdgeAdd(cmd *cobra.Command, args []string) error {
	label, _ := cmd.Flags().GetString("label")

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		id, err := resolveIdea(ctx, app.NewIdeaApp(appCtx), args[0])
		if err != nil {
			return err
		}
		graph := app.NewGraphApp(appCtx)
		from, err := graph.ResolveNodeID(ctx, args[1])
		if err != nil {
			return err
		}
		to, err := graph.ResolveNodeID(ctx, args[2])
		if err != nil {
			return err
		}
		edge, err := graph.Connect(ctx, id, from, to, label)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(edge)
		}
		fmt.Printf("%s Connected %s → %s %s\n", ui.Icon("✓", ui.StyleSuccess), from, to, ui.StyleSubtle.Render(edge.ID))
		return nil
	})
}

func runGraphEdgeRemove(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		graph := app.NewGraphApp(appCtx)
		id, err := graph.ResolveEdgeID(ctx, args[0])
		if err != nil {
			return err
		}
		if err := graph.Disconnect(ctx, id); err != nil {
			return err
		}
		if isJSON() {
			return printJSON(map[string]any{"id": id, "deleted": true})
		}
		fmt.Printf("%s Removed edge %s\n", ui.Icon("✓", ui.StyleSuccess), id)
		return nil
	})
}
