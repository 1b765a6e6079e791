package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/ideaflow/internal/app"
	"github.com/josephgoksu/ideaflow/internal/mcp"
	"github.com/josephgoksu/ideaflow/internal/mcpcfg"
	"github.com/josephgoksu/ideaflow/internal/ui"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI tool integration",
	Long: `Start a Model Context Protocol (MCP) server over stdin/stdout so an AI
assistant can manage branches and snapshots:

- branch_list, branch_create, branch_switch, branch_delete, branch_rename
- branch_active_folder, branch_check
- snapshot_create, snapshot_list, snapshot_get, snapshot_restore
- update_synthesis

Logs go to log.file, or to <data dir>/logs/mcp.log; stdout carries the
protocol only. The server runs until the client disconnects.`,
	Annotations: map[string]string{longRunning: "true"},
	Args:        cobra.NoArgs,
	RunE:        runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.SetContext(ctx)

	return withApp(cmd, func(ctx context.Context, appCtx *app.Context) error {
		return mcp.Serve(ctx, appCtx, version)
	})
}

var mcpConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Print or install the client config entry for the MCP server",
	Long: `Print the mcpServers entry AI clients use to launch ideaflow, or merge it
into a client config file with --write. Older ideaflow entries in that file
are replaced; other servers are kept.

Examples:
  ideaflow mcp config
  ideaflow mcp config --write ~/Library/Application\ Support/Claude/claude_desktop_config.json`,
	Args: cobra.NoArgs,
	RunE: runMCPConfig,
}

func init() {
	mcpCmd.AddCommand(mcpConfigCmd)
	mcpConfigCmd.Flags().String("write", "", "Client config file to update")
}

func runMCPConfig(cmd *cobra.Command, args []string) error {
	target, _ := cmd.Flags().GetString("write")

	binary, err := os.Executable()
	if err != nil {
		LogError("resolve executable", err)
		binary = "ideaflow"
	}
	configFile := cfgFile
	if configFile != "" {
		if configFile, err = filepath.Abs(configFile); err != nil {
			return err
		}
	}
	entry := mcpcfg.Entry(binary, configFile)

	if target == "" {
		data, err := mcpcfg.Snippet(entry)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	existing, err := os.ReadFile(target)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", target, err)
	}
	merged, err := mcpcfg.Merge(existing, entry)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(target, append(merged, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	if isJSON() {
		return printJSON(map[string]string{"file": target, "server": mcpcfg.CanonicalServerName})
	}
	fmt.Printf("%s Added %s to %s\n", ui.Icon("✓", ui.StyleSuccess), mcpcfg.CanonicalServerName, target)
	return nil
}
