package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/josephgoksu/ideaflow/internal/app"
	"github.com/josephgoksu/ideaflow/internal/mcpcfg"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = mcpcfg.CanonicalServerName

// NewServer creates an MCP server with every branch and snapshot tool
// registered.
func NewServer(appCtx *app.Context, version string) *mcpsdk.Server {
	tools := NewTools(appCtx)

	impl := &mcpsdk.Implementation{Name: ServerName, Version: version}
	server := mcpsdk.NewServer(impl, &mcpsdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.InitializedParams) {
			tools.logger.Info("client initialized")
		},
	})

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        ToolBranchList,
		Description: `List the branch tree of an idea. Creates the root branch on first use. Use {"idea_id":"..."}; IDs accept unique prefixes.`,
	}, tools.BranchList)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name: ToolBranchCreate,
		Description: `Fork a child branch to explore an alternative direction. The child starts from the parent's synthesis, graph and files, ` +
			`and its conversation is seeded with a summary of the parent's. parent_id defaults to the active branch. The child becomes the active branch and its folder the live folder.`,
	}, tools.BranchCreate)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        ToolBranchSwitch,
		Description: "Make a branch active. The current branch's synthesis and graph are saved and the target's are restored.",
	}, tools.BranchSwitch)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        ToolBranchDelete,
		Description: "Delete a branch, its descendants, their folders and conversations. The root branch cannot be deleted.",
	}, tools.BranchDelete)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        ToolBranchRename,
		Description: "Change a branch label. The folder name is kept.",
	}, tools.BranchRename)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        ToolBranchActiveFolder,
		Description: "Return the folder of the active branch. Write project files here.",
	}, tools.BranchActiveFolder)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        ToolBranchCheck,
		Description: "Report branches without folders, folders without branches, and active-branch problems.",
	}, tools.BranchCheck)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        ToolSnapshotCreate,
		Description: "Capture the idea's synthesis, graph and active branch files as the next numbered version.",
	}, tools.SnapshotCreate)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        ToolSnapshotList,
		Description: "List an idea's snapshots, newest first.",
	}, tools.SnapshotList)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        ToolSnapshotGet,
		Description: `Show one snapshot. snapshot is an ID, a unique prefix, or a version like "v3" together with idea_id.`,
	}, tools.SnapshotGet)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        ToolSnapshotRestore,
		Description: "Roll the idea back to a snapshot: synthesis, graph and the active branch folder. Dependency directories are kept.",
	}, tools.SnapshotRestore)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        ToolUpdateSynthesis,
		Description: "Replace the idea's synthesized document.",
	}, tools.UpdateSynthesis)

	return server
}

// Serve runs the server over stdio until the client disconnects. stdout
// carries JSON-RPC only; logs must go elsewhere.
func Serve(ctx context.Context, appCtx *app.Context, version string) error {
	server := NewServer(appCtx, version)
	appCtx.Logger.Info("MCP server starting", zap.String("version", version))
	return server.Run(ctx, mcpsdk.NewStdioTransport())
}
