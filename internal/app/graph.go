package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/util"
)

// GraphApp edits an idea's live dependency graph.
type GraphApp struct {
	ctx *Context
}

// NewGraphApp creates a new graph application service.
func NewGraphApp(appCtx *Context) *GraphApp {
	return &GraphApp{ctx: appCtx}
}

// NodeInput holds the editable fields of a node.
type NodeInput struct {
	Name        string
	Provider    string
	Description string
	Color       string
	X, Y        float64
}

// ResolveNodeID resolves a full node ID or unique prefix.
func (a *GraphApp) ResolveNodeID(ctx context.Context, idOrPrefix string) (string, error) {
	return util.ResolveID(ctx, a.ctx.Store, util.KindNode, idOrPrefix)
}

// State returns the idea's live graph.
func (a *GraphApp) State(ctx context.Context, ideaID string) (memory.GraphState, error) {
	return a.ctx.Store.GetFullState(ctx, ideaID)
}

// AddNode adds a node to the idea's graph.
func (a *GraphApp) AddNode(ctx context.Context, ideaID string, in NodeInput) (*memory.GraphNode, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("node name is required")
	}
	if _, err := a.ctx.Store.GetIdea(ctx, ideaID); err != nil {
		return nil, err
	}
	return a.ctx.Store.CreateNode(ctx, memory.GraphNode{
		IdeaID:      ideaID,
		Name:        strings.TrimSpace(in.Name),
		Provider:    in.Provider,
		Description: in.Description,
		Color:       in.Color,
		X:           in.X,
		Y:           in.Y,
	})
}

// RemoveNode deletes a node and the edges touching it.
func (a *GraphApp) RemoveNode(ctx context.Context, nodeID string) error {
	return a.ctx.Store.DeleteNode(ctx, nodeID)
}

// Connect adds a directed edge between two nodes of the same idea.
func (a *GraphApp) Connect(ctx context.Context, ideaID, sourceID, targetID, label string) (*memory.GraphEdge, error) {
	if sourceID == targetID {
		return nil, fmt.Errorf("an edge needs two different nodes")
	}
	return a.ctx.Store.CreateEdge(ctx, memory.GraphEdge{
		IdeaID:   ideaID,
		SourceID: sourceID,
		TargetID: targetID,
		Label:    label,
	})
}

// ResolveEdgeID resolves a full edge ID or unique prefix.
func (a *GraphApp) ResolveEdgeID(ctx context.Context, idOrPrefix string) (string, error) {
	return util.ResolveID(ctx, a.ctx.Store, util.KindEdge, idOrPrefix)
}

// Disconnect deletes an edge.
func (a *GraphApp) Disconnect(ctx context.Context, edgeID string) error {
	return a.ctx.Store.DeleteEdge(ctx, edgeID)
}
