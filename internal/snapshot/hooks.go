package snapshot

import (
	"context"

	"github.com/josephgoksu/ideaflow/internal/memory"
)

// MutatingTools are the assistant tools that change text, graph or files.
// A turn that used none of them leaves nothing new to capture.
var MutatingTools = map[string]bool{
	"update_synthesis":     true,
	"add_node":             true,
	"update_node":          true,
	"delete_node":          true,
	"add_edge":             true,
	"delete_edge":          true,
	"write_file":           true,
	"delete_file":          true,
	"scaffold_project":     true,
	"install_dependencies": true,
}

// HasMutatingTool reports whether any of tools changes idea state.
func HasMutatingTool(tools []string) bool {
	for _, t := range tools {
		if MutatingTools[t] {
			return true
		}
	}
	return false
}

// AfterTurn is called once an assistant turn finishes. It snapshots the idea
// when the turn used a state-changing tool and returns nil otherwise.
func (m *Manager) AfterTurn(ctx context.Context, ideaID string, toolsUsed []string) (*memory.Snapshot, error) {
	if !HasMutatingTool(toolsUsed) {
		return nil, nil
	}
	return m.CreateSnapshot(ctx, ideaID, dedupe(toolsUsed))
}

// dedupe keeps the first occurrence of each tool name.
func dedupe(tools []string) []string {
	seen := make(map[string]bool, len(tools))
	out := make([]string, 0, len(tools))
	for _, t := range tools {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
