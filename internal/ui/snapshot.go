package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/snapshot"
	"github.com/josephgoksu/ideaflow/internal/util"
)

// RenderSnapshotTable lists snapshots newest first.
func RenderSnapshotTable(snaps []memory.SnapshotSummary) string {
	if len(snaps) == 0 {
		return StyleSubtle.Render("No snapshots yet.") + "\n"
	}
	t := &Table{
		Headers:  []string{"VERSION", "ID", "FILES", "NODES", "TOOLS", "CREATED"},
		MaxWidth: 40,
	}
	for _, s := range snaps {
		tools := strings.Join(s.ToolsUsed, ", ")
		if tools == "" {
			tools = "manual"
		}
		t.Rows = append(t.Rows, []string{
			fmt.Sprintf("v%d", s.Version),
			util.ShortID(s.ID, 0),
			fmt.Sprintf("%d", s.FileCount),
			fmt.Sprintf("%d", s.NodeCount),
			tools,
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return t.Render()
}

// RenderDiff prints a snapshot diff with +/-/~ markers.
func RenderDiff(d *snapshot.Diff) string {
	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(fmt.Sprintf("v%d → v%d", d.From, d.To)))
	sb.WriteString("\n")

	if d.Empty() {
		sb.WriteString(StyleSubtle.Render("  No changes.") + "\n")
		return sb.String()
	}

	if d.TextChanged {
		sb.WriteString(StyleChanged.Render("  ~ text") + "\n")
	}
	writeList(&sb, "+", StyleAdded, d.FilesAdded)
	writeList(&sb, "-", StyleRemoved, d.FilesRemoved)
	writeList(&sb, "~", StyleChanged, d.FilesChanged)
	writeList(&sb, "+ node", StyleAdded, d.NodesAdded)
	writeList(&sb, "- node", StyleRemoved, d.NodesRemoved)
	if d.EdgeDelta != 0 {
		sb.WriteString(StyleChanged.Render(fmt.Sprintf("  ~ edges %+d", d.EdgeDelta)) + "\n")
	}
	return sb.String()
}

func writeList(sb *strings.Builder, marker string, style lipgloss.Style, items []string) {
	for _, it := range items {
		sb.WriteString(style.Render(fmt.Sprintf("  %s %s", marker, it)))
		sb.WriteString("\n")
	}
}
