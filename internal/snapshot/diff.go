package snapshot

import (
	"context"
	"sort"

	"github.com/josephgoksu/ideaflow/internal/memory"
)

// Diff summarizes what changed between two versions of an idea.
type Diff struct {
	From         int      `json:"from"`
	To           int      `json:"to"`
	TextChanged  bool     `json:"textChanged"`
	FilesAdded   []string `json:"filesAdded"`
	FilesRemoved []string `json:"filesRemoved"`
	FilesChanged []string `json:"filesChanged"`
	NodesAdded   []string `json:"nodesAdded"`   // node names
	NodesRemoved []string `json:"nodesRemoved"` // node names
	EdgeDelta    int      `json:"edgeDelta"`
}

// Empty reports whether the two versions are identical in every tracked way.
func (d *Diff) Empty() bool {
	return !d.TextChanged && len(d.FilesAdded) == 0 && len(d.FilesRemoved) == 0 &&
		len(d.FilesChanged) == 0 && len(d.NodesAdded) == 0 && len(d.NodesRemoved) == 0 && d.EdgeDelta == 0
}

// Diff compares two snapshots of an idea by version number.
func (m *Manager) Diff(ctx context.Context, ideaID string, fromVersion, toVersion int) (*Diff, error) {
	from, err := m.store.GetSnapshotByVersion(ctx, ideaID, fromVersion)
	if err != nil {
		return nil, err
	}
	to, err := m.store.GetSnapshotByVersion(ctx, ideaID, toVersion)
	if err != nil {
		return nil, err
	}
	return Compare(from, to), nil
}

// Compare computes the Diff from a to b.
func Compare(a, b *memory.Snapshot) *Diff {
	d := &Diff{
		From:         a.Version,
		To:           b.Version,
		TextChanged:  textOf(a) != textOf(b),
		FilesAdded:   []string{},
		FilesRemoved: []string{},
		FilesChanged: []string{},
		NodesAdded:   []string{},
		NodesRemoved: []string{},
		EdgeDelta:    len(b.Edges) - len(a.Edges),
	}

	before := make(map[string]string, len(a.Files))
	for _, f := range a.Files {
		before[f.Path] = f.Content
	}
	after := make(map[string]string, len(b.Files))
	for _, f := range b.Files {
		after[f.Path] = f.Content
		old, ok := before[f.Path]
		switch {
		case !ok:
			d.FilesAdded = append(d.FilesAdded, f.Path)
		case old != f.Content:
			d.FilesChanged = append(d.FilesChanged, f.Path)
		}
	}
	for _, f := range a.Files {
		if _, ok := after[f.Path]; !ok {
			d.FilesRemoved = append(d.FilesRemoved, f.Path)
		}
	}

	nodesBefore := make(map[string]bool, len(a.Nodes))
	for _, n := range a.Nodes {
		nodesBefore[n.ID] = true
	}
	nodesAfter := make(map[string]bool, len(b.Nodes))
	for _, n := range b.Nodes {
		nodesAfter[n.ID] = true
		if !nodesBefore[n.ID] {
			d.NodesAdded = append(d.NodesAdded, n.Name)
		}
	}
	for _, n := range a.Nodes {
		if !nodesAfter[n.ID] {
			d.NodesRemoved = append(d.NodesRemoved, n.Name)
		}
	}

	sort.Strings(d.FilesAdded)
	sort.Strings(d.FilesRemoved)
	sort.Strings(d.FilesChanged)
	return d
}

func textOf(s *memory.Snapshot) string {
	if s.Synthesis == nil {
		return ""
	}
	return *s.Synthesis
}
