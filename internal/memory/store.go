package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned (wrapped) when a requested row does not exist.
// Test with errors.Is.
var ErrNotFound = errors.New("not found")

func notFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// ID prefixes for generated identifiers.
const (
	IdeaIDPrefix         = "idea"
	NoteIDPrefix         = "note"
	ConversationIDPrefix = "conv"
	NodeIDPrefix         = "node"
	EdgeIDPrefix         = "edge"
	BranchIDPrefix       = "br"
	SnapshotIDPrefix     = "snap"
)

// prefixTables maps an ID prefix to the table holding those IDs.
var prefixTables = map[string]string{
	IdeaIDPrefix:         "ideas",
	NoteIDPrefix:         "notes",
	ConversationIDPrefix: "conversations",
	NodeIDPrefix:         "graph_nodes",
	EdgeIDPrefix:         "graph_edges",
	BranchIDPrefix:       "conversation_branches",
	SnapshotIDPrefix:     "idea_snapshots",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// FindIDsByPrefix returns up to 50 IDs of the given kind (an ID prefix such
// as "idea") that start with prefix, sorted.
func (s *SQLiteStore) FindIDsByPrefix(ctx context.Context, kind, prefix string) ([]string, error) {
	table, ok := prefixTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown id kind %q", kind)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM `+table+` WHERE id LIKE ? ESCAPE '\' ORDER BY id LIMIT 50`,
		likeEscaper.Replace(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("query %s ids: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, err
	}
	return ids, nil
}
