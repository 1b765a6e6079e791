package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const nodeColumns = `id, idea_id, name, provider, description, pricing, x, y, color, created_at, updated_at`
const edgeColumns = `id, idea_id, source_id, target_id, label, technical_details, created_at`

func scanNode(row interface{ Scan(...any) error }) (*GraphNode, error) {
	var n GraphNode
	var provider, description, pricing, color sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&n.ID, &n.IdeaID, &n.Name, &provider, &description, &pricing,
		&n.X, &n.Y, &color, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	n.Provider = provider.String
	n.Description = description.String
	n.Pricing = unmarshalMap(pricing)
	n.Color = color.String
	n.CreatedAt = parseTime(createdAt)
	n.UpdatedAt = parseTime(updatedAt)
	return &n, nil
}

func scanEdge(row interface{ Scan(...any) error }) (*GraphEdge, error) {
	var e GraphEdge
	var label, details sql.NullString
	var createdAt string

	if err := row.Scan(&e.ID, &e.IdeaID, &e.SourceID, &e.TargetID, &label, &details, &createdAt); err != nil {
		return nil, err
	}

	e.Label = label.String
	e.TechnicalDetails = unmarshalMap(details)
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

// insertNode writes n, keeping any caller-supplied ID and timestamps.
func insertNode(ctx context.Context, q queryer, n *GraphNode) error {
	if n.ID == "" {
		n.ID = newID(NodeIDPrefix)
	}
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("node name is required")
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}

	pricing, err := marshalMap(n.Pricing)
	if err != nil {
		return fmt.Errorf("marshal pricing: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO graph_nodes (`+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.IdeaID, n.Name, nullString(n.Provider), nullString(n.Description), pricing,
		n.X, n.Y, nullString(n.Color), formatTime(n.CreatedAt), formatTime(n.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert node: %w", err)
	}
	return nil
}

// insertEdge writes e, keeping any caller-supplied ID and timestamp.
func insertEdge(ctx context.Context, q queryer, e *GraphEdge) error {
	if e.ID == "" {
		e.ID = newID(EdgeIDPrefix)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	details, err := marshalMap(e.TechnicalDetails)
	if err != nil {
		return fmt.Errorf("marshal technical details: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO graph_edges (`+edgeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.IdeaID, e.SourceID, e.TargetID, nullString(e.Label), details, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}
	return nil
}

// === Nodes ===

// CreateNode adds a node to an idea's graph. A caller-supplied ID is kept.
func (s *SQLiteStore) CreateNode(ctx context.Context, n GraphNode) (*GraphNode, error) {
	if n.IdeaID == "" {
		return nil, fmt.Errorf("node idea id is required")
	}
	if err := insertNode(ctx, s.db, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// GetNode retrieves a node by ID.
func (s *SQLiteStore) GetNode(ctx context.Context, id string) (*GraphNode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM graph_nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("node", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query node: %w", err)
	}
	return n, nil
}

// ListNodes returns an idea's nodes in creation order.
func (s *SQLiteStore) ListNodes(ctx context.Context, ideaID string) ([]GraphNode, error) {
	return listNodes(ctx, s.db, ideaID)
}

func listNodes(ctx context.Context, q queryer, ideaID string) ([]GraphNode, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+nodeColumns+` FROM graph_nodes
		WHERE idea_id = ? ORDER BY created_at, id
	`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	nodes := []GraphNode{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, *n)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, err
	}
	return nodes, nil
}

// UpdateNode overwrites a node's mutable fields.
func (s *SQLiteStore) UpdateNode(ctx context.Context, n GraphNode) error {
	if n.ID == "" {
		return fmt.Errorf("node id is required")
	}
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("node name is required")
	}
	pricing, err := marshalMap(n.Pricing)
	if err != nil {
		return fmt.Errorf("marshal pricing: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE graph_nodes
		SET name = ?, provider = ?, description = ?, pricing = ?, x = ?, y = ?, color = ?, updated_at = ?
		WHERE id = ?
	`, n.Name, nullString(n.Provider), nullString(n.Description), pricing, n.X, n.Y,
		nullString(n.Color), formatTime(time.Now()), n.ID)
	if err != nil {
		return fmt.Errorf("update node: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update node rows affected: %w", err)
	}
	if rows == 0 {
		return notFound("node", n.ID)
	}
	return nil
}

// DeleteNode removes a node and its edges.
func (s *SQLiteStore) DeleteNode(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM graph_nodes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return notFound("node", id)
	}
	return nil
}

// === Edges ===

// CreateEdge links two nodes of the same idea.
func (s *SQLiteStore) CreateEdge(ctx context.Context, e GraphEdge) (*GraphEdge, error) {
	if e.SourceID == "" || e.TargetID == "" {
		return nil, fmt.Errorf("edge source and target are required")
	}
	for _, id := range []string{e.SourceID, e.TargetID} {
		n, err := s.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		if e.IdeaID == "" {
			e.IdeaID = n.IdeaID
		}
		if n.IdeaID != e.IdeaID {
			return nil, fmt.Errorf("node %s belongs to another idea", id)
		}
	}

	if err := insertEdge(ctx, s.db, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEdges returns an idea's edges in creation order.
func (s *SQLiteStore) ListEdges(ctx context.Context, ideaID string) ([]GraphEdge, error) {
	return listEdges(ctx, s.db, ideaID)
}

func listEdges(ctx context.Context, q queryer, ideaID string) ([]GraphEdge, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+edgeColumns+` FROM graph_edges
		WHERE idea_id = ? ORDER BY created_at, id
	`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	edges := []GraphEdge{}
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, *e)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, err
	}
	return edges, nil
}

// DeleteEdge removes an edge by ID.
func (s *SQLiteStore) DeleteEdge(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM graph_edges WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete edge: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return notFound("edge", id)
	}
	return nil
}

// === Whole-graph operations ===

// GetFullState returns every node and edge of an idea.
func (s *SQLiteStore) GetFullState(ctx context.Context, ideaID string) (GraphState, error) {
	nodes, err := s.ListNodes(ctx, ideaID)
	if err != nil {
		return GraphState{}, err
	}
	edges, err := s.ListEdges(ctx, ideaID)
	if err != nil {
		return GraphState{}, err
	}
	return GraphState{Nodes: nodes, Edges: edges}, nil
}

// DeleteAllNodesForIdea removes an idea's whole graph; edges cascade.
func (s *SQLiteStore) DeleteAllNodesForIdea(ctx context.Context, ideaID string) error {
	return deleteAllNodes(ctx, s.db, ideaID)
}

func deleteAllNodes(ctx context.Context, q queryer, ideaID string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM graph_nodes WHERE idea_id = ?", ideaID); err != nil {
		return fmt.Errorf("delete nodes: %w", err)
	}
	return nil
}

// ReplaceGraph swaps an idea's graph for state in one transaction, keeping
// the IDs carried by state. Edges whose endpoints are not part of state are
// skipped; the number skipped is returned.
func (s *SQLiteStore) ReplaceGraph(ctx context.Context, ideaID string, state GraphState) (int, error) {
	skipped := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := deleteAllNodes(ctx, tx, ideaID); err != nil {
			return err
		}

		present := make(map[string]bool, len(state.Nodes))
		for _, n := range state.Nodes {
			n.IdeaID = ideaID
			if err := insertNode(ctx, tx, &n); err != nil {
				return fmt.Errorf("restore node %s: %w", n.ID, err)
			}
			present[n.ID] = true
		}

		for _, e := range state.Edges {
			if !present[e.SourceID] || !present[e.TargetID] {
				skipped++
				continue
			}
			e.IdeaID = ideaID
			if err := insertEdge(ctx, tx, &e); err != nil {
				return fmt.Errorf("restore edge %s: %w", e.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return skipped, nil
}
