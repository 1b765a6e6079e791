package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const branchColumns = `id, idea_id, parent_id, conversation_id, label, depth, folder_name,
	synthesis, graph_state, compacted_summary, summary_message_count, is_active, created_at, updated_at`

func scanBranch(row interface{ Scan(...any) error }) (*Branch, error) {
	var b Branch
	var parentID, conversationID, synthesis, graphState, summary sql.NullString
	var isActive int
	var createdAt, updatedAt string

	if err := row.Scan(&b.ID, &b.IdeaID, &parentID, &conversationID, &b.Label, &b.Depth, &b.FolderName,
		&synthesis, &graphState, &summary, &b.SummaryMessageCount, &isActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	b.ParentID = parentID.String
	b.ConversationID = conversationID.String
	b.Synthesis = stringPtr(synthesis)
	b.CompactedSummary = summary.String
	b.IsActive = isActive == 1
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)

	b.Graph = GraphState{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	if graphState.Valid && graphState.String != "" {
		if err := json.Unmarshal([]byte(graphState.String), &b.Graph); err != nil {
			return nil, fmt.Errorf("decode branch graph: %w", err)
		}
	}
	return &b, nil
}

func marshalGraph(g GraphState) (string, error) {
	if g.Nodes == nil {
		g.Nodes = []GraphNode{}
	}
	if g.Edges == nil {
		g.Edges = []GraphEdge{}
	}
	b, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("encode branch graph: %w", err)
	}
	return string(b), nil
}

// CreateBranch inserts a branch row. A non-empty ParentID must name an
// existing branch of the same idea, which keeps the tree acyclic.
func (s *SQLiteStore) CreateBranch(ctx context.Context, b Branch) (*Branch, error) {
	if b.IdeaID == "" {
		return nil, fmt.Errorf("branch idea id is required")
	}
	b.FolderName = strings.TrimSpace(b.FolderName)
	if b.FolderName == "" {
		return nil, fmt.Errorf("branch folder name is required")
	}
	if b.ID == "" {
		b.ID = newID(BranchIDPrefix)
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = b.CreatedAt

	if b.ParentID != "" {
		parent, err := s.GetBranch(ctx, b.ParentID)
		if err != nil {
			return nil, fmt.Errorf("parent branch: %w", err)
		}
		if parent.IdeaID != b.IdeaID {
			return nil, fmt.Errorf("parent branch %s belongs to another idea", b.ParentID)
		}
	}

	graph, err := marshalGraph(b.Graph)
	if err != nil {
		return nil, err
	}

	active := 0
	if b.IsActive {
		active = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversation_branches (`+branchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.IdeaID, nullString(b.ParentID), nullString(b.ConversationID), b.Label, b.Depth, b.FolderName,
		nullStringPtr(b.Synthesis), graph, nullString(b.CompactedSummary), b.SummaryMessageCount, active,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert branch: %w", err)
	}
	return &b, nil
}

// GetBranch retrieves a branch by ID.
func (s *SQLiteStore) GetBranch(ctx context.Context, id string) (*Branch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+branchColumns+` FROM conversation_branches WHERE id = ?`, id)
	b, err := scanBranch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("branch", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query branch: %w", err)
	}
	return b, nil
}

// GetRootBranch returns the parentless branch of an idea.
func (s *SQLiteStore) GetRootBranch(ctx context.Context, ideaID string) (*Branch, error) {
	return s.getBranchWhere(ctx, "root branch", ideaID, "parent_id IS NULL")
}

// GetActiveBranch returns the active branch of an idea.
func (s *SQLiteStore) GetActiveBranch(ctx context.Context, ideaID string) (*Branch, error) {
	return s.getBranchWhere(ctx, "active branch", ideaID, "is_active = 1")
}

func (s *SQLiteStore) getBranchWhere(ctx context.Context, entity, ideaID, cond string) (*Branch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+branchColumns+` FROM conversation_branches
		WHERE idea_id = ? AND `+cond+` LIMIT 1
	`, ideaID)
	b, err := scanBranch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(entity, ideaID)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", entity, err)
	}
	return b, nil
}

// ListBranches returns an idea's branches as a flat list, shallowest and
// oldest first.
func (s *SQLiteStore) ListBranches(ctx context.Context, ideaID string) ([]Branch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+branchColumns+` FROM conversation_branches
		WHERE idea_id = ? ORDER BY depth, created_at, rowid
	`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("query branches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	branches := []Branch{}
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		branches = append(branches, *b)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, err
	}
	return branches, nil
}

// SetBranchActive flips a branch's active flag. Activating a branch while
// another branch of the same idea is active fails on the unique index.
func (s *SQLiteStore) SetBranchActive(ctx context.Context, id string, active bool) error {
	flag := 0
	if active {
		flag = 1
	}
	return s.updateBranch(ctx, id, "is_active = ?", flag)
}

// SaveBranchState stores the frozen text and graph of a branch.
func (s *SQLiteStore) SaveBranchState(ctx context.Context, id string, synthesis *string, graph GraphState) error {
	encoded, err := marshalGraph(graph)
	if err != nil {
		return err
	}
	return s.updateBranch(ctx, id, "synthesis = ?, graph_state = ?", nullStringPtr(synthesis), encoded)
}

// CacheBranchSummary stores a compacted conversation summary together with
// the message count it was computed from.
func (s *SQLiteStore) CacheBranchSummary(ctx context.Context, id, summary string, messageCount int) error {
	return s.updateBranch(ctx, id, "compacted_summary = ?, summary_message_count = ?", summary, messageCount)
}

// RenameBranch changes a branch's display label. The folder name is fixed.
func (s *SQLiteStore) RenameBranch(ctx context.Context, id, label string) error {
	return s.updateBranch(ctx, id, "label = ?", label)
}

// DeleteBranches removes the given branch rows in one statement, so a
// subtree can be removed without tripping the parent reference.
func (s *SQLiteStore) DeleteBranches(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM conversation_branches WHERE id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("delete branches: %w", err)
	}
	return nil
}

func (s *SQLiteStore) updateBranch(ctx context.Context, id, set string, args ...any) error {
	args = append(args, formatTime(time.Now()), id)
	result, err := s.db.ExecContext(ctx,
		"UPDATE conversation_branches SET "+set+", updated_at = ? WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update branch: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update branch rows affected: %w", err)
	}
	if n == 0 {
		return notFound("branch", id)
	}
	return nil
}
