package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/josephgoksu/ideaflow/internal/project"
)

const snapshotColumns = `id, idea_id, branch_id, version, synthesis, files, nodes, edges, tools_used, created_at`

func scanSnapshot(row interface{ Scan(...any) error }) (*Snapshot, error) {
	var snap Snapshot
	var branchID, synthesis sql.NullString
	var files, nodes, edges, tools, createdAt string

	if err := row.Scan(&snap.ID, &snap.IdeaID, &branchID, &snap.Version, &synthesis,
		&files, &nodes, &edges, &tools, &createdAt); err != nil {
		return nil, err
	}

	snap.BranchID = branchID.String
	snap.Synthesis = stringPtr(synthesis)
	snap.CreatedAt = parseTime(createdAt)

	var err error
	if snap.Files, err = unmarshalList[project.File](files, "files"); err != nil {
		return nil, err
	}
	if snap.Nodes, err = unmarshalList[GraphNode](nodes, "nodes"); err != nil {
		return nil, err
	}
	if snap.Edges, err = unmarshalList[GraphEdge](edges, "edges"); err != nil {
		return nil, err
	}
	if snap.ToolsUsed, err = unmarshalList[string](tools, "tools"); err != nil {
		return nil, err
	}
	return &snap, nil
}

// CreateSnapshot persists snap under the next version number of its idea,
// max(version)+1 starting at 1. The version is read and written in one
// transaction; UNIQUE(idea_id, version) rejects any duplicate.
func (s *SQLiteStore) CreateSnapshot(ctx context.Context, snap Snapshot) (*Snapshot, error) {
	if snap.IdeaID == "" {
		return nil, fmt.Errorf("snapshot idea id is required")
	}
	if snap.ID == "" {
		snap.ID = newID(SnapshotIDPrefix)
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	files, err := marshalList(snap.Files)
	if err != nil {
		return nil, fmt.Errorf("encode files: %w", err)
	}
	nodes, err := marshalList(snap.Nodes)
	if err != nil {
		return nil, fmt.Errorf("encode nodes: %w", err)
	}
	edges, err := marshalList(snap.Edges)
	if err != nil {
		return nil, fmt.Errorf("encode edges: %w", err)
	}
	tools, err := marshalList(snap.ToolsUsed)
	if err != nil {
		return nil, fmt.Errorf("encode tools: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(version), 0) + 1 FROM idea_snapshots WHERE idea_id = ?",
			snap.IdeaID).Scan(&snap.Version); err != nil {
			return fmt.Errorf("next snapshot version: %w", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO idea_snapshots (`+snapshotColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, snap.ID, snap.IdeaID, nullString(snap.BranchID), snap.Version, nullStringPtr(snap.Synthesis),
			files, nodes, edges, tools, formatTime(snap.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if snap.Files == nil {
		snap.Files = []project.File{}
	}
	if snap.Nodes == nil {
		snap.Nodes = []GraphNode{}
	}
	if snap.Edges == nil {
		snap.Edges = []GraphEdge{}
	}
	if snap.ToolsUsed == nil {
		snap.ToolsUsed = []string{}
	}
	return &snap, nil
}

// GetSnapshot retrieves a snapshot by ID.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM idea_snapshots WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("snapshot", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	return snap, nil
}

// GetSnapshotByVersion retrieves an idea's snapshot by version number.
func (s *SQLiteStore) GetSnapshotByVersion(ctx context.Context, ideaID string, version int) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+` FROM idea_snapshots
		WHERE idea_id = ? AND version = ?
	`, ideaID, version)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("snapshot", fmt.Sprintf("%s@v%d", ideaID, version))
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns an idea's snapshots, newest version first.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, ideaID string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+` FROM idea_snapshots
		WHERE idea_id = ? ORDER BY version DESC
	`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snapshots := []Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshots = append(snapshots, *snap)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Summary returns the listing view of a snapshot.
func (s *Snapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		ID:        s.ID,
		Version:   s.Version,
		ToolsUsed: s.ToolsUsed,
		FileCount: len(s.Files),
		NodeCount: len(s.Nodes),
		CreatedAt: s.CreatedAt,
	}
}
