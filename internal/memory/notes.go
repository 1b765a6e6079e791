package memory

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AddNote attaches a captured fragment to an idea.
func (s *SQLiteStore) AddNote(ctx context.Context, n Note) (*Note, error) {
	n.Content = strings.TrimSpace(n.Content)
	if n.Content == "" {
		return nil, fmt.Errorf("note content is required")
	}
	if n.ID == "" {
		n.ID = newID(NoteIDPrefix)
	}
	if n.Source == "" {
		n.Source = NoteSourceText
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	if _, err := s.GetIdea(ctx, n.IdeaID); err != nil {
		return nil, err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, idea_id, content, source, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, n.ID, n.IdeaID, n.Content, n.Source, formatTime(n.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	return &n, nil
}

// ListNotes returns an idea's notes in capture order.
func (s *SQLiteStore) ListNotes(ctx context.Context, ideaID string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, idea_id, content, source, created_at
		FROM notes WHERE idea_id = ? ORDER BY created_at, rowid
	`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	notes := []Note{}
	for rows.Next() {
		var n Note
		var createdAt string
		if err := rows.Scan(&n.ID, &n.IdeaID, &n.Content, &n.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.CreatedAt = parseTime(createdAt)
		notes = append(notes, n)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, err
	}
	return notes, nil
}

// DeleteNote removes a note by ID.
func (s *SQLiteStore) DeleteNote(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("note", id)
	}
	return nil
}
