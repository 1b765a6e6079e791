package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const ideaColumns = `id, title, status, synthesis, synthesis_version, conversation_id, project_path, created_at, updated_at`

func scanIdea(row interface{ Scan(...any) error }) (*Idea, error) {
	var i Idea
	var status, createdAt, updatedAt string
	var synthesis, conversationID, projectPath sql.NullString

	if err := row.Scan(&i.ID, &i.Title, &status, &synthesis, &i.SynthesisVersion,
		&conversationID, &projectPath, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	i.Status = IdeaStatus(status)
	i.Synthesis = stringPtr(synthesis)
	i.ConversationID = conversationID.String
	i.ProjectPath = projectPath.String
	i.CreatedAt = parseTime(createdAt)
	i.UpdatedAt = parseTime(updatedAt)
	return &i, nil
}

// CreateIdea stores a new idea. ID, status and timestamps are filled in when
// empty; the stored idea is returned.
func (s *SQLiteStore) CreateIdea(ctx context.Context, idea Idea) (*Idea, error) {
	idea.Title = strings.TrimSpace(idea.Title)
	if idea.Title == "" {
		return nil, fmt.Errorf("idea title is required")
	}
	if idea.ID == "" {
		idea.ID = newID(IdeaIDPrefix)
	}
	if idea.Status == "" {
		idea.Status = IdeaStatusActive
	}
	if !idea.Status.Valid() {
		return nil, fmt.Errorf("invalid idea status: %s", idea.Status)
	}
	now := time.Now().UTC()
	if idea.CreatedAt.IsZero() {
		idea.CreatedAt = now
	}
	idea.UpdatedAt = idea.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ideas (`+ideaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, idea.ID, idea.Title, string(idea.Status), nullStringPtr(idea.Synthesis), idea.SynthesisVersion,
		nullString(idea.ConversationID), nullString(idea.ProjectPath),
		formatTime(idea.CreatedAt), formatTime(idea.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert idea: %w", err)
	}

	return &idea, nil
}

// GetIdea retrieves an idea by ID.
func (s *SQLiteStore) GetIdea(ctx context.Context, id string) (*Idea, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE id = ?`, id)
	idea, err := scanIdea(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("idea", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query idea: %w", err)
	}
	return idea, nil
}

// ListIdeas returns ideas, most recently updated first. An empty status
// lists every idea.
func (s *SQLiteStore) ListIdeas(ctx context.Context, status IdeaStatus) ([]Idea, error) {
	query := `SELECT ` + ideaColumns + ` FROM ideas`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY updated_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ideas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ideas := []Idea{}
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		ideas = append(ideas, *idea)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, err
	}
	return ideas, nil
}

// UpdateIdeaStatus changes an idea's lifecycle status.
func (s *SQLiteStore) UpdateIdeaStatus(ctx context.Context, id string, status IdeaStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid idea status: %s", status)
	}
	return s.updateIdea(ctx, id, "status = ?", string(status))
}

// RenameIdea changes an idea's title.
func (s *SQLiteStore) RenameIdea(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("idea title is required")
	}
	return s.updateIdea(ctx, id, "title = ?", title)
}

// UpdateSynthesis overwrites the synthesized text and bumps the version counter.
func (s *SQLiteStore) UpdateSynthesis(ctx context.Context, id, text string) error {
	return s.SetSynthesis(ctx, id, &text)
}

// SetSynthesis is UpdateSynthesis for a nullable text; nil clears the
// document. The version counter is bumped either way.
func (s *SQLiteStore) SetSynthesis(ctx context.Context, id string, text *string) error {
	return s.updateIdea(ctx, id, "synthesis = ?, synthesis_version = synthesis_version + 1", nullStringPtr(text))
}

// GetSynthesisContent returns the idea's synthesized text, or nil when none
// has been written yet.
func (s *SQLiteStore) GetSynthesisContent(ctx context.Context, id string) (*string, error) {
	var synthesis sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT synthesis FROM ideas WHERE id = ?`, id).Scan(&synthesis)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("idea", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query synthesis: %w", err)
	}
	return stringPtr(synthesis), nil
}

// SetProjectPath records the idea's project root. An empty path clears it.
func (s *SQLiteStore) SetProjectPath(ctx context.Context, id, path string) error {
	return s.updateIdea(ctx, id, "project_path = ?", nullString(path))
}

// SetIdeaConversation points the idea at its current conversation.
func (s *SQLiteStore) SetIdeaConversation(ctx context.Context, id, conversationID string) error {
	return s.updateIdea(ctx, id, "conversation_id = ?", nullString(conversationID))
}

// DeleteIdea removes the idea row. Notes, conversations, graph, branches and
// snapshots cascade. The project folder is not touched.
func (s *SQLiteStore) DeleteIdea(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM ideas WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete idea: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("idea", id)
	}
	return nil
}

func (s *SQLiteStore) updateIdea(ctx context.Context, id, set string, arg any) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE ideas SET "+set+", updated_at = ? WHERE id = ?",
		arg, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update idea: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update idea rows affected: %w", err)
	}
	if n == 0 {
		return notFound("idea", id)
	}
	return nil
}
