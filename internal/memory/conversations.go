package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateConversation starts a new conversation, optionally owned by an idea.
func (s *SQLiteStore) CreateConversation(ctx context.Context, in NewConversation) (*Conversation, error) {
	now := time.Now().UTC()
	c := Conversation{
		ID:           newID(ConversationIDPrefix),
		IdeaID:       in.IdeaID,
		Title:        in.Title,
		SystemPrompt: in.SystemPrompt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if c.Title == "" {
		c.Title = "Conversation"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, idea_id, title, system_prompt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, nullString(c.IdeaID), c.Title, nullString(c.SystemPrompt),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return &c, nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var c Conversation
	var ideaID, systemPrompt sql.NullString
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, idea_id, title, system_prompt, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id).Scan(&c.ID, &ideaID, &c.Title, &systemPrompt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("conversation", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	c.IdeaID = ideaID.String
	c.SystemPrompt = systemPrompt.String
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

// AddMessage appends a message to a conversation.
func (s *SQLiteStore) AddMessage(ctx context.Context, conversationID, role, content string) (*Message, error) {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return nil, fmt.Errorf("invalid message role: %s", role)
	}

	m := Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"UPDATE conversations SET updated_at = ? WHERE id = ?",
			formatTime(m.CreatedAt), conversationID)
		if err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return notFound("conversation", conversationID)
		}

		result, err = tx.ExecContext(ctx, `
			INSERT INTO messages (conversation_id, role, content, created_at)
			VALUES (?, ?, ?, ?)
		`, m.ConversationID, m.Role, m.Content, formatTime(m.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		m.ID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns a conversation's messages oldest first. A positive
// limit keeps only the most recent limit messages.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM messages WHERE conversation_id = ? ORDER BY id DESC`
	args := []any{conversationID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	messages := []Message{}
	for rows.Next() {
		var m Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = parseTime(createdAt)
		messages = append(messages, m)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, err
	}

	// Reverse into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// GetMessageCount returns the number of messages in a conversation.
func (s *SQLiteStore) GetMessageCount(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// DeleteConversation removes a conversation; its messages cascade and any
// idea or branch pointing at it is unlinked.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("conversation", id)
	}
	return nil
}
