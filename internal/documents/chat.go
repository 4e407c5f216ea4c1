package documents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one turn of a conversation about a document.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AppendMessage stores a chat turn for document id.
func (s *Store) AppendMessage(ctx context.Context, id, role, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, document_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), id, role, content, time.Now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("storing chat message: %w", err)
	}
	return nil
}

// History returns up to limit of the most recent chat turns for document
// id, oldest first.
func (s *Store) History(ctx context.Context, id string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at FROM (
			SELECT role, content, created_at, rowid FROM chat_messages
			WHERE document_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?
		) ORDER BY created_at, rowid`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("loading chat history: %w", err)
	}
	defer rows.Close()

	var msgs []ChatMessage
	for rows.Next() {
		var m ChatMessage
		var created string
		if err := rows.Scan(&m.Role, &m.Content, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(created)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
