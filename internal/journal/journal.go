package journal

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Message is one journal row.
type Message struct {
	ID        int64  `db:"id" json:"id"`
	Timestamp string `db:"timestamp" json:"timestamp"`
	Username  string `db:"username" json:"username"`
	Content   string `db:"content" json:"content"`
}

// Store records outgoing and incoming assistant messages in the messages table.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Record(ctx context.Context, username, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (username, content) VALUES (?, ?)`, username, content)
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}

// Recent returns up to limit messages, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []Message
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, timestamp, username, content FROM messages ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	return out, nil
}
