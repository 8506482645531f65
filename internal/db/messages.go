package db

import (
	"context"
	"fmt"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one inbound or outbound conversation message. The messages
// table is append-only; the earliest user message per thread identifies the
// originating contact.
type Message struct {
	MessageID   string    `json:"message_id"`
	ThreadID    string    `json:"thread_id"`
	PhoneNumber string    `json:"phone_number"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// InsertMessage appends a message. Redelivered webhook events carry the same
// message id and are absorbed by the conflict clause.
func (db *DB) InsertMessage(ctx context.Context, msg *Message) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO messages (message_id, thread_id, phone_number, role, content)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (message_id) DO NOTHING`,
		msg.MessageID, msg.ThreadID, msg.PhoneNumber, msg.Role, msg.Content,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListMessages returns a thread's messages in arrival order.
func (db *DB) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT message_id, thread_id, phone_number, role, COALESCE(content, ''), created_at
		 FROM messages WHERE thread_id = $1 ORDER BY created_at ASC`,
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.MessageID, &msg.ThreadID, &msg.PhoneNumber,
			&msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
