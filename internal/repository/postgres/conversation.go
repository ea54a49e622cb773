package postgres

import (
	"context"
	"fmt"
	"time"

	"math-chat/internal/logger"
	"math-chat/internal/repository/db"

	"github.com/sirupsen/logrus"
)

// CreateConversationWithMessages atomically inserts a conversation row
// and its initial messages. Either everything becomes durable or
// nothing does.
func (p *PostgresStore) CreateConversationWithMessages(ctx context.Context, conv *db.Conversation, messages []db.Message) (*db.Conversation, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("a conversation must be created with at least one message")
	}
	for _, msg := range messages {
		if msg.ConversationID != conv.ID {
			return nil, fmt.Errorf("%w: message %s references conversation %s, not %s",
				db.ErrReferentialViolation, msg.ID, msg.ConversationID, conv.ID)
		}
	}

	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapStoreError(err)
	}
	defer tx.Rollback()

	created := *conv
	err = tx.QueryRowContext(ctx, `
	INSERT INTO conversations (id, title)
	VALUES ($1, $2)
	RETURNING created_at, updated_at
	`, conv.ID, conv.Title).Scan(&created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, mapStoreError(err)
	}

	created.Messages = make([]db.Message, 0, len(messages))
	for _, msg := range messages {
		stored := msg
		err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (id, conversation_id, type, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
		`, msg.ID, msg.ConversationID, msg.Type, msg.Content).Scan(&stored.CreatedAt)
		if err != nil {
			return nil, mapStoreError(err)
		}
		created.Messages = append(created.Messages, stored)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapStoreError(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": created.ID,
		"message_count":   len(created.Messages),
	}).Info("Created new conversation")

	return &created, nil
}

// AppendMessages atomically inserts messages into an existing
// conversation and advances its updated_at. The existence check and the
// timestamp bump are the same statement, so a missing conversation is
// reported before any message row is written.
func (p *PostgresStore) AppendMessages(ctx context.Context, conversationID string, messages []db.Message) ([]db.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("append requires at least one message")
	}

	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapStoreError(err)
	}
	defer tx.Rollback()

	var updatedAt time.Time
	err = tx.QueryRowContext(ctx, `
	UPDATE conversations
	SET updated_at = CURRENT_TIMESTAMP
	WHERE id = $1
	RETURNING updated_at
	`, conversationID).Scan(&updatedAt)
	if err != nil {
		return nil, mapStoreError(err)
	}

	stored := make([]db.Message, 0, len(messages))
	for _, msg := range messages {
		inserted := msg
		err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (id, conversation_id, type, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
		`, msg.ID, msg.ConversationID, msg.Type, msg.Content).Scan(&inserted.CreatedAt)
		if err != nil {
			return nil, mapStoreError(err)
		}
		stored = append(stored, inserted)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapStoreError(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"message_count":   len(stored),
	}).Debug("Appended messages to conversation")

	return stored, nil
}

// GetConversation retrieves a conversation with its messages in
// insertion order.
func (p *PostgresStore) GetConversation(ctx context.Context, id string) (*db.Conversation, error) {
	var conv db.Conversation
	err := p.conn.QueryRowContext(ctx, `
	SELECT id, title, created_at, updated_at
	FROM conversations
	WHERE id = $1
	`, id).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, mapStoreError(err)
	}

	conv.Messages, err = p.getMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	return &conv, nil
}

// ListConversations retrieves all conversations with their messages,
// most recently updated first.
func (p *PostgresStore) ListConversations(ctx context.Context) ([]db.Conversation, error) {
	rows, err := p.conn.QueryContext(ctx, `
	SELECT id, title, created_at, updated_at
	FROM conversations
	ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, mapStoreError(err)
	}
	defer rows.Close()

	conversations := make([]db.Conversation, 0)
	for rows.Next() {
		var conv db.Conversation
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, mapStoreError(err)
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(err)
	}

	for i := range conversations {
		conversations[i].Messages, err = p.getMessages(ctx, conversations[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return conversations, nil
}

func (p *PostgresStore) getMessages(ctx context.Context, conversationID string) ([]db.Message, error) {
	rows, err := p.conn.QueryContext(ctx, `
	SELECT id, conversation_id, type, content, created_at
	FROM messages
	WHERE conversation_id = $1
	ORDER BY seq ASC
	`, conversationID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	defer rows.Close()

	messages := make([]db.Message, 0)
	for rows.Next() {
		var msg db.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Type, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, mapStoreError(err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(err)
	}

	return messages, nil
}
