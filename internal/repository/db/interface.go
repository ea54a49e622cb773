package db

import "context"

// Store defines the interface for conversation persistence.
// This allows for easier testing through mocking and decouples the
// service layer from the specific database implementation.
//
// Both write operations are atomic: either every row in the call
// becomes durable, or none do. Partial inserts are never observable.
type Store interface {
	// CreateConversationWithMessages inserts one conversation row and
	// its initial messages (at least one) in a single transaction and
	// returns the stored conversation with database timestamps.
	// Fails with ErrReferentialViolation if any message does not
	// reference the conversation being created, and ErrUniqueViolation
	// if an id already exists.
	CreateConversationWithMessages(ctx context.Context, conv *Conversation, messages []Message) (*Conversation, error)

	// AppendMessages inserts messages referencing an existing
	// conversation and advances its updatedAt, in a single transaction.
	// Fails with ErrNotFound if the conversation does not exist.
	AppendMessages(ctx context.Context, conversationID string, messages []Message) ([]Message, error)

	// GetConversation returns a conversation with its messages in
	// insertion order, or ErrNotFound.
	GetConversation(ctx context.Context, id string) (*Conversation, error)

	// ListConversations returns all conversations with messages
	// included, ordered by updatedAt descending.
	ListConversations(ctx context.Context) ([]Conversation, error)
}
