package db

import "time"

// Message types
const (
	MessageTypeUser      = "user"
	MessageTypeAssistant = "assistant"
)

// Conversation represents a titled thread owning an ordered list of messages
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Messages  []Message `json:"messages"`
}

// Message represents one turn in a conversation, authored by the user
// or the assistant. Messages are immutable once stored.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Content        string    `json:"content"`
	Type           string    `json:"type"`
	CreatedAt      time.Time `json:"timestamp"`
}
