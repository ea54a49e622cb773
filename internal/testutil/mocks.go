package testutil

import (
	"context"
	"errors"

	"math-chat/internal/llm"
	"math-chat/internal/repository/db"
)

// MockStore is a mock implementation of db.Store for testing. Behavior
// is injected through the Func fields; calls are counted so tests can
// assert which operations ran.
type MockStore struct {
	CreateConversationWithMessagesFunc func(ctx context.Context, conv *db.Conversation, messages []db.Message) (*db.Conversation, error)
	AppendMessagesFunc                 func(ctx context.Context, conversationID string, messages []db.Message) ([]db.Message, error)
	GetConversationFunc                func(ctx context.Context, id string) (*db.Conversation, error)
	ListConversationsFunc              func(ctx context.Context) ([]db.Conversation, error)

	CreateCalls int
	AppendCalls int
	GetCalls    int
	ListCalls   int
}

func (m *MockStore) CreateConversationWithMessages(ctx context.Context, conv *db.Conversation, messages []db.Message) (*db.Conversation, error) {
	m.CreateCalls++
	if m.CreateConversationWithMessagesFunc != nil {
		return m.CreateConversationWithMessagesFunc(ctx, conv, messages)
	}
	return nil, errors.New("not implemented")
}

func (m *MockStore) AppendMessages(ctx context.Context, conversationID string, messages []db.Message) ([]db.Message, error) {
	m.AppendCalls++
	if m.AppendMessagesFunc != nil {
		return m.AppendMessagesFunc(ctx, conversationID, messages)
	}
	return nil, errors.New("not implemented")
}

func (m *MockStore) GetConversation(ctx context.Context, id string) (*db.Conversation, error) {
	m.GetCalls++
	if m.GetConversationFunc != nil {
		return m.GetConversationFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *MockStore) ListConversations(ctx context.Context) ([]db.Conversation, error) {
	m.ListCalls++
	if m.ListConversationsFunc != nil {
		return m.ListConversationsFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

// MockProvider is a mock implementation of llm.Provider for testing
type MockProvider struct {
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (string, error)

	CompleteCalls int
	// Requests records every request passed to Complete, in order.
	Requests []llm.CompletionRequest
}

func (m *MockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	m.CompleteCalls++
	m.Requests = append(m.Requests, req)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return "", errors.New("not implemented")
}
