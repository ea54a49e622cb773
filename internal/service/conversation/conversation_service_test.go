package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"math-chat/internal/config"
	"math-chat/internal/llm"
	"math-chat/internal/repository/db"
	"math-chat/internal/testutil"
)

func newTestConfig() *config.AppConfig {
	return &config.AppConfig{
		Anthropic: config.AnthropicConfig{
			MathSystemPrompt: "Answer with LaTeX math.",
			TitlePrompt:      "Generate a short title.",
		},
		Models: config.NewModelsConfig(),
	}
}

// echoStore returns what it is given, filling in timestamps the way the
// real store does.
func echoStore() *testutil.MockStore {
	now := time.Now()
	return &testutil.MockStore{
		CreateConversationWithMessagesFunc: func(ctx context.Context, conv *db.Conversation, messages []db.Message) (*db.Conversation, error) {
			created := *conv
			created.CreatedAt = now
			created.UpdatedAt = now
			for _, msg := range messages {
				msg.CreatedAt = now
				created.Messages = append(created.Messages, msg)
			}
			return &created, nil
		},
		AppendMessagesFunc: func(ctx context.Context, conversationID string, messages []db.Message) ([]db.Message, error) {
			stored := make([]db.Message, 0, len(messages))
			for _, msg := range messages {
				msg.CreatedAt = now
				stored = append(stored, msg)
			}
			return stored, nil
		},
	}
}

func TestCreateConversation_Success(t *testing.T) {
	store := echoStore()
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			if req.System == "Generate a short title." {
				return "Quadratic Formula", nil
			}
			return `\[ x = \frac{-b \pm \sqrt{b^2-4ac}}{2a} \]`, nil
		},
	}
	service := NewConversationService(store, provider, newTestConfig())

	conv, err := service.CreateConversation(context.Background(), "", "What is the quadratic formula?", "")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	if conv.Title != "Quadratic Formula" {
		t.Errorf("expected inferred title, got %q", conv.Title)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected exactly 2 messages, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Type != db.MessageTypeUser {
		t.Errorf("first message should be user, got %q", conv.Messages[0].Type)
	}
	if conv.Messages[1].Type != db.MessageTypeAssistant {
		t.Errorf("second message should be assistant, got %q", conv.Messages[1].Type)
	}
	if conv.Messages[0].ConversationID != conv.ID || conv.Messages[1].ConversationID != conv.ID {
		t.Error("messages must reference the created conversation")
	}
	if provider.CompleteCalls != 2 {
		t.Errorf("expected 2 provider calls (title + answer), got %d", provider.CompleteCalls)
	}
	if store.CreateCalls != 1 {
		t.Errorf("expected 1 store create call, got %d", store.CreateCalls)
	}
}

func TestCreateConversation_ExplicitTitleSkipsInference(t *testing.T) {
	store := echoStore()
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			return "The answer is $4$.", nil
		},
	}
	service := NewConversationService(store, provider, newTestConfig())

	conv, err := service.CreateConversation(context.Background(), "Homework", "What is 2+2?", "")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	if conv.Title != "Homework" {
		t.Errorf("expected explicit title, got %q", conv.Title)
	}
	if provider.CompleteCalls != 1 {
		t.Errorf("expected 1 provider call (answer only), got %d", provider.CompleteCalls)
	}
}

func TestCreateConversation_TitleInferenceFallsBack(t *testing.T) {
	store := echoStore()
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			if req.System == "Generate a short title." {
				return "", fmt.Errorf("%w: API returned status 529", llm.ErrCompletionFailed)
			}
			return "answer", nil
		},
	}
	service := NewConversationService(store, provider, newTestConfig())

	conv, err := service.CreateConversation(context.Background(), "", "solve the integral of x squared from zero to one", "")
	if err != nil {
		t.Fatalf("title inference failure must not abort creation: %v", err)
	}

	if conv.Title != "solve the integral of x..." {
		t.Errorf("expected truncated fallback title, got %q", conv.Title)
	}
}

func TestCreateConversation_TitleInferenceUsesFastModel(t *testing.T) {
	store := echoStore()
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			return "ok", nil
		},
	}
	cfg := newTestConfig()
	service := NewConversationService(store, provider, cfg)

	if _, err := service.CreateConversation(context.Background(), "", "What is 2+2?", ""); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	if len(provider.Requests) != 2 {
		t.Fatalf("expected 2 provider requests, got %d", len(provider.Requests))
	}
	if provider.Requests[0].Model != cfg.Models.FastModel() {
		t.Errorf("title inference should use the fast model, got %q", provider.Requests[0].Model)
	}
}

func TestCreateConversation_EmptyMessage(t *testing.T) {
	store := echoStore()
	provider := &testutil.MockProvider{}
	service := NewConversationService(store, provider, newTestConfig())

	_, err := service.CreateConversation(context.Background(), "", "   ", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if provider.CompleteCalls != 0 {
		t.Errorf("invalid input must not reach the provider, got %d calls", provider.CompleteCalls)
	}
	if store.CreateCalls != 0 {
		t.Errorf("invalid input must not reach the store, got %d calls", store.CreateCalls)
	}
}

func TestCreateConversation_CompletionFailure(t *testing.T) {
	store := echoStore()
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			return "", fmt.Errorf("%w: API returned status 500", llm.ErrCompletionFailed)
		},
	}
	service := NewConversationService(store, provider, newTestConfig())

	_, err := service.CreateConversation(context.Background(), "Title", "What is 2+2?", "")
	if !errors.Is(err, llm.ErrCompletionFailed) {
		t.Fatalf("expected ErrCompletionFailed, got %v", err)
	}
	if store.CreateCalls != 0 {
		t.Errorf("a failed completion must persist nothing, store was called %d times", store.CreateCalls)
	}
}

func TestCreateConversation_PersistenceFailure(t *testing.T) {
	store := &testutil.MockStore{
		CreateConversationWithMessagesFunc: func(ctx context.Context, conv *db.Conversation, messages []db.Message) (*db.Conversation, error) {
			return nil, fmt.Errorf("%w: connection refused", db.ErrUnavailable)
		},
	}
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			return "answer", nil
		},
	}
	service := NewConversationService(store, provider, newTestConfig())

	_, err := service.CreateConversation(context.Background(), "Title", "What is 2+2?", "")
	if !errors.Is(err, ErrPersistenceFailed) {
		t.Fatalf("expected ErrPersistenceFailed, got %v", err)
	}
	// The store sub-kind stays visible for status mapping.
	if !errors.Is(err, db.ErrUnavailable) {
		t.Errorf("expected wrapped store error to remain inspectable, got %v", err)
	}
}

func TestAppendMessage_Success(t *testing.T) {
	store := echoStore()
	store.GetConversationFunc = func(ctx context.Context, id string) (*db.Conversation, error) {
		return &db.Conversation{ID: id, Title: "Existing"}, nil
	}
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			return "The derivative is $2x$.", nil
		},
	}
	service := NewConversationService(store, provider, newTestConfig())

	msg, err := service.AppendMessage(context.Background(), "conv-1", "differentiate x^2", "user", "")
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if msg.Type != db.MessageTypeAssistant {
		t.Errorf("expected assistant message back, got %q", msg.Type)
	}
	if msg.Content != "The derivative is $2x$." {
		t.Errorf("unexpected assistant content %q", msg.Content)
	}
	if msg.ConversationID != "conv-1" {
		t.Errorf("assistant message references %q, want conv-1", msg.ConversationID)
	}
	if store.AppendCalls != 1 {
		t.Errorf("expected 1 append call, got %d", store.AppendCalls)
	}
}

func TestAppendMessage_PairIsUserThenAssistant(t *testing.T) {
	var appended []db.Message
	store := echoStore()
	store.GetConversationFunc = func(ctx context.Context, id string) (*db.Conversation, error) {
		return &db.Conversation{ID: id}, nil
	}
	inner := store.AppendMessagesFunc
	store.AppendMessagesFunc = func(ctx context.Context, conversationID string, messages []db.Message) ([]db.Message, error) {
		appended = messages
		return inner(ctx, conversationID, messages)
	}
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			return "answer", nil
		},
	}
	service := NewConversationService(store, provider, newTestConfig())

	if _, err := service.AppendMessage(context.Background(), "conv-1", "question", "user", ""); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if len(appended) != 2 {
		t.Fatalf("expected a pair of messages, got %d", len(appended))
	}
	if appended[0].Type != db.MessageTypeUser || appended[1].Type != db.MessageTypeAssistant {
		t.Errorf("pair must be user then assistant, got %q then %q", appended[0].Type, appended[1].Type)
	}
	if appended[0].ID == appended[1].ID {
		t.Error("pair messages must have distinct ids")
	}
}

func TestAppendMessage_UnknownConversation(t *testing.T) {
	store := &testutil.MockStore{
		GetConversationFunc: func(ctx context.Context, id string) (*db.Conversation, error) {
			return nil, db.ErrNotFound
		},
	}
	provider := &testutil.MockProvider{}
	service := NewConversationService(store, provider, newTestConfig())

	_, err := service.AppendMessage(context.Background(), "missing", "x", "user", "")
	if !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if provider.CompleteCalls != 0 {
		t.Errorf("a missing conversation must cost zero completion calls, got %d", provider.CompleteCalls)
	}
	if store.AppendCalls != 0 {
		t.Errorf("nothing must be appended, got %d calls", store.AppendCalls)
	}
}

func TestAppendMessage_RejectsAssistantType(t *testing.T) {
	store := echoStore()
	provider := &testutil.MockProvider{}
	service := NewConversationService(store, provider, newTestConfig())

	_, err := service.AppendMessage(context.Background(), "conv-1", "hello", "assistant", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if provider.CompleteCalls != 0 {
		t.Errorf("invalid type must not reach the provider, got %d calls", provider.CompleteCalls)
	}
}

func TestAppendMessage_CompletionFailureLeavesStoreUntouched(t *testing.T) {
	store := echoStore()
	store.GetConversationFunc = func(ctx context.Context, id string) (*db.Conversation, error) {
		return &db.Conversation{ID: id}, nil
	}
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			return "", fmt.Errorf("%w: timeout", llm.ErrCompletionFailed)
		},
	}
	service := NewConversationService(store, provider, newTestConfig())

	_, err := service.AppendMessage(context.Background(), "conv-1", "question", "user", "")
	if !errors.Is(err, llm.ErrCompletionFailed) {
		t.Fatalf("expected ErrCompletionFailed, got %v", err)
	}
	if store.AppendCalls != 0 {
		t.Errorf("no message pair may be persisted after a failed completion, got %d calls", store.AppendCalls)
	}
}

func TestAppendMessage_NoDeduplication(t *testing.T) {
	var pairs [][]db.Message
	store := echoStore()
	store.GetConversationFunc = func(ctx context.Context, id string) (*db.Conversation, error) {
		return &db.Conversation{ID: id}, nil
	}
	inner := store.AppendMessagesFunc
	store.AppendMessagesFunc = func(ctx context.Context, conversationID string, messages []db.Message) ([]db.Message, error) {
		pairs = append(pairs, messages)
		return inner(ctx, conversationID, messages)
	}
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			return "answer", nil
		},
	}
	service := NewConversationService(store, provider, newTestConfig())

	for i := 0; i < 2; i++ {
		if _, err := service.AppendMessage(context.Background(), "conv-1", "same content", "user", ""); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	if len(pairs) != 2 {
		t.Fatalf("identical appends must produce two pairs, got %d", len(pairs))
	}
	if pairs[0][0].ID == pairs[1][0].ID {
		t.Error("identical content must still get distinct message ids")
	}
}

func TestAsk_EmptyPrompt(t *testing.T) {
	service := NewConversationService(&testutil.MockStore{}, &testutil.MockProvider{}, newTestConfig())

	_, err := service.Ask(context.Background(), "", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestFallbackTitle(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"What is the quadratic formula?", "What is the quadratic formula?"},
		{"prove that the sum of two even numbers is even", "prove that the sum of..."},
		{"  spaced   out    words here  ", "spaced out words here"},
		{"short", "short"},
	}

	for _, tt := range tests {
		if got := fallbackTitle(tt.message); got != tt.want {
			t.Errorf("fallbackTitle(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestResolveTitle_TrimsWhitespace(t *testing.T) {
	store := echoStore()
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			if req.System == "Generate a short title." {
				return "\n  Sum of Even Numbers \n", nil
			}
			return "answer", nil
		},
	}
	service := NewConversationService(store, provider, newTestConfig())

	conv, err := service.CreateConversation(context.Background(), "", "prove the sum of evens is even", "")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if conv.Title != "Sum of Even Numbers" {
		t.Errorf("expected trimmed title, got %q", conv.Title)
	}
	if strings.Contains(conv.Title, "\n") {
		t.Error("title must not contain newlines")
	}
}
