package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"math-chat/internal/config"
	"math-chat/internal/llm"
	"math-chat/internal/logger"
	"math-chat/internal/repository/db"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// maxTitleLength matches the column width in the conversations table.
const maxTitleLength = 200

// ConversationService orchestrates the completion provider and the
// conversation store. The completion call always runs strictly before
// the durable write: a failed model call never leaves a half-written
// conversation, and the store's transaction makes the write itself
// all-or-nothing. A successful completion followed by a failed write
// wastes one external call but never produces inconsistent state.
type ConversationService struct {
	store    db.Store
	provider llm.Provider
	config   *config.AppConfig
}

// NewConversationService creates a new ConversationService
func NewConversationService(store db.Store, provider llm.Provider, appConfig *config.AppConfig) *ConversationService {
	return &ConversationService{
		store:    store,
		provider: provider,
		config:   appConfig,
	}
}

// CreateConversation creates a conversation from an initial user
// message: resolves a title, obtains the assistant reply, then persists
// the conversation shell plus both messages atomically. The returned
// conversation always holds exactly two messages, user before assistant.
func (s *ConversationService) CreateConversation(ctx context.Context, title, message, model string) (*db.Conversation, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message must not be empty", ErrInvalidInput)
	}

	if title == "" {
		title = s.resolveTitle(ctx, message)
	}

	answer, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Prompt: message,
		System: s.config.Anthropic.MathSystemPrompt,
		Model:  model,
	})
	if err != nil {
		return nil, err
	}

	convID := uuid.New().String()
	conv := &db.Conversation{
		ID:    convID,
		Title: title,
	}
	messages := []db.Message{
		{
			ID:             uuid.New().String(),
			ConversationID: convID,
			Content:        message,
			Type:           db.MessageTypeUser,
		},
		{
			ID:             uuid.New().String(),
			ConversationID: convID,
			Content:        answer,
			Type:           db.MessageTypeAssistant,
		},
	}

	created, err := s.store.CreateConversationWithMessages(ctx, conv, messages)
	if err != nil {
		logger.Log.WithError(err).WithField("conversation_id", convID).Error("Failed to persist new conversation")
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": created.ID,
		"title":           created.Title,
	}).Info("Conversation created")

	return created, nil
}

// AppendMessage adds one user turn to an existing conversation and
// returns the stored assistant reply. The conversation's existence is
// verified before the completion provider is called, so an unknown id
// costs no external calls. The user/assistant pair is appended in one
// store transaction, bumping the conversation's updatedAt.
func (s *ConversationService) AppendMessage(ctx context.Context, conversationID, content, msgType, model string) (*db.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content must not be empty", ErrInvalidInput)
	}
	// The pipeline generates assistant turns itself; accepting one from
	// a client would break the user-before-assistant invariant.
	if msgType != db.MessageTypeUser {
		return nil, fmt.Errorf("%w: message type must be %q", ErrInvalidInput, db.MessageTypeUser)
	}

	// Existence check first. There is no delete operation, so the
	// check-then-append window cannot currently be hit; if deletion is
	// ever added the store's foreign key still rejects the insert.
	if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	answer, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Prompt: content,
		System: s.config.Anthropic.MathSystemPrompt,
		Model:  model,
	})
	if err != nil {
		return nil, err
	}

	pair := []db.Message{
		{
			ID:             uuid.New().String(),
			ConversationID: conversationID,
			Content:        content,
			Type:           db.MessageTypeUser,
		},
		{
			ID:             uuid.New().String(),
			ConversationID: conversationID,
			Content:        answer,
			Type:           db.MessageTypeAssistant,
		},
	}

	stored, err := s.store.AppendMessages(ctx, conversationID, pair)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
		logger.Log.WithError(err).WithField("conversation_id", conversationID).Error("Failed to persist message pair")
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	logger.Log.WithField("conversation_id", conversationID).Debug("Message pair appended")

	return &stored[1], nil
}

// GetConversation retrieves a conversation with its messages
func (s *ConversationService) GetConversation(ctx context.Context, id string) (*db.Conversation, error) {
	return s.store.GetConversation(ctx, id)
}

// ListConversations retrieves all conversations, most recently updated first
func (s *ConversationService) ListConversations(ctx context.Context) ([]db.Conversation, error) {
	return s.store.ListConversations(ctx)
}

// Ask answers a single prompt without persisting anything
func (s *ConversationService) Ask(ctx context.Context, prompt, model string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt must not be empty", ErrInvalidInput)
	}
	return s.provider.Complete(ctx, llm.CompletionRequest{
		Prompt: prompt,
		System: s.config.Anthropic.MathSystemPrompt,
		Model:  model,
	})
}

// resolveTitle infers a conversation title from the first user message
// on the fast model tier. Title inference is best-effort: any failure
// falls back to a local truncation of the prompt instead of aborting
// the create pipeline.
func (s *ConversationService) resolveTitle(ctx context.Context, message string) string {
	title, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Prompt: message,
		System: s.config.Anthropic.TitlePrompt,
		Model:  s.config.Models.FastModel(),
	})
	if err != nil {
		logger.Log.WithError(err).Warn("Title inference failed, falling back to prompt truncation")
		return fallbackTitle(message)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return fallbackTitle(message)
	}
	if len(title) > maxTitleLength {
		title = title[:maxTitleLength]
	}
	return title
}

// fallbackTitle truncates a prompt to its first five words
func fallbackTitle(message string) string {
	words := strings.Fields(message)
	if len(words) > 5 {
		return strings.Join(words[:5], " ") + "..."
	}
	return strings.Join(words, " ")
}
