package validation

import (
	"errors"
	"fmt"

	"math-chat/internal/config"
	"math-chat/internal/repository/db"
)

// maxTitleLength matches the conversations.title column width
const maxTitleLength = 200

// ConversationRequestValidator validates conversation-related requests
type ConversationRequestValidator struct {
	models *config.ModelsConfig
}

// NewConversationRequestValidator creates a new ConversationRequestValidator
func NewConversationRequestValidator(models *config.ModelsConfig) *ConversationRequestValidator {
	return &ConversationRequestValidator{models: models}
}

// ValidateMessage validates an initial or appended user message
func (v *ConversationRequestValidator) ValidateMessage(message string) error {
	if message == "" {
		return errors.New("message cannot be empty")
	}
	return nil
}

// ValidateTitle validates an optional explicit conversation title
func (v *ConversationRequestValidator) ValidateTitle(title string) error {
	if len(title) > maxTitleLength {
		return fmt.Errorf("title must be at most %d characters, got %d", maxTitleLength, len(title))
	}
	return nil
}

// ValidateMessageType validates the type of a submitted message. Only
// user turns may be submitted; assistant turns are generated by the
// pipeline.
func (v *ConversationRequestValidator) ValidateMessageType(msgType string) error {
	if msgType == "" {
		return errors.New("type cannot be empty")
	}
	if msgType != db.MessageTypeUser {
		return fmt.Errorf("type must be %q, got %q", db.MessageTypeUser, msgType)
	}
	return nil
}

// ValidateModel validates an optional model override
func (v *ConversationRequestValidator) ValidateModel(model string) error {
	if model == "" {
		return nil // Model is optional, defaults to the provider's default
	}
	if !v.models.IsValidModel(model) {
		return fmt.Errorf("unsupported model %q", model)
	}
	return nil
}

// ValidateCreateRequest validates a complete create-conversation request
func (v *ConversationRequestValidator) ValidateCreateRequest(title, message, model string) error {
	if err := v.ValidateMessage(message); err != nil {
		return err
	}
	if err := v.ValidateTitle(title); err != nil {
		return err
	}
	return v.ValidateModel(model)
}

// ValidateAppendRequest validates a complete append-message request
func (v *ConversationRequestValidator) ValidateAppendRequest(content, msgType, model string) error {
	if err := v.ValidateMessage(content); err != nil {
		return err
	}
	if err := v.ValidateMessageType(msgType); err != nil {
		return err
	}
	return v.ValidateModel(model)
}
