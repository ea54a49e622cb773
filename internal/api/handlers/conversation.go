package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"math-chat/internal/llm"
	"math-chat/internal/logger"
	"math-chat/internal/repository/db"
	conversationService "math-chat/internal/service/conversation"
	"math-chat/pkg/validation"

	"github.com/go-chi/chi/v5"
)

// Request/Response types

type CreateConversationRequest struct {
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

type AppendMessageRequest struct {
	Content string `json:"content"`
	Type    string `json:"type"`
	Model   string `json:"model,omitempty"`
}

type ChatRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ConversationHandlers maps the REST surface onto the conversation service
type ConversationHandlers struct {
	service   *conversationService.ConversationService
	validator *validation.ConversationRequestValidator
}

// NewConversationHandlers creates a new ConversationHandlers
func NewConversationHandlers(service *conversationService.ConversationService, validator *validation.ConversationRequestValidator) *ConversationHandlers {
	return &ConversationHandlers{
		service:   service,
		validator: validator,
	}
}

// Routes returns the conversation sub-router
func (h *ConversationHandlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListConversations)
	r.Post("/", h.CreateConversation)
	r.Get("/{id}", h.GetConversation)
	r.Post("/{id}/messages", h.AppendMessage)
	return r
}

// ListConversations handles GET /api/conversation
func (h *ConversationHandlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.service.ListConversations(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

// GetConversation handles GET /api/conversation/{id}
func (h *ConversationHandlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.service.GetConversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// CreateConversation handles POST /api/conversation
func (h *ConversationHandlers) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.ValidateCreateRequest(req.Title, req.Message, req.Model); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.CreateConversation(r.Context(), req.Title, req.Message, req.Model)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// AppendMessage handles POST /api/conversation/{id}/messages
func (h *ConversationHandlers) AppendMessage(w http.ResponseWriter, r *http.Request) {
	var req AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.ValidateAppendRequest(req.Content, req.Type, req.Model); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.service.AppendMessage(r.Context(), chi.URLParam(r, "id"), req.Content, req.Type, req.Model)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// Chat handles POST /api/chat: a one-shot completion with no persistence
func (h *ConversationHandlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Prompt == "" {
		writeErrorMessage(w, http.StatusBadRequest, "Prompt is required")
		return
	}
	if err := h.validator.ValidateModel(req.Model); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	answer, err := h.service.Ask(r.Context(), req.Prompt, req.Model)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Response: answer})
}

// writeError maps service errors onto HTTP statuses. Sub-kinds of a
// persistence failure are checked first so an id collision surfaces as
// 409 rather than the generic persistence status.
func (h *ConversationHandlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversationService.ErrInvalidInput):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, db.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "Conversation not found")
	case errors.Is(err, db.ErrUniqueViolation):
		writeErrorMessage(w, http.StatusConflict, "Conversation already exists")
	case errors.Is(err, db.ErrUnavailable):
		writeErrorMessage(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	case errors.Is(err, llm.ErrCompletionFailed):
		writeErrorMessage(w, http.StatusBadGateway, "Failed to generate a response")
	case errors.Is(err, conversationService.ErrPersistenceFailed):
		writeErrorMessage(w, http.StatusInternalServerError, "Failed to save conversation")
	default:
		logger.Log.WithError(err).Error("Unhandled service error")
		writeErrorMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("Failed to encode response")
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Status: "error", Message: message})
}
