package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/apperrors"
	"github.com/datatalk-ai/datatalk-engine/pkg/models"
	"github.com/datatalk-ai/datatalk-engine/pkg/services"
)

// SelectUseCaseRequest for POST /api/chat/usecase
type SelectUseCaseRequest struct {
	UseCase string `json:"use_case"`
}

// SendMessageRequest for POST /api/chat/message
type SendMessageRequest struct {
	Message string `json:"message"`
}

// UseCaseListResponse for GET /api/usecases
type UseCaseListResponse struct {
	UseCases []string `json:"use_cases"`
}

// ChatHistoryResponse for GET /api/chat/history
type ChatHistoryResponse struct {
	UseCase  string               `json:"use_case,omitempty"`
	Messages []models.ChatMessage `json:"messages"`
	Total    int                  `json:"total"`
}

// ChatHandler handles conversation HTTP requests with SSE streaming.
type ChatHandler struct {
	chatService services.ChatService
	resolver    *SessionResolver
	logger      *zap.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chatService services.ChatService, resolver *SessionResolver, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		resolver:    resolver,
		logger:      logger,
	}
}

// RegisterRoutes registers the chat handler's routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/usecases", h.ListUseCases)
	mux.HandleFunc("POST /api/chat/usecase", h.SelectUseCase)
	mux.HandleFunc("POST /api/chat/message", h.SendMessage)
	mux.HandleFunc("GET /api/chat/history", h.GetHistory)
	mux.HandleFunc("DELETE /api/chat/history", h.ClearHistory)
}

// ListUseCases handles GET /api/usecases
func (h *ChatHandler) ListUseCases(w http.ResponseWriter, r *http.Request) {
	data := UseCaseListResponse{UseCases: h.chatService.UseCases()}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// SelectUseCase handles POST /api/chat/usecase
func (h *ChatHandler) SelectUseCase(w http.ResponseWriter, r *http.Request) {
	session := h.resolver.Resolve(w, r)

	var req SelectUseCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.UseCase == "" {
		h.writeError(w, http.StatusBadRequest, "missing_use_case", "Use case is required")
		return
	}

	if err := h.chatService.SelectUseCase(r.Context(), session, req.UseCase); err != nil {
		if errors.Is(err, apperrors.ErrUnknownUseCase) {
			h.writeError(w, http.StatusNotFound, "unknown_use_case", err.Error())
			return
		}
		h.logger.Error("Failed to select use case",
			zap.String("use_case", req.UseCase),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "select_failed", "Failed to activate use case")
		return
	}

	response := ApiResponse{Success: true, Data: map[string]string{"use_case": req.UseCase}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// SendMessage handles POST /api/chat/message
// This endpoint uses Server-Sent Events (SSE) to stream the response.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	session := h.resolver.Resolve(w, r)

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Message == "" {
		h.writeError(w, http.StatusBadRequest, "missing_message", "Message is required")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("SSE not supported")
		h.writeError(w, http.StatusInternalServerError, "sse_unsupported", "SSE not supported")
		return
	}

	eventChan := make(chan models.ChatEvent, 100)

	// Start the turn in background
	go func() {
		defer close(eventChan)
		if err := h.chatService.AskQuestion(r.Context(), session, req.Message, eventChan); err != nil {
			h.logger.Error("Chat turn error",
				zap.String("session_id", session.ID()),
				zap.Error(err))
			eventChan <- models.NewErrorEvent(userFacingError(err))
		}
	}()

	// Stream events to client. An error event does not end the stream:
	// a failed SQL section is followed by a done frame carrying the
	// question id, and fatal turn errors end with the channel closing.
	for event := range eventChan {
		data, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("Failed to marshal event", zap.Error(err))
			continue
		}

		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()

		if event.Type == models.ChatEventDone {
			break
		}
	}
}

// GetHistory handles GET /api/chat/history
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	session := h.resolver.Resolve(w, r)

	messages := session.VisibleMessages()
	data := ChatHistoryResponse{
		UseCase:  session.UseCase(),
		Messages: messages,
		Total:    len(messages),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ClearHistory handles DELETE /api/chat/history
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	session := h.resolver.Resolve(w, r)
	session.Clear()

	response := ApiResponse{Success: true, Data: map[string]string{"message": "Chat history cleared"}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ChatHandler) writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// userFacingError maps internal errors to messages safe to show users.
func userFacingError(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNoUseCase):
		return "Select a use case before asking questions."
	case errors.Is(err, apperrors.ErrTurnInFlight):
		return "Please wait for the current answer to finish."
	default:
		return "The assistant could not finish its answer. Please try again."
	}
}
