package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/apperrors"
	"github.com/datatalk-ai/datatalk-engine/pkg/services"
)

// FeedbackRequest for POST /api/feedback
type FeedbackRequest struct {
	QuestionID string  `json:"question_id"`
	Score      float64 `json:"score"`
	Text       string  `json:"text,omitempty"`
}

// FeedbackHandler handles answer feedback submissions.
type FeedbackHandler struct {
	auditService services.AuditService
	logger       *zap.Logger
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(auditService services.AuditService, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{auditService: auditService, logger: logger}
}

// RegisterRoutes registers the feedback handler's routes on the given mux.
func (h *FeedbackHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/feedback", h.Submit)
}

// Submit handles POST /api/feedback
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.QuestionID == "" {
		h.writeError(w, http.StatusBadRequest, "missing_question_id", "Question id is required")
		return
	}

	err := h.auditService.SubmitFeedback(r.Context(), req.QuestionID, req.Score, req.Text)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrInvalidFeedback):
		h.writeError(w, http.StatusBadRequest, "invalid_score", "Score must be one of the feedback levels")
		return
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "unknown_question", "No answer found for that question id")
		return
	default:
		h.logger.Error("Failed to store feedback",
			zap.String("question_id", req.QuestionID),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "feedback_failed", "Failed to store feedback")
		return
	}

	response := ApiResponse{Success: true, Message: "Thank you for your feedback!"}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *FeedbackHandler) writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
