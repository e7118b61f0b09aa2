package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/apperrors"
	"github.com/datatalk-ai/datatalk-engine/pkg/services"
)

// BugReportRequest for POST /api/bugs
type BugReportRequest struct {
	Email             string `json:"email"`
	Description       string `json:"description"`
	ReproductionSteps string `json:"reproduction_steps,omitempty"`
}

// BugReportHandler handles bug report submissions.
type BugReportHandler struct {
	bugService services.BugReportService
	logger     *zap.Logger
}

// NewBugReportHandler creates a new bug report handler.
func NewBugReportHandler(bugService services.BugReportService, logger *zap.Logger) *BugReportHandler {
	return &BugReportHandler{bugService: bugService, logger: logger}
}

// RegisterRoutes registers the bug report handler's routes on the given mux.
func (h *BugReportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/bugs", h.Submit)
}

// Submit handles POST /api/bugs
func (h *BugReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req BugReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	err := h.bugService.Submit(r.Context(), req.Email, req.Description, req.ReproductionSteps)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrInvalidEmail):
		h.writeError(w, http.StatusBadRequest, "invalid_email", "Please enter a valid company email address")
		return
	case errors.Is(err, apperrors.ErrInvalidReport):
		h.writeError(w, http.StatusBadRequest, "invalid_report", "Please describe the bug and try again")
		return
	default:
		// Storage failures stay in the logs; the response carries no
		// warehouse diagnostics.
		h.logger.Error("Failed to store bug report", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "bug_report_failed", "Could not save the bug report. Please try again later.")
		return
	}

	response := ApiResponse{Success: true, Message: "Thank you for reporting the bug! We'll look into it."}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *BugReportHandler) writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
