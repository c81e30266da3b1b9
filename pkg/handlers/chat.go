package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
)

// maxChatBodyBytes bounds the request body of POST /api/chat.
const maxChatBodyBytes = 1 << 20

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	Message string        `json:"message"`
	History []models.Turn `json:"history,omitempty"`
}

// ChatHandler serves the question-answering API.
type ChatHandler struct {
	service services.ChatService
	logger  *zap.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(service services.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{service: service, logger: logger}
}

// RegisterRoutes registers the chat and dataset routes.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.Chat)
	mux.HandleFunc("GET /api/dataset", h.Dataset)
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := DecodeJSON(w, r, &req, maxChatBodyBytes); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request_too_large", "Request body is too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	resp, err := h.service.Ask(r.Context(), req.Message, req.History)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidQuestion):
			h.writeError(w, http.StatusBadRequest, "invalid_question", err.Error())
		default:
			h.logger.Error("Failed to answer question",
				zap.String("question", logging.TruncateString(req.Message, 200)),
				zap.String("error", logging.SanitizeError(err)))
			h.writeError(w, http.StatusInternalServerError, "query_failed", "Failed to run the query for this question")
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Dataset handles GET /api/dataset. Returns 404 when no dataset is loaded.
func (h *ChatHandler) Dataset(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.DescribeDataset(r.Context())
	if err != nil {
		if errors.Is(err, apperrors.ErrNoDataset) {
			h.writeError(w, http.StatusNotFound, "no_dataset", "No dataset available. Please upload a dataset first.")
			return
		}
		h.logger.Error("Failed to describe dataset", zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get dataset info")
		return
	}

	if err := WriteJSON(w, http.StatusOK, info); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ChatHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
