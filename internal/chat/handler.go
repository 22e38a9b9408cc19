package chat

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docuchat-backend/internal/documents"
	"docuchat-backend/internal/shared/server/respond"
)

// Handler exposes the chat endpoint.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the chat route.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/documents/:id/chat", h.chat)
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (h *Handler) chat(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "id must be an integer", nil)
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "question is required", nil)
		return
	}
	c.Set("documentId", id)

	answer, err := h.Svc.Answer(c.Request.Context(), id, req.Question)
	if err != nil {
		var notReady *NotReadyError
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.As(err, &notReady):
			respond.Error(c, http.StatusBadRequest, "not_ready", notReady.Error(), gin.H{"status": notReady.Status})
		case errors.Is(err, ErrQuestionRequired):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrMissingText):
			respond.Error(c, http.StatusInternalServerError, "missing_text", err.Error(), nil)
		case errors.Is(err, ErrEmptyAnswer):
			respond.Error(c, http.StatusInternalServerError, "upstream_empty", err.Error(), nil)
		case errors.Is(err, ErrUpstream):
			respond.Error(c, http.StatusInternalServerError, "upstream_error", "completion service failed", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to answer question", nil)
		}
		return
	}

	respond.OK(c, chatResponse{Response: answer})
}
