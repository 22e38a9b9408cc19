package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docuchat-backend/internal/documents"
	"docuchat-backend/internal/llm"
	"docuchat-backend/internal/shared/metrics"
	"docuchat-backend/internal/shared/telemetry"
)

// Service pairs a document's extracted text with a user question and
// forwards both to the completion service.
type Service struct {
	Docs documents.Repo
	LLM  llm.CompletionClient
}

// NewService constructs a Service.
func NewService(docs documents.Repo, client llm.CompletionClient) *Service {
	return &Service{Docs: docs, LLM: client}
}

// Answer returns the completion service's answer to question about the given
// document. Every failure mode maps to a distinct error kind so the handler
// can pick the right status code. The completion service is never called for
// documents that are not COMPLETED.
func (s *Service) Answer(ctx context.Context, documentID int64, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrQuestionRequired
	}

	doc, err := s.Docs.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			metrics.IncChatRequest("not_found")
		}
		return "", err
	}

	if doc.Status != documents.StatusCompleted {
		metrics.IncChatRequest("not_ready")
		return "", &NotReadyError{Status: doc.Status}
	}
	if doc.ExtractedText == nil {
		metrics.IncChatRequest("missing_text")
		telemetry.Error("chat.missing_text", map[string]any{
			"document_id": doc.ID,
			"status":      string(doc.Status),
		})
		return "", ErrMissingText
	}

	answer, err := s.LLM.Complete(ctx, question, *doc.ExtractedText)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrEmptyCompletion):
			metrics.IncChatRequest("upstream_empty")
			return "", ErrEmptyAnswer
		case errors.Is(err, llm.ErrProvider):
			metrics.IncChatRequest("upstream_error")
			return "", fmt.Errorf("%w: %v", ErrUpstream, err)
		default:
			metrics.IncChatRequest("error")
			return "", err
		}
	}

	// Some providers embed failures in an otherwise successful completion.
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "error:") {
		metrics.IncChatRequest("upstream_error")
		return "", fmt.Errorf("%w: %s", ErrUpstream, answer)
	}

	metrics.IncChatRequest("ok")
	return answer, nil
}
