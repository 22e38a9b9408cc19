package chat

import (
	"errors"
	"fmt"

	"docuchat-backend/internal/documents"
)

var (
	// ErrQuestionRequired rejects blank questions before any lookup happens.
	ErrQuestionRequired = errors.New("question is required")
	// ErrMissingText flags a COMPLETED document without extracted text. The
	// ingestion invariants make this unreachable; it is still checked.
	ErrMissingText = errors.New("document has no extracted text despite completed status")
	// ErrEmptyAnswer is returned when the completion service produced no answer.
	ErrEmptyAnswer = errors.New("completion service returned no answer")
	// ErrUpstream is returned when the completion service reported a failure,
	// either as an API error or as an error-sentinel completion.
	ErrUpstream = errors.New("completion service failed")
)

// NotReadyError is returned for documents that have not reached COMPLETED.
// It carries the current status so the boundary can report it.
type NotReadyError struct {
	Status documents.Status
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("document is not ready for chat (status %s)", e.Status)
}
