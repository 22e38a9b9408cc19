package llm

import (
	"context"
	"errors"
)

// CompletionClient abstracts the external completion service. The context
// text travels as the system message, the question as the user message.
type CompletionClient interface {
	Complete(ctx context.Context, question, contextText string) (string, error)
}

// ErrEmptyCompletion is returned when the provider answers with no content.
var ErrEmptyCompletion = errors.New("completion service returned empty content")

// ErrProvider wraps provider-reported API errors (error objects in the
// response body), as opposed to transport failures.
var ErrProvider = errors.New("completion service error")
