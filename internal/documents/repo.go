package documents

import "context"

// Repo defines persistence operations for documents.
type Repo interface {
	// Create inserts doc and returns it with the store-assigned ID.
	Create(ctx context.Context, doc Document) (Document, error)
	// List returns all documents, newest first.
	List(ctx context.Context) ([]Document, error)
	// GetByID returns ErrNotFound when no row matches.
	GetByID(ctx context.Context, id int64) (Document, error)
	// UpdateExtraction moves a PENDING document to a terminal status. Rows
	// already terminal are left untouched.
	UpdateExtraction(ctx context.Context, id int64, status Status, extractedText *string) error
	// Delete removes the row, returning ErrNotFound when nothing matched.
	Delete(ctx context.Context, id int64) error
}
