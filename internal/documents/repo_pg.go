package documents

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document and fills in the assigned ID.
func (r *PGRepo) Create(ctx context.Context, doc Document) (Document, error) {
	const query = `
INSERT INTO documents (original_filename, storage_path, mime_type, size_bytes, status, extracted_text, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`

	err := r.DB.QueryRowContext(
		ctx,
		query,
		doc.OriginalFilename,
		doc.StoragePath,
		doc.MimeType,
		doc.Size,
		string(doc.Status),
		doc.ExtractedText,
		doc.CreatedAt,
	).Scan(&doc.ID)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// List returns all documents, newest first.
func (r *PGRepo) List(ctx context.Context) ([]Document, error) {
	const query = `
SELECT id, original_filename, storage_path, mime_type, size_bytes, status, extracted_text, created_at
FROM documents
ORDER BY created_at DESC, id DESC`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// GetByID fetches a document by ID.
func (r *PGRepo) GetByID(ctx context.Context, id int64) (Document, error) {
	const query = `
SELECT id, original_filename, storage_path, mime_type, size_bytes, status, extracted_text, created_at
FROM documents
WHERE id = $1`

	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// UpdateExtraction moves a PENDING document to its terminal status. The WHERE
// guard makes the transition happen at most once.
func (r *PGRepo) UpdateExtraction(ctx context.Context, id int64, status Status, extractedText *string) error {
	const query = `
UPDATE documents
SET status = $1, extracted_text = $2
WHERE id = $3 AND status = $4`

	_, err := r.DB.ExecContext(ctx, query, string(status), extractedText, id, string(StatusPending))
	return err
}

// Delete removes the row for id.
func (r *PGRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM documents WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDocument(scan func(dest ...any) error) (Document, error) {
	var doc Document
	var status string
	var extracted sql.NullString
	if err := scan(
		&doc.ID,
		&doc.OriginalFilename,
		&doc.StoragePath,
		&doc.MimeType,
		&doc.Size,
		&status,
		&extracted,
		&doc.CreatedAt,
	); err != nil {
		return Document{}, err
	}
	doc.Status = Status(status)
	if extracted.Valid {
		doc.ExtractedText = &extracted.String
	}
	return doc, nil
}

var _ Repo = (*PGRepo)(nil)
