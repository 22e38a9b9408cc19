package documents

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"docuchat-backend/internal/extract"
	"docuchat-backend/internal/shared/metrics"
	"docuchat-backend/internal/shared/telemetry"
)

const mimePDF = "application/pdf"

const (
	updateAttempts       = 3
	updateInitialBackoff = 200 * time.Millisecond
)

// Service is the ingestion pipeline: it creates Document rows and drives
// extraction to a terminal status in the background.
type Service struct {
	Repo      Repo
	Extractor extract.TextExtractor

	// updateBackoff is overridable so tests do not sleep for real.
	updateBackoff time.Duration
}

// NewService constructs a Service.
func NewService(repo Repo, extractor extract.TextExtractor) *Service {
	return &Service{
		Repo:          repo,
		Extractor:     extractor,
		updateBackoff: updateInitialBackoff,
	}
}

// Submit validates the upload metadata, inserts a PENDING document and
// schedules extraction. The caller gets the PENDING row back immediately;
// extraction outcomes are only observable through later reads.
func (s *Service) Submit(ctx context.Context, originalFilename, storagePath, mimeType string, size int64) (Document, error) {
	if strings.TrimSpace(originalFilename) == "" {
		return Document{}, fmt.Errorf("%w: originalFilename is required", ErrInvalidInput)
	}
	if strings.TrimSpace(storagePath) == "" {
		return Document{}, fmt.Errorf("%w: storagePath is required", ErrInvalidInput)
	}
	if strings.TrimSpace(mimeType) == "" {
		return Document{}, fmt.Errorf("%w: mimeType is required", ErrInvalidInput)
	}
	if size < 0 {
		return Document{}, fmt.Errorf("%w: size must be non-negative", ErrInvalidInput)
	}

	doc, err := s.Repo.Create(ctx, Document{
		OriginalFilename: originalFilename,
		StoragePath:      storagePath,
		MimeType:         mimeType,
		Size:             size,
		Status:           StatusPending,
		ExtractedText:    nil,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		return Document{}, err
	}

	telemetry.Info("document.created", map[string]any{
		"document_id": doc.ID,
		"filename":    doc.OriginalFilename,
		"mime_type":   doc.MimeType,
		"size_bytes":  doc.Size,
	})

	// Fire-and-forget: the request context must not cancel extraction.
	go s.extractAndFinish(context.Background(), doc)

	return doc, nil
}

// Get returns a document by ID.
func (s *Service) Get(ctx context.Context, id int64) (Document, error) {
	return s.Repo.GetByID(ctx, id)
}

// List returns all documents, newest first.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.Repo.List(ctx)
}

// Remove deletes the document row and best-effort deletes its backing file.
// File deletion failures are logged only; the row is removed regardless. The
// deleted record is returned.
func (s *Service) Remove(ctx context.Context, id int64) (Document, error) {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Document{}, err
	}

	if doc.StoragePath != "" {
		if err := os.Remove(doc.StoragePath); err != nil && !os.IsNotExist(err) {
			telemetry.Error("document.file_delete_failed", map[string]any{
				"document_id":  doc.ID,
				"storage_path": doc.StoragePath,
				"error":        err.Error(),
			})
		}
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// extractAndFinish runs one extraction attempt and records the terminal
// status. Every failure is contained here: the uploader has already been
// answered with PENDING.
func (s *Service) extractAndFinish(ctx context.Context, doc Document) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("extraction.panic", map[string]any{
				"document_id": doc.ID,
				"error":       fmt.Sprint(r),
			})
			s.finish(ctx, doc.ID, StatusFailed, nil)
		}
	}()

	start := time.Now()
	status, text := s.runExtraction(doc)
	metrics.ObserveExtractionSeconds(time.Since(start).Seconds())

	s.finish(ctx, doc.ID, status, text)
}

func (s *Service) runExtraction(doc Document) (Status, *string) {
	data, err := os.ReadFile(doc.StoragePath)
	if err != nil {
		telemetry.Error("extraction.read_failed", map[string]any{
			"document_id":  doc.ID,
			"storage_path": doc.StoragePath,
			"error":        err.Error(),
		})
		return StatusFailed, nil
	}

	if !strings.EqualFold(strings.TrimSpace(strings.Split(doc.MimeType, ";")[0]), mimePDF) {
		telemetry.Info("extraction.unsupported_mime", map[string]any{
			"document_id": doc.ID,
			"mime_type":   doc.MimeType,
		})
		return StatusFailed, nil
	}

	text, err := s.Extractor.ExtractText(data, doc.MimeType)
	if err != nil {
		telemetry.Error("extraction.failed", map[string]any{
			"document_id": doc.ID,
			"mime_type":   doc.MimeType,
			"error":       err.Error(),
		})
		return StatusFailed, nil
	}

	telemetry.Info("extraction.completed", map[string]any{
		"document_id": doc.ID,
		"text_length": len(text),
	})
	return StatusCompleted, &text
}

// finish persists the terminal status. A failed update would strand the row
// in PENDING, so the write is retried with doubling backoff before giving up.
func (s *Service) finish(ctx context.Context, id int64, status Status, text *string) {
	backoff := s.updateBackoff
	var lastErr error
	for attempt := 1; attempt <= updateAttempts; attempt++ {
		lastErr = s.Repo.UpdateExtraction(ctx, id, status, text)
		if lastErr == nil {
			metrics.IncDocumentIngested(string(status))
			telemetry.Info("document.status", map[string]any{
				"document_id":       id,
				"status":            string(status),
				"status_transition": string(StatusPending) + "->" + string(status),
			})
			return
		}
		if attempt < updateAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	telemetry.Error("document.status_update_failed", map[string]any{
		"document_id": id,
		"status":      string(status),
		"attempts":    updateAttempts,
		"error":       lastErr.Error(),
	})
}
