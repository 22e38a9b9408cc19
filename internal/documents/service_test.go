package documents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (f *fakeExtractor) ExtractText(data []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestService(extractor *fakeExtractor) (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	svc := NewService(repo, extractor)
	svc.updateBackoff = time.Millisecond
	return svc, repo
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func waitForTerminal(t *testing.T, repo Repo, id int64) Document {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		doc, err := repo.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get document: %v", err)
		}
		if doc.Status.Terminal() {
			return doc
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("document never reached a terminal status")
	return Document{}
}

func TestSubmitReturnsPendingImmediately(t *testing.T) {
	svc, _ := newTestService(&fakeExtractor{text: "parsed"})
	path := writeTempFile(t, "doc.pdf", "%PDF-1.4")

	doc, err := svc.Submit(context.Background(), "doc.pdf", path, "application/pdf", 1024)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if doc.ID == 0 {
		t.Fatal("expected store-assigned id")
	}
	if doc.Status != StatusPending {
		t.Fatalf("expected PENDING at response time, got %s", doc.Status)
	}
	if doc.ExtractedText != nil {
		t.Fatalf("expected nil extracted text at response time, got %q", *doc.ExtractedText)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _ := newTestService(&fakeExtractor{})

	cases := []struct {
		name     string
		filename string
		path     string
		mime     string
		size     int64
	}{
		{"empty filename", "", "/tmp/x", "application/pdf", 1},
		{"empty path", "a.pdf", "  ", "application/pdf", 1},
		{"empty mime", "a.pdf", "/tmp/x", "", 1},
		{"negative size", "a.pdf", "/tmp/x", "application/pdf", -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tc.filename, tc.path, tc.mime, tc.size)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestPDFExtractionCompletes(t *testing.T) {
	extractor := &fakeExtractor{text: "Paris is the capital of France."}
	svc, repo := newTestService(extractor)
	path := writeTempFile(t, "doc.pdf", "%PDF-1.4 content")

	doc, err := svc.Submit(context.Background(), "doc.pdf", path, "application/pdf", 1024)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForTerminal(t, repo, doc.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", final.Status)
	}
	if final.ExtractedText == nil || *final.ExtractedText != "Paris is the capital of France." {
		t.Fatalf("unexpected extracted text: %v", final.ExtractedText)
	}
	if extractor.callCount() != 1 {
		t.Fatalf("expected exactly one extraction, got %d", extractor.callCount())
	}
}

func TestNonPDFFailsWithoutExtractor(t *testing.T) {
	extractor := &fakeExtractor{text: "should never be used"}
	svc, repo := newTestService(extractor)
	path := writeTempFile(t, "image.png", "\x89PNG")

	doc, err := svc.Submit(context.Background(), "image.png", path, "image/png", 4)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForTerminal(t, repo, doc.ID)
	if final.Status != StatusFailed {
		t.Fatalf("expected FAILED, got %s", final.Status)
	}
	if final.ExtractedText != nil {
		t.Fatalf("expected nil extracted text, got %q", *final.ExtractedText)
	}
	if extractor.callCount() != 0 {
		t.Fatalf("extractor must not run for unsupported mime, ran %d times", extractor.callCount())
	}
}

func TestMissingFileFails(t *testing.T) {
	extractor := &fakeExtractor{text: "unused"}
	svc, repo := newTestService(extractor)

	doc, err := svc.Submit(context.Background(), "doc.pdf", filepath.Join(t.TempDir(), "gone.pdf"), "application/pdf", 10)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForTerminal(t, repo, doc.ID)
	if final.Status != StatusFailed {
		t.Fatalf("expected FAILED for missing file, got %s", final.Status)
	}
	if extractor.callCount() != 0 {
		t.Fatalf("extractor must not run when the file is missing")
	}
}

func TestExtractorErrorFails(t *testing.T) {
	extractor := &fakeExtractor{err: errors.New("corrupt pdf")}
	svc, repo := newTestService(extractor)
	path := writeTempFile(t, "doc.pdf", "not really a pdf")

	doc, err := svc.Submit(context.Background(), "doc.pdf", path, "application/pdf", 10)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForTerminal(t, repo, doc.ID)
	if final.Status != StatusFailed {
		t.Fatalf("expected FAILED, got %s", final.Status)
	}
	if final.ExtractedText != nil {
		t.Fatal("expected nil extracted text on extractor failure")
	}
}

func TestTerminalStatusIsStable(t *testing.T) {
	extractor := &fakeExtractor{text: "text"}
	svc, repo := newTestService(extractor)
	path := writeTempFile(t, "doc.pdf", "%PDF")

	doc, err := svc.Submit(context.Background(), "doc.pdf", path, "application/pdf", 4)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	final := waitForTerminal(t, repo, doc.ID)

	// Re-reads never change a terminal document.
	for i := 0; i < 3; i++ {
		again, err := repo.GetByID(context.Background(), doc.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if again.Status != final.Status {
			t.Fatalf("status changed after terminal state: %s -> %s", final.Status, again.Status)
		}
	}

	// A late conflicting update is a no-op.
	if err := repo.UpdateExtraction(context.Background(), doc.ID, StatusFailed, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ := repo.GetByID(context.Background(), doc.ID)
	if again.Status != StatusCompleted {
		t.Fatalf("terminal status must not transition, got %s", again.Status)
	}
}

type flakyRepo struct {
	Repo
	failures int32
}

func (r *flakyRepo) UpdateExtraction(ctx context.Context, id int64, status Status, text *string) error {
	if atomic.AddInt32(&r.failures, -1) >= 0 {
		return errors.New("transient store error")
	}
	return r.Repo.UpdateExtraction(ctx, id, status, text)
}

func TestFinishRetriesStoreUpdate(t *testing.T) {
	mem := NewMemoryRepo()
	repo := &flakyRepo{Repo: mem, failures: 2}
	svc := NewService(repo, &fakeExtractor{text: "text"})
	svc.updateBackoff = time.Millisecond
	path := writeTempFile(t, "doc.pdf", "%PDF")

	doc, err := svc.Submit(context.Background(), "doc.pdf", path, "application/pdf", 4)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForTerminal(t, mem, doc.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED after retries, got %s", final.Status)
	}
}

func TestRemoveDeletesRowAndFile(t *testing.T) {
	svc, repo := newTestService(&fakeExtractor{text: "text"})
	path := writeTempFile(t, "doc.pdf", "%PDF")

	doc, err := svc.Submit(context.Background(), "doc.pdf", path, "application/pdf", 4)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForTerminal(t, repo, doc.ID)

	removed, err := svc.Remove(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed.ID != doc.ID {
		t.Fatalf("expected removed record id %d, got %d", doc.ID, removed.ID)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected backing file to be deleted, stat err=%v", err)
	}
	if _, err := repo.GetByID(context.Background(), doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
}

func TestRemoveMissingDocument(t *testing.T) {
	svc, _ := newTestService(&fakeExtractor{})

	if _, err := svc.Remove(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveSurvivesMissingFile(t *testing.T) {
	svc, repo := newTestService(&fakeExtractor{})
	doc, err := repo.Create(context.Background(), Document{
		OriginalFilename: "ghost.pdf",
		StoragePath:      filepath.Join(t.TempDir(), "already-gone.pdf"),
		MimeType:         "application/pdf",
		Status:           StatusFailed,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Remove(context.Background(), doc.ID); err != nil {
		t.Fatalf("Remove with missing file: %v", err)
	}
}
