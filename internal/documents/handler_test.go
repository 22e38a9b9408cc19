package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docuchat-backend/internal/bootstrap"
	"docuchat-backend/internal/config"
	"docuchat-backend/internal/documents"
)

type staticLLM struct {
	answer string
}

func (s staticLLM) Complete(ctx context.Context, question, contextText string) (string, error) {
	return s.answer, nil
}

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		UploadDir:       t.TempDir(),
		CORSAllowOrigin: []string{"*"},
		Env:             "dev",
	}
	app, err := bootstrap.Build(cfg, staticLLM{answer: "hello"})
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func uploadFile(t *testing.T, app *bootstrap.App, name, contentType, content string) documents.DocumentResponse {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create form part: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/document", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created documents.DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return created
}

func getDocument(t *testing.T, app *bootstrap.App, path string) (int, documents.DocumentResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	var doc documents.DocumentResponse
	if resp.Code == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			t.Fatalf("decode document: %v", err)
		}
	}
	return resp.Code, doc
}

func waitForStatus(t *testing.T, app *bootstrap.App, id int64, want documents.Status) documents.DocumentResponse {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var last documents.DocumentResponse
	for time.Now().Before(deadline) {
		code, doc := getDocument(t, app, "/documents/"+strconv.FormatInt(id, 10))
		if code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", code)
		}
		last = doc
		if doc.Status == want {
			return doc
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("document %d never reached %s, last status %s", id, want, last.Status)
	return last
}

func TestUploadReturnsPendingDocument(t *testing.T) {
	app := newTestApp(t)

	created := uploadFile(t, app, "doc.pdf", "application/pdf", "%PDF-1.4 fake")
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if created.Status != documents.StatusPending {
		t.Fatalf("expected PENDING at response time, got %s", created.Status)
	}
	if created.ExtractedText != nil {
		t.Fatal("expected null extractedText at response time")
	}
	if created.OriginalFilename != "doc.pdf" {
		t.Fatalf("expected original filename preserved, got %s", created.OriginalFilename)
	}
}

func TestNonPDFUploadEventuallyFails(t *testing.T) {
	app := newTestApp(t)

	created := uploadFile(t, app, "image.png", "image/png", "\x89PNG fake")
	final := waitForStatus(t, app, created.ID, documents.StatusFailed)
	if final.ExtractedText != nil {
		t.Fatal("expected null extractedText on failure")
	}
}

func TestUploadRequiresFile(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/document", bytes.NewReader(nil))
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestGetRejectsNonIntegerID(t *testing.T) {
	app := newTestApp(t)

	code, _ := getDocument(t, app, "/document/abc")
	if code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for non-integer id, got %d", code)
	}
}

func TestGetMissingDocument(t *testing.T) {
	app := newTestApp(t)

	code, _ := getDocument(t, app, "/documents/999")
	if code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", code)
	}
}

func TestListBothSurfaces(t *testing.T) {
	app := newTestApp(t)
	uploadFile(t, app, "a.png", "image/png", "x")
	uploadFile(t, app, "b.png", "image/png", "y")

	for _, path := range []string{"/document", "/documents"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		app.Router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, resp.Code)
		}
		var docs []documents.DocumentResponse
		if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
			t.Fatalf("decode list: %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("GET %s: expected 2 documents, got %d", path, len(docs))
		}
	}
}

func TestDeleteDocument(t *testing.T) {
	app := newTestApp(t)
	created := uploadFile(t, app, "doc.png", "image/png", "bytes")
	waitForStatus(t, app, created.ID, documents.StatusFailed)

	req := httptest.NewRequest(http.MethodDelete, "/document/"+strconv.FormatInt(created.ID, 10), nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	code, _ := getDocument(t, app, "/document/"+strconv.FormatInt(created.ID, 10))
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", code)
	}

	// Deleting again is a reported not-found, not a silent no-op.
	reqAgain := httptest.NewRequest(http.MethodDelete, "/document/"+strconv.FormatInt(created.ID, 10), nil)
	respAgain := httptest.NewRecorder()
	app.Router.ServeHTTP(respAgain, reqAgain)
	if respAgain.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on repeat delete, got %d", respAgain.Code)
	}
}
