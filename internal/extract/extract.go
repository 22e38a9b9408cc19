package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

const mimePDF = "application/pdf"

// ErrUnsupportedMime is wrapped by errors for MIME types no extractor handles.
var ErrUnsupportedMime = fmt.Errorf("unsupported mime type")

// TextExtractor converts stored document bytes into plain text.
type TextExtractor interface {
	ExtractText(data []byte, mimeType string) (string, error)
}

// Extractor is the production TextExtractor. Only PDF is supported; every
// other MIME type fails before any parsing happens.
// Library used: github.com/ledongthuc/pdf.
type Extractor struct{}

// New constructs an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// ExtractText pulls plain text out of data according to mimeType.
func (e *Extractor) ExtractText(data []byte, mimeType string) (string, error) {
	switch normalizeMimeType(mimeType) {
	case mimePDF:
		return extractPDF(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMime, mimeType)
	}
}

func extractPDF(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty pdf data")
	}
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf open: %w", err)
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return buf.String(), nil
}

func normalizeMimeType(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}
