// Package ocr extracts text from uploaded attachment documents. The real
// cloud providers are behind a small Extractor interface so the sweep logic
// and tests run against the mock.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotImplemented is returned by provider stubs that are configured but
// not yet wired to a real cloud account.
var ErrNotImplemented = errors.New("ocr provider not implemented")

// Result is the outcome of extracting text from a single document.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Extractor pulls text out of a document image or PDF.
type Extractor interface {
	Extract(ctx context.Context, content io.Reader, contentType string) (*Result, error)
}

// New returns the Extractor for the configured provider name. Provider names
// are validated at config load, so an unknown name here is a programming
// error.
func New(provider string) (Extractor, error) {
	switch provider {
	case "mock":
		return &MockExtractor{}, nil
	case "textract":
		return &textractExtractor{}, nil
	case "documentai":
		return &documentAIExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown ocr provider %q", provider)
	}
}

// MockExtractor returns deterministic text derived from the document bytes.
// Useful for development and tests.
type MockExtractor struct {
	// Err, if set, is returned from every Extract call.
	Err error
}

func (m *MockExtractor) Extract(_ context.Context, content io.Reader, _ string) (*Result, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		text = "[no text detected]"
	}

	return &Result{
		Text:       fmt.Sprintf("[mock ocr] %s", text),
		Confidence: 0.99,
	}, nil
}

// textractExtractor will call AWS Textract once credentials plumbing lands.
type textractExtractor struct{}

func (t *textractExtractor) Extract(context.Context, io.Reader, string) (*Result, error) {
	return nil, fmt.Errorf("textract: %w", ErrNotImplemented)
}

// documentAIExtractor will call Google Document AI once credentials plumbing lands.
type documentAIExtractor struct{}

func (d *documentAIExtractor) Extract(context.Context, io.Reader, string) (*Result, error) {
	return nil, fmt.Errorf("documentai: %w", ErrNotImplemented)
}
