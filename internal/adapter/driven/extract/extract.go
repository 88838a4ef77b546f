// Package extract implements the TextExtractor port for PDF, plain-text, and
// Markdown documents.
package extract

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TextExtractor = (*Extractor)(nil)

// minTextChars is the smallest extracted text considered usable as prompt
// context. Scanned PDFs without a text layer typically yield nothing.
const minTextChars = 40

// Extractor implements the driven.TextExtractor port.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the plain text of the document and the detected format.
// The filename extension drives format detection.
func (e *Extractor) Extract(filename string, data []byte) (string, model.DocumentKind, error) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		text, err := pdfText(data)
		if err != nil {
			return "", "", fmt.Errorf("reading pdf %q: %w", filename, err)
		}
		if err := checkLength(filename, text); err != nil {
			return "", "", err
		}
		return text, model.DocumentKindPDF, nil

	case ".txt":
		text, err := plainText(filename, data)
		if err != nil {
			return "", "", err
		}
		return text, model.DocumentKindText, nil

	case ".md", ".markdown":
		text, err := plainText(filename, data)
		if err != nil {
			return "", "", err
		}
		return text, model.DocumentKindMarkdown, nil
	}

	return "", "", fmt.Errorf("unsupported file format %q: upload a PDF, TXT, or Markdown file", filename)
}

// pdfText extracts text page by page, skipping pages that yield nothing
// (e.g. pure-image pages).
func pdfText(data []byte) (text string, err error) {
	// The pdf package panics on some malformed xref tables.
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("malformed pdf: %v", v)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var parts []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if trimmed := strings.TrimSpace(pageText); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	return strings.Join(parts, "\n"), nil
}

// plainText validates and normalizes a text or Markdown file.
func plainText(filename string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%q is not valid UTF-8 text", filename)
	}

	text := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
	if err := checkLength(filename, text); err != nil {
		return "", err
	}
	return text, nil
}

func checkLength(filename, text string) error {
	if len(strings.TrimSpace(text)) < minTextChars {
		return fmt.Errorf("%q contains too little text to generate questions from", filename)
	}
	return nil
}
