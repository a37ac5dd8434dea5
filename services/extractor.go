package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"document-qa-platform/models"
)

// PDFExtractor converts raw PDF bytes into plain text. It holds no state;
// extraction is a pure function of the input.
type PDFExtractor struct{}

// NewPDFExtractor creates a text extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractText pulls the text of every page. Failures are reported as
// models.ErrExtraction so the upload path can surface them synchronously.
func (e *PDFExtractor) ExtractText(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read PDF: %v", models.ErrExtraction, err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("%w: failed to extract page %d: %v", models.ErrExtraction, i, err)
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	extracted := strings.TrimSpace(textBuilder.String())
	if extracted == "" {
		return "", fmt.Errorf("%w: no text extracted from PDF", models.ErrExtraction)
	}

	return extracted, nil
}
