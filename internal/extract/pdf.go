package extract

import (
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"

	"ragprompt/internal/domain"
)

// PDF extracts text page by page with ledongthuc/pdf.
type PDF struct {
	log *slog.Logger
}

// NewPDF creates a PDF extractor.
func NewPDF(logger *slog.Logger) *PDF {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDF{log: logger}
}

// Extract returns the non-empty pages of the PDF at path, numbered from 1.
func (e *PDF) Extract(path string) (pages []domain.Page, err error) {
	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = extractionError(path, fmt.Errorf("parse pdf: %v", r))
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, extractionError(path, fmt.Errorf("open pdf: %w", err))
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := pageText(page)
		if err != nil {
			e.log.Warn("skipping unreadable page", "file", path, "page", i, "error", err)
			continue
		}
		if text == "" {
			continue
		}
		pages = append(pages, domain.Page{Text: text, Number: i})
	}
	return pages, nil
}

func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read page: %v", r)
		}
	}()
	raw, err := page.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	return normalize(raw), nil
}
