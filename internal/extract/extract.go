// Package extract turns uploaded files into per-page plain text.
//
// Pages that cannot be read are dropped, so a document may yield fewer pages
// than it contains. Failure to open or parse the file as a whole is reported
// as a domain extraction error.
package extract

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"ragprompt/internal/domain"
)

// Auto dispatches to an extractor by file extension.
type Auto struct {
	pdf  *PDF
	text *Text
}

// NewAuto returns an extractor for .pdf and plain-text files.
func NewAuto(logger *slog.Logger) *Auto {
	return &Auto{pdf: NewPDF(logger), text: NewText()}
}

// Extract implements domain.Extractor.
func (a *Auto) Extract(path string) ([]domain.Page, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return a.pdf.Extract(path)
	case ".txt", ".text", ".md":
		return a.text.Extract(path)
	default:
		return nil, domain.Errorf(domain.KindExtraction, "extract", "unsupported file type %q", filepath.Ext(path))
	}
}

// Supported reports whether Auto can extract the file at path.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".text", ".md":
		return true
	}
	return false
}

// normalize folds compatibility characters (ligatures, full-width forms) that
// PDF text layers commonly contain and trims surrounding space.
func normalize(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

func extractionError(path string, err error) error {
	return domain.Wrap(domain.KindExtraction, "extract", fmt.Errorf("%s: %w", filepath.Base(path), err))
}
