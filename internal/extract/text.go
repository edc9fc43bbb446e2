package extract

import (
	"errors"
	"os"
	"strings"
	"unicode/utf8"

	"ragprompt/internal/domain"
)

// Text extracts plain-text files. Form feeds separate pages.
type Text struct{}

func NewText() *Text { return &Text{} }

func (e *Text) Extract(path string) ([]domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, extractionError(path, err)
	}
	if !utf8.Valid(data) {
		return nil, extractionError(path, errInvalidUTF8)
	}
	var pages []domain.Page
	for i, raw := range strings.Split(string(data), "\f") {
		text := normalize(raw)
		if text == "" {
			continue
		}
		pages = append(pages, domain.Page{Text: text, Number: i + 1})
	}
	return pages, nil
}

var errInvalidUTF8 = errors.New("file is not valid UTF-8")
