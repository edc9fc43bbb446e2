package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"ragprompt/internal/domain"
)

// WordChunker splits each page into fixed-size windows of whitespace-delimited
// tokens. Consecutive windows share overlap tokens; windows never cross pages.
type WordChunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewWordChunker validates chunkSize > chunkOverlap >= 0.
func NewWordChunker(chunkSize, chunkOverlap int) (*WordChunker, error) {
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be >= 0, got %d", chunkOverlap)
	}
	if chunkSize <= chunkOverlap {
		return nil, fmt.Errorf("chunk size (%d) must be greater than chunk overlap (%d)", chunkSize, chunkOverlap)
	}
	return &WordChunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Chunk segments pages in order. Every chunk inherits its page's metadata.
func (c *WordChunker) Chunk(source string, pages []domain.Page) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, p := range pages {
		meta := domain.Metadata{Source: source, Page: strconv.Itoa(p.Number)}
		for _, text := range c.windows(strings.Fields(p.Text)) {
			chunks = append(chunks, domain.Chunk{Text: text, Metadata: meta})
		}
	}
	return chunks, nil
}

func (c *WordChunker) windows(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	stride := c.chunkSize - c.chunkOverlap
	var out []string
	for start := 0; ; start += stride {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		out = append(out, strings.Join(tokens[start:end], " "))
		// the trailing tokens are covered; another window would only repeat the overlap
		if end == len(tokens) {
			break
		}
	}
	return out
}
