package domain

import "context"

// Metadata is the document-level information carried by every chunk.
type Metadata struct {
	Source string `json:"source"`
	Page   string `json:"page"`
}

// Map returns the metadata as a flat string map, the shape stored in an index.
func (m Metadata) Map() map[string]string {
	return map[string]string{"source": m.Source, "page": m.Page}
}

// MetadataFromMap is the inverse of Metadata.Map.
func MetadataFromMap(m map[string]string) Metadata {
	return Metadata{Source: m["source"], Page: m["page"]}
}

// Page is the extracted text of a single page of a source document.
type Page struct {
	Text   string
	Number int
}

// Chunk is a bounded window of a page's tokens, the unit of retrieval.
type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// IndexedEntry is a chunk together with its embedding, as stored by a vector index.
type IndexedEntry struct {
	ID       string
	Vector   []float64
	Text     string
	Metadata map[string]string
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	ID    string
	Chunk Chunk
	Score float64
}

// Chunker splits extracted pages into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(source string, pages []Page) ([]Chunk, error)
}

// Extractor turns a source file into its extractable pages.
// Unreadable pages are omitted rather than reported.
type Extractor interface {
	Extract(path string) ([]Page, error)
}

// Generator produces text from a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, model, system, prompt string) (string, error)
}
