// Package session implements the single-use, single-document retrieval
// pipeline: a Session owns one vector index from creation until the first
// prompt is built (or Close is called), and moves through
// Created -> DocumentIndexed -> ContextRetrieved -> PromptBuilt.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"ragprompt/internal/domain"
	"ragprompt/internal/embedding"
	"ragprompt/internal/vectorstore"
)

const (
	DefaultChunkSize    = 256
	DefaultChunkOverlap = 25
	DefaultTopK         = 20
	DefaultIndexPrefix  = "documents"
)

// State is a step of the session lifecycle.
type State int

const (
	StateCreated State = iota
	StateDocumentIndexed
	StateContextRetrieved
	StatePromptBuilt
	// StateFailed is entered by any failed operation; the session must be discarded.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateDocumentIndexed:
		return "document_indexed"
	case StateContextRetrieved:
		return "context_retrieved"
	case StatePromptBuilt:
		return "prompt_built"
	case StateFailed:
		return "failed"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Options are the collaborators of a session. Storage, Embedder and Chunker are required.
type Options struct {
	Storage   vectorstore.Storage
	Embedder  embedding.Embedder
	Chunker   domain.Chunker
	Extractor domain.Extractor

	// IndexPrefix prefixes the generated index name.
	IndexPrefix string
	BatchSize   int
	Progress    embedding.ProgressFunc
	Logger      *slog.Logger
}

// Session is the owning context of one document's retrieval pipeline.
// It is not safe for concurrent use; independent sessions may run in parallel.
type Session struct {
	opts      Options
	log       *slog.Logger
	path      string
	handle    vectorstore.Handle
	released  bool
	state     State
	retrieved []domain.Chunk
}

// New allocates the session's index. path is the source document; its base
// name becomes the source metadata of every chunk.
func New(ctx context.Context, path string, opts Options) (*Session, error) {
	if opts.Storage == nil || opts.Embedder == nil || opts.Chunker == nil {
		return nil, errors.New("session: storage, embedder and chunker are required")
	}
	if opts.IndexPrefix == "" {
		opts.IndexPrefix = DefaultIndexPrefix
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := opts.IndexPrefix + "_" + uuid.NewString()
	h, err := opts.Storage.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	logger = logger.With("index", name)
	logger.Debug("index created")
	return &Session{opts: opts, log: logger, path: path, handle: h}, nil
}

// With runs fn with a fresh session and destroys the session's index on
// every exit path. A teardown failure is reported only if fn succeeded.
func With(ctx context.Context, path string, opts Options, fn func(*Session) error) (err error) {
	s, err := New(ctx, path, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// IndexName returns the name of the index owned by the session.
func (s *Session) IndexName() string { return s.handle.Name }

// Source returns the source identifier stamped on every chunk.
func (s *Session) Source() string { return filepath.Base(s.path) }

// Process extracts the session's document and indexes it. Extraction errors
// are logged and treated as a document without extractable pages.
func (s *Session) Process(ctx context.Context) error {
	if err := s.expect("process", StateCreated); err != nil {
		return err
	}
	if s.opts.Extractor == nil {
		return s.fail(errors.New("process: no extractor configured"))
	}
	pages, err := s.opts.Extractor.Extract(s.path)
	if err != nil {
		if !errors.Is(err, domain.ErrExtraction) {
			return s.fail(err)
		}
		s.log.Warn("document extraction failed; continuing with zero pages", "file", s.path, "error", err)
		pages = nil
	}
	return s.IndexDocument(ctx, pages)
}

// IndexDocument segments pages, embeds every chunk and stores the vectors
// under dense ids "0".."n-1" in chunk order.
func (s *Session) IndexDocument(ctx context.Context, pages []domain.Page) error {
	if err := s.expect("index document", StateCreated); err != nil {
		return err
	}
	chunks, err := s.opts.Chunker.Chunk(s.Source(), pages)
	if err != nil {
		return s.fail(fmt.Errorf("chunk document: %w", err))
	}
	s.log.Info("document segmented", "source", s.Source(), "pages", len(pages), "chunks", len(chunks))
	if len(chunks) == 0 {
		return s.fail(domain.Errorf(domain.KindNoExtractableText, "index document", "%s produced no chunks", s.Source()))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	if err := s.opts.Embedder.Prepare(texts); err != nil {
		return s.fail(domain.Wrap(domain.KindEmbedding, "prepare embedder", err))
	}
	vectors, err := embedding.EmbedAll(ctx, s.opts.Embedder, texts, s.opts.BatchSize, s.opts.Progress)
	if err != nil {
		return s.fail(err)
	}

	entries := make([]domain.IndexedEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = domain.IndexedEntry{
			ID:       strconv.Itoa(i),
			Vector:   vectors[i],
			Text:     c.Text,
			Metadata: c.Metadata.Map(),
		}
	}
	if err := s.opts.Storage.Upsert(ctx, s.handle, entries); err != nil {
		return s.fail(err)
	}
	n, err := s.opts.Storage.Count(ctx, s.handle)
	if err != nil {
		return s.fail(err)
	}
	if n != len(chunks) {
		return s.fail(domain.Errorf(domain.KindInvariantViolation, "index document", "index holds %d entries for %d chunks", n, len(chunks)))
	}
	s.state = StateDocumentIndexed
	return nil
}

// Retrieve returns the topK chunks most similar to query, best first.
func (s *Session) Retrieve(ctx context.Context, query string, topK int) ([]domain.Chunk, error) {
	if err := s.expect("retrieve", StateDocumentIndexed); err != nil {
		return nil, err
	}
	if topK < 1 {
		return nil, s.fail(domain.Errorf(domain.KindInvariantViolation, "retrieve", "top_k must be >= 1, got %d", topK))
	}
	vec, err := embedding.EmbedText(ctx, s.opts.Embedder, query)
	if err != nil {
		return nil, s.fail(err)
	}
	results, err := s.opts.Storage.Query(ctx, s.handle, vec, topK)
	if err != nil {
		return nil, s.fail(err)
	}
	chunks := make([]domain.Chunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}
	s.log.Debug("context retrieved", "top_k", topK, "chunks", len(chunks))
	s.retrieved = chunks
	s.state = StateContextRetrieved
	return chunks, nil
}

// BuildPrompt formats the prompt around the retrieved context and destroys
// the session's index. It succeeds at most once per session.
func (s *Session) BuildPrompt(ctx context.Context, userQuery, documentType, additionalInfo string) (string, error) {
	if err := s.expect("build prompt", StateContextRetrieved); err != nil {
		return "", err
	}
	prompt := FormatPrompt(userQuery, documentType, additionalInfo, JoinContext(s.retrieved))
	if err := s.release(ctx); err != nil {
		return "", s.fail(err)
	}
	s.retrieved = nil
	s.state = StatePromptBuilt
	return prompt, nil
}

// CreatePrompt retrieves context for inputQuery and builds the prompt.
func (s *Session) CreatePrompt(ctx context.Context, inputQuery, documentType, additionalInfo string, topK int) (string, error) {
	if _, err := s.Retrieve(ctx, inputQuery, topK); err != nil {
		return "", err
	}
	return s.BuildPrompt(ctx, inputQuery, documentType, additionalInfo)
}

// Close destroys the session's index if it is still held. It is safe to call
// more than once and after BuildPrompt. A session that was closed before
// building a prompt is failed.
func (s *Session) Close(ctx context.Context) error {
	if s.released {
		return nil
	}
	if s.state != StatePromptBuilt {
		s.state = StateFailed
	}
	return s.release(ctx)
}

func (s *Session) release(ctx context.Context) error {
	if s.released {
		return nil
	}
	s.released = true
	if err := s.opts.Storage.Destroy(ctx, s.handle); err != nil {
		s.log.Error("index teardown failed", "error", err)
		return err
	}
	s.log.Debug("index destroyed")
	return nil
}

func (s *Session) expect(op string, want State) error {
	if s.state != want {
		return domain.Errorf(domain.KindInvalidState, op, "session is %s, want %s", s.state, want)
	}
	return nil
}

func (s *Session) fail(err error) error {
	s.state = StateFailed
	return err
}
