package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ragprompt/internal/chunker"
	"ragprompt/internal/domain"
	"ragprompt/internal/embedding"
	"ragprompt/internal/generation"
	"ragprompt/internal/session"
	"ragprompt/internal/uploads"
	"ragprompt/internal/vectorstore"
)

// ErrGeneration matches failures of the downstream text generation call.
var ErrGeneration = domain.ErrGeneration

// EmbedderResolver creates a fresh embedder for a model name.
type EmbedderResolver interface {
	Resolve(model string) (embedding.Embedder, error)
}

// Settings are the per-request defaults and pipeline parameters.
type Settings struct {
	ChunkSize      int
	ChunkOverlap   int
	TopK           int
	BatchSize      int
	IndexPrefix    string
	QueryTemplate  string
	DocumentType   string
	EmbeddingModel string
	Model          string
}

// Request asks for one generated document grounded on one file.
// Path wins over FileName, which names a file in the upload store.
type Request struct {
	FileName       string `json:"file_name"`
	Path           string `json:"-"`
	DocumentType   string `json:"document_type"`
	EmbeddingModel string `json:"embedding_model_name"`
	Model          string `json:"model_name"`
	AdditionalInfo string `json:"additional_info"`

	Progress embedding.ProgressFunc `json:"-"`
}

// Result is a finished request.
type Result struct {
	Prompt        string
	GeneratedText string
}

// RAGService runs the retrieval pipeline for individual requests. Each
// request owns a separate session, so concurrent calls are independent.
type RAGService struct {
	settings  Settings
	uploads   *uploads.Store
	storage   vectorstore.Storage
	embedders EmbedderResolver
	extractor domain.Extractor
	generator domain.Generator
	log       *slog.Logger
}

// Deps are the collaborators of a RAGService. Generator may be nil when only
// prompts are built.
type Deps struct {
	Uploads   *uploads.Store
	Storage   vectorstore.Storage
	Embedders EmbedderResolver
	Extractor domain.Extractor
	Generator domain.Generator
	Logger    *slog.Logger
}

func NewRAGService(settings Settings, deps Deps) (*RAGService, error) {
	if deps.Storage == nil || deps.Embedders == nil || deps.Extractor == nil {
		return nil, errors.New("service: storage, embedders and extractor are required")
	}
	if _, err := chunker.NewWordChunker(settings.ChunkSize, settings.ChunkOverlap); err != nil {
		return nil, err
	}
	if settings.TopK < 1 {
		return nil, fmt.Errorf("top_k must be >= 1, got %d", settings.TopK)
	}
	if settings.QueryTemplate == "" {
		settings.QueryTemplate = "Create a %s for the patent."
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RAGService{
		settings:  settings,
		uploads:   deps.Uploads,
		storage:   deps.Storage,
		embedders: deps.Embedders,
		extractor: deps.Extractor,
		generator: deps.Generator,
		log:       logger,
	}, nil
}

// Uploads returns the upload store, which may be nil.
func (s *RAGService) Uploads() *uploads.Store { return s.uploads }

// Settings returns the configured defaults.
func (s *RAGService) Settings() Settings { return s.settings }

// BuildPrompt runs the pipeline for req and returns the grounded prompt. The
// session's index is destroyed before BuildPrompt returns, on every path.
func (s *RAGService) BuildPrompt(ctx context.Context, req Request) (string, error) {
	req = s.withDefaults(req)
	path, err := s.resolve(req)
	if err != nil {
		return "", err
	}
	emb, err := s.embedders.Resolve(req.EmbeddingModel)
	if err != nil {
		return "", err
	}
	ch, err := chunker.NewWordChunker(s.settings.ChunkSize, s.settings.ChunkOverlap)
	if err != nil {
		return "", err
	}
	opts := session.Options{
		Storage:     s.storage,
		Embedder:    emb,
		Chunker:     ch,
		Extractor:   s.extractor,
		IndexPrefix: s.settings.IndexPrefix,
		BatchSize:   s.settings.BatchSize,
		Progress:    req.Progress,
		Logger:      s.log.With("file", req.FileName, "embedding_model", emb.Name()),
	}

	var prompt string
	err = session.With(ctx, path, opts, func(sess *session.Session) error {
		if err := sess.Process(ctx); err != nil {
			return err
		}
		p, err := sess.CreatePrompt(ctx, s.query(req.DocumentType), req.DocumentType, req.AdditionalInfo, s.settings.TopK)
		if err != nil {
			return err
		}
		prompt = p
		return nil
	})
	if err != nil {
		return "", err
	}
	return prompt, nil
}

// Generate builds the prompt for req and sends it to the generator.
func (s *RAGService) Generate(ctx context.Context, req Request) (Result, error) {
	if s.generator == nil {
		return Result{}, errors.New("service: no generator configured")
	}
	req = s.withDefaults(req)
	prompt, err := s.BuildPrompt(ctx, req)
	if err != nil {
		return Result{}, err
	}
	text, err := s.generator.Generate(ctx, req.Model, generation.SystemPrompt(req.DocumentType), prompt)
	if err != nil {
		return Result{}, domain.Wrap(domain.KindGeneration, "generate", err)
	}
	s.log.Info("document generated", "file", req.FileName, "document_type", req.DocumentType, "model", req.Model, "chars", len(text))
	return Result{Prompt: prompt, GeneratedText: text}, nil
}

// query substitutes documentType for the first %s of the template. Any other
// text, including stray verbs, is kept literally.
func (s *RAGService) query(documentType string) string {
	return strings.Replace(s.settings.QueryTemplate, "%s", documentType, 1)
}

func (s *RAGService) withDefaults(req Request) Request {
	if strings.TrimSpace(req.DocumentType) == "" {
		req.DocumentType = s.settings.DocumentType
	}
	if strings.TrimSpace(req.EmbeddingModel) == "" {
		req.EmbeddingModel = s.settings.EmbeddingModel
	}
	if strings.TrimSpace(req.Model) == "" {
		req.Model = s.settings.Model
	}
	return req
}

func (s *RAGService) resolve(req Request) (string, error) {
	if req.Path != "" {
		return req.Path, nil
	}
	if s.uploads == nil {
		return "", errors.New("service: no upload store configured")
	}
	if req.FileName == "" {
		return "", fmt.Errorf("%w: file_name is required", uploads.ErrInvalidName)
	}
	return s.uploads.Resolve(req.FileName)
}
