package service

import (
	"fmt"
	"log/slog"
	"time"

	"ragprompt/internal/config"
	"ragprompt/internal/embedding"
	"ragprompt/internal/extract"
	"ragprompt/internal/generation"
	"ragprompt/internal/uploads"
	"ragprompt/internal/vectorstore"
	"ragprompt/internal/vectorstore/memory"
	"ragprompt/internal/vectorstore/qdrant"
)

// NewStorage returns the vector store selected by cfg.
func NewStorage(cfg config.VectorStoreConfig) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		return qdrant.NewStorage(qdrant.Config{
			URL:     cfg.Qdrant.URL,
			APIKey:  cfg.Qdrant.APIKey,
			Timeout: time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	}
	return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
}

// FromConfig assembles a RAGService from the application config.
func FromConfig(cfg *config.AppConfig, logger *slog.Logger) (*RAGService, error) {
	st, err := NewStorage(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	resolver := embedding.NewResolver(embedding.RemoteConfig{
		BaseURL: cfg.Embedder.OpenAI.BaseURL,
		APIKey:  cfg.Embedder.OpenAI.APIKey(),
		Timeout: cfg.Embedder.OpenAI.Timeout(),
	})
	gen := generation.NewClient(generation.Config{
		BaseURL: cfg.Generator.BaseURL,
		APIKey:  cfg.Generator.APIKey(),
		Timeout: time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
	})
	return NewRAGService(SettingsFromConfig(cfg), Deps{
		Uploads:   uploads.NewStore(cfg.Server.UploadDir),
		Storage:   st,
		Embedders: resolver,
		Extractor: extract.NewAuto(logger),
		Generator: gen,
		Logger:    logger,
	})
}

func SettingsFromConfig(cfg *config.AppConfig) Settings {
	return Settings{
		ChunkSize:      cfg.Chunker.ChunkSize,
		ChunkOverlap:   cfg.Chunker.ChunkOverlap,
		TopK:           cfg.Retrieval.TopK,
		BatchSize:      cfg.Embedder.OpenAI.BatchSize,
		IndexPrefix:    cfg.VectorStore.Qdrant.CollectionPrefix,
		QueryTemplate:  cfg.Retrieval.QueryTemplate,
		DocumentType:   cfg.Document.DefaultType,
		EmbeddingModel: cfg.Embedder.Model,
		Model:          cfg.Generator.Model,
	}
}
