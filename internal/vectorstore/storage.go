package vectorstore

import (
	"context"

	"ragprompt/internal/domain"
)

// Handle names one index allocated by a Storage.
type Handle struct {
	Name string
}

// Storage allocates named, ephemeral vector indexes and answers top-k
// similarity queries against them. Operations on a handle that was never
// created or has been destroyed fail with domain.ErrIndexNotFound.
type Storage interface {
	Create(ctx context.Context, name string) (Handle, error)
	Upsert(ctx context.Context, h Handle, entries []domain.IndexedEntry) error
	Query(ctx context.Context, h Handle, vector []float64, topK int) ([]domain.SearchResult, error)
	Count(ctx context.Context, h Handle) (int, error)
	Destroy(ctx context.Context, h Handle) error
}
