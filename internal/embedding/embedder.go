package embedding

import (
	"context"
	"errors"
	"fmt"

	"ragprompt/internal/domain"
)

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
// The dimension must not change once the first vector has been produced.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// DefaultBatchSize is used when EmbedAll is given a non-positive batch size.
const DefaultBatchSize = 32

// ProgressFunc is called after each batch with the number of texts embedded so far.
type ProgressFunc func(done, total int)

// EmbedAll embeds texts in order, batchSize at a time. Any failure aborts the
// whole call with an embedding error; partial results are never returned.
func EmbedAll(ctx context.Context, e Embedder, texts []string, batchSize int, progress ProgressFunc) ([][]float64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	out := make([][]float64, 0, len(texts))
	dim := 0
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.EmbedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, classify(fmt.Errorf("embed batch %d-%d: %w", i, end, err))
		}
		if len(vecs) != end-i {
			return nil, domain.Errorf(domain.KindEmbedding, "embed", "model %s returned %d vectors for %d texts", e.Name(), len(vecs), end-i)
		}
		for _, v := range vecs {
			if dim == 0 {
				dim = len(v)
			}
			if len(v) == 0 || len(v) != dim {
				return nil, domain.Errorf(domain.KindEmbedding, "embed", "model %s returned a %d-dimensional vector, want %d", e.Name(), len(v), dim)
			}
		}
		out = append(out, vecs...)
		if progress != nil {
			progress(end, len(texts))
		}
	}
	return out, nil
}

// EmbedText embeds a single text, classifying failures as embedding errors.
func EmbedText(ctx context.Context, e Embedder, text string) ([]float64, error) {
	v, err := e.Embed(ctx, text)
	if err != nil {
		return nil, classify(err)
	}
	if len(v) == 0 {
		return nil, domain.Errorf(domain.KindEmbedding, "embed", "model %s returned an empty vector", e.Name())
	}
	return v, nil
}

func classify(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.Wrap(domain.KindEmbedding, "embed", err)
}
