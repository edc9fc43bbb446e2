package embedding

import (
	"fmt"
	"strings"
	"time"

	"ragprompt/internal/domain"
	"ragprompt/internal/embedding/openai"
	"ragprompt/internal/embedding/tfidf"
)

// RemoteConfig locates the OpenAI-compatible embeddings endpoint used for
// every model name other than the local tfidf model.
type RemoteConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Resolver creates embedders by model name. Each call returns a fresh
// instance so that sessions never share embedder state.
type Resolver struct {
	remote RemoteConfig
}

func NewResolver(remote RemoteConfig) *Resolver {
	return &Resolver{remote: remote}
}

// Resolve returns an embedder for model. A blank name is an embedding error.
func (r *Resolver) Resolve(model string) (Embedder, error) {
	model = strings.TrimSpace(model)
	switch model {
	case "":
		return nil, domain.Errorf(domain.KindEmbedding, "resolve embedder", "embedding model name is empty")
	case tfidf.ModelName:
		return tfidf.NewEmbedder(), nil
	}
	c, err := openai.NewClient(openai.Config{
		BaseURL: r.remote.BaseURL,
		APIKey:  r.remote.APIKey,
		Model:   model,
		Timeout: r.remote.Timeout,
	})
	if err != nil {
		return nil, domain.Wrap(domain.KindEmbedding, "resolve embedder", fmt.Errorf("model %s: %w", model, err))
	}
	return c, nil
}
