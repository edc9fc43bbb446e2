package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"ragprompt/internal/domain"
	"ragprompt/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant that maps every index to its own
// collection. Collections use cosine distance and are created lazily on the
// first upsert, once the vector size is known.
type Storage struct {
	url    string
	apiKey string
	client *http.Client

	mu          sync.Mutex
	collections map[string]*collection
}

type collection struct {
	dimension int
	ids       map[string]struct{}
}

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:         cfg.URL,
		apiKey:      cfg.APIKey,
		client:      &http.Client{Timeout: timeout},
		collections: make(map[string]*collection),
	}
}

// Create reserves name after checking that Qdrant is reachable and holds no
// collection of that name.
func (s *Storage) Create(ctx context.Context, name string) (vectorstore.Handle, error) {
	if name == "" {
		return vectorstore.Handle{}, domain.Errorf(domain.KindIndexAllocation, "create index", "index name is empty")
	}
	s.mu.Lock()
	_, taken := s.collections[name]
	s.mu.Unlock()
	if taken {
		return vectorstore.Handle{}, domain.Errorf(domain.KindIndexAllocation, "create index", "index %q already exists", name)
	}

	status, err := s.do(ctx, http.MethodGet, s.collectionURL(name), nil, nil)
	if err != nil {
		return vectorstore.Handle{}, domain.Wrap(domain.KindIndexAllocation, "create index", err)
	}
	if status != http.StatusNotFound {
		return vectorstore.Handle{}, domain.Errorf(domain.KindIndexAllocation, "create index", "collection %q already exists in qdrant", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return vectorstore.Handle{}, domain.Errorf(domain.KindIndexAllocation, "create index", "index %q already exists", name)
	}
	s.collections[name] = &collection{ids: make(map[string]struct{})}
	return vectorstore.Handle{Name: name}, nil
}

// Upsert requires entry ids to be unsigned integers, which Qdrant accepts as
// point ids. The batch is validated and reserved under the lock; the HTTP
// calls run without it and a failed call releases the reservation.
func (s *Storage) Upsert(ctx context.Context, h vectorstore.Handle, entries []domain.IndexedEntry) error {
	if len(entries) == 0 {
		s.mu.Lock()
		_, err := s.lookup("upsert", h)
		s.mu.Unlock()
		return err
	}
	points, created, err := s.reserve(h, entries)
	if err != nil {
		return err
	}

	if created {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     len(entries[0].Vector),
				"distance": "Cosine",
			},
		}
		if err := s.expectOK(ctx, http.MethodPut, s.collectionURL(h.Name), body, nil); err != nil {
			s.unreserve(h, entries, created)
			return domain.Wrap(domain.KindIndexAllocation, "upsert", err)
		}
	}

	body := map[string]any{"points": points}
	if err := s.expectOK(ctx, http.MethodPut, s.collectionURL(h.Name)+"/points?wait=true", body, nil); err != nil {
		s.unreserve(h, entries, created)
		return err
	}
	return nil
}

// reserve checks the batch against the index and records its ids and
// dimension. created reports whether the batch fixed the dimension, in which
// case the collection still has to be created in Qdrant.
func (s *Storage) reserve(h vectorstore.Handle, entries []domain.IndexedEntry) (points []map[string]any, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.lookup("upsert", h)
	if err != nil {
		return nil, false, err
	}

	dim := c.dimension
	batch := make(map[string]struct{}, len(entries))
	points = make([]map[string]any, len(entries))
	for i, e := range entries {
		pid, err := strconv.ParseUint(e.ID, 10, 64)
		if err != nil {
			return nil, false, domain.Errorf(domain.KindInvariantViolation, "upsert", "entry id %q is not an unsigned integer", e.ID)
		}
		if _, ok := c.ids[e.ID]; ok {
			return nil, false, domain.Errorf(domain.KindInvariantViolation, "upsert", "duplicate id %q in index %q", e.ID, h.Name)
		}
		if _, ok := batch[e.ID]; ok {
			return nil, false, domain.Errorf(domain.KindInvariantViolation, "upsert", "duplicate id %q in batch", e.ID)
		}
		batch[e.ID] = struct{}{}
		if dim == 0 {
			dim = len(e.Vector)
		}
		if len(e.Vector) == 0 || len(e.Vector) != dim {
			return nil, false, domain.Errorf(domain.KindInvariantViolation, "upsert", "entry %q has dimension %d, index expects %d", e.ID, len(e.Vector), dim)
		}
		points[i] = map[string]any{
			"id":     pid,
			"vector": e.Vector,
			"payload": map[string]any{
				"id":       e.ID,
				"text":     e.Text,
				"metadata": e.Metadata,
			},
		}
	}

	created = c.dimension == 0
	c.dimension = dim
	for id := range batch {
		c.ids[id] = struct{}{}
	}
	return points, created, nil
}

func (s *Storage) unreserve(h vectorstore.Handle, entries []domain.IndexedEntry, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[h.Name]
	if !ok {
		return
	}
	for _, e := range entries {
		delete(c.ids, e.ID)
	}
	if created {
		c.dimension = 0
	}
}

// Query asks Qdrant for every point and ranks them locally, so that equal
// scores are ordered by ascending id before the list is cut to topK.
func (s *Storage) Query(ctx context.Context, h vectorstore.Handle, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.Lock()
	c, err := s.lookup("query", h)
	var dim, size int
	if err == nil {
		dim, size = c.dimension, len(c.ids)
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if topK < 1 {
		return nil, domain.Errorf(domain.KindInvariantViolation, "query", "top_k must be >= 1, got %d", topK)
	}
	if dim == 0 || size == 0 {
		return nil, nil
	}
	if len(vector) != dim {
		return nil, domain.Errorf(domain.KindInvariantViolation, "query", "query vector has dimension %d, index expects %d", len(vector), dim)
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        size,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				ID       string            `json:"id"`
				Text     string            `json:"text"`
				Metadata map[string]string `json:"metadata"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := s.expectOK(ctx, http.MethodPost, s.collectionURL(h.Name)+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			ID:    r.Payload.ID,
			Chunk: domain.Chunk{Text: r.Payload.Text, Metadata: domain.MetadataFromMap(r.Payload.Metadata)},
			Score: r.Score,
		})
	}
	vectorstore.SortResults(results)
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (s *Storage) Count(_ context.Context, h vectorstore.Handle) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.lookup("count", h)
	if err != nil {
		return 0, err
	}
	return len(c.ids), nil
}

// Destroy drops the collection. The handle is released even if Qdrant
// reports an error, which is returned to the caller.
func (s *Storage) Destroy(ctx context.Context, h vectorstore.Handle) error {
	s.mu.Lock()
	c, err := s.lookup("destroy", h)
	if err == nil {
		delete(s.collections, h.Name)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if c.dimension == 0 {
		return nil
	}
	status, err := s.do(ctx, http.MethodDelete, s.collectionURL(h.Name), nil, nil)
	if err != nil {
		return err
	}
	if status >= 300 && status != http.StatusNotFound {
		return fmt.Errorf("qdrant DELETE collection %s failed: %d", h.Name, status)
	}
	return nil
}

func (s *Storage) lookup(op string, h vectorstore.Handle) (*collection, error) {
	c, ok := s.collections[h.Name]
	if !ok {
		return nil, domain.Errorf(domain.KindIndexNotFound, op, "index %q does not exist", h.Name)
	}
	return c, nil
}

func (s *Storage) collectionURL(name string) string {
	return fmt.Sprintf("%s/collections/%s", s.url, url.PathEscape(name))
}

func (s *Storage) expectOK(ctx context.Context, method, u string, body, out any) error {
	status, err := s.do(ctx, method, u, body, out)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %d", method, u, status)
	}
	return nil
}

// do sends body as JSON and decodes a 2xx response into out when out is non-nil.
func (s *Storage) do(ctx context.Context, method, u string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
