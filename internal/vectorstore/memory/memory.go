package memory

import (
	"context"
	"sync"

	"ragprompt/internal/domain"
	"ragprompt/internal/vectorstore"
)

// Storage is an in-process registry of named indexes searched by brute-force
// cosine similarity. One Storage may be shared by concurrent sessions; each
// index is owned by the session that created it.
type Storage struct {
	mu         sync.Mutex
	maxIndexes int
	indexes    map[string]*index
}

type index struct {
	dimension int
	ids       map[string]struct{}
	entries   []domain.IndexedEntry
}

// NewStorage creates a storage without a limit on live indexes.
func NewStorage() *Storage { return NewStorageWithLimit(0) }

// NewStorageWithLimit creates a storage that refuses to allocate more than
// maxIndexes live indexes. Zero means unlimited.
func NewStorageWithLimit(maxIndexes int) *Storage {
	return &Storage{maxIndexes: maxIndexes, indexes: make(map[string]*index)}
}

func (s *Storage) Create(_ context.Context, name string) (vectorstore.Handle, error) {
	if name == "" {
		return vectorstore.Handle{}, domain.Errorf(domain.KindIndexAllocation, "create index", "index name is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; ok {
		return vectorstore.Handle{}, domain.Errorf(domain.KindIndexAllocation, "create index", "index %q already exists", name)
	}
	if s.maxIndexes > 0 && len(s.indexes) >= s.maxIndexes {
		return vectorstore.Handle{}, domain.Errorf(domain.KindIndexAllocation, "create index", "limit of %d live indexes reached", s.maxIndexes)
	}
	s.indexes[name] = &index{ids: make(map[string]struct{})}
	return vectorstore.Handle{Name: name}, nil
}

// Upsert validates the whole batch before inserting any of it.
func (s *Storage) Upsert(_ context.Context, h vectorstore.Handle, entries []domain.IndexedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.lookup("upsert", h)
	if err != nil {
		return err
	}
	dim := idx.dimension
	batch := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			return domain.Errorf(domain.KindInvariantViolation, "upsert", "entry id is empty")
		}
		if _, ok := idx.ids[e.ID]; ok {
			return domain.Errorf(domain.KindInvariantViolation, "upsert", "duplicate id %q in index %q", e.ID, h.Name)
		}
		if _, ok := batch[e.ID]; ok {
			return domain.Errorf(domain.KindInvariantViolation, "upsert", "duplicate id %q in batch", e.ID)
		}
		batch[e.ID] = struct{}{}
		if dim == 0 {
			dim = len(e.Vector)
		}
		if len(e.Vector) == 0 || len(e.Vector) != dim {
			return domain.Errorf(domain.KindInvariantViolation, "upsert", "entry %q has dimension %d, index expects %d", e.ID, len(e.Vector), dim)
		}
	}
	idx.dimension = dim
	for _, e := range entries {
		idx.ids[e.ID] = struct{}{}
		idx.entries = append(idx.entries, e)
	}
	return nil
}

func (s *Storage) Query(_ context.Context, h vectorstore.Handle, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.lookup("query", h)
	if err != nil {
		return nil, err
	}
	if topK < 1 {
		return nil, domain.Errorf(domain.KindInvariantViolation, "query", "top_k must be >= 1, got %d", topK)
	}
	if idx.dimension != 0 && len(vector) != idx.dimension {
		return nil, domain.Errorf(domain.KindInvariantViolation, "query", "query vector has dimension %d, index expects %d", len(vector), idx.dimension)
	}
	return vectorstore.Rank(idx.entries, vector, topK), nil
}

func (s *Storage) Count(_ context.Context, h vectorstore.Handle) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.lookup("count", h)
	if err != nil {
		return 0, err
	}
	return len(idx.entries), nil
}

func (s *Storage) Destroy(_ context.Context, h vectorstore.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup("destroy", h); err != nil {
		return err
	}
	delete(s.indexes, h.Name)
	return nil
}

// Len returns the number of live indexes.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.indexes)
}

func (s *Storage) lookup(op string, h vectorstore.Handle) (*index, error) {
	idx, ok := s.indexes[h.Name]
	if !ok {
		return nil, domain.Errorf(domain.KindIndexNotFound, op, "index %q does not exist", h.Name)
	}
	return idx, nil
}
