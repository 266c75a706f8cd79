package catalog

import (
	"context"
	"slices"
	"sync"
)

type MemStore struct {
	once sync.Once
	mu   sync.RWMutex
	ps   []Product
	ids  IDGenerator
}

// NewMemStore returns an empty store that seeds itself on first access.
// A nil ids uses a sequence continuing after the seed ids.
func NewMemStore(ids IDGenerator) *MemStore {
	if ids == nil {
		ids = NewSequence(maxSeedID())
	}
	return &MemStore{ids: ids}
}

func (s *MemStore) ensureInitialized() {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.ps = append(SeedProducts(), s.ps...)
	})
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) List(ctx context.Context) ([]Product, error) {
	s.ensureInitialized()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, len(s.ps))
	copy(out, s.ps)
	return out, nil
}

func (s *MemStore) Create(ctx context.Context, np NewProduct) (Product, error) {
	s.ensureInitialized()

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.ids.Next()
	for s.indexOf(id) >= 0 {
		id = s.ids.Next()
	}

	p := Product{
		ID:       id,
		Name:     np.Name,
		Price:    np.Price,
		ImageURL: np.ImageURL,
	}
	s.ps = append(s.ps, p)
	return p, nil
}

func (s *MemStore) Delete(ctx context.Context, id int64) (bool, error) {
	s.ensureInitialized()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	s.ps = slices.Delete(s.ps, i, i+1)
	return true, nil
}

// indexOf must be called with mu held.
func (s *MemStore) indexOf(id int64) int {
	return slices.IndexFunc(s.ps, func(p Product) bool { return p.ID == id })
}
