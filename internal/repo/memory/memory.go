package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/hamed0406/fleetcheck/internal/domain"
	"github.com/hamed0406/fleetcheck/internal/repo"
)

const DefaultCapacity = 20

// Store keeps the most recent runs in process. Nothing survives a restart.
type Store struct {
	mu       sync.RWMutex
	capacity int
	runs     []domain.Run // oldest first
}

func New(capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		runs:     make([]domain.Run, 0, capacity),
	}
}

func (m *Store) Save(ctx context.Context, run domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == m.capacity {
		m.runs = slices.Delete(m.runs, 0, 1)
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *Store) Latest(ctx context.Context) (domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.runs) == 0 {
		return domain.Run{}, repo.ErrNotFound
	}
	return m.runs[len(m.runs)-1], nil
}

func (m *Store) Get(ctx context.Context, id string) (domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Run{}, repo.ErrNotFound
}

func (m *Store) List(ctx context.Context) ([]repo.RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]repo.RunSummary, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0; i-- {
		out = append(out, repo.Summarize(m.runs[i]))
	}
	return out, nil
}
