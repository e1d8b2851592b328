package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/fleetcheck/internal/repo"
)

type Alerts struct {
	mu sync.Mutex
	m  map[string]repo.AlertRecord
}

func NewAlerts() *Alerts {
	return &Alerts{m: make(map[string]repo.AlertRecord)}
}

func (a *Alerts) Get(ctx context.Context, key string) (*repo.AlertRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.m[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (a *Alerts) Set(ctx context.Context, key string, passed bool, sentAt time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec := repo.AlertRecord{Key: key, LastPassed: passed}
	if !sentAt.IsZero() {
		rec.LastSentAt = &sentAt
	}
	a.m[key] = rec
	return nil
}
