package repo

import (
	"context"
	"errors"
	"time"

	"github.com/hamed0406/fleetcheck/internal/domain"
)

var ErrNotFound = errors.New("run not found")

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Servers    int       `json:"servers"`
	Checks     int       `json:"checks"`
	Failures   int       `json:"failures"`
	Crashes    int       `json:"crashes"`
	Passed     bool      `json:"passed"`
}

func Summarize(run domain.Run) RunSummary {
	failures := len(run.Results.Failures())
	return RunSummary{
		ID:         run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Servers:    run.Servers,
		Checks:     run.Results.CheckCount(),
		Failures:   failures,
		Crashes:    len(run.Crashes),
		Passed:     failures == 0,
	}
}

// Ports (interfaces); swap in any DB adapter later.
type RunStore interface {
	Save(ctx context.Context, run domain.Run) error
	// Latest returns ErrNotFound before the first run is saved.
	Latest(ctx context.Context) (domain.Run, error)
	Get(ctx context.Context, id string) (domain.Run, error)
	// List returns summaries newest first.
	List(ctx context.Context) ([]RunSummary, error)
}
