package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/fleetcheck/internal/check"
	"github.com/hamed0406/fleetcheck/internal/domain"
)

const (
	DefaultServerConcurrency = 10

	// CrashCheckName keys the record that stands in for a server whose
	// scheduling crashed while failures are isolated.
	CrashCheckName = "scheduler"
)

// ProgressFunc observes completed servers. Calls are serialized.
type ProgressFunc func(done, total int)

// Dispatcher runs the gated scheduler for every server with at most
// Concurrency servers in flight.
type Dispatcher struct {
	Logger      *zap.Logger
	Loader      check.Loader
	Scheduler   *Gated
	Concurrency int
	// IsolateFailures records a crashing server as an error outcome instead
	// of aborting the dispatch.
	IsolateFailures bool
	Progress        ProgressFunc
}

func NewDispatcher(logger *zap.Logger, loader check.Loader, sched *Gated, concurrency int) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sched == nil {
		sched = NewGated(logger, DefaultCheckConcurrency)
	}
	if concurrency < 1 {
		concurrency = DefaultServerConcurrency
	}
	return &Dispatcher{
		Logger:      logger,
		Loader:      loader,
		Scheduler:   sched,
		Concurrency: concurrency,
	}
}

// dispatch is the state of one Dispatch call.
type dispatch struct {
	mu      sync.Mutex
	done    int
	crashes error
	aborted atomic.Bool
}

// Dispatch checks every server and returns the run with results in input
// order. opts is shared read-only by every check. Without IsolateFailures
// the first crash aborts the run: servers not yet started are skipped,
// servers in flight finish, and the crash is returned without a run.
func (d *Dispatcher) Dispatch(ctx context.Context, servers []domain.Server, opts *check.Options) (domain.Run, error) {
	run := domain.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Servers:   len(servers),
	}
	if opts == nil {
		opts = &check.Options{}
	}
	log := d.Logger.With(zap.String("run_id", run.ID))
	log.Info("dispatch_started", zap.Int("servers", len(servers)), zap.Int("concurrency", d.limit()))

	st := &dispatch{}
	results := make(domain.RunResultSet, len(servers))

	var eg errgroup.Group
	eg.SetLimit(d.limit())
	for i, srv := range servers {
		i, srv := i, srv
		if st.aborted.Load() {
			break
		}
		eg.Go(func() error {
			if st.aborted.Load() {
				return nil
			}
			rec, err := d.runServer(ctx, srv, opts)
			if err != nil {
				if !d.IsolateFailures {
					st.aborted.Store(true)
					log.Error("server_crashed", zap.String("host", srv.Hostname), zap.Error(err))
					return err
				}
				log.Warn("server_crashed_isolated", zap.String("host", srv.Hostname), zap.Error(err))
				rec = crashRecord(srv, err)
				st.mu.Lock()
				st.crashes = multierr.Append(st.crashes, err)
				st.mu.Unlock()
			}
			results[i] = rec
			log.Debug("server_checked", zap.String("host", srv.Hostname), zap.Int("checks", len(rec.Checks)))
			d.progress(st, len(servers))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.Error("dispatch_aborted", zap.Error(err))
		return domain.Run{}, err
	}

	run.FinishedAt = time.Now().UTC()
	run.Completed = st.done
	run.Results = results
	for _, err := range multierr.Errors(st.crashes) {
		run.Crashes = append(run.Crashes, err.Error())
	}
	log.Info("dispatch_finished",
		zap.Int("completed", run.Completed),
		zap.Int("failures", len(results.Failures())),
		zap.Int("crashes", len(run.Crashes)),
		zap.Duration("took", run.Duration()),
	)
	return run, nil
}

func (d *Dispatcher) runServer(ctx context.Context, srv domain.Server, opts *check.Options) (domain.ServerRunRecord, error) {
	checks, err := d.Loader.Load(srv.Categories, opts)
	if err != nil {
		return domain.ServerRunRecord{}, fmt.Errorf("%s: load checks: %w", srv.Hostname, err)
	}
	for _, c := range checks {
		c.Options = opts
	}
	return d.Scheduler.Run(ctx, srv, checks)
}

func (d *Dispatcher) progress(st *dispatch, total int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.done++
	if d.Progress != nil {
		d.Progress(st.done, total)
	}
}

func (d *Dispatcher) limit() int {
	if d.Concurrency < 1 {
		return DefaultServerConcurrency
	}
	return d.Concurrency
}

func crashRecord(srv domain.Server, err error) domain.ServerRunRecord {
	return domain.ServerRunRecord{
		Server: srv,
		Checks: []domain.CheckRunRecord{{
			Check:   CrashCheckName,
			Outcome: domain.Error(CrashCheckName, err.Error()),
		}},
	}
}
