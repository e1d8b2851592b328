package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/fleetcheck/internal/check"
	"github.com/hamed0406/fleetcheck/internal/domain"
	"github.com/hamed0406/fleetcheck/internal/repo"
	"github.com/hamed0406/fleetcheck/internal/report"
)

// Periodic dispatches the fleet on an interval, stores each run, writes its
// failures to the log sink and hands it to the alerter. At most one run is
// in progress at a time.
type Periodic struct {
	Logger     *zap.Logger
	Dispatcher *Dispatcher
	Servers    []domain.Server
	Options    *check.Options
	Runs       repo.RunStore
	Alerter    *Alerter // optional
	Sink       report.Sink
	Interval   time.Duration

	running atomic.Bool
}

func NewPeriodic(
	logger *zap.Logger,
	d *Dispatcher,
	servers []domain.Server,
	opts *check.Options,
	runs repo.RunStore,
	alerter *Alerter,
	interval time.Duration,
) *Periodic {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval < 0 {
		interval = 0
	}
	return &Periodic{
		Logger:     logger,
		Dispatcher: d,
		Servers:    servers,
		Options:    opts,
		Runs:       runs,
		Alerter:    alerter,
		Sink:       report.ZapSink{Logger: logger},
		Interval:   interval,
	}
}

// Run starts the loop. It does an immediate pass, then runs each tick.
// Stops when ctx is cancelled.
func (p *Periodic) Run(ctx context.Context) {
	if p.Interval == 0 {
		// disabled
		p.Logger.Info("periodic_disabled")
		return
	}
	t := time.NewTicker(p.Interval)
	defer t.Stop()

	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			p.Logger.Info("periodic_stopped")
			return
		case <-t.C:
			p.tick(ctx)
		}
	}
}

func (p *Periodic) tick(ctx context.Context) {
	if _, err := p.RunOnce(ctx); errors.Is(err, ErrRunInProgress) {
		p.Logger.Debug("periodic_skipped", zap.String("reason", "run in progress"))
	}
}

// Running reports whether a run is in progress.
func (p *Periodic) Running() bool { return p.running.Load() }

// RunOnce dispatches the fleet now and waits for the result.
func (p *Periodic) RunOnce(ctx context.Context) (domain.Run, error) {
	if !p.running.CompareAndSwap(false, true) {
		return domain.Run{}, ErrRunInProgress
	}
	defer p.running.Store(false)
	return p.runOnce(ctx)
}

// Trigger starts a run in the background. The run is detached from ctx
// cancellation so it outlives the request that asked for it.
func (p *Periodic) Trigger(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	go func() {
		defer p.running.Store(false)
		_, _ = p.runOnce(context.WithoutCancel(ctx))
	}()
	return nil
}

func (p *Periodic) runOnce(ctx context.Context) (domain.Run, error) {
	run, err := p.Dispatcher.Dispatch(ctx, p.Servers, p.Options)
	if err != nil {
		p.Logger.Warn("periodic_run_failed", zap.Error(err))
		return domain.Run{}, err
	}
	if err := p.Runs.Save(ctx, run); err != nil {
		p.Logger.Warn("periodic_save_error", zap.String("run_id", run.ID), zap.Error(err))
	}
	if p.Sink != nil {
		if err := report.LogFailures(p.Sink, run.Results); err != nil {
			p.Logger.Warn("periodic_log_sink_error", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
	if p.Alerter != nil {
		if err := p.Alerter.Observe(ctx, run); err != nil {
			p.Logger.Warn("periodic_alert_error", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
	p.Logger.Debug("periodic_run_finished",
		zap.String("run_id", run.ID),
		zap.Bool("passed", run.Passed()),
		zap.Duration("took", run.Duration()),
	)
	return run, nil
}
