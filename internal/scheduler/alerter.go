package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/fleetcheck/internal/domain"
	"github.com/hamed0406/fleetcheck/internal/notify"
	"github.com/hamed0406/fleetcheck/internal/repo"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
}

// Alerter notifies when a host/check pair changes between passing and not
// passing across runs.
type Alerter struct {
	alertDB  repo.AlertStore
	notifier notify.Notifier
	cfg      AlerterConfig
	now      func() time.Time
}

func NewAlerter(alertDB repo.AlertStore, notifier notify.Notifier, cfg AlerterConfig) *Alerter {
	return &Alerter{
		alertDB:  alertDB,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

func alertKey(host, check string) string { return host + "/" + check }

// Observe compares the run with the stored state and sends at most one
// down and one recovery notification for it.
func (a *Alerter) Observe(ctx context.Context, run domain.Run) error {
	now := a.now()
	var down, recovered []string
	var errs error

	for _, sr := range run.Results {
		for _, cr := range sr.Checks {
			key := alertKey(sr.Server.Hostname, cr.Check)
			passed := cr.Outcome.Passed()

			rec, err := a.alertDB.Get(ctx, key)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}

			// A first sighting counts as a change only when failing.
			stateChanged := (rec == nil && !passed) || (rec != nil && rec.LastPassed != passed)

			// Cooldown only matters for down alerts.
			cooled := true
			if rec != nil && rec.LastSentAt != nil {
				cooled = now.Sub(*rec.LastSentAt) >= a.cfg.Cooldown
			}

			line := fmt.Sprintf("%s %s %s %s", sr.Server.Hostname, cr.Check, cr.Outcome.Result.Status, cr.Outcome.TrimmedOutput())
			switch {
			case stateChanged && !passed && cooled:
				down = append(down, line)
				errs = multierr.Append(errs, a.alertDB.Set(ctx, key, passed, now))
			case stateChanged && passed && a.cfg.AlertOnRecovery:
				recovered = append(recovered, line)
				errs = multierr.Append(errs, a.alertDB.Set(ctx, key, passed, now))
			case stateChanged || rec == nil:
				errs = multierr.Append(errs, a.alertDB.Set(ctx, key, passed, time.Time{}))
			}
		}
	}

	if len(down) > 0 {
		title := fmt.Sprintf("🔴 %d checks failing", len(down))
		errs = multierr.Append(errs, a.notifier.Send(ctx, title, runText(run, down)))
	}
	if len(recovered) > 0 {
		title := fmt.Sprintf("🟢 %d checks recovered", len(recovered))
		errs = multierr.Append(errs, a.notifier.Send(ctx, title, runText(run, recovered)))
	}
	return errs
}

func runText(run domain.Run, lines []string) string {
	return fmt.Sprintf("Run: %s\nChecked: %s\n%s", run.ID, run.FinishedAt.Format(time.RFC3339), strings.Join(lines, "\n"))
}
