// Package scheduler runs checks against servers: the gated per-server
// scheduler, the fleet dispatcher that fans it out, and the periodic loop
// used by the API server.
package scheduler

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/fleetcheck/internal/check"
	"github.com/hamed0406/fleetcheck/internal/domain"
)

const DefaultCheckConcurrency = 5

// Gated runs one server's checks. The gate runs first and alone; when it
// does not pass, checks that depend on it are dropped. Survivors run with at
// most Concurrency executions in flight.
type Gated struct {
	Logger      *zap.Logger
	Concurrency int
}

func NewGated(logger *zap.Logger, concurrency int) *Gated {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = DefaultCheckConcurrency
	}
	return &Gated{Logger: logger, Concurrency: concurrency}
}

// Run returns the server's records with the gate first. Records of the
// remaining checks follow in submission order. A crashing check fails the
// whole server and no partial record is returned. In-flight checks are not
// cancelled when a sibling crashes.
func (g *Gated) Run(ctx context.Context, srv domain.Server, checks []*check.Check) (domain.ServerRunRecord, error) {
	gate, rest := splitGate(checks)
	records := make([]domain.CheckRunRecord, 0, len(checks))

	if gate != nil {
		out, err := gate.Run(ctx, srv)
		if err != nil {
			return domain.ServerRunRecord{}, &CrashError{Hostname: srv.Hostname, Check: gate.Name, Err: err}
		}
		records = append(records, domain.CheckRunRecord{Check: gate.Name, Outcome: out})
		if !out.Passed() {
			kept := pruneDependents(rest)
			g.Logger.Info("gate_not_passed",
				zap.String("host", srv.Hostname),
				zap.String("status", string(out.Result.Status)),
				zap.Int("dropped", len(rest)-len(kept)),
			)
			rest = kept
		}
	}

	results := make([]domain.CheckRunRecord, len(rest))
	var eg errgroup.Group
	eg.SetLimit(g.limit())
	for i, c := range rest {
		i, c := i, c
		eg.Go(func() error {
			out, err := c.Run(ctx, srv)
			if err != nil {
				return &CrashError{Hostname: srv.Hostname, Check: c.Name, Err: err}
			}
			results[i] = domain.CheckRunRecord{Check: c.Name, Outcome: out}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return domain.ServerRunRecord{}, err
	}

	return domain.ServerRunRecord{Server: srv, Checks: append(records, results...)}, nil
}

func (g *Gated) limit() int {
	if g.Concurrency < 1 {
		return DefaultCheckConcurrency
	}
	return g.Concurrency
}

// splitGate returns the first gate-role check and the others in order.
// The input slice is not modified.
func splitGate(checks []*check.Check) (*check.Check, []*check.Check) {
	var gate *check.Check
	rest := make([]*check.Check, 0, len(checks))
	for _, c := range checks {
		if gate == nil && c.Role == check.RoleGate {
			gate = c
			continue
		}
		rest = append(rest, c)
	}
	return gate, rest
}

func pruneDependents(checks []*check.Check) []*check.Check {
	kept := make([]*check.Check, 0, len(checks))
	for _, c := range checks {
		if !c.DependsOnGate() {
			kept = append(kept, c)
		}
	}
	return kept
}
