package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hamed0406/fleetcheck/internal/check"
	"github.com/hamed0406/fleetcheck/internal/domain"
)

// --- fakes ---

type stub struct {
	name   string
	deps   []string
	status domain.Status
	delay  time.Duration
	err    error
	panics bool
}

// tracker records concurrency and which checks ran.
type tracker struct {
	mu       sync.Mutex
	ran      []string
	inFlight atomic.Int32
	max      atomic.Int32
}

func (tr *tracker) enter() {
	n := tr.inFlight.Add(1)
	for {
		m := tr.max.Load()
		if n <= m || tr.max.CompareAndSwap(m, n) {
			return
		}
	}
}

func (tr *tracker) leave() { tr.inFlight.Add(-1) }

func (tr *tracker) record(name string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.ran = append(tr.ran, name)
}

func (tr *tracker) ranNames() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.ran...)
}

func build(tr *tracker, specs ...stub) []*check.Check {
	out := make([]*check.Check, 0, len(specs))
	for _, s := range specs {
		s := s
		out = append(out, check.New(s.name, s.deps, check.RunnerFunc(
			func(_ context.Context, srv domain.Server, _ *check.Options) (domain.Outcome, error) {
				if tr != nil {
					tr.enter()
					defer tr.leave()
					tr.record(s.name)
				}
				if s.delay > 0 {
					time.Sleep(s.delay)
				}
				if s.panics {
					panic("check exploded")
				}
				if s.err != nil {
					return domain.Outcome{}, s.err
				}
				status := s.status
				if status == "" {
					status = domain.StatusPass
				}
				return domain.NewOutcome(s.name, status, srv.Hostname), nil
			})))
	}
	return out
}

func recordNames(rec domain.ServerRunRecord) []string {
	out := make([]string, len(rec.Checks))
	for i, c := range rec.Checks {
		out[i] = c.Check
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[string]int{}
	for _, x := range a {
		seen[x]++
	}
	for _, x := range b {
		seen[x]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}
