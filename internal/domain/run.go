package domain

import "time"

// Run is the context of one dispatch over the fleet. It is built per
// invocation and handed to reporters by value.
type Run struct {
	ID         string       `json:"id" yaml:"id"`
	StartedAt  time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time    `json:"finished_at" yaml:"finished_at"`
	Servers    int          `json:"servers" yaml:"servers"`
	Completed  int          `json:"completed" yaml:"completed"`
	Results    RunResultSet `json:"results" yaml:"results"`
	// Crashes holds messages of servers whose scheduling broke while
	// failures were isolated.
	Crashes []string `json:"crashes,omitempty" yaml:"crashes,omitempty"`
}

// Passed reports whether every recorded check passed.
func (r Run) Passed() bool {
	return len(r.Results.Failures()) == 0
}

func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
