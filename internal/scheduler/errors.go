package scheduler

import (
	"errors"
	"fmt"
)

var ErrRunInProgress = errors.New("a run is already in progress")

// CrashError reports a check that returned an error or panicked instead of
// producing an outcome. It aborts the scheduling of its server.
type CrashError struct {
	Hostname string
	Check    string
	Err      error
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("%s: check %s crashed: %v", e.Hostname, e.Check, e.Err)
}

func (e *CrashError) Unwrap() error { return e.Err }
