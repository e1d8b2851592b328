package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/hamed0406/fleetcheck/internal/domain"
	"github.com/hamed0406/fleetcheck/internal/notify"
)

// NotifyFailures sends one message listing every non-passing record.
// Nothing is sent for a passing run.
func NotifyFailures(ctx context.Context, n notify.Notifier, run domain.Run) error {
	failures := run.Results.Failures()
	if len(failures) == 0 {
		return nil
	}
	lines := make([]string, 0, len(failures))
	for _, f := range failures {
		lines = append(lines, FormatLogMessage(f.Server, f.Record))
	}

	title := fmt.Sprintf("%s: %d of %d checks not passing", LogTag, len(failures), run.Results.CheckCount())
	return n.Send(ctx, title, strings.Join(lines, "\n"))
}
