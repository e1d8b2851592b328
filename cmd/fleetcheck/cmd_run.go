package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/fleetcheck/internal/domain"
	"github.com/hamed0406/fleetcheck/internal/notify"
	"github.com/hamed0406/fleetcheck/internal/report"
)

// ErrChecksFailed is returned when any check did not pass.
// The returned error causes Cobra to exit with code 1.
var ErrChecksFailed = errors.New("checks not passing")

var (
	runVerbose  bool
	runFormat   string
	runSyslog   bool
	runProgress bool
)

var runCmd = &cobra.Command{
	Use:   "run <manifest>",
	Short: "Check every server in the manifest once and report",
	Args:  cobra.ExactArgs(1),
	RunE:  runFleet,
}

func init() {
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "include passing checks in the report")
	runCmd.Flags().StringVar(&runFormat, "format", "yaml", "report format: yaml, text or json")
	runCmd.Flags().BoolVar(&runSyslog, "syslog", true, "log failures to syslog (falls back to the application log)")
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "print server progress to stderr")
	rootCmd.AddCommand(runCmd)
}

func reportWriter(format string) (func(io.Writer, report.Report) error, error) {
	switch format {
	case "yaml", "":
		return report.WriteYAML, nil
	case "text":
		return report.WriteText, nil
	case "json":
		return report.WriteJSON, nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

func runFleet(cmd *cobra.Command, args []string) error {
	write, err := reportWriter(runFormat)
	if err != nil {
		return err
	}
	servers, err := loadServers(args[0])
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	d := newDispatcher(logger)
	if runProgress {
		stderr := cmd.ErrOrStderr()
		d.Progress = func(done, total int) {
			fmt.Fprintf(stderr, "Running checks: %d/%d\n", done, total)
		}
	}

	ctx := cmd.Context()
	run, err := d.Dispatch(ctx, servers, checkOptions(runVerbose))
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	if err := write(cmd.OutOrStdout(), report.Format(run.Results, runVerbose)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	logFailures(logger, run.Results)
	notifyFailures(ctx, logger, run)

	if !run.Passed() {
		return fmt.Errorf("%w: %d of %d", ErrChecksFailed, len(run.Results.Failures()), run.Results.CheckCount())
	}
	return nil
}

func logFailures(logger *zap.Logger, results domain.RunResultSet) {
	var sink report.Sink = report.ZapSink{Logger: logger}
	if runSyslog {
		sink = report.SyslogSink{Tag: report.LogTag}
	}
	err := report.LogFailures(sink, results)
	if err != nil && runSyslog {
		logger.Warn("syslog_unavailable", zap.Error(err))
		err = report.LogFailures(report.ZapSink{Logger: logger}, results)
	}
	if err != nil {
		logger.Warn("log_failures_error", zap.Error(err))
	}
}

// notifyFailures only sends when a webhook is configured; failures are
// already in the log otherwise.
func notifyFailures(ctx context.Context, logger *zap.Logger, run domain.Run) {
	slack := notify.NewSlack(cfg.SlackWebhookURL)
	if slack == nil {
		return
	}
	if err := report.NotifyFailures(ctx, slack, run); err != nil {
		logger.Warn("notify_error", zap.Error(err))
	}
}
