package report

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/fleetcheck/internal/domain"
)

// LogTag prefixes every log line and names the syslog tag.
const LogTag = "fleetcheck"

var ErrSyslogUnavailable = errors.New("syslog is not available on this platform")

// LogWriter accepts error-severity lines until closed.
type LogWriter interface {
	Err(msg string) error
	Close() error
}

// Sink opens a LogWriter for one emission pass.
type Sink interface {
	Open() (LogWriter, error)
}

// FormatLogMessage renders "fleetcheck <host> <check> <status> <output>".
func FormatLogMessage(srv domain.Server, rec domain.CheckRunRecord) string {
	return fmt.Sprintf("%s %s %s %s %s",
		LogTag, srv.Hostname, rec.Check, rec.Outcome.Result.Status, rec.Outcome.TrimmedOutput())
}

// LogFailures writes one line per non-passing record. The writer is opened
// once and always closed; write and close errors are combined.
func LogFailures(sink Sink, results domain.RunResultSet) (err error) {
	w, err := sink.Open()
	if err != nil {
		return fmt.Errorf("open log sink: %w", err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(w))

	for _, f := range results.Failures() {
		err = multierr.Append(err, w.Err(FormatLogMessage(f.Server, f.Record)))
	}
	return err
}

// ZapSink writes lines to the application logger at error level.
type ZapSink struct {
	Logger *zap.Logger
}

func (s ZapSink) Open() (LogWriter, error) {
	return zapWriter{s.Logger}, nil
}

type zapWriter struct{ l *zap.Logger }

func (z zapWriter) Err(msg string) error {
	z.l.Error("check_not_passing", zap.String("line", msg))
	return nil
}

func (z zapWriter) Close() error { return nil }

// WriterSink writes newline-terminated lines to W.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Open() (LogWriter, error) {
	return lineWriter{s.W}, nil
}

type lineWriter struct{ w io.Writer }

func (l lineWriter) Err(msg string) error {
	_, err := fmt.Fprintln(l.w, msg)
	return err
}

func (l lineWriter) Close() error { return nil }
