//go:build windows || plan9

package report

type SyslogSink struct {
	Tag string
}

func (SyslogSink) Open() (LogWriter, error) {
	return nil, ErrSyslogUnavailable
}
