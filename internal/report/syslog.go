//go:build !windows && !plan9

package report

import "log/syslog"

// SyslogSink writes to the local syslog daemon as LOG_ERR|LOG_DAEMON.
type SyslogSink struct {
	Tag string
}

func (s SyslogSink) Open() (LogWriter, error) {
	tag := s.Tag
	if tag == "" {
		tag = LogTag
	}
	w, err := syslog.New(syslog.LOG_ERR|syslog.LOG_DAEMON, tag)
	if err != nil {
		return nil, err
	}
	return w, nil
}
