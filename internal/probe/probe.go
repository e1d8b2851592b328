// Package probe implements the check types that can appear in category
// files: the ssh gate, remote commands, tcp, http and dns.
package probe

import (
	"time"

	"github.com/hamed0406/fleetcheck/internal/check"
)

const defaultTimeout = 10 * time.Second

// Builders returns a builder for every check type, sharing one SSH connector.
func Builders() map[string]check.Builder {
	return BuildersWith(&SSHConnector{})
}

func BuildersWith(conn Connector) map[string]check.Builder {
	return map[string]check.Builder{
		"ssh": func(def check.Definition) (check.Runner, error) {
			return &SSHCheck{Name: def.Name, Connector: conn}, nil
		},
		"command": func(def check.Definition) (check.Runner, error) {
			return NewCommandCheck(def, conn)
		},
		"tcp":  NewTCPCheck,
		"http": NewHTTPCheck,
		"dns": func(def check.Definition) (check.Runner, error) {
			return &DNSCheck{Name: def.Name}, nil
		},
	}
}

func timeoutOf(opts *check.Options) time.Duration {
	if opts == nil || opts.Timeout <= 0 {
		return defaultTimeout
	}
	return opts.Timeout
}
