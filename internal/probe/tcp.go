package probe

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/hamed0406/fleetcheck/internal/check"
	"github.com/hamed0406/fleetcheck/internal/domain"
)

// ContextDialer abstracts network dialing for testability.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TCPCheck verifies that a port on the server accepts connections.
type TCPCheck struct {
	Name   string
	Port   int
	Dialer ContextDialer
}

func NewTCPCheck(def check.Definition) (check.Runner, error) {
	var spec struct {
		Port int `yaml:"port"`
	}
	if err := def.Decode(&spec); err != nil {
		return nil, err
	}
	if spec.Port <= 0 || spec.Port > 65535 {
		return nil, errors.New("tcp check requires a port between 1 and 65535")
	}
	return &TCPCheck{Name: def.Name, Port: spec.Port, Dialer: &net.Dialer{}}, nil
}

func (c *TCPCheck) Run(ctx context.Context, srv domain.Server, opts *check.Options) (domain.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, timeoutOf(opts))
	defer cancel()

	addr := net.JoinHostPort(srv.Hostname, strconv.Itoa(c.Port))
	conn, err := c.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return domain.Fail(c.Name, "connection failed: "+err.Error()), nil
	}
	_ = conn.Close()
	return domain.Pass(c.Name, "connected to "+addr), nil
}
