package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/hamed0406/fleetcheck/internal/check"
	"github.com/hamed0406/fleetcheck/internal/domain"
)

var (
	ErrNoPrincipal = errors.New("no username configured")
	ErrNoPort      = errors.New("no port configured")
	ErrNoAuth      = errors.New("no ssh credentials available")
)

// ExecResult is what a remote command produced.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Client is an open connection to a server.
type Client interface {
	Exec(ctx context.Context, cmd string) (ExecResult, error)
	Close() error
}

// Connector opens connections; injected so tests avoid real SSH servers.
type Connector interface {
	Connect(ctx context.Context, srv domain.Server, opts *check.Options) (Client, error)
}

// SSHConnector dials servers with golang.org/x/crypto/ssh. Auth methods are
// tried in order: key file, ssh-agent, password from an env var.
type SSHConnector struct {
	Dialer net.Dialer
}

func (c *SSHConnector) Connect(ctx context.Context, srv domain.Server, opts *check.Options) (Client, error) {
	cfg, release, err := clientConfig(srv, opts)
	if err != nil {
		return nil, err
	}
	// agent signers are only needed during the handshake
	defer release()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	addr := srv.Address()
	conn, err := c.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	sc, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return &sshClient{c: ssh.NewClient(sc, chans, reqs)}, nil
}

// clientConfig builds the handshake config. release closes the ssh-agent
// connection, if one was opened, and must be called once the handshake is over.
func clientConfig(srv domain.Server, opts *check.Options) (cfg *ssh.ClientConfig, release func(), err error) {
	if srv.Principal == "" {
		return nil, nil, ErrNoPrincipal
	}
	if srv.Port == 0 {
		return nil, nil, ErrNoPort
	}
	if opts == nil {
		opts = &check.Options{}
	}
	hostKey := ssh.InsecureIgnoreHostKey() //nolint:gosec // verification is opt-in via KnownHostsFile
	if opts.KnownHostsFile != "" {
		cb, err := knownhosts.New(opts.KnownHostsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("known_hosts: %w", err)
		}
		hostKey = cb
	}
	auths, agentConn, err := authMethods(opts)
	if err != nil {
		return nil, nil, err
	}
	release = func() {}
	if agentConn != nil {
		release = func() { _ = agentConn.Close() }
	}
	return &ssh.ClientConfig{
		User:            srv.Principal,
		Auth:            auths,
		HostKeyCallback: hostKey,
		Timeout:         timeoutOf(opts),
	}, release, nil
}

// authMethods collects the configured credentials. The returned agent
// connection is nil unless SSH_AUTH_SOCK was dialed; the caller closes it.
func authMethods(opts *check.Options) ([]ssh.AuthMethod, net.Conn, error) {
	var auths []ssh.AuthMethod
	if opts.KeyFile != "" {
		key, err := os.ReadFile(opts.KeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, nil, fmt.Errorf("parse key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}
	var agentConn net.Conn
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			agentConn = conn
			auths = append(auths, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}
	if opts.PasswordEnv != "" {
		if pw := os.Getenv(opts.PasswordEnv); pw != "" {
			auths = append(auths, ssh.Password(pw))
		}
	}
	if len(auths) == 0 {
		return nil, nil, ErrNoAuth
	}
	return auths, agentConn, nil
}

type sshClient struct {
	c *ssh.Client
}

func (s *sshClient) Exec(ctx context.Context, cmd string) (ExecResult, error) {
	sess, err := s.c.NewSession()
	if err != nil {
		return ExecResult{}, err
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- sess.Run(cmd) }()

	select {
	case <-ctx.Done():
		_ = sess.Close()
		return ExecResult{}, ctx.Err()
	case err = <-done:
	}

	res := ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitStatus()
		return res, nil
	}
	return res, err
}

func (s *sshClient) Close() error { return s.c.Close() }

// SSHCheck is the gate: it passes when an authenticated session can be opened.
type SSHCheck struct {
	Name      string
	Connector Connector
}

func (c *SSHCheck) Run(ctx context.Context, srv domain.Server, opts *check.Options) (domain.Outcome, error) {
	client, err := c.Connector.Connect(ctx, srv, opts)
	if err != nil {
		return domain.Fail(c.Name, err.Error()), nil
	}
	_ = client.Close()
	return domain.Pass(c.Name, "connected as "+srv.Principal), nil
}
