package probe

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/fleetcheck/internal/check"
	"github.com/hamed0406/fleetcheck/internal/domain"
)

type fakeClient struct {
	res    ExecResult
	err    error
	cmd    string
	closed bool
}

func (f *fakeClient) Exec(_ context.Context, cmd string) (ExecResult, error) {
	f.cmd = cmd
	return f.res, f.err
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

type fakeConnector struct {
	client *fakeClient
	err    error
}

func (f *fakeConnector) Connect(context.Context, domain.Server, *check.Options) (Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

func definition(t *testing.T, src string) check.Definition {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.yaml"), []byte(src), 0o600))
	var got check.Definition
	l := check.NewFileLoader(dir, map[string]check.Builder{
		"ssh": func(check.Definition) (check.Runner, error) { return &SSHCheck{}, nil },
		"probe": func(def check.Definition) (check.Runner, error) {
			got = def
			return &SSHCheck{}, nil
		},
	})
	_, err := l.Load([]string{"x"}, nil)
	require.NoError(t, err)
	return got
}

func TestSSHCheck(t *testing.T) {
	srv := domain.Server{Hostname: "h1", Principal: "admin", Port: 22}

	ok := &SSHCheck{Name: "ssh", Connector: &fakeConnector{client: &fakeClient{}}}
	out, err := ok.Run(context.Background(), srv, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Pass("ssh", "connected as admin"), out)

	down := &SSHCheck{Name: "ssh", Connector: &fakeConnector{err: errors.New("connection refused")}}
	out, err = down.Run(context.Background(), srv, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Fail("ssh", "connection refused"), out)
}

func TestCommandCheck(t *testing.T) {
	def := definition(t, `
- name: disk
  type: probe
  command: "df -P / | awk 'NR==2 {print $5}'"
  expect_output: '^[0-8]?[0-9]%$'
`)
	tests := []struct {
		name       string
		conn       *fakeConnector
		wantStatus domain.Status
		wantOutput string
	}{
		{
			name:       "matching output",
			conn:       &fakeConnector{client: &fakeClient{res: ExecResult{Stdout: "42%\n"}}},
			wantStatus: domain.StatusPass,
			wantOutput: "42%",
		},
		{
			name:       "output mismatch",
			conn:       &fakeConnector{client: &fakeClient{res: ExecResult{Stdout: "97%\n"}}},
			wantStatus: domain.StatusFail,
			wantOutput: `output "97%" does not match ^[0-8]?[0-9]%$`,
		},
		{
			name:       "bad exit uses stderr",
			conn:       &fakeConnector{client: &fakeClient{res: ExecResult{ExitCode: 2, Stderr: "df: not found\n"}}},
			wantStatus: domain.StatusFail,
			wantOutput: "exit 2 (want 0): df: not found",
		},
		{
			name:       "connect failure",
			conn:       &fakeConnector{err: errors.New("refused")},
			wantStatus: domain.StatusError,
			wantOutput: "connect: refused",
		},
		{
			name:       "exec failure",
			conn:       &fakeConnector{client: &fakeClient{err: errors.New("channel closed")}},
			wantStatus: domain.StatusError,
			wantOutput: "exec: channel closed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCommandCheck(def, tt.conn)
			require.NoError(t, err)

			out, err := c.Run(context.Background(), domain.Server{Hostname: "h1"}, nil)

			require.NoError(t, err)
			assert.Equal(t, "disk", out.Key)
			assert.Equal(t, tt.wantStatus, out.Result.Status)
			assert.Equal(t, tt.wantOutput, out.Result.Output)
			if tt.conn.client != nil {
				assert.True(t, tt.conn.client.closed, "client must be closed")
				assert.Equal(t, "df -P / | awk 'NR==2 {print $5}'", tt.conn.client.cmd)
			}
		})
	}
}

func TestNewCommandCheck_Invalid(t *testing.T) {
	_, err := NewCommandCheck(definition(t, "- name: x\n  type: probe\n"), nil)
	assert.ErrorIs(t, err, ErrNoCommand)

	_, err = NewCommandCheck(definition(t, "- name: x\n  type: probe\n  command: uptime\n  expect_output: '('\n"), nil)
	assert.ErrorContains(t, err, "expect_output")
}

type mockDialer struct {
	dial func(ctx context.Context, network, address string) (net.Conn, error)
}

func (m *mockDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return m.dial(ctx, network, address)
}

func TestTCPCheck(t *testing.T) {
	var gotAddr string
	ok := &TCPCheck{Name: "pg", Port: 5432, Dialer: &mockDialer{dial: func(_ context.Context, _, address string) (net.Conn, error) {
		gotAddr = address
		c1, c2 := net.Pipe()
		_ = c2.Close()
		return c1, nil
	}}}
	out, err := ok.Run(context.Background(), domain.Server{Hostname: "db1"}, nil)
	require.NoError(t, err)
	assert.True(t, out.Passed())
	assert.Equal(t, "db1:5432", gotAddr)

	refused := &TCPCheck{Name: "pg", Port: 5432, Dialer: &mockDialer{dial: func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}}}
	out, err = refused.Run(context.Background(), domain.Server{Hostname: "db1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFail, out.Result.Status)
	assert.Equal(t, "connection failed: connection refused", out.Result.Output)
}

func TestNewTCPCheck_RequiresPort(t *testing.T) {
	_, err := NewTCPCheck(definition(t, "- name: x\n  type: probe\n"))
	assert.Error(t, err)

	r, err := NewTCPCheck(definition(t, "- name: x\n  type: probe\n  port: 443\n"))
	require.NoError(t, err)
	assert.Equal(t, 443, r.(*TCPCheck).Port)
}

type fakeResolver struct {
	ips   []net.IP
	ipErr error
	ns    []*net.NS
}

func (f *fakeResolver) LookupIP(context.Context, string, string) ([]net.IP, error) {
	return f.ips, f.ipErr
}

func (f *fakeResolver) LookupNS(context.Context, string) ([]*net.NS, error) {
	if len(f.ns) == 0 {
		return nil, &net.DNSError{Err: "no such host", IsNotFound: true}
	}
	return f.ns, nil
}

func TestDNSCheck(t *testing.T) {
	notFound := &net.DNSError{Err: "no such host", IsNotFound: true}
	tests := []struct {
		name     string
		host     string
		resolver *fakeResolver
		status   domain.Status
		output   string
	}{
		{
			name:     "resolves",
			host:     "h1.example",
			resolver: &fakeResolver{ips: []net.IP{net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2")}},
			status:   domain.StatusPass,
			output:   "resolves to 10.0.0.1,10.0.0.2",
		},
		{
			name:     "no such host",
			host:     "gone.example",
			resolver: &fakeResolver{ipErr: notFound},
			status:   domain.StatusFail,
			output:   "no such host",
		},
		{
			name:     "zone without address",
			host:     "zone.example",
			resolver: &fakeResolver{ipErr: notFound, ns: []*net.NS{{Host: "ns1.example."}, {Host: "ns2.example."}}},
			status:   domain.StatusFail,
			output:   "no address records; zone served by ns1.example,ns2.example",
		},
		{
			name:     "empty answer",
			host:     "empty.example",
			resolver: &fakeResolver{},
			status:   domain.StatusFail,
			output:   "no such host",
		},
		{
			name:     "resolver timeout",
			host:     "slow.example",
			resolver: &fakeResolver{ipErr: &net.DNSError{Err: "i/o timeout", Name: "slow.example", IsTimeout: true}},
			status:   domain.StatusError,
			output:   "resolver: lookup slow.example: i/o timeout",
		},
		{
			name:     "url instead of hostname",
			host:     "https://x",
			resolver: &fakeResolver{},
			status:   domain.StatusError,
			output:   `invalid hostname "https://x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &DNSCheck{Name: "dns", Resolver: tt.resolver}
			out, err := d.Run(context.Background(), domain.Server{Hostname: tt.host}, nil)
			require.NoError(t, err)
			assert.Equal(t, domain.NewOutcome("dns", tt.status, tt.output), out)
		})
	}
}

func TestSSHConnector_RejectsIncompleteServers(t *testing.T) {
	c := &SSHConnector{}
	_, err := c.Connect(context.Background(), domain.Server{Hostname: "h1", Port: 22}, nil)
	assert.ErrorIs(t, err, ErrNoPrincipal)

	_, err = c.Connect(context.Background(), domain.Server{Hostname: "h1", Principal: "admin"}, nil)
	assert.ErrorIs(t, err, ErrNoPort)
}

func TestSSHConnector_FailsAgainstNonSSHListener(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	t.Setenv("FLEETCHECK_TEST_PW", "secret")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_, _ = conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
			_ = conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := domain.Server{Hostname: "127.0.0.1", Principal: "admin", Port: port}
	opts := &check.Options{Timeout: 2 * time.Second, PasswordEnv: "FLEETCHECK_TEST_PW"}

	gate := &SSHCheck{Name: "ssh", Connector: &SSHConnector{}}
	out, err := gate.Run(context.Background(), srv, opts)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusFail, out.Result.Status)
	assert.NotEmpty(t, out.Result.Output)
}

func TestAuthMethods_NoCredentials(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	_, conn, err := authMethods(&check.Options{})
	assert.ErrorIs(t, err, ErrNoAuth)
	assert.Nil(t, conn)
}

// agentSocket serves SSH_AUTH_SOCK and hands back every accepted connection.
func agentSocket(t *testing.T) <-chan net.Conn {
	t.Helper()
	dir, err := os.MkdirTemp("", "agent")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	ln, err := net.Listen("unix", filepath.Join(dir, "sock"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	t.Setenv("SSH_AUTH_SOCK", ln.Addr().String())

	accepted := make(chan net.Conn, 64)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- conn
		}
	}()
	return accepted
}

func TestSSHConnector_ClosesAgentConnection(t *testing.T) {
	accepted := agentSocket(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	srv := domain.Server{Hostname: "127.0.0.1", Principal: "admin", Port: ln.Addr().(*net.TCPAddr).Port}
	opts := &check.Options{Timeout: 2 * time.Second}

	const attempts = 5
	conn := &SSHConnector{}
	for i := 0; i < attempts; i++ {
		_, err := conn.Connect(context.Background(), srv, opts)
		require.Error(t, err)
	}

	for i := 0; i < attempts; i++ {
		var c net.Conn
		select {
		case c = <-accepted:
		case <-time.After(2 * time.Second):
			t.Fatalf("agent saw %d connections, want %d", i, attempts)
		}
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, err := c.Read(make([]byte, 1))
		assert.ErrorIs(t, err, io.EOF, "agent connection %d left open", i)
		_ = c.Close()
	}
}

func TestClientConfig_ReleaseClosesAgent(t *testing.T) {
	accepted := agentSocket(t)
	srv := domain.Server{Hostname: "h1", Principal: "admin", Port: 22}

	cfg, release, err := clientConfig(srv, &check.Options{})
	require.NoError(t, err)
	require.Len(t, cfg.Auth, 1)

	c := <-accepted
	defer c.Close()
	release()

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = c.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestBuilders_RegistersEveryType(t *testing.T) {
	b := Builders()
	for _, typ := range []string{"ssh", "command", "tcp", "http", "dns"} {
		assert.Contains(t, b, typ)
	}
}
