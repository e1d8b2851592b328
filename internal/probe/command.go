package probe

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hamed0406/fleetcheck/internal/check"
	"github.com/hamed0406/fleetcheck/internal/domain"
)

var ErrNoCommand = errors.New("command check requires a command")

// CommandCheck runs a shell command on the server over SSH and compares the
// exit status and, optionally, stdout against expectations.
type CommandCheck struct {
	Name         string
	Command      string
	ExpectExit   int
	ExpectOutput *regexp.Regexp
	Connector    Connector
}

type commandSpec struct {
	Command      string `yaml:"command"`
	ExpectExit   int    `yaml:"expect_exit"`
	ExpectOutput string `yaml:"expect_output"`
}

func NewCommandCheck(def check.Definition, conn Connector) (*CommandCheck, error) {
	var spec commandSpec
	if err := def.Decode(&spec); err != nil {
		return nil, err
	}
	if strings.TrimSpace(spec.Command) == "" {
		return nil, ErrNoCommand
	}
	c := &CommandCheck{
		Name:       def.Name,
		Command:    spec.Command,
		ExpectExit: spec.ExpectExit,
		Connector:  conn,
	}
	if spec.ExpectOutput != "" {
		re, err := regexp.Compile(spec.ExpectOutput)
		if err != nil {
			return nil, fmt.Errorf("expect_output: %w", err)
		}
		c.ExpectOutput = re
	}
	return c, nil
}

func (c *CommandCheck) Run(ctx context.Context, srv domain.Server, opts *check.Options) (domain.Outcome, error) {
	client, err := c.Connector.Connect(ctx, srv, opts)
	if err != nil {
		return domain.Error(c.Name, "connect: "+err.Error()), nil
	}
	defer client.Close()

	res, err := client.Exec(ctx, c.Command)
	if err != nil {
		return domain.Error(c.Name, "exec: "+err.Error()), nil
	}
	out := strings.TrimSpace(res.Stdout)
	if res.ExitCode != c.ExpectExit {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = out
		}
		return domain.Fail(c.Name, fmt.Sprintf("exit %d (want %d): %s", res.ExitCode, c.ExpectExit, detail)), nil
	}
	if c.ExpectOutput != nil && !c.ExpectOutput.MatchString(out) {
		return domain.Fail(c.Name, fmt.Sprintf("output %q does not match %s", out, c.ExpectOutput)), nil
	}
	return domain.Pass(c.Name, out), nil
}
