// Package check defines the check model consumed by the scheduler: named
// units of logic with an optional prerequisite list, a role decided at load
// time, and the loader contract that turns server categories into checks.
package check

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/hamed0406/fleetcheck/internal/domain"
)

// GateName is the name of the connectivity check other checks may depend on.
const GateName = "ssh"

var ErrCheckPanicked = errors.New("check panicked")

type Role int

const (
	RoleStandard Role = iota
	RoleGate
)

func (r Role) String() string {
	if r == RoleGate {
		return "gate"
	}
	return "standard"
}

// RoleFor assigns the gate role to the check named GateName.
func RoleFor(name string) Role {
	if name == GateName {
		return RoleGate
	}
	return RoleStandard
}

// Options is the run-wide configuration handed to every check. It is
// written once before dispatch and only read afterwards.
type Options struct {
	Timeout        time.Duration
	KeyFile        string
	KnownHostsFile string
	PasswordEnv    string
	Verbose        bool
}

// Runner evaluates a check against a server. A returned error means the
// check itself broke; an ordinary failure is an Outcome with a non-pass status.
type Runner interface {
	Run(ctx context.Context, srv domain.Server, opts *Options) (domain.Outcome, error)
}

type RunnerFunc func(ctx context.Context, srv domain.Server, opts *Options) (domain.Outcome, error)

func (f RunnerFunc) Run(ctx context.Context, srv domain.Server, opts *Options) (domain.Outcome, error) {
	return f(ctx, srv, opts)
}

type Check struct {
	Name         string
	Dependencies []string
	Role         Role
	Options      *Options

	runner Runner
}

func New(name string, deps []string, r Runner) *Check {
	return &Check{
		Name:         name,
		Dependencies: deps,
		Role:         RoleFor(name),
		runner:       r,
	}
}

// DependsOnGate reports whether the prerequisite list names the gate.
func (c *Check) DependsOnGate() bool {
	return slices.Contains(c.Dependencies, GateName)
}

// Run evaluates the check. A panic inside the runner is returned as an
// error wrapping ErrCheckPanicked. An outcome without a key is keyed by
// the check name.
func (c *Check) Run(ctx context.Context, srv domain.Server) (out domain.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = domain.Outcome{}
			err = fmt.Errorf("%w: %s: %v", ErrCheckPanicked, c.Name, r)
		}
	}()
	opts := c.Options
	if opts == nil {
		opts = &Options{}
	}
	out, err = c.runner.Run(ctx, srv, opts)
	if err != nil {
		return domain.Outcome{}, err
	}
	if out.Key == "" {
		out.Key = c.Name
	}
	return out, nil
}
