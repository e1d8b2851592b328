package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/fleetcheck/internal/check"
	"github.com/hamed0406/fleetcheck/internal/domain"
	"github.com/hamed0406/fleetcheck/internal/logging"
	"github.com/hamed0406/fleetcheck/internal/manifest"
	"github.com/hamed0406/fleetcheck/internal/notify"
	"github.com/hamed0406/fleetcheck/internal/probe"
	"github.com/hamed0406/fleetcheck/internal/scheduler"
)

func newLogger() (*zap.Logger, error) {
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return logger, nil
}

func loadServers(path string) ([]domain.Server, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return manifest.Resolve(m), nil
}

func checkOptions(verbose bool) *check.Options {
	return &check.Options{
		Timeout:        cfg.CheckTimeout,
		KeyFile:        cfg.SSHKeyFile,
		KnownHostsFile: cfg.SSHKnownHosts,
		PasswordEnv:    cfg.SSHPasswordEnv,
		Verbose:        verbose,
	}
}

func newDispatcher(logger *zap.Logger) *scheduler.Dispatcher {
	loader := check.NewFileLoader(cfg.ChecksDir, probe.Builders())
	d := scheduler.NewDispatcher(logger, loader, scheduler.NewGated(logger, cfg.CheckConcurrency), cfg.ServerConcurrency)
	d.IsolateFailures = cfg.IsolateFailures
	return d
}

// newNotifier prefers Slack and falls back to the application log.
func newNotifier(logger *zap.Logger) notify.Notifier {
	if s := notify.NewSlack(cfg.SlackWebhookURL); s != nil {
		return s
	}
	return notify.Log{Logger: logger}
}
