package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hamed0406/fleetcheck/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

// cfg holds env defaults; flags override them.
var cfg = config.FromEnv()

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "fleetcheck",
	Short:        "Run health checks across a fleet of servers",
	Long:         "fleetcheck loads a server manifest, runs each server's category checks behind an ssh gate and reports what is not passing.",
	Version:      Version,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for the rotated JSON log")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&cfg.ChecksDir, "checks-dir", cfg.ChecksDir, "directory of <category>.yaml check definitions")
	pf.IntVar(&cfg.ServerConcurrency, "server-concurrency", cfg.ServerConcurrency, "servers checked at once")
	pf.IntVar(&cfg.CheckConcurrency, "check-concurrency", cfg.CheckConcurrency, "checks run at once per server")
	pf.DurationVar(&cfg.CheckTimeout, "timeout", cfg.CheckTimeout, "timeout for each network operation inside a check")
	pf.StringVar(&cfg.SSHKeyFile, "key-file", cfg.SSHKeyFile, "private key for ssh checks")
	pf.StringVar(&cfg.SSHKnownHosts, "known-hosts", cfg.SSHKnownHosts, "known_hosts file; empty skips host key verification")
	pf.StringVar(&cfg.SSHPasswordEnv, "password-env", cfg.SSHPasswordEnv, "env var holding an ssh password")
	pf.BoolVar(&cfg.IsolateFailures, "isolate-failures", cfg.IsolateFailures, "record a crashing server as an error instead of aborting")
	pf.StringVar(&cfg.SlackWebhookURL, "slack-webhook", cfg.SlackWebhookURL, "Slack incoming webhook for failure notifications")
}
