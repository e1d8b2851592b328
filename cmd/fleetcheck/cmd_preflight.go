package main

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/hamed0406/fleetcheck/internal/check"
	"github.com/hamed0406/fleetcheck/internal/manifest"
	"github.com/hamed0406/fleetcheck/internal/probe"
)

var ErrPreflightFailed = errors.New("preflight failed")

var preflightCmd = &cobra.Command{
	Use:   "preflight <manifest>",
	Short: "Validate the manifest, check definitions and credentials without connecting",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreflight,
}

func init() {
	rootCmd.AddCommand(preflightCmd)
}

func runPreflight(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(out, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(out, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(out, "✔", msg) }

	m, err := manifest.Load(args[0])
	if err != nil {
		fail(err.Error())
		return ErrPreflightFailed
	}
	servers := manifest.Resolve(m)
	ok(fmt.Sprintf("%d servers in %s", len(servers), args[0]))

	var categories []string
	for _, s := range servers {
		if s.Principal == "" {
			warn(s.Hostname + " has no username; its ssh gate will fail")
		}
		if s.Port == 0 {
			warn(s.Hostname + " has no port; its ssh gate will fail")
		}
		for _, c := range s.Categories {
			if !slices.Contains(categories, c) {
				categories = append(categories, c)
			}
		}
	}

	if info, err := os.Stat(cfg.ChecksDir); err != nil || !info.IsDir() {
		fail("checks dir " + cfg.ChecksDir + " is not a directory")
	} else {
		loader := check.NewFileLoader(cfg.ChecksDir, probe.Builders())
		for _, c := range categories {
			checks, err := loader.Load([]string{c}, checkOptions(false))
			if err != nil {
				fail(err.Error())
				continue
			}
			ok(fmt.Sprintf("category %s: %d checks", c, len(checks)))
		}
	}

	if cfg.SSHKeyFile != "" {
		if _, err := os.ReadFile(cfg.SSHKeyFile); err != nil {
			fail("key file: " + err.Error())
		} else {
			ok("key file " + cfg.SSHKeyFile)
		}
	}
	if cfg.SSHKnownHosts == "" {
		warn("no known_hosts file; host keys will not be verified")
	} else if _, err := os.Stat(cfg.SSHKnownHosts); err != nil {
		fail("known_hosts: " + err.Error())
	}
	if cfg.SSHKeyFile == "" && os.Getenv("SSH_AUTH_SOCK") == "" && (cfg.SSHPasswordEnv == "" || os.Getenv(cfg.SSHPasswordEnv) == "") {
		fail("no ssh credentials: set --key-file, SSH_AUTH_SOCK or --password-env")
	}

	if len(cfg.AdminAPIKeys) == 0 {
		warn("ADMIN_API_KEYS is empty; serve will accept run triggers from anyone")
	}
	if len(cfg.PublicAPIKeys) == 0 && len(cfg.AdminAPIKeys) == 0 {
		warn("no API keys; serve read routes are open")
	}

	if failed {
		return ErrPreflightFailed
	}
	ok("preflight passed")
	return nil
}
