package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr     string // API bind address, e.g., "127.0.0.1:8080" or ":8080" (Docker)
	LogDir   string // logs directory
	LogLevel string // zap level name

	ChecksDir         string // directory of <category>.yaml check definitions
	ServerConcurrency int
	CheckConcurrency  int
	CheckTimeout      time.Duration // per network operation inside a check
	SSHKeyFile        string
	SSHKnownHosts     string // empty disables host key verification
	SSHPasswordEnv    string // name of the env var holding an SSH password
	IsolateFailures   bool

	RunInterval     time.Duration // serve mode; 0 disables the loop
	SlackWebhookURL string
	AlertOnRecovery bool
	AlertCooldown   time.Duration

	PublicAPIKeys []string
	AdminAPIKeys  []string
	PublicRPM     int
	PublicBurst   int
}

func FromEnv() Config {
	// Bind address
	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	return Config{
		Addr:     addr,
		LogDir:   envString("LOG_DIR", "logs"),
		LogLevel: envString("LOG_LEVEL", "info"),

		ChecksDir:         envString("CHECKS_DIR", "checks"),
		ServerConcurrency: envInt("SERVER_CONCURRENCY", 10),
		CheckConcurrency:  envInt("CHECK_CONCURRENCY", 5),
		CheckTimeout:      envMillis("CHECK_TIMEOUT_MS", 10*time.Second),
		SSHKeyFile:        os.Getenv("SSH_KEY_FILE"),
		SSHKnownHosts:     os.Getenv("SSH_KNOWN_HOSTS"),
		SSHPasswordEnv:    os.Getenv("SSH_PASSWORD_ENV"),
		IsolateFailures:   envBool("ISOLATE_FAILURES", false),

		RunInterval:     envMillis("RUN_INTERVAL_MS", 5*time.Minute),
		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		AlertOnRecovery: envBool("ALERT_ON_RECOVERY", true),
		AlertCooldown:   envMillis("ALERT_COOLDOWN_MS", 15*time.Minute),

		PublicAPIKeys: envList("PUBLIC_API_KEYS"),
		AdminAPIKeys:  envList("ADMIN_API_KEYS"),
		PublicRPM:     envInt("PUBLIC_RPM", 120),
		PublicBurst:   envInt("PUBLIC_BURST", 60),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt ignores values that are not integers >= 0.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// envList splits a comma separated value, dropping empty items.
func envList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
