// Package manifest loads fleet manifests and resolves their server records
// against the manifest-wide defaults.
package manifest

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hamed0406/fleetcheck/internal/domain"
)

var (
	ErrNoServers         = errors.New("manifest: no servers")
	ErrDuplicateHostname = errors.New("manifest: duplicate hostname")
)

func Load(path string) (domain.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func Parse(data []byte) (domain.Manifest, error) {
	var m domain.Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return domain.Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Servers) == 0 {
		return domain.Manifest{}, ErrNoServers
	}
	seen := make(map[string]int, len(m.Servers))
	for i, rec := range m.Servers {
		if first, ok := seen[rec.Hostname]; ok {
			return domain.Manifest{}, fmt.Errorf("%w %q (servers %d and %d)", ErrDuplicateHostname, rec.Hostname, first, i)
		}
		seen[rec.Hostname] = i
	}
	return m, nil
}

// Resolve produces one Server per record, in manifest order. A record's own
// username/port always wins; otherwise the manifest default applies; with
// neither the field stays empty.
func Resolve(m domain.Manifest) []domain.Server {
	out := make([]domain.Server, 0, len(m.Servers))
	for _, rec := range m.Servers {
		s := domain.Server{
			Hostname:   rec.Hostname,
			Categories: append([]string(nil), rec.Categories...),
		}
		if u := pick(rec.Username, m.Username); u != nil {
			s.Principal = *u
		}
		if p := pick(rec.Port, m.Port); p != nil {
			s.Port = *p
		}
		out = append(out, s)
	}
	return out
}

func pick[T any](own, def *T) *T {
	if own != nil {
		return own
	}
	return def
}
