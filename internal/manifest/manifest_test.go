package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/fleetcheck/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestResolve_DefaultsApplyWhenRecordOmits(t *testing.T) {
	m := domain.Manifest{
		Username: ptr("admin"),
		Port:     ptr(22),
		Servers:  []domain.ServerRecord{{Hostname: "h1", Categories: []string{"base"}}},
	}

	got := Resolve(m)

	require.Len(t, got, 1)
	assert.Equal(t, domain.Server{Hostname: "h1", Principal: "admin", Port: 22, Categories: []string{"base"}}, got[0])
}

func TestResolve_RecordValuesWin(t *testing.T) {
	m := domain.Manifest{
		Username: ptr("admin"),
		Port:     ptr(22),
		Servers: []domain.ServerRecord{
			{Hostname: "a", Username: ptr("ops"), Port: ptr(2222)},
			{Hostname: "b", Port: ptr(0)},
			{Hostname: "c", Username: ptr("")},
		},
	}

	got := Resolve(m)

	require.Len(t, got, 3)
	assert.Equal(t, "ops", got[0].Principal)
	assert.Equal(t, 2222, got[0].Port)
	assert.Equal(t, "admin", got[1].Principal)
	assert.Equal(t, 0, got[1].Port, "explicit zero port must not be replaced by the default")
	assert.Equal(t, "", got[2].Principal, "explicit empty username must not be replaced by the default")
	assert.Equal(t, 22, got[2].Port)
}

func TestResolve_NoDefaultLeavesFieldsAbsent(t *testing.T) {
	m := domain.Manifest{Servers: []domain.ServerRecord{{Hostname: "h1"}, {Hostname: "h2", Username: ptr("root")}}}

	got := Resolve(m)

	assert.Equal(t, "", got[0].Principal)
	assert.Equal(t, 0, got[0].Port)
	assert.Equal(t, "root", got[1].Principal)
	assert.Equal(t, 0, got[1].Port)
}

func TestResolve_PreservesOrderAndDoesNotAliasCategories(t *testing.T) {
	rec := domain.ServerRecord{Hostname: "z", Categories: []string{"web"}}
	m := domain.Manifest{Servers: []domain.ServerRecord{rec, {Hostname: "a"}, {Hostname: "m"}}}

	got := Resolve(m)
	got[0].Categories[0] = "mutated"

	assert.Equal(t, []string{"z", "a", "m"}, []string{got[0].Hostname, got[1].Hostname, got[2].Hostname})
	assert.Equal(t, "web", m.Servers[0].Categories[0])
}

func TestParse(t *testing.T) {
	data := []byte(`
username: admin
port: 22
servers:
  - hostname: h1
    categories: [base, web]
  - hostname: h2
    username: deploy
    port: 2200
    categories: [base]
`)
	m, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, m.Servers, 2)
	assert.Equal(t, "admin", *m.Username)
	assert.Equal(t, 22, *m.Port)
	assert.Nil(t, m.Servers[0].Username)
	assert.Equal(t, "deploy", *m.Servers[1].Username)
	assert.Equal(t, []string{"base", "web"}, m.Servers[0].Categories)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("username: admin\n"))
	assert.True(t, errors.Is(err, ErrNoServers))

	_, err = Parse([]byte("servers: [\n"))
	assert.Error(t, err)
}

func TestParse_RejectsDuplicateHostname(t *testing.T) {
	_, err := Parse([]byte(`
servers:
  - hostname: web-1
  - hostname: db-1
  - hostname: web-1
`))
	require.ErrorIs(t, err, ErrDuplicateHostname)
	assert.Contains(t, err.Error(), `"web-1"`)
	assert.Contains(t, err.Error(), "servers 0 and 2")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("servers:\n  - hostname: h1\n"), 0o600))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "h1", m.Servers[0].Hostname)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
