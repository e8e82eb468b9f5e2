package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()

	assert.Equal(t, ":3000", c.Frontend.BindAddr)
	assert.Equal(t, []string{"127.0.0.1,80"}, c.Backend)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "text", c.Log.Format)
	assert.Equal(t, ":9090", c.Metrics.ListenAddress)
	assert.Equal(t, "/metrics", c.Metrics.TelemetryPath)
	assert.Equal(t, 30, c.Proxy.DialTimeout)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
frontend:
  bind_addr: ":8443"
backend:
  - "127.0.0.1,8080"
  - "10.0.0.2,8081;example.com/api/"
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":8443", c.Frontend.BindAddr)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Len(t, c.Backend, 2)
	// Defaults still fill the gaps.
	assert.Equal(t, ":9090", c.Metrics.ListenAddress)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("GATEWAY_BIND_ADDR", ":4000")
	t.Setenv("GATEWAY_BACKENDS", "127.0.0.1,9001 unix:/run/a.sock;example.com/")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("PROXY_DIAL_TIMEOUT_SECONDS", "5")

	var c Config
	c.SetDefaults()
	c.ApplyEnvOverrides()

	assert.Equal(t, ":4000", c.Frontend.BindAddr)
	assert.Equal(t, []string{"127.0.0.1,9001", "unix:/run/a.sock;example.com/"}, c.Backend)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 5, c.Proxy.DialTimeout)
}

func TestBuildTable(t *testing.T) {
	c := Config{Backend: []string{
		"127.0.0.1,8080",
		"127.0.0.1,8081;example.com/api/",
		"127.0.0.1,8082;example.com/api/",
	}}

	table, err := c.BuildTable()
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "/", table.Group(0).Pattern)
	assert.Equal(t, 0, table.CatchAll())
	assert.Len(t, table.Group(1).Backends, 2)
}

func TestBuildTableRejectsMalformedDirective(t *testing.T) {
	c := Config{Backend: []string{"127.0.0.1:8080"}}
	_, err := c.BuildTable()
	assert.Error(t, err)
}

func TestBuildTableDefaultBackend(t *testing.T) {
	var c Config
	c.SetDefaults()

	table, err := c.BuildTable()
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "/", table.Group(0).Pattern)
}
