package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "entities", c.Entities.Dir)
	assert.True(t, c.Entities.Seed)
	assert.Equal(t, 30*time.Minute, c.Session.IdleTimeout)
	assert.Equal(t, 256, c.Bus.Buffer)
	assert.Equal(t, 128, c.Options.CacheSize)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entityui.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
session:
  idle_timeout: 5m
options:
  base_url: http://lookup.internal
`), 0o644))
	t.Setenv("ENTITYUI_LOG_LEVEL", "debug")
	t.Setenv("ENTITYUI_BUS_BUFFER", "16")

	c, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.Server.Addr)
	assert.Equal(t, 5*time.Minute, c.Session.IdleTimeout)
	assert.Equal(t, "http://lookup.internal", c.Options.BaseURL)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 16, c.Bus.Buffer)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENTITYUI_BUS_BUFFER", "0")

	_, err := Load(New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus.buffer must be at least 1")
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:x.db?_pragma=busy_timeout(5000)", DatabaseConfig{Path: "x.db"}.DSN())
	assert.Equal(t, "file::memory:", DatabaseConfig{Path: "file::memory:"}.DSN())
}
