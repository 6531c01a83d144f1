package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/tunegrab-go/internal/domain"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9999
source:
  backend: native
audio:
  bitrate: "192"
runner:
  concurrency: 3
  track_delay: 2s
queue:
  check_interval: 30s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "native", cfg.Source.Backend)
	assert.Equal(t, "192", cfg.Audio.Bitrate)
	assert.Equal(t, 3, cfg.Runner.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.Runner.TrackDelay)
	assert.Equal(t, 30*time.Second, cfg.Queue.CheckInterval)

	// Untouched sections keep their defaults
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "mp3", cfg.Audio.Format)
	assert.Equal(t, 3, cfg.Runner.MaxRetries)
}

func TestLoadConfig_ExpandsHomePaths(t *testing.T) {
	path := writeConfigFile(t, `
output:
  directory: $HOME/music-test
queue:
  database_path: ~/state/runs.db
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "music-test"), cfg.Output.Directory)
	assert.Equal(t, filepath.Join(home, "state", "runs.db"), cfg.Queue.DatabasePath)
}

func TestLoadConfig_RejectsUnknownBackend(t *testing.T) {
	path := writeConfigFile(t, `
source:
  backend: wget
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source backend")
}

func TestLoadConfig_RejectsBadPort(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 70000
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}

func TestLoadConfig_RejectsZeroConcurrentLimit(t *testing.T) {
	path := writeConfigFile(t, `
runner:
  concurrent_limit: 0
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrent limit")
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("TUNEGRAB_SERVER_PORT", "7070")
	path := writeConfigFile(t, `
server:
  port: 9999
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port, "environment wins over the file")
}

func TestSaveConfig_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := domain.DefaultConfig()
	cfg.Server.Port = 8181
	cfg.Source.Backend = "native"
	cfg.Audio.Bitrate = "192"

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8181, loaded.Server.Port)
	assert.Equal(t, "native", loaded.Source.Backend)
	assert.Equal(t, "192", loaded.Audio.Bitrate)
}
