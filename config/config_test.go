package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, int64(20<<20), cfg.Fetch.MaxBodyBytes)
	assert.Equal(t, 800, cfg.Images.MaxPx)
	assert.Equal(t, 88, cfg.Images.Quality)
	assert.Equal(t, 4, cfg.Images.Workers)
	assert.Equal(t, "readability", cfg.Extract.Mode)
	assert.True(t, cfg.Extract.DedupSections)
	assert.Equal(t, "data", cfg.Store.BaseDir)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webkeep.yaml")
	yamlDoc := `
server:
  port: 9090
fetch:
  timeout: 5s
  escalation_delays: [0s, 1s, 3s]
store:
  base_dir: /srv/archive
  allowed_roots: [/mnt/usb]
images:
  max_px: 1024
extract:
  mode: auto
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	t.Setenv("WEBKEEP_CONFIG", path)
	t.Setenv("WEBKEEP_IMAGE_MAX_PX", "640")
	t.Setenv("WEBKEEP_DEDUP_SECTIONS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, []time.Duration{0, time.Second, 3 * time.Second}, cfg.Fetch.EscalationDelays)
	assert.Equal(t, "/srv/archive", cfg.Store.BaseDir)
	assert.Equal(t, []string{"/mnt/usb"}, cfg.Store.AllowedRoots)
	assert.Equal(t, 640, cfg.Images.MaxPx, "env overrides file")
	assert.Equal(t, "auto", cfg.Extract.Mode)
	assert.False(t, cfg.Extract.DedupSections)
	// untouched sections keep their defaults
	assert.Equal(t, 88, cfg.Images.Quality)
}

func TestLegacyBaseDataDir(t *testing.T) {
	t.Setenv("BASE_DATA_DIR", "/var/lib/legacy")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/legacy", cfg.Store.BaseDir)

	t.Setenv("WEBKEEP_BASE_DIR", "/var/lib/webkeep")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/webkeep", cfg.Store.BaseDir)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("WEBKEEP_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad quality", func(c *Config) { c.Images.Quality = 101 }},
		{"no workers", func(c *Config) { c.Images.Workers = 0 }},
		{"unknown mode", func(c *Config) { c.Extract.Mode = "raw" }},
		{"unknown link style", func(c *Config) { c.Extract.LinkStyle = "footnotes" }},
		{"empty base dir", func(c *Config) { c.Store.BaseDir = " " }},
		{"zero timeout", func(c *Config) { c.Fetch.Timeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
