package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "lsb", cfg.Watermark.Method)
	assert.Equal(t, 30, cfg.Watermark.Interval)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[server]
addr = "0.0.0.0:9000"

[watermark]
method = "perceptual"
strength = 0.5
interval = 10
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, "perceptual", cfg.Watermark.Method)
	assert.Equal(t, 0.5, cfg.Watermark.Strength)
	assert.Equal(t, 10, cfg.Watermark.Interval)
	// untouched sections keep defaults
	assert.Equal(t, Default().Scanner.Threshold, cfg.Scanner.Threshold)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[watermark]
strength = 1.5
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	for _, tt := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative strength", func(c *Config) { c.Watermark.Strength = -0.1 }},
		{"zero interval", func(c *Config) { c.Watermark.Interval = 0 }},
		{"zero scan budget", func(c *Config) { c.Watermark.ScanBudget = 0 }},
		{"threshold over one", func(c *Config) { c.Scanner.Threshold = 1.2 }},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	cfg := Default()
	base := t.TempDir()
	cfg.Storage.DataDir = filepath.Join(base, "data")
	cfg.Storage.UploadDir = filepath.Join(base, "data", "uploads")
	cfg.Storage.OutputDir = filepath.Join(base, "data", "outputs")

	require.NoError(t, cfg.EnsureDirs())
	for _, dir := range []string{cfg.Storage.DataDir, cfg.Storage.UploadDir, cfg.Storage.OutputDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
