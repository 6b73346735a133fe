// Package config loads and validates configuration for the tracemark
// server and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

var ErrInvalid = errors.New("config: invalid value")

// Config is the complete tool configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Watermark WatermarkConfig `toml:"watermark"`
	Scanner   ScannerConfig   `toml:"scanner"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	// Addr is the listen address, host:port.
	Addr string `toml:"addr"`
	// MaxUploadMB bounds multipart upload size.
	MaxUploadMB int64 `toml:"max_upload_mb"`
}

// StorageConfig holds filesystem layout and the session database.
type StorageConfig struct {
	DataDir      string `toml:"data_dir"`
	UploadDir    string `toml:"upload_dir"`
	OutputDir    string `toml:"output_dir"`
	DatabasePath string `toml:"database_path"`
}

// WatermarkConfig holds embedding defaults. CLI flags and API fields
// override them per request.
type WatermarkConfig struct {
	Method string `toml:"method"`
	// Strength of the perceptual method, 0.0 to 1.0.
	Strength float64 `toml:"strength"`
	// Interval watermarks every N-th frame.
	Interval int `toml:"interval"`
	// ScanBudget bounds extraction to the first N frames.
	ScanBudget int `toml:"scan_budget"`
}

// ScannerConfig holds leak-scan settings.
type ScannerConfig struct {
	// Threshold is the perceptual similarity above which a candidate is
	// reported, 0.0 to 1.0.
	Threshold float64 `toml:"threshold"`
	// SampleFrames bounds how many frames per sequence are hashed.
	SampleFrames int `toml:"sample_frames"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `toml:"level"`
	// File receives rotated log output when set; empty logs to stderr
	// only.
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Default returns the configuration used when no file exists, rooted at
// ~/.tracemark.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".tracemark")
	return &Config{
		Server: ServerConfig{
			Addr:        "127.0.0.1:8600",
			MaxUploadMB: 512,
		},
		Storage: StorageConfig{
			DataDir:      dataDir,
			UploadDir:    filepath.Join(dataDir, "uploads"),
			OutputDir:    filepath.Join(dataDir, "outputs"),
			DatabasePath: filepath.Join(dataDir, "tracemark.db"),
		},
		Watermark: WatermarkConfig{
			Method:     "lsb",
			Strength:   0.1,
			Interval:   30,
			ScanBudget: 100,
		},
		Scanner: ScannerConfig{
			Threshold:    0.85,
			SampleFrames: 20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".tracemark", "config.toml")
}

// Load reads the TOML file at path over the defaults. A missing file is
// not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Watermark.Strength < 0 || c.Watermark.Strength > 1 {
		return fmt.Errorf("%w: watermark.strength %v not in [0,1]", ErrInvalid, c.Watermark.Strength)
	}
	if c.Watermark.Interval < 1 {
		return fmt.Errorf("%w: watermark.interval %d must be at least 1", ErrInvalid, c.Watermark.Interval)
	}
	if c.Watermark.ScanBudget < 1 {
		return fmt.Errorf("%w: watermark.scan_budget %d must be at least 1", ErrInvalid, c.Watermark.ScanBudget)
	}
	if c.Scanner.Threshold < 0 || c.Scanner.Threshold > 1 {
		return fmt.Errorf("%w: scanner.threshold %v not in [0,1]", ErrInvalid, c.Scanner.Threshold)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr must not be empty", ErrInvalid)
	}
	return nil
}

// EnsureDirs creates the storage directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Storage.DataDir, c.Storage.UploadDir, c.Storage.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return nil
}
