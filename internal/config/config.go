// Package config loads swatch settings from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/swatch/internal/colour"
)

// Environment variables consulted by Load.
const (
	EnvConfig       = "SWATCH_CONFIG"
	EnvColours      = "SWATCH_COLOURS"
	EnvAlgorithm    = "SWATCH_ALGORITHM"
	EnvMaxDimension = "SWATCH_MAX_DIMENSION"
	EnvBackground   = "SWATCH_BACKGROUND"
	EnvAddr         = "SWATCH_ADDR"
)

// Config represents the application configuration.
type Config struct {
	Extract ExtractConfig `yaml:"extract"`
	Server  ServerConfig  `yaml:"server"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ExtractConfig controls the palette extraction pipeline.
type ExtractConfig struct {
	Colours      int    `yaml:"colours"`
	Algorithm    string `yaml:"algorithm"`
	MaxDimension int    `yaml:"max_dimension"`
	Background   string `yaml:"background"`
}

// ServerConfig controls the upload server.
type ServerConfig struct {
	Addr             string `yaml:"addr"`
	MaxUploadBytes   int64  `yaml:"max_upload_bytes"`
	MaxColours       int    `yaml:"max_colours"`
	DefaultColours   int    `yaml:"default_colours"`
	PreviewDimension int    `yaml:"preview_dimension"`
}

// WatchConfig controls the directory watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Extract: ExtractConfig{
			Colours:      6,
			Algorithm:    string(colour.AlgorithmMedianCut),
			MaxDimension: colour.AnalysisBound,
			Background:   "#ffffff",
		},
		Server: ServerConfig{
			Addr:             "127.0.0.1:5000",
			MaxUploadBytes:   8 << 20,
			MaxColours:       20,
			DefaultColours:   6,
			PreviewDimension: colour.PreviewBound,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Load builds the configuration. Defaults are overlaid with the YAML file at
// path (or $SWATCH_CONFIG when path is empty; no file at all is fine), then
// with SWATCH_* environment variables. The result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 - User-specified config path
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	atoi := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
		return nil
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if err := atoi(EnvColours, &c.Extract.Colours); err != nil {
		return err
	}
	if err := atoi(EnvMaxDimension, &c.Extract.MaxDimension); err != nil {
		return err
	}
	str(EnvAlgorithm, &c.Extract.Algorithm)
	str(EnvBackground, &c.Extract.Background)
	str(EnvAddr, &c.Server.Addr)
	return nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if _, err := c.ExtractorConfig(); err != nil {
		return err
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.MaxUploadBytes < 1 {
		return fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	if c.Server.MaxColours < 1 || c.Server.MaxColours > colour.MaxColorCount {
		return fmt.Errorf("server.max_colours must be 1-%d, got %d", colour.MaxColorCount, c.Server.MaxColours)
	}
	if c.Server.DefaultColours < 1 || c.Server.DefaultColours > c.Server.MaxColours {
		return fmt.Errorf("server.default_colours must be 1-%d, got %d", c.Server.MaxColours, c.Server.DefaultColours)
	}
	if c.Server.PreviewDimension < 1 {
		return fmt.Errorf("server.preview_dimension must be positive, got %d", c.Server.PreviewDimension)
	}

	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce cannot be negative")
	}
	return nil
}

// ExtractorConfig converts the extract section for colour.NewPaletteExtractor.
func (c *Config) ExtractorConfig() (colour.ExtractorConfig, error) {
	bg, err := colour.ParseHex(c.Extract.Background)
	if err != nil {
		return colour.ExtractorConfig{}, fmt.Errorf("extract.background: %w", err)
	}

	cfg := colour.ExtractorConfig{
		Algorithm:    colour.Algorithm(c.Extract.Algorithm),
		ColorCount:   c.Extract.Colours,
		MaxDimension: c.Extract.MaxDimension,
		Background:   bg.Color(),
	}
	if err := cfg.Validate(); err != nil {
		return colour.ExtractorConfig{}, fmt.Errorf("extract: %w", err)
	}
	return cfg, nil
}
