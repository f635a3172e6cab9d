// Package config loads the worlddots application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/benoitkugler/worlddots/workflow"
)

// maxFileSize caps the configuration file size.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the application configuration. The JSON file may omit any
// field; omitted fields keep their default value.
type Config struct {
	Listen          string  `json:"listen"`
	Database        string  `json:"database"`
	Mask            string  `json:"mask,omitempty"` // image path, empty for the embedded world map
	ContainerWidth  float64 `json:"container_width"`
	ContainerHeight float64 `json:"container_height"`
	PixelRatio      float64 `json:"pixel_ratio"`
	ProgressDelay   string  `json:"progress_delay"` // duration string like "50ms"
	LogLevel        string  `json:"log_level"`
}

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{
		Listen:          ":8080",
		Database:        "worlddots.db",
		ContainerWidth:  1280,
		ContainerHeight: 720,
		PixelRatio:      1,
		ProgressDelay:   workflow.DefaultProgressDelay.String(),
		LogLevel:        "info",
	}
}

// Load reads a Config from a JSON file.
// The file must have a .json extension and be under 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.Database == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.ContainerWidth <= 0 || c.ContainerHeight <= 0 {
		return fmt.Errorf("container size must be positive, got %vx%v", c.ContainerWidth, c.ContainerHeight)
	}
	if c.PixelRatio <= 0 {
		return fmt.Errorf("pixel_ratio must be positive, got %v", c.PixelRatio)
	}
	if c.ProgressDelay != "" {
		d, err := time.ParseDuration(c.ProgressDelay)
		if err != nil {
			return fmt.Errorf("invalid progress_delay '%s': %w", c.ProgressDelay, err)
		}
		if d < 0 {
			return fmt.Errorf("progress_delay must be non-negative, got %s", d)
		}
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// GetProgressDelay parses and returns ProgressDelay. An empty value means
// no delay between optimization stages.
func (c *Config) GetProgressDelay() time.Duration {
	if c.ProgressDelay == "" {
		return 0
	}
	d, err := time.ParseDuration(c.ProgressDelay)
	if err != nil {
		return workflow.DefaultProgressDelay
	}
	return d
}
