// Package config handles plyview configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"time"
)

// Config holds all plyview settings.
type Config struct {
	Viewer  ViewerConfig  `yaml:"viewer"`
	Catalog CatalogConfig `yaml:"catalog"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// ViewerConfig holds rendering and interaction settings.
type ViewerConfig struct {
	FPS             int     `yaml:"fps"`
	Background      string  `yaml:"background"` // "R,G,B"
	Accent          string  `yaml:"accent"`     // color of vertices without their own
	AutoRotateStep  float64 `yaml:"auto_rotate_step"`
	DragSensitivity float64 `yaml:"drag_sensitivity"`
	InitialPitch    float64 `yaml:"initial_pitch"`
	FallbackPoints  int     `yaml:"fallback_points"`
	Snapshot        string  `yaml:"snapshot"` // PNG written on exit, if set
}

// CatalogConfig holds the catalog service the viewer lists models from.
type CatalogConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"` // 0 means no timeout
}

// ServerConfig holds settings for the catalog server.
type ServerConfig struct {
	Listen    string `yaml:"listen"`
	ModelsDir string `yaml:"models_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Viewer: ViewerConfig{
			FPS:             60,
			Background:      "30,30,40",
			Accent:          "102,126,234",
			AutoRotateStep:  0.005,
			DragSensitivity: 0.01,
			InitialPitch:    0.3,
			FallbackPoints:  2000,
		},
		Catalog: CatalogConfig{
			BaseURL: "http://127.0.0.1:5000",
		},
		Server: ServerConfig{
			Listen:    "127.0.0.1:5000",
			ModelsDir: "models",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports every setting that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if c.Viewer.FPS <= 0 || c.Viewer.FPS > 240 {
		errs = append(errs, fmt.Errorf("viewer.fps must be in 1..240, got %d", c.Viewer.FPS))
	}
	if _, err := ParseColor(c.Viewer.Background); err != nil {
		errs = append(errs, fmt.Errorf("viewer.background: %w", err))
	}
	if _, err := ParseColor(c.Viewer.Accent); err != nil {
		errs = append(errs, fmt.Errorf("viewer.accent: %w", err))
	}
	if c.Viewer.DragSensitivity <= 0 {
		errs = append(errs, fmt.Errorf("viewer.drag_sensitivity must be positive, got %v", c.Viewer.DragSensitivity))
	}
	if c.Viewer.FallbackPoints < 0 {
		errs = append(errs, fmt.Errorf("viewer.fallback_points must not be negative, got %d", c.Viewer.FallbackPoints))
	}
	if c.Catalog.Timeout < 0 {
		errs = append(errs, fmt.Errorf("catalog.timeout must not be negative, got %v", c.Catalog.Timeout))
	}
	return errors.Join(errs...)
}

// ParseColor parses an "R,G,B" triple.
func ParseColor(s string) (color.RGBA, error) {
	var r, g, b int
	if _, err := fmt.Sscanf(s, "%d,%d,%d", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: want R,G,B", s)
	}
	for _, v := range []int{r, g, b} {
		if v < 0 || v > 255 {
			return color.RGBA{}, fmt.Errorf("invalid color %q: channels must be 0-255", s)
		}
	}
	return color.RGBA{uint8(r), uint8(g), uint8(b), 255}, nil
}
