package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"photowatermark/pkg/watermark"
)

// Config holds watermark defaults.
type Config struct {
	FontSize  int    `yaml:"font_size"`
	FontColor [3]int `yaml:"font_color"`
	Position  string `yaml:"position"`
	Opacity   int    `yaml:"opacity"`

	// JPEG save quality, 1-100
	Quality int  `yaml:"quality"`
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	style := watermark.DefaultStyle()
	return &Config{
		FontSize:  style.FontSize,
		FontColor: [3]int(style.Color),
		Position:  string(watermark.BottomRight),
		Opacity:   style.Opacity,
		Quality:   watermark.DefaultQuality,
	}
}

// Load loads configuration from a YAML file. An empty path or a missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Style converts the config to watermark style parameters.
func (c *Config) Style() watermark.Style {
	return watermark.Style{
		FontSize: c.FontSize,
		Color:    watermark.RGB(c.FontColor),
		Opacity:  c.Opacity,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Style().Validate(); err != nil {
		return err
	}
	if _, err := watermark.ParsePosition(c.Position); err != nil {
		return err
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be within 1-100, got %d", c.Quality)
	}
	return nil
}
