package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photowatermark/pkg/watermark"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watermark.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
		assert.NoError(t, cfg.Validate())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
font_size: 24
font_color: [10, 20, 30]
position: top-left
unknown_key: ignored
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.FontSize)
	assert.Equal(t, [3]int{10, 20, 30}, cfg.FontColor)
	assert.Equal(t, "top-left", cfg.Position)
	assert.Equal(t, 128, cfg.Opacity)
	assert.Equal(t, watermark.DefaultQuality, cfg.Quality)

	assert.Equal(t, watermark.Style{FontSize: 24, Color: watermark.RGB{10, 20, 30}, Opacity: 128}, cfg.Style())
}

func TestLoadMalformed(t *testing.T) {
	path := writeConfig(t, "font_size: [not, an, int]")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"opacity", func(c *Config) { c.Opacity = 300 }},
		{"color", func(c *Config) { c.FontColor = [3]int{0, 256, 0} }},
		{"font size", func(c *Config) { c.FontSize = 0 }},
		{"position", func(c *Config) { c.Position = "middle" }},
		{"quality", func(c *Config) { c.Quality = 101 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
