package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calbook/internal/holiday"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "calendar_only", cfg.GenerationType)
	assert.NoError(t, cfg.Validate())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
year: 2026
generation_type: " With_Headers "
header:
  document: header.pdf
events:
  sources:
    - location: family.ics
holidays: [easter, christmas]
holiday_images:
  easter: img/eggs.jpg
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2026, cfg.Year)
	assert.Equal(t, "with_headers", cfg.GenerationType)
	assert.Equal(t, 1, cfg.Header.JanuaryPage)
	assert.Equal(t, "source-1", cfg.Events.Sources[0].ID)
	assert.Equal(t, "auto", cfg.CollageLayout)
	assert.Equal(t, "./out", cfg.OutputDir)
	require.NoError(t, cfg.Validate())

	sel, err := cfg.HolidaySelections()
	require.NoError(t, err)
	assert.Equal(t, []holiday.Selection{
		{Kind: holiday.Easter, Image: "img/eggs.jpg"},
		{Kind: holiday.Christmas},
	}, sel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown generation type", func(c *Config) { c.GenerationType = "poster" }},
		{"header required", func(c *Config) { c.GenerationType = "combined"; c.Header.Document = "" }},
		{"bad layout", func(c *Config) { c.CollageLayout = "mosaic" }},
		{"bad holiday", func(c *Config) { c.Holidays = []string{"groundhog_day"} }},
		{"bad holiday image", func(c *Config) { c.HolidayImages = map[string]string{"arbor_day": "x.jpg"} }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"bad year", func(c *Config) { c.Year = 0 }},
		{"bad schedule", func(c *Config) { c.Schedule = "every tuesday" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Year = 2030
	cfg.Listen = "127.0.0.1:9000"
	cfg.Schedule = "0 3 * * *"
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
