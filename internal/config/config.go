package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"calbook/internal/collage"
	"calbook/internal/holiday"
	"calbook/internal/model"
)

// SourceConfig describes one event feed.
type SourceConfig struct {
	// ID is used for logging.
	ID string `yaml:"id" json:"id"`
	// Location is a local .ics path or an http(s) URL.
	Location string `yaml:"location" json:"location"`
}

// EventsConfig lists the event feeds merged into the calendar.
type EventsConfig struct {
	Sources []SourceConfig `yaml:"sources" json:"sources"`
	// CacheDir keeps remote feeds for conditional refetch. Empty disables.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// HeaderConfig points at the externally supplied header document.
type HeaderConfig struct {
	// Document is the path of the header PDF. Empty means none.
	Document string `yaml:"document" json:"document"`
	// JanuaryPage is the 1-based page holding the January header.
	JanuaryPage int    `yaml:"january_page" json:"january_page"`
	Name        string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the HTTP API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Year is the calendar year to generate.
	Year int `yaml:"year" json:"year"`

	// OutputDir receives generated documents.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// GenerationType is one of calendar_only, with_headers, combined.
	GenerationType string `yaml:"generation_type" json:"generation_type"`

	// Timezone places timed events on calendar days ("Local" or IANA name).
	Timezone string `yaml:"timezone" json:"timezone"`

	Events EventsConfig `yaml:"events" json:"events"`

	// Holidays lists holiday kinds (e.g. "easter") added as day events.
	Holidays []string `yaml:"holidays" json:"holidays"`
	// HolidayImages maps a holiday kind to an image path.
	HolidayImages map[string]string `yaml:"holiday_images" json:"holiday_images"`

	Header HeaderConfig `yaml:"header" json:"header"`

	// CollageLayout is auto, side_by_side, top_bottom or grid.
	CollageLayout string `yaml:"collage_layout" json:"collage_layout"`

	// ParallelMonths renders the twelve months concurrently.
	ParallelMonths bool `yaml:"parallel_months" json:"parallel_months"`

	// Schedule is a cron expression for periodic regeneration. Empty runs
	// once and exits unless Listen is set.
	Schedule string `yaml:"schedule" json:"schedule"`

	// Listen is the HTTP listen address. Empty disables the HTTP server.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is debug, info or error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Year:           time.Now().Year() + 1,
		OutputDir:      "./out",
		GenerationType: string(model.CalendarOnly),
		Timezone:       "Local",
		Events:         EventsConfig{Sources: []SourceConfig{}},
		Holidays: []string{
			string(holiday.NewYears),
			string(holiday.Easter),
			string(holiday.IndependenceDay),
			string(holiday.Thanksgiving),
			string(holiday.Christmas),
		},
		HolidayImages:  map[string]string{},
		Header:         HeaderConfig{JanuaryPage: 1},
		CollageLayout:  string(collage.Auto),
		ParallelMonths: true,
		LogLevel:       "info",
	}
}

// Normalize fills in missing/zero values with defaults so partially
// filled configs still behave.
func (c *Config) Normalize() {
	if c.Year <= 0 {
		c.Year = time.Now().Year() + 1
	}
	if c.OutputDir == "" {
		c.OutputDir = "./out"
	}
	c.GenerationType = strings.ToLower(strings.TrimSpace(c.GenerationType))
	if c.GenerationType == "" {
		c.GenerationType = string(model.CalendarOnly)
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Events.Sources == nil {
		c.Events.Sources = []SourceConfig{}
	}
	for i := range c.Events.Sources {
		if c.Events.Sources[i].ID == "" {
			c.Events.Sources[i].ID = fmt.Sprintf("source-%d", i+1)
		}
	}
	if c.HolidayImages == nil {
		c.HolidayImages = map[string]string{}
	}
	if c.Header.JanuaryPage <= 0 {
		c.Header.JanuaryPage = 1
	}
	if c.CollageLayout == "" {
		c.CollageLayout = string(collage.Auto)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports the first value that cannot be used.
func (c *Config) Validate() error {
	if c.Year < 1 || c.Year > 9999 {
		return fmt.Errorf("config: year %d out of range", c.Year)
	}
	genType, err := model.ParseGenerationType(c.GenerationType)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if genType.RequiresHeader() && c.Header.Document == "" {
		return fmt.Errorf("config: generation_type %s needs header.document", genType)
	}
	if _, err := collage.ParseLayout(c.CollageLayout); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.HolidaySelections(); err != nil {
		return err
	}
	for kind := range c.HolidayImages {
		if _, err := holiday.ParseKind(kind); err != nil {
			return fmt.Errorf("config: holiday_images: %w", err)
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("config: schedule %q: %w", c.Schedule, err)
		}
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// HolidaySelections pairs every configured holiday with its image.
func (c *Config) HolidaySelections() ([]holiday.Selection, error) {
	out := make([]holiday.Selection, 0, len(c.Holidays))
	for _, name := range c.Holidays {
		kind, err := holiday.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("config: holidays: %w", err)
		}
		out = append(out, holiday.Selection{Kind: kind, Image: c.HolidayImages[string(kind)]})
	}
	return out, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calbook-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
