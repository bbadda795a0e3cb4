package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Environment overrides (HRCAL_*) are applied on top.

var (
	ErrEmptyPath = errors.New("config path is empty")
	ErrNilConfig = errors.New("config is nil")
)

// Source types understood by internal/source.
const (
	SourceAPI      = "api"
	SourceICS      = "ics"
	SourcePostgres = "postgres"
)

// SourceConfig describes a single event source.
type SourceConfig struct {
	// ID is an internal identifier used for logging and synthetic event ids.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// Type is one of "api", "ics", "postgres".
	Type string `yaml:"type" json:"type"`
	// URL is the HR API base URL (api) or the feed URL (ics).
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// Token is sent as a Bearer token to the HR API.
	Token string `yaml:"token,omitempty" json:"-"`
	// DSN is the PostgreSQL connection string (postgres).
	DSN string `yaml:"dsn,omitempty" json:"-"`
}

// HolidayConfig is one holiday entry. Date is YYYY-MM-DD. If RRule is set
// (e.g. "FREQ=YEARLY") the holiday recurs from Date on.
type HolidayConfig struct {
	Name  string `yaml:"name" json:"name"`
	Date  string `yaml:"date" json:"date"`
	Type  string `yaml:"type" json:"type"`
	RRule string `yaml:"rrule,omitempty" json:"rrule,omitempty"`
}

// CaptureConfig controls the headless-browser PNG capture of the month page.
type CaptureConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	OutputPath string `yaml:"output_path" json:"output_path"`
	Width      int    `yaml:"width" json:"width"`
	Height     int    `yaml:"height" json:"height"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API and month page.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone all events are displayed in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is the first column of the month grid: "sunday" (default)
	// or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string for re-reading sources.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// MaxVisibleEvents is the number of lanes drawn per month cell.
	MaxVisibleEvents int `yaml:"max_visible_events" json:"max_visible_events"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// CacheDir holds HTTP caches for remote sources.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Sources  []SourceConfig  `yaml:"sources" json:"sources"`
	Holidays []HolidayConfig `yaml:"holidays" json:"holidays"`
	Capture  CaptureConfig   `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Seoul"
	}
	switch strings.ToLower(c.WeekStart) {
	case "monday":
		c.WeekStart = "monday"
	default:
		// Unknown or empty value; the grid is Sunday-first.
		c.WeekStart = "sunday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/10 * * * *"
	}
	if c.MaxVisibleEvents <= 0 {
		c.MaxVisibleEvents = 3
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/cache"
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	for i := range c.Sources {
		if c.Sources[i].Type == "" {
			c.Sources[i].Type = SourceAPI
		}
		if c.Sources[i].ID == "" {
			c.Sources[i].ID = c.Sources[i].Type + "-" + strconv.Itoa(i)
		}
	}
	if c.Holidays == nil {
		c.Holidays = []HolidayConfig{}
	}
	if c.Capture.OutputPath == "" {
		c.Capture.OutputPath = "./var/preview.png"
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = 1280
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 960
	}
}

// WeekStartDay returns the configured week start as a time.Weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
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
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// ApplyEnv loads envFile (if it exists) into the process environment and
// applies HRCAL_* overrides:
//
//	HRCAL_LISTEN, HRCAL_TIMEZONE, HRCAL_WEEK_START, HRCAL_LOG_LEVEL,
//	HRCAL_API_URL, HRCAL_API_TOKEN, HRCAL_DATABASE_URL
//
// HRCAL_API_URL / HRCAL_DATABASE_URL add a source when none of that type is
// configured; HRCAL_API_TOKEN fills the token of every api source.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if v := os.Getenv("HRCAL_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("HRCAL_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("HRCAL_WEEK_START"); v != "" {
		c.WeekStart = v
	}
	if v := os.Getenv("HRCAL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("HRCAL_API_URL"); v != "" && !c.hasSource(SourceAPI) {
		c.Sources = append(c.Sources, SourceConfig{ID: "api-env", Name: "HR API", Type: SourceAPI, URL: v})
	}
	if v := os.Getenv("HRCAL_DATABASE_URL"); v != "" && !c.hasSource(SourcePostgres) {
		c.Sources = append(c.Sources, SourceConfig{ID: "postgres-env", Name: "HR database", Type: SourcePostgres, DSN: v})
	}
	if v := os.Getenv("HRCAL_API_TOKEN"); v != "" {
		for i := range c.Sources {
			if c.Sources[i].Type == SourceAPI {
				c.Sources[i].Token = v
			}
		}
	}

	c.Normalize()
	return nil
}

func (c *Config) hasSource(typ string) bool {
	for _, s := range c.Sources {
		if s.Type == typ {
			return true
		}
	}
	return false
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return ErrNilConfig
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

	tmp, err := os.CreateTemp(dir, ".hrcal-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
