package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "UTC"
	defaultWeekStart    = "monday"
	defaultRefreshCron  = "*/15 * * * *"
	defaultLogLevel     = "info"
	defaultDays         = 7
	defaultSnapMinutes  = 15
	defaultCacheDir     = "./cache/ics-cache"
	defaultFetchTimeout = 15
)

// SourceConfig describes a single ICS subscription.
type SourceConfig struct {
	URL string `yaml:"url" json:"url"`
	// ID is used for event IDs and logging; derived from Name or URL when empty.
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	// Color is applied to events of this source that carry no COLOR property.
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// CalDAVConfig describes a CalDAV account. When Calendars is empty every
// calendar in the account's home set is loaded.
type CalDAVConfig struct {
	URL       string   `yaml:"url" json:"url"`
	Username  string   `yaml:"username" json:"username"`
	Password  string   `yaml:"password" json:"-"`
	Calendars []string `yaml:"calendars,omitempty" json:"calendars,omitempty"`
	Color     string   `yaml:"color,omitempty" json:"color,omitempty"`
}

// CompanyHours marks the business hours of one weekday (0 = Sunday) in whole
// hours. Days without an entry are closed.
type CompanyHours struct {
	Weekday int `yaml:"weekday" json:"weekday"`
	Start   int `yaml:"start" json:"start"`
	End     int `yaml:"end" json:"end"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone the week grid is drawn in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "monday" (default) or "sunday"; it decides which day is
	// column 0.
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is the cron schedule for reloading all sources.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// Days is the number of columns in the grid.
	Days int `yaml:"days" json:"days"`

	// SnapMinutes floors committed start/end minutes to this granularity.
	SnapMinutes int `yaml:"snap_minutes" json:"snap_minutes"`

	CompanyHours []CompanyHours `yaml:"company_hours" json:"company_hours"`

	// EventsFile is an optional YAML file with static events.
	EventsFile string `yaml:"events_file,omitempty" json:"events_file,omitempty"`

	// CacheDir holds the ICS HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds" json:"fetch_timeout_seconds"`

	ICS []SourceConfig `yaml:"ics" json:"ics"`

	CalDAV *CalDAVConfig `yaml:"caldav,omitempty" json:"caldav,omitempty"`

	// BasicAuth, if set with both fields, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultCompanyHours: Sunday closed, short Wednesday, Friday and Saturday.
func DefaultCompanyHours() []CompanyHours {
	return []CompanyHours{
		{Weekday: 1, Start: 9, End: 17},
		{Weekday: 2, Start: 9, End: 17},
		{Weekday: 3, Start: 9, End: 15},
		{Weekday: 4, Start: 9, End: 17},
		{Weekday: 5, Start: 10, End: 14},
		{Weekday: 6, Start: 9, End: 12},
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:              defaultListen,
		Timezone:            defaultTimezone,
		WeekStart:           defaultWeekStart,
		RefreshCron:         defaultRefreshCron,
		LogLevel:            defaultLogLevel,
		Days:                defaultDays,
		SnapMinutes:         defaultSnapMinutes,
		CompanyHours:        DefaultCompanyHours(),
		CacheDir:            defaultCacheDir,
		FetchTimeoutSeconds: defaultFetchTimeout,
		ICS:                 []SourceConfig{},
	}
}

// Normalize fills in missing or invalid values so that partially-filled
// configs still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = defaultWeekStart
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Days <= 0 || c.Days > 7 {
		c.Days = defaultDays
	}
	if c.SnapMinutes <= 0 || c.SnapMinutes > 60 {
		c.SnapMinutes = defaultSnapMinutes
	}
	if c.CompanyHours == nil {
		c.CompanyHours = DefaultCompanyHours()
	}
	hours := c.CompanyHours[:0]
	for _, h := range c.CompanyHours {
		if h.Weekday < 0 || h.Weekday > 6 || h.Start < 0 || h.End > 24 || h.End <= h.Start {
			continue
		}
		hours = append(hours, h)
	}
	c.CompanyHours = hours
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = defaultFetchTimeout
	}
	if c.ICS == nil {
		c.ICS = []SourceConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].ID != "" {
			continue
		}
		if c.ICS[i].Name != "" {
			c.ICS[i].ID = c.ICS[i].Name
		} else {
			c.ICS[i].ID = c.ICS[i].URL
		}
	}
}

// Location resolves Timezone, falling back to time.Local when it is unknown.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, err
	}
	return loc, nil
}

// FirstWeekday is the weekday drawn in column 0.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// Load reads the YAML config at path. On first run (file missing) a default
// config is written with 0600 permissions and returned.
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
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save normalizes cfg and writes it atomically (temp file + rename) with
// 0600 permissions, creating the parent directory (0700) if needed.
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

	tmp, err := os.CreateTemp(dir, ".weekcal-config-*.tmp")
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

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
