package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Normalize.
const (
	DefaultTimezone   = "Europe/Dublin"
	DefaultDayZone    = "UTC"
	DefaultBackend    = "google"
	DefaultCalendarID = "primary"
	DefaultLogLevel   = "info"
	DefaultAccount    = "default"

	TokenStoreFile   = "file"
	TokenStoreSQLite = "sqlite"
)

// AuthConfig locates Google credentials and the stored OAuth token.
type AuthConfig struct {
	CredentialsPath    string `yaml:"credentials_path" toml:"credentials_path"`
	ServiceAccountPath string `yaml:"service_account_path" toml:"service_account_path"`
	// Subject is the user a service account impersonates.
	Subject   string `yaml:"subject" toml:"subject"`
	TokenPath string `yaml:"token_path" toml:"token_path"`
	// TokenStore is "file" (JSON at TokenPath) or "sqlite" (TokenDBPath).
	TokenStore  string `yaml:"token_store" toml:"token_store"`
	TokenDBPath string `yaml:"token_db_path" toml:"token_db_path"`
	// Account keys the token row in the SQLite store.
	Account string `yaml:"account" toml:"account"`
}

// CalDAVConfig configures the CalDAV backend.
type CalDAVConfig struct {
	URL          string `yaml:"url" toml:"url"`
	Username     string `yaml:"username" toml:"username"`
	Password     string `yaml:"password" toml:"password"`
	CalendarPath string `yaml:"calendar_path" toml:"calendar_path"`
}

// ICSConfig configures the local file backend.
type ICSConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA zone events are created in.
	Timezone string `yaml:"timezone" toml:"timezone"`
	// DayZone is the IANA zone whose midnight starts "today".
	DayZone string `yaml:"day_zone" toml:"day_zone"`

	// Backend is one of "google", "caldav" or "ics".
	Backend     string `yaml:"backend" toml:"backend"`
	CalendarID  string `yaml:"calendar_id" toml:"calendar_id"`
	APIEndpoint string `yaml:"api_endpoint" toml:"api_endpoint"`
	LogLevel    string `yaml:"log_level" toml:"log_level"`

	Auth   AuthConfig   `yaml:"auth" toml:"auth"`
	CalDAV CalDAVConfig `yaml:"caldav" toml:"caldav"`
	ICS    ICSConfig    `yaml:"ics" toml:"ics"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing values with defaults. Paths default to files in
// the configuration directory.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.DayZone == "" {
		c.DayZone = DefaultDayZone
	}
	c.Backend = strings.ToLower(c.Backend)
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.CalendarID == "" {
		c.CalendarID = DefaultCalendarID
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	c.Auth.TokenStore = strings.ToLower(c.Auth.TokenStore)
	if c.Auth.TokenStore == "" {
		c.Auth.TokenStore = TokenStoreFile
	}
	if c.Auth.Account == "" {
		c.Auth.Account = DefaultAccount
	}

	defaultPath(&c.Auth.CredentialsPath, GetCredentialsPath)
	defaultPath(&c.Auth.ServiceAccountPath, GetServiceAccountPath)
	defaultPath(&c.Auth.TokenPath, GetTokenPath)
	defaultPath(&c.Auth.TokenDBPath, GetTokenDBPath)
	defaultPath(&c.ICS.Path, GetICSPath)
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.DayLocation(); err != nil {
		return err
	}

	switch c.Backend {
	case "google", "ics":
	case "caldav":
		if c.CalDAV.URL == "" {
			return errors.New("caldav backend requires caldav.url")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	switch c.Auth.TokenStore {
	case TokenStoreFile, TokenStoreSQLite:
	default:
		return fmt.Errorf("unknown token store %q", c.Auth.TokenStore)
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Location returns the zone events are created in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DayLocation returns the zone used for "today" boundaries.
func (c *Config) DayLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DayZone)
	if err != nil {
		return nil, fmt.Errorf("invalid day zone %q: %w", c.DayZone, err)
	}
	return loc, nil
}

// ParseLogLevel maps a level name to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// Load reads the configuration at path. The format is chosen by extension:
// .toml is decoded as TOML, anything else as YAML. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("config file not found, using defaults", "path", path)
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
		}
	}
	cfg.Normalize()

	return &cfg, nil
}

func defaultPath(field *string, get func() (string, error)) {
	if *field != "" {
		return
	}
	if path, err := get(); err == nil {
		*field = path
	}
}
