package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the web UI.
type BasicAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// CalDAVConfig describes the calendar events are pushed to.
type CalDAVConfig struct {
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Calendar is the display name of the target calendar.
	Calendar string `yaml:"calendar"`
}

// GoogleConfig holds the OAuth client and the calendars to import from.
type GoogleConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	CalendarIDs  []string `yaml:"calendar_ids"`
}

// Config is the top-level application configuration.
type Config struct {
	// File is the persisted event file.
	File string `yaml:"file"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// UniqueIDs makes inserts retry until the generated id is unused.
	UniqueIDs bool `yaml:"unique_ids"`

	// Listen is the HTTP listen address for the serve command.
	Listen string `yaml:"listen"`

	// Timezone is the IANA zone event dates and times are interpreted in.
	Timezone string `yaml:"timezone"`

	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`
	CalDAV    CalDAVConfig     `yaml:"caldav"`
	Google    GoogleConfig     `yaml:"google"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		File:     "events.log",
		LogLevel: "info",
		Listen:   "127.0.0.1:8080",
		Timezone: "UTC",
		CalDAV: CalDAVConfig{
			Endpoint: "https://caldav.icloud.com/",
		},
	}
}

// Normalize fills in zero values with defaults.
func (c *Config) Normalize() {
	d := Default()
	if c.File == "" {
		c.File = d.File
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = d.LogLevel
	}
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.CalDAV.Endpoint == "" {
		c.CalDAV.Endpoint = d.CalDAV.Endpoint
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		c.BasicAuth = nil
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	return loc, nil
}

// Load builds the configuration from defaults, the optional YAML file at
// path, an optional .env file and the process environment, in that order of
// increasing precedence. A missing YAML file or .env file is not an error.
func Load(path string) (*Config, error) {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("EVENTS_FILE", &c.File)
	str("LOG_LEVEL", &c.LogLevel)
	str("LISTEN", &c.Listen)
	str("PRIMARY_TIMEZONE", &c.Timezone)
	str("CALDAV_ENDPOINT", &c.CalDAV.Endpoint)
	str("CALDAV_USERNAME", &c.CalDAV.Username)
	str("CALDAV_PASSWORD", &c.CalDAV.Password)
	str("CALDAV_CALENDAR", &c.CalDAV.Calendar)
	str("GOOGLE_CLIENT_ID", &c.Google.ClientID)
	str("GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)

	if v, ok := lookup("GOOGLE_CALENDAR_IDS"); ok && v != "" {
		c.Google.CalendarIDs = nil
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				c.Google.CalendarIDs = append(c.Google.CalendarIDs, id)
			}
		}
	}

	if v, ok := lookup("UNIQUE_IDS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid UNIQUE_IDS value '%s': %w", v, err)
		}
		c.UniqueIDs = b
	}

	user, _ := lookup("BASIC_AUTH_USERNAME")
	pass, _ := lookup("BASIC_AUTH_PASSWORD")
	if user != "" && pass != "" {
		c.BasicAuth = &BasicAuthConfig{Username: user, Password: pass}
	}
	return nil
}
