// Package config loads the delegados YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultListen is the default HTTP listen address.
	DefaultListen = "127.0.0.1:8090"

	// DefaultSQLitePath is the default sqlite database location.
	DefaultSQLitePath = "./delegados.db"

	// DefaultGeoFetchTimeout bounds geometry source fetches at startup.
	DefaultGeoFetchTimeout = "30s"

	// DefaultLoginRateLimit is the default per-IP login attempts per minute.
	DefaultLoginRateLimit = 10
)

// Config is the root configuration for delegados.
type Config struct {
	Global   GlobalConfig   `yaml:"global"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Geo      GeoConfig      `yaml:"geo"`
	Users    []UserConfig   `yaml:"users"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Listen      string          `yaml:"listen"`
	CORSOrigins []string        `yaml:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig contains per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled"`
	LoginPerMinute int  `yaml:"login_per_minute"`
}

// DatabaseConfig selects and configures the report store database.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig contains sqlite settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig contains postgres connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// GeoConfig locates the region geometry sources. Sources may be local file
// paths or HTTP URLs.
type GeoConfig struct {
	Colonias     string `yaml:"colonias"`
	Irregular    string `yaml:"irregular"`
	FetchTimeout string `yaml:"fetch_timeout"`
}

// FetchTimeoutDuration returns the parsed fetch timeout.
func (g *GeoConfig) FetchTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(g.FetchTimeout)
	if err != nil {
		d, _ = time.ParseDuration(DefaultGeoFetchTimeout)
	}

	return d
}

// UserConfig is one delegate in the static user directory.
type UserConfig struct {
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	DisplayName string `yaml:"display_name"`
	Region      string `yaml:"region"`
}

// Load reads and parses a configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}

	if c.Server.RateLimit.LoginPerMinute == 0 {
		c.Server.RateLimit.LoginPerMinute = DefaultLoginRateLimit
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}

	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = DefaultSQLitePath
	}

	if c.Geo.FetchTimeout == "" {
		c.Geo.FetchTimeout = DefaultGeoFetchTimeout
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Geo.Colonias == "" {
		return fmt.Errorf("geo.colonias source is required")
	}

	if _, err := time.ParseDuration(c.Geo.FetchTimeout); err != nil {
		return fmt.Errorf("invalid geo.fetch_timeout %q: %w",
			c.Geo.FetchTimeout, err)
	}

	if len(c.Users) == 0 {
		return fmt.Errorf("at least one user is required")
	}

	seen := make(map[string]struct{}, len(c.Users))

	for i, u := range c.Users {
		if u.Username == "" {
			return fmt.Errorf("users[%d]: username is required", i)
		}

		if u.Password == "" {
			return fmt.Errorf("users[%d] (%s): password is required",
				i, u.Username)
		}

		if u.Region == "" {
			return fmt.Errorf("users[%d] (%s): region is required",
				i, u.Username)
		}

		if _, dup := seen[u.Username]; dup {
			return fmt.Errorf("users[%d]: duplicate username %s", i, u.Username)
		}

		seen[u.Username] = struct{}{}
	}

	return nil
}
