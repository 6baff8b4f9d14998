// Package config loads process settings from the environment, a .env file
// and an optional TOML file. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"renovo/internal/log"
)

const DefaultConfigFile = "renovo.toml"

var Backends = []string{"memory", "sqlite", "postgres"}

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	// TrustedProxies are CIDRs, beyond loopback and private ranges, whose
	// X-Forwarded-For header is believed.
	TrustedProxies []string

	// Storage
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	SyncInterval time.Duration

	// Analytics
	AnalyticsCacheSize int
	AnalyticsCacheTTL  time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// File is the TOML file that was read, if any.
	File string

	problems []string
}

// Load reads .env (if present), then RENOVO_CONFIG or ./renovo.toml (if
// present), then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	path := os.Getenv("RENOVO_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if _, err := os.Stat(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		path = ""
	}
	return FromSources(path, os.LookupEnv)
}

// FromSources builds a Config from an optional TOML file and an env lookup.
// File keys are the lowercase variable names, e.g. data_backend = "sqlite".
func FromSources(file string, lookup func(string) (string, bool)) (*Config, error) {
	s := source{lookup: lookup, file: map[string]string{}}
	if file != "" {
		raw := map[string]any{}
		if _, err := toml.DecodeFile(file, &raw); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", file, err)
		}
		for k, v := range raw {
			s.file[strings.ToUpper(k)] = fmt.Sprint(v)
		}
	}

	cfg := &Config{
		Port:               s.str("PORT", "8081"),
		RateLimitPerMinute: s.int("RATE_LIMIT_PER_MINUTE", 120),
		TrustedProxies:     s.list("TRUSTED_PROXIES"),

		DataBackend:  s.str("DATA_BACKEND", "memory"),
		SQLiteDBPath: s.str("SQLITE_DB_PATH", "./data/renovo.db"),
		DatabaseURL:  s.str("DATABASE_URL", ""),

		AMQPURL:      s.str("AMQP_URL", ""),
		AMQPExchange: s.str("AMQP_EXCHANGE", "renovo"),
		AMQPQueue:    s.str("AMQP_QUEUE", "expense_changed"),

		SyncInterval: s.duration("SYNC_INTERVAL", 10*time.Minute),

		AnalyticsCacheSize: s.int("ANALYTICS_CACHE_SIZE", 256),
		AnalyticsCacheTTL:  s.duration("ANALYTICS_CACHE_TTL", 5*time.Minute),

		LogLevel:  s.str("LOG_LEVEL", "info"),
		LogFormat: s.str("LOG_FORMAT", "text"),

		GoogleSpreadsheetID:      s.str("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          s.str("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleServiceAccountFile: s.str("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: s.str("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		File: file,
	}
	cfg.problems = s.problems
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }

// MirrorEnabled reports whether expenses should be mirrored to a spreadsheet.
func (c *Config) MirrorEnabled() bool { return c.GoogleSpreadsheetID != "" }

// LoggerConfig maps the logging settings onto the log package. Call after Validate.
func (c *Config) LoggerConfig(component string) log.Config {
	lc := log.DefaultConfig()
	if level, err := log.ParseLevel(c.LogLevel); err == nil {
		lc.Level = level
	}
	lc.Format = c.LogFormat
	lc.Component = component
	return lc
}

// Validate validates the configuration and returns an error listing every problem
func (c *Config) Validate() error {
	errs := slices.Clone(c.problems)

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errs = append(errs, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.AnalyticsCacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid analytics cache size %d: must be at least 1", c.AnalyticsCacheSize))
	}
	if c.AnalyticsCacheTTL <= 0 {
		errs = append(errs, fmt.Sprintf("invalid analytics cache ttl %v: must be positive", c.AnalyticsCacheTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errs = append(errs, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR like 10.1.0.0/16", cidr))
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if c.MirrorEnabled() {
		if c.GoogleSheetName == "" {
			errs = append(errs, "Google Sheet name is required when a spreadsheet id is set")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for the spreadsheet mirror")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// source resolves a key from the environment first, then the file.
type source struct {
	lookup   func(string) (string, bool)
	file     map[string]string
	problems []string
}

func (s *source) str(key, defaultValue string) string {
	if v, ok := s.lookup(key); ok && v != "" {
		return v
	}
	if v, ok := s.file[key]; ok && v != "" {
		return v
	}
	return defaultValue
}

func (s *source) int(key string, defaultValue int) int {
	raw := s.str(key, "")
	if raw == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		s.problems = append(s.problems, fmt.Sprintf("invalid %s '%s': must be a number", key, raw))
		return defaultValue
	}
	return i
}

func (s *source) duration(key string, defaultValue time.Duration) time.Duration {
	raw := s.str(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		s.problems = append(s.problems, fmt.Sprintf("invalid %s '%s': must be a duration like 30s or 5m", key, raw))
		return defaultValue
	}
	return d
}

// list splits a comma separated value, dropping empty items.
func (s *source) list(key string) []string {
	var out []string
	for _, item := range strings.Split(s.str(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
