package tracker

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultTimezone    = "Europe/Madrid"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultWindowDays  = 75
	DefaultBackoffMult = 2.0
)

// Config describes how to reach the tracker cloud.
// It is passed explicitly to constructors; nothing reads it globally.
type Config struct {
	BaseURL    string        `yaml:"base_url"`
	TokenPath  string        `yaml:"token_path"`
	DumpPath   string        `yaml:"dump_path"`
	Timezone   string        `yaml:"timezone"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	WindowDays int           `yaml:"window_days"`
}

// ErrNoSource is returned when neither a base URL nor a dump path is configured.
var ErrNoSource = errors.New("tracker: base_url or dump_path required")

// DefaultConfig returns a Config with defaults filled in.
func DefaultConfig() Config {
	return Config{
		Timezone:   DefaultTimezone,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		MaxDelay:   DefaultMaxDelay,
		WindowDays: DefaultWindowDays,
	}
}

// LoadConfig reads a YAML config file on top of the defaults, then applies
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read tracker config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse tracker config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("TRACKER_BASE_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := lookup("TRACKER_TOKEN_PATH"); ok {
		c.TokenPath = v
	}
	if v, ok := lookup("TRACKER_DUMP_PATH"); ok {
		c.DumpPath = v
	}
	if v, ok := lookup("TRACKER_TIMEZONE"); ok {
		c.Timezone = v
	}
	if v, ok := lookup("TRACKER_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TRACKER_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v, ok := lookup("TRACKER_MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRACKER_MAX_RETRIES: %w", err)
		}
		c.MaxRetries = n
	}
	if v, ok := lookup("TRACKER_WINDOW_DAYS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRACKER_WINDOW_DAYS: %w", err)
		}
		c.WindowDays = n
	}
	return nil
}

// Validate checks the config for usable values.
func (c Config) Validate() error {
	if c.BaseURL == "" && c.DumpPath == "" {
		return ErrNoSource
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("tracker: max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.WindowDays < 0 {
		return fmt.Errorf("tracker: window_days must be >= 0, got %d", c.WindowDays)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("tracker: load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// NewSource builds the Source the config points at: a JSON dump when
// DumpPath is set, the HTTP API otherwise.
func (c Config) NewSource() (Source, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.DumpPath != "" {
		return NewFileSource(c.DumpPath)
	}
	return NewHTTPClient(c.BaseURL,
		WithTokenFile(c.TokenPath),
		WithTimeout(c.Timeout),
		WithMaxRetries(c.MaxRetries),
		WithRetryDelay(c.RetryDelay),
		WithMaxDelay(c.MaxDelay),
	), nil
}
