package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds runtime settings for the liferepo CLI.
//
// RequestTimeout and OnlineCheckInterval are time.Durations; the flag forms
// take whole seconds.
type Config struct {
	APIURL              string
	DatabasePath        string
	BatchSize           int
	MaxUploadFileSize   int64
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIURL = "http://127.0.0.1:8000"
	c.DatabasePath = "liferepo.db"
	c.BatchSize = 12
	c.MaxUploadFileSize = 10_000_000
	c.RequestTimeout = 30 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.LogLevel = "info"
}

func (c *Config) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("api url is empty"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database path is empty"))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.MaxUploadFileSize <= 0 {
		errs = append(errs, fmt.Errorf("max upload file size must be positive, got %d", c.MaxUploadFileSize))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout))
	}
	if c.OnlineCheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("online check interval must be positive, got %s", c.OnlineCheckInterval))
	}
	return errors.Join(errs...)
}

// LoadConfig applies defaults, then the optional config file, then
// command-line flags. Later sources take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if err := parseFlags(cfg); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
