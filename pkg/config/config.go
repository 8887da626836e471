package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	errs "geckofetcher/pkg/errors"
)

const (
	// DefaultDataFileName is the snapshot file name used when none is configured
	DefaultDataFileName = "coingecko_data.json"

	// DefaultEntriesPerPage is the default page size requested from the API
	DefaultEntriesPerPage = 200

	// DefaultMaxPages is the default number of pages fetched per cycle
	DefaultMaxPages = 6

	// DefaultChangePeriods is the default price_change_percentage value.
	// 24h is always included by the API.
	DefaultChangePeriods = "1h,7d,14d,30d"

	// DefaultUpdateFrequency is the sleep between cycles in periodic mode
	DefaultUpdateFrequency = 5 * time.Minute

	// DefaultRequestTimeout bounds a single HTTP request
	DefaultRequestTimeout = 30 * time.Second

	configDirName  = "gecko_fetcher"
	configFileName = "config.json"
)

// validPeriods lists the price change windows the markets endpoint accepts
var validPeriods = map[string]bool{
	"1h": true, "24h": true, "7d": true, "14d": true, "30d": true, "200d": true, "1y": true,
}

// Config holds the fetcher configuration. The six original keys are always
// written; the remaining keys are optional and fall back to built-in
// defaults when zero.
type Config struct {
	DataDir           string  `json:"data_dir" yaml:"data_dir"`
	DataFileName      string  `json:"data_file_name" yaml:"data_file_name"`
	NumEntriesPerPage FlexInt `json:"num_entries_per_page" yaml:"num_entries_per_page"`
	PMax              FlexInt `json:"p_max" yaml:"p_max"`
	Spark             Flag    `json:"spark" yaml:"spark"`
	ChangePeriods     string  `json:"percentage_price_change_periods" yaml:"percentage_price_change_periods"`

	UpdateFrequencyMinutes FlexInt `json:"update_frequency_minutes,omitempty" yaml:"update_frequency_minutes,omitempty"`
	ScheduleCron           string  `json:"schedule_cron,omitempty" yaml:"schedule_cron,omitempty"`
	RequestsPerMinute      FlexInt `json:"requests_per_minute,omitempty" yaml:"requests_per_minute,omitempty"`
	RequestTimeoutSeconds  FlexInt `json:"request_timeout_seconds,omitempty" yaml:"request_timeout_seconds,omitempty"`
	HistoryDB              string  `json:"history_db,omitempty" yaml:"history_db,omitempty"`
	WriteMetadata          bool    `json:"write_metadata,omitempty" yaml:"write_metadata,omitempty"`

	// Path is where the configuration was read from or written to
	Path string `json:"-" yaml:"-"`
	// Created is true when the file was absent and defaults were written
	Created bool `json:"-" yaml:"-"`
}

// LoggingConfig holds logging configuration. It is sourced from the
// environment rather than the config file.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// DefaultConfig returns a Config with the documented defaults rooted at home
func DefaultConfig(home string) *Config {
	return &Config{
		DataDir:           filepath.Join(home, "data"),
		DataFileName:      DefaultDataFileName,
		NumEntriesPerPage: DefaultEntriesPerPage,
		PMax:              DefaultMaxPages,
		Spark:             true,
		ChangePeriods:     DefaultChangePeriods,
	}
}

// DefaultPath returns the per-user configuration file location
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", configDirName, configFileName), nil
}

// LoadDotEnv loads .env files into the environment; missing files are ignored
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".env"))
	}
}

// LoggingFromEnv reads the LOGLEVEL environment variable, defaulting to INFO
func LoggingFromEnv() LoggingConfig {
	level := strings.TrimSpace(os.Getenv("LOGLEVEL"))
	if level == "" {
		level = "INFO"
	}
	return LoggingConfig{Level: level}
}

// Load resolves the per-user path and delegates to LoadOrCreate.
// An empty path selects DefaultPath.
func Load(path string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, "failed to resolve home directory", err)
	}
	if path == "" {
		path = filepath.Join(home, ".config", configDirName, configFileName)
	}

	cfg, err := LoadOrCreate(path, home)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, "configuration validation failed", err)
	}
	return cfg, nil
}

// LoadOrCreate reads path over the defaults. When the file does not exist
// the defaults are written to it, creating parent directories.
func LoadOrCreate(path, home string) (*Config, error) {
	cfg := DefaultConfig(home)
	cfg.Path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
		cfg.Created = true
		return cfg, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, "failed to read config file", err)
	}

	if err := cfg.apply(data); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return cfg, nil
}

// apply decodes data over the receiver. Keys absent from data keep their
// current value; unknown keys are ignored.
func (c *Config) apply(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, c)
}

// Save writes the configuration as indented JSON
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, "failed to marshal config", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, "failed to create config directory", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, "failed to write config file", err)
	}
	return nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	var problems []error

	if c.DataDir == "" {
		problems = append(problems, errors.New("data_dir is required"))
	}
	if c.DataFileName == "" {
		problems = append(problems, errors.New("data_file_name is required"))
	}
	if c.NumEntriesPerPage <= 0 {
		problems = append(problems, errors.New("num_entries_per_page must be positive"))
	}
	if c.PMax <= 0 {
		problems = append(problems, errors.New("p_max must be positive"))
	}
	for _, p := range c.Periods() {
		if !validPeriods[p] {
			problems = append(problems, fmt.Errorf("unknown price change period %q", p))
		}
	}
	if c.ScheduleCron != "" {
		if _, err := cron.ParseStandard(c.ScheduleCron); err != nil {
			problems = append(problems, fmt.Errorf("schedule_cron %q: %w", c.ScheduleCron, err))
		}
	}
	if c.UpdateFrequencyMinutes < 0 {
		problems = append(problems, errors.New("update_frequency_minutes cannot be negative"))
	}
	if c.RequestsPerMinute < 0 {
		problems = append(problems, errors.New("requests_per_minute cannot be negative"))
	}
	if c.RequestTimeoutSeconds < 0 {
		problems = append(problems, errors.New("request_timeout_seconds cannot be negative"))
	}

	return errors.Join(problems...)
}

// DataFilePath returns the destination snapshot path
func (c *Config) DataFilePath() string {
	return filepath.Join(c.DataDir, c.DataFileName)
}

// Periods splits the comma-separated change periods
func (c *Config) Periods() []string {
	var periods []string
	for _, p := range strings.Split(c.ChangePeriods, ",") {
		if p = strings.TrimSpace(p); p != "" {
			periods = append(periods, p)
		}
	}
	return periods
}

// Interval returns the sleep between cycles
func (c *Config) Interval() time.Duration {
	if c.UpdateFrequencyMinutes > 0 {
		return time.Duration(c.UpdateFrequencyMinutes) * time.Minute
	}
	return DefaultUpdateFrequency
}

// RequestTimeout returns the per-request timeout
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds > 0 {
		return time.Duration(c.RequestTimeoutSeconds) * time.Second
	}
	return DefaultRequestTimeout
}
