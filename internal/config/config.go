// Package config provides configuration management for the news client.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Source preference values.
const (
	PreferRemote = "remote"
	PreferLocal  = "local"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DefaultNamespace is the key the added-content delta is stored under.
const DefaultNamespace = "afn:persist:v1"

// Configuration validation errors.
var (
	ErrNoSource             = errors.New("source.base_url or source.fixture_path is required")
	ErrInvalidBaseURL       = errors.New("source.base_url must be an absolute http(s) URL")
	ErrInvalidPrefer        = errors.New("source.prefer must be 'remote' or 'local'")
	ErrInvalidTimeout       = errors.New("source.timeout_sec must be at least 1")
	ErrInvalidBackend       = errors.New("storage.backend must be one of: file, redis, memory")
	ErrMissingStorageDir    = errors.New("storage.dir is required for the file backend")
	ErrMissingRedisAddr     = errors.New("storage.redis.addr is required for the redis backend")
	ErrMissingNamespace     = errors.New("storage.namespace is required")
	ErrInvalidPageSize      = errors.New("list.default_page_size must be at least 1")
	ErrInvalidLogLevel      = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrEmptyConfigPath      = errors.New("config file path is empty")
	errUnsupportedURLScheme = errors.New("unsupported scheme")
)

// Config represents the complete client configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Storage StorageConfig `yaml:"storage"`
	List    ListConfig    `yaml:"list"`
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig describes where news comes from.
type SourceConfig struct {
	BaseURL     string `yaml:"base_url"`
	FixturePath string `yaml:"fixture_path"`
	Prefer      string `yaml:"prefer"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// HasRemote reports whether a remote API is configured.
func (s *SourceConfig) HasRemote() bool {
	return s.BaseURL != ""
}

// HasFixture reports whether a local fixture is configured.
func (s *SourceConfig) HasFixture() bool {
	return s.FixturePath != ""
}

// GetTimeout returns the HTTP timeout duration.
func (s *SourceConfig) GetTimeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// StorageConfig selects where the added-content delta is persisted.
type StorageConfig struct {
	Backend   string      `yaml:"backend"`
	Dir       string      `yaml:"dir"`
	Namespace string      `yaml:"namespace"`
	Redis     RedisConfig `yaml:"redis"`
}

// RedisConfig holds the redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ListConfig holds listing defaults.
type ListConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration that reads the bundled fixture after trying
// the public mock API, and persists to ./.afn.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			BaseURL:     "https://my-json-server.typicode.com/Thanathorn31/anti-fake-news",
			FixturePath: "data/db.json",
			Prefer:      PreferRemote,
			TimeoutSec:  10,
		},
		Storage: StorageConfig{
			Backend:   BackendFile,
			Dir:       ".afn",
			Namespace: DefaultNamespace,
		},
		List:    ListConfig{DefaultPageSize: 10},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadConfig loads configuration from a YAML file. Variables from .env files
// in the working directory are loaded first and ${VAR} references in the
// YAML are expanded.
func LoadConfig(filepath string) (*Config, error) {
	if filepath == "" {
		return nil, ErrEmptyConfigPath
	}

	// Missing .env files are fine; the process environment still applies.
	_ = godotenv.Load()

	raw, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(raw))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to a YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Source.HasRemote() && !c.Source.HasFixture() {
		return ErrNoSource
	}

	if c.Source.HasRemote() {
		if err := validateBaseURL(c.Source.BaseURL); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
		}

		if c.Source.TimeoutSec < 1 {
			return ErrInvalidTimeout
		}
	}

	if c.Source.Prefer != PreferRemote && c.Source.Prefer != PreferLocal {
		return ErrInvalidPrefer
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Dir == "" {
			return ErrMissingStorageDir
		}
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return ErrMissingRedisAddr
		}
	case BackendMemory:
	default:
		return ErrInvalidBackend
	}

	if c.Storage.Namespace == "" {
		return ErrMissingNamespace
	}

	if c.List.DefaultPageSize < 1 {
		return ErrInvalidPageSize
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w %q", errUnsupportedURLScheme, u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}

	return nil
}

// SourceOrder returns the source names in the order they should be tried.
func (c *Config) SourceOrder() []string {
	var order []string

	if c.Source.Prefer == PreferLocal {
		if c.Source.HasFixture() {
			order = append(order, PreferLocal)
		}

		if c.Source.HasRemote() {
			order = append(order, PreferRemote)
		}

		return order
	}

	if c.Source.HasRemote() {
		order = append(order, PreferRemote)
	}

	if c.Source.HasFixture() {
		order = append(order, PreferLocal)
	}

	return order
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Sources: %v, Storage: %s, PageSize: %d}",
		c.SourceOrder(),
		c.Storage.Backend,
		c.List.DefaultPageSize,
	)
}
