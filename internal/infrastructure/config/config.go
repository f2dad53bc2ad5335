package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Store     StoreConfig     `toml:"store"`
	Sandbox   SandboxConfig   `toml:"sandbox"`
	Workspace WorkspaceConfig `toml:"workspace"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000" toml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" toml:"host"`
	// PublicURL is the page URL handed to the share collaborator.
	PublicURL string `envconfig:"PUBLIC_URL" default:"http://localhost:8000/" toml:"public_url"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" toml:"enabled"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path       string `envconfig:"STORE_PATH" default:"/tmp/playground/project.json" toml:"path"`
	QuotaBytes int64  `envconfig:"STORE_QUOTA_BYTES" default:"5242880" toml:"quota_bytes"`
	Ephemeral  bool   `envconfig:"STORE_EPHEMERAL" default:"false" toml:"ephemeral"`
}

// SandboxConfig holds headless preview execution limits. With Headless off
// documents only run in an attached browser preview.
type SandboxConfig struct {
	Timeout      Duration `envconfig:"SANDBOX_TIMEOUT" default:"2s" toml:"timeout"`
	MaxCallStack int      `envconfig:"SANDBOX_MAX_CALL_STACK" default:"1024" toml:"max_call_stack"`
	MaxTimers    int      `envconfig:"SANDBOX_MAX_TIMERS" default:"1000" toml:"max_timers"`
	Headless     bool     `envconfig:"SANDBOX_HEADLESS" default:"true" toml:"headless"`
}

// WorkspaceConfig holds change tracking configuration.
type WorkspaceConfig struct {
	AutosaveDelay Duration `envconfig:"AUTOSAVE_DELAY" default:"1500ms" toml:"autosave_delay"`
}

// Duration is a time.Duration that decodes from strings such as "1500ms" in
// both environment variables and TOML files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile loads configuration from a TOML file layered over the defaults.
// Environment variables are not consulted.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Sandbox.Timeout <= 0 {
		errs = append(errs, errors.New("sandbox timeout must be positive"))
	}
	if c.Workspace.AutosaveDelay <= 0 {
		errs = append(errs, errors.New("autosave delay must be positive"))
	}
	if c.Store.QuotaBytes <= 0 {
		errs = append(errs, errors.New("store quota must be positive"))
	}
	if !c.Store.Ephemeral && c.Store.Path == "" {
		errs = append(errs, errors.New("store path is required unless the store is ephemeral"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      "8000",
			Host:      "0.0.0.0",
			PublicURL: "http://localhost:8000/",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Store: StoreConfig{
			Path:       "/tmp/playground/project.json",
			QuotaBytes: 5 << 20,
		},
		Sandbox: SandboxConfig{
			Timeout:      Duration(2 * time.Second),
			MaxCallStack: 1024,
			MaxTimers:    1000,
			Headless:     true,
		},
		Workspace: WorkspaceConfig{
			AutosaveDelay: Duration(1500 * time.Millisecond),
		},
	}
}
