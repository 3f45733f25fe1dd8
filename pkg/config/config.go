// Package config loads reqtrace settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/reqtrace/config.toml (falling back to
// ~/.config/reqtrace/config.toml). Every key is optional:
//
//	registry = "https://pypi.org/pypi"
//	timeout  = "10s"
//	retries  = 0
//	store    = ""            # directory, file:// or mongodb:// URI
//
//	[environment]            # overrides on top of the default marker environment
//	python_version = "3.10"
//	platform_python_implementation = "CPython"
//
//	[cache]
//	backend   = "file"       # file | redis | none
//	ttl       = "24h"
//	redis_url = "redis://localhost:6379/0"
//
//	[server]
//	addr = ":8080"
//
// Command-line flags are applied on top of the loaded values by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	reqerrors "github.com/matzehuels/reqtrace/pkg/errors"
	"github.com/matzehuels/reqtrace/pkg/integrations/pypi"
	"github.com/matzehuels/reqtrace/pkg/pep508"
)

const appName = "reqtrace"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Defaults.
const (
	DefaultTimeout  = 10 * time.Second
	DefaultCacheTTL = 24 * time.Hour
	DefaultAddr     = ":8080"
)

// Config holds all file-configurable settings.
type Config struct {
	Registry    string            `toml:"registry"`
	Timeout     Duration          `toml:"timeout"`
	Retries     int               `toml:"retries"`
	Store       string            `toml:"store"`
	Environment map[string]string `toml:"environment"`
	Cache       CacheConfig       `toml:"cache"`
	Server      ServerConfig      `toml:"server"`
}

// CacheConfig selects and tunes the response cache.
type CacheConfig struct {
	Backend  string   `toml:"backend"`
	TTL      Duration `toml:"ttl"`
	RedisURL string   `toml:"redis_url"`
}

// ServerConfig configures `reqtrace serve`.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a Go duration string ("10s").
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Registry:    pypi.DefaultBaseURL,
		Timeout:     Duration{DefaultTimeout},
		Environment: map[string]string{},
		Cache: CacheConfig{
			Backend: CacheFile,
			TTL:     Duration{DefaultCacheTTL},
		},
		Server: ServerConfig{Addr: DefaultAddr},
	}
}

// DefaultPath returns the config file location using the XDG standard.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// LoadFile reads path over the defaults; the file must exist. Unknown keys
// are rejected so typos don't silently fall back to defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Parse decodes TOML text over the defaults and validates the result.
func Parse(text string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, cfg)
	if err != nil {
		return nil, reqerrors.Wrap(reqerrors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, reqerrors.New(reqerrors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	if err := reqerrors.ValidateURL(c.Registry); err != nil {
		return reqerrors.Wrap(reqerrors.ErrCodeInvalidConfig, err, "registry %q", c.Registry)
	}
	if c.Timeout.Duration <= 0 {
		return reqerrors.New(reqerrors.ErrCodeInvalidConfig, "timeout must be positive, got %s", c.Timeout)
	}
	if c.Retries < 0 {
		return reqerrors.New(reqerrors.ErrCodeInvalidConfig, "retries must not be negative, got %d", c.Retries)
	}
	if !slices.Contains([]string{CacheFile, CacheRedis, CacheNone}, c.Cache.Backend) {
		return reqerrors.New(reqerrors.ErrCodeInvalidConfig, "cache backend must be file, redis or none, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisURL == "" {
		return reqerrors.New(reqerrors.ErrCodeInvalidConfig, "cache backend redis requires redis_url")
	}
	if c.Cache.TTL.Duration < 0 {
		return reqerrors.New(reqerrors.ErrCodeInvalidConfig, "cache ttl must not be negative")
	}
	if _, err := c.MarkerEnvironment(); err != nil {
		return reqerrors.Wrap(reqerrors.ErrCodeInvalidConfig, err, "environment")
	}
	return nil
}

// MarkerEnvironment returns the default marker environment with the
// configured overrides applied.
func (c *Config) MarkerEnvironment() (pep508.Environment, error) {
	return pep508.DefaultEnvironment().With(c.Environment)
}

// SetEnv records a marker environment override.
func (c *Config) SetEnv(key, value string) {
	if c.Environment == nil {
		c.Environment = map[string]string{}
	}
	c.Environment[key] = value
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("# encode config: %v\n", err)
	}
	return b.String()
}
