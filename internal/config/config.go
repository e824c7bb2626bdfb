// Package config provides configuration management for mamactl.
// Configuration is loaded from YAML files with environment variable
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Version is the current config schema version.
const Version = "1"

// Mode constants for backend selection.
const (
	ModeAPI  = "api"
	ModeMock = "mock"
)

// Default file paths.
const (
	GlobalConfigDir   = ".config/mamactl"
	GlobalConfigFile  = "config.yaml"
	ProjectConfigFile = ".mamactl.yaml"
)

// Default values.
const (
	DefaultMode      = ModeMock
	DefaultAPIURL    = "https://api.mamalink.app/v1"
	DefaultMockDelay = "300ms"
	DefaultCacheTTL  = "60s"
)

// Environment variable names.
const (
	EnvMode      = "MAMACTL_MODE"
	EnvAPIURL    = "MAMACTL_API_URL"
	EnvToken     = "MAMACTL_TOKEN" //nolint:gosec // Env var name, not a credential
	EnvMockDelay = "MAMACTL_MOCK_DELAY"
	EnvCacheTTL  = "MAMACTL_CACHE_TTL"
	EnvDebug     = "MAMACTL_DEBUG"
	EnvRedisAddr = "MAMACTL_REDIS_ADDR"
)

// Config represents the complete mamactl configuration.
type Config struct {
	Version string      `yaml:"version"`
	Mode    string      `yaml:"mode"`
	API     APIConfig   `yaml:"api"`
	Mock    MockConfig  `yaml:"mock"`
	Cache   CacheConfig `yaml:"cache"`
	Debug   bool        `yaml:"debug"`
}

// APIConfig holds real-backend settings.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// Token is not stored in config files - loaded from env only
	Token string `yaml:"-"`
}

// MockConfig holds mock-backend settings.
type MockConfig struct {
	Delay string `yaml:"delay"`
}

// CacheConfig holds cache settings. Redis is optional; when Addr is empty
// the cache is purely in-memory.
type CacheConfig struct {
	TTL       string `yaml:"ttl"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
}

// Errors.
var (
	ErrInvalidMode   = errors.New("invalid mode: must be 'api' or 'mock'")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNoToken       = errors.New("api.token is required in api mode")
)

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Version: Version,
		Mode:    DefaultMode,
		API: APIConfig{
			BaseURL: DefaultAPIURL,
		},
		Mock: MockConfig{
			Delay: DefaultMockDelay,
		},
		Cache: CacheConfig{
			TTL: DefaultCacheTTL,
		},
	}
}

// LoadOptions configures config loading behavior.
type LoadOptions struct {
	// ExplicitPath overrides config discovery (--config flag).
	ExplicitPath string
	// SkipGlobal skips loading global config (~/.config/mamactl/config.yaml).
	SkipGlobal bool
	// SkipProject skips loading project config (.mamactl.yaml).
	SkipProject bool
	// SkipEnv skips environment variable overrides.
	SkipEnv bool
}

// Load loads configuration with the following precedence (highest to lowest):
// 1. Environment variables
// 2. Project config (.mamactl.yaml in the working tree)
// 3. Global config (~/.config/mamactl/config.yaml)
// 4. Built-in defaults
//
// If ExplicitPath is set, it replaces both global and project configs.
func Load(opts LoadOptions) (*Config, error) {
	cfg := New()

	if !opts.SkipGlobal && opts.ExplicitPath == "" {
		globalPath, err := globalConfigPath()
		if err == nil {
			if loadErr := loadFile(cfg, globalPath); loadErr != nil && !os.IsNotExist(loadErr) {
				return nil, fmt.Errorf("load global config: %w", loadErr)
			}
		}
	}

	if !opts.SkipProject && opts.ExplicitPath == "" {
		projectPath, err := discoverProjectConfig()
		if err == nil {
			if loadErr := loadFile(cfg, projectPath); loadErr != nil && !os.IsNotExist(loadErr) {
				return nil, fmt.Errorf("load project config: %w", loadErr)
			}
		}
	}

	if opts.ExplicitPath != "" {
		if err := loadFile(cfg, opts.ExplicitPath); err != nil {
			return nil, fmt.Errorf("load config %s: %w", opts.ExplicitPath, err)
		}
	}

	if !opts.SkipEnv {
		applyEnvOverrides(cfg)
	}

	return cfg, nil
}

// loadFile reads and unmarshals a YAML config file into cfg.
// Fields not present in the file retain their current values (merge behavior).
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // Config path from trusted source
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// globalConfigPath returns the path to the global config file.
func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile), nil
}

// discoverProjectConfig walks up from CWD looking for .mamactl.yaml.
// Stops at git root or filesystem root.
func discoverProjectConfig() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		path := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}

		gitPath := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitPath); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", os.ErrNotExist
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvMode); v != "" {
		cfg.Mode = strings.ToLower(v)
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv(EnvMockDelay); v != "" {
		cfg.Mock.Delay = v
	}
	if v := os.Getenv(EnvCacheTTL); v != "" {
		cfg.Cache.TTL = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv(EnvDebug); v == "1" || strings.EqualFold(v, "true") {
		cfg.Debug = true
	}
}

// CLIOverrides contains values from CLI flags that override config.
type CLIOverrides struct {
	Mode      string
	APIURL    string
	MockDelay string
	CacheTTL  string
	Debug     bool
}

// ApplyCLIOverrides applies CLI flag values to config.
// Only non-empty values are applied (highest priority).
func (cfg *Config) ApplyCLIOverrides(o CLIOverrides) {
	if o.Mode != "" {
		cfg.Mode = strings.ToLower(o.Mode)
	}
	if o.APIURL != "" {
		cfg.API.BaseURL = o.APIURL
	}
	if o.MockDelay != "" {
		cfg.Mock.Delay = o.MockDelay
	}
	if o.CacheTTL != "" {
		cfg.Cache.TTL = o.CacheTTL
	}
	if o.Debug {
		cfg.Debug = true
	}
}

// Validate checks the configuration for errors.
func (cfg *Config) Validate() error {
	switch cfg.Mode {
	case ModeAPI, ModeMock:
		// Valid
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidMode, cfg.Mode)
	}

	if cfg.Mode == ModeAPI && cfg.API.Token == "" {
		return ErrNoToken
	}

	for _, d := range []struct {
		name, value string
	}{
		{"mock.delay", cfg.Mock.Delay},
		{"cache.ttl", cfg.Cache.TTL},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("%w: invalid %s %q: %w", ErrInvalidConfig, d.name, d.value, err)
		}
	}

	return nil
}

var (
	defaultMockDelayDuration = mustParseDuration(DefaultMockDelay)
	defaultCacheTTLDuration  = mustParseDuration(DefaultCacheTTL)
)

func mustParseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic("invalid default duration: " + s)
	}
	return d
}

// MockDelayDuration returns the simulated mock latency as a time.Duration,
// falling back to the default on empty or invalid values.
func (cfg *Config) MockDelayDuration() time.Duration {
	if cfg.Mock.Delay == "" {
		return defaultMockDelayDuration
	}
	d, err := time.ParseDuration(cfg.Mock.Delay)
	if err != nil {
		return defaultMockDelayDuration
	}
	return d
}

// CacheTTLDuration returns the default cache TTL as a time.Duration,
// falling back to the default on empty or invalid values.
func (cfg *Config) CacheTTLDuration() time.Duration {
	if cfg.Cache.TTL == "" {
		return defaultCacheTTLDuration
	}
	d, err := time.ParseDuration(cfg.Cache.TTL)
	if err != nil {
		return defaultCacheTTLDuration
	}
	return d
}

// IsAPIMode returns true if the config selects the real backend.
func (cfg *Config) IsAPIMode() bool {
	return cfg.Mode == ModeAPI
}

// IsMockMode returns true if the config selects the mock backend.
func (cfg *Config) IsMockMode() bool {
	return cfg.Mode == ModeMock
}

// apiConfigDisplay is used for String() output with the token redacted.
type apiConfigDisplay struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token,omitempty"`
}

type configDisplay struct {
	Version string           `yaml:"version"`
	Mode    string           `yaml:"mode"`
	API     apiConfigDisplay `yaml:"api"`
	Mock    MockConfig       `yaml:"mock"`
	Cache   CacheConfig      `yaml:"cache"`
	Debug   bool             `yaml:"debug"`
}

// String returns a human-readable representation of the config.
// Sensitive fields (tokens) are redacted.
func (cfg *Config) String() string {
	display := configDisplay{
		Version: cfg.Version,
		Mode:    cfg.Mode,
		API: apiConfigDisplay{
			BaseURL: cfg.API.BaseURL,
		},
		Mock:  cfg.Mock,
		Cache: cfg.Cache,
		Debug: cfg.Debug,
	}

	if cfg.API.Token != "" {
		display.API.Token = "[REDACTED]"
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Sprintf("config error: %v", err)
	}
	return string(data)
}

// SaveGlobal writes the config to the global config file.
// Creates the directory if it doesn't exist.
func (cfg *Config) SaveGlobal() error {
	path, err := globalConfigPath()
	if err != nil {
		return fmt.Errorf("get global config path: %w", err)
	}
	return cfg.SaveTo(path)
}

// SaveTo writes the config to the specified path.
// Creates parent directories if needed. Tokens are NOT saved.
func (cfg *Config) SaveTo(path string) error {
	saveCfg := *cfg
	saveCfg.API.Token = "" // Never save token to file

	data, err := yaml.Marshal(&saveCfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}
