package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, Version, cfg.Version)
	assert.Equal(t, ModeMock, cfg.Mode)
	assert.Equal(t, DefaultAPIURL, cfg.API.BaseURL)
	assert.Empty(t, cfg.API.Token)
	assert.Equal(t, DefaultMockDelay, cfg.Mock.Delay)
	assert.Equal(t, DefaultCacheTTL, cfg.Cache.TTL)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.False(t, cfg.Debug)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	configContent := `
version: "1"
mode: api
api:
  base_url: https://staging.mamalink.app/v1
cache:
  ttl: 2m
  redis_addr: localhost:6379
`
	err := os.WriteFile(configPath, []byte(configContent), 0o600)
	require.NoError(t, err)

	cfg, err := Load(LoadOptions{
		ExplicitPath: configPath,
		SkipEnv:      true,
	})
	require.NoError(t, err)

	assert.Equal(t, ModeAPI, cfg.Mode)
	assert.Equal(t, "https://staging.mamalink.app/v1", cfg.API.BaseURL)
	assert.Equal(t, "2m", cfg.Cache.TTL)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)

	// Defaults should still be present for unspecified fields
	assert.Equal(t, DefaultMockDelay, cfg.Mock.Delay)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	configContent := `
mode: mock
api:
  base_url: https://base.mamalink.app/v1
`
	err := os.WriteFile(configPath, []byte(configContent), 0o600)
	require.NoError(t, err)

	t.Setenv(EnvMode, "API")
	t.Setenv(EnvAPIURL, "https://override.mamalink.app/v1")
	t.Setenv(EnvToken, "test-token")
	t.Setenv(EnvMockDelay, "50ms")
	t.Setenv(EnvCacheTTL, "2h")
	t.Setenv(EnvRedisAddr, "redis.internal:6379")
	t.Setenv(EnvDebug, "true")

	cfg, err := Load(LoadOptions{
		ExplicitPath: configPath,
	})
	require.NoError(t, err)

	// Env vars should override file values
	assert.Equal(t, ModeAPI, cfg.Mode)
	assert.Equal(t, "https://override.mamalink.app/v1", cfg.API.BaseURL)
	assert.Equal(t, "test-token", cfg.API.Token)
	assert.Equal(t, "50ms", cfg.Mock.Delay)
	assert.Equal(t, "2h", cfg.Cache.TTL)
	assert.Equal(t, "redis.internal:6379", cfg.Cache.RedisAddr)
	assert.True(t, cfg.Debug)
}

func TestApplyCLIOverrides(t *testing.T) {
	cfg := New()

	cfg.ApplyCLIOverrides(CLIOverrides{
		Mode:      "api",
		APIURL:    "https://custom.mamalink.app/v1",
		MockDelay: "10ms",
		CacheTTL:  "90s",
	})

	assert.Equal(t, ModeAPI, cfg.Mode)
	assert.Equal(t, "https://custom.mamalink.app/v1", cfg.API.BaseURL)
	assert.Equal(t, "10ms", cfg.Mock.Delay)
	assert.Equal(t, "90s", cfg.Cache.TTL)

	// Empty values should not override
	cfg.ApplyCLIOverrides(CLIOverrides{})
	assert.Equal(t, ModeAPI, cfg.Mode)
}

func TestValidate(t *testing.T) {
	t.Run("valid mock mode", func(t *testing.T) {
		cfg := New()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("valid api mode", func(t *testing.T) {
		cfg := New()
		cfg.Mode = ModeAPI
		cfg.API.Token = "token"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("invalid mode", func(t *testing.T) {
		cfg := New()
		cfg.Mode = "invalid"
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidMode)
	})

	t.Run("api mode requires token", func(t *testing.T) {
		cfg := New()
		cfg.Mode = ModeAPI
		assert.ErrorIs(t, cfg.Validate(), ErrNoToken)
	})

	t.Run("invalid mock delay", func(t *testing.T) {
		cfg := New()
		cfg.Mock.Delay = "not-a-duration"
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("invalid cache TTL", func(t *testing.T) {
		cfg := New()
		cfg.Cache.TTL = "not-a-duration"
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})
}

func TestMockDelayDuration(t *testing.T) {
	t.Run("valid duration", func(t *testing.T) {
		cfg := New()
		cfg.Mock.Delay = "150ms"
		assert.Equal(t, 150*time.Millisecond, cfg.MockDelayDuration())
	})

	t.Run("empty uses default", func(t *testing.T) {
		cfg := New()
		cfg.Mock.Delay = ""
		expected, _ := time.ParseDuration(DefaultMockDelay)
		assert.Equal(t, expected, cfg.MockDelayDuration())
	})

	t.Run("invalid uses default", func(t *testing.T) {
		cfg := New()
		cfg.Mock.Delay = "invalid"
		expected, _ := time.ParseDuration(DefaultMockDelay)
		assert.Equal(t, expected, cfg.MockDelayDuration())
	})
}

func TestCacheTTLDuration(t *testing.T) {
	cfg := New()
	cfg.Cache.TTL = "30m"
	assert.Equal(t, 30*time.Minute, cfg.CacheTTLDuration())

	cfg.Cache.TTL = "invalid"
	expected, _ := time.ParseDuration(DefaultCacheTTL)
	assert.Equal(t, expected, cfg.CacheTTLDuration())
}

func TestIsMode(t *testing.T) {
	cfg := New()

	assert.True(t, cfg.IsMockMode())
	assert.False(t, cfg.IsAPIMode())

	cfg.Mode = ModeAPI
	assert.True(t, cfg.IsAPIMode())
	assert.False(t, cfg.IsMockMode())
}

func TestString_RedactsToken(t *testing.T) {
	cfg := New()
	cfg.API.Token = "super-secret-token"

	output := cfg.String()
	assert.NotContains(t, output, "super-secret-token")
	assert.Contains(t, output, "[REDACTED]")
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "test-config.yaml")

	cfg := New()
	cfg.Mode = ModeAPI
	cfg.API.BaseURL = "https://staging.mamalink.app/v1"
	cfg.API.Token = "should-not-be-saved"
	cfg.Cache.TTL = "45m"

	err := cfg.SaveTo(configPath)
	require.NoError(t, err)

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(LoadOptions{
		ExplicitPath: configPath,
		SkipEnv:      true,
	})
	require.NoError(t, err)

	assert.Equal(t, ModeAPI, loaded.Mode)
	assert.Equal(t, "https://staging.mamalink.app/v1", loaded.API.BaseURL)
	assert.Empty(t, loaded.API.Token, "token should not be saved")
	assert.Equal(t, "45m", loaded.Cache.TTL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "invalid.yaml")

	err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0o600)
	require.NoError(t, err)

	_, err = Load(LoadOptions{
		ExplicitPath: configPath,
		SkipEnv:      true,
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(LoadOptions{
		ExplicitPath: "/nonexistent/path/config.yaml",
		SkipEnv:      true,
	})
	assert.Error(t, err)
}

func TestDiscoverProjectConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ProjectConfigFile)
	err := os.WriteFile(configPath, []byte("mode: mock"), 0o600)
	require.NoError(t, err)

	subdir := filepath.Join(dir, "subdir", "nested")
	err = os.MkdirAll(subdir, 0o750)
	require.NoError(t, err)

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(oldWd) }()

	err = os.Chdir(subdir)
	require.NoError(t, err)

	// Should find config in a parent directory
	found, err := discoverProjectConfig()
	require.NoError(t, err)

	// Resolve symlinks for comparison (macOS /var -> /private/var)
	expectedResolved, _ := filepath.EvalSymlinks(configPath)
	foundResolved, _ := filepath.EvalSymlinks(found)
	assert.Equal(t, expectedResolved, foundResolved)
}

func TestConfigPrecedence_Full(t *testing.T) {
	// Verifies the chain: CLI flags > env vars > project config > global
	// config > defaults.
	dir := t.TempDir()

	globalDir := filepath.Join(dir, "global")
	err := os.MkdirAll(globalDir, 0o750)
	require.NoError(t, err)
	globalPath := filepath.Join(globalDir, "config.yaml")
	err = os.WriteFile(globalPath, []byte(`
mode: mock
api:
  base_url: https://global.mamalink.app/v1
cache:
  ttl: 10m
`), 0o600)
	require.NoError(t, err)

	projectPath := filepath.Join(dir, ProjectConfigFile)
	err = os.WriteFile(projectPath, []byte(`
cache:
  ttl: 20m
`), 0o600)
	require.NoError(t, err)

	t.Setenv(EnvCacheTTL, "30m")

	cfg := New()

	err = loadFile(cfg, globalPath)
	require.NoError(t, err)
	assert.Equal(t, "https://global.mamalink.app/v1", cfg.API.BaseURL)
	assert.Equal(t, "10m", cfg.Cache.TTL)

	// Project overrides global, fields not present are preserved
	err = loadFile(cfg, projectPath)
	require.NoError(t, err)
	assert.Equal(t, "20m", cfg.Cache.TTL)
	assert.Equal(t, "https://global.mamalink.app/v1", cfg.API.BaseURL)

	applyEnvOverrides(cfg)
	assert.Equal(t, "30m", cfg.Cache.TTL)

	cfg.ApplyCLIOverrides(CLIOverrides{CacheTTL: "40m"})
	assert.Equal(t, "40m", cfg.Cache.TTL)
}
