package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "http://localhost:8000/", cfg.Server.PublicURL)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	assert.Equal(t, int64(5<<20), cfg.Store.QuotaBytes)
	assert.Equal(t, 2*time.Second, cfg.Sandbox.Timeout.Std())
	assert.True(t, cfg.Sandbox.Headless)
	assert.Equal(t, 1500*time.Millisecond, cfg.Workspace.AutosaveDelay.Std())

	require.NoError(t, cfg.Validate())
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":               "9000",
		"HOST":               "127.0.0.1",
		"PUBLIC_URL":         "https://play.example.com/",
		"LOG_LEVEL":          "debug",
		"LOG_DEV":            "true",
		"RATE_LIMIT_RPS":     "500",
		"RATE_LIMIT_BURST":   "1000",
		"RATE_LIMIT_ENABLED": "false",
		"STORE_PATH":         "/var/lib/playground/project.json",
		"STORE_QUOTA_BYTES":  "1024",
		"SANDBOX_TIMEOUT":    "750ms",
		"SANDBOX_HEADLESS":   "false",
		"AUTOSAVE_DELAY":     "3s",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "https://play.example.com/", cfg.Server.PublicURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "/var/lib/playground/project.json", cfg.Store.Path)
	assert.Equal(t, int64(1024), cfg.Store.QuotaBytes)
	assert.Equal(t, 750*time.Millisecond, cfg.Sandbox.Timeout.Std())
	assert.False(t, cfg.Sandbox.Headless)
	assert.Equal(t, 3*time.Second, cfg.Workspace.AutosaveDelay.Std())
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("AUTOSAVE_DELAY", "soon")

	_, err := Load()
	require.Error(t, err)

	assert.Equal(t, "8000", LoadOrDefault().Server.Port)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Workspace.AutosaveDelay = 0
	cfg.Store.QuotaBytes = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "autosave delay")
	assert.Contains(t, err.Error(), "store quota")

	cfg = Default()
	cfg.Store.Path = ""
	require.Error(t, cfg.Validate())
	cfg.Store.Ephemeral = true
	require.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playground.toml")
	content := `
[server]
port = "9100"

[store]
ephemeral = true

[sandbox]
timeout = "500ms"
headless = false

[workspace]
autosave_delay = "250ms"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "unset keys keep their defaults")
	assert.True(t, cfg.Store.Ephemeral)
	assert.Equal(t, 500*time.Millisecond, cfg.Sandbox.Timeout.Std())
	assert.False(t, cfg.Sandbox.Headless)
	assert.Equal(t, 250*time.Millisecond, cfg.Workspace.AutosaveDelay.Std())
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport ="), 0o600))
	_, err = LoadFile(path)
	require.Error(t, err)
}
