package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points home and the working directory at an empty temp dir so no
// real config file leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, ".config"))

	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return tmpDir
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, "sandbox", cfg.Environment)
	assert.Equal(t, "https://app.adjust.io", cfg.BaseURL)
	assert.Equal(t, "auto", cfg.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, "json", cfg.Store.Codec)
	assert.NotEmpty(t, cfg.Store.Path)
	assert.Equal(t, time.Minute, cfg.Request.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Session.SessionInterval)
	assert.Equal(t, time.Second, cfg.Session.SubsessionInterval)
	assert.Equal(t, time.Minute, cfg.Session.TimerInterval)
	assert.False(t, cfg.EventBuffering)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("returns defaults when no config file exists", func(t *testing.T) {
		isolate(t)

		cfg, err := Load()
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "auto", cfg.Format)
		assert.Equal(t, "sandbox", cfg.Environment)
	})

	t.Run("loads adjust.yaml from working directory", func(t *testing.T) {
		tmpDir := isolate(t)
		configContent := `
app_token: abc123def456
environment: production
event_buffering: true
`
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "adjust.yaml"), []byte(configContent), 0644))

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "abc123def456", cfg.AppToken)
		assert.Equal(t, "production", cfg.Environment)
		assert.True(t, cfg.EventBuffering)
	})

	t.Run("dotfile takes precedence", func(t *testing.T) {
		tmpDir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "adjust.yaml"), []byte("environment: production\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".adjust.yaml"), []byte("environment: sandbox\nformat: ndjson\n"), 0644))

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "sandbox", cfg.Environment)
		assert.Equal(t, "ndjson", cfg.Format)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		tmpDir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "adjust.yaml"), []byte("app_token: fromfile0000\n"), 0644))
		t.Setenv("ADJUST_APP_TOKEN", "fromenv00000")
		t.Setenv("ADJUST_STORE_BACKEND", "sqlite")
		t.Setenv("ADJUST_REQUEST_TIMEOUT", "5s")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "fromenv00000", cfg.AppToken)
		assert.Equal(t, "sqlite", cfg.Store.Backend)
		assert.Equal(t, 5*time.Second, cfg.Request.Timeout)
	})
}

func TestLoadFromFile(t *testing.T) {
	t.Run("returns error for non-existent file", func(t *testing.T) {
		cfg, err := LoadFromFile("/nonexistent/path/config.yaml")
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "bad.yaml")
		err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644)
		require.NoError(t, err)

		cfg, err := LoadFromFile(configPath)
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("parses all config fields", func(t *testing.T) {
		tmpDir := t.TempDir()
		configContent := `
app_token: abc123def456
environment: production
base_url: http://localhost:8080
event_buffering: true
default_tracker: abc123
sdk_prefix: unity4.0
offline: true
format: ndjson
log:
  level: debug
  format: json
store:
  backend: sqlite
  path: /var/lib/adjust/state.db
  codec: plist
request:
  timeout: 30s
session:
  session_interval: 45m
  subsession_interval: 2s
  timer_interval: 10s
metrics:
  address: ":9090"
device:
  device_unique_id: device-1
  app_name: demo
  os_name: linux
`
		configPath := filepath.Join(tmpDir, "adjust.yaml")
		err := os.WriteFile(configPath, []byte(configContent), 0644)
		require.NoError(t, err)

		cfg, err := LoadFromFile(configPath)
		require.NoError(t, err)

		assert.Equal(t, "abc123def456", cfg.AppToken)
		assert.Equal(t, "production", cfg.Environment)
		assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
		assert.True(t, cfg.EventBuffering)
		assert.Equal(t, "abc123", cfg.DefaultTracker)
		assert.Equal(t, "unity4.0", cfg.SDKPrefix)
		assert.True(t, cfg.Offline)
		assert.Equal(t, "ndjson", cfg.Format)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Equal(t, "sqlite", cfg.Store.Backend)
		assert.Equal(t, "/var/lib/adjust/state.db", cfg.Store.Path)
		assert.Equal(t, "plist", cfg.Store.Codec)
		assert.Equal(t, 30*time.Second, cfg.Request.Timeout)
		assert.Equal(t, 45*time.Minute, cfg.Session.SessionInterval)
		assert.Equal(t, 2*time.Second, cfg.Session.SubsessionInterval)
		assert.Equal(t, 10*time.Second, cfg.Session.TimerInterval)
		assert.Equal(t, ":9090", cfg.Metrics.Address)
		assert.Equal(t, "device-1", cfg.Device.DeviceUniqueID)
		assert.Equal(t, "demo", cfg.Device.AppName)
		assert.Equal(t, "linux", cfg.Device.OSName)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("keeps defaults for missing fields", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "adjust.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("app_token: abc123def456\n"), 0644))

		cfg, err := LoadFromFile(configPath)
		require.NoError(t, err)

		assert.Equal(t, "abc123def456", cfg.AppToken)
		assert.Equal(t, "sandbox", cfg.Environment)
		assert.Equal(t, "file", cfg.Store.Backend)
		assert.Equal(t, 30*time.Minute, cfg.Session.SessionInterval)
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Run("returns empty when nothing exists", func(t *testing.T) {
		isolate(t)
		assert.Empty(t, findConfigFile())
	})

	t.Run("finds .adjust.yml in working directory", func(t *testing.T) {
		tmpDir := isolate(t)
		path := filepath.Join(tmpDir, ".adjust.yml")
		require.NoError(t, os.WriteFile(path, []byte("format: text\n"), 0644))

		found := findConfigFile()
		require.NotEmpty(t, found)
		assert.Equal(t, ".adjust.yml", filepath.Base(found))
		assert.Equal(t, found, ConfigFile())
	})
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ADJUST_TOKEN", "short0000000")
	t.Setenv("ADJUST_ENV", "production")
	t.Setenv("ADJUST_OFFLINE", "1")

	cfg := Default()
	applyEnvOverrides(cfg)

	assert.Equal(t, "short0000000", cfg.AppToken)
	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.Offline)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"memory needs no path", func(c *Config) { c.Store.Backend = "memory"; c.Store.Path = "" }, ""},
		{"unknown environment", func(c *Config) { c.Environment = "staging" }, "environment"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, "store.backend"},
		{"unknown codec", func(c *Config) { c.Store.Codec = "xml" }, "store.codec"},
		{"unknown format", func(c *Config) { c.Format = "csv" }, "format"},
		{"missing path", func(c *Config) { c.Store.Path = "" }, "store.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
