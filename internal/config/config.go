package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vburojevic/adjust/internal/domain"
)

// Config holds application configuration
type Config struct {
	// Tracking
	AppToken       string `mapstructure:"app_token" yaml:"app_token"`
	Environment    string `mapstructure:"environment" yaml:"environment"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	EventBuffering bool   `mapstructure:"event_buffering" yaml:"event_buffering"`
	DefaultTracker string `mapstructure:"default_tracker" yaml:"default_tracker"`
	SDKPrefix      string `mapstructure:"sdk_prefix" yaml:"sdk_prefix"`
	Offline        bool   `mapstructure:"offline" yaml:"offline"`

	// Output
	Format string    `mapstructure:"format" yaml:"format"` // auto, text or ndjson
	Log    LogConfig `mapstructure:"log" yaml:"log"`

	Store   StoreConfig       `mapstructure:"store" yaml:"store"`
	Request RequestConfig     `mapstructure:"request" yaml:"request"`
	Session SessionConfig     `mapstructure:"session" yaml:"session"`
	Metrics MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Device  domain.DeviceInfo `mapstructure:"device" yaml:"device"`
}

// LogConfig controls SDK logging
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // verbose, debug, info, warn, error, suppress
	Format string `mapstructure:"format" yaml:"format"` // console or json
}

// StoreConfig selects where state and the package queue are persisted
type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"` // file, sqlite, memory
	Path    string `mapstructure:"path" yaml:"path"`
	Codec   string `mapstructure:"codec" yaml:"codec"` // json or plist
}

// RequestConfig controls delivery to the collector
type RequestConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SessionConfig holds the session state machine intervals
type SessionConfig struct {
	SessionInterval    time.Duration `mapstructure:"session_interval" yaml:"session_interval"`
	SubsessionInterval time.Duration `mapstructure:"subsession_interval" yaml:"subsession_interval"`
	TimerInterval      time.Duration `mapstructure:"timer_interval" yaml:"timer_interval"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Environment: "sandbox",
		BaseURL:     "https://app.adjust.io",
		Format:      "auto",
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Store: StoreConfig{
			Backend: "file",
			Path:    defaultStorePath(),
			Codec:   "json",
		},
		Request: RequestConfig{
			Timeout: time.Minute,
		},
		Session: SessionConfig{
			SessionInterval:    30 * time.Minute,
			SubsessionInterval: time.Second,
			TimerInterval:      time.Minute,
		},
	}
}

func defaultStorePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "adjust")
	}
	return ".adjust"
}

// Validate checks values that have a fixed set of choices
func (c *Config) Validate() error {
	var errs []error
	switch c.Environment {
	case "sandbox", "production":
	default:
		errs = append(errs, fmt.Errorf("environment: must be sandbox or production, got %q", c.Environment))
	}
	switch c.Store.Backend {
	case "file", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	switch c.Store.Codec {
	case "json", "plist":
	default:
		errs = append(errs, fmt.Errorf("store.codec: unknown codec %q", c.Store.Codec))
	}
	switch c.Format {
	case "auto", "text", "ndjson":
	default:
		errs = append(errs, fmt.Errorf("format: unknown format %q", c.Format))
	}
	if c.Store.Backend != "memory" && c.Store.Path == "" {
		errs = append(errs, errors.New("store.path: required for persistent backends"))
	}
	return errors.Join(errs...)
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	v := newViper()

	// Config file search, lowest precedence first:
	// 1. System-wide config
	v.AddConfigPath("/etc/adjust/")
	// 2. User config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "adjust"))
	}
	// 3. Home directory
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	// 4. Current directory
	v.AddConfigPath(".")

	// An explicit dotfile wins over the adjust.yaml search
	if path := findConfigFile(); path != "" {
		v.SetConfigFile(path)
	}

	// Try to read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error occurred
			return nil, err
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// newViper registers defaults for every key so ADJUST_* variables reach
// nested fields through AutomaticEnv.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("adjust")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("ADJUST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg := Default()
	v.SetDefault("app_token", cfg.AppToken)
	v.SetDefault("environment", cfg.Environment)
	v.SetDefault("base_url", cfg.BaseURL)
	v.SetDefault("event_buffering", cfg.EventBuffering)
	v.SetDefault("default_tracker", cfg.DefaultTracker)
	v.SetDefault("sdk_prefix", cfg.SDKPrefix)
	v.SetDefault("offline", cfg.Offline)
	v.SetDefault("format", cfg.Format)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("store.backend", cfg.Store.Backend)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("store.codec", cfg.Store.Codec)
	v.SetDefault("request.timeout", cfg.Request.Timeout)
	v.SetDefault("session.session_interval", cfg.Session.SessionInterval)
	v.SetDefault("session.subsession_interval", cfg.Session.SubsessionInterval)
	v.SetDefault("session.timer_interval", cfg.Session.TimerInterval)
	v.SetDefault("metrics.address", cfg.Metrics.Address)
	return v
}

// findConfigFile looks for a dotfile in the current directory, then home
func findConfigFile() string {
	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}

	for _, dir := range dirs {
		for _, name := range []string{".adjust.yaml", ".adjust.yml"} {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// applyEnvOverrides applies the short-form variables that have no nested key
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ADJUST_TOKEN"); v != "" {
		cfg.AppToken = v
	}
	if v := os.Getenv("ADJUST_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("ADJUST_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ADJUST_OFFLINE"); v == "true" || v == "1" {
		cfg.Offline = true
	}
}

// ConfigFile returns the path to the config file that would be loaded
func ConfigFile() string {
	if path := findConfigFile(); path != "" {
		return path
	}

	v := viper.New()
	v.SetConfigName("adjust")
	v.SetConfigType("yaml")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "adjust"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err == nil {
		return v.ConfigFileUsed()
	}
	return ""
}
