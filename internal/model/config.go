package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIConfig holds settings for the REST client.
type APIConfig struct {
	// BaseURL is the root of the todo API, including any version prefix.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// MaxRetries is how many times a throttled request is retried.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// RatePerSec caps outgoing requests. Zero disables the limiter.
	RatePerSec float64 `mapstructure:"rate_per_sec" yaml:"rate_per_sec"`
}

// StoreConfig holds settings for the optimistic todo store.
type StoreConfig struct {
	PageSize     int `mapstructure:"page_size" yaml:"page_size"`
	FreshnessSec int `mapstructure:"freshness_sec" yaml:"freshness_sec"`
}

// SyncConfig holds settings for the background refresher.
type SyncConfig struct {
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// ServerConfig holds settings for the reference API server.
type ServerConfig struct {
	Addr   string `mapstructure:"addr" yaml:"addr"`
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// Token, when set, is required as a bearer token on every API request.
	Token string `mapstructure:"token" yaml:"token"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API    APIConfig    `mapstructure:"api" yaml:"api"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Sync   SyncConfig   `mapstructure:"sync" yaml:"sync"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// Timeout returns the request timeout as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Freshness returns the cache freshness window as a duration.
func (c StoreConfig) Freshness() time.Duration {
	return time.Duration(c.FreshnessSec) * time.Second
}

// Interval returns the refresh interval as a duration.
func (c SyncConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/todosync/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultDBPath returns where the reference server keeps its database.
func DefaultDBPath() string {
	return filepath.Join(configDir(), "todos.db")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "todosync")
}

// defaults is the single source of default values, applied both to viper
// and to the zero config.
var defaults = map[string]any{
	"api.base_url":        "http://localhost:8080/api/v1",
	"api.timeout_sec":     30,
	"api.max_retries":     3,
	"api.rate_per_sec":    20.0,
	"store.page_size":     50,
	"store.freshness_sec": 300,
	"sync.interval_sec":   60,
	"server.addr":         ":8080",
	"server.db_path":      "",
	"server.token":        "",
	"log.level":           "info",
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:8080/api/v1",
			TimeoutSec: 30,
			MaxRetries: 3,
			RatePerSec: 20,
		},
		Store: StoreConfig{
			PageSize:     50,
			FreshnessSec: 300,
		},
		Sync:   SyncConfig{IntervalSec: 60},
		Server: ServerConfig{Addr: ":8080", DBPath: DefaultDBPath()},
		Log:    LogConfig{Level: "info"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with TODOSYNC_ override file values
// (TODOSYNC_API_BASE_URL for api.base_url). A missing file yields defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TODOSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Server.DBPath == "" {
		cfg.Server.DBPath = DefaultDBPath()
	}
	if cfg.Store.PageSize <= 0 {
		cfg.Store.PageSize = 50
	}
	if cfg.API.TimeoutSec <= 0 {
		cfg.API.TimeoutSec = 30
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("store", cfg.Store)
	v.Set("sync", cfg.Sync)
	v.Set("server", cfg.Server)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
