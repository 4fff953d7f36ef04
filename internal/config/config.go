package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and
// environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	PlatformsFile string `mapstructure:"platforms_file"`
	SinksFile     string `mapstructure:"sinks_file"`

	AggregateAPIURL string `mapstructure:"aggregate_api_url"`
	ProxyURL        string `mapstructure:"proxy_url"`

	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RunTimeoutSeconds     int64         `mapstructure:"run_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	RunTimeout            time.Duration `mapstructure:"-"`

	MaxConcurrentFetches int `mapstructure:"max_concurrent_fetches"`

	RetryMaxAttempts int           `mapstructure:"retry_max_attempts"`
	RetryMinWaitMs   int64         `mapstructure:"retry_min_wait_ms"`
	RetryMaxWaitMs   int64         `mapstructure:"retry_max_wait_ms"`
	RetryMinWait     time.Duration `mapstructure:"-"`
	RetryMaxWait     time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	SnapshotTTLSeconds     int64         `mapstructure:"snapshot_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	SnapshotTTL            time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "trend-aggregator")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("platforms_file", "./configs/platforms.yaml")
	v.SetDefault("sinks_file", "./configs/sinks.yaml")
	v.SetDefault("aggregate_api_url", "https://newsnow.busiyi.world")
	v.SetDefault("proxy_url", "")
	v.SetDefault("request_timeout_seconds", 10)
	v.SetDefault("run_timeout_seconds", 60)
	v.SetDefault("max_concurrent_fetches", 8)
	v.SetDefault("retry_max_attempts", 1) // 1 = no retry
	v.SetDefault("retry_min_wait_ms", 3000)
	v.SetDefault("retry_max_wait_ms", 5000)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/snapshots.db")
	v.SetDefault("snapshot_ttl_seconds", int64((5*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.AggregateAPIURL == "" {
		return nil, fmt.Errorf("aggregate_api_url must not be empty")
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid request_timeout_seconds (must be positive)")
	}
	if cfg.RunTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid run_timeout_seconds (must be positive)")
	}
	if cfg.MaxConcurrentFetches <= 0 {
		return nil, fmt.Errorf("invalid max_concurrent_fetches (must be positive)")
	}
	if cfg.RetryMaxAttempts <= 0 {
		return nil, fmt.Errorf("invalid retry_max_attempts (must be at least 1)")
	}
	if cfg.RetryMinWaitMs < 0 || cfg.RetryMaxWaitMs < cfg.RetryMinWaitMs {
		return nil, fmt.Errorf("invalid retry wait bounds")
	}
	if cfg.SnapshotTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid snapshot_ttl_seconds (must be positive)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive)")
	}

	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	cfg.RunTimeout = time.Duration(cfg.RunTimeoutSeconds) * time.Second
	cfg.RetryMinWait = time.Duration(cfg.RetryMinWaitMs) * time.Millisecond
	cfg.RetryMaxWait = time.Duration(cfg.RetryMaxWaitMs) * time.Millisecond
	cfg.SnapshotTTL = time.Duration(cfg.SnapshotTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}
