package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the PhishGuard backend.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Notifier   NotifierConfig   `mapstructure:"notifier"`
	Analyzer   AnalyzerConfig   `mapstructure:"analyzer"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	LogLevel  string          `mapstructure:"log_level"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig controls per-client request limiting.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// StorageConfig selects where the alert sequence is persisted.
type StorageConfig struct {
	Backend string             `mapstructure:"backend"`
	Key     string             `mapstructure:"key"`
	Redis   RedisStorageConfig `mapstructure:"redis"`
}

// RedisStorageConfig holds Redis connection options.
type RedisStorageConfig struct {
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AlertsConfig tunes the alert store and retention sweep.
type AlertsConfig struct {
	MaxAlerts   int             `mapstructure:"max_alerts"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	Retention   RetentionConfig `mapstructure:"retention"`
}

// RetentionConfig controls how long alerts are kept and when the sweep runs.
type RetentionConfig struct {
	Window   time.Duration `mapstructure:"window"`
	Schedule string        `mapstructure:"schedule"`
}

// NotifierConfig tunes the transient notification surface.
type NotifierConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	DismissTimeout time.Duration `mapstructure:"dismiss_timeout"`
	Sound          string        `mapstructure:"sound"`
}

// AnalyzerConfig points at the detection engine.
type AnalyzerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("PHISHGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests", 100)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/phishguard.sqlite")

	v.SetDefault("storage.backend", "database")
	v.SetDefault("storage.key", "alerts")
	v.SetDefault("storage.redis.address", "127.0.0.1:6379")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", "5s")

	v.SetDefault("alerts.max_alerts", 100)
	v.SetDefault("alerts.dedup_window", "60s")
	v.SetDefault("alerts.retention.window", "720h") // 30 days
	v.SetDefault("alerts.retention.schedule", "@daily")

	v.SetDefault("notifier.enabled", true)
	v.SetDefault("notifier.dismiss_timeout", "5s")
	v.SetDefault("notifier.sound", "alert")

	v.SetDefault("analyzer.base_url", "http://127.0.0.1:5000")
	v.SetDefault("analyzer.timeout", "15s")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
