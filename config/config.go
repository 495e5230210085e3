package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/Nayana519/PulseGuard/internal/drugdb"
	"github.com/Nayana519/PulseGuard/internal/email"
	"github.com/Nayana519/PulseGuard/internal/worker"
	"github.com/Nayana519/PulseGuard/pkg/logger"
	"github.com/Nayana519/PulseGuard/pkg/messaging/redis"
)

const envPrefix = "PULSEGUARD"

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	Mode            string        `mapstructure:"mode"`
}

type DatabaseConfig struct {
	// Driver is postgres or sqlite.
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	Path         string `mapstructure:"path"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type DrugAPIConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	BaseURL           string        `mapstructure:"base_url"`
	ResolveTimeout    time.Duration `mapstructure:"resolve_timeout"`
	BulkTimeout       time.Duration `mapstructure:"bulk_timeout"`
	PairTimeout       time.Duration `mapstructure:"pair_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	BreakerFailures   int           `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
}

type MonitorConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MissedDoseSpec  string        `mapstructure:"missed_dose_spec"`
	LowStockSpec    string        `mapstructure:"low_stock_spec"`
	GracePeriod     time.Duration `mapstructure:"grace_period"`
	MissedTolerance time.Duration `mapstructure:"missed_tolerance"`
	OpsPort         int           `mapstructure:"ops_port"`
}

type SMTPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	JSON       bool   `mapstructure:"json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	DrugAPI   DrugAPIConfig   `mapstructure:"drug_api"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// secrets are read from PULSEGUARD_* variables and never from the yaml file.
type secrets struct {
	DatabasePassword string `envconfig:"DATABASE_PASSWORD"`
	RedisURL         string `envconfig:"REDIS_URL"`
	SMTPPassword     string `envconfig:"SMTP_PASSWORD"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pulseguard")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "pulseguard")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "pulseguard.db")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("drug_api.enabled", true)
	v.SetDefault("drug_api.base_url", drugdb.DefaultBaseURL)
	v.SetDefault("drug_api.resolve_timeout", 5*time.Second)
	v.SetDefault("drug_api.bulk_timeout", 10*time.Second)
	v.SetDefault("drug_api.pair_timeout", 8*time.Second)
	v.SetDefault("drug_api.requests_per_second", 15.0)
	v.SetDefault("drug_api.burst", 5)
	v.SetDefault("drug_api.cache_ttl", 24*time.Hour)
	v.SetDefault("drug_api.breaker_failures", 5)
	v.SetDefault("drug_api.breaker_timeout", 30*time.Second)

	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.missed_dose_spec", "@every 1m")
	v.SetDefault("monitor.low_stock_spec", "@every 5m")
	v.SetDefault("monitor.grace_period", 15*time.Minute)
	v.SetDefault("monitor.missed_tolerance", time.Minute)
	v.SetDefault("monitor.ops_port", 9090)

	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "alerts@pulseguard.local")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)
}

// LoadConfig reads .env (if present), then config.yml from the given paths
// (default ., ./config, /app/config), then PULSEGUARD_* environment overrides.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/app/config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var s secrets
	if err := envconfig.Process(envPrefix, &s); err != nil {
		return nil, fmt.Errorf("failed to read secrets from environment: %w", err)
	}
	if s.DatabasePassword != "" {
		cfg.Database.Password = s.DatabasePassword
	}
	if s.RedisURL != "" {
		cfg.Redis.URL = s.RedisURL
	}
	if s.SMTPPassword != "" {
		cfg.SMTP.Password = s.SMTPPassword
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Monitor.GracePeriod < 0 || c.Monitor.MissedTolerance < 0 {
		return errors.New("monitor durations must not be negative")
	}
	if c.Monitor.Enabled && (c.Monitor.MissedDoseSpec == "" || c.Monitor.LowStockSpec == "") {
		return errors.New("monitor schedules are required when the monitor is enabled")
	}
	return nil
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c *DrugAPIConfig) ToClientConfig() drugdb.Config {
	return drugdb.Config{
		BaseURL:           c.BaseURL,
		ResolveTimeout:    c.ResolveTimeout,
		BulkTimeout:       c.BulkTimeout,
		PairTimeout:       c.PairTimeout,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
		CacheTTL:          c.CacheTTL,
		BreakerFailures:   c.BreakerFailures,
		BreakerTimeout:    c.BreakerTimeout,
	}
}

func (c *LogConfig) ToLoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      logger.ParseLevel(c.Level),
		JSON:       c.JSON,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

func (c *MonitorConfig) ToWorkerConfig() worker.Config {
	return worker.Config{
		MissedDoseSpec:  c.MissedDoseSpec,
		LowStockSpec:    c.LowStockSpec,
		GracePeriod:     c.GracePeriod,
		MissedTolerance: c.MissedTolerance,
	}
}

func (c *SMTPConfig) ToEmailConfig() email.SMTPConfig {
	return email.SMTPConfig{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		From:     c.From,
	}
}
