// Package config loads platform configuration from (in priority order)
// a config file, environment variables, and defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	River    RiverConfig    `mapstructure:"river"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Security SecurityConfig `mapstructure:"security"`
}

// SecurityConfig holds the JWTProvider's token-verification
// settings. Minting a token is out of scope — this only verifies one
// already issued upstream.
type SecurityConfig struct {
	JWTVerificationKeys []string      `mapstructure:"jwt_verification_keys"`
	JWTIssuer           string        `mapstructure:"jwt_issuer"`
	JWTLeeway           time.Duration `mapstructure:"jwt_leeway"`
}

// DatabaseConfig contains PostgreSQL connection settings. A single pool
// backs both the StoreHandle adapter and the River durable executor.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// DSN returns the PostgreSQL connection string. Priority: URL > fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// WorkerConfig sizes the in-process ants pools backing the default
// AsyncExecutor (rings 7-9).
type WorkerConfig struct {
	AsyncPoolSize   int           `mapstructure:"async_pool_size"`
	ExpiryDuration  time.Duration `mapstructure:"expiry_duration"`
}

// RiverConfig sizes the durable AsyncExecutor's River queue.
type RiverConfig struct {
	Queue                       string        `mapstructure:"queue"`
	MaxWorkers                  int           `mapstructure:"max_workers"`
	CompletedJobRetentionPeriod time.Duration `mapstructure:"completed_job_retention_period"`
}

// PipelineConfig tunes ring-execution behavior that has no better home:
// the QuerySafety cap and whether a global per-invocation deadline is
// enforced (spec §5). ObserverTimeout is loaded but not applied to any
// observer; observers without their own timeout use
// observer.DefaultTimeout.
type PipelineConfig struct {
	ObserverTimeout  time.Duration `mapstructure:"observer_timeout"`
	DefaultSelectLimit int         `mapstructure:"default_select_limit"`
	MaxSelectLimit   int           `mapstructure:"max_select_limit"`
	EnforceGlobalDeadline bool     `mapstructure:"enforce_global_deadline"`
	GlobalDeadline   time.Duration `mapstructure:"global_deadline"`
}

// Load reads configuration from file, environment, and defaults.
// No prefix: DATABASE_URL, LOG_LEVEL, WORKER_ASYNC_POOL_SIZE, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ringstore")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Pipeline.MaxSelectLimit > 0 && c.Pipeline.DefaultSelectLimit > c.Pipeline.MaxSelectLimit {
		return fmt.Errorf("pipeline.default_select_limit must not exceed pipeline.max_select_limit")
	}
	if c.Worker.AsyncPoolSize <= 0 {
		return fmt.Errorf("worker.async_pool_size must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "ringstore")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "ringstore")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "30m")
	v.SetDefault("database.max_conn_idle_time", "5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("worker.async_pool_size", 100)
	v.SetDefault("worker.expiry_duration", "10s")

	v.SetDefault("river.queue", "pipeline_async")
	v.SetDefault("river.max_workers", 25)
	v.SetDefault("river.completed_job_retention_period", "72h")

	v.SetDefault("pipeline.observer_timeout", "5s")
	v.SetDefault("pipeline.default_select_limit", 100)
	v.SetDefault("pipeline.max_select_limit", 1000)
	v.SetDefault("pipeline.enforce_global_deadline", false)
	v.SetDefault("pipeline.global_deadline", "30s")

	v.SetDefault("security.jwt_verification_keys", []string{})
	v.SetDefault("security.jwt_issuer", "")
	v.SetDefault("security.jwt_leeway", "30s")
}
