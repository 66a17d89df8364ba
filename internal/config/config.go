package config

import (
	"fmt"
	"time"
)

// Config holds the application's configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Lifecycle  LifecycleConfig  `mapstructure:"lifecycle"`
	Bulk       BulkConfig       `mapstructure:"bulk"`
	Selection  SelectionConfig  `mapstructure:"selection"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type LifecycleConfig struct {
	// ExpiryInterval is how often the scheduler runs the expiration sweep. Zero disables it.
	ExpiryInterval time.Duration `mapstructure:"expiry_interval"`
}

type BulkConfig struct {
	ConfirmationTTL       time.Duration `mapstructure:"confirmation_ttl"`
	ConfirmationRetention time.Duration `mapstructure:"confirmation_retention"`
	MaxParallel           int           `mapstructure:"max_parallel"`
	// TokenStore is "memory" or "redis".
	TokenStore string `mapstructure:"token_store"`
}

type SelectionConfig struct {
	// IdleTTL is how long an untouched session selection is kept.
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
}

type RedisConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Password     string   `mapstructure:"password"`
	DB           int      `mapstructure:"db"`
	PoolSize     int      `mapstructure:"pool_size"`
	MinIdleConns int      `mapstructure:"min_idle_conns"`
	KeyPrefix    string   `mapstructure:"key_prefix"`
}

type AuditConfig struct {
	// Store is "memory", "sqlite" or "postgres".
	Store string `mapstructure:"store"`
	DSN   string `mapstructure:"dsn"`
}

type KafkaConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Brokers        []string      `mapstructure:"brokers"`
	LifecycleTopic string        `mapstructure:"lifecycle_topic"`
	AuditTopic     string        `mapstructure:"audit_topic"`
	ConsumerGroup  string        `mapstructure:"consumer_group"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	BatchTimeout   time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks   int           `mapstructure:"required_acks"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SampleRate     float64 `mapstructure:"sample_rate"`
}

type MonitoringConfig struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
	PprofEnabled   bool `mapstructure:"pprof_enabled"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Bulk.ConfirmationTTL <= 0 {
		return fmt.Errorf("bulk.confirmation_ttl must be positive")
	}
	if c.Bulk.ConfirmationRetention < c.Bulk.ConfirmationTTL {
		return fmt.Errorf("bulk.confirmation_retention must not be shorter than bulk.confirmation_ttl")
	}
	if c.Bulk.MaxParallel < 1 {
		return fmt.Errorf("bulk.max_parallel must be at least 1")
	}
	if c.Selection.IdleTTL <= 0 {
		return fmt.Errorf("selection.idle_ttl must be positive")
	}
	switch c.Bulk.TokenStore {
	case "memory":
	case "redis":
		if len(c.Redis.Addresses) == 0 {
			return fmt.Errorf("redis.addresses required for the redis token store")
		}
	default:
		return fmt.Errorf("unknown bulk.token_store %q", c.Bulk.TokenStore)
	}
	switch c.Audit.Store {
	case "memory":
	case "sqlite", "postgres":
		if c.Audit.DSN == "" {
			return fmt.Errorf("audit.dsn required for the %s audit store", c.Audit.Store)
		}
	default:
		return fmt.Errorf("unknown audit.store %q", c.Audit.Store)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if c.Lifecycle.ExpiryInterval < 0 {
		return fmt.Errorf("lifecycle.expiry_interval must not be negative")
	}
	return nil
}
