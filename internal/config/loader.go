package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/logger"
)

// EnvPrefix prefixes every environment override, e.g. KEYREG_SERVER_PORT.
const EnvPrefix = "KEYREG"

// Loader reads the configuration from file, .env and environment variables.
type Loader struct {
	v      *viper.Viper
	file   string
	logger logger.Logger
}

// NewLoader creates a Loader. An empty file searches config.yaml in /etc/keyreg/ and the
// working directory.
func NewLoader(file string, log logger.Logger) *Loader {
	return &Loader{v: viper.New(), file: file, logger: log.WithComponent("ConfigLoader")}
}

// Load reads and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn(ctx, "failed to read .env file", logger.Err(err))
	}

	v := l.v
	setDefaults(v)

	if l.file != "" {
		v.SetConfigFile(l.file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/keyreg/")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		l.logger.Info(ctx, "no config file found, using defaults and environment")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return l.decode()
}

// Watch reloads the file on change and hands every valid configuration to onChange.
// Invalid edits are logged and ignored.
func (l *Loader) Watch(onChange func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		ctx := context.Background()
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			l.logger.Error(ctx, "ignoring invalid configuration change", err, logger.String("file", e.Name))
			return
		}
		l.logger.Info(ctx, "configuration reloaded", logger.String("file", e.Name))
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("log.level", string(constants.LogLevelInfo))
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("lifecycle.expiry_interval", constants.ExpiryCheckDefaultInterval)

	v.SetDefault("bulk.confirmation_ttl", constants.ConfirmationDefaultTTL)
	v.SetDefault("bulk.confirmation_retention", constants.ConfirmationRetention)
	v.SetDefault("bulk.max_parallel", constants.BulkDefaultParallelism)
	v.SetDefault("bulk.token_store", "memory")

	v.SetDefault("selection.idle_ttl", constants.SelectionIdleTTL)

	v.SetDefault("redis.addresses", []string{})
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.key_prefix", "keyreg:confirm:")

	v.SetDefault("audit.store", "memory")
	v.SetDefault("audit.dsn", "")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.lifecycle_topic", "keyreg.lifecycle")
	v.SetDefault("kafka.audit_topic", "")
	v.SetDefault("kafka.consumer_group", "keyreg-audit-ingest")
	v.SetDefault("kafka.write_timeout", "10s")
	v.SetDefault("kafka.batch_timeout", "50ms")
	v.SetDefault("kafka.required_acks", 1)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.service_name", constants.ServiceName)
	v.SetDefault("tracing.sample_rate", 1.0)

	v.SetDefault("monitoring.metrics_enabled", true)
	v.SetDefault("monitoring.pprof_enabled", false)
}
