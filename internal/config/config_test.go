package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/keyreg/pkg/logger"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")

	cfg, err := NewLoader(path, logger.NewNoopLogger()).Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Bulk.ConfirmationTTL)
	assert.Equal(t, 30*time.Minute, cfg.Bulk.ConfirmationRetention)
	assert.Equal(t, 1, cfg.Bulk.MaxParallel)
	assert.Equal(t, "memory", cfg.Bulk.TokenStore)
	assert.Equal(t, 30*time.Minute, cfg.Selection.IdleTTL)
	assert.Equal(t, "memory", cfg.Audit.Store)
	assert.Equal(t, time.Minute, cfg.Lifecycle.ExpiryInterval)
	assert.Equal(t, "keyreg", cfg.Tracing.ServiceName)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}

func TestLoader_FileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
bulk:
  confirmation_ttl: 2m
  max_parallel: 4
audit:
  store: sqlite
  dsn: "file::memory:"
`)
	t.Setenv("KEYREG_SERVER_PORT", "9443")
	t.Setenv("KEYREG_LOG_LEVEL", "debug")

	cfg, err := NewLoader(path, logger.NewNoopLogger()).Load()
	require.NoError(t, err)

	assert.Equal(t, 9443, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2*time.Minute, cfg.Bulk.ConfirmationTTL)
	assert.Equal(t, 4, cfg.Bulk.MaxParallel)
	assert.Equal(t, "sqlite", cfg.Audit.Store)
}

func TestLoader_RejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"zero parallelism":      "bulk:\n  max_parallel: 0\n",
		"redis without address": "bulk:\n  token_store: redis\n",
		"unknown audit store":   "audit:\n  store: mongo\n",
		"retention below ttl":   "bulk:\n  confirmation_ttl: 10m\n  confirmation_retention: 1m\n",
		"kafka without brokers": "kafka:\n  enabled: true\n",
		"zero selection ttl":    "selection:\n  idle_ttl: 0s\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader(writeConfig(t, body), logger.NewNoopLogger()).Load()
			assert.Error(t, err)
		})
	}
}
