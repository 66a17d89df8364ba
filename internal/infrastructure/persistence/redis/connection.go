// Package redis provides the Redis client and the Redis-backed confirmation store.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/turtacn/keyreg/internal/config"
	"github.com/turtacn/keyreg/pkg/logger"
)

// NewClient creates a client for cfg.Addresses and verifies connectivity. A single
// address yields a standalone client, several yield a cluster client.
func NewClient(ctx context.Context, cfg config.RedisConfig, log logger.Logger) (redis.UniversalClient, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("redis addresses not configured")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addresses,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	// Verify connection with ping
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Error(ctx, "Redis ping failed", err, logger.Strings("addresses", cfg.Addresses))
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	log.Info(ctx, "Redis connection established successfully",
		logger.Strings("addresses", cfg.Addresses),
		logger.Int("pool_size", cfg.PoolSize),
	)
	return client, nil
}
