package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewRedisClient creates a pooled Redis client. A failed ping is logged and
// the client is returned anyway: unlock lookups fail open while Redis is down.
func NewRedisClient(url, password string, db int, logger zerolog.Logger) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{
			Addr:     url,
			Password: password,
			DB:       db,
		}
	}

	opts.PoolSize = 50
	opts.MinIdleConns = 5
	opts.MaxRetries = 2
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", opts.Addr).Msg("redis not reachable, unlock records will fail open")
		return client
	}

	logger.Info().Str("addr", opts.Addr).Msg("connected to redis")
	return client
}

// RedisHealthCheck performs a health check on Redis connection
func RedisHealthCheck(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	return nil
}
