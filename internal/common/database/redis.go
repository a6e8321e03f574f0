// internal/common/database/redis.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"beacon-network/internal/common/config"

	"github.com/redis/go-redis/v9"
)

const (
	redisClientName      = "beacon-network"
	defaultRedisPoolSize = 20
)

// RedisClient backs the last-known-good response cache.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis connects the response cache. Lookups run on the metadata refresh
// path and use short timeouts.
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is empty")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultRedisPoolSize
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Address,
		Password:        cfg.Password,
		DB:              cfg.DB,
		ClientName:      redisClientName,
		DialTimeout:     3 * time.Second,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		PoolSize:        poolSize,
		MinIdleConns:    cfg.MinIdle,
		ConnMaxIdleTime: 5 * time.Minute,
	})

	return &RedisClient{Client: rdb}, nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.Client.Options().Addr, err)
	}
	return nil
}

// PoolFields describes the pool for startup and shutdown logs.
func (c *RedisClient) PoolFields() map[string]interface{} {
	s := c.Client.PoolStats()
	return map[string]interface{}{
		"store":    "redis",
		"address":  c.Client.Options().Addr,
		"poolSize": c.Client.Options().PoolSize,
		"total":    s.TotalConns,
		"idle":     s.IdleConns,
		"hits":     s.Hits,
		"misses":   s.Misses,
		"timeouts": s.Timeouts,
	}
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
