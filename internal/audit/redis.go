// internal/audit/redis.go
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lastResponsePrefix = "beacon-network:last:"

// RedisStore caches the last successful response per URL.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Name() string { return "redis" }

// Save only keeps 200 responses with a body; everything else is not useful for recovery.
func (s *RedisStore) Save(ctx context.Context, e *Entry) error {
	if e.Code != 200 || e.Response == "" {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	if err := s.client.Set(ctx, lastResponsePrefix+e.URL, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) LastResponse(ctx context.Context, url string) (*Entry, error) {
	data, err := s.client.Get(ctx, lastResponsePrefix+url).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal audit entry: %w", err)
	}
	return &e, nil
}
