package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ccbot/pkg/metrics"
)

// RedisStore namespaces every key with prefix + ":".
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		metrics.IncKVOperation("get", "miss")
		return "", ErrNotFound
	}
	if err != nil {
		metrics.IncKVOperation("get", "error")
		return "", fmt.Errorf("redis GET %s failed: %w", key, err)
	}
	metrics.IncKVOperation("get", "hit")
	return v, nil
}

func (s *RedisStore) Put(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		metrics.IncKVOperation("put", "error")
		return fmt.Errorf("redis SET %s failed: %w", key, err)
	}
	metrics.IncKVOperation("put", "ok")
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		metrics.IncKVOperation("delete", "error")
		return fmt.Errorf("redis DEL %s failed: %w", key, err)
	}
	metrics.IncKVOperation("delete", "ok")
	return nil
}
