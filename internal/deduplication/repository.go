package deduplication

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ccbot/pkg/circuitbreaker"
)

// Repository claims keys for a limited time.
type Repository interface {
	// SetNX stores key unless it already exists and reports whether it did.
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type RedisRepository struct {
	client *redis.Client
}

func NewRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	success, err := r.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}
	return success, nil
}

// MemoryRepository keeps claims in process memory. Expired keys are dropped
// lazily on the next claim.
type MemoryRepository struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{keys: make(map[string]time.Time), now: time.Now}
}

func (r *MemoryRepository) SetNX(_ context.Context, key string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for k, expires := range r.keys {
		if !now.Before(expires) {
			delete(r.keys, k)
		}
	}
	if _, ok := r.keys[key]; ok {
		return false, nil
	}
	r.keys[key] = now.Add(ttl)
	return true, nil
}

type CircuitBreakerRepository struct {
	repo Repository
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerRepository(repo Repository, cb *circuitbreaker.Wrapper) *CircuitBreakerRepository {
	return &CircuitBreakerRepository{repo: repo, cb: cb}
}

func (r *CircuitBreakerRepository) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	var success bool
	err := r.cb.Call(ctx, func(ctx context.Context) error {
		var err error
		success, err = r.repo.SetNX(ctx, key, ttl)
		return err
	})
	if err != nil {
		return false, err
	}
	return success, nil
}
