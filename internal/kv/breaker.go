package kv

import (
	"context"
	"errors"

	"ccbot/internal/config"
	"ccbot/pkg/circuitbreaker"
)

// BreakerStore guards a Store with a circuit breaker. A missing key is not a
// failure.
type BreakerStore struct {
	store Store
	cb    *circuitbreaker.Wrapper
}

// WithBreaker wraps store when the breaker is enabled and returns store
// unchanged otherwise.
func WithBreaker(store Store, cfg config.CircuitBreakerConfig) Store {
	if !cfg.Enabled {
		return store
	}
	return &BreakerStore{
		store: store,
		cb:    circuitbreaker.NewWrapper(circuitbreaker.FromSettings("kv", cfg)),
	}
}

func (s *BreakerStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	var notFound bool
	err := s.cb.Call(ctx, func(ctx context.Context) error {
		v, err := s.store.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			notFound = true
			return nil
		}
		value = v
		return err
	})
	if err != nil {
		return "", err
	}
	if notFound {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *BreakerStore) Put(ctx context.Context, key, value string) error {
	return s.cb.Call(ctx, func(ctx context.Context) error {
		return s.store.Put(ctx, key, value)
	})
}

func (s *BreakerStore) Delete(ctx context.Context, key string) error {
	return s.cb.Call(ctx, func(ctx context.Context) error {
		return s.store.Delete(ctx, key)
	})
}
