// Package kv is the key-value storage used for runtime bot state such as the
// AI provider configuration.
package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("kv: key not found")

// Store is a string key-value namespace. Get returns ErrNotFound for missing
// keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
