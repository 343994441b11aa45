package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ccbot/internal/config"
	"ccbot/internal/kv"
	"ccbot/internal/logger"
)

type DatabaseConnector struct {
	Config *config.Config
	Logger logger.Logger
}

func NewDatabaseConnector(cfg *config.Config, log logger.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Config: cfg,
		Logger: log,
	}
}

// InitRedis returns nil without error when no Redis host is configured.
func (dc *DatabaseConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	if dc.Config.Database.Redis.Host == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", dc.Config.Database.Redis.Host, dc.Config.Database.Redis.Port),
		Password: dc.Config.Database.Redis.Password,
		DB:       dc.Config.Database.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	dc.Logger.Info("Redis connected successfully")
	return rdb, nil
}

// NewStore picks the key-value store backing the shared AI configuration:
// Redis behind a circuit breaker when a client is given, process memory
// otherwise.
func (dc *DatabaseConnector) NewStore(rdb *redis.Client) kv.Store {
	if rdb == nil {
		dc.Logger.Warn("Redis is not configured, AI configuration lives in memory only")
		return kv.NewMemoryStore()
	}
	store := kv.NewRedisStore(rdb, dc.Config.Database.Redis.KeyPrefix)
	return kv.WithBreaker(store, dc.Config.CircuitBreaker)
}

func (dc *DatabaseConnector) ShutdownDatabases(rdb *redis.Client) []error {
	var errs []error

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	return errs
}
