package cache

import (
	"context"
	"fmt"

	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore returns a Redis store when Redis is enabled and reachable.
// With allowFallback an unreachable Redis degrades to an in-memory store.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, allowFallback bool, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if !cfg.Enabled {
		logger.Info("redis disabled, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(0), nil
	}

	store, err := NewRedisIdempotencyStore(ctx, RedisConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err == nil {
		logger.Info("using redis idempotency store", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
		return store, nil
	}
	if !allowFallback {
		return nil, fmt.Errorf("redis required for idempotency: %w", err)
	}

	logger.Warn("redis unavailable, falling back to in-memory idempotency store", zap.Error(err))
	return NewInMemoryIdempotencyStore(0), nil
}
