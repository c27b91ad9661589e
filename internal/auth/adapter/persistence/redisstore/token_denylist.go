package redisstore

import (
	"context"
	"errors"
	"time"

	"devmatch/internal/auth/domain/repository"
	"devmatch/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "devmatch:revoked:"

// RedisTokenDenylist stores revoked token IDs until the token would have expired anyway.
type RedisTokenDenylist struct {
	client redis.UniversalClient
	logger logger.Logger
	now    func() time.Time
}

var _ repository.TokenDenylist = (*RedisTokenDenylist)(nil)

// NewRedisTokenDenylist creates a Redis-backed denylist
func NewRedisTokenDenylist(client redis.UniversalClient, log logger.Logger) *RedisTokenDenylist {
	if log == nil {
		log = &logger.NoopLogger{}
	}
	return &RedisTokenDenylist{
		client: client,
		logger: log.WithComponent("token_denylist"),
		now:    time.Now,
	}
}

// Revoke marks tokenID as revoked. Tokens that already expired are not stored.
func (d *RedisTokenDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return errors.New("token ID cannot be empty")
	}

	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}

	if err := d.client.Set(ctx, keyPrefix+tokenID, 1, ttl).Err(); err != nil {
		d.logger.Error("Failed to revoke token", zap.String("tokenID", tokenID), zap.Error(err))
		return err
	}

	d.logger.Debug("Token revoked", zap.String("tokenID", tokenID), zap.Duration("ttl", ttl))
	return nil
}

// IsRevoked reports whether tokenID was revoked and has not yet expired.
func (d *RedisTokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := d.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Ping checks connectivity to Redis.
func (d *RedisTokenDenylist) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}
