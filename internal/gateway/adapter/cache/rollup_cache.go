package cache

import (
	"context"
	"encoding/json"
	"time"

	"docbase/internal/gateway/domain/model"
	"docbase/internal/gateway/domain/repository"
	"docbase/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

const rollupKeyPrefix = "docbase:rollup:"

// RedisRollupCache caches computed usage rollups in Redis. A miss or a cache
// failure only costs a recomputation against the operation log.
type RedisRollupCache struct {
	client *redis.Client
	logger logger.Logger
}

// NewRedisRollupCache creates a rollup cache around an established client.
func NewRedisRollupCache(client *redis.Client, log logger.Logger) *RedisRollupCache {
	return &RedisRollupCache{
		client: client,
		logger: log.WithComponent("rollup-cache"),
	}
}

// GetRollup fetches a cached rollup. The second return value reports whether
// the key was present.
func (c *RedisRollupCache) GetRollup(ctx context.Context, key string) (*model.UsageRollup, bool, error) {
	raw, err := c.client.Get(ctx, rollupKeyPrefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rollup model.UsageRollup
	if err := json.Unmarshal([]byte(raw), &rollup); err != nil {
		// A corrupt entry is treated as a miss; the caller recomputes and
		// overwrites it.
		c.logger.WithFields(map[string]interface{}{"key": key, "error": err.Error()}).
			Warn("Discarding unreadable rollup cache entry")
		return nil, false, nil
	}
	return &rollup, true, nil
}

// SetRollup stores a rollup under the key with the given TTL.
func (c *RedisRollupCache) SetRollup(ctx context.Context, key string, rollup *model.UsageRollup, ttl time.Duration) error {
	raw, err := json.Marshal(rollup)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, rollupKeyPrefix+key, raw, ttl).Err()
}

var _ repository.RollupCache = (*RedisRollupCache)(nil)
