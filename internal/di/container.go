package di

import (
	"context"
	"fmt"
	"sync"

	"docbase/internal/gateway"
	"docbase/internal/gateway/adapter/persistence/mongodb"
	"docbase/internal/gateway/adapter/persistence/postgres"
	"docbase/internal/gateway/config"
	"docbase/internal/shared/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container owns the external connections and the gateway module built on
// top of them, with lifecycle management for startup and shutdown.
type Container struct {
	mu sync.Mutex

	Config        *config.Config
	Logger        logger.Logger
	MongoClient   *mongo.Client
	PostgresPool  *pgxpool.Pool
	RedisClient   *redis.Client
	GatewayModule *gateway.Module
}

// NewContainer creates an empty container.
func NewContainer(log logger.Logger) *Container {
	return &Container{Logger: log}
}

// Initialize connects to every backing store and wires the gateway module.
// The Redis connection is optional: a failed ping only disables the rollup
// cache.
func (c *Container) Initialize(ctx context.Context, cfg *config.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c.Config = cfg

	mongoClient, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.MaxPoolSize, cfg.Mongo.MinPoolSize, cfg.Mongo.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to the physical store: %w", err)
	}
	c.MongoClient = mongoClient

	pool, err := postgres.NewPool(ctx, cfg.Postgres.Host, cfg.Postgres.Port,
		cfg.Postgres.Database, cfg.Postgres.User, cfg.Postgres.Password,
		cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
	if err != nil {
		return fmt.Errorf("failed to connect to the catalog store: %w", err)
	}
	c.PostgresPool = pool

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		c.Logger.WithFields(map[string]interface{}{
			"addr":  cfg.Redis.Addr,
			"error": err.Error(),
		}).Warn("Redis unreachable, rollup caching disabled")
		_ = redisClient.Close()
		redisClient = nil
	}
	c.RedisClient = redisClient

	mod, err := gateway.NewModule(cfg, mongoClient, pool, redisClient, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create gateway module: %w", err)
	}
	if err := mod.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure catalog schema: %w", err)
	}
	c.GatewayModule = mod
	return nil
}

// HealthCheck pings every backing store the container holds.
func (c *Container) HealthCheck(ctx context.Context) error {
	if c.MongoClient != nil {
		if err := c.MongoClient.Ping(ctx, nil); err != nil {
			return fmt.Errorf("physical store unhealthy: %w", err)
		}
	}
	if c.PostgresPool != nil {
		if err := c.PostgresPool.Ping(ctx); err != nil {
			return fmt.Errorf("catalog store unhealthy: %w", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("rollup cache unhealthy: %w", err)
		}
	}
	return nil
}

// Close releases every connection. Safe to call on a partially initialized
// container.
func (c *Container) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.RedisClient = nil
	}
	if c.PostgresPool != nil {
		c.PostgresPool.Close()
		c.PostgresPool = nil
	}
	if c.MongoClient != nil {
		if err := c.MongoClient.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		c.MongoClient = nil
	}
	return firstErr
}
