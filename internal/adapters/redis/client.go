package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/amyangfei/redlock-go/v3/redlock"
	redis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/selivandex/supplier-risk/internal/adapters/config"
	"github.com/selivandex/supplier-risk/pkg/logger"
)

const keyPrefix = "supplier-risk"

// Client wraps RedLock for refresh locks and a standard Redis client for shared snapshots
type Client struct {
	lockManager *redlock.RedLock
	cache       *redis.Client
	addr        string
}

// New connects to Redis and verifies the connection
func New(cfg *config.RedisConfig) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// single instance; a cluster would list every master here
	lockManager, err := redlock.NewRedLock(ctx, []string{"tcp://" + cfg.Addr()})
	if err != nil {
		return nil, fmt.Errorf("failed to create redlock manager: %w", err)
	}

	cacheClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	if err := cacheClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis client initialized",
		zap.String("address", cfg.Addr()),
		zap.Int("db", cfg.DB),
	)

	return &Client{
		lockManager: lockManager,
		cache:       cacheClient,
		addr:        cfg.Addr(),
	}, nil
}

// SnapshotStore returns the shared indicator table store
func (c *Client) SnapshotStore() *SnapshotStore {
	return NewSnapshotStore(c.cache)
}

// RefreshLock returns a redlock-backed refresh lock held for at most ttl
func (c *Client) RefreshLock(ttl time.Duration) *RefreshLock {
	return NewRefreshLock(c.lockManager, c.cache, ttl)
}

// Close closes redis connections
func (c *Client) Close() error {
	if c.cache != nil {
		logger.Info("closing redis client")
		if err := c.cache.Close(); err != nil {
			return fmt.Errorf("failed to close redis: %w", err)
		}
	}
	return nil
}

// Health checks redis health
func (c *Client) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.cache.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
