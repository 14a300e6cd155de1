package redis

import (
	"context"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/selivandex/supplier-risk/pkg/logger"
)

// Locker is the part of redlock.RedLock used for refresh locks
type Locker interface {
	Lock(ctx context.Context, resource string, ttl time.Duration) (time.Duration, error)
	UnLock(ctx context.Context, resource string) error
}

// RefreshLock lets one replica at a time fetch a given indicator.
// The lock is never renewed: ttl must outlast a single remote fetch.
type RefreshLock struct {
	lockManager Locker
	rdb         redis.Cmdable
	ttl         time.Duration
}

// NewRefreshLock creates new refresh lock; rdb tells a held lock apart from an unreachable server
func NewRefreshLock(lockManager Locker, rdb redis.Cmdable, ttl time.Duration) *RefreshLock {
	return &RefreshLock{
		lockManager: lockManager,
		rdb:         rdb,
		ttl:         ttl,
	}
}

func lockName(code string) string {
	return fmt.Sprintf("%s:refresh:%s", keyPrefix, code)
}

// TryAcquire returns false without error only when another replica holds the lock.
// Any other failure is returned so the caller can fetch without waiting.
func (l *RefreshLock) TryAcquire(ctx context.Context, code string) (bool, error) {
	expiry, lockErr := l.lockManager.Lock(ctx, lockName(code), l.ttl)
	if lockErr == nil {
		if expiry <= 0 {
			return false, fmt.Errorf("failed to acquire lock: invalid expiry %v", expiry)
		}
		logger.Debug("indicator refresh lock acquired",
			zap.String("indicator", code),
			zap.Duration("expiry", expiry),
		)
		return true, nil
	}

	// redlock reports a held lock and a dead connection with the same error
	held, err := l.rdb.Exists(ctx, lockName(code)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w (lock state unknown: %v)", lockErr, err)
	}
	if held == 0 {
		return false, fmt.Errorf("failed to acquire lock: %w", lockErr)
	}

	logger.Debug("indicator refresh lock held elsewhere",
		zap.String("indicator", code),
	)
	return false, nil
}

// Release drops the lock; an already expired lock is not an error
func (l *RefreshLock) Release(ctx context.Context, code string) error {
	if err := l.lockManager.UnLock(ctx, lockName(code)); err != nil {
		logger.Warn("failed to release refresh lock (may have already expired)",
			zap.String("indicator", code),
			zap.Error(err),
		)
	}
	return nil
}
