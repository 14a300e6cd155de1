package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"

	"github.com/selivandex/supplier-risk/internal/indicators"
)

// SnapshotStore keeps the latest indicator tables in Redis so replicas share one fetch
type SnapshotStore struct {
	rdb redis.Cmdable
}

// NewSnapshotStore creates a store on top of any Redis command client
func NewSnapshotStore(rdb redis.Cmdable) *SnapshotStore {
	return &SnapshotStore{rdb: rdb}
}

func snapshotKey(code string) string {
	return fmt.Sprintf("%s:indicator:%s", keyPrefix, code)
}

// Load returns the stored snapshot for code; ok is false when nothing is stored
func (s *SnapshotStore) Load(ctx context.Context, code string) (indicators.Snapshot, bool, error) {
	raw, err := s.rdb.Get(ctx, snapshotKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return indicators.Snapshot{}, false, nil
	}
	if err != nil {
		return indicators.Snapshot{}, false, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap indicators.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return indicators.Snapshot{}, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return snap, true, nil
}

// Save stores snap for code, expiring together with the cache TTL
func (s *SnapshotStore) Save(ctx context.Context, code string, snap indicators.Snapshot, ttl time.Duration) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := s.rdb.Set(ctx, snapshotKey(code), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	return nil
}
