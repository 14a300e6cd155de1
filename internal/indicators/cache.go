package indicators

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/selivandex/supplier-risk/internal/metrics"
	"github.com/selivandex/supplier-risk/pkg/logger"
	"github.com/selivandex/supplier-risk/pkg/models"
)

const (
	// DefaultTTL is how long a fetched table is reused
	DefaultTTL = 24 * time.Hour

	defaultLockWait = 5 * time.Second
	defaultLockPoll = 250 * time.Millisecond
)

// ErrEmptyTable is reported when the source answered but no country had a value
var ErrEmptyTable = errors.New("indicator table is empty")

// Fetcher retrieves the latest cross-country observations for an indicator code
type Fetcher interface {
	FetchLatest(ctx context.Context, code string) ([]models.IndicatorObservation, error)
}

// SnapshotStore shares fresh tables between processes
type SnapshotStore interface {
	Load(ctx context.Context, code string) (Snapshot, bool, error)
	Save(ctx context.Context, code string, snap Snapshot, ttl time.Duration) error
}

// RefreshLock serializes remote refreshes of one indicator across processes
type RefreshLock interface {
	TryAcquire(ctx context.Context, code string) (bool, error)
	Release(ctx context.Context, code string) error
}

// Snapshot is the table a lookup resolved to. Err is set when the remote source
// could not be used; Table is then empty and callers fall back to UnknownRisk.
type Snapshot struct {
	FetchedAt time.Time               `json:"fetched_at"`
	Table     models.CountryRiskTable `json:"table"`
	Err       error                   `json:"-"`
}

// Cache holds the normalized risk table of one indicator for a TTL window.
type Cache struct {
	fetcher  Fetcher
	store    SnapshotStore
	lock     RefreshLock
	clock    func() time.Time
	group    singleflight.Group
	current  *Snapshot
	code     string
	field    string
	ttl      time.Duration
	lockWait time.Duration
	lockPoll time.Duration
	mu       sync.RWMutex
}

// Option configures a Cache
type Option func(*Cache)

// WithTTL overrides DefaultTTL
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock sets the clock used by Lookup
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithStore shares snapshots through store
func WithStore(store SnapshotStore) Option {
	return func(c *Cache) { c.store = store }
}

// WithLock takes lock before fetching. A process that loses the lock polls the
// store for up to wait before fetching on its own.
func WithLock(lock RefreshLock, wait time.Duration) Option {
	return func(c *Cache) {
		c.lock = lock
		if wait > 0 {
			c.lockWait = wait
		}
	}
}

// NewCache creates a cache for indicator code, reported under field (e.g. RiskGeo)
func NewCache(fetcher Fetcher, code, field string, opts ...Option) *Cache {
	c := &Cache{
		fetcher:  fetcher,
		code:     code,
		field:    field,
		ttl:      DefaultTTL,
		clock:    time.Now,
		lockWait: defaultLockWait,
		lockPoll: defaultLockPoll,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Code() string {
	return c.code
}

func (c *Cache) Field() string {
	return c.field
}

// Lookup is GetOrRefresh at the cache's clock
func (c *Cache) Lookup(ctx context.Context) Snapshot {
	return c.GetOrRefresh(ctx, c.clock())
}

// GetOrRefresh returns the cached table while it is younger than the TTL and
// fetches a replacement otherwise. It never fails: problems are reported in Snapshot.Err.
func (c *Cache) GetOrRefresh(ctx context.Context, now time.Time) Snapshot {
	if snap, ok := c.freshSnapshot(now); ok {
		metrics.IndicatorCacheHits.WithLabelValues(c.code, "memory").Inc()
		return snap
	}

	v, _, _ := c.group.Do(c.code, func() (interface{}, error) {
		return c.refresh(ctx, now), nil
	})
	return v.(Snapshot)
}

func (c *Cache) freshSnapshot(now time.Time) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil || !c.isFresh(c.current.FetchedAt, now) {
		return Snapshot{}, false
	}
	return *c.current, true
}

func (c *Cache) isFresh(fetchedAt, now time.Time) bool {
	return now.Sub(fetchedAt) < c.ttl
}

func (c *Cache) refresh(ctx context.Context, now time.Time) Snapshot {
	// another caller may have installed a table while we waited on the group
	if snap, ok := c.freshSnapshot(now); ok {
		return snap
	}

	if snap, ok := c.loadShared(ctx, now); ok {
		return snap
	}

	if c.lock != nil {
		acquired, err := c.lock.TryAcquire(ctx, c.code)
		switch {
		case err != nil:
			logger.Warn("indicator refresh lock unavailable, fetching without it",
				zap.String("indicator", c.code),
				zap.Error(err),
			)
		case acquired:
			defer func() {
				if err := c.lock.Release(context.WithoutCancel(ctx), c.code); err != nil {
					logger.Warn("failed to release indicator refresh lock",
						zap.String("indicator", c.code),
						zap.Error(err),
					)
				}
			}()
		default:
			if snap, ok := c.waitForPeer(ctx, now); ok {
				return snap
			}
		}
	}

	return c.fetch(ctx, now)
}

func (c *Cache) fetch(ctx context.Context, now time.Time) Snapshot {
	observations, err := c.fetcher.FetchLatest(ctx, c.code)
	if err != nil {
		return c.fail(now, err)
	}

	table := BuildTable(observations)
	if len(table) == 0 {
		return c.fail(now, ErrEmptyTable)
	}

	snap := Snapshot{FetchedAt: now, Table: table}
	c.install(&snap)

	metrics.IndicatorFetches.WithLabelValues(c.code, "ok").Inc()
	logger.Info("indicator table refreshed",
		zap.String("indicator", c.code),
		zap.String("field", c.field),
		zap.Int("countries", len(table)),
	)

	if c.store != nil {
		if err := c.store.Save(ctx, c.code, snap, c.ttl); err != nil {
			logger.Warn("failed to share indicator table",
				zap.String("indicator", c.code),
				zap.Error(err),
			)
		}
	}

	return snap
}

// fail replaces whatever was cached with an empty table that carries the error.
// It is served, advisory included, until the TTL expires and is never shared.
func (c *Cache) fail(now time.Time, cause error) Snapshot {
	metrics.IndicatorFetches.WithLabelValues(c.code, "error").Inc()
	err := fmt.Errorf("%s indicator %s unavailable, countries default to %.0f: %w",
		c.field, c.code, models.UnknownRisk, cause)
	logger.Warn("indicator fetch failed",
		zap.String("indicator", c.code),
		zap.String("field", c.field),
		zap.Error(cause),
	)

	snap := Snapshot{FetchedAt: now, Table: models.CountryRiskTable{}, Err: err}
	c.install(&snap)
	return snap
}

func (c *Cache) install(snap *Snapshot) {
	c.mu.Lock()
	c.current = snap
	c.mu.Unlock()

	size := 0
	if snap != nil {
		size = len(snap.Table)
	}
	metrics.IndicatorCountries.WithLabelValues(c.code).Set(float64(size))
}

func (c *Cache) loadShared(ctx context.Context, now time.Time) (Snapshot, bool) {
	if c.store == nil {
		return Snapshot{}, false
	}

	snap, ok, err := c.store.Load(ctx, c.code)
	if err != nil {
		logger.Warn("failed to load shared indicator table",
			zap.String("indicator", c.code),
			zap.Error(err),
		)
		return Snapshot{}, false
	}
	if !ok || len(snap.Table) == 0 || !c.isFresh(snap.FetchedAt, now) {
		return Snapshot{}, false
	}

	snap.Err = nil
	c.install(&snap)
	metrics.IndicatorCacheHits.WithLabelValues(c.code, "shared").Inc()

	return snap, true
}

func (c *Cache) waitForPeer(ctx context.Context, now time.Time) (Snapshot, bool) {
	deadline := time.NewTimer(c.lockWait)
	defer deadline.Stop()
	ticker := time.NewTicker(c.lockPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Snapshot{}, false
		case <-deadline.C:
			logger.Warn("peer did not publish indicator table in time, fetching",
				zap.String("indicator", c.code),
				zap.Duration("waited", c.lockWait),
			)
			return Snapshot{}, false
		case <-ticker.C:
			if snap, ok := c.loadShared(ctx, now); ok {
				return snap, true
			}
		}
	}
}
