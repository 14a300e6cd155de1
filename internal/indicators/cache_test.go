package indicators

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/selivandex/supplier-risk/pkg/models"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int32
	obs   []models.IndicatorObservation
	err   error
	delay time.Duration
}

func (f *fakeFetcher) FetchLatest(ctx context.Context, code string) ([]models.IndicatorObservation, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.obs, f.err
}

func (f *fakeFetcher) set(obs []models.IndicatorObservation, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs, f.err = obs, err
}

func (f *fakeFetcher) count() int {
	return int(atomic.LoadInt32(&f.calls))
}

func usaObservations(value float64) []models.IndicatorObservation {
	return []models.IndicatorObservation{
		{Country: "USA", Year: 2023, Value: ptr(value)},
		{Country: "DEU", Year: 2023, Value: ptr(0)},
	}
}

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCache_ReusesWithinTTL(t *testing.T) {
	fetcher := &fakeFetcher{obs: usaObservations(1.5)}
	cache := NewCache(fetcher, "PV.EST", "RiskGeo")

	first := cache.GetOrRefresh(context.Background(), t0)
	second := cache.GetOrRefresh(context.Background(), t0.Add(23*time.Hour))

	if fetcher.count() != 1 {
		t.Fatalf("Expected 1 remote fetch, got %d", fetcher.count())
	}
	if first.Err != nil || second.Err != nil {
		t.Fatalf("Unexpected errors: %v / %v", first.Err, second.Err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical snapshots, got %+v and %+v", first, second)
	}
}

func TestCache_RefetchesAfterTTL(t *testing.T) {
	fetcher := &fakeFetcher{obs: usaObservations(1.5)}
	cache := NewCache(fetcher, "PV.EST", "RiskGeo", WithTTL(time.Hour))

	cache.GetOrRefresh(context.Background(), t0)

	// the new table no longer carries DEU; nothing stale may survive
	fetcher.set([]models.IndicatorObservation{{Country: "USA", Year: 2024, Value: ptr(2.5)}}, nil)
	snap := cache.GetOrRefresh(context.Background(), t0.Add(time.Hour))

	if fetcher.count() != 2 {
		t.Fatalf("Expected 2 remote fetches, got %d", fetcher.count())
	}
	if snap.Table["USA"] != 0 {
		t.Errorf("Expected refreshed USA risk 0, got %.2f", snap.Table["USA"])
	}
	if _, ok := snap.Table["DEU"]; ok {
		t.Error("Refresh must replace the table, not merge into it")
	}
}

func TestCache_FailureYieldsEmptyTable(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("API error 500: boom")}
	cache := NewCache(fetcher, "RQ.EST", "RiskReg")

	snap := cache.GetOrRefresh(context.Background(), t0)

	if snap.Err == nil {
		t.Fatal("Expected advisory error")
	}
	if snap.Table == nil || len(snap.Table) != 0 {
		t.Errorf("Expected empty non-nil table, got %v", snap.Table)
	}
	if risk, ok := snap.Table.Risk("USA"); ok || risk != models.UnknownRisk {
		t.Errorf("Expected unknown risk fallback, got %.1f (found=%v)", risk, ok)
	}
}

func TestCache_FailureIsReusedWithinTTL(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	store := newMemoryStore()
	cache := NewCache(fetcher, "RQ.EST", "RiskReg", WithTTL(time.Hour), WithStore(store))

	for i := 0; i < 5; i++ {
		snap := cache.GetOrRefresh(context.Background(), t0.Add(time.Duration(i)*time.Minute))
		if snap.Err == nil || len(snap.Table) != 0 {
			t.Fatalf("Lookup %d: expected cached failure, got %v (err=%v)", i, snap.Table, snap.Err)
		}
	}
	if fetcher.count() != 1 {
		t.Errorf("Expected 1 remote fetch within the TTL after a failure, got %d", fetcher.count())
	}
	if _, ok := store.snaps["RQ.EST"]; ok {
		t.Error("Failed snapshots must not be shared")
	}

	fetcher.set(usaObservations(1.5), nil)
	snap := cache.GetOrRefresh(context.Background(), t0.Add(time.Hour))
	if snap.Err != nil || fetcher.count() != 2 {
		t.Errorf("Expected refetch once the failure expires, err=%v fetches=%d", snap.Err, fetcher.count())
	}
}

func TestCache_FailureAfterExpiryDropsStaleTable(t *testing.T) {
	fetcher := &fakeFetcher{obs: usaObservations(1.5)}
	cache := NewCache(fetcher, "PV.EST", "RiskGeo", WithTTL(time.Hour))
	cache.GetOrRefresh(context.Background(), t0)

	fetcher.set(nil, errors.New("connection refused"))
	snap := cache.GetOrRefresh(context.Background(), t0.Add(2*time.Hour))

	if snap.Err == nil || len(snap.Table) != 0 {
		t.Errorf("Expected empty table with error, got %v (err=%v)", snap.Table, snap.Err)
	}
}

func TestCache_EmptyResponseIsFailure(t *testing.T) {
	fetcher := &fakeFetcher{obs: []models.IndicatorObservation{{Country: "USA", Year: 2023}}}
	cache := NewCache(fetcher, "PV.EST", "RiskGeo")

	snap := cache.GetOrRefresh(context.Background(), t0)
	if !errors.Is(snap.Err, ErrEmptyTable) {
		t.Errorf("Expected ErrEmptyTable, got %v", snap.Err)
	}
}

func TestCache_LookupUsesClock(t *testing.T) {
	now := t0
	fetcher := &fakeFetcher{obs: usaObservations(1.5)}
	cache := NewCache(fetcher, "PV.EST", "RiskGeo", WithClock(func() time.Time { return now }))

	cache.Lookup(context.Background())
	now = now.Add(12 * time.Hour)
	cache.Lookup(context.Background())
	if fetcher.count() != 1 {
		t.Fatalf("Expected 1 fetch inside TTL, got %d", fetcher.count())
	}

	now = now.Add(12 * time.Hour)
	cache.Lookup(context.Background())
	if fetcher.count() != 2 {
		t.Errorf("Expected refetch at TTL boundary, got %d fetches", fetcher.count())
	}
}

func TestCache_ConcurrentRefreshIsSingleFlight(t *testing.T) {
	fetcher := &fakeFetcher{obs: usaObservations(1.5), delay: 50 * time.Millisecond}
	cache := NewCache(fetcher, "PV.EST", "RiskGeo")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if snap := cache.GetOrRefresh(context.Background(), t0); len(snap.Table) != 2 {
				t.Errorf("Expected 2 countries, got %d", len(snap.Table))
			}
		}()
	}
	wg.Wait()

	if fetcher.count() != 1 {
		t.Errorf("Expected a single remote fetch, got %d", fetcher.count())
	}
}

type memoryStore struct {
	mu     sync.Mutex
	snaps  map[string]Snapshot
	loads  int
	onLoad func(n int)
}

func newMemoryStore() *memoryStore {
	return &memoryStore{snaps: make(map[string]Snapshot)}
}

func (s *memoryStore) Load(ctx context.Context, code string) (Snapshot, bool, error) {
	s.mu.Lock()
	s.loads++
	n := s.loads
	hook := s.onLoad
	s.mu.Unlock()
	if hook != nil {
		hook(n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[code]
	return snap, ok, nil
}

func (s *memoryStore) Save(ctx context.Context, code string, snap Snapshot, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[code] = snap
	return nil
}

type fixedLock struct {
	acquired bool
	released int32
}

func (l *fixedLock) TryAcquire(ctx context.Context, code string) (bool, error) {
	return l.acquired, nil
}

func (l *fixedLock) Release(ctx context.Context, code string) error {
	atomic.AddInt32(&l.released, 1)
	return nil
}

func TestCache_SharedStore(t *testing.T) {
	store := newMemoryStore()

	producerFetcher := &fakeFetcher{obs: usaObservations(1.5)}
	producer := NewCache(producerFetcher, "PV.EST", "RiskGeo", WithStore(store))
	produced := producer.GetOrRefresh(context.Background(), t0)

	consumerFetcher := &fakeFetcher{obs: usaObservations(-2.5)}
	consumer := NewCache(consumerFetcher, "PV.EST", "RiskGeo", WithStore(store))
	consumed := consumer.GetOrRefresh(context.Background(), t0.Add(time.Hour))

	if consumerFetcher.count() != 0 {
		t.Errorf("Consumer should reuse the shared table, fetched %d times", consumerFetcher.count())
	}
	if !reflect.DeepEqual(produced.Table, consumed.Table) {
		t.Errorf("Expected shared table %v, got %v", produced.Table, consumed.Table)
	}
}

func TestCache_LockHolderReleases(t *testing.T) {
	lock := &fixedLock{acquired: true}
	fetcher := &fakeFetcher{obs: usaObservations(1.5)}
	cache := NewCache(fetcher, "PV.EST", "RiskGeo", WithStore(newMemoryStore()), WithLock(lock, time.Second))

	cache.GetOrRefresh(context.Background(), t0)

	if fetcher.count() != 1 {
		t.Errorf("Expected lock holder to fetch once, got %d", fetcher.count())
	}
	if atomic.LoadInt32(&lock.released) != 1 {
		t.Errorf("Expected lock to be released once, got %d", lock.released)
	}
}

func TestCache_LockLoserWaitsForPeer(t *testing.T) {
	store := newMemoryStore()
	peer := Snapshot{FetchedAt: t0, Table: models.CountryRiskTable{"USA": 20}}
	store.onLoad = func(n int) {
		// the peer publishes after our first look at the store
		if n == 2 {
			_ = store.Save(context.Background(), "PV.EST", peer, time.Hour)
		}
	}

	fetcher := &fakeFetcher{obs: usaObservations(-2.5)}
	cache := NewCache(fetcher, "PV.EST", "RiskGeo", WithStore(store), WithLock(&fixedLock{}, time.Second))
	cache.lockPoll = 5 * time.Millisecond

	snap := cache.GetOrRefresh(context.Background(), t0)

	if fetcher.count() != 0 {
		t.Errorf("Lock loser should not fetch when the peer publishes, got %d fetches", fetcher.count())
	}
	if snap.Table["USA"] != 20 {
		t.Errorf("Expected peer table, got %v", snap.Table)
	}
}

func TestCache_LockLoserFetchesAfterWait(t *testing.T) {
	fetcher := &fakeFetcher{obs: usaObservations(1.5)}
	cache := NewCache(fetcher, "PV.EST", "RiskGeo", WithStore(newMemoryStore()), WithLock(&fixedLock{}, 20*time.Millisecond))
	cache.lockPoll = 5 * time.Millisecond

	snap := cache.GetOrRefresh(context.Background(), t0)

	if fetcher.count() != 1 || snap.Err != nil {
		t.Errorf("Expected fallback fetch, got %d fetches (err=%v)", fetcher.count(), snap.Err)
	}
}

type brokenLock struct{}

func (brokenLock) TryAcquire(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func (brokenLock) Release(context.Context, string) error { return nil }

func TestCache_LockErrorFetchesWithoutWaiting(t *testing.T) {
	store := newMemoryStore()
	fetcher := &fakeFetcher{obs: usaObservations(1.5)}
	cache := NewCache(fetcher, "PV.EST", "RiskGeo", WithStore(store), WithLock(brokenLock{}, time.Minute))

	start := time.Now()
	snap := cache.GetOrRefresh(context.Background(), t0)

	if snap.Err != nil || fetcher.count() != 1 {
		t.Errorf("Expected an immediate fetch, got %d fetches (err=%v)", fetcher.count(), snap.Err)
	}
	if store.loads != 1 {
		t.Errorf("Expected no polling of the store, got %d loads", store.loads)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Lock errors must not wait for a peer")
	}
}
