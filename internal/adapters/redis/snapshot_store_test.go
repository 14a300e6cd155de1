package redis

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/selivandex/supplier-risk/internal/indicators"
	"github.com/selivandex/supplier-risk/pkg/models"
)

func TestSnapshotStore_RoundTrip(t *testing.T) {
	rdb := newFakeRedis()
	store := NewSnapshotStore(rdb)

	saved := indicators.Snapshot{
		FetchedAt: time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC),
		Table:     models.CountryRiskTable{"USA": 20, "DEU": 12.5},
		Err:       errors.New("never persisted"),
	}
	if err := store.Save(context.Background(), "PV.EST", saved, 24*time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if rdb.ttls["supplier-risk:indicator:PV.EST"] != 24*time.Hour {
		t.Errorf("Expected TTL passthrough, got %v", rdb.ttls)
	}

	loaded, ok, err := store.Load(context.Background(), "PV.EST")
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if !loaded.FetchedAt.Equal(saved.FetchedAt) {
		t.Errorf("FetchedAt changed: %v != %v", loaded.FetchedAt, saved.FetchedAt)
	}
	if !reflect.DeepEqual(loaded.Table, saved.Table) {
		t.Errorf("Table changed: %v != %v", loaded.Table, saved.Table)
	}
	if loaded.Err != nil {
		t.Errorf("Err must not be stored, got %v", loaded.Err)
	}
}

func TestSnapshotStore_Load(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]string
		err     error
		wantOK  bool
		wantErr bool
	}{
		{name: "miss"},
		{name: "undecodable", values: map[string]string{"supplier-risk:indicator:PV.EST": "{not json"}, wantErr: true},
		{name: "connection error", err: errors.New("connection refused"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdb := newFakeRedis()
			for k, v := range tt.values {
				rdb.values[k] = v
			}
			rdb.err = tt.err

			_, ok, err := NewSnapshotStore(rdb).Load(context.Background(), "PV.EST")
			if ok != tt.wantOK {
				t.Errorf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSnapshotStore_SharedBetweenCaches(t *testing.T) {
	store := NewSnapshotStore(newFakeRedis())
	obs := func(v float64) []models.IndicatorObservation {
		return []models.IndicatorObservation{{Country: "USA", Year: 2024, Value: &v}}
	}

	producer := &countingFetcher{obs: obs(1.5)}
	consumer := &countingFetcher{obs: obs(-2.5)}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first := indicators.NewCache(producer, "PV.EST", "RiskGeo", indicators.WithStore(store)).GetOrRefresh(context.Background(), now)
	second := indicators.NewCache(consumer, "PV.EST", "RiskGeo", indicators.WithStore(store)).GetOrRefresh(context.Background(), now.Add(time.Hour))

	if consumer.calls != 0 {
		t.Errorf("Second replica should reuse the stored table, fetched %d times", consumer.calls)
	}
	if second.Table["USA"] != first.Table["USA"] {
		t.Errorf("Expected shared USA risk %.1f, got %.1f", first.Table["USA"], second.Table["USA"])
	}
}

type countingFetcher struct {
	obs   []models.IndicatorObservation
	calls int
}

func (f *countingFetcher) FetchLatest(context.Context, string) ([]models.IndicatorObservation, error) {
	f.calls++
	return f.obs, nil
}
