package workers

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/supplier-risk/internal/indicators"
	"github.com/selivandex/supplier-risk/pkg/logger"
)

// IndicatorRefresher is a country risk cache that can be refreshed at a given time
type IndicatorRefresher interface {
	Field() string
	GetOrRefresh(ctx context.Context, now time.Time) indicators.Snapshot
}

// IndicatorWorker keeps the indicator caches warm between scoring runs
type IndicatorWorker struct {
	caches []IndicatorRefresher
	clock  func() time.Time
}

// NewIndicatorWorker creates new indicator warm-up worker
func NewIndicatorWorker(caches ...IndicatorRefresher) *IndicatorWorker {
	return &IndicatorWorker{caches: caches, clock: time.Now}
}

func (w *IndicatorWorker) Name() string {
	return "indicator_refresh"
}

// Run refreshes every expired cache and reports all failures together
func (w *IndicatorWorker) Run(ctx context.Context) error {
	var errs []error
	for _, c := range w.caches {
		snap := c.GetOrRefresh(ctx, w.clock())
		if snap.Err != nil {
			errs = append(errs, snap.Err)
			continue
		}
		logger.Debug("indicator table ready",
			zap.String("field", c.Field()),
			zap.Int("countries", len(snap.Table)),
			zap.Time("fetched_at", snap.FetchedAt),
		)
	}
	return errors.Join(errs...)
}
