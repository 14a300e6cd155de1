package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/supplier-risk/internal/scoring"
	"github.com/selivandex/supplier-risk/pkg/logger"
	"github.com/selivandex/supplier-risk/pkg/models"
)

// ReportRunner produces a scored report for a roster
type ReportRunner interface {
	Run(ctx context.Context, roster []models.SupplierRecord, days int, w models.Weights, progress scoring.ProgressFunc) (*models.Report, error)
}

// RosterSource returns the current supplier roster
type RosterSource func() ([]models.SupplierRecord, error)

// Alerter is notified after every successful run
type Alerter interface {
	SendHighRiskAlert(ctx context.Context, report *models.Report) error
}

// ScoringWorker re-scores the roster on every iteration and keeps the latest report
type ScoringWorker struct {
	runner  ReportRunner
	roster  RosterSource
	alerter Alerter
	days    int
	weights models.Weights

	mu     sync.RWMutex
	latest *models.Report
}

// NewScoringWorker creates new scoring worker; alerter may be nil
func NewScoringWorker(runner ReportRunner, roster RosterSource, alerter Alerter, days int, weights models.Weights) *ScoringWorker {
	return &ScoringWorker{
		runner:  runner,
		roster:  roster,
		alerter: alerter,
		days:    days,
		weights: weights,
	}
}

func (w *ScoringWorker) Name() string {
	return "supplier_scoring"
}

// Run loads the roster, scores it and publishes the report.
// A failed run keeps the previous report in place.
func (w *ScoringWorker) Run(ctx context.Context) error {
	roster, err := w.roster()
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	startTime := time.Now()
	report, err := w.runner.Run(ctx, roster, w.days, w.weights, func(done, total int, supplier string) {
		logger.Debug("supplier processed",
			zap.String("supplier", supplier),
			zap.Int("done", done),
			zap.Int("total", total),
		)
	})
	if err != nil {
		return fmt.Errorf("scoring run failed: %w", err)
	}

	w.mu.Lock()
	w.latest = report
	w.mu.Unlock()

	logger.Info("supplier scores refreshed",
		zap.Int("suppliers", len(report.Scores)),
		zap.Duration("duration", time.Since(startTime)),
	)

	if w.alerter != nil {
		if err := w.alerter.SendHighRiskAlert(ctx, report); err != nil {
			// the report is already published; alert delivery is best effort
			logger.Warn("failed to send high-risk alert", zap.Error(err))
		}
	}

	return nil
}

// Latest returns the most recent successful report, or nil before the first one
func (w *ScoringWorker) Latest() *models.Report {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest
}
