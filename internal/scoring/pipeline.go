package scoring

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/supplier-risk/internal/metrics"
	"github.com/selivandex/supplier-risk/internal/sentiment"
	"github.com/selivandex/supplier-risk/pkg/logger"
	"github.com/selivandex/supplier-risk/pkg/models"
)

// HeadlineSource returns the recent headlines mentioning a supplier
type HeadlineSource interface {
	FetchHeadlines(ctx context.Context, supplier string, days int) ([]models.Headline, error)
}

// ProgressFunc is called after each supplier's headlines are processed
type ProgressFunc func(done, total int, supplier string)

// Pipeline fetches and tags headlines supplier by supplier, then scores the roster
type Pipeline struct {
	headlines HeadlineSource
	extractor *sentiment.Extractor
	engine    *Engine
	clock     func() time.Time
}

// NewPipeline creates new scoring pipeline
func NewPipeline(headlines HeadlineSource, extractor *sentiment.Extractor, engine *Engine) *Pipeline {
	return &Pipeline{
		headlines: headlines,
		extractor: extractor,
		engine:    engine,
		clock:     time.Now,
	}
}

// Run scores roster over the last days days. Suppliers are processed
// sequentially in roster order; report headlines are newest first. A supplier whose feed cannot be fetched is
// scored as having no headlines; a malformed headline timestamp aborts the run.
func (p *Pipeline) Run(ctx context.Context, roster []models.SupplierRecord, days int, w models.Weights, progress ProgressFunc) (*models.Report, error) {
	if err := w.Validate(); err != nil {
		metrics.ScoringRuns.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if days <= 0 {
		metrics.ScoringRuns.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("look-back window must be positive, got %d days", days)
	}

	report := &models.Report{
		Weights:      w,
		LookbackDays: days,
		Headlines:    make([]models.SentimentRow, 0),
	}

	for i, rec := range roster {
		if err := ctx.Err(); err != nil {
			metrics.ScoringRuns.WithLabelValues("cancelled").Inc()
			return nil, fmt.Errorf("scoring cancelled: %w", err)
		}

		rec = rec.Normalized()
		rows, err := p.supplierRows(ctx, rec.Supplier, days, report)
		if err != nil {
			metrics.ScoringRuns.WithLabelValues("error").Inc()
			return nil, err
		}
		report.Headlines = append(report.Headlines, rows...)

		if progress != nil {
			progress(i+1, len(roster), rec.Supplier)
		}
	}

	result, err := p.engine.ComputeScores(ctx, report.Headlines, roster, w)
	if err != nil {
		metrics.ScoringRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	report.Scores = result.Scores
	report.Advisories = append(report.Advisories, result.Advisories...)
	report.GeneratedAt = p.clock()

	slices.SortStableFunc(report.Headlines, func(a, b models.SentimentRow) int {
		return b.Date.Compare(a.Date)
	})

	metrics.ScoringRuns.WithLabelValues("ok").Inc()
	// suppliers dropped from the roster must not keep their last score
	metrics.SupplierRisk.Reset()
	for _, s := range report.Scores {
		metrics.SupplierRisk.WithLabelValues(s.Supplier, s.Country).Set(s.RiskScore)
	}

	logger.Info("scoring run completed",
		zap.Int("suppliers", len(report.Scores)),
		zap.Int("headlines", len(report.Headlines)),
		zap.Int("advisories", len(report.Advisories)),
	)

	return report, nil
}

func (p *Pipeline) supplierRows(ctx context.Context, supplier string, days int, report *models.Report) ([]models.SentimentRow, error) {
	headlines, err := p.headlines.FetchHeadlines(ctx, supplier, days)
	if err != nil {
		metrics.HeadlineFetchFailures.Inc()
		logger.Warn("headline fetch failed, supplier scored without headlines",
			zap.String("supplier", supplier),
			zap.Error(err),
		)
		report.Advisories = append(report.Advisories,
			fmt.Sprintf("headlines for %s unavailable: %v", supplier, err))
		return nil, nil
	}

	rows, err := p.extractor.Extract(ctx, headlines, supplier)
	if err != nil {
		return nil, fmt.Errorf("failed to extract sentiment: %w", err)
	}

	return rows, nil
}
