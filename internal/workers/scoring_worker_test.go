package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/selivandex/supplier-risk/internal/indicators"
	"github.com/selivandex/supplier-risk/internal/scoring"
	"github.com/selivandex/supplier-risk/pkg/models"
)

type stubRunner struct {
	report *models.Report
	err    error
	days   int
}

func (s *stubRunner) Run(_ context.Context, roster []models.SupplierRecord, days int, w models.Weights, progress scoring.ProgressFunc) (*models.Report, error) {
	s.days = days
	for i, r := range roster {
		progress(i+1, len(roster), r.Supplier)
	}
	return s.report, s.err
}

type stubAlerter struct {
	reports []*models.Report
	err     error
}

func (a *stubAlerter) SendHighRiskAlert(_ context.Context, report *models.Report) error {
	a.reports = append(a.reports, report)
	return a.err
}

func staticRoster() ([]models.SupplierRecord, error) {
	return []models.SupplierRecord{{Supplier: "Acme", Country: "USA"}}, nil
}

func TestScoringWorker_PublishesAndAlerts(t *testing.T) {
	report := &models.Report{Scores: []models.CompositeScore{{Supplier: "Acme", RiskScore: 80}}}
	runner := &stubRunner{report: report}
	alerter := &stubAlerter{err: errors.New("telegram down")}

	w := NewScoringWorker(runner, staticRoster, alerter, 60, models.DefaultWeights())
	if w.Latest() != nil {
		t.Fatal("Expected no report before first run")
	}

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if w.Latest() != report {
		t.Error("Latest report not published")
	}
	if runner.days != 60 {
		t.Errorf("Expected 60 days, got %d", runner.days)
	}
	if len(alerter.reports) != 1 {
		t.Errorf("Expected one alert, got %d", len(alerter.reports))
	}
}

func TestScoringWorker_FailureKeepsPreviousReport(t *testing.T) {
	first := &models.Report{}
	runner := &stubRunner{report: first}
	w := NewScoringWorker(runner, staticRoster, nil, 90, models.DefaultWeights())

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	runner.report, runner.err = nil, errors.New("bad timestamp")
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("Expected error")
	}
	if w.Latest() != first {
		t.Error("Previous report should survive a failed run")
	}
}

func TestScoringWorker_RosterError(t *testing.T) {
	runner := &stubRunner{}
	w := NewScoringWorker(runner, func() ([]models.SupplierRecord, error) {
		return nil, errors.New("no such file")
	}, nil, 90, models.DefaultWeights())

	if err := w.Run(context.Background()); err == nil {
		t.Error("Expected roster error")
	}
	if runner.days != 0 {
		t.Error("Runner must not be called without a roster")
	}
}

type stubRefresher struct {
	field string
	snap  indicators.Snapshot
	at    time.Time
}

func (s *stubRefresher) Field() string { return s.field }

func (s *stubRefresher) GetOrRefresh(_ context.Context, now time.Time) indicators.Snapshot {
	s.at = now
	return s.snap
}

func TestIndicatorWorker(t *testing.T) {
	ok := &stubRefresher{field: "RiskGeo", snap: indicators.Snapshot{Table: models.CountryRiskTable{"USA": 20}}}
	failed := &stubRefresher{field: "RiskReg", snap: indicators.Snapshot{Err: errors.New("RQ.EST unavailable")}}

	w := NewIndicatorWorker(ok, failed)
	now := time.Date(2025, 10, 14, 0, 0, 0, 0, time.UTC)
	w.clock = func() time.Time { return now }

	err := w.Run(context.Background())
	if err == nil || err.Error() != "RQ.EST unavailable" {
		t.Errorf("Expected joined failure, got %v", err)
	}
	if !ok.at.Equal(now) || !failed.at.Equal(now) {
		t.Error("Every cache should be refreshed with the worker clock")
	}

	if err := NewIndicatorWorker(ok).Run(context.Background()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
