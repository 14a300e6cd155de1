package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IndicatorFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sr_indicator_fetches_total",
			Help: "Remote indicator fetches by outcome",
		},
		[]string{"indicator", "result"},
	)

	IndicatorCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sr_indicator_cache_hits_total",
			Help: "Indicator lookups served without a remote fetch",
		},
		[]string{"indicator", "source"},
	)

	IndicatorCountries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sr_indicator_countries",
			Help: "Countries in the current indicator table",
		},
		[]string{"indicator"},
	)

	HeadlineFetchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sr_headline_fetch_failures_total",
			Help: "Supplier headline fetches that failed",
		},
	)

	ScoringRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sr_scoring_runs_total",
			Help: "Scoring runs by outcome",
		},
		[]string{"result"},
	)

	SupplierRisk = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sr_supplier_risk_score",
			Help: "Latest composite risk score per supplier",
		},
		[]string{"supplier", "country"},
	)
)
