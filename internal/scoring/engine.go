package scoring

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/selivandex/supplier-risk/internal/indicators"
	"github.com/selivandex/supplier-risk/pkg/models"
)

// CountryRiskSource resolves a country risk table; it reports failures in the snapshot instead of failing
type CountryRiskSource interface {
	Field() string
	Lookup(ctx context.Context) indicators.Snapshot
}

// Result is the ranked score table plus any advisories raised by the country sources
type Result struct {
	Scores     []models.CompositeScore
	Advisories []string
}

// Engine blends headline sentiment with geopolitical and regulatory country risk
type Engine struct {
	geo CountryRiskSource
	reg CountryRiskSource
}

// NewEngine creates new scoring engine
func NewEngine(geo, reg CountryRiskSource) *Engine {
	return &Engine{geo: geo, reg: reg}
}

// ComputeScores returns one row per roster entry sorted by descending RiskScore;
// ties keep roster order. Invalid weights abort before anything is fetched.
func (e *Engine) ComputeScores(ctx context.Context, rows []models.SentimentRow, roster []models.SupplierRecord, w models.Weights) (*Result, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	sentiment := SentimentRisk(rows)

	geo := e.geo.Lookup(ctx)
	reg := e.reg.Lookup(ctx)

	result := &Result{Scores: make([]models.CompositeScore, 0, len(roster))}
	for _, snap := range []indicators.Snapshot{geo, reg} {
		if snap.Err != nil {
			result.Advisories = append(result.Advisories, snap.Err.Error())
		}
	}

	for _, rec := range roster {
		rec = rec.Normalized()

		riskSent, ok := sentiment[rec.Supplier]
		if !ok {
			riskSent = models.UnknownRisk
		}
		riskGeo, _ := geo.Table.Risk(rec.Country)
		riskReg, _ := reg.Table.Risk(rec.Country)

		result.Scores = append(result.Scores, models.CompositeScore{
			Supplier:  rec.Supplier,
			Country:   rec.Country,
			RiskSent:  riskSent,
			RiskGeo:   riskGeo,
			RiskReg:   riskReg,
			RiskScore: Composite(w, riskSent, riskGeo, riskReg),
		})
	}

	slices.SortStableFunc(result.Scores, func(a, b models.CompositeScore) int {
		return cmp.Compare(b.RiskScore, a.RiskScore)
	})

	return result, nil
}

// SentimentRisk returns, per supplier, the percentage of rows below the negative threshold.
// Suppliers without rows are absent.
func SentimentRisk(rows []models.SentimentRow) map[string]float64 {
	total := make(map[string]int)
	negative := make(map[string]int)

	for _, row := range rows {
		key := strings.TrimSpace(row.Supplier)
		total[key]++
		if row.IsNegative() {
			negative[key]++
		}
	}

	risk := make(map[string]float64, len(total))
	for supplier, n := range total {
		risk[supplier] = float64(negative[supplier]) / float64(n) * 100
	}
	return risk
}

// Composite blends the three pillars and rounds to one decimal place
func Composite(w models.Weights, riskSent, riskGeo, riskReg float64) float64 {
	blended := w.Alpha*riskSent + w.Beta*riskGeo + w.Gamma*riskReg
	return decimal.NewFromFloat(blended).RoundBank(1).InexactFloat64()
}
