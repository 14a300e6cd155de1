package models

import (
	"fmt"
	"math"
	"time"
)

// UnknownRisk is the midpoint used for any pillar that has no data
const UnknownRisk = 50.0

// WeightTolerance is how far alpha+beta+gamma may drift from 1.0
const WeightTolerance = 1e-6

// Weights blends the three pillars into the composite score.
type Weights struct {
	Alpha float64 `json:"alpha"` // headline sentiment
	Beta  float64 `json:"beta"`  // geopolitical stability
	Gamma float64 `json:"gamma"` // regulatory quality
}

// DefaultWeights returns the reference weighting
func DefaultWeights() Weights {
	return Weights{Alpha: 0.60, Beta: 0.25, Gamma: 0.15}
}

func (w Weights) Sum() float64 {
	return w.Alpha + w.Beta + w.Gamma
}

// Validate checks that the weights sum to 1.0 within WeightTolerance.
// NaN components always fail.
func (w Weights) Validate() error {
	if !(math.Abs(w.Sum()-1.0) <= WeightTolerance) {
		return fmt.Errorf("%w: alpha=%.4f beta=%.4f gamma=%.4f sum=%.6f",
			ErrInvalidWeights, w.Alpha, w.Beta, w.Gamma, w.Sum())
	}
	return nil
}

// CompositeScore is the per-supplier output row. Every numeric field is a 0-100 risk value.
type CompositeScore struct {
	Supplier  string  `json:"supplier"`
	Country   string  `json:"country"`
	RiskSent  float64 `json:"risk_sent"`
	RiskGeo   float64 `json:"risk_geo"`
	RiskReg   float64 `json:"risk_reg"`
	RiskScore float64 `json:"risk_score"`
}

// Report is the full result of one scoring run
type Report struct {
	GeneratedAt  time.Time        `json:"generated_at"`
	Weights      Weights          `json:"weights"`
	Scores       []CompositeScore `json:"scores"`
	Headlines    []SentimentRow   `json:"headlines"`
	Advisories   []string         `json:"advisories,omitempty"`
	LookbackDays int              `json:"lookback_days"`
}
