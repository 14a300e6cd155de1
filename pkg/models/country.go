package models

import "errors"

var (
	// ErrInvalidWeights is returned when the pillar weights do not sum to 1.0
	ErrInvalidWeights = errors.New("scoring weights must sum to 1.0")
)

// IndicatorObservation is one (country, year, value) triple of a cross-country indicator.
// Value is nil when the source reports no figure for that country and year.
type IndicatorObservation struct {
	Value   *float64
	Country string // ISO-3
	Year    int
}

// CountryRiskTable maps ISO-3 country codes to a 0-100 risk value.
// A table handed out by a cache is shared and must be treated as read-only.
type CountryRiskTable map[string]float64

// Risk returns the risk for country, or UnknownRisk when the country is absent
func (t CountryRiskTable) Risk(country string) (float64, bool) {
	v, ok := t[country]
	if !ok {
		return UnknownRisk, false
	}
	return v, true
}
