package indicators

import "github.com/selivandex/supplier-risk/pkg/models"

// Governance indicators are reported on roughly -2.5 (weak) .. +2.5 (strong).
const (
	indicatorFloor = -2.5
	indicatorSpan  = 5.0
)

// RiskFromIndicator inverts an indicator value into a 0-100 risk value:
// +2.5 maps to 0 and -2.5 maps to 100. Values outside the nominal range are
// not clamped, so extreme years show up as risk below 0 or above 100.
func RiskFromIndicator(value float64) float64 {
	return (1 - (value-indicatorFloor)/indicatorSpan) * 100
}

// BuildTable keeps the observations of the latest year that has any reported value,
// drops missing values and rows without a country code, and normalizes the rest.
func BuildTable(observations []models.IndicatorObservation) models.CountryRiskTable {
	latest := 0
	for _, o := range observations {
		if o.Value != nil && o.Country != "" && o.Year > latest {
			latest = o.Year
		}
	}

	table := make(models.CountryRiskTable)
	if latest == 0 {
		return table
	}

	for _, o := range observations {
		if o.Year != latest || o.Value == nil || o.Country == "" {
			continue
		}
		table[o.Country] = RiskFromIndicator(*o.Value)
	}

	return table
}
