/*
fallback.go - Built-in baseline coefficient tables

When the coefficient store is unavailable or has no table for the requested
(scale, tax-year), the engine falls back to these built-in tables for the
baseline year and logs a warning. This is a recoverable degradation: the
calculation proceeds and the result carries UsedFallback = true.

The figures are the 2024-25 weekly coefficients. The subtraction constants
are derived so the formula is continuous across bracket boundaries.
*/
package tax

import "github.com/shopspring/decimal"

// FallbackTaxYear is the baseline year the built-in tables describe.
const FallbackTaxYear = "2024-25"

// SupplementaryScale keys the supplementary (study-loan style) rate table
// in stores. It is not a taxpayer scale; rows use A as a flat fraction of
// gross and leave B at zero.
const SupplementaryScale Scale = "stsl"

// FallbackTable returns the built-in bracket table for a scale. The result
// is a fresh copy each call.
func FallbackTable(scale Scale) []TaxCoefficient {
	switch scale {
	case ScaleNoThreshold:
		return buildTable(ScaleNoThreshold, []rowSpec{
			{"0", "865.38", "0.16", "0"},
			{"865.38", "2596.15", "0.30", "121.1532"},
			{"2596.15", "3653.85", "0.37", "302.8837"},
			{"3653.85", "", "0.45", "595.1917"},
		})
	case ScaleForeignResident:
		return buildTable(ScaleForeignResident, []rowSpec{
			{"0", "2596.15", "0.30", "0"},
			{"2596.15", "3653.85", "0.37", "181.7305"},
			{"3653.85", "", "0.45", "474.0385"},
		})
	case ScaleNoTFN:
		return buildTable(ScaleNoTFN, []rowSpec{
			{"0", "", "0.47", "0"},
		})
	default: // ScaleThresholdClaimed
		return buildTable(ScaleThresholdClaimed, []rowSpec{
			{"0", "350", "0", "0"},
			{"350", "865.38", "0.16", "56"},
			{"865.38", "2596.15", "0.30", "177.1532"},
			{"2596.15", "3653.85", "0.37", "358.8837"},
			{"3653.85", "", "0.45", "651.1917"},
		})
	}
}

// FallbackSupplementaryTable returns the built-in supplementary repayment
// rate ladder, keyed by weekly-equivalent income. A is a flat fraction of
// period gross; B is unused.
func FallbackSupplementaryTable() []TaxCoefficient {
	return buildTable(SupplementaryScale, []rowSpec{
		{"0", "1046.83", "0", "0"},
		{"1046.83", "1208.54", "0.01", "0"},
		{"1208.54", "1281.27", "0.02", "0"},
		{"1281.27", "1358.33", "0.025", "0"},
		{"1358.33", "1439.96", "0.03", "0"},
		{"1439.96", "1526.52", "0.035", "0"},
		{"1526.52", "1618.33", "0.04", "0"},
		{"1618.33", "1715.63", "0.045", "0"},
		{"1715.63", "1818.79", "0.05", "0"},
		{"1818.79", "1928.17", "0.055", "0"},
		{"1928.17", "2044.13", "0.06", "0"},
		{"2044.13", "2167.08", "0.065", "0"},
		{"2167.08", "2297.44", "0.07", "0"},
		{"2297.44", "2435.67", "0.075", "0"},
		{"2435.67", "2582.21", "0.08", "0"},
		{"2582.21", "2737.57", "0.085", "0"},
		{"2737.57", "2902.27", "0.09", "0"},
		{"2902.27", "3076.88", "0.095", "0"},
		{"3076.88", "", "0.10", "0"},
	})
}

type rowSpec struct {
	lower, upper, a, b string
}

func buildTable(scale Scale, specs []rowSpec) []TaxCoefficient {
	table := make([]TaxCoefficient, 0, len(specs))
	for _, s := range specs {
		row := TaxCoefficient{
			Scale:      scale,
			LowerBound: decimal.RequireFromString(s.lower),
			A:          decimal.RequireFromString(s.a),
			B:          decimal.RequireFromString(s.b),
		}
		if s.upper != "" {
			upper := decimal.RequireFromString(s.upper)
			row.UpperBound = &upper
		}
		table = append(table, row)
	}
	return table
}
