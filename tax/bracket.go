/*
bracket.go - Bracket resolution and table validation

Bracket lookup is total and exclusive: for any income >= 0 and any
well-formed table, exactly one row matches. A table that fails to match is
a fatal configuration error, never a silent zero.
*/
package tax

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ResolveBracket finds the unique row where
// lowerBound <= income < upperBound (nil upperBound = unbounded).
// Callers must pass a validated table; if no row matches the table is
// malformed and ErrMalformedTable is returned.
func ResolveBracket(income decimal.Decimal, table []TaxCoefficient) (TaxCoefficient, error) {
	for _, row := range table {
		if row.Contains(income) {
			return row, nil
		}
	}
	return TaxCoefficient{}, &TableError{
		Scale:  scaleOf(table),
		Reason: "no bracket matches income " + income.String(),
	}
}

// ValidateTable checks that rows partition [0, inf): sorted, first row
// starts at zero, each row's upper bound equals the next row's lower bound,
// and exactly one unbounded row sits at the end.
func ValidateTable(table []TaxCoefficient) error {
	if len(table) == 0 {
		return &TableError{Reason: "empty table"}
	}

	sorted := make([]TaxCoefficient, len(table))
	copy(sorted, table)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LowerBound.LessThan(sorted[j].LowerBound)
	})

	if !sorted[0].LowerBound.IsZero() {
		return &TableError{Scale: scaleOf(table), Reason: "first bracket must start at 0"}
	}

	for i, row := range sorted {
		last := i == len(sorted)-1
		if last {
			if row.UpperBound != nil {
				return &TableError{Scale: scaleOf(table), Reason: "final bracket must be unbounded"}
			}
			continue
		}
		if row.UpperBound == nil {
			return &TableError{Scale: scaleOf(table), Reason: "unbounded bracket before end of table"}
		}
		if !row.UpperBound.Equal(sorted[i+1].LowerBound) {
			return &TableError{
				Scale:  scaleOf(table),
				Reason: "gap or overlap at " + row.UpperBound.String(),
			}
		}
		if !row.UpperBound.GreaterThan(row.LowerBound) {
			return &TableError{Scale: scaleOf(table), Reason: "empty bracket at " + row.LowerBound.String()}
		}
	}
	return nil
}

// SortTable returns the table ordered by lower bound. Resolution does not
// require order, but stores and fixtures keep tables sorted for readability.
func SortTable(table []TaxCoefficient) []TaxCoefficient {
	sorted := make([]TaxCoefficient, len(table))
	copy(sorted, table)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LowerBound.LessThan(sorted[j].LowerBound)
	})
	return sorted
}

func scaleOf(table []TaxCoefficient) Scale {
	if len(table) == 0 {
		return ""
	}
	return table[0].Scale
}
