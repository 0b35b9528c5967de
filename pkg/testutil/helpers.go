// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/pawn-calculator/pkg/constants"
	"github.com/iwvelando/pawn-calculator/pkg/loans"
	"github.com/iwvelando/pawn-calculator/pkg/mathutil"
	"github.com/iwvelando/pawn-calculator/pkg/rates"
)

// FindFactor finds the factor applied from table in a composition.
// Returns a pointer to the factor if found, nil otherwise.
func FindFactor(composition rates.Composition, table string) *rates.Factor {
	for i := range composition.Factors {
		if composition.Factors[i].Table == table {
			return &composition.Factors[i]
		}
	}
	return nil
}

// WithinCent reports whether two amounts differ by at most one cent.
func WithinCent(a, b float64) bool {
	return mathutil.WithinTolerance(a, b, constants.CurrencyTolerance+1e-9)
}

// PrincipalRepaid sums the principal portions of a schedule.
func PrincipalRepaid(schedule []loans.ScheduleRow) float64 {
	var total float64
	for _, row := range schedule {
		total += row.Principal
	}
	return total
}
