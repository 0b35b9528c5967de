// Package output writes calculation results for people and for spreadsheets.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/pawn-calculator/pkg/format"
	"github.com/iwvelando/pawn-calculator/pkg/loans"
)

// Report is one calculated loan as shown to the user.
type Report struct {
	Collateral string
	Principal  float64
	Periods    int
	Mode       loans.RepaymentMode
	Result     loans.CalculationResult
}

// PrettyFormat writes a human-readable rather than machine-readable table.
// Amounts are rounded to whole units.
func PrettyFormat(w io.Writer, report Report) error {
	ew := &errWriter{w: w}
	ew.printf("--- %s | %s | %d 期 | %s ---\n",
		report.Collateral, format.Currency(report.Principal), report.Periods, report.Mode.Label())
	ew.printf("Effective annual rate: %s\n", format.Rate(report.Result.EffectiveAnnualRatePercent))
	ew.printf("Period | Payment | Interest | Principal | Remaining\n")
	ew.printf("______ | _______ | ________ | _________ | _________\n")
	for _, row := range report.Result.Schedule {
		ew.printf("%d | %s | %s | %s | %s\n",
			row.Period,
			format.Currency(row.Payment),
			format.Currency(row.Interest),
			format.Currency(row.Principal),
			format.Currency(row.RemainingBalance))
	}
	ew.printf("Total paid: %s\n", format.Currency(report.Result.TotalPaid))
	return ew.err
}

// CsvFormat writes the schedule in comma-separated value format with amounts
// to two decimals, followed by a total row.
func CsvFormat(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)
	records := [][]string{{"period", "payment", "interest", "principal", "remaining_balance"}}
	for _, row := range report.Result.Schedule {
		records = append(records, []string{
			strconv.Itoa(row.Period),
			decimal2(row.Payment),
			decimal2(row.Interest),
			decimal2(row.Principal),
			decimal2(row.RemainingBalance),
		})
	}
	records = append(records, []string{"total", decimal2(report.Result.TotalPaid), "", "", ""})

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write csv schedule: %w", err)
	}
	return nil
}

func decimal2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(f string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, f, args...)
}
