// Package format renders amounts and rates for display. Rounding happens here
// and never in the calculation core.
package format

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySuffix is appended to displayed amounts.
const CurrencySuffix = "元"

var printer = message.NewPrinter(language.TraditionalChinese)

// WholeUnits rounds amount half away from zero to the nearest whole unit.
func WholeUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Round(0).IntPart()
}

// Currency returns a rounded amount with thousands separators and the
// currency suffix (e.g., "33,472 元").
func Currency(amount float64) string {
	return NumericCurrency(amount) + " " + CurrencySuffix
}

// NumericCurrency returns a rounded amount with thousands separators and no
// suffix (e.g., "-1,235").
func NumericCurrency(amount float64) string {
	return printer.Sprintf("%d", WholeUnits(amount))
}

// Rate returns an annual rate in percent with two decimals (e.g., "2.50 %").
func Rate(percent float64) string {
	return fmt.Sprintf("%s %%", decimal.NewFromFloat(percent).StringFixed(2))
}
