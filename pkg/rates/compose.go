package rates

import (
	"github.com/iwvelando/pawn-calculator/pkg/constants"
	"github.com/iwvelando/pawn-calculator/pkg/mathutil"
)

// Factor records one weight lookup applied while composing a rate.
type Factor struct {
	Table      string
	Key        string
	Multiplier float64
	Matched    bool
}

// Composition is a composed rate together with the factors that produced it.
type Composition struct {
	InitialRate float64
	Rate        float64
	Factors     []Factor
}

// ComposeRate returns the effective annual rate, in percent, for request.
func ComposeRate(weights WeightTable, request LoanRequest) float64 {
	return ComposeRateDetail(weights, request).Rate
}

// ComposeRateDetail composes the rate and reports every factor applied. It
// never fails: a missing key, or a stored multiplier that is not a finite
// positive number, counts as neutral.
func ComposeRateDetail(weights WeightTable, request LoanRequest) Composition {
	initial := weights.InitialRate
	if !mathutil.IsFinitePositive(initial) {
		initial = constants.DefaultInitialRate
	}

	c := Composition{InitialRate: initial, Rate: initial}

	switch collateral := request.Collateral.(type) {
	case VehicleCollateral:
		c.apply(TableVehicle, weights.VehicleWeights, string(collateral.Kind))
		c.apply(TableUsagePeriod, weights.UsagePeriodWeights, string(collateral.Usage))
	case CheckCollateral:
		c.apply(TableCheck, weights.CheckWeights, string(collateral.Kind))
	case RealEstateSecondLien, JewelryPawn, DebtConsolidation:
		// no collateral-specific weight
	case nil:
	}

	c.apply(TablePeriod, weights.PeriodWeights, request.PeriodLabel())
	c.apply(TableRepaymentCondition, weights.RepaymentConditionWeights, request.Mode.Label())
	return c
}

func (c *Composition) apply(table string, weights map[string]float64, key string) {
	multiplier, ok := weights[key]
	if !ok || !mathutil.IsFinitePositive(multiplier) {
		multiplier = constants.NeutralWeight
		ok = false
	}
	c.Rate *= multiplier
	c.Factors = append(c.Factors, Factor{Table: table, Key: key, Multiplier: multiplier, Matched: ok})
}
