package rates

import (
	"math"
	"testing"

	"github.com/iwvelando/pawn-calculator/pkg/constants"
	"github.com/iwvelando/pawn-calculator/pkg/loans"
)

func vehicleRequest(kind VehicleKind, usage UsageDuration, periods int, mode loans.RepaymentMode) LoanRequest {
	return LoanRequest{
		Collateral: VehicleCollateral{Kind: kind, Usage: usage},
		Principal:  100000,
		Periods:    periods,
		Mode:       mode,
	}
}

func neutralTable() WeightTable {
	return WeightTable{
		InitialRate:               2.5,
		VehicleWeights:            map[string]float64{constants.VehicleCar: 1, constants.VehicleMotorcycle: 1},
		UsagePeriodWeights:        map[string]float64{constants.UsageOneYear: 1, constants.UsageThreeYears: 1},
		CheckWeights:              map[string]float64{constants.CheckOwn: 1, constants.CheckCustomer: 1},
		PeriodWeights:             map[string]float64{"3": 1, "12": 1},
		RepaymentConditionWeights: map[string]float64{constants.RepaymentAmortized: 1, constants.RepaymentInterestOnly: 1},
	}
}

func TestComposeRateDefaults(t *testing.T) {
	weights := DefaultWeightTable()

	tests := []struct {
		name     string
		request  LoanRequest
		expected float64
	}{
		{
			name:     "Car, one year, 3 periods, amortized",
			request:  vehicleRequest(Car, UsageOneYear, 3, loans.AmortizedPrincipalAndInterest),
			expected: 2.5,
		},
		{
			name:     "Motorcycle, ten years, 72 periods, interest only",
			request:  vehicleRequest(Motorcycle, UsageTenYearsPlus, 72, loans.InterestOnlyThenBalloon),
			expected: 2.5 * 1.15 * 1.25 * 1.25 * 1.1,
		},
		{
			name: "Customer check, 12 periods",
			request: LoanRequest{
				Collateral: CheckCollateral{Kind: CustomerCheck, FaceAmount: 50000, TermDays: 90},
				Periods:    12,
				Mode:       loans.AmortizedPrincipalAndInterest,
			},
			expected: 2.5 * 1.2 * 0.95,
		},
		{
			name:     "Jewelry uses only the general weights",
			request:  LoanRequest{Collateral: JewelryPawn{}, Periods: 1, Mode: loans.InterestOnlyThenBalloon},
			expected: 2.5 * 1.1 * 1.1,
		},
		{
			name:     "Second lien uses only the general weights",
			request:  LoanRequest{Collateral: RealEstateSecondLien{}, Periods: 6, Mode: loans.AmortizedPrincipalAndInterest},
			expected: 2.5 * 0.98,
		},
		{
			name:     "Debt consolidation uses only the general weights",
			request:  LoanRequest{Collateral: DebtConsolidation{}, Periods: 24, Mode: loans.AmortizedPrincipalAndInterest},
			expected: 2.5 * 1.05,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComposeRate(weights, tt.request)
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("ComposeRate() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestComposeRateInitialRateFallback(t *testing.T) {
	request := vehicleRequest(Car, UsageOneYear, 3, loans.AmortizedPrincipalAndInterest)

	for _, initial := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		weights := neutralTable()
		weights.InitialRate = initial
		if got := ComposeRate(weights, request); got != constants.DefaultInitialRate {
			t.Errorf("initial rate %v: ComposeRate() = %v, expected %v", initial, got, constants.DefaultInitialRate)
		}
	}

	weights := neutralTable()
	weights.InitialRate = 3.2
	if got := ComposeRate(weights, request); got != 3.2 {
		t.Errorf("ComposeRate() = %v, expected configured 3.2", got)
	}
}

func TestComposeRateMissingKeysAreNeutral(t *testing.T) {
	request := vehicleRequest(Motorcycle, UsageThreeYears, 12, loans.InterestOnlyThenBalloon)

	withOnes := neutralTable()
	empty := neutralTable()
	empty.VehicleWeights = map[string]float64{}
	empty.UsagePeriodWeights = nil

	if a, b := ComposeRate(withOnes, request), ComposeRate(empty, request); a != b {
		t.Errorf("empty maps composed %v, all-ones composed %v", b, a)
	}

	if got := ComposeRate(WeightTable{}, request); got != constants.DefaultInitialRate {
		t.Errorf("zero table composed %v, expected %v", got, constants.DefaultInitialRate)
	}
}

func TestComposeRateMismatchedKeyIsNeutral(t *testing.T) {
	weights := neutralTable()
	weights.PeriodWeights = map[string]float64{"03": 2.0}

	composition := ComposeRateDetail(weights, vehicleRequest(Car, UsageOneYear, 3, loans.AmortizedPrincipalAndInterest))
	if composition.Rate != 2.5 {
		t.Errorf("expected mismatched key to be neutral, got rate %v", composition.Rate)
	}

	for _, f := range composition.Factors {
		if f.Table == TablePeriod && f.Matched {
			t.Errorf("expected period factor to be unmatched, got %+v", f)
		}
	}
}

func TestComposeRateNonPositiveMultiplierIsNeutral(t *testing.T) {
	weights := neutralTable()
	weights.VehicleWeights[constants.VehicleCar] = 0
	weights.UsagePeriodWeights[constants.UsageOneYear] = -2

	if got := ComposeRate(weights, vehicleRequest(Car, UsageOneYear, 3, loans.AmortizedPrincipalAndInterest)); got != 2.5 {
		t.Errorf("ComposeRate() = %v, expected 2.5", got)
	}
}

func TestComposeRateMonotonic(t *testing.T) {
	request := vehicleRequest(Motorcycle, UsageFiveYears, 24, loans.InterestOnlyThenBalloon)
	base := DefaultWeightTable()

	bumps := []struct {
		table string
		key   string
	}{
		{TableVehicle, constants.VehicleMotorcycle},
		{TableUsagePeriod, constants.UsageFiveYears},
		{TablePeriod, "24"},
		{TableRepaymentCondition, constants.RepaymentInterestOnly},
	}

	for _, bump := range bumps {
		t.Run(bump.table, func(t *testing.T) {
			for _, multiplier := range []float64{1.01, 1.5, 3} {
				lower := base.Clone()
				lower.Tables()[bump.table][bump.key] = 1
				raised := base.Clone()
				raised.Tables()[bump.table][bump.key] = multiplier
				if ComposeRate(raised, request) < ComposeRate(lower, request) {
					t.Errorf("%s[%s]=%v composed below the neutral weight", bump.table, bump.key, multiplier)
				}
			}
		})
	}
}

func TestComposeRateIgnoresUnusedFields(t *testing.T) {
	weights := DefaultWeightTable()

	plain := LoanRequest{Collateral: CheckCollateral{Kind: OwnCheck}, Periods: 3, Mode: loans.AmortizedPrincipalAndInterest}
	detailed := LoanRequest{Collateral: CheckCollateral{Kind: OwnCheck, FaceAmount: 999999, TermDays: 180}, Periods: 3, Mode: loans.AmortizedPrincipalAndInterest}
	if ComposeRate(weights, plain) != ComposeRate(weights, detailed) {
		t.Error("check face amount and term should not change the rate")
	}

	car := vehicleRequest(Car, UsageOneYear, 3, loans.AmortizedPrincipalAndInterest)
	withModel := car
	withModel.Collateral = VehicleCollateral{Kind: Car, Usage: UsageOneYear, Model: "Toyota Altis"}
	if ComposeRate(weights, car) != ComposeRate(weights, withModel) {
		t.Error("vehicle model should not change the rate")
	}
}

func TestComposeRateDetailFactorOrder(t *testing.T) {
	composition := ComposeRateDetail(DefaultWeightTable(), vehicleRequest(Motorcycle, UsageThreeYears, 6, loans.AmortizedPrincipalAndInterest))

	expected := []Factor{
		{Table: TableVehicle, Key: constants.VehicleMotorcycle, Multiplier: 1.15, Matched: true},
		{Table: TableUsagePeriod, Key: constants.UsageThreeYears, Multiplier: 1.05, Matched: true},
		{Table: TablePeriod, Key: "6", Multiplier: 0.98, Matched: true},
		{Table: TableRepaymentCondition, Key: constants.RepaymentAmortized, Multiplier: 1.0, Matched: true},
	}
	if len(composition.Factors) != len(expected) {
		t.Fatalf("expected %d factors, got %d", len(expected), len(composition.Factors))
	}
	for i := range expected {
		if composition.Factors[i] != expected[i] {
			t.Errorf("factor %d = %+v, expected %+v", i, composition.Factors[i], expected[i])
		}
	}
	if composition.InitialRate != 2.5 {
		t.Errorf("expected initial rate 2.5, got %v", composition.InitialRate)
	}
}

func TestComposeRateReferenceScenario(t *testing.T) {
	weights := WeightTable{
		InitialRate:               2.5,
		VehicleWeights:            map[string]float64{"汽車": 1.0},
		UsagePeriodWeights:        map[string]float64{"1年": 1.0},
		PeriodWeights:             map[string]float64{"3": 1.0},
		RepaymentConditionWeights: map[string]float64{"本利攤還": 1.0},
	}
	request := vehicleRequest(Car, UsageOneYear, 3, loans.AmortizedPrincipalAndInterest)

	rate := ComposeRate(weights, request)
	if rate != 2.5 {
		t.Fatalf("ComposeRate() = %v, expected 2.5", rate)
	}

	result, err := loans.GenerateSchedule(request.Principal, rate, request.Periods, request.Mode)
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}
	if len(result.Schedule) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(result.Schedule))
	}
	if result.Schedule[2].RemainingBalance != 0 {
		t.Errorf("expected final balance 0, got %v", result.Schedule[2].RemainingBalance)
	}
	if math.Abs(result.Schedule[0].Payment-33472.32) > 1 {
		t.Errorf("payment %v, expected about 33472", result.Schedule[0].Payment)
	}
}
