// Package loans provides the repayment schedule generator.
package loans

import (
	"fmt"
	"math"
	"slices"

	"github.com/iwvelando/pawn-calculator/pkg/constants"
	"github.com/iwvelando/pawn-calculator/pkg/mathutil"
	"go.uber.org/zap"
)

// RepaymentMode selects how a loan is repaid. Its value is the option label
// used as the key into the repayment condition weights.
type RepaymentMode string

const (
	// AmortizedPrincipalAndInterest pays a fixed annuity every period.
	AmortizedPrincipalAndInterest RepaymentMode = constants.RepaymentAmortized

	// InterestOnlyThenBalloon pays interest every period and the whole
	// principal with the last one.
	InterestOnlyThenBalloon RepaymentMode = constants.RepaymentInterestOnly
)

// RepaymentModes lists the supported modes in display order.
var RepaymentModes = []RepaymentMode{AmortizedPrincipalAndInterest, InterestOnlyThenBalloon}

// Label returns the weight table key for the mode.
func (m RepaymentMode) Label() string {
	return string(m)
}

// Valid reports whether m is one of the supported modes.
func (m RepaymentMode) Valid() bool {
	return slices.Contains(RepaymentModes, m)
}

// ParseRepaymentMode maps an option label onto a RepaymentMode.
func ParseRepaymentMode(label string) (RepaymentMode, error) {
	mode := RepaymentMode(label)
	if !mode.Valid() {
		return "", fmt.Errorf("%w: unknown repayment mode %q", ErrInvalidInput, label)
	}
	return mode, nil
}

// IsAllowedPeriod reports whether periods is one of the offered terms.
func IsAllowedPeriod(periods int) bool {
	return slices.Contains(constants.AllowedPeriods, periods)
}

// ScheduleRow holds the values for a given period.
type ScheduleRow struct {
	Period           int
	Payment          float64
	Interest         float64
	Principal        float64
	RemainingBalance float64
}

// CalculationResult is a complete repayment schedule.
type CalculationResult struct {
	Schedule                   []ScheduleRow
	TotalPaid                  float64
	EffectiveAnnualRatePercent float64
}

// CalculateMonthlyPayment calculates the fixed payment for an amortized loan
// using the standard annuity formula.
func CalculateMonthlyPayment(principal, annualInterestRate float64, termMonths int) float64 {
	monthlyRate := mathutil.MonthlyRate(annualInterestRate)
	if monthlyRate == 0 {
		// For zero interest, simply divide the principal by term
		return principal / float64(termMonths)
	}

	power := math.Pow(1.00+monthlyRate, float64(termMonths))
	return principal * monthlyRate * power / (power - 1.00)
}

// CalculateInterestPayment calculates the interest portion of a payment.
func CalculateInterestPayment(remainingPrincipal, annualInterestRate float64) float64 {
	return remainingPrincipal * mathutil.MonthlyRate(annualInterestRate)
}

// ScheduleGenerator builds repayment schedules.
type ScheduleGenerator struct {
	logger *zap.Logger
}

// NewScheduleGenerator creates a new generator instance
func NewScheduleGenerator(logger *zap.Logger) *ScheduleGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleGenerator{logger: logger}
}

// GenerateSchedule builds a schedule without logging.
func GenerateSchedule(principal, annualRatePercent float64, periods int, mode RepaymentMode) (CalculationResult, error) {
	return NewScheduleGenerator(nil).Generate(principal, annualRatePercent, periods, mode)
}

// Generate validates the inputs and builds the schedule for mode. No partial
// result is returned with an error.
func (g *ScheduleGenerator) Generate(principal, annualRatePercent float64, periods int, mode RepaymentMode) (CalculationResult, error) {
	if err := validateInputs(principal, annualRatePercent, periods, mode); err != nil {
		return CalculationResult{}, err
	}

	var (
		schedule []ScheduleRow
		err      error
	)
	switch mode {
	case AmortizedPrincipalAndInterest:
		schedule, err = g.amortized(principal, annualRatePercent, periods)
	case InterestOnlyThenBalloon:
		schedule = g.interestOnly(principal, annualRatePercent, periods)
	}
	if err != nil {
		return CalculationResult{}, err
	}

	result := CalculationResult{
		Schedule:                   schedule,
		EffectiveAnnualRatePercent: annualRatePercent,
	}
	for _, row := range schedule {
		result.TotalPaid += row.Payment
	}

	g.logger.Debug("generated repayment schedule",
		zap.String("op", "loans.Generate"),
		zap.String("mode", mode.Label()),
		zap.Int("periods", periods),
		zap.Float64("rate", annualRatePercent),
		zap.Float64("total_paid", result.TotalPaid),
	)
	return result, nil
}

func validateInputs(principal, annualRatePercent float64, periods int, mode RepaymentMode) error {
	if !mathutil.IsFinitePositive(principal) {
		return fmt.Errorf("%w: principal must be a positive amount, got %v", ErrInvalidInput, principal)
	}
	if !IsAllowedPeriod(periods) {
		return fmt.Errorf("%w: periods must be one of %v, got %d", ErrInvalidInput, constants.AllowedPeriods, periods)
	}
	if !mathutil.IsFinite(annualRatePercent) || annualRatePercent < 0 {
		return fmt.Errorf("%w: annual rate must not be negative, got %v", ErrInvalidInput, annualRatePercent)
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown repayment mode %q", ErrInvalidInput, mode)
	}
	return nil
}

func (g *ScheduleGenerator) amortized(principal, annualRatePercent float64, periods int) ([]ScheduleRow, error) {
	payment := CalculateMonthlyPayment(principal, annualRatePercent, periods)
	if !mathutil.IsFinitePositive(payment) {
		g.logger.Debug("amortized payment is not a finite positive amount",
			zap.String("op", "loans.amortized"),
			zap.Float64("payment", payment),
		)
		return nil, fmt.Errorf("%w: payment %v for rate %v over %d periods",
			ErrCalculationDiverged, payment, annualRatePercent, periods)
	}

	schedule := make([]ScheduleRow, 0, periods)
	balance := principal
	for period := 1; period <= periods; period++ {
		interest := CalculateInterestPayment(balance, annualRatePercent)
		principalPortion := payment - interest
		balance -= principalPortion

		remaining := balance
		if period == periods {
			// We will get machine error otherwise so just set to 0.
			remaining = 0
		}
		schedule = append(schedule, ScheduleRow{
			Period:           period,
			Payment:          payment,
			Interest:         interest,
			Principal:        principalPortion,
			RemainingBalance: remaining,
		})
	}
	return schedule, nil
}

func (g *ScheduleGenerator) interestOnly(principal, annualRatePercent float64, periods int) []ScheduleRow {
	interestPayment := CalculateInterestPayment(principal, annualRatePercent)

	schedule := make([]ScheduleRow, 0, periods)
	for period := 1; period <= periods; period++ {
		row := ScheduleRow{
			Period:           period,
			Payment:          interestPayment,
			Interest:         interestPayment,
			RemainingBalance: principal,
		}
		if period == periods {
			row.Payment = interestPayment + principal
			row.Principal = principal
			row.RemainingBalance = 0
		}
		schedule = append(schedule, row)
	}
	return schedule
}
