package rates

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/iwvelando/pawn-calculator/pkg/constants"
	"github.com/iwvelando/pawn-calculator/pkg/loans"
)

// Collateral is the asset securing a loan. The concrete types in this package
// are its only implementations.
type Collateral interface {
	// Label returns the collateral type option label.
	Label() string
	validate() error
}

// VehicleKind is a car or a motorcycle.
type VehicleKind string

// UsageDuration is how long a vehicle has been in use.
type UsageDuration string

// CheckKind distinguishes the borrower's own checks from customer checks.
type CheckKind string

const (
	Car        VehicleKind = constants.VehicleCar
	Motorcycle VehicleKind = constants.VehicleMotorcycle

	UsageOneYear      UsageDuration = constants.UsageOneYear
	UsageThreeYears   UsageDuration = constants.UsageThreeYears
	UsageFiveYears    UsageDuration = constants.UsageFiveYears
	UsageTenYearsPlus UsageDuration = constants.UsageTenYearsPlus

	OwnCheck      CheckKind = constants.CheckOwn
	CustomerCheck CheckKind = constants.CheckCustomer
)

// Option label sets in display order.
var (
	CollateralLabels = []string{
		constants.CollateralVehicle,
		constants.CollateralCheck,
		constants.CollateralRealEstateSecond,
		constants.CollateralJewelry,
		constants.CollateralDebtConsolidation,
	}
	VehicleKinds   = []VehicleKind{Car, Motorcycle}
	UsageDurations = []UsageDuration{UsageOneYear, UsageThreeYears, UsageFiveYears, UsageTenYearsPlus}
	CheckKinds     = []CheckKind{OwnCheck, CustomerCheck}
)

// VehicleCollateral is a car or motorcycle pledged against the loan. Model is
// recorded but does not affect the rate.
type VehicleCollateral struct {
	Kind  VehicleKind
	Usage UsageDuration
	Model string
}

// CheckCollateral is a check pledged against the loan. FaceAmount and
// TermDays are recorded but do not affect the rate.
type CheckCollateral struct {
	Kind       CheckKind
	FaceAmount float64
	TermDays   int
}

// RealEstateSecondLien is a second mortgage on a house or land.
type RealEstateSecondLien struct{}

// JewelryPawn is diamonds or jewelry held in pawn.
type JewelryPawn struct{}

// DebtConsolidation refinances existing debt at a lower rate.
type DebtConsolidation struct{}

func (VehicleCollateral) Label() string    { return constants.CollateralVehicle }
func (CheckCollateral) Label() string      { return constants.CollateralCheck }
func (RealEstateSecondLien) Label() string { return constants.CollateralRealEstateSecond }
func (JewelryPawn) Label() string          { return constants.CollateralJewelry }
func (DebtConsolidation) Label() string    { return constants.CollateralDebtConsolidation }

func (v VehicleCollateral) validate() error {
	if !slices.Contains(VehicleKinds, v.Kind) {
		return fmt.Errorf("%w: unknown vehicle kind %q", loans.ErrInvalidInput, v.Kind)
	}
	if !slices.Contains(UsageDurations, v.Usage) {
		return fmt.Errorf("%w: unknown usage duration %q", loans.ErrInvalidInput, v.Usage)
	}
	if utf8.RuneCountInString(v.Model) > constants.MaxVehicleModelLength {
		return fmt.Errorf("%w: vehicle model exceeds %d characters", loans.ErrInvalidInput, constants.MaxVehicleModelLength)
	}
	return nil
}

func (c CheckCollateral) validate() error {
	if !slices.Contains(CheckKinds, c.Kind) {
		return fmt.Errorf("%w: unknown check kind %q", loans.ErrInvalidInput, c.Kind)
	}
	if c.FaceAmount < 0 {
		return fmt.Errorf("%w: check face amount must not be negative", loans.ErrInvalidInput)
	}
	if c.TermDays < 0 {
		return fmt.Errorf("%w: check term must not be negative", loans.ErrInvalidInput)
	}
	return nil
}

func (RealEstateSecondLien) validate() error { return nil }
func (JewelryPawn) validate() error          { return nil }
func (DebtConsolidation) validate() error    { return nil }

// CollateralDetails carries the per-type fields a caller collected. Only the
// fields of the selected type are read.
type CollateralDetails struct {
	VehicleKind   string
	VehicleUsage  string
	VehicleModel  string
	CheckKind     string
	CheckAmount   float64
	CheckTermDays int
}

// ParseCollateral builds the collateral variant for an option label.
func ParseCollateral(label string, details CollateralDetails) (Collateral, error) {
	var collateral Collateral
	switch label {
	case constants.CollateralVehicle:
		collateral = VehicleCollateral{
			Kind:  VehicleKind(details.VehicleKind),
			Usage: UsageDuration(details.VehicleUsage),
			Model: details.VehicleModel,
		}
	case constants.CollateralCheck:
		collateral = CheckCollateral{
			Kind:       CheckKind(details.CheckKind),
			FaceAmount: details.CheckAmount,
			TermDays:   details.CheckTermDays,
		}
	case constants.CollateralRealEstateSecond:
		collateral = RealEstateSecondLien{}
	case constants.CollateralJewelry:
		collateral = JewelryPawn{}
	case constants.CollateralDebtConsolidation:
		collateral = DebtConsolidation{}
	default:
		return nil, fmt.Errorf("%w: unknown collateral type %q", loans.ErrInvalidInput, label)
	}

	if err := collateral.validate(); err != nil {
		return nil, err
	}
	return collateral, nil
}
