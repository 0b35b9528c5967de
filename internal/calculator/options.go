package calculator

import (
	"github.com/iwvelando/pawn-calculator/pkg/constants"
	"github.com/iwvelando/pawn-calculator/pkg/loans"
	"github.com/iwvelando/pawn-calculator/pkg/rates"
)

// FormDefaults are the selections a fresh or reset form starts with.
type FormDefaults struct {
	Collateral   string `json:"collateral"`
	VehicleKind  string `json:"vehicleKind"`
	VehicleUsage string `json:"vehicleUsage"`
	CheckKind    string `json:"checkKind"`
	Periods      int    `json:"periods"`
	Repayment    string `json:"repayment"`
}

// FormOptions lists every selectable option label.
type FormOptions struct {
	Collaterals    []string     `json:"collaterals"`
	VehicleKinds   []string     `json:"vehicleKinds"`
	UsageDurations []string     `json:"usageDurations"`
	CheckKinds     []string     `json:"checkKinds"`
	Periods        []int        `json:"periods"`
	RepaymentModes []string     `json:"repaymentModes"`
	Defaults       FormDefaults `json:"defaults"`
}

// Options returns the option labels in display order and the form defaults.
func Options() FormOptions {
	options := FormOptions{
		Collaterals: append([]string(nil), rates.CollateralLabels...),
		Periods:     append([]int(nil), constants.AllowedPeriods...),
		Defaults: FormDefaults{
			Collateral:   constants.CollateralVehicle,
			VehicleKind:  constants.VehicleCar,
			VehicleUsage: constants.UsageOneYear,
			CheckKind:    constants.CheckOwn,
			Periods:      3,
			Repayment:    constants.RepaymentAmortized,
		},
	}
	for _, kind := range rates.VehicleKinds {
		options.VehicleKinds = append(options.VehicleKinds, string(kind))
	}
	for _, usage := range rates.UsageDurations {
		options.UsageDurations = append(options.UsageDurations, string(usage))
	}
	for _, kind := range rates.CheckKinds {
		options.CheckKinds = append(options.CheckKinds, string(kind))
	}
	for _, mode := range loans.RepaymentModes {
		options.RepaymentModes = append(options.RepaymentModes, mode.Label())
	}
	return options
}
