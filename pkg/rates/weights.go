// Package rates composes the effective annual rate of a pawn loan from a base
// rate and a chain of multiplicative weights.
package rates

import (
	"maps"

	"github.com/iwvelando/pawn-calculator/pkg/constants"
)

// WeightTable holds the base rate and the multipliers keyed by option label.
// It is a plain value; callers hand the composer a snapshot.
type WeightTable struct {
	InitialRate               float64            `json:"initialRate" yaml:"initialRate" mapstructure:"initialRate" firestore:"initialRate"`
	VehicleWeights            map[string]float64 `json:"vehicleWeights" yaml:"vehicleWeights" mapstructure:"vehicleWeights" firestore:"vehicleWeights"`
	UsagePeriodWeights        map[string]float64 `json:"usagePeriodWeights" yaml:"usagePeriodWeights" mapstructure:"usagePeriodWeights" firestore:"usagePeriodWeights"`
	CheckWeights              map[string]float64 `json:"checkWeights" yaml:"checkWeights" mapstructure:"checkWeights" firestore:"checkWeights"`
	PeriodWeights             map[string]float64 `json:"periodWeights" yaml:"periodWeights" mapstructure:"periodWeights" firestore:"periodWeights"`
	RepaymentConditionWeights map[string]float64 `json:"repaymentConditionWeights" yaml:"repaymentConditionWeights" mapstructure:"repaymentConditionWeights" firestore:"repaymentConditionWeights"`
}

// Weight table names, as used in the stored document.
const (
	TableVehicle            = "vehicleWeights"
	TableUsagePeriod        = "usagePeriodWeights"
	TableCheck              = "checkWeights"
	TablePeriod             = "periodWeights"
	TableRepaymentCondition = "repaymentConditionWeights"
)

// DefaultWeightTable returns the weights used when no stored table is
// available.
func DefaultWeightTable() WeightTable {
	return WeightTable{
		InitialRate: constants.DefaultInitialRate,
		VehicleWeights: map[string]float64{
			constants.VehicleCar:        1.0,
			constants.VehicleMotorcycle: 1.15,
		},
		UsagePeriodWeights: map[string]float64{
			constants.UsageOneYear:      1.0,
			constants.UsageThreeYears:   1.05,
			constants.UsageFiveYears:    1.1,
			constants.UsageTenYearsPlus: 1.25,
		},
		CheckWeights: map[string]float64{
			constants.CheckOwn:      1.0,
			constants.CheckCustomer: 1.2,
		},
		PeriodWeights: map[string]float64{
			"1":  1.1,
			"3":  1.0,
			"6":  0.98,
			"12": 0.95,
			"24": 1.05,
			"36": 1.1,
			"48": 1.15,
			"60": 1.2,
			"72": 1.25,
		},
		RepaymentConditionWeights: map[string]float64{
			constants.RepaymentAmortized:    1.0,
			constants.RepaymentInterestOnly: 1.1,
		},
	}
}

// Clone returns a deep copy of the table.
func (w WeightTable) Clone() WeightTable {
	return WeightTable{
		InitialRate:               w.InitialRate,
		VehicleWeights:            maps.Clone(w.VehicleWeights),
		UsagePeriodWeights:        maps.Clone(w.UsagePeriodWeights),
		CheckWeights:              maps.Clone(w.CheckWeights),
		PeriodWeights:             maps.Clone(w.PeriodWeights),
		RepaymentConditionWeights: maps.Clone(w.RepaymentConditionWeights),
	}
}

// Merge overlays update onto a copy of w. A non-zero initial rate replaces the
// current one and map entries are merged key by key, so a partial update
// leaves untouched entries in place.
func (w WeightTable) Merge(update WeightTable) WeightTable {
	merged := w.Clone()
	if update.InitialRate != 0 {
		merged.InitialRate = update.InitialRate
	}
	merged.VehicleWeights = mergeWeights(merged.VehicleWeights, update.VehicleWeights)
	merged.UsagePeriodWeights = mergeWeights(merged.UsagePeriodWeights, update.UsagePeriodWeights)
	merged.CheckWeights = mergeWeights(merged.CheckWeights, update.CheckWeights)
	merged.PeriodWeights = mergeWeights(merged.PeriodWeights, update.PeriodWeights)
	merged.RepaymentConditionWeights = mergeWeights(merged.RepaymentConditionWeights, update.RepaymentConditionWeights)
	return merged
}

// Tables returns the multiplier maps keyed by their document name.
func (w WeightTable) Tables() map[string]map[string]float64 {
	return map[string]map[string]float64{
		TableVehicle:            w.VehicleWeights,
		TableUsagePeriod:        w.UsagePeriodWeights,
		TableCheck:              w.CheckWeights,
		TablePeriod:             w.PeriodWeights,
		TableRepaymentCondition: w.RepaymentConditionWeights,
	}
}

func mergeWeights(dst, src map[string]float64) map[string]float64 {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]float64, len(src))
	}
	maps.Copy(dst, src)
	return dst
}
