package rates

import (
	"testing"

	"github.com/iwvelando/pawn-calculator/pkg/constants"
)

func TestDefaultWeightTableCoversOptions(t *testing.T) {
	weights := DefaultWeightTable()

	for _, kind := range VehicleKinds {
		if _, ok := weights.VehicleWeights[string(kind)]; !ok {
			t.Errorf("missing vehicle weight for %s", kind)
		}
	}
	for _, usage := range UsageDurations {
		if _, ok := weights.UsagePeriodWeights[string(usage)]; !ok {
			t.Errorf("missing usage weight for %s", usage)
		}
	}
	for _, kind := range CheckKinds {
		if _, ok := weights.CheckWeights[string(kind)]; !ok {
			t.Errorf("missing check weight for %s", kind)
		}
	}
	for _, periods := range constants.AllowedPeriods {
		request := LoanRequest{Periods: periods}
		if _, ok := weights.PeriodWeights[request.PeriodLabel()]; !ok {
			t.Errorf("missing period weight for %d", periods)
		}
	}
	if weights.InitialRate != constants.DefaultInitialRate {
		t.Errorf("expected initial rate %v, got %v", constants.DefaultInitialRate, weights.InitialRate)
	}
}

func TestWeightTableClone(t *testing.T) {
	original := DefaultWeightTable()
	clone := original.Clone()

	clone.VehicleWeights[constants.VehicleCar] = 9
	clone.PeriodWeights["3"] = 9
	clone.InitialRate = 9

	if original.VehicleWeights[constants.VehicleCar] != 1.0 {
		t.Error("clone shares vehicle weights with the original")
	}
	if original.PeriodWeights["3"] != 1.0 {
		t.Error("clone shares period weights with the original")
	}
	if original.InitialRate != 2.5 {
		t.Error("clone changed the original initial rate")
	}
}

func TestWeightTableMerge(t *testing.T) {
	base := DefaultWeightTable()
	update := WeightTable{
		VehicleWeights: map[string]float64{constants.VehicleMotorcycle: 1.3},
		PeriodWeights:  map[string]float64{"84": 1.4},
	}

	merged := base.Merge(update)

	if merged.InitialRate != 2.5 {
		t.Errorf("expected zero initial rate to keep 2.5, got %v", merged.InitialRate)
	}
	if merged.VehicleWeights[constants.VehicleMotorcycle] != 1.3 {
		t.Errorf("expected merged motorcycle weight 1.3, got %v", merged.VehicleWeights[constants.VehicleMotorcycle])
	}
	if merged.VehicleWeights[constants.VehicleCar] != 1.0 {
		t.Errorf("expected untouched car weight 1.0, got %v", merged.VehicleWeights[constants.VehicleCar])
	}
	if merged.PeriodWeights["84"] != 1.4 || merged.PeriodWeights["72"] != 1.25 {
		t.Errorf("unexpected period weights %v", merged.PeriodWeights)
	}
	if base.VehicleWeights[constants.VehicleMotorcycle] != 1.15 {
		t.Error("merge mutated the receiver")
	}

	rate := base.Merge(WeightTable{InitialRate: 3})
	if rate.InitialRate != 3 {
		t.Errorf("expected initial rate 3, got %v", rate.InitialRate)
	}

	fromEmpty := WeightTable{}.Merge(update)
	if fromEmpty.VehicleWeights[constants.VehicleMotorcycle] != 1.3 {
		t.Errorf("expected merge into empty table to create maps, got %v", fromEmpty.VehicleWeights)
	}
}
