package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/iwvelando/pawn-calculator/internal/calculator"
	"github.com/iwvelando/pawn-calculator/pkg/constants"
	"github.com/iwvelando/pawn-calculator/pkg/loans"
	"github.com/iwvelando/pawn-calculator/pkg/rates"
)

type fixedWeights rates.WeightTable

func (w fixedWeights) Snapshot() rates.WeightTable { return rates.WeightTable(w).Clone() }

func defaultFlags() cliFlags {
	return cliFlags{
		collateral: constants.CollateralVehicle,
		vehicle:    constants.VehicleCar,
		usage:      constants.UsageOneYear,
		check:      constants.CheckOwn,
		principal:  100000,
		periods:    3,
		repayment:  constants.RepaymentAmortized,
	}
}

func TestCliFlagsRequest(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*cliFlags)
		expectErr bool
	}{
		{"Defaults", func(*cliFlags) {}, false},
		{"Check collateral", func(f *cliFlags) {
			f.collateral = constants.CollateralCheck
			f.check = constants.CheckCustomer
			f.checkAmount = 50000
			f.checkDays = 30
		}, false},
		{"Unknown collateral", func(f *cliFlags) { f.collateral = "股票" }, true},
		{"Unknown vehicle", func(f *cliFlags) { f.vehicle = "卡車" }, true},
		{"Unknown repayment", func(f *cliFlags) { f.repayment = "一次還清" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := defaultFlags()
			tt.modify(&f)

			_, err := f.request()
			if tt.expectErr && !errors.Is(err, loans.ErrInvalidInput) {
				t.Fatalf("expected invalid input error, got %v", err)
			}
			if !tt.expectErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestWriteReport(t *testing.T) {
	request, err := defaultFlags().request()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := calculator.New(fixedWeights(rates.DefaultWeightTable()), nil, nil).Calculate(context.Background(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var pretty bytes.Buffer
	if err := writeReport(&pretty, constants.OutputFormatPretty, result); err != nil {
		t.Fatalf("failed to write pretty report: %v", err)
	}
	if !strings.Contains(pretty.String(), "33,472 元") {
		t.Errorf("expected rounded payment in pretty report, got %q", pretty.String())
	}

	var csvOut bytes.Buffer
	if err := writeReport(&csvOut, constants.OutputFormatCSV, result); err != nil {
		t.Fatalf("failed to write csv report: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(csvOut.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header, 3 rows and total, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "1,33472.32,") {
		t.Errorf("unexpected first row %q", lines[1])
	}
}
