package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/iwvelando/pawn-calculator/internal/calculator"
	"github.com/iwvelando/pawn-calculator/internal/config"
	"github.com/iwvelando/pawn-calculator/internal/logging"
	"github.com/iwvelando/pawn-calculator/internal/weights"
	"github.com/iwvelando/pawn-calculator/pkg/constants"
	"github.com/iwvelando/pawn-calculator/pkg/loans"
	"github.com/iwvelando/pawn-calculator/pkg/output"
	"github.com/iwvelando/pawn-calculator/pkg/rates"
	"github.com/iwvelando/pawn-calculator/pkg/validation"
	"go.uber.org/zap"
)

// storeTimeout bounds the one-shot weight load.
const storeTimeout = 10 * time.Second

type cliFlags struct {
	collateral  string
	vehicle     string
	usage       string
	model       string
	check       string
	checkAmount float64
	checkDays   int
	principal   float64
	periods     int
	repayment   string
}

func (f cliFlags) request() (rates.LoanRequest, error) {
	collateral, err := rates.ParseCollateral(f.collateral, rates.CollateralDetails{
		VehicleKind:   f.vehicle,
		VehicleUsage:  f.usage,
		VehicleModel:  f.model,
		CheckKind:     f.check,
		CheckAmount:   f.checkAmount,
		CheckTermDays: f.checkDays,
	})
	if err != nil {
		return rates.LoanRequest{}, err
	}

	mode, err := loans.ParseRepaymentMode(f.repayment)
	if err != nil {
		return rates.LoanRequest{}, err
	}

	return rates.LoanRequest{
		Collateral: collateral,
		Principal:  f.principal,
		Periods:    f.periods,
		Mode:       mode,
	}, nil
}

func writeReport(w io.Writer, outputFormat string, result calculator.Result) error {
	report := output.Report{
		Collateral: result.Request.Collateral.Label(),
		Principal:  result.Request.Principal,
		Periods:    result.Request.Periods,
		Mode:       result.Request.Mode,
		Result:     result.Calculation,
	}

	switch outputFormat {
	case constants.OutputFormatCSV:
		return output.CsvFormat(w, report)
	default:
		return output.PrettyFormat(w, report)
	}
}

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file (empty to use defaults and environment only)")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")

	var f cliFlags
	flag.StringVar(&f.collateral, "collateral", constants.CollateralVehicle, "collateral type")
	flag.StringVar(&f.vehicle, "vehicle", constants.VehicleCar, "vehicle kind (汽車, 機車)")
	flag.StringVar(&f.usage, "usage", constants.UsageOneYear, "vehicle usage duration (1年, 3年, 5年, 10年以上)")
	flag.StringVar(&f.model, "model", "", "vehicle model, free text")
	flag.StringVar(&f.check, "check", constants.CheckOwn, "check kind (支票, 客票)")
	flag.Float64Var(&f.checkAmount, "check-amount", 0, "check face amount")
	flag.IntVar(&f.checkDays, "check-days", 0, "days until the check matures")
	flag.Float64Var(&f.principal, "principal", 0, "amount to borrow")
	flag.IntVar(&f.periods, "periods", 3, fmt.Sprintf("number of monthly periods, one of %v", constants.AllowedPeriods))
	flag.StringVar(&f.repayment, "repayment", constants.RepaymentAmortized, "repayment condition (本利攤還, 先還利息)")
	flag.Parse()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI override takes precedence over config
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	request, err := f.request()
	if err != nil {
		logger.Fatal("invalid loan request",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	provider := weights.NewProvider(nil, conf.DefaultWeights(), logger, nil)
	store, closeStore, err := weights.NewStore(ctx, conf.Store, logger)
	if err != nil {
		logger.Warn("failed to open weights store, using defaults",
			zap.String("op", "main"),
			zap.String("driver", conf.Store.Driver),
			zap.Error(err),
		)
	} else {
		defer func() {
			_ = closeStore()
		}()
		provider = weights.NewProvider(store, conf.DefaultWeights(), logger, nil)
		if err := provider.Load(ctx); err != nil {
			logger.Warn("failed to load weights, using defaults",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}

	result, err := calculator.New(provider, logger, nil).Calculate(ctx, request)
	if err != nil {
		fmt.Fprintln(os.Stderr, calculator.UserMessage(err))
		logger.Fatal("failed to calculate loan",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if err := writeReport(os.Stdout, outputFormat, result); err != nil {
		logger.Fatal("failed to write report",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}
