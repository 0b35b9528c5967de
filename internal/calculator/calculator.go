// Package calculator runs one loan calculation against the current weight
// snapshot.
package calculator

import (
	"context"
	"errors"
	"fmt"

	"github.com/iwvelando/pawn-calculator/internal/metrics"
	"github.com/iwvelando/pawn-calculator/pkg/loans"
	"github.com/iwvelando/pawn-calculator/pkg/mathutil"
	"github.com/iwvelando/pawn-calculator/pkg/rates"
	"go.uber.org/zap"
)

// Messages shown to the borrower.
const (
	MessageInvalidPrincipal = "請輸入有效的欲借金額。"
	MessageCannotCalculate  = "無法計算，請檢查輸入或利率設定。"
)

// ErrInvalidPrincipal is returned when the requested amount is not a positive
// number. It wraps loans.ErrInvalidInput.
var ErrInvalidPrincipal = fmt.Errorf("%w: principal must be a positive amount", loans.ErrInvalidInput)

// WeightSource supplies the weight snapshot for a calculation.
type WeightSource interface {
	Snapshot() rates.WeightTable
}

// Result is a completed calculation.
type Result struct {
	Request     rates.LoanRequest
	Composition rates.Composition
	Calculation loans.CalculationResult
}

// Service composes the rate and generates the schedule.
type Service struct {
	weights   WeightSource
	generator *loans.ScheduleGenerator
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// New returns a service reading weights from source.
func New(source WeightSource, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		weights:   source,
		generator: loans.NewScheduleGenerator(logger),
		logger:    logger,
		metrics:   m,
	}
}

// Calculate validates request, composes its rate from the current snapshot
// and builds the repayment schedule.
func (s *Service) Calculate(ctx context.Context, request rates.LoanRequest) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if !mathutil.IsFinitePositive(request.Principal) {
		s.fail(metrics.ReasonInvalidInput, ErrInvalidPrincipal)
		return Result{}, ErrInvalidPrincipal
	}
	if err := request.Validate(); err != nil {
		s.fail(metrics.ReasonInvalidInput, err)
		return Result{}, err
	}

	composition := rates.ComposeRateDetail(s.weights.Snapshot(), request)

	calculation, err := s.generator.Generate(request.Principal, composition.Rate, request.Periods, request.Mode)
	if err != nil {
		reason := metrics.ReasonInternal
		switch {
		case errors.Is(err, loans.ErrInvalidInput):
			reason = metrics.ReasonInvalidInput
		case errors.Is(err, loans.ErrCalculationDiverged):
			reason = metrics.ReasonDiverged
		}
		s.fail(reason, err)
		return Result{}, err
	}

	s.metrics.ObserveCalculation(request.Collateral.Label(), request.Mode.Label(), composition.Rate)
	s.logger.Info("calculated loan",
		zap.String("op", "calculator.Calculate"),
		zap.String("collateral", request.Collateral.Label()),
		zap.String("mode", request.Mode.Label()),
		zap.Int("periods", request.Periods),
		zap.Float64("principal", request.Principal),
		zap.Float64("rate", composition.Rate),
	)

	return Result{Request: request, Composition: composition, Calculation: calculation}, nil
}

func (s *Service) fail(reason string, err error) {
	s.metrics.CalculationFailed(reason)
	s.logger.Debug("calculation rejected",
		zap.String("op", "calculator.Calculate"),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

// UserMessage returns the borrower-facing message for a calculation error.
func UserMessage(err error) string {
	if errors.Is(err, ErrInvalidPrincipal) {
		return MessageInvalidPrincipal
	}
	return MessageCannotCalculate
}
