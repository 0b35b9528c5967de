package rates

import (
	"fmt"
	"strconv"

	"github.com/iwvelando/pawn-calculator/pkg/loans"
)

// LoanRequest is the input of one calculation.
type LoanRequest struct {
	Collateral Collateral
	Principal  float64
	Periods    int
	Mode       loans.RepaymentMode
}

// PeriodLabel returns the period weight key for the request.
func (r LoanRequest) PeriodLabel() string {
	return strconv.Itoa(r.Periods)
}

// Validate checks the collateral payload. Principal, periods and mode are
// checked by the schedule generator.
func (r LoanRequest) Validate() error {
	if r.Collateral == nil {
		return fmt.Errorf("%w: collateral type is required", loans.ErrInvalidInput)
	}
	return r.Collateral.validate()
}
