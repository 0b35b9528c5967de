package loans

import "errors"

var (
	// ErrInvalidInput reports a principal, period count, rate or repayment
	// mode that the generator refuses before doing any arithmetic.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCalculationDiverged reports an amortized payment that came out
	// non-finite or non-positive.
	ErrCalculationDiverged = errors.New("calculation diverged")
)
