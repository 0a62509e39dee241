package optimizer

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the solver-side failure modes. Callers classify
// with errors.Is; none of these are retried here.
var (
	// ErrInfeasible means the constraints cannot be jointly satisfied,
	// e.g. the budget is too low to fill the position quotas.
	ErrInfeasible = errors.New("no squad satisfies the configured rules")

	// ErrSolverUnavailable means the underlying solver could not be
	// invoked or failed numerically.
	ErrSolverUnavailable = errors.New("solver unavailable")

	// ErrSolverTimeout means the time budget elapsed before any valid
	// squad was found.
	ErrSolverTimeout = errors.New("solver timed out without a solution")
)

// ValidationError reports malformed or incomplete input detected before
// model construction. It never reaches the solver.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s", strings.Join(e.Problems, "; "))
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
