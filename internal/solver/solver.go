package solver

import "context"

// Status is the termination status of a solve.
type Status int

const (
	// StatusOptimal means the search finished and the incumbent is a
	// proven optimum.
	StatusOptimal Status = iota
	// StatusFeasible means the time budget ran out with an incumbent in
	// hand but without an optimality proof.
	StatusFeasible
	// StatusInfeasible means no assignment satisfies the constraints.
	StatusInfeasible
	// StatusUnbounded means the objective can grow without limit.
	StatusUnbounded
	// StatusTimeout means the time budget ran out before any integral
	// solution was found.
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Result is the outcome of one solve. Values is only meaningful for
// StatusOptimal and StatusFeasible.
type Result struct {
	Status    Status
	Objective float64
	Values    []float64
	Nodes     int
}

// Solver solves a maximization MIP. Implementations honor the context
// deadline as the wall-clock budget for the search.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Result, error)
}
