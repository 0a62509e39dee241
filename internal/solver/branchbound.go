package solver

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

const (
	defaultIntTol   = 1e-6
	defaultMaxNodes = 200000
	boundEps        = 1e-9
)

// BranchBound is a depth-first branch-and-bound MIP solver over LP
// relaxations. The search is deterministic: variables keep their model
// order, branching always picks the lowest-index fractional variable,
// the round-up child is explored first, and an incumbent is replaced
// only on strict objective improvement. Identical models therefore
// yield identical assignments, not just identical objective values.
type BranchBound struct {
	// IntTol is the integrality tolerance applied to relaxation values.
	IntTol float64
	// MaxNodes caps the search tree as a safety net alongside the
	// context deadline.
	MaxNodes int

	logger *logrus.Entry
}

// NewBranchBound returns a solver with default tolerances.
func NewBranchBound(logger *logrus.Entry) *BranchBound {
	return &BranchBound{
		IntTol:   defaultIntTol,
		MaxNodes: defaultMaxNodes,
		logger:   logger,
	}
}

type node struct {
	lower []float64
	upper []float64
}

// Solve runs the branch-and-bound search. The context deadline is the
// wall-clock budget: past it the best incumbent is returned as
// StatusFeasible, or StatusTimeout when none was found.
func (bb *BranchBound) Solve(ctx context.Context, m *Model) (*Result, error) {
	n := m.NumVars()
	root := node{lower: make([]float64, n), upper: make([]float64, n)}
	for i := 0; i < n; i++ {
		v := m.Var(i)
		root.lower[i] = v.Lower
		root.upper[i] = v.Upper
	}

	var (
		best         []float64
		bestObj      float64
		hasIncumbent bool
		nodes        int
		exhausted    = true
	)

	stack := []node{root}
	for len(stack) > 0 {
		if ctx.Err() != nil {
			exhausted = false
			break
		}
		if nodes >= bb.MaxNodes {
			if bb.logger != nil {
				bb.logger.WithField("max_nodes", bb.MaxNodes).Warn("Node budget exhausted before completing search")
			}
			exhausted = false
			break
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		obj, values, status, err := solveRelaxation(m, nd.lower, nd.upper)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", nodes, err)
		}
		switch status {
		case StatusInfeasible:
			continue
		case StatusUnbounded:
			return &Result{Status: StatusUnbounded, Nodes: nodes}, nil
		}

		// Bound: the relaxation objective dominates every integral
		// descendant of this node.
		if hasIncumbent && obj <= bestObj+boundEps {
			continue
		}

		branchVar := bb.fractionalVar(m, values)
		if branchVar < 0 {
			if !hasIncumbent || obj > bestObj+boundEps {
				best = append([]float64(nil), values...)
				bestObj = obj
				hasIncumbent = true
				if bb.logger != nil {
					bb.logger.WithFields(logrus.Fields{
						"objective": obj,
						"nodes":     nodes,
					}).Debug("New incumbent")
				}
			}
			continue
		}

		val := values[branchVar]
		down := node{
			lower: append([]float64(nil), nd.lower...),
			upper: append([]float64(nil), nd.upper...),
		}
		down.upper[branchVar] = math.Floor(val)
		up := node{
			lower: append([]float64(nil), nd.lower...),
			upper: append([]float64(nil), nd.upper...),
		}
		up.lower[branchVar] = math.Ceil(val)
		// Round-up child on top of the stack so it is explored first.
		stack = append(stack, down, up)
	}

	result := &Result{Nodes: nodes}
	switch {
	case hasIncumbent && exhausted:
		result.Status = StatusOptimal
	case hasIncumbent:
		result.Status = StatusFeasible
	case exhausted:
		result.Status = StatusInfeasible
	default:
		result.Status = StatusTimeout
	}
	if hasIncumbent {
		result.Objective = bestObj
		result.Values = best
	}
	return result, nil
}

// fractionalVar returns the lowest-index integer variable whose
// relaxation value is not integral within IntTol, or -1 if the
// assignment is integral.
func (bb *BranchBound) fractionalVar(m *Model, values []float64) int {
	for i := 0; i < m.NumVars(); i++ {
		if m.Var(i).Kind == VarContinuous {
			continue
		}
		if math.Abs(values[i]-math.Round(values[i])) > bb.IntTol {
			return i
		}
	}
	return -1
}
