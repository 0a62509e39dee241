package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	feasTol  = 1e-7
	pivotTol = 1e-9

	// refactorEvery bounds the drift of the incrementally updated
	// tableau; the basis is rebuilt from the original matrix this often.
	refactorEvery = 64
)

// solveRelaxation solves the LP relaxation of the model under the given
// node bounds with a bounded-variable primal simplex. Variable bounds
// are handled natively rather than as extra equality rows, and every
// constraint row carries its own slack column, so the initial slack
// basis is invertible no matter how many linearly dependent rows the
// model carries (position quotas summing to the squad size, for
// example). Phase one drives the slack basis feasible as a composite
// infeasibility minimization; phase two optimizes. Bland's smallest-
// index rule makes both phases finite and the pivot sequence, and
// therefore the returned assignment, deterministic.
//
// The returned objective and values are in the model's maximization
// terms.
func solveRelaxation(m *Model, lower, upper []float64) (obj float64, x []float64, status Status, err error) {
	n := m.NumVars()
	for i := 0; i < n; i++ {
		if upper[i]-lower[i] < 0 {
			return 0, nil, StatusInfeasible, nil
		}
		if math.IsInf(lower[i], -1) && math.IsInf(upper[i], 1) {
			return 0, nil, StatusInfeasible, fmt.Errorf("variable %s has no finite bound", m.Var(i).Name)
		}
	}

	cons := m.Constraints()
	rows := len(cons)
	if rows == 0 {
		// No constraints: each variable sits at its best bound.
		x = make([]float64, n)
		for i := 0; i < n; i++ {
			c := m.objective[i]
			switch {
			case c > 0:
				if math.IsInf(upper[i], 1) {
					return 0, nil, StatusUnbounded, nil
				}
				x[i] = upper[i]
			case c < 0:
				if math.IsInf(lower[i], -1) {
					return 0, nil, StatusUnbounded, nil
				}
				x[i] = lower[i]
			default:
				if math.IsInf(lower[i], -1) {
					x[i] = upper[i]
				} else {
					x[i] = lower[i]
				}
			}
			obj += c * x[i]
		}
		return obj, x, StatusOptimal, nil
	}

	cols := n + rows
	lp := &lpTableau{
		rows:    rows,
		cols:    cols,
		w:       mat.NewDense(rows, cols, nil),
		tab:     mat.NewDense(rows, cols, nil),
		b:       make([]float64, rows),
		cost:    make([]float64, cols),
		lo:      make([]float64, cols),
		hi:      make([]float64, cols),
		basis:   make([]int, rows),
		inBasis: make([]int, cols),
		atUpper: make([]bool, cols),
		beta:    make([]float64, rows),
	}
	for j := 0; j < n; j++ {
		lp.lo[j], lp.hi[j] = lower[j], upper[j]
		lp.cost[j] = -m.objective[j] // internally a minimization
		lp.inBasis[j] = -1
		lp.atUpper[j] = math.IsInf(lower[j], -1)
	}
	for r, con := range cons {
		for _, t := range con.Terms {
			lp.w.Set(r, t.Var, lp.w.At(r, t.Var)+t.Coeff)
		}
		slack := n + r
		lp.w.Set(r, slack, 1)
		switch con.Op {
		case LE:
			lp.lo[slack], lp.hi[slack] = 0, math.Inf(1)
		case GE:
			lp.lo[slack], lp.hi[slack] = math.Inf(-1), 0
			lp.atUpper[slack] = true
		case EQ:
			// lo = hi = 0: the slack is an artificial that phase one
			// must drive to zero.
		}
		lp.basis[r] = slack
		lp.inBasis[slack] = r
		lp.b[r] = con.RHS
	}
	lp.tab.Copy(lp.w)
	for r := 0; r < rows; r++ {
		v := lp.b[r]
		for j := 0; j < n; j++ {
			if c := lp.w.At(r, j); c != 0 {
				v -= c * lp.value(j)
			}
		}
		lp.beta[r] = v
	}

	st, runErr := lp.run()
	if runErr != nil {
		return 0, nil, StatusInfeasible, runErr
	}
	if st != StatusOptimal {
		return 0, nil, st, nil
	}

	x = make([]float64, n)
	for j := 0; j < n; j++ {
		v := lp.value(j)
		if r := lp.inBasis[j]; r >= 0 {
			v = lp.beta[r]
		}
		// Snap the tiny bound violations pivot arithmetic leaves behind.
		if v < lower[j] {
			v = lower[j]
		}
		if v > upper[j] {
			v = upper[j]
		}
		x[j] = v
	}
	for j := 0; j < n; j++ {
		obj += m.objective[j] * x[j]
	}
	return obj, x, StatusOptimal, nil
}

// lpTableau is the working state of one simplex run over [A | I].
type lpTableau struct {
	rows, cols int
	w          *mat.Dense // original coefficient matrix with slacks
	tab        *mat.Dense // basis inverse times w
	b          []float64
	cost       []float64
	lo, hi     []float64
	basis      []int // basic column per row
	inBasis    []int // column to row, -1 when nonbasic
	atUpper    []bool
	beta       []float64 // values of the basic variables
	pivots     int
}

// value returns the resting value of a nonbasic column.
func (lp *lpTableau) value(j int) float64 {
	if lp.atUpper[j] {
		return lp.hi[j]
	}
	return lp.lo[j]
}

func (lp *lpTableau) run() (Status, error) {
	maxIter := 200 + 50*(lp.rows+lp.cols)
	sigma := make([]float64, lp.rows)
	for iter := 0; iter < maxIter; iter++ {
		phaseOne := false
		for r := 0; r < lp.rows; r++ {
			k := lp.basis[r]
			switch {
			case lp.beta[r] > lp.hi[k]+feasTol:
				sigma[r] = 1
				phaseOne = true
			case lp.beta[r] < lp.lo[k]-feasTol:
				sigma[r] = -1
				phaseOne = true
			default:
				sigma[r] = 0
			}
		}

		// Bland: the lowest-index improving column enters.
		enter := -1
		var dir float64
		for j := 0; j < lp.cols; j++ {
			if lp.inBasis[j] >= 0 || lp.lo[j] == lp.hi[j] {
				continue
			}
			d := lp.reducedCost(j, phaseOne, sigma)
			if !lp.atUpper[j] && ((phaseOne && d > feasTol) || (!phaseOne && d < -feasTol)) {
				enter, dir = j, 1
				break
			}
			if lp.atUpper[j] && ((phaseOne && d < -feasTol) || (!phaseOne && d > feasTol)) {
				enter, dir = j, -1
				break
			}
		}
		if enter < 0 {
			if phaseOne {
				return StatusInfeasible, nil
			}
			return StatusOptimal, nil
		}

		leave, leaveAtUpper, t, ok := lp.ratioTest(enter, dir, phaseOne, sigma)
		if !ok {
			if phaseOne {
				return StatusInfeasible, fmt.Errorf("phase one stalled on column %d", enter)
			}
			return StatusUnbounded, nil
		}
		lp.step(enter, dir, leave, leaveAtUpper, t)
		if leave >= 0 {
			lp.pivots++
			if lp.pivots%refactorEvery == 0 {
				if err := lp.refactorize(); err != nil {
					return StatusInfeasible, err
				}
			}
		}
	}
	return StatusInfeasible, fmt.Errorf("simplex exceeded %d iterations", maxIter)
}

// reducedCost prices a nonbasic column: against the true costs in phase
// two, against the infeasibility gradient sigma in phase one.
func (lp *lpTableau) reducedCost(j int, phaseOne bool, sigma []float64) float64 {
	if phaseOne {
		d := 0.0
		for r := 0; r < lp.rows; r++ {
			if sigma[r] != 0 {
				d += sigma[r] * lp.tab.At(r, j)
			}
		}
		return d
	}
	d := lp.cost[j]
	for r := 0; r < lp.rows; r++ {
		if cb := lp.cost[lp.basis[r]]; cb != 0 {
			d -= cb * lp.tab.At(r, j)
		}
	}
	return d
}

// ratioTest finds how far the entering column can move: until a basic
// variable hits a bound (in phase one, until an out-of-bounds basic
// reaches the bound it violates), or until the entering column flips to
// its own opposite bound (leave = -1). Ties resolve to the lowest basic
// column index.
func (lp *lpTableau) ratioTest(enter int, dir float64, phaseOne bool, sigma []float64) (leave int, leaveAtUpper bool, t float64, ok bool) {
	leave = -1
	t = math.Inf(1)
	if span := lp.hi[enter] - lp.lo[enter]; !math.IsInf(span, 1) {
		t = span
		ok = true
	}
	for r := 0; r < lp.rows; r++ {
		g := dir * lp.tab.At(r, enter)
		if math.Abs(g) <= pivotTol {
			continue
		}
		k := lp.basis[r]
		var tr float64
		var hitsUpper bool
		if phaseOne && sigma[r] != 0 {
			switch {
			case sigma[r] > 0 && g > 0:
				tr, hitsUpper = (lp.beta[r]-lp.hi[k])/g, true
			case sigma[r] < 0 && g < 0:
				tr, hitsUpper = (lp.lo[k]-lp.beta[r])/(-g), false
			default:
				// Moving further out of bounds never blocks.
				continue
			}
		} else if g > 0 {
			if math.IsInf(lp.lo[k], -1) {
				continue
			}
			tr, hitsUpper = (lp.beta[r]-lp.lo[k])/g, false
		} else {
			if math.IsInf(lp.hi[k], 1) {
				continue
			}
			tr, hitsUpper = (lp.hi[k]-lp.beta[r])/(-g), true
		}
		if tr < 0 {
			tr = 0
		}
		if tr < t-pivotTol || (tr < t+pivotTol && (leave < 0 || k < lp.basis[leave])) {
			leave, leaveAtUpper, t, ok = r, hitsUpper, tr, true
		}
	}
	return leave, leaveAtUpper, t, ok
}

// step applies the chosen move: a bound flip when leave is -1,
// otherwise a basis exchange with a tableau pivot.
func (lp *lpTableau) step(enter int, dir float64, leave int, leaveAtUpper bool, t float64) {
	if t != 0 {
		for r := 0; r < lp.rows; r++ {
			if g := lp.tab.At(r, enter); g != 0 {
				lp.beta[r] -= dir * g * t
			}
		}
	}
	if leave < 0 {
		lp.atUpper[enter] = !lp.atUpper[enter]
		return
	}

	entering := lp.value(enter) + dir*t
	k := lp.basis[leave]
	lp.inBasis[k] = -1
	lp.atUpper[k] = leaveAtUpper
	lp.basis[leave] = enter
	lp.inBasis[enter] = leave
	lp.beta[leave] = entering

	piv := lp.tab.At(leave, enter)
	for j := 0; j < lp.cols; j++ {
		lp.tab.Set(leave, j, lp.tab.At(leave, j)/piv)
	}
	for r := 0; r < lp.rows; r++ {
		if r == leave {
			continue
		}
		f := lp.tab.At(r, enter)
		if f == 0 {
			continue
		}
		for j := 0; j < lp.cols; j++ {
			if v := lp.tab.At(leave, j); v != 0 {
				lp.tab.Set(r, j, lp.tab.At(r, j)-f*v)
			}
		}
		lp.tab.Set(r, enter, 0)
	}
}

// refactorize rebuilds the tableau and the basic values from the
// original matrix, discarding accumulated pivot round-off.
func (lp *lpTableau) refactorize() error {
	bm := mat.NewDense(lp.rows, lp.rows, nil)
	for r := 0; r < lp.rows; r++ {
		for i, col := range lp.basis {
			bm.Set(r, i, lp.w.At(r, col))
		}
	}
	var lu mat.LU
	lu.Factorize(bm)
	if err := lu.SolveTo(lp.tab, false, lp.w); err != nil {
		if _, cond := err.(mat.Condition); !cond {
			return fmt.Errorf("basis refactorization: %w", err)
		}
	}
	rhs := mat.NewVecDense(lp.rows, nil)
	for r := 0; r < lp.rows; r++ {
		v := lp.b[r]
		for j := 0; j < lp.cols; j++ {
			if lp.inBasis[j] >= 0 {
				continue
			}
			if c := lp.w.At(r, j); c != 0 {
				v -= c * lp.value(j)
			}
		}
		rhs.SetVec(r, v)
	}
	beta := mat.NewVecDense(lp.rows, nil)
	if err := lu.SolveVecTo(beta, false, rhs); err != nil {
		if _, cond := err.(mat.Condition); !cond {
			return fmt.Errorf("basis refactorization: %w", err)
		}
	}
	for r := 0; r < lp.rows; r++ {
		lp.beta[r] = beta.AtVec(r)
	}
	return nil
}
