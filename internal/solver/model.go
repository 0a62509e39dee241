// Package solver provides a small mixed-integer linear programming
// layer: an abstract model (variables, linear constraints, objective)
// and a branch-and-bound solver that works the LP relaxations with
// gonum's simplex. The model is solver-agnostic; anything implementing
// Solver can run it.
package solver

import "fmt"

// VarKind classifies a decision variable.
type VarKind int

const (
	VarContinuous VarKind = iota
	VarBinary
	VarInteger
)

// Variable is a decision variable with box bounds.
type Variable struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Op is a constraint relation.
type Op int

const (
	LE Op = iota
	GE
	EQ
)

func (op Op) String() string {
	switch op {
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "="
	}
}

// Term is a coefficient applied to one variable.
type Term struct {
	Var   int
	Coeff float64
}

// Constraint is a named linear constraint over model variables.
type Constraint struct {
	Name  string
	Terms []Term
	Op    Op
	RHS   float64
}

// Model is an abstract maximization MIP. Variables and constraints keep
// their insertion order, which makes solves reproducible.
type Model struct {
	vars        []Variable
	objective   []float64
	constraints []Constraint
}

func NewModel() *Model {
	return &Model{}
}

// AddBinary adds a 0/1 decision variable and returns its index.
func (m *Model) AddBinary(name string) int {
	m.vars = append(m.vars, Variable{Name: name, Kind: VarBinary, Lower: 0, Upper: 1})
	m.objective = append(m.objective, 0)
	return len(m.vars) - 1
}

// AddInteger adds a bounded integer variable and returns its index.
func (m *Model) AddInteger(name string, lower, upper float64) int {
	m.vars = append(m.vars, Variable{Name: name, Kind: VarInteger, Lower: lower, Upper: upper})
	m.objective = append(m.objective, 0)
	return len(m.vars) - 1
}

// AddContinuous adds a bounded continuous variable and returns its index.
func (m *Model) AddContinuous(name string, lower, upper float64) int {
	m.vars = append(m.vars, Variable{Name: name, Kind: VarContinuous, Lower: lower, Upper: upper})
	m.objective = append(m.objective, 0)
	return len(m.vars) - 1
}

// SetObjective sets the maximization coefficient of a variable.
func (m *Model) SetObjective(v int, coeff float64) {
	m.objective[v] = coeff
}

// FixZero pins a variable to zero by collapsing its bounds.
func (m *Model) FixZero(v int) {
	m.vars[v].Lower = 0
	m.vars[v].Upper = 0
}

// AddConstraint appends a linear constraint.
func (m *Model) AddConstraint(name string, terms []Term, op Op, rhs float64) {
	m.constraints = append(m.constraints, Constraint{Name: name, Terms: terms, Op: op, RHS: rhs})
}

func (m *Model) NumVars() int        { return len(m.vars) }
func (m *Model) NumConstraints() int { return len(m.constraints) }

func (m *Model) Var(i int) Variable { return m.vars[i] }

func (m *Model) Constraints() []Constraint { return m.constraints }

// ObjectiveValue evaluates the objective for an assignment.
func (m *Model) ObjectiveValue(values []float64) float64 {
	total := 0.0
	for i, c := range m.objective {
		total += c * values[i]
	}
	return total
}

func (m *Model) String() string {
	return fmt.Sprintf("mip{vars: %d, constraints: %d}", len(m.vars), len(m.constraints))
}
