package solver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchBound_Knapsack(t *testing.T) {
	m := NewModel()
	x1 := m.AddBinary("x1")
	x2 := m.AddBinary("x2")
	x3 := m.AddBinary("x3")
	m.SetObjective(x1, 10)
	m.SetObjective(x2, 6)
	m.SetObjective(x3, 4)
	m.AddConstraint("pick_two", []Term{{x1, 1}, {x2, 1}, {x3, 1}}, LE, 2)

	result, err := NewBranchBound(nil).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, result.Status)

	assert.InDelta(t, 16.0, result.Objective, 1e-6)
	assert.InDelta(t, 1.0, result.Values[x1], 1e-6)
	assert.InDelta(t, 1.0, result.Values[x2], 1e-6)
	assert.InDelta(t, 0.0, result.Values[x3], 1e-6)
}

func TestBranchBound_FractionalRelaxationForcesBranching(t *testing.T) {
	// The LP relaxation sits at x1 = x2 = 0.75 with objective 1.5; the
	// integer optimum is a single variable at 1.
	m := NewModel()
	x1 := m.AddBinary("x1")
	x2 := m.AddBinary("x2")
	m.SetObjective(x1, 1)
	m.SetObjective(x2, 1)
	m.AddConstraint("cap", []Term{{x1, 2}, {x2, 2}}, LE, 3)

	result, err := NewBranchBound(nil).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, result.Status)

	assert.InDelta(t, 1.0, result.Objective, 1e-6)
	total := result.Values[x1] + result.Values[x2]
	assert.InDelta(t, 1.0, total, 1e-6)
	assert.Greater(t, result.Nodes, 1, "should have branched")
}

func TestBranchBound_IntegerSlackVariable(t *testing.T) {
	// e absorbs the overflow of x1+x2 past 1 at a cost of 2 per unit.
	m := NewModel()
	x1 := m.AddBinary("x1")
	x2 := m.AddBinary("x2")
	e := m.AddInteger("e", 0, 2)
	m.SetObjective(x1, 5)
	m.SetObjective(x2, 5)
	m.SetObjective(e, -2)
	m.AddConstraint("overflow", []Term{{x1, 1}, {x2, 1}, {e, -1}}, LE, 1)

	result, err := NewBranchBound(nil).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, result.Status)

	assert.InDelta(t, 8.0, result.Objective, 1e-6)
	assert.InDelta(t, 1.0, result.Values[x1], 1e-6)
	assert.InDelta(t, 1.0, result.Values[x2], 1e-6)
	assert.InDelta(t, 1.0, result.Values[e], 1e-6)
}

func TestBranchBound_RedundantEqualities(t *testing.T) {
	// The total row is the sum of the two group rows, the shape a squad
	// model takes when position quotas sum to the squad size. Linearly
	// dependent rows must not break the solve.
	m := NewModel()
	x1 := m.AddBinary("x1")
	x2 := m.AddBinary("x2")
	x3 := m.AddBinary("x3")
	x4 := m.AddBinary("x4")
	m.SetObjective(x1, 3)
	m.SetObjective(x2, 2)
	m.SetObjective(x3, 5)
	m.SetObjective(x4, 4)
	m.AddConstraint("group_a", []Term{{x1, 1}, {x2, 1}}, EQ, 1)
	m.AddConstraint("group_b", []Term{{x3, 1}, {x4, 1}}, EQ, 1)
	m.AddConstraint("total", []Term{{x1, 1}, {x2, 1}, {x3, 1}, {x4, 1}}, EQ, 2)

	result, err := NewBranchBound(nil).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, result.Status)

	assert.InDelta(t, 8.0, result.Objective, 1e-6)
	assert.InDelta(t, 1.0, result.Values[x1], 1e-6)
	assert.InDelta(t, 1.0, result.Values[x3], 1e-6)
}

func TestBranchBound_Infeasible(t *testing.T) {
	m := NewModel()
	x1 := m.AddBinary("x1")
	x2 := m.AddBinary("x2")
	m.SetObjective(x1, 1)
	m.AddConstraint("impossible", []Term{{x1, 1}, {x2, 1}}, GE, 3)

	result, err := NewBranchBound(nil).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, result.Status)
	assert.Nil(t, result.Values)
}

func TestBranchBound_EmptyConstraintContradiction(t *testing.T) {
	// An equality over no live variables cannot be met; this is how an
	// empty position quota surfaces.
	m := NewModel()
	x1 := m.AddBinary("x1")
	m.SetObjective(x1, 1)
	m.AddConstraint("pick", []Term{{x1, 1}}, LE, 1)
	m.AddConstraint("empty_quota", nil, EQ, 2)

	result, err := NewBranchBound(nil).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, result.Status)
}

func TestBranchBound_FixedVariable(t *testing.T) {
	m := NewModel()
	x1 := m.AddBinary("x1")
	x2 := m.AddBinary("x2")
	m.SetObjective(x1, 10)
	m.SetObjective(x2, 1)
	m.AddConstraint("pick_one", []Term{{x1, 1}, {x2, 1}}, LE, 1)
	m.FixZero(x1)

	result, err := NewBranchBound(nil).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, result.Status)

	assert.InDelta(t, 1.0, result.Objective, 1e-6)
	assert.InDelta(t, 0.0, result.Values[x1], 1e-6)
	assert.InDelta(t, 1.0, result.Values[x2], 1e-6)
}

func TestBranchBound_ExpiredDeadline(t *testing.T) {
	m := NewModel()
	x1 := m.AddBinary("x1")
	m.SetObjective(x1, 1)
	m.AddConstraint("cap", []Term{{x1, 1}}, LE, 1)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	result, err := NewBranchBound(nil).Solve(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, StatusTimeout, result.Status)
	assert.Zero(t, result.Nodes)
}

func TestBranchBound_Determinism(t *testing.T) {
	// Two symmetric optima; repeated solves must land on the same one.
	build := func() *Model {
		m := NewModel()
		x1 := m.AddBinary("x1")
		x2 := m.AddBinary("x2")
		m.SetObjective(x1, 1)
		m.SetObjective(x2, 1)
		m.AddConstraint("pick_one", []Term{{x1, 1}, {x2, 1}}, LE, 1)
		return m
	}

	first, err := NewBranchBound(nil).Solve(context.Background(), build())
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, first.Status)

	for i := 0; i < 5; i++ {
		again, err := NewBranchBound(nil).Solve(context.Background(), build())
		require.NoError(t, err)
		assert.Equal(t, first.Values, again.Values, "run %d diverged", i)
	}
}
