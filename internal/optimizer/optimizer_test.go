package optimizer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sreekanthrajagopalan/uclfantasybot/internal/solver"
	"github.com/sreekanthrajagopalan/uclfantasybot/internal/types"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func newTestOptimizer(rules types.RuleConfig) *Optimizer {
	return New(solver.NewBranchBound(nil), rules, 30*time.Second, testLogger())
}

// matchdayPool builds the feed from the reference scenario: 4
// goalkeepers priced 4.0-5.5, 10 defenders, 10 midfielders, 6 forwards,
// points rising with price, clubs spread so the per-club cap stays slack
// for the best squad.
func matchdayPool() []types.Player {
	var players []types.Player
	add := func(id int, pos types.Position, price, pts float64) {
		players = append(players, types.Player{
			ID:              id,
			Name:            fmt.Sprintf("%s %d", pos, id),
			Position:        pos,
			Club:            fmt.Sprintf("C%d", id%10+1),
			Price:           price,
			ProjectedPoints: pts,
		})
	}
	gkPrices := []float64{4.0, 4.5, 5.0, 5.5}
	gkPoints := []float64{3.0, 3.4, 4.1, 4.8}
	for i := 0; i < 4; i++ {
		add(i+1, types.Goalkeeper, gkPrices[i], gkPoints[i])
	}
	for i := 0; i < 10; i++ {
		add(11+i, types.Defender, 4.0+0.2*float64(i), 2.0+0.4*float64(i))
	}
	for i := 0; i < 10; i++ {
		add(21+i, types.Midfielder, 5.0+0.3*float64(i), 3.0+0.45*float64(i))
	}
	for i := 0; i < 6; i++ {
		add(31+i, types.Forward, 6.0+0.6*float64(i), 3.5+0.8*float64(i))
	}
	return players
}

// ownedSquadFixture is a deliberately small pool around a full owned
// squad: two clear upgrades (midfielder 126, forward 134) priced the
// same as the deadwood they replace (125 and 133). Clubs are all
// distinct so only transfer economics drive the choice.
func ownedSquadFixture() ([]types.Player, types.SquadSnapshot) {
	specs := []struct {
		id  int
		pos types.Position
		pts float64
	}{
		{101, types.Goalkeeper, 3.0},
		{102, types.Goalkeeper, 2.0},
		{111, types.Defender, 4.0},
		{112, types.Defender, 4.0},
		{113, types.Defender, 4.0},
		{114, types.Defender, 2.0},
		{115, types.Defender, 2.0},
		{121, types.Midfielder, 5.0},
		{122, types.Midfielder, 4.8},
		{123, types.Midfielder, 4.6},
		{124, types.Midfielder, 4.4},
		{125, types.Midfielder, 2.0},
		{126, types.Midfielder, 12.0},
		{131, types.Forward, 6.0},
		{132, types.Forward, 6.0},
		{133, types.Forward, 2.0},
		{134, types.Forward, 11.0},
	}
	players := make([]types.Player, 0, len(specs))
	for i, s := range specs {
		players = append(players, types.Player{
			ID:              s.id,
			Name:            fmt.Sprintf("Player %d", s.id),
			Position:        s.pos,
			Club:            fmt.Sprintf("K%d", i+1),
			Price:           6.0,
			ProjectedPoints: s.pts,
		})
	}
	snapshot := types.SquadSnapshot{
		PlayersOwned: []int{101, 102, 111, 112, 113, 114, 115,
			121, 122, 123, 124, 125, 131, 132, 133},
		BudgetRemaining: 2.5,
		FreeTransfers:   1,
	}
	return players, snapshot
}

func assertSquadLegal(t *testing.T, solution *types.Solution, players []types.Player, rules types.RuleConfig) {
	t.Helper()
	byID := make(map[int]types.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	require.Len(t, solution.SelectedSquad, rules.SquadSize)

	posCounts := make(map[types.Position]int)
	clubCounts := make(map[string]int)
	totalPrice := 0.0
	for _, id := range solution.SelectedSquad {
		p, ok := byID[id]
		require.True(t, ok, "selected unknown player %d", id)
		posCounts[p.Position]++
		clubCounts[p.Club]++
		totalPrice += p.Price
	}
	for _, pos := range types.Positions {
		assert.Equal(t, rules.PositionQuotas[pos], posCounts[pos], "quota for %s", pos)
	}
	for club, n := range clubCounts {
		assert.LessOrEqual(t, n, rules.MaxPerClub, "club cap for %s", club)
	}
	assert.InDelta(t, totalPrice, solution.TotalCost, 1e-9)

	require.Len(t, solution.StartingEleven, rules.StartingLineupSize)
	squadSet := make(map[int]bool)
	for _, id := range solution.SelectedSquad {
		squadSet[id] = true
	}
	gkStarters := 0
	for _, id := range solution.StartingEleven {
		assert.True(t, squadSet[id], "starter %d not in squad", id)
		if byID[id].Position == types.Goalkeeper {
			gkStarters++
		}
	}
	assert.Equal(t, 1, gkStarters, "exactly one starting goalkeeper")
	assert.Contains(t, rules.Formations, solution.Formation, "formation must be admissible")

	assert.Contains(t, solution.StartingEleven, solution.Captain)
	assert.Contains(t, solution.StartingEleven, solution.ViceCaptain)
	assert.NotEqual(t, solution.Captain, solution.ViceCaptain)
}

func TestOptimize_FirstDraft(t *testing.T) {
	rules := types.DefaultRules()
	opt := newTestOptimizer(rules)
	players := matchdayPool()

	solution, err := opt.Optimize(context.Background(), players, types.SquadSnapshot{
		BudgetRemaining: 100.0,
	})
	require.NoError(t, err)
	require.NotNil(t, solution)

	assertSquadLegal(t, solution, players, rules)
	assert.LessOrEqual(t, solution.TotalCost, 100.0)
	assert.Empty(t, solution.Transfers, "a first draft makes no transfers")
}

func TestExtract_FirstDraftHasNoTransfers(t *testing.T) {
	rules := types.DefaultRules()
	var players []types.Player
	add := func(n int, pos types.Position) {
		for i := 0; i < n; i++ {
			id := len(players) + 1
			players = append(players, types.Player{
				ID:              id,
				Name:            fmt.Sprintf("Player %d", id),
				Position:        pos,
				Club:            fmt.Sprintf("K%d", id),
				Price:           6.0,
				ProjectedPoints: 3.0,
			})
		}
	}
	add(2, types.Goalkeeper)
	add(5, types.Defender)
	add(5, types.Midfielder)
	add(3, types.Forward)

	snapshot := types.SquadSnapshot{BudgetRemaining: 100.0}
	sm := buildModel(players, snapshot, rules)

	// A hand-built legal first draft: all fifteen selected, 4-4-2, the
	// starting keeper as captain.
	values := make([]float64, sm.model.NumVars())
	starters := map[types.Position]int{
		types.Goalkeeper: 1, types.Defender: 4, types.Midfielder: 4, types.Forward: 2,
	}
	for i, p := range sm.players {
		values[sm.x[i]] = 1
		if starters[p.Position] > 0 {
			starters[p.Position]--
			values[sm.s[i]] = 1
		}
	}
	values[sm.c[0]] = 1

	solution, err := sm.extract(&solver.Result{Status: solver.StatusOptimal, Values: values},
		snapshot, rules)
	require.NoError(t, err)
	assert.Len(t, solution.SelectedSquad, rules.SquadSize)
	assert.Empty(t, solution.Transfers, "a first draft has nothing to drop")
	assert.Equal(t, 1, solution.Captain)
}

func TestOptimize_Determinism(t *testing.T) {
	rules := types.DefaultRules()
	players := matchdayPool()
	snapshot := types.SquadSnapshot{BudgetRemaining: 100.0}

	first, err := newTestOptimizer(rules).Optimize(context.Background(), players, snapshot)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := newTestOptimizer(rules).Optimize(context.Background(), players, snapshot)
		require.NoError(t, err)
		assert.Equal(t, first.SelectedSquad, again.SelectedSquad, "run %d squad diverged", i)
		assert.Equal(t, first.StartingEleven, again.StartingEleven, "run %d lineup diverged", i)
		assert.Equal(t, first.Captain, again.Captain, "run %d captain diverged", i)
	}
}

func TestOptimize_EmptySquadBootstrap(t *testing.T) {
	// With nothing owned there is nothing to drop, so the free transfer
	// allowance must not matter at all.
	rules := types.DefaultRules()
	players := matchdayPool()

	zero, err := newTestOptimizer(rules).Optimize(context.Background(), players,
		types.SquadSnapshot{BudgetRemaining: 100.0, FreeTransfers: 0})
	require.NoError(t, err)
	five, err := newTestOptimizer(rules).Optimize(context.Background(), players,
		types.SquadSnapshot{BudgetRemaining: 100.0, FreeTransfers: 5})
	require.NoError(t, err)

	assert.Empty(t, zero.Transfers)
	assert.Equal(t, zero.SelectedSquad, five.SelectedSquad)
	assert.InDelta(t, zero.ObjectiveValue, five.ObjectiveValue, 1e-9)
}

func TestOptimize_UpgradeSwapsTwoPlayers(t *testing.T) {
	rules := types.DefaultRules()
	players, snapshot := ownedSquadFixture()

	solution, err := newTestOptimizer(rules).Optimize(context.Background(), players, snapshot)
	require.NoError(t, err)
	assertSquadLegal(t, solution, players, rules)

	// Both upgrades clear the transfer penalty; the deadwood goes.
	require.Len(t, solution.Transfers, 2)
	assert.Equal(t, types.Transfer{DroppedID: 125, AddedID: 126}, solution.Transfers[0])
	assert.Equal(t, types.Transfer{DroppedID: 133, AddedID: 134}, solution.Transfers[1])

	assert.Equal(t, []int{101, 111, 112, 113, 121, 122, 123, 126, 131, 132, 134},
		solution.StartingEleven)
	assert.Equal(t, types.Formation{Def: 3, Mid: 4, Fwd: 3}, solution.Formation)
	assert.Equal(t, 126, solution.Captain, "highest-scoring starter wears the armband")
	assert.Equal(t, 134, solution.ViceCaptain)

	// One of the two transfers is free; the other costs the penalty:
	// 64.4 lineup points + 12 captain double - 4.0 penalty.
	assert.InDelta(t, 72.4, solution.ObjectiveValue, 1e-6)
}

func TestOptimize_TransferPenaltyMonotonicity(t *testing.T) {
	rules := types.DefaultRules()
	players, snapshot := ownedSquadFixture()

	oneFree, err := newTestOptimizer(rules).Optimize(context.Background(), players, snapshot)
	require.NoError(t, err)

	snapshot.FreeTransfers = 2
	twoFree, err := newTestOptimizer(rules).Optimize(context.Background(), players, snapshot)
	require.NoError(t, err)

	assert.Equal(t, oneFree.SelectedSquad, twoFree.SelectedSquad)
	assert.Equal(t, oneFree.StartingEleven, twoFree.StartingEleven)
	assert.InDelta(t, rules.TransferPenalty, twoFree.ObjectiveValue-oneFree.ObjectiveValue, 1e-6,
		"one extra paid transfer costs exactly the penalty")
}

func TestOptimize_InactiveOwnedPlayerForcedOut(t *testing.T) {
	rules := types.DefaultRules()
	players, snapshot := ownedSquadFixture()
	for i := range players {
		if players[i].ID == 124 {
			players[i].Inactive = true
		}
	}

	solution, err := newTestOptimizer(rules).Optimize(context.Background(), players, snapshot)
	require.NoError(t, err)
	assertSquadLegal(t, solution, players, rules)

	assert.NotContains(t, solution.SelectedSquad, 124, "inactive owned player cannot be kept")
	assert.Contains(t, solution.SelectedSquad, 125)
	require.Len(t, solution.Transfers, 2)
	assert.Equal(t, types.Transfer{DroppedID: 124, AddedID: 126}, solution.Transfers[0])
}

func TestOptimize_InactiveCandidateFiltered(t *testing.T) {
	rules := types.DefaultRules()
	players, snapshot := ownedSquadFixture()
	for i := range players {
		if players[i].ID == 126 {
			players[i].Inactive = true
		}
	}

	solution, err := newTestOptimizer(rules).Optimize(context.Background(), players, snapshot)
	require.NoError(t, err)
	assertSquadLegal(t, solution, players, rules)

	assert.NotContains(t, solution.SelectedSquad, 126)
	require.Len(t, solution.Transfers, 1)
	assert.Equal(t, types.Transfer{DroppedID: 133, AddedID: 134}, solution.Transfers[0])
	assert.Equal(t, 134, solution.Captain)
	assert.Equal(t, 131, solution.ViceCaptain, "vice tie resolves to the lowest id")
	assert.InDelta(t, 67.8, solution.ObjectiveValue, 1e-6)
}

func TestOptimize_InfeasibleBudget(t *testing.T) {
	rules := types.DefaultRules()
	players, _ := ownedSquadFixture()

	// Every player costs 6.0, so any 15-player squad costs 90.
	_, err := newTestOptimizer(rules).Optimize(context.Background(), players,
		types.SquadSnapshot{BudgetRemaining: 50.0})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestOptimize_Timeout(t *testing.T) {
	rules := types.DefaultRules()
	players := matchdayPool()

	opt := New(solver.NewBranchBound(nil), rules, time.Nanosecond, testLogger())
	_, err := opt.Optimize(context.Background(), players, types.SquadSnapshot{BudgetRemaining: 100.0})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSolverTimeout)
}

// failingSolver stands in for a solver that cannot be invoked.
type failingSolver struct {
	calls int
	err   error
}

func (f *failingSolver) Solve(ctx context.Context, m *solver.Model) (*solver.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &solver.Result{Status: solver.StatusUnbounded}, nil
}

func TestOptimize_SolverUnavailable(t *testing.T) {
	rules := types.DefaultRules()
	players := matchdayPool()
	snapshot := types.SquadSnapshot{BudgetRemaining: 100.0}

	broken := &failingSolver{err: errors.New("cbc binary not found")}
	_, err := New(broken, rules, time.Second, testLogger()).Optimize(context.Background(), players, snapshot)
	assert.ErrorIs(t, err, ErrSolverUnavailable)

	weird := &failingSolver{}
	_, err = New(weird, rules, time.Second, testLogger()).Optimize(context.Background(), players, snapshot)
	assert.ErrorIs(t, err, ErrSolverUnavailable)
}

func TestOptimize_ValidationRunsBeforeSolver(t *testing.T) {
	rules := types.DefaultRules()
	spy := &failingSolver{err: errors.New("should never be reached")}
	opt := New(spy, rules, time.Second, testLogger())

	_, err := opt.Optimize(context.Background(), nil, types.SquadSnapshot{})
	require.Error(t, err)
	_, ok := AsValidationError(err)
	assert.True(t, ok, "expected a validation error, got %v", err)
	assert.Zero(t, spy.calls, "invalid input must never reach the solver")
}
