// Package optimizer turns a matchday player feed and a squad snapshot
// into a recommended squad, starting eleven and captaincy via a
// mixed-integer program. It recommends only; submitting transfers back
// to the platform is the caller's business.
package optimizer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sreekanthrajagopalan/uclfantasybot/internal/solver"
	"github.com/sreekanthrajagopalan/uclfantasybot/internal/types"
)

// binaryTol is the tolerance for rounding near-binary solver output.
const binaryTol = 1e-6

// Optimizer builds and solves the squad selection model for one
// matchday at a time. It holds no per-run state; concurrent calls with
// independent inputs are safe.
type Optimizer struct {
	solver  solver.Solver
	rules   types.RuleConfig
	timeout time.Duration
	logger  *logrus.Logger
}

// New creates an Optimizer. A zero timeout disables the wall-clock
// bound on the solve.
func New(s solver.Solver, rules types.RuleConfig, timeout time.Duration, logger *logrus.Logger) *Optimizer {
	return &Optimizer{solver: s, rules: rules, timeout: timeout, logger: logger}
}

// Rules returns the rule configuration the optimizer was built with.
func (o *Optimizer) Rules() types.RuleConfig {
	return o.rules
}

// Validate runs input validation only, without building or solving.
func (o *Optimizer) Validate(players []types.Player, snapshot types.SquadSnapshot) error {
	return validateInputs(players, snapshot, o.rules)
}

// Optimize selects the best squad for the matchday. It validates the
// inputs, builds the MIP, runs the solver under the configured timeout
// and extracts the recommendation. Failures are classified: a
// ValidationError for bad input, ErrInfeasible, ErrSolverTimeout or
// ErrSolverUnavailable for solver-side outcomes. It never degrades to a
// partial answer and never retries.
func (o *Optimizer) Optimize(ctx context.Context, players []types.Player, snapshot types.SquadSnapshot) (*types.Solution, error) {
	optimizationID := uuid.New().String()
	start := time.Now()

	log := o.logger.WithFields(logrus.Fields{
		"optimization_id": optimizationID,
		"total_players":   len(players),
		"owned_players":   len(snapshot.PlayersOwned),
		"free_transfers":  snapshot.FreeTransfers,
	})
	log.Info("Starting squad optimization")

	if err := validateInputs(players, snapshot, o.rules); err != nil {
		log.WithError(err).Warn("Input validation failed")
		return nil, err
	}

	candidates := o.filterPlayers(players, snapshot, log)

	sm := buildModel(candidates, snapshot, o.rules)
	log.WithFields(logrus.Fields{
		"candidates":  len(candidates),
		"variables":   sm.model.NumVars(),
		"constraints": sm.model.NumConstraints(),
	}).Debug("Model built")

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	result, err := o.solver.Solve(ctx, sm.model)
	if err != nil {
		log.WithError(err).Error("Solver invocation failed")
		return nil, fmt.Errorf("%w: %v", ErrSolverUnavailable, err)
	}

	log.WithFields(logrus.Fields{
		"status":   result.Status.String(),
		"nodes":    result.Nodes,
		"duration": time.Since(start),
	}).Info("Solve finished")

	switch result.Status {
	case solver.StatusOptimal, solver.StatusFeasible:
		// Confirmed optimum, or best incumbent within the time budget.
	case solver.StatusInfeasible:
		return nil, fmt.Errorf("%w (budget %.1f, squad size %d)", ErrInfeasible,
			snapshot.BudgetRemaining, o.rules.SquadSize)
	case solver.StatusTimeout:
		return nil, fmt.Errorf("%w after %s", ErrSolverTimeout, o.timeout)
	default:
		return nil, fmt.Errorf("%w: unexpected solver status %s", ErrSolverUnavailable, result.Status)
	}

	solution, err := sm.extract(result, snapshot, o.rules)
	if err != nil {
		log.WithError(err).Error("Result extraction failed")
		return nil, fmt.Errorf("%w: %v", ErrSolverUnavailable, err)
	}

	log.WithFields(logrus.Fields{
		"objective": solution.ObjectiveValue,
		"transfers": len(solution.Transfers),
		"formation": solution.Formation.String(),
		"captain":   solution.Captain,
	}).Info("Squad optimization completed")

	return solution, nil
}

// filterPlayers drops inactive players that are not owned; owned
// players always stay in the pool so transfer accounting sees them.
// Candidates are ordered by id so repeated runs build identical models.
func (o *Optimizer) filterPlayers(players []types.Player, snapshot types.SquadSnapshot, log *logrus.Entry) []types.Player {
	owned := snapshot.OwnedSet()
	filtered := make([]types.Player, 0, len(players))
	inactiveCount := 0
	for _, p := range players {
		if p.Inactive && !owned[p.ID] {
			inactiveCount++
			continue
		}
		p.Owned = owned[p.ID]
		filtered = append(filtered, p)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].ID < filtered[j].ID })

	log.WithFields(logrus.Fields{
		"inactive_count":  inactiveCount,
		"available_count": len(filtered),
	}).Debug("Player filtering complete")

	return filtered
}

// extract reads the solved assignment back into a Solution. Near-binary
// values are rounded at a fixed tolerance; anything further from 0/1
// than that is a solver defect, not something to paper over.
func (sm *squadModel) extract(result *solver.Result, snapshot types.SquadSnapshot, rules types.RuleConfig) (*types.Solution, error) {
	selected := make(map[int]types.Player)
	starters := make(map[int]types.Player)
	captain := -1

	for i, p := range sm.players {
		xv, err := roundBinary(result.Values[sm.x[i]])
		if err != nil {
			return nil, fmt.Errorf("squad variable for player %d: %w", p.ID, err)
		}
		sv, err := roundBinary(result.Values[sm.s[i]])
		if err != nil {
			return nil, fmt.Errorf("lineup variable for player %d: %w", p.ID, err)
		}
		cv, err := roundBinary(result.Values[sm.c[i]])
		if err != nil {
			return nil, fmt.Errorf("captain variable for player %d: %w", p.ID, err)
		}
		if xv == 1 {
			selected[p.ID] = p
		}
		if sv == 1 {
			starters[p.ID] = p
		}
		if cv == 1 {
			if captain >= 0 {
				return nil, fmt.Errorf("two captains in assignment: %d and %d", captain, p.ID)
			}
			captain = p.ID
		}
	}
	if captain < 0 {
		return nil, fmt.Errorf("no captain in assignment")
	}

	solution := &types.Solution{
		SelectedSquad:  sortedIDs(selected),
		StartingEleven: sortedIDs(starters),
		Captain:        captain,
	}

	// Vice-captain: highest projected points among non-captain
	// starters, lowest id on ties.
	vice := -1
	for _, id := range solution.StartingEleven {
		if id == captain {
			continue
		}
		if vice < 0 || starters[id].ProjectedPoints > starters[vice].ProjectedPoints {
			vice = id
		}
	}
	solution.ViceCaptain = vice

	// Transfers: owned players not retained, paired positionally with
	// the additions. The pairing is informational only. A first draft
	// has no squad to modify, so nothing is paired and none reported.
	var droppedIDs []int
	if len(snapshot.PlayersOwned) > 0 {
		var addedIDs []int
		owned := snapshot.OwnedSet()
		for _, id := range snapshot.PlayersOwned {
			if _, kept := selected[id]; !kept {
				droppedIDs = append(droppedIDs, id)
			}
		}
		for _, id := range solution.SelectedSquad {
			if !owned[id] {
				addedIDs = append(addedIDs, id)
			}
		}
		sort.Ints(droppedIDs)
		sort.Ints(addedIDs)
		if len(droppedIDs) != len(addedIDs) {
			return nil, fmt.Errorf("transfer mismatch: %d dropped, %d added", len(droppedIDs), len(addedIDs))
		}
		for i := range droppedIDs {
			solution.Transfers = append(solution.Transfers, types.Transfer{
				DroppedID: droppedIDs[i],
				AddedID:   addedIDs[i],
			})
		}
	}

	for _, p := range selected {
		solution.TotalCost += p.Price
	}
	for _, p := range starters {
		switch p.Position {
		case types.Defender:
			solution.Formation.Def++
		case types.Midfielder:
			solution.Formation.Mid++
		case types.Forward:
			solution.Formation.Fwd++
		}
	}

	// Recompute the net objective from the selection itself; the
	// solver's floating-point objective can drift by more than the
	// scoring granularity.
	extra := len(droppedIDs) - snapshot.FreeTransfers
	if extra < 0 {
		extra = 0
	}
	for _, p := range starters {
		solution.ObjectiveValue += p.ProjectedPoints
	}
	solution.ObjectiveValue += starters[captain].ProjectedPoints
	solution.ObjectiveValue -= rules.TransferPenalty * float64(extra)

	return solution, nil
}

func roundBinary(v float64) (int, error) {
	if math.Abs(v) <= binaryTol {
		return 0, nil
	}
	if math.Abs(v-1) <= binaryTol {
		return 1, nil
	}
	return 0, fmt.Errorf("value %v is not binary within tolerance", v)
}

func sortedIDs(players map[int]types.Player) []int {
	ids := make([]int, 0, len(players))
	for id := range players {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
