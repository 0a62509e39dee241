package optimizer

import (
	"fmt"

	"github.com/sreekanthrajagopalan/uclfantasybot/internal/solver"
	"github.com/sreekanthrajagopalan/uclfantasybot/internal/types"
)

// squadModel couples the abstract MIP with the index maps needed to
// read a squad back out of a solved assignment.
type squadModel struct {
	model   *solver.Model
	players []types.Player
	// Variable indices, parallel to players: x selects into the squad,
	// s into the starting eleven, c marks the captain.
	x []int
	s []int
	c []int
	// e counts transfers beyond the free allowance.
	e int
}

// buildModel translates players, snapshot and rules into the squad
// selection MIP. It always returns a well-formed model; feasibility is
// the solver's verdict, not the builder's.
func buildModel(players []types.Player, snapshot types.SquadSnapshot, rules types.RuleConfig) *squadModel {
	m := solver.NewModel()
	sm := &squadModel{
		model:   m,
		players: players,
		x:       make([]int, len(players)),
		s:       make([]int, len(players)),
		c:       make([]int, len(players)),
	}

	owned := snapshot.OwnedSet()
	for i, p := range players {
		sm.x[i] = m.AddBinary(fmt.Sprintf("x_%d", p.ID))
		sm.s[i] = m.AddBinary(fmt.Sprintf("s_%d", p.ID))
		sm.c[i] = m.AddBinary(fmt.Sprintf("c_%d", p.ID))
		m.SetObjective(sm.s[i], p.ProjectedPoints)
		m.SetObjective(sm.c[i], p.ProjectedPoints)

		// An unavailable owned player stays in the model so dropping
		// them flows through transfer accounting, but cannot be kept.
		if p.Inactive {
			m.FixZero(sm.x[i])
		}
	}
	sm.e = m.AddInteger("extra_transfers", 0, float64(len(snapshot.PlayersOwned)))
	m.SetObjective(sm.e, -rules.TransferPenalty)

	// Squad size.
	squadTerms := make([]solver.Term, len(players))
	for i := range players {
		squadTerms[i] = solver.Term{Var: sm.x[i], Coeff: 1}
	}
	m.AddConstraint("squad_size", squadTerms, solver.EQ, float64(rules.SquadSize))

	// Position quotas.
	for _, pos := range types.Positions {
		var terms []solver.Term
		for i, p := range players {
			if p.Position == pos {
				terms = append(terms, solver.Term{Var: sm.x[i], Coeff: 1})
			}
		}
		m.AddConstraint(fmt.Sprintf("quota_%s", pos), terms, solver.EQ, float64(rules.PositionQuotas[pos]))
	}

	// Per-club cap, clubs in first-seen feed order.
	var clubs []string
	clubSeen := make(map[string]bool)
	for _, p := range players {
		if !clubSeen[p.Club] {
			clubSeen[p.Club] = true
			clubs = append(clubs, p.Club)
		}
	}
	for _, club := range clubs {
		var terms []solver.Term
		for i, p := range players {
			if p.Club == club {
				terms = append(terms, solver.Term{Var: sm.x[i], Coeff: 1})
			}
		}
		m.AddConstraint(fmt.Sprintf("club_cap_%s", club), terms, solver.LE, float64(rules.MaxPerClub))
	}

	// Budget: spend at most the bank plus the resale value of the
	// current squad. Resale is the current listed price; sell-on fees
	// are not modeled.
	budget := snapshot.BudgetRemaining
	for _, p := range players {
		if owned[p.ID] {
			budget += p.Price
		}
	}
	budgetTerms := make([]solver.Term, len(players))
	for i, p := range players {
		budgetTerms[i] = solver.Term{Var: sm.x[i], Coeff: p.Price}
	}
	m.AddConstraint("budget", budgetTerms, solver.LE, budget)

	// Starting eleven: size, one goalkeeper, and formation bounds for
	// the outfield positions.
	lineupTerms := make([]solver.Term, len(players))
	for i := range players {
		lineupTerms[i] = solver.Term{Var: sm.s[i], Coeff: 1}
	}
	m.AddConstraint("lineup_size", lineupTerms, solver.EQ, float64(rules.StartingLineupSize))

	minByPos, maxByPos := rules.FormationBounds()
	for _, pos := range types.Positions {
		var terms []solver.Term
		for i, p := range players {
			if p.Position == pos {
				terms = append(terms, solver.Term{Var: sm.s[i], Coeff: 1})
			}
		}
		if pos == types.Goalkeeper {
			m.AddConstraint("starting_gk", terms, solver.EQ, 1)
			continue
		}
		m.AddConstraint(fmt.Sprintf("formation_min_%s", pos), terms, solver.GE, float64(minByPos[pos]))
		m.AddConstraint(fmt.Sprintf("formation_max_%s", pos), terms, solver.LE, float64(maxByPos[pos]))
	}

	// Starters come from the squad, the captain from the starters.
	for i, p := range players {
		m.AddConstraint(fmt.Sprintf("start_in_squad_%d", p.ID),
			[]solver.Term{{Var: sm.s[i], Coeff: 1}, {Var: sm.x[i], Coeff: -1}}, solver.LE, 0)
		m.AddConstraint(fmt.Sprintf("captain_starts_%d", p.ID),
			[]solver.Term{{Var: sm.c[i], Coeff: 1}, {Var: sm.s[i], Coeff: -1}}, solver.LE, 0)
	}
	captainTerms := make([]solver.Term, len(players))
	for i := range players {
		captainTerms[i] = solver.Term{Var: sm.c[i], Coeff: 1}
	}
	m.AddConstraint("one_captain", captainTerms, solver.EQ, 1)

	// Transfer accounting, linearized: dropped players are the owned
	// players not retained, and e absorbs max(0, dropped - free).
	// With no owned players the sum is empty and e stays zero.
	var transferTerms []solver.Term
	for i, p := range players {
		if owned[p.ID] {
			transferTerms = append(transferTerms, solver.Term{Var: sm.x[i], Coeff: 1})
		}
	}
	transferTerms = append(transferTerms, solver.Term{Var: sm.e, Coeff: 1})
	m.AddConstraint("extra_transfers", transferTerms, solver.GE,
		float64(len(snapshot.PlayersOwned)-snapshot.FreeTransfers))

	return sm
}
