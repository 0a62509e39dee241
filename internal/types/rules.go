package types

import "fmt"

// Formation is the (DEF, MID, FWD) split of the starting eleven.
// The goalkeeper slot is always exactly one and is not part of the split.
type Formation struct {
	Def int `json:"def"`
	Mid int `json:"mid"`
	Fwd int `json:"fwd"`
}

func (f Formation) String() string {
	return fmt.Sprintf("%d-%d-%d", f.Def, f.Mid, f.Fwd)
}

// DefaultFormations are the admissible starting formations. Each sums to
// ten outfield starters.
var DefaultFormations = []Formation{
	{Def: 3, Mid: 4, Fwd: 3},
	{Def: 3, Mid: 5, Fwd: 2},
	{Def: 4, Mid: 3, Fwd: 3},
	{Def: 4, Mid: 4, Fwd: 2},
	{Def: 4, Mid: 5, Fwd: 1},
	{Def: 5, Mid: 2, Fwd: 3},
	{Def: 5, Mid: 3, Fwd: 2},
	{Def: 5, Mid: 4, Fwd: 1},
}

// RuleConfig carries the constant rule parameters for one optimization
// run. It is an immutable value handed to the model builder; per-run
// inputs (players, snapshot) never live here.
type RuleConfig struct {
	SquadSize          int              `json:"squad_size"`
	PositionQuotas     map[Position]int `json:"position_quotas"`
	MaxPerClub         int              `json:"max_per_club"`
	StartingLineupSize int              `json:"starting_lineup_size"`
	Formations         []Formation      `json:"formations"`
	BudgetCap          float64          `json:"budget_cap"`
	TransferPenalty    float64          `json:"transfer_penalty_per_extra"`
}

// DefaultRules returns the UCL Fantasy group-stage rule set.
func DefaultRules() RuleConfig {
	return RuleConfig{
		SquadSize: 15,
		PositionQuotas: map[Position]int{
			Goalkeeper: 2,
			Defender:   5,
			Midfielder: 5,
			Forward:    3,
		},
		MaxPerClub:         3,
		StartingLineupSize: 11,
		Formations:         DefaultFormations,
		BudgetCap:          100.0,
		TransferPenalty:    4.0,
	}
}

// Validate checks internal consistency of the rule set.
func (r RuleConfig) Validate() error {
	if r.SquadSize <= 0 {
		return fmt.Errorf("squad size must be positive, got %d", r.SquadSize)
	}
	quotaSum := 0
	for _, pos := range Positions {
		q, ok := r.PositionQuotas[pos]
		if !ok {
			return fmt.Errorf("missing position quota for %s", pos)
		}
		if q < 0 {
			return fmt.Errorf("negative quota %d for %s", q, pos)
		}
		quotaSum += q
	}
	if quotaSum != r.SquadSize {
		return fmt.Errorf("position quotas sum to %d, squad size is %d", quotaSum, r.SquadSize)
	}
	if r.MaxPerClub <= 0 {
		return fmt.Errorf("max per club must be positive, got %d", r.MaxPerClub)
	}
	if r.StartingLineupSize <= 0 || r.StartingLineupSize > r.SquadSize {
		return fmt.Errorf("starting lineup size %d out of range for squad size %d",
			r.StartingLineupSize, r.SquadSize)
	}
	if len(r.Formations) == 0 {
		return fmt.Errorf("no admissible formations configured")
	}
	outfield := r.StartingLineupSize - 1
	for _, f := range r.Formations {
		if f.Def+f.Mid+f.Fwd != outfield {
			return fmt.Errorf("formation %s does not sum to %d outfield starters", f, outfield)
		}
		if f.Def > r.PositionQuotas[Defender] || f.Mid > r.PositionQuotas[Midfielder] ||
			f.Fwd > r.PositionQuotas[Forward] {
			return fmt.Errorf("formation %s exceeds the squad position quotas", f)
		}
	}
	if r.BudgetCap <= 0 {
		return fmt.Errorf("budget cap must be positive, got %v", r.BudgetCap)
	}
	if r.TransferPenalty < 0 {
		return fmt.Errorf("transfer penalty must be non-negative, got %v", r.TransferPenalty)
	}
	return nil
}

// FormationBounds derives the per-position minimum and maximum starter
// counts from the admissible formation set. Together with the fixed
// lineup size these bounds define the formation constraint.
func (r RuleConfig) FormationBounds() (min, max map[Position]int) {
	min = map[Position]int{Defender: r.SquadSize, Midfielder: r.SquadSize, Forward: r.SquadSize}
	max = map[Position]int{Defender: 0, Midfielder: 0, Forward: 0}
	for _, f := range r.Formations {
		counts := map[Position]int{Defender: f.Def, Midfielder: f.Mid, Forward: f.Fwd}
		for pos, n := range counts {
			if n < min[pos] {
				min[pos] = n
			}
			if n > max[pos] {
				max[pos] = n
			}
		}
	}
	return min, max
}

// InitialSnapshot returns the snapshot of a manager with no squad yet:
// the full budget cap in the bank and nothing owned.
func (r RuleConfig) InitialSnapshot() SquadSnapshot {
	return SquadSnapshot{BudgetRemaining: r.BudgetCap}
}
