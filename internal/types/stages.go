package types

import "fmt"

// Stage is a phase of the competition. The per-club cap loosens as the
// field shrinks in the knockout rounds.
type Stage string

const (
	GroupStage    Stage = "Group stage"
	RoundOf16     Stage = "Round of 16"
	QuarterFinals Stage = "Quarter-finals"
	SemiFinals    Stage = "Semi-finals"
	Final         Stage = "Final"
)

const NumMatchdays = 13

var matchdaysInStages = map[Stage][]int{
	GroupStage:    {1, 2, 3, 4, 5, 6},
	RoundOf16:     {7, 8},
	QuarterFinals: {9, 10},
	SemiFinals:    {11, 12},
	Final:         {13},
}

var maxPerClubByStage = map[Stage]int{
	GroupStage:    3,
	RoundOf16:     4,
	QuarterFinals: 5,
	SemiFinals:    6,
	Final:         8,
}

// Free transfers granted ahead of each matchday. Matchdays 1 and 7 are
// wildcard rounds where the whole squad may be rebuilt.
var freeTransfersByMatchday = map[int]int{
	1: 15, 2: 2, 3: 2, 4: 2, 5: 2, 6: 2,
	7: 15, 8: 3, 9: 5, 10: 3, 11: 5, 12: 3, 13: 5,
}

// StageForMatchday returns the competition stage a matchday belongs to.
func StageForMatchday(matchday int) (Stage, error) {
	for stage, matchdays := range matchdaysInStages {
		for _, md := range matchdays {
			if md == matchday {
				return stage, nil
			}
		}
	}
	return "", fmt.Errorf("matchday %d out of range 1..%d", matchday, NumMatchdays)
}

// FreeTransfersForMatchday returns the free transfer allowance granted
// ahead of the given matchday.
func FreeTransfersForMatchday(matchday int) (int, error) {
	n, ok := freeTransfersByMatchday[matchday]
	if !ok {
		return 0, fmt.Errorf("matchday %d out of range 1..%d", matchday, NumMatchdays)
	}
	return n, nil
}

// RulesForMatchday adjusts the default rule set for a matchday: the
// per-club cap follows the stage and the budget cap rises for the
// knockout rounds.
func RulesForMatchday(matchday int) (RuleConfig, error) {
	stage, err := StageForMatchday(matchday)
	if err != nil {
		return RuleConfig{}, err
	}
	rules := DefaultRules()
	rules.MaxPerClub = maxPerClubByStage[stage]
	if matchday > 6 {
		rules.BudgetCap = 105.0
	}
	return rules, nil
}
