package optimizer

import (
	"fmt"

	"github.com/sreekanthrajagopalan/uclfantasybot/internal/types"
)

// validateInputs checks the player feed and squad snapshot before any
// model is built. Malformed input fails fast with a ValidationError.
func validateInputs(players []types.Player, snapshot types.SquadSnapshot, rules types.RuleConfig) error {
	var problems []string

	if err := rules.Validate(); err != nil {
		problems = append(problems, fmt.Sprintf("rules: %v", err))
	}

	if len(players) == 0 {
		problems = append(problems, "player feed is empty")
	}

	seen := make(map[int]bool, len(players))
	for _, p := range players {
		if seen[p.ID] {
			problems = append(problems, fmt.Sprintf("duplicate player id %d", p.ID))
			continue
		}
		seen[p.ID] = true
		if p.Price < 0 {
			problems = append(problems, fmt.Sprintf("player %d has negative price %v", p.ID, p.Price))
		}
		if _, err := types.ParsePosition(string(p.Position)); err != nil {
			problems = append(problems, fmt.Sprintf("player %d: %v", p.ID, err))
		}
		if p.Club == "" {
			problems = append(problems, fmt.Sprintf("player %d has no club", p.ID))
		}
	}

	if snapshot.BudgetRemaining < 0 {
		problems = append(problems, fmt.Sprintf("negative bank %v", snapshot.BudgetRemaining))
	}
	if snapshot.FreeTransfers < 0 {
		problems = append(problems, fmt.Sprintf("negative free transfer count %d", snapshot.FreeTransfers))
	}
	if n := len(snapshot.PlayersOwned); n != 0 && n != rules.SquadSize {
		problems = append(problems, fmt.Sprintf("owned squad has %d players, expected 0 or %d", n, rules.SquadSize))
	}
	ownedSeen := make(map[int]bool, len(snapshot.PlayersOwned))
	for _, id := range snapshot.PlayersOwned {
		if ownedSeen[id] {
			problems = append(problems, fmt.Sprintf("owned player id %d listed twice", id))
			continue
		}
		ownedSeen[id] = true
		if !seen[id] {
			problems = append(problems, fmt.Sprintf("owned player id %d missing from the feed", id))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
