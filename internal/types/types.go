// Package types holds the shared data model for squad optimization:
// the player feed shape, the manager's squad snapshot, the rule
// configuration and the solved squad recommendation.
package types

import "fmt"

// Position is a player's role on the pitch.
type Position string

const (
	Goalkeeper Position = "GK"
	Defender   Position = "DEF"
	Midfielder Position = "MID"
	Forward    Position = "FWD"
)

// Positions lists all positions in quota order.
var Positions = []Position{Goalkeeper, Defender, Midfielder, Forward}

// ParsePosition maps a feed position code to a Position.
func ParsePosition(code string) (Position, error) {
	switch code {
	case "GK", "Goalkeeper":
		return Goalkeeper, nil
	case "DEF", "Defender":
		return Defender, nil
	case "MID", "Midfielder":
		return Midfielder, nil
	case "FWD", "Forward":
		return Forward, nil
	}
	return "", fmt.Errorf("unknown position code %q", code)
}

// PositionFromSkill maps the feed's numeric skill code (1=GK .. 4=FWD)
// to a Position.
func PositionFromSkill(skill int) (Position, error) {
	switch skill {
	case 1:
		return Goalkeeper, nil
	case 2:
		return Defender, nil
	case 3:
		return Midfielder, nil
	case 4:
		return Forward, nil
	}
	return "", fmt.Errorf("unknown skill code %d", skill)
}

// Player is a selection candidate for one matchday. Position and Club
// are fixed for the matchday; Price is whatever the platform lists at
// feed time and may differ from a prior matchday.
type Player struct {
	ID                 int      `json:"id"`
	Name               string   `json:"name"`
	Position           Position `json:"position"`
	Club               string   `json:"club"`
	Price              float64  `json:"price"`
	ProjectedPoints    float64  `json:"projected_points"`
	AvgPoints          float64  `json:"avg_points,omitempty"`
	LastMatchdayPoints float64  `json:"last_matchday_points,omitempty"`
	Inactive           bool     `json:"inactive,omitempty"`
	Owned              bool     `json:"owned,omitempty"`
}

// SquadSnapshot is the manager's state entering the matchday.
// PlayersOwned is empty before the first squad is drafted.
type SquadSnapshot struct {
	PlayersOwned    []int   `json:"players_owned"`
	BudgetRemaining float64 `json:"budget_remaining"`
	FreeTransfers   int     `json:"free_transfers"`
}

// OwnedSet returns the owned player ids as a set.
func (s SquadSnapshot) OwnedSet() map[int]bool {
	owned := make(map[int]bool, len(s.PlayersOwned))
	for _, id := range s.PlayersOwned {
		owned[id] = true
	}
	return owned
}

// Transfer pairs a dropped player with the player added in their place.
// The pairing is informational; the model constrains only the counts.
type Transfer struct {
	DroppedID int `json:"dropped_id"`
	AddedID   int `json:"added_id"`
}

// Solution is the terminal artifact of one optimization run.
type Solution struct {
	SelectedSquad  []int      `json:"selected_squad"`
	StartingEleven []int      `json:"starting_eleven"`
	Captain        int        `json:"captain"`
	ViceCaptain    int        `json:"vice_captain"`
	Transfers      []Transfer `json:"transfers_made"`
	ObjectiveValue float64    `json:"objective_value"`
	TotalCost      float64    `json:"total_cost"`
	Formation      Formation  `json:"formation"`
}

// ErrorResponse is the standard error payload for API endpoints.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}
