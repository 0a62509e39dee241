package optimizer

// DefaultFormWeight blends season average and last-matchday points when
// a feed record carries no explicit projection.
const DefaultFormWeight = 0.5

// FormWeightedProjection estimates matchday points from a player's
// season average and their last matchday, weighted toward recent form.
// weight is clamped to [0, 1].
func FormWeightedProjection(avgPoints, lastMatchdayPoints, weight float64) float64 {
	if weight < 0 {
		weight = 0
	}
	if weight > 1 {
		weight = 1
	}
	return (1-weight)*avgPoints + weight*lastMatchdayPoints
}
