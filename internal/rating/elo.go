package rating

import "math"

const (
	DefaultElo     = 800
	DefaultKFactor = 32
	DefaultMinElo  = 100
)

// Expected is the logistic expected score of a player rated own against opp.
func Expected(own, opp int) float64 {
	return 1 / (1 + math.Pow(10, float64(opp-own)/400))
}

// Results are the scores of both sides, each in {0, 0.5, 1}.
type Results struct {
	White float64
	Black float64
}

// Apply returns the new ratings of both sides for results, clamped at minElo.
func Apply(white, black int, results Results, k float64, minElo int) (int, int) {
	next := func(own, opp int, score float64) int {
		v := int(math.Round(float64(own) + k*(score-Expected(own, opp))))
		return max(minElo, v)
	}
	return next(white, black, results.White), next(black, white, results.Black)
}
