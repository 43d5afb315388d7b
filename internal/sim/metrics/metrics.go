// Package metrics turns quality deltas into the planner's expected utility.
package metrics

import (
	"math"

	"nations.ai/internal/sim/world"
)

// Params tunes the acceptance curve and the utility blend.
type Params struct {
	Gamma       float64 `yaml:"gamma" json:"gamma"`
	FailureCost float64 `yaml:"failure_cost" json:"failure_cost"`
	K           float64 `yaml:"k" json:"k"`
	X0          float64 `yaml:"x0" json:"x0"`
}

func DefaultParams() Params {
	return Params{Gamma: 0.9, FailureCost: -10, K: 1, X0: 0}
}

// Schedule is what scoring needs from a plan.
type Schedule interface {
	Len() int
	CountriesInvolved() []string
	// Apply returns a new world; the argument is left untouched.
	Apply(w *world.World) (*world.World, error)
}

func Logistic(x, x0, k float64) float64 {
	return 1 / (1 + math.Exp(-k*(x-x0)))
}

func UndiscountedReward(q0, q1 float64) float64 {
	return q1 - q0
}

func DiscountedReward(q0, q1 float64, steps int, gamma float64) float64 {
	return math.Pow(gamma, float64(steps)) * (q1 - q0)
}

// SuccessProbability is the product, over every country the schedule
// touches, of the logistic acceptance of that country's discounted reward.
// An empty schedule involves nobody and succeeds with probability 1.
func SuccessProbability(s Schedule, w *world.World, p Params) (float64, error) {
	final, err := s.Apply(w)
	if err != nil {
		return 0, err
	}
	prob := 1.0
	for _, c := range s.CountriesInvolved() {
		q0, err := w.Quality(c)
		if err != nil {
			return 0, err
		}
		q1, err := final.Quality(c)
		if err != nil {
			return 0, err
		}
		prob *= Logistic(DiscountedReward(q0, q1, s.Len(), p.Gamma), p.X0, p.K)
	}
	return prob, nil
}

// ExpectedUtility blends self's discounted reward with the failure cost:
//
//	EU = P × DR(self) + (1 − P) × FailureCost
func ExpectedUtility(s Schedule, w *world.World, self string, p Params) (float64, error) {
	q0, err := w.Quality(self)
	if err != nil {
		return 0, err
	}
	end, err := s.Apply(w)
	if err != nil {
		return 0, err
	}
	q1, err := end.Quality(self)
	if err != nil {
		return 0, err
	}
	dr := DiscountedReward(q0, q1, s.Len(), p.Gamma)

	prob, err := SuccessProbability(s, w, p)
	if err != nil {
		return 0, err
	}
	return prob*dr + (1-prob)*p.FailureCost, nil
}
