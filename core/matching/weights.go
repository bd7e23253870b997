package matching

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/model"
)

const weightTolerance = 0.01

// Weights controls how much each factor contributes to the match score.
type Weights struct {
	Suitability  float64 `json:"suitability"`
	Availability float64 `json:"availability"`
	Capacity     float64 `json:"capacity"`
	Distance     float64 `json:"distance"`
}

// DefaultWeights returns the standard 40/30/15/15 split.
func DefaultWeights() Weights {
	return Weights{Suitability: 0.40, Availability: 0.30, Capacity: 0.15, Distance: 0.15}
}

// Validate ensures the weights are non-negative and sum to one.
func (w Weights) Validate() error {
	vals := []float64{w.Suitability, w.Availability, w.Capacity, w.Distance}
	if floats.Min(vals) < 0 {
		return errs.Validationf("matching weights must not be negative")
	}
	if sum := floats.Sum(vals); math.Abs(sum-1) > weightTolerance {
		return errs.Validationf("matching weights must sum to 1.0, got %.3f", sum)
	}
	return nil
}

// Score combines the factors into a single weighted value.
func (w Weights) Score(f model.MatchingFactors) float64 {
	return floats.Dot(
		[]float64{w.Suitability, w.Availability, w.Capacity, w.Distance},
		[]float64{f.Suitability, f.Availability, f.Capacity, f.Distance},
	)
}
