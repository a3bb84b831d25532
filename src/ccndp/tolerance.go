package ccndp

import (
	"math"

	"golang.org/x/exp/constraints"
)

const (
	// roundingEps is the single threshold below which right hand sides, dual
	// weights and residual capacities are taken to be zero.
	roundingEps = 1e-9

	// defaultFeasibilityTol bounds the slack a subproblem may report while
	// still being considered feasible.
	defaultFeasibilityTol = 1e-6
)

// clip returns x, or zero when x is below roundingEps. Values only ever fall
// below zero through rounding.
func clip[T constraints.Float](x T) T {
	if x < T(roundingEps) {
		return 0
	}
	return x
}

func almostZero[T constraints.Float](x T) bool {
	return math.Abs(float64(x)) < defaultFeasibilityTol
}

// isSet reads a binary master value, which may carry rounding noise.
func isSet(x float64) bool {
	return x > 0.5
}
