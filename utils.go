package hoo

import (
	"math"

	"golang.org/x/exp/constraints"
)

//////
// Helper functions.
//////

const (
	// rhoFloor and rhoCeiling are what out-of-range decay rates are clamped to.
	rhoFloor   = 0.001
	rhoCeiling = 0.999

	// defaultProgressInterval is the number of rounds between progress updates.
	defaultProgressInterval = 100
)

// isFinite reports whether x is neither NaN nor ±Inf.
func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// clampRho coerces rho into the open interval (0, 1).
//
// Returns:
// - float64: rho itself, rhoFloor if rho <= 0, or rhoCeiling if rho >= 1
// - bool: true if rho was changed
func clampRho(rho float64) (float64, bool) {
	switch {
	case rho <= 0:
		return rhoFloor, true
	case rho >= 1:
		return rhoCeiling, true
	default:
		return rho, false
	}
}

// uniformWeights returns n priority weights of 1.
func uniformWeights(n int) []int {
	weights := make([]int, n)
	for i := range weights {
		weights[i] = 1
	}

	return weights
}

// rangesToBounds splits parameter ranges into lower and upper bound vectors.
func rangesToBounds[T constraints.Float](ranges []ParameterRange[T]) ([]float64, []float64) {
	lower := make([]float64, len(ranges))
	upper := make([]float64, len(ranges))

	for i, r := range ranges {
		lower[i] = float64(r.Min)
		upper[i] = float64(r.Max)
	}

	return lower, upper
}

// fromFloat64s converts a point back to the caller's parameter type.
func fromFloat64s[T constraints.Float](point []float64) []T {
	params := make([]T, len(point))
	for i, v := range point {
		params[i] = T(v)
	}

	return params
}
