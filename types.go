package hoo

import (
	"math/rand"

	"github.com/rs/zerolog"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
)

//////
// Const, vars, types.
//////

// MaxDepth is the deepest tree level whose index-in-level still fits the
// uint64 addressing used by Covering (indices range over [1, 2^height]).
const MaxDepth = 62

// ProgressUpdate represents the current state of a HOO run. It is emitted
// every Config.ProgressInterval completed rounds.
type ProgressUpdate struct {
	// Round is the number of the round that just completed (1-based).
	Round int

	// TotalRounds is the round budget the run was started with.
	TotalRounds int

	// LastArm is the point pulled in Round.
	LastArm []float64

	// LastReward is the reward observed for LastArm.
	LastReward float64

	// Nodes is the size of the search tree after Round.
	Nodes int
}

// ParameterRange defines the valid range for one dimension of the domain.
//
// Type Parameter:
//   - T: The floating-point type of the dimension (float32 or float64)
//
// Usage:
//
//	// Learning rate between 0.0001 and 0.1
//	learningRate := ParameterRange[float64]{
//	    Min: 0.0001,
//	    Max: 0.1,
//	}
//
// Validation:
// - Min must be less than or equal to Max
type ParameterRange[T constraints.Float] struct {
	// Min is the lower bound (inclusive) of the dimension.
	Min T

	// Max is the upper bound (inclusive) of the dimension.
	Max T
}

// RewardOracle is the (possibly noisy) function being maximised. It receives
// a point with one coordinate per domain dimension and returns the observed
// reward, higher is better.
//
// Contract:
// - Must not mutate point
// - May be stochastic and may keep internal state
// - A non-nil error aborts the run; it is returned by Engine.Run wrapped with
// the round number
//
// Usage example:
//
//	oracle := RewardOracle(func(point []float64) (float64, error) {
//	    x := point[0]
//	    return -x * x, nil
//	})
type RewardOracle func(point []float64) (float64, error)

// Region is an axis-aligned hyper-rectangle of the domain, associated with
// one tree node. Regions are immutable once created: callers must not modify
// Lower or Upper.
type Region struct {
	// Lower holds the per-dimension lower bounds.
	Lower []float64

	// Upper holds the per-dimension upper bounds.
	Upper []float64
}

// Dimensions returns the dimensionality of the region.
func (r Region) Dimensions() int {
	return len(r.Lower)
}

// Midpoint returns the elementwise midpoint (Lower + Upper) / 2. This is the
// arm pulled when the region's node is selected.
func (r Region) Midpoint() []float64 {
	mid := make([]float64, len(r.Lower))
	floats.AddTo(mid, r.Lower, r.Upper)
	floats.Scale(0.5, mid)

	return mid
}

// Diameter returns the Euclidean length of the region's main diagonal.
func (r Region) Diameter() float64 {
	return floats.Distance(r.Lower, r.Upper, 2)
}

// Contains reports whether point lies inside the region (bounds inclusive).
func (r Region) Contains(point []float64) bool {
	if len(point) != len(r.Lower) {
		return false
	}

	for d, v := range point {
		if v < r.Lower[d] || v > r.Upper[d] {
			return false
		}
	}

	return true
}

// Covering produces the region of the node at (height, index). The root is
// (0, 1); the children of (h, i) are (h+1, 2i-1) on the left and (h+1, 2i) on
// the right. CoveringStore is the default implementation.
type Covering interface {
	// RegionFor returns the region at (height, index). Implementations may
	// require the parent region to be requested first.
	RegionFor(height int, index uint64) (Region, error)

	// Dimensions returns the dimensionality of the covered domain.
	Dimensions() int
}

// CoveringConfig lists every option recognised by NewCoveringStore.
type CoveringConfig struct {
	// PriorityWeights holds one positive weight per dimension. A dimension of
	// weight w is bisected on w consecutive tree levels before rotating to the
	// next dimension. Nil means weight 1 for every dimension (round-robin).
	PriorityWeights []int
}

// Config holds all configuration parameters for a HOO run.
//
// Usage example:
//
//	config := Config{
//	    // Diameter of the root covering.
//	    V1: 1.0,
//
//	    // Coverings at depth h have diameter at most V1*Rho^h.
//	    Rho: 0.5,
//
//	    // Reproducible tie-breaking.
//	    RandomState: rand.New(rand.NewSource(42)),
//	}
//
// Note:
// - Rho outside (0, 1) is clamped, not rejected: values <= 0 become 0.001
// and values >= 1 become 0.999. This silently changes the bound, so check
// Engine.Rho() when in doubt.
// - Create separate configs for separate engines.
type Config struct {
	// V1 is the diameter coefficient at depth 0. Must be > 0.
	V1 float64

	// Rho is the rate at which region diameters decay with depth.
	Rho float64

	// RandomState is the random number generator used to break ties between
	// children with equal B-values. If nil, one seeded from the clock is used.
	RandomState *rand.Rand

	// ProgressInterval is the number of rounds between progress updates.
	// Values < 1 mean the default of 100.
	ProgressInterval int

	// ProgressChan is used to send progress updates during the run.
	// If nil, no updates will be sent. Sends never block.
	ProgressChan chan<- ProgressUpdate

	// Logger receives structured progress logs. The zero value discards.
	Logger zerolog.Logger

	// InclusiveHorizon makes Run(n) play exactly n rounds. By default Run(n)
	// plays n-1 rounds (rounds 1 through n-1).
	InclusiveHorizon bool
}
