package hoo

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// regionKey addresses a region by tree position.
type regionKey struct {
	height int
	index  uint64
}

// CoveringStore is the dyadic covering of a hyper-rectangular domain. The
// region of node (h, i) is its parent's region bisected along one dimension,
// the dimension being chosen by rotating through the dimensions by depth.
// Regions are memoized and never recomputed.
//
// CoveringStore is not safe for concurrent use.
type CoveringStore struct {
	// cumulative holds the prefix sums of the priority weights.
	cumulative []int

	regions map[regionKey]Region
}

// NewCoveringStore validates the domain and seeds the store with the root
// region (0, 1) = [lower, upper]. All problems found are reported at once,
// each wrapping ErrConfiguration.
//
// Usage example:
//
//	// 2-D domain where x is bisected twice as often as y.
//	store, err := NewCoveringStore(
//	    []float64{0, 0},
//	    []float64{4, 4},
//	    CoveringConfig{PriorityWeights: []int{2, 1}},
//	)
func NewCoveringStore(lower, upper []float64, config CoveringConfig) (*CoveringStore, error) {
	var errs *multierror.Error

	if len(lower) == 0 {
		errs = multierror.Append(errs, errors.WithMessage(ErrConfiguration, "domain has no dimensions"))
	}

	if len(lower) != len(upper) {
		errs = multierror.Append(errs, errors.WithMessagef(
			ErrConfiguration, "lower has %d dimensions, upper has %d", len(lower), len(upper),
		))
	} else {
		for d := range lower {
			if !isFinite(lower[d]) || !isFinite(upper[d]) {
				errs = multierror.Append(errs, errors.WithMessagef(
					ErrConfiguration, "dimension %d has non-finite bounds [%v, %v]", d, lower[d], upper[d],
				))
			} else if lower[d] > upper[d] {
				errs = multierror.Append(errs, errors.WithMessagef(
					ErrConfiguration, "dimension %d: lower bound %v exceeds upper bound %v", d, lower[d], upper[d],
				))
			}
		}
	}

	weights := config.PriorityWeights
	if weights == nil {
		weights = uniformWeights(len(lower))
	}

	if len(weights) != len(lower) {
		errs = multierror.Append(errs, errors.WithMessagef(
			ErrConfiguration, "%d priority weights for %d dimensions", len(weights), len(lower),
		))
	}

	for d, w := range weights {
		if w <= 0 {
			errs = multierror.Append(errs, errors.WithMessagef(
				ErrConfiguration, "priority weight of dimension %d is %d, must be positive", d, w,
			))
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	cumulative := make([]int, len(weights))
	sum := 0
	for d, w := range weights {
		sum += w
		cumulative[d] = sum
	}

	s := &CoveringStore{
		cumulative: cumulative,
		regions:    make(map[regionKey]Region),
	}

	s.regions[regionKey{0, 1}] = Region{
		Lower: append([]float64(nil), lower...),
		Upper: append([]float64(nil), upper...),
	}

	return s, nil
}

// Dimensions returns the dimensionality of the domain.
func (s *CoveringStore) Dimensions() int {
	return len(s.cumulative)
}

// Root returns the region of the whole domain.
func (s *CoveringStore) Root() Region {
	return s.regions[regionKey{0, 1}]
}

// Len returns the number of regions computed so far, the root included.
func (s *CoveringStore) Len() int {
	return len(s.regions)
}

// SplitDimension returns the dimension bisected to produce the regions at
// height (height >= 1). The root consumes no dimension, so level 1 splits
// dimension 0.
func (s *CoveringStore) SplitDimension(height int) int {
	total := s.cumulative[len(s.cumulative)-1]
	effective := (height - 1) % total

	for d, c := range s.cumulative {
		if c > effective {
			return d
		}
	}

	// Unreachable: effective < total == last prefix sum.
	return len(s.cumulative) - 1
}

// RegionFor returns the region at (height, index), computing it from the
// parent region if needed. Requests must be made level by level along a
// root-rooted path: the parent (height-1, ceil(index/2)) must already exist,
// otherwise ErrMissingParent is returned.
func (s *CoveringStore) RegionFor(height int, index uint64) (Region, error) {
	if height == 0 && index == 1 {
		return s.Root(), nil
	}

	if height < 1 || height > MaxDepth || index < 1 || index > uint64(1)<<uint(height) {
		return Region{}, errors.WithMessagef(ErrInvariantViolation, "no tree position (%d, %d)", height, index)
	}

	key := regionKey{height, index}
	if r, ok := s.regions[key]; ok {
		return r, nil
	}

	parent, ok := s.regions[regionKey{height - 1, (index + 1) / 2}]
	if !ok {
		return Region{}, errors.WithMessagef(
			ErrMissingParent, "region (%d, %d) requested before (%d, %d)", height, index, height-1, (index+1)/2,
		)
	}

	d := s.SplitDimension(height)
	mid := (parent.Lower[d] + parent.Upper[d]) / 2

	r := Region{
		Lower: append([]float64(nil), parent.Lower...),
		Upper: append([]float64(nil), parent.Upper...),
	}

	// Odd indices are left children.
	if index%2 == 1 {
		r.Upper[d] = mid
	} else {
		r.Lower[d] = mid
	}

	s.regions[key] = r

	return r, nil
}
