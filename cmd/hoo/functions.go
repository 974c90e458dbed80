package main

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// benchmark is a noisy reward oracle with a known maximum, used to exercise
// the engine from the command line.
type benchmark struct {
	name string

	lower, upper []float64

	// best is the noise-free maximum over [lower, upper].
	best float64

	f     func(x []float64) float64
	noise distuv.Normal

	// drawn holds every reward handed out, in order.
	drawn []float64
}

// Draw evaluates the function at point and adds Gaussian noise.
func (b *benchmark) Draw(point []float64) (float64, error) {
	if len(point) != len(b.lower) {
		return 0, errors.Errorf("%s: point has %d dimensions, want %d", b.name, len(point), len(b.lower))
	}

	reward := b.f(point) + b.noise.Rand()
	b.drawn = append(b.drawn, reward)

	return reward, nil
}

// Regret returns the cumulative regret against always pulling the maximiser,
// measured on the noise-free maximum.
func (b *benchmark) Regret() float64 {
	return float64(len(b.drawn))*b.best - floats.Sum(b.drawn)
}

// benchmarkParams are the knobs of the built-in benchmarks.
type benchmarkParams struct {
	// Noise overrides the default standard deviation when > 0.
	Noise float64

	// Dimensions of the hyper-ellipsoid.
	Dimensions int

	// GParams are the a_i >= 0 of the analytical g function, one per dimension.
	GParams []float64
}

// benchmarks maps names to constructors.
var benchmarks = map[string]func(p benchmarkParams) (*benchmark, error){
	"sixhump":         newSixHumpCamelback,
	"analytical-g":    newAnalyticalG,
	"hyper-ellipsoid": newHyperEllipsoid,
}

// benchmarkNames returns the sorted benchmark names.
func benchmarkNames() []string {
	names := make([]string, 0, len(benchmarks))
	for name := range benchmarks {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func noise(p benchmarkParams, fallback float64) distuv.Normal {
	sigma := fallback
	if p.Noise > 0 {
		sigma = p.Noise
	}

	return distuv.Normal{Mu: 0, Sigma: sigma}
}

// newSixHumpCamelback is the negated six-hump camelback function on
// [-2, 2] x [-1, 1]. Its maximum, 1.0316, is reached at (±0.0898, ∓0.7126).
func newSixHumpCamelback(p benchmarkParams) (*benchmark, error) {
	return &benchmark{
		name:  "sixhump",
		lower: []float64{-2, -1},
		upper: []float64{2, 1},
		best:  1.0316,
		f: func(x []float64) float64 {
			x1, x2 := x[0], x[1]
			return -((4-2.1*x1*x1+math.Pow(x1, 4)/3)*x1*x1 + x1*x2 + (-4+4*x2*x2)*x2*x2)
		},
		noise: noise(p, 0.02),
	}, nil
}

// newAnalyticalG is the Sobol g function prod((|4x_i - 2| + a_i) / (1 + a_i))
// on [-2, 3]^n. Its maximum is at x = (-2, ..., -2).
func newAnalyticalG(p benchmarkParams) (*benchmark, error) {
	if len(p.GParams) == 0 {
		return nil, errors.New("analytical-g: no g params")
	}

	for i, a := range p.GParams {
		if a < 0 {
			return nil, errors.Errorf("analytical-g: g param %d is %v, must be >= 0", i, a)
		}
	}

	a := append([]float64(nil), p.GParams...)
	n := len(a)

	g := func(x []float64) float64 {
		value := 1.0
		for i, xi := range x {
			value *= (math.Abs(4*xi-2) + a[i]) / (1 + a[i])
		}

		return value
	}

	lower := make([]float64, n)
	upper := make([]float64, n)
	corner := make([]float64, n)
	for i := range lower {
		lower[i], upper[i], corner[i] = -2, 3, -2
	}

	return &benchmark{
		name:  "analytical-g",
		lower: lower,
		upper: upper,
		best:  g(corner),
		f:     g,
		noise: noise(p, 1),
	}, nil
}

// newHyperEllipsoid is 500 - sum(i * (x_i - i)^2) for i = 1..n on
// [-3n, 3n]^n. Its maximum, 500, is at x_i = i.
func newHyperEllipsoid(p benchmarkParams) (*benchmark, error) {
	n := p.Dimensions
	if n < 1 {
		return nil, errors.Errorf("hyper-ellipsoid: dimensions is %d, must be >= 1", n)
	}

	lower := make([]float64, n)
	upper := make([]float64, n)
	for i := range lower {
		lower[i], upper[i] = -3*float64(n), 3*float64(n)
	}

	return &benchmark{
		name:  "hyper-ellipsoid",
		lower: lower,
		upper: upper,
		best:  500,
		f: func(x []float64) float64 {
			sum := 0.0
			for i, xi := range x {
				k := float64(i + 1)
				sum += k * (xi - k) * (xi - k)
			}

			return 500 - sum
		},
		noise: noise(p, 0.1),
	}, nil
}
