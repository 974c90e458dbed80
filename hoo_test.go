package hoo

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig returns a seeded configuration.
func testConfig(seed int64) Config {
	config := DefaultConfig()
	config.RandomState = rand.New(rand.NewSource(seed))

	return config
}

// newTestEngine builds an engine over [lower, upper] with a uniform covering.
func newTestEngine(t *testing.T, config Config, lower, upper []float64, oracle RewardOracle) *Engine {
	t.Helper()

	store, err := NewCoveringStore(lower, upper, CoveringConfig{})
	require.NoError(t, err)

	engine, err := NewEngine(config, store, oracle)
	require.NoError(t, err)

	return engine
}

// negSquare is f(x) = -x^2 summed over the dimensions.
func negSquare(point []float64) (float64, error) {
	sum := 0.0
	for _, x := range point {
		sum += x * x
	}

	return -sum, nil
}

// assertInitialTree checks the tree holds only the activated root and its two
// unexplored children.
func assertInitialTree(t *testing.T, engine *Engine) {
	t.Helper()

	require.Equal(t, 3, engine.Len())

	root := engine.Node(0)
	assert.True(t, root.Activated)
	assert.Equal(t, 0, root.Visits)

	for _, id := range []int{root.Left, root.Right} {
		child := engine.Node(id)
		assert.False(t, child.Activated)
		assert.Equal(t, 0, child.Visits)
		assert.True(t, math.IsInf(child.PropagatedBound, 1))
	}
}

func TestNewEngine(t *testing.T) {
	engine := newTestEngine(t, testConfig(1), []float64{-1}, []float64{1}, negSquare)

	assertInitialTree(t, engine)
	assert.Equal(t, 0, engine.Rounds())
	assert.Nil(t, engine.LastArm())
}

func TestNewEngineValidation(t *testing.T) {
	for _, v1 := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		config := testConfig(1)
		config.V1 = v1

		_, err := NewEngine(config, nil, nil)
		assert.ErrorIs(t, err, ErrConfiguration, "v1 = %v", v1)
	}

	config := testConfig(1)
	config.Rho = math.NaN()

	_, err := NewEngine(config, nil, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestRhoIsClamped(t *testing.T) {
	testCases := []struct {
		rho, expected float64
	}{
		{-1, 0.001},
		{0, 0.001},
		{0.25, 0.25},
		{1, 0.999},
		{3, 0.999},
	}

	for _, tc := range testCases {
		var buf bytes.Buffer

		config := testConfig(1)
		config.Rho = tc.rho
		config.Logger = zerolog.New(&buf)

		engine, err := NewEngine(config, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, engine.Rho())

		if tc.rho != tc.expected {
			assert.Contains(t, buf.String(), "clamped")
		} else {
			assert.Empty(t, buf.String())
		}
	}
}

func TestRunNotConfigured(t *testing.T) {
	engine, err := NewEngine(testConfig(1), nil, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, engine.Run(10), ErrNotConfigured)

	engine.SetOracle(negSquare)
	assert.ErrorIs(t, engine.Run(10), ErrNotConfigured)

	store, err := NewCoveringStore([]float64{-1}, []float64{1}, CoveringConfig{})
	require.NoError(t, err)

	engine.SetCovering(store)
	assert.ErrorIs(t, engine.Run(0), ErrConfiguration)

	require.NoError(t, engine.Run(10))
	assert.Equal(t, 9, engine.Rounds())
}

func TestRunSingleRoundBudgetPlaysNothing(t *testing.T) {
	calls := 0
	oracle := func(point []float64) (float64, error) {
		calls++
		return negSquare(point)
	}

	engine := newTestEngine(t, testConfig(1), []float64{-1}, []float64{1}, oracle)

	require.NoError(t, engine.Run(1))

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, engine.Rounds())
	assertInitialTree(t, engine)
}

func TestRunRoundCount(t *testing.T) {
	t.Run("default horizon plays n-1 rounds", func(t *testing.T) {
		engine := newTestEngine(t, testConfig(3), []float64{-1}, []float64{1}, negSquare)
		require.NoError(t, engine.Run(20))

		assert.Equal(t, 19, engine.Rounds())
		assert.Equal(t, 19, engine.Node(0).Visits)
		assert.Equal(t, 3+2*19, engine.Len())
	})

	t.Run("inclusive horizon plays n rounds", func(t *testing.T) {
		config := testConfig(3)
		config.InclusiveHorizon = true

		engine := newTestEngine(t, config, []float64{-1}, []float64{1}, negSquare)
		require.NoError(t, engine.Run(1))
		assert.Equal(t, 1, engine.Rounds())

		require.NoError(t, engine.Run(20))
		assert.Equal(t, 21, engine.Rounds())
		assert.Equal(t, 21, engine.Node(0).Visits)
	})
}

func TestRunPullsRegionMidpoints(t *testing.T) {
	var arms [][]float64
	oracle := func(point []float64) (float64, error) {
		arms = append(arms, append([]float64(nil), point...))
		return negSquare(point)
	}

	config := testConfig(5)
	config.InclusiveHorizon = true

	engine := newTestEngine(t, config, []float64{-1, 0}, []float64{1, 4}, oracle)
	require.NoError(t, engine.Run(1))

	// The first round picks one of the depth-1 regions, split on x.
	require.Len(t, arms, 1)
	assert.Contains(t, [][]float64{{-0.5, 2}, {0.5, 2}}, arms[0])
	assert.Equal(t, arms[0], engine.LastArm())
	assert.Equal(t, -(0.25 + 4), engine.LastReward())
}

func TestBoundsNeverExceedUpperBound(t *testing.T) {
	config := testConfig(7)
	config.InclusiveHorizon = true

	rng := rand.New(rand.NewSource(11))
	noisy := func(point []float64) (float64, error) {
		r, _ := negSquare(point)
		return r + rng.NormFloat64()*0.1, nil
	}

	engine := newTestEngine(t, config, []float64{-2, -1}, []float64{2, 1}, noisy)

	for round := 1; round <= 200; round++ {
		require.NoError(t, engine.Run(1))

		for id, n := range engine.Tree() {
			if !n.Activated {
				assert.True(t, math.IsInf(n.PropagatedBound, 1), "leaf %d", id)
				continue
			}

			assert.LessOrEqual(t, n.PropagatedBound, n.UpperBound, "node %d round %d", id, round)
		}
	}
}

func TestRunIsDeterministicGivenSeed(t *testing.T) {
	rewards := []float64{0.1, 0.9, 0.4, 0.4, 0.7, 0.2, 0.8, 0.3, 0.5, 0.6}

	build := func() *Engine {
		i := 0
		oracle := func(point []float64) (float64, error) {
			r := rewards[i%len(rewards)]
			i++
			return r, nil
		}

		return newTestEngine(t, testConfig(99), []float64{0, 0}, []float64{1, 1}, oracle)
	}

	first, second := build(), build()
	require.NoError(t, first.Run(150))
	require.NoError(t, second.Run(150))

	assert.Equal(t, first.Tree(), second.Tree())
}

func TestRunOracleErrors(t *testing.T) {
	errBoom := errors.New("boom")

	t.Run("oracle error aborts the run", func(t *testing.T) {
		calls := 0
		oracle := func(point []float64) (float64, error) {
			calls++
			if calls == 4 {
				return 0, errBoom
			}
			return negSquare(point)
		}

		engine := newTestEngine(t, testConfig(1), []float64{-1}, []float64{1}, oracle)

		err := engine.Run(10)
		assert.ErrorIs(t, err, errBoom)
		assert.Contains(t, err.Error(), "round 4")
		assert.Equal(t, 3, engine.Rounds())
		assert.Equal(t, 3, engine.Node(0).Visits)
		assert.Equal(t, 3+2*3, engine.Len())
	})

	t.Run("non-finite reward aborts the run", func(t *testing.T) {
		oracle := func(point []float64) (float64, error) {
			return math.NaN(), nil
		}

		engine := newTestEngine(t, testConfig(1), []float64{-1}, []float64{1}, oracle)

		assert.ErrorIs(t, engine.Run(10), ErrNonFiniteReward)
		assertInitialTree(t, engine)
	})
}

func TestRunFavoursTheOptimum(t *testing.T) {
	config := testConfig(2024)
	config.V1 = 1
	config.Rho = 0.5

	store, err := NewCoveringStore([]float64{-1}, []float64{1}, CoveringConfig{})
	require.NoError(t, err)

	engine, err := NewEngine(config, store, negSquare)
	require.NoError(t, err)
	require.NoError(t, engine.Run(50))

	// The visited node whose region midpoint is closest to 0.
	closest, closestDist := -1, math.Inf(1)
	for id, n := range engine.Tree() {
		if n.Visits == 0 {
			continue
		}

		region, err := store.RegionFor(n.Depth, n.Index)
		require.NoError(t, err)

		if d := math.Abs(region.Midpoint()[0]); d < closestDist {
			closest, closestDist = id, d
		}
	}
	require.NotEqual(t, -1, closest)

	root := engine.Node(0)
	grandchildren := []NodeView{}
	for _, id := range []int{root.Left, root.Right} {
		child := engine.Node(id)
		require.True(t, child.Activated)
		grandchildren = append(grandchildren, engine.Node(child.Left), engine.Node(child.Right))
	}

	least := grandchildren[0]
	for _, g := range grandchildren[1:] {
		if g.Visits < least.Visits {
			least = g
		}
	}

	require.Greater(t, least.Visits, 0)
	assert.Greater(t, engine.Node(closest).Mean, least.Mean)
}

func TestRecommend(t *testing.T) {
	t.Run("before any round", func(t *testing.T) {
		engine := newTestEngine(t, testConfig(1), []float64{-1, 2}, []float64{1, 4}, negSquare)

		best, err := engine.Recommend()
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 3}, best.Point)
		assert.Equal(t, 0, best.Visits)
	})

	t.Run("converges to the maximum", func(t *testing.T) {
		config := testConfig(8)
		config.InclusiveHorizon = true

		shifted := func(point []float64) (float64, error) {
			d := point[0] - 0.3
			return -d * d, nil
		}

		engine := newTestEngine(t, config, []float64{-1}, []float64{1}, shifted)
		require.NoError(t, engine.Run(500))

		best, err := engine.Recommend()
		require.NoError(t, err)
		assert.InDelta(t, 0.3, best.Point[0], 0.05)
		assert.Greater(t, best.Visits, 0)
	})
}

func TestOptimize(t *testing.T) {
	config := testConfig(17)
	config.InclusiveHorizon = true

	best, err := Optimize(
		config,
		func(params ...float64) (float64, error) {
			x, y := params[0]-1, params[1]+0.5
			return -(x*x + y*y), nil
		},
		1000,
		ParameterRange[float64]{Min: -2, Max: 2},
		ParameterRange[float64]{Min: -2, Max: 2},
	)
	require.NoError(t, err)

	assert.Len(t, best, 2)
	assert.InDelta(t, 1, best[0], 0.1)
	assert.InDelta(t, -0.5, best[1], 0.1)
}

func TestOptimizeFloat32(t *testing.T) {
	best, err := Optimize[float32](
		testConfig(4),
		func(params ...float32) (float64, error) {
			d := float64(params[0]) - 2
			return -d * d, nil
		},
		300,
		ParameterRange[float32]{Min: 0, Max: 10},
	)
	require.NoError(t, err)

	assert.Len(t, best, 1)
	assert.InDelta(t, 2, float64(best[0]), 0.2)

	_, err = Optimize[float32](
		testConfig(4),
		func(params ...float32) (float64, error) { return 0, nil },
		300,
		ParameterRange[float32]{Min: 1, Max: 0},
	)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestRunProgressChannel(t *testing.T) {
	config := testConfig(1)
	config.ProgressInterval = 10

	// Create a bidirectional channel for progress updates
	progressChan := make(chan ProgressUpdate, 10)
	config.ProgressChan = progressChan

	var buf bytes.Buffer
	config.Logger = zerolog.New(&buf)

	engine := newTestEngine(t, config, []float64{-1}, []float64{1}, negSquare)
	require.NoError(t, engine.Run(51))
	close(progressChan)

	var counter int32
	var rounds []int
	for update := range progressChan {
		atomic.AddInt32(&counter, 1)
		rounds = append(rounds, update.Round)

		assert.Equal(t, 51, update.TotalRounds)
		assert.Len(t, update.LastArm, 1)
	}

	assert.Equal(t, int32(5), atomic.LoadInt32(&counter))
	assert.Equal(t, []int{10, 20, 30, 40, 50}, rounds)
	assert.Contains(t, buf.String(), "@round 50")
}

func TestRunProgressChannelNeverBlocks(t *testing.T) {
	config := testConfig(1)
	config.ProgressInterval = 1

	// Unbuffered and never read.
	config.ProgressChan = make(chan ProgressUpdate)

	engine := newTestEngine(t, config, []float64{-1}, []float64{1}, negSquare)
	require.NoError(t, engine.Run(30))
	assert.Equal(t, 29, engine.Rounds())
}
