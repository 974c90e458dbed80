package hoo

import (
	"math"
	"math/rand"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/constraints"
)

//////
// Const, vars, types.
//////

// ObjectiveFunc is the function maximised by Optimize. It receives one value
// per ParameterRange, in the same order.
type ObjectiveFunc[T constraints.Float] func(params ...T) (float64, error)

// Recommendation is the arm suggested after a run.
type Recommendation struct {
	// Point is the midpoint of the recommended node's region.
	Point []float64

	// Mean is the empirical mean reward of the recommended node.
	Mean float64

	// Visits is the number of rounds that went through the node.
	Visits int

	// Depth and Index locate the node in the tree.
	Depth int
	Index uint64
}

// Engine runs the Hierarchical Optimistic Optimization (HOO) algorithm. Each
// round descends the tree by B-values, pulls the midpoint of the reached
// node's region, activates that node, and updates the statistics of the
// whole tree.
//
// Engine is not safe for concurrent use: exactly one round is in flight at a
// time.
type Engine struct {
	v1, rho float64

	rng      *rand.Rand
	logger   zerolog.Logger
	interval int
	progress chan<- ProgressUpdate

	inclusiveHorizon bool

	covering Covering
	oracle   RewardOracle
	tree     *searchTree

	rounds     int
	lastArm    []float64
	lastReward float64
}

//////
// Exported functionalities.
//////

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		V1:               1.0,
		Rho:              0.5,
		RandomState:      rand.New(rand.NewSource(time.Now().UnixNano())),
		ProgressInterval: defaultProgressInterval,
		ProgressChan:     nil, // Default to no progress updates.
		Logger:           zerolog.Nop(),
	}
}

// NewEngine validates config and builds an engine whose tree holds the
// activated root and its two unexplored children.
//
// covering and oracle may be nil at construction; they must be set (see
// SetCovering and SetOracle) before Run.
//
// Usage example:
//
//	store, _ := NewCoveringStore([]float64{-1}, []float64{1}, CoveringConfig{})
//
//	engine, err := NewEngine(DefaultConfig(), store, func(point []float64) (float64, error) {
//	    return -point[0] * point[0], nil
//	})
//	if err != nil {
//	    return err
//	}
//
//	if err := engine.Run(500); err != nil {
//	    return err
//	}
//
//	best, _ := engine.Recommend()
func NewEngine(config Config, covering Covering, oracle RewardOracle) (*Engine, error) {
	var errs *multierror.Error

	if !(config.V1 > 0) || math.IsInf(config.V1, 1) {
		errs = multierror.Append(errs, errors.WithMessagef(
			ErrConfiguration, "v1 is %v, must be a finite positive number", config.V1,
		))
	}

	if math.IsNaN(config.Rho) {
		errs = multierror.Append(errs, errors.WithMessage(ErrConfiguration, "rho is NaN"))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	logger := config.Logger

	rho, clamped := clampRho(config.Rho)
	if clamped {
		logger.Warn().
			Float64("requested", config.Rho).
			Float64("rho", rho).
			Msg("rho outside (0, 1), clamped")
	}

	rng := config.RandomState
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	interval := config.ProgressInterval
	if interval < 1 {
		interval = defaultProgressInterval
	}

	e := &Engine{
		v1:               config.V1,
		rho:              rho,
		rng:              rng,
		logger:           logger,
		interval:         interval,
		progress:         config.ProgressChan,
		inclusiveHorizon: config.InclusiveHorizon,
		covering:         covering,
		oracle:           oracle,
		tree:             newSearchTree(),
	}

	// Seed descent with two comparable children.
	if err := e.tree.activate(0); err != nil {
		return nil, err
	}

	return e, nil
}

// SetCovering sets the region accessor.
func (e *Engine) SetCovering(covering Covering) {
	e.covering = covering
}

// SetOracle sets the reward oracle.
func (e *Engine) SetOracle(oracle RewardOracle) {
	e.oracle = oracle
}

// V1 returns the diameter coefficient.
func (e *Engine) V1() float64 {
	return e.v1
}

// Rho returns the decay rate actually in use, after clamping.
func (e *Engine) Rho() float64 {
	return e.rho
}

// Rounds returns the number of rounds completed so far.
func (e *Engine) Rounds() int {
	return e.rounds
}

// LastArm returns a copy of the most recently pulled point, nil if no round
// has been played.
func (e *Engine) LastArm() []float64 {
	if e.lastArm == nil {
		return nil
	}

	return append([]float64(nil), e.lastArm...)
}

// LastReward returns the reward observed for LastArm.
func (e *Engine) LastReward() float64 {
	return e.lastReward
}

// Len returns the number of nodes in the tree.
func (e *Engine) Len() int {
	return e.tree.Len()
}

// Node returns a snapshot of node id. The root is node 0; child ids are
// found in NodeView.Left and NodeView.Right (-1 for an unactivated node).
func (e *Engine) Node(id int) NodeView {
	return e.tree.view(id)
}

// Tree returns snapshots of every node, indexed by node id.
func (e *Engine) Tree() []NodeView {
	views := make([]NodeView, e.tree.Len())
	for i := range views {
		views[i] = e.tree.view(i)
	}

	return views
}

// Run plays the rounds of a horizon of totalRounds. By default it plays
// totalRounds-1 rounds, numbered 1 through totalRounds-1; set
// Config.InclusiveHorizon to play exactly totalRounds. Calling Run again
// continues the same tree, with round numbers carrying on from the last
// completed round.
//
// Any error aborts the run: the round in progress is abandoned and earlier
// rounds are kept.
func (e *Engine) Run(totalRounds int) error {
	if e.oracle == nil {
		return errors.WithMessage(ErrNotConfigured, "no reward oracle")
	}

	if e.covering == nil {
		return errors.WithMessage(ErrNotConfigured, "no covering")
	}

	if totalRounds < 1 {
		return errors.WithMessagef(ErrConfiguration, "total rounds is %d, must be at least 1", totalRounds)
	}

	planned := totalRounds - 1
	if e.inclusiveHorizon {
		planned = totalRounds
	}

	e.logger.Debug().
		Int("total", totalRounds).
		Int("planned", planned).
		Int("completed", e.rounds).
		Msg("starting HOO run")

	for i := 0; i < planned; i++ {
		round := e.rounds + 1

		if err := e.playRound(round); err != nil {
			return errors.Wrapf(err, "round %d", round)
		}

		e.rounds = round

		if round%e.interval == 0 {
			e.sendProgress(round, totalRounds)
		}
	}

	e.logger.Debug().
		Int("completed", e.rounds).
		Int("nodes", e.tree.Len()).
		Msg("HOO run done")

	return nil
}

// Recommend returns the arm of the visited frontier node with the highest
// empirical mean; ties go to the node with more visits. A frontier node is a
// visited node neither of whose children has been visited. Before any round
// is played the root region's midpoint is returned.
func (e *Engine) Recommend() (Recommendation, error) {
	if e.covering == nil {
		return Recommendation{}, errors.WithMessage(ErrNotConfigured, "no covering")
	}

	best := 0
	found := false

	for i := range e.tree.nodes {
		n := &e.tree.nodes[i]
		if n.visits == 0 {
			continue
		}

		if n.activated && (e.tree.nodes[n.left].visits > 0 || e.tree.nodes[n.right].visits > 0) {
			continue
		}

		b := &e.tree.nodes[best]
		if !found || n.mean > b.mean || (n.mean == b.mean && n.visits > b.visits) {
			best = i
			found = true
		}
	}

	n := &e.tree.nodes[best]

	region, err := e.covering.RegionFor(n.depth, n.index)
	if err != nil {
		return Recommendation{}, err
	}

	return Recommendation{
		Point:  region.Midpoint(),
		Mean:   n.mean,
		Visits: n.visits,
		Depth:  n.depth,
		Index:  n.index,
	}, nil
}

// Optimize maximises objective over the box defined by ranges using HOO with
// a uniform dyadic covering, and returns the recommended parameters.
//
// Type Parameter:
//   - T: The floating-point type for parameters (float32 or float64)
//
// Usage example:
//
//	best, err := Optimize(
//	    DefaultConfig(),
//	    func(params ...float64) (float64, error) {
//	        x, y := params[0], params[1]
//	        return -(x*x + y*y), nil
//	    },
//	    1000,
//	    ParameterRange[float64]{Min: -5, Max: 5},
//	    ParameterRange[float64]{Min: -5, Max: 5},
//	)
func Optimize[T constraints.Float](
	config Config,
	objective ObjectiveFunc[T],
	totalRounds int,
	ranges ...ParameterRange[T],
) ([]T, error) {
	lower, upper := rangesToBounds(ranges)

	store, err := NewCoveringStore(lower, upper, CoveringConfig{})
	if err != nil {
		return nil, err
	}

	oracle := func(point []float64) (float64, error) {
		return objective(fromFloat64s[T](point)...)
	}

	engine, err := NewEngine(config, store, oracle)
	if err != nil {
		return nil, err
	}

	if err := engine.Run(totalRounds); err != nil {
		return nil, err
	}

	best, err := engine.Recommend()
	if err != nil {
		return nil, err
	}

	return fromFloat64s[T](best.Point), nil
}

//////
// Internal.
//////

// playRound runs one select, sample, update cycle.
func (e *Engine) playRound(round int) error {
	path := e.tree.selectPath(e.rng)
	leaf := path[len(path)-1]
	depth, index := e.tree.nodes[leaf].depth, e.tree.nodes[leaf].index

	region, err := e.covering.RegionFor(depth, index)
	if err != nil {
		return err
	}

	arm := region.Midpoint()

	reward, err := e.oracle(arm)
	if err != nil {
		return errors.Wrap(err, "reward oracle")
	}

	if !isFinite(reward) {
		return errors.WithMessagef(ErrNonFiniteReward, "oracle returned %v at %v", reward, arm)
	}

	if err := e.tree.activate(leaf); err != nil {
		return err
	}

	e.tree.recordOutcome(path, reward)
	e.tree.recomputeUpperBounds(round, e.v1, e.rho)
	e.tree.propagateBounds()

	e.lastArm = arm
	e.lastReward = reward

	return nil
}

// sendProgress logs and, if a channel is configured, emits a progress update.
func (e *Engine) sendProgress(round, totalRounds int) {
	e.logger.Info().
		Int("round", round).
		Int("total", totalRounds).
		Float64("reward", e.lastReward).
		Int("nodes", e.tree.Len()).
		Msgf("@round %d", round)

	if e.progress == nil {
		return
	}

	update := ProgressUpdate{
		Round:       round,
		TotalRounds: totalRounds,
		LastArm:     e.LastArm(),
		LastReward:  e.lastReward,
		Nodes:       e.tree.Len(),
	}

	select {
	case e.progress <- update:
	default:
		// Skip update if channel is full.
	}
}
