// Package hoo provides sequential optimization of noisy, black-box functions
// over continuous domains using Hierarchical Optimistic Optimization (HOO),
// the X-armed bandit algorithm of Bubeck et al., 2011.
//
// # Features
//
// The package includes the following key features:
//
//   - Lazily grown binary tree of nested coverings of the domain, refined only
//     where rewards look promising
//   - Optimistic descent: per-node upper confidence bounds (U-values) are
//     propagated bottom-up into B-values that drive the search
//   - Dyadic covering of hyper-rectangles with configurable per-dimension
//     bisection priorities
//   - Reproducible runs through an injectable random source (only used to
//     break ties)
//   - Progress Monitoring: structured logs and non-blocking progress channel
//   - Generic helper working with float32 and float64 parameters
//
// # Installation
//
// To install the package, use:
//
//	go get github.com/thalesfsp/hoo
//
// # How it works
//
// Every tree node owns a region of the domain. The root owns the whole box;
// the children of a node split its region in half along one dimension. Each
// round:
//
//  1. Descends from the root to an unexplored node, always following the
//     child with the larger B-value (ties broken at random)
//  2. Pulls the midpoint of that node's region and observes the reward
//  3. Expands the node into two unexplored children
//  4. Updates visit counts and mean rewards along the path
//  5. Recomputes every U-value as
//
//     U = mean + sqrt(2 ln(round) / visits) + V1 * Rho^depth
//
//     and every B-value as B = min(U, max(B_left, B_right)), unexplored nodes
//     having B = +Inf
//
// # Quick start
//
//	best, err := hoo.Optimize(
//	    hoo.DefaultConfig(),
//	    func(params ...float64) (float64, error) {
//	        x := params[0]
//	        return -(x - 0.3) * (x - 0.3), nil
//	    },
//	    500,
//	    hoo.ParameterRange[float64]{Min: -1, Max: 1},
//	)
//
// # Fine-grained control
//
// Build the covering and the engine directly to choose bisection priorities,
// inspect the tree, or resume a run:
//
//	store, err := hoo.NewCoveringStore(
//	    []float64{-2, -1},
//	    []float64{2, 1},
//	    hoo.CoveringConfig{PriorityWeights: []int{2, 1}},
//	)
//
//	config := hoo.DefaultConfig()
//	config.RandomState = rand.New(rand.NewSource(42))
//
//	engine, err := hoo.NewEngine(config, store, oracle)
//	err = engine.Run(1000)
//
//	best, err := engine.Recommend()
//
// # Configuration
//
//   - V1 (> 0) and Rho (in (0, 1)) bound the diameter of coverings at depth h
//     by V1*Rho^h. Rho outside (0, 1) is clamped to 0.001 or 0.999 and a
//     warning is logged; it is not an error.
//   - Run(n) plays n-1 rounds, numbered 1 through n-1. Set
//     InclusiveHorizon to play exactly n.
//
// # Thread Safety
//
// An Engine runs a single round at a time and is not safe for concurrent
// use. Separate engines with separate configs may run in parallel.
//
// # Memory
//
// The tree gains two nodes per round and never shrinks. Cap the number of
// rounds to bound memory.
package hoo
