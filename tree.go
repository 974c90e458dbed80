package hoo

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// noChild marks a node that has not been activated yet.
const noChild = -1

// node is one tree position. Nodes live in the searchTree arena and refer to
// their children by arena index.
type node struct {
	left, right int

	activated bool

	// depth and index locate the node: depth 0 is the root, index is 1-based
	// within the level, read left to right.
	depth int
	index uint64

	visits int
	mean   float64

	// u is the node's own optimistic bound, b the back-propagated bound used
	// for descent.
	u, b float64
}

// NodeView is a read-only snapshot of a tree node.
type NodeView struct {
	Depth           int
	Index           uint64
	Activated       bool
	Visits          int
	Mean            float64
	UpperBound      float64
	PropagatedBound float64
	Left, Right     int
}

// searchTree is the lazily expanded binary tree. Index 0 is the root.
// Children are always appended after their parent, so every parent has a
// smaller arena index than its children.
type searchTree struct {
	nodes []node
}

func newSearchTree() *searchTree {
	t := &searchTree{}
	t.nodes = append(t.nodes, newNode(0, 1))

	return t
}

func newNode(depth int, index uint64) node {
	return node{
		left:  noChild,
		right: noChild,
		depth: depth,
		index: index,
		u:     math.Inf(1),
		b:     math.Inf(1),
	}
}

// Len returns the number of nodes.
func (t *searchTree) Len() int {
	return len(t.nodes)
}

// view returns a snapshot of node id.
func (t *searchTree) view(id int) NodeView {
	n := &t.nodes[id]

	return NodeView{
		Depth:           n.depth,
		Index:           n.index,
		Activated:       n.activated,
		Visits:          n.visits,
		Mean:            n.mean,
		UpperBound:      n.u,
		PropagatedBound: n.b,
		Left:            n.left,
		Right:           n.right,
	}
}

// activate gives node id two fresh children with infinite B-values.
func (t *searchTree) activate(id int) error {
	n := &t.nodes[id]
	if n.activated {
		return errors.WithMessagef(ErrInvariantViolation, "node (%d, %d) is already activated", n.depth, n.index)
	}

	if n.depth >= MaxDepth {
		return errors.WithMessagef(ErrInvariantViolation, "node (%d, %d) is at the maximum depth", n.depth, n.index)
	}

	depth, index := n.depth+1, n.index

	left := len(t.nodes)
	t.nodes = append(t.nodes, newNode(depth, 2*index-1), newNode(depth, 2*index))

	// Re-take the pointer: append may have moved the arena.
	n = &t.nodes[id]
	n.left, n.right = left, left+1
	n.activated = true

	return nil
}

// selectPath descends from the root while the current node is activated,
// following the child with the strictly greater B-value. Exact ties are
// broken with a uniform draw from rng. The returned path runs from the root
// to the first unactivated node, inclusive.
func (t *searchTree) selectPath(rng *rand.Rand) []int {
	path := []int{0}

	current := 0
	for t.nodes[current].activated {
		n := &t.nodes[current]
		lb, rb := t.nodes[n.left].b, t.nodes[n.right].b

		switch {
		case lb > rb:
			current = n.left
		case lb < rb:
			current = n.right
		case rng.Float64() > 0.5:
			current = n.left
		default:
			current = n.right
		}

		path = append(path, current)
	}

	return path
}

// recordOutcome folds reward into the running mean of every node on path.
func (t *searchTree) recordOutcome(path []int, reward float64) {
	for _, id := range path {
		n := &t.nodes[id]
		n.visits++
		n.mean += (reward - n.mean) / float64(n.visits)
	}
}

// recomputeUpperBounds sets, for every activated node,
//
//	U = mean + sqrt(2 ln(round) / visits) + v1 * rho^depth
//
// A never-visited node gets U = +Inf.
func (t *searchTree) recomputeUpperBounds(round int, v1, rho float64) {
	logRound := math.Log(float64(round))

	for i := range t.nodes {
		n := &t.nodes[i]
		if !n.activated {
			continue
		}

		if n.visits == 0 {
			n.u = math.Inf(1)
			continue
		}

		n.u = n.mean + math.Sqrt(2*logRound/float64(n.visits)) + v1*math.Pow(rho, float64(n.depth))
	}
}

// propagateBounds sets B = min(U, max(B_left, B_right)) for every activated
// node, children before parents. Walking the arena backwards is a valid
// post-order since children always come after their parent. Unactivated
// nodes keep B = +Inf.
func (t *searchTree) propagateBounds() {
	for i := len(t.nodes) - 1; i >= 0; i-- {
		n := &t.nodes[i]
		if !n.activated {
			continue
		}

		n.b = math.Min(n.u, math.Max(t.nodes[n.left].b, t.nodes[n.right].b))
	}
}
