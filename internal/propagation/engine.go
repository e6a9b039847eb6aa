package propagation

import "fmt"

// View is the adjacency the reachability engine walks: the full router graph
// for the router-level pass, the AS peering graph for the eBGP pass.
// Neighbor lists are kept sorted by the caller.
type View[N comparable] struct {
	Adj map[N][]N
}

func (v *View[N]) HasEdge(a, b N) bool {
	for _, n := range v.Adj[a] {
		if n == b {
			return true
		}
	}
	return false
}

// Engine is the external reachability primitive: given a view and the
// per-requirement ranked path facts for one prefix, it returns the
// propagation graph recording paths, blocks and preference order per node.
// The pipeline consumes this contract; internal/reachability carries the
// reference implementation.
type Engine[N comparable] interface {
	ComputePropagation(view *View[N], facts []RankedFacts[N]) (*Graph[N], error)
}

// OrderViolation reports a requested preference that is not realizable at
// the eBGP level. Violations are collected, not fatal; the caller decides
// what to do with them.
type OrderViolation struct {
	Prefix    string
	Node      string
	Preferred string // path key of the path that was requested preferred
	Over      string // path key it cannot be preferred over
}

func (v OrderViolation) String() string {
	return fmt.Sprintf("prefix %s at %s: cannot prefer %s over %s", v.Prefix, v.Node, v.Preferred, v.Over)
}

// OrderChecker is the external ordering-feasibility check over the
// eBGP-level graph.
type OrderChecker interface {
	CheckOrder(g *Graph[int]) []OrderViolation
}
