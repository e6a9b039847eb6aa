// Package reachability carries the reference implementation of the
// propagation primitives: a graph-walking engine that realizes requirement
// paths against a view's adjacency, and a feasibility check over the
// preference orderings it produces.
package reachability

import (
	"fmt"
	"sort"

	"github.com/route-beacon/bgp-synth/internal/propagation"
	"go.uber.org/zap"
)

// Engine walks each requirement path through the view and records, at every
// node along the way, the subpath ending there. Paths with a hop the view
// has no edge for are reported, not realized.
type Engine[N comparable] struct {
	logger *zap.Logger
}

func NewEngine[N comparable](logger *zap.Logger) *Engine[N] {
	return &Engine[N]{logger: logger}
}

// ComputePropagation builds the propagation graph for one prefix. Every
// feasible fact path contributes its node-by-node subpaths to Paths, its
// hops as edges, and its full rank position to the Order list of each node
// it crosses. A requirement group's ranks are appended to a node's Order as
// a contiguous run, most preferred first.
func (e *Engine[N]) ComputePropagation(view *propagation.View[N], facts []propagation.RankedFacts[N]) (*propagation.Graph[N], error) {
	g := propagation.NewGraph[N]()

	for _, group := range facts {
		ranked := make(map[string][]*propagation.PathSet[N])
		var rankedNodes []N
		seen := make(map[string]bool)

		for rankIdx, rank := range group {
			for _, fact := range rank {
				path := fact.Path
				if len(path) == 0 {
					return nil, fmt.Errorf("reachability: empty fact path from origin %s", fact.Origin)
				}
				if !e.feasible(view, path) {
					e.logger.Warn("requirement path not realizable in view",
						zap.String("origin", fact.Origin),
						zap.String("path", path.Key()),
					)
					continue
				}
				for i := range path {
					node := path[i]
					sub := path[:i+1]
					g.Ensure(node).Paths.Add(sub)
					if i > 0 {
						g.AddEdge(path[i-1], node)
					}
					key := fmt.Sprint(node)
					if !seen[key] {
						seen[key] = true
						rankedNodes = append(rankedNodes, node)
					}
					sets := ranked[key]
					for len(sets) <= rankIdx {
						sets = append(sets, propagation.NewPathSet[N]())
					}
					sets[rankIdx].Add(sub)
					ranked[key] = sets
				}
			}
		}

		sort.Slice(rankedNodes, func(i, j int) bool {
			return fmt.Sprint(rankedNodes[i]) < fmt.Sprint(rankedNodes[j])
		})
		for _, node := range rankedNodes {
			info := g.Node(node)
			for _, set := range ranked[fmt.Sprint(node)] {
				if set.Len() > 0 {
					info.Order = append(info.Order, set)
				}
			}
		}
	}
	return g, nil
}

func (e *Engine[N]) feasible(view *propagation.View[N], path propagation.Path[N]) bool {
	if _, ok := view.Adj[path[0]]; !ok {
		return false
	}
	for i := 1; i < len(path); i++ {
		if !view.HasEdge(path[i-1], path[i]) {
			return false
		}
	}
	return true
}
