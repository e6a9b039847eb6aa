package propagation

import (
	"fmt"
	"sort"

	"github.com/route-beacon/bgp-synth/internal/reqs"
	"github.com/route-beacon/bgp-synth/internal/topology"
	"go.uber.org/zap"
)

// Builder orchestrates the per-prefix propagation computation: requirement
// translation, the two engine passes (AS-level and router-level), the
// ordering check, the AS-path expansion closure and the final merge.
type Builder struct {
	topo         *topology.Graph
	zones        Zones
	asEngine     Engine[int]
	routerEngine Engine[string]
	checker      OrderChecker
	expander     *Expander
	logger       *zap.Logger
}

func NewBuilder(
	topo *topology.Graph,
	zones Zones,
	asEngine Engine[int],
	routerEngine Engine[string],
	checker OrderChecker,
	logger *zap.Logger,
) *Builder {
	return &Builder{
		topo:         topo,
		zones:        zones,
		asEngine:     asEngine,
		routerEngine: routerEngine,
		checker:      checker,
		expander:     NewExpander(topo, zones),
		logger:       logger,
	}
}

// Result is the outcome of ComputeGraphs: the per-prefix graphs of both
// views, the merged multi-prefix graphs, and any collected ordering
// violations (recoverable; the caller decides what to do with them).
type Result struct {
	EBGP       map[string]*Graph[int]
	IBGP       map[string]*Graph[string]
	MergedEBGP *Merged[int]
	MergedIBGP *Merged[string]
	Violations []OrderViolation
}

// RouterView builds the engine view over the full router graph.
func (b *Builder) RouterView() *View[string] {
	adj := make(map[string][]string)
	for _, node := range b.topo.Routers() {
		var neighbors []string
		for _, nb := range b.topo.Neighbors(node) {
			if b.topo.IsRouter(nb) {
				neighbors = append(neighbors, nb)
			}
		}
		adj[node] = neighbors
	}
	return &View[string]{Adj: adj}
}

// ASView builds the engine view over AS-level peering: one node per AS
// number, an edge wherever an eBGP session exists between the two ASes.
func (b *Builder) ASView() *View[int] {
	adjSet := make(map[int]map[int]struct{})
	for _, node := range b.topo.Routers() {
		asn := b.topo.ASN(node)
		if asn == 0 {
			continue
		}
		if _, ok := adjSet[asn]; !ok {
			adjSet[asn] = make(map[int]struct{})
		}
		for _, nb := range b.topo.BGPNeighbors(node) {
			nbAS := b.topo.ASN(nb)
			if nbAS == 0 || nbAS == asn {
				continue
			}
			adjSet[asn][nbAS] = struct{}{}
			if _, ok := adjSet[nbAS]; !ok {
				adjSet[nbAS] = make(map[int]struct{})
			}
			adjSet[nbAS][asn] = struct{}{}
		}
	}
	adj := make(map[int][]int, len(adjSet))
	for asn, set := range adjSet {
		neighbors := make([]int, 0, len(set))
		for nb := range set {
			neighbors = append(neighbors, nb)
		}
		sort.Ints(neighbors)
		adj[asn] = neighbors
	}
	return &View[int]{Adj: adj}
}

// GroupByPrefix buckets requirements by destination prefix.
func GroupByPrefix(rs []reqs.Requirement) map[string][]reqs.Requirement {
	out := make(map[string][]reqs.Requirement)
	for _, r := range rs {
		out[r.DstNet()] = append(out[r.DstNet()], r)
	}
	return out
}

// ComputeGraphs runs the two engine passes for every prefix, closes the
// router-level view with AS-path expansion, and merges the per-prefix
// results. Prefixes are processed in sorted order.
func (b *Builder) ComputeGraphs(requirements []reqs.Requirement) (*Result, error) {
	byPrefix := GroupByPrefix(requirements)
	prefixes := make([]string, 0, len(byPrefix))
	for p := range byPrefix {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	asView := b.ASView()
	routerView := b.RouterView()

	res := &Result{
		EBGP:       make(map[string]*Graph[int], len(prefixes)),
		IBGP:       make(map[string]*Graph[string], len(prefixes)),
		MergedEBGP: NewMerged[int](),
		MergedIBGP: NewMerged[string](),
	}

	for _, prefix := range prefixes {
		asFacts, routerFacts, err := extractFacts(b.topo, byPrefix[prefix])
		if err != nil {
			return nil, fmt.Errorf("propagation: prefix %s: %w", prefix, err)
		}

		ebgpGraph, err := b.asEngine.ComputePropagation(asView, asFacts)
		if err != nil {
			return nil, fmt.Errorf("propagation: eBGP pass for %s: %w", prefix, err)
		}
		ibgpGraph, err := b.routerEngine.ComputePropagation(routerView, routerFacts)
		if err != nil {
			return nil, fmt.Errorf("propagation: router pass for %s: %w", prefix, err)
		}

		// The requirement translation can leave empty ranks behind.
		for _, node := range ibgpGraph.Nodes() {
			info := ibgpGraph.Node(node)
			kept := info.Order[:0]
			for _, rank := range info.Order {
				if rank.Len() > 0 {
					kept = append(kept, rank)
				}
			}
			info.Order = kept
		}

		for _, v := range b.checker.CheckOrder(ebgpGraph) {
			v.Prefix = prefix
			res.Violations = append(res.Violations, v)
		}

		b.expandClosure(ebgpGraph, ibgpGraph, asFacts)

		res.EBGP[prefix] = ebgpGraph
		res.IBGP[prefix] = ibgpGraph

		b.logger.Debug("propagation graphs computed",
			zap.String("prefix", prefix),
			zap.Int("ebgp_nodes", len(ebgpGraph.Nodes())),
			zap.Int("ibgp_nodes", len(ibgpGraph.Nodes())),
		)
	}

	for _, prefix := range prefixes {
		res.MergedEBGP.Absorb(prefix, res.EBGP[prefix])
		res.MergedIBGP.Absorb(prefix, res.IBGP[prefix])
	}
	return res, nil
}

// expandClosure expands every AS-level path of the eBGP graph into concrete
// router paths and records, on the router graph, the ones the router-level
// pass did not already select as blocked.
func (b *Builder) expandClosure(ebgp *Graph[int], ibgp *Graph[string], asFacts []RankedFacts[int]) {
	origins := make(map[int]map[string]bool)
	for _, group := range asFacts {
		for _, rank := range group {
			for _, fact := range rank {
				if len(fact.Path) == 0 {
					continue
				}
				first := fact.Path[0]
				if origins[first] == nil {
					origins[first] = make(map[string]bool)
				}
				origins[first][fact.Origin] = true
			}
		}
	}

	all := NewPathSet[int]()
	for _, node := range ebgp.Nodes() {
		info := ebgp.Node(node)
		for _, p := range info.Paths.Union(info.Block).Paths() {
			all.Add(p)
		}
	}

	for _, seq := range all.Paths() {
		originSet := origins[seq[0]]
		originList := make([]string, 0, len(originSet))
		for o := range originSet {
			originList = append(originList, o)
		}
		sort.Strings(originList)
		for _, rp := range b.expander.Expand(seq, originList) {
			info := ibgp.Ensure(rp.Last())
			if !info.Paths.Has(rp) {
				info.Block.Add(rp)
			}
		}
	}
}
