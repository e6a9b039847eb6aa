// Package topology models the network as an owned directed graph of routers,
// external peers and networks, with BGP, interface and policy attributes kept
// in side tables keyed by node name. Nodes and edges can only be inserted
// through the typed constructors, which validate endpoint kinds; there is no
// untyped insertion path.
//
// All iteration helpers return names in sorted order. Algorithms that pick a
// representative among equally valid candidates rely on this for
// deterministic results.
package topology

import (
	"fmt"
	"sort"

	"github.com/route-beacon/bgp-synth/internal/policy"
)

// Kind is the fixed type of a node, set once at creation.
type Kind int

const (
	KindRouter Kind = iota + 1
	KindPeer
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindRouter:
		return "router"
	case KindPeer:
		return "peer"
	case KindNetwork:
		return "network"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// EdgeKind tags how an edge was inserted.
type EdgeKind int

const (
	EdgeRouter EdgeKind = iota + 1
	EdgePeer
	EdgeNetwork
)

type nodeAttrs struct {
	kind        Kind
	bgp         *bgpAttrs
	ifaces      map[string]*Iface
	loopbacks   map[string]*Iface
	routeMaps   map[string]*policy.RouteMap
	prefixLists map[string]*policy.IPPrefixList
}

type edgeAttrs struct {
	kind  EdgeKind
	iface string
}

// Sequence produces the auto-assigned numeric identifiers used for community
// list IDs and generated prefix-list names. It is owned by the graph and
// injected at construction so tests can predict generated names.
type Sequence interface {
	Next() int
}

type counterSeq struct{ n int }

func (c *counterSeq) Next() int {
	c.n++
	return c.n
}

// NewSequence returns a Sequence counting 1, 2, 3, ...
func NewSequence() Sequence { return &counterSeq{} }

// Graph is the mutable topology. It is not safe for concurrent use; the
// synthesis pipeline is single-writer by contract.
type Graph struct {
	nodes map[string]*nodeAttrs
	out   map[string]map[string]*edgeAttrs
	seq   Sequence
}

// New returns an empty graph with a default identifier sequence.
func New() *Graph {
	return NewWithSequence(NewSequence())
}

// NewWithSequence returns an empty graph using the given identifier sequence.
func NewWithSequence(seq Sequence) *Graph {
	return &Graph{
		nodes: make(map[string]*nodeAttrs),
		out:   make(map[string]map[string]*edgeAttrs),
		seq:   seq,
	}
}

func (g *Graph) addNode(name string, kind Kind) error {
	if name == "" {
		return fmt.Errorf("topology: empty node name")
	}
	if existing, ok := g.nodes[name]; ok {
		if existing.kind != kind {
			return fmt.Errorf("topology: node %s already exists as %s", name, existing.kind)
		}
		return nil
	}
	g.nodes[name] = &nodeAttrs{kind: kind}
	g.out[name] = make(map[string]*edgeAttrs)
	return nil
}

// AddRouter adds a local router under the administrative domain.
func (g *Graph) AddRouter(name string) error { return g.addNode(name, KindRouter) }

// AddPeer adds an external peering router.
func (g *Graph) AddPeer(name string) error { return g.addNode(name, KindPeer) }

// AddNetwork adds a subnet node.
func (g *Graph) AddNetwork(name string) error { return g.addNode(name, KindNetwork) }

func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

func (g *Graph) IsLocalRouter(name string) bool {
	n, ok := g.nodes[name]
	return ok && n.kind == KindRouter
}

func (g *Graph) IsPeer(name string) bool {
	n, ok := g.nodes[name]
	return ok && n.kind == KindPeer
}

// IsRouter reports whether the node is a local router or an external peer.
func (g *Graph) IsRouter(name string) bool {
	return g.IsLocalRouter(name) || g.IsPeer(name)
}

func (g *Graph) IsNetwork(name string) bool {
	n, ok := g.nodes[name]
	return ok && n.kind == KindNetwork
}

func (g *Graph) addEdge(u, v string, kind EdgeKind) error {
	if !g.HasNode(u) || !g.HasNode(v) {
		return fmt.Errorf("topology: edge (%s, %s) references unknown node", u, v)
	}
	g.out[u][v] = &edgeAttrs{kind: kind}
	return nil
}

// AddRouterEdge links two local routers.
func (g *Graph) AddRouterEdge(u, v string) error {
	if !g.IsLocalRouter(u) || !g.IsLocalRouter(v) {
		return fmt.Errorf("topology: router edge (%s, %s): both endpoints must be local routers", u, v)
	}
	return g.addEdge(u, v, EdgeRouter)
}

// AddPeerEdge links a local router and an external peer (either direction).
func (g *Graph) AddPeerEdge(u, v string) error {
	if !g.IsPeer(u) && !g.IsPeer(v) {
		return fmt.Errorf("topology: peer edge (%s, %s): one endpoint must be a peer", u, v)
	}
	if !g.IsRouter(u) || !g.IsRouter(v) {
		return fmt.Errorf("topology: peer edge (%s, %s): both endpoints must be routers", u, v)
	}
	return g.addEdge(u, v, EdgePeer)
}

// AddNetworkEdge links a router and a network.
func (g *Graph) AddNetworkEdge(u, v string) error {
	routerSide := g.IsRouter(u) || g.IsRouter(v)
	networkSide := g.IsNetwork(u) || g.IsNetwork(v)
	if !routerSide || !networkSide {
		return fmt.Errorf("topology: network edge (%s, %s): need one router and one network", u, v)
	}
	return g.addEdge(u, v, EdgeNetwork)
}

func (g *Graph) HasEdge(u, v string) bool {
	_, ok := g.out[u][v]
	return ok
}

// Neighbors returns the out-neighbors of a node in sorted order.
func (g *Graph) Neighbors(name string) []string {
	edges, ok := g.out[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(edges))
	for v := range edges {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Edges returns all directed edges sorted by (src, dst).
func (g *Graph) Edges() [][2]string {
	var edges [][2]string
	for u, m := range g.out {
		for v := range m {
			edges = append(edges, [2]string{u, v})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

func (g *Graph) nodesOfKind(match func(string) bool) []string {
	var out []string
	for name := range g.nodes {
		if match(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// LocalRouters returns all local routers sorted by name.
func (g *Graph) LocalRouters() []string { return g.nodesOfKind(g.IsLocalRouter) }

// Peers returns all external peers sorted by name.
func (g *Graph) Peers() []string { return g.nodesOfKind(g.IsPeer) }

// Routers returns local routers and peers sorted by name.
func (g *Graph) Routers() []string { return g.nodesOfKind(g.IsRouter) }

// Networks returns all network nodes sorted by name.
func (g *Graph) Networks() []string { return g.nodesOfKind(g.IsNetwork) }

func (g *Graph) router(name string) (*nodeAttrs, error) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, fmt.Errorf("topology: unknown node %s", name)
	}
	if n.kind == KindNetwork {
		return nil, fmt.Errorf("topology: node %s is not a router", name)
	}
	return n, nil
}

func (g *Graph) edge(u, v string) (*edgeAttrs, error) {
	e, ok := g.out[u][v]
	if !ok {
		return nil, fmt.Errorf("topology: no edge (%s, %s)", u, v)
	}
	return e, nil
}
