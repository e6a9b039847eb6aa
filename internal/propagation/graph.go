package propagation

import (
	"fmt"
	"sort"
)

// PathSet is a set of paths with deterministic (key-sorted) iteration.
type PathSet[N comparable] struct {
	m map[string]Path[N]
}

func NewPathSet[N comparable]() *PathSet[N] {
	return &PathSet[N]{m: make(map[string]Path[N])}
}

func (s *PathSet[N]) Add(p Path[N]) { s.m[p.Key()] = p }

func (s *PathSet[N]) Has(p Path[N]) bool {
	_, ok := s.m[p.Key()]
	return ok
}

func (s *PathSet[N]) Len() int { return len(s.m) }

// Paths returns the members sorted by key.
func (s *PathSet[N]) Paths() []Path[N] {
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Path[N], 0, len(keys))
	for _, k := range keys {
		out = append(out, s.m[k])
	}
	return out
}

// Union returns a new set holding the members of both.
func (s *PathSet[N]) Union(t *PathSet[N]) *PathSet[N] {
	out := NewPathSet[N]()
	for k, p := range s.m {
		out.m[k] = p
	}
	for k, p := range t.m {
		out.m[k] = p
	}
	return out
}

// Info carries what one node knows about one prefix: the paths it receives
// or selects, the paths known infeasible at it, and the preference ranking
// (outer index = rank, empty ranks removed by the builder).
type Info[N comparable] struct {
	Paths *PathSet[N]
	Block *PathSet[N]
	Order []*PathSet[N]
}

func NewInfo[N comparable]() *Info[N] {
	return &Info[N]{Paths: NewPathSet[N](), Block: NewPathSet[N]()}
}

// Graph is one per-prefix propagation graph over a single view (router-level
// or AS-level). Edges are undirected adjacency.
type Graph[N comparable] struct {
	nodes map[N]*Info[N]
	adj   map[N]map[N]struct{}
}

func NewGraph[N comparable]() *Graph[N] {
	return &Graph[N]{
		nodes: make(map[N]*Info[N]),
		adj:   make(map[N]map[N]struct{}),
	}
}

// Ensure returns the node's info, creating it if absent.
func (g *Graph[N]) Ensure(node N) *Info[N] {
	if info, ok := g.nodes[node]; ok {
		return info
	}
	info := NewInfo[N]()
	g.nodes[node] = info
	g.adj[node] = make(map[N]struct{})
	return info
}

// Node returns the node's info, or nil when the node is absent.
func (g *Graph[N]) Node(node N) *Info[N] { return g.nodes[node] }

func (g *Graph[N]) HasNode(node N) bool {
	_, ok := g.nodes[node]
	return ok
}

// AddEdge inserts an undirected edge, creating endpoints as needed.
func (g *Graph[N]) AddEdge(u, v N) {
	g.Ensure(u)
	g.Ensure(v)
	g.adj[u][v] = struct{}{}
	g.adj[v][u] = struct{}{}
}

func (g *Graph[N]) HasEdge(u, v N) bool {
	_, ok := g.adj[u][v]
	return ok
}

// Nodes returns all nodes sorted by their printed form.
func (g *Graph[N]) Nodes() []N {
	out := make([]N, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
	})
	return out
}

// Edges returns each undirected edge once, normalized and sorted.
func (g *Graph[N]) Edges() [][2]N {
	seen := make(map[string]struct{})
	var out [][2]N
	for u, m := range g.adj {
		for v := range m {
			a, b := fmt.Sprint(u), fmt.Sprint(v)
			if a > b {
				continue
			}
			key := a + "|" + b
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, [2]N{u, v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ai, bi := fmt.Sprint(out[i][0]), fmt.Sprint(out[i][1])
		aj, bj := fmt.Sprint(out[j][0]), fmt.Sprint(out[j][1])
		if ai != aj {
			return ai < aj
		}
		return bi < bj
	})
	return out
}

// Merged is the union of all per-prefix graphs over one view: every edge of
// any per-prefix graph, and per node the prefix-indexed info maps.
type Merged[N comparable] struct {
	adj  map[N]map[N]struct{}
	nets map[N]map[string]*Info[N]
}

func NewMerged[N comparable]() *Merged[N] {
	return &Merged[N]{
		adj:  make(map[N]map[N]struct{}),
		nets: make(map[N]map[string]*Info[N]),
	}
}

// Absorb unions one per-prefix graph into the merged structure. Pure
// aggregation: the per-prefix info is referenced, not re-derived.
func (m *Merged[N]) Absorb(prefix string, g *Graph[N]) {
	for _, node := range g.Nodes() {
		if _, ok := m.nets[node]; !ok {
			m.nets[node] = make(map[string]*Info[N])
			m.adj[node] = make(map[N]struct{})
		}
		m.nets[node][prefix] = g.Node(node)
	}
	for _, e := range g.Edges() {
		m.adj[e[0]][e[1]] = struct{}{}
		m.adj[e[1]][e[0]] = struct{}{}
	}
}

// Nodes returns all nodes sorted by printed form.
func (m *Merged[N]) Nodes() []N {
	out := make([]N, 0, len(m.nets))
	for n := range m.nets {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
	})
	return out
}

// Prefixes returns the prefixes a node appears under, sorted.
func (m *Merged[N]) Prefixes(node N) []string {
	nets, ok := m.nets[node]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(nets))
	for p := range nets {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Info returns the node's per-prefix info, or nil.
func (m *Merged[N]) Info(node N, prefix string) *Info[N] {
	return m.nets[node][prefix]
}

func (m *Merged[N]) HasEdge(u, v N) bool {
	_, ok := m.adj[u][v]
	return ok
}

// Edges returns each undirected edge once, normalized and sorted.
func (m *Merged[N]) Edges() [][2]N {
	seen := make(map[string]struct{})
	var out [][2]N
	for u, adj := range m.adj {
		for v := range adj {
			a, b := fmt.Sprint(u), fmt.Sprint(v)
			if a > b {
				continue
			}
			key := a + "|" + b
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, [2]N{u, v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ai, bi := fmt.Sprint(out[i][0]), fmt.Sprint(out[i][1])
		aj, bj := fmt.Sprint(out[j][0]), fmt.Sprint(out[j][1])
		if ai != aj {
			return ai < aj
		}
		return bi < bj
	})
	return out
}
