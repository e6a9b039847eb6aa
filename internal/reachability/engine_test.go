package reachability

import (
	"testing"

	"github.com/route-beacon/bgp-synth/internal/propagation"
	"go.uber.org/zap"
)

func lineView() *propagation.View[string] {
	return &propagation.View[string]{Adj: map[string][]string{
		"a": {"b"},
		"b": {"a", "c"},
		"c": {"b"},
	}}
}

func singlePath(nodes ...string) []propagation.RankedFacts[string] {
	return []propagation.RankedFacts[string]{
		{{propagation.Fact[string]{Origin: nodes[0], Path: propagation.Path[string](nodes)}}},
	}
}

func TestComputePropagation_SubpathsAndEdges(t *testing.T) {
	e := NewEngine[string](zap.NewNop())
	g, err := e.ComputePropagation(lineView(), singlePath("a", "b", "c"))
	if err != nil {
		t.Fatalf("ComputePropagation: %v", err)
	}

	if !g.Node("a").Paths.Has(propagation.Path[string]{"a"}) {
		t.Fatal("expected origin subpath at a")
	}
	if !g.Node("b").Paths.Has(propagation.Path[string]{"a", "b"}) {
		t.Fatal("expected subpath a>b at b")
	}
	if !g.Node("c").Paths.Has(propagation.Path[string]{"a", "b", "c"}) {
		t.Fatal("expected full path at c")
	}
	if g.Node("c").Paths.Has(propagation.Path[string]{"a", "b"}) {
		t.Fatal("c must not hold another node's subpath")
	}
	if !g.HasEdge("a", "b") || !g.HasEdge("b", "c") {
		t.Fatal("expected edges along the path")
	}
	if g.HasEdge("a", "c") {
		t.Fatal("engine must not invent edges")
	}
}

func TestComputePropagation_InfeasiblePathSkipped(t *testing.T) {
	e := NewEngine[string](zap.NewNop())
	g, err := e.ComputePropagation(lineView(), singlePath("a", "c"))
	if err != nil {
		t.Fatalf("expected infeasible path to be non-fatal, got %v", err)
	}
	if len(g.Nodes()) != 0 {
		t.Fatalf("expected an empty graph, got nodes %v", g.Nodes())
	}
}

func TestComputePropagation_EmptyPathIsError(t *testing.T) {
	e := NewEngine[string](zap.NewNop())
	facts := []propagation.RankedFacts[string]{
		{{propagation.Fact[string]{Origin: "a", Path: nil}}},
	}
	if _, err := e.ComputePropagation(lineView(), facts); err == nil {
		t.Fatal("expected error for empty fact path")
	}
}

func TestComputePropagation_RanksContiguousPerGroup(t *testing.T) {
	e := NewEngine[string](zap.NewNop())
	view := &propagation.View[string]{Adj: map[string][]string{
		"a": {"c"},
		"b": {"c"},
		"c": {"a", "b"},
	}}
	facts := []propagation.RankedFacts[string]{
		{
			{propagation.Fact[string]{Origin: "a", Path: propagation.Path[string]{"a", "c"}}},
			{propagation.Fact[string]{Origin: "b", Path: propagation.Path[string]{"b", "c"}}},
		},
	}
	g, err := e.ComputePropagation(view, facts)
	if err != nil {
		t.Fatalf("ComputePropagation: %v", err)
	}

	order := g.Node("c").Order
	if len(order) != 2 {
		t.Fatalf("expected two ranks at c, got %d", len(order))
	}
	if !order[0].Has(propagation.Path[string]{"a", "c"}) {
		t.Fatal("expected the preferred path in rank 0")
	}
	if !order[1].Has(propagation.Path[string]{"b", "c"}) {
		t.Fatal("expected the less preferred path in rank 1")
	}

	// Nodes only one path crosses carry a single rank.
	if len(g.Node("a").Order) != 1 || len(g.Node("b").Order) != 1 {
		t.Fatal("expected one rank at each origin")
	}
}

func TestComputePropagation_IntView(t *testing.T) {
	e := NewEngine[int](zap.NewNop())
	view := &propagation.View[int]{Adj: map[int][]int{
		10: {20},
		20: {10},
	}}
	facts := []propagation.RankedFacts[int]{
		{{propagation.Fact[int]{Origin: "r1", Path: propagation.Path[int]{10, 20}}}},
	}
	g, err := e.ComputePropagation(view, facts)
	if err != nil {
		t.Fatalf("ComputePropagation: %v", err)
	}
	if !g.Node(20).Paths.Has(propagation.Path[int]{10, 20}) {
		t.Fatal("expected AS 20 to hold path (10, 20)")
	}
}
