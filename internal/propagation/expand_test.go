package propagation

import (
	"testing"

	"github.com/route-beacon/bgp-synth/internal/sketch"
	"github.com/route-beacon/bgp-synth/internal/topology"
)

// ecmpTopo builds an external origin e (AS 10) peered with r1 and r2, which
// both have iBGP sessions to r3 (all AS 20).
func ecmpTopo(t *testing.T) *topology.Graph {
	t.Helper()
	g := topology.New()
	if err := g.AddPeer("e"); err != nil {
		t.Fatalf("AddPeer: %v", err)
	}
	for _, r := range []string{"r1", "r2", "r3"} {
		if err := g.AddRouter(r); err != nil {
			t.Fatalf("AddRouter(%s): %v", r, err)
		}
	}
	for _, e := range [][2]string{{"r1", "r3"}, {"r3", "r1"}, {"r2", "r3"}, {"r3", "r2"}} {
		if err := g.AddRouterEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddRouterEdge(%s, %s): %v", e[0], e[1], err)
		}
	}
	for _, pe := range [][2]string{{"e", "r1"}, {"r1", "e"}, {"e", "r2"}, {"r2", "e"}} {
		if err := g.AddPeerEdge(pe[0], pe[1]); err != nil {
			t.Fatalf("AddPeerEdge(%s, %s): %v", pe[0], pe[1], err)
		}
	}
	for node, asn := range map[string]int{"e": 10, "r1": 20, "r2": 20, "r3": 20} {
		if err := g.SetASN(node, asn); err != nil {
			t.Fatalf("SetASN(%s): %v", node, err)
		}
	}
	for _, s := range [][2]string{{"e", "r1"}, {"e", "r2"}, {"r1", "r3"}, {"r2", "r3"}} {
		if err := g.AddBGPSession(s[0], s[1], sketch.Hole[string](), sketch.Hole[string](), ""); err != nil {
			t.Fatalf("AddBGPSession(%s, %s): %v", s[0], s[1], err)
		}
	}
	return g
}

func TestExpand_CollapseReproducesSequence(t *testing.T) {
	g := ecmpTopo(t)
	x := NewExpander(g, ExtractZones(g))

	seq := Path[int]{10, 20}
	got := x.Expand(seq, []string{"e"})
	if len(got) == 0 {
		t.Fatal("expected at least one expansion")
	}
	for _, p := range got {
		if !CollapseASPath(g, p).Equal(seq) {
			t.Errorf("expansion %s does not collapse back to %s", p.Key(), seq.Key())
		}
		seen := make(map[string]bool, len(p))
		for _, n := range p {
			if seen[n] {
				t.Errorf("expansion %s revisits %s", p.Key(), n)
			}
			seen[n] = true
		}
	}
}

func TestExpand_SingleHopIBGPTails(t *testing.T) {
	g := ecmpTopo(t)
	x := NewExpander(g, ExtractZones(g))

	got := x.Expand(Path[int]{10, 20}, []string{"e"})
	want := map[string]bool{
		"e>r1":    true,
		"e>r1>r3": true,
		"e>r2":    true,
		"e>r2>r3": true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d expansions, got %d: %v", len(want), len(got), got)
	}
	for _, p := range got {
		if !want[p.Key()] {
			t.Errorf("unexpected expansion %s", p.Key())
		}
	}
}

func TestExpand_NoAdjacencyYieldsNothing(t *testing.T) {
	g := ecmpTopo(t)
	x := NewExpander(g, ExtractZones(g))

	// No AS 30 exists; the frontier dies at the first crossing.
	if got := x.Expand(Path[int]{10, 30}, []string{"e"}); len(got) != 0 {
		t.Fatalf("expected no expansions, got %v", got)
	}
	if got := x.Expand(nil, []string{"e"}); got != nil {
		t.Fatalf("expected nil for empty sequence, got %v", got)
	}
}

func TestCollapseASPath_SkipsTransitAndRepeats(t *testing.T) {
	g := topology.New()
	for _, r := range []string{"a", "t", "b", "c"} {
		if err := g.AddRouter(r); err != nil {
			t.Fatalf("AddRouter: %v", err)
		}
	}
	for node, asn := range map[string]int{"a": 10, "b": 10, "c": 20} {
		if err := g.SetASN(node, asn); err != nil {
			t.Fatalf("SetASN: %v", err)
		}
	}
	got := CollapseASPath(g, Path[string]{"a", "t", "b", "c"})
	if !got.Equal(Path[int]{10, 20}) {
		t.Fatalf("expected (10, 20), got %v", got)
	}
}
