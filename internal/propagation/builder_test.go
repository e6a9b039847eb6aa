package propagation_test

import (
	"testing"

	"github.com/route-beacon/bgp-synth/internal/policy"
	"github.com/route-beacon/bgp-synth/internal/propagation"
	"github.com/route-beacon/bgp-synth/internal/reachability"
	"github.com/route-beacon/bgp-synth/internal/reqs"
	"github.com/route-beacon/bgp-synth/internal/sketch"
	"github.com/route-beacon/bgp-synth/internal/topology"
	"go.uber.org/zap"
)

func newBuilder(t *testing.T, topo *topology.Graph) *propagation.Builder {
	t.Helper()
	logger := zap.NewNop()
	return propagation.NewBuilder(
		topo,
		propagation.ExtractZones(topo),
		reachability.NewEngine[int](logger),
		reachability.NewEngine[string](logger),
		reachability.NewChecker(),
		logger,
	)
}

func addSession(t *testing.T, g *topology.Graph, a, b string) {
	t.Helper()
	if err := g.AddBGPSession(a, b, sketch.Hole[string](), sketch.Hole[string](), ""); err != nil {
		t.Fatalf("AddBGPSession(%s, %s): %v", a, b, err)
	}
}

func seedPrefix(t *testing.T, g *topology.Graph, origin, prefix string, asPath []int) {
	t.Helper()
	if err := g.AddAdvertisement(origin, &policy.Announcement{
		Prefix:    prefix,
		Peer:      origin,
		Origin:    policy.OriginEBGP,
		ASPath:    asPath,
		ASPathLen: len(asPath),
		NextHop:   origin,
		LocalPref: 100,
		Permitted: true,
	}); err != nil {
		t.Fatalf("AddAdvertisement(%s, %s): %v", origin, prefix, err)
	}
}

// twoASLine builds r1 (AS 10) linked and peered with r2 (AS 20), with net0
// advertised at r1.
func twoASLine(t *testing.T) *topology.Graph {
	t.Helper()
	g := topology.New()
	for _, r := range []string{"r1", "r2"} {
		if err := g.AddRouter(r); err != nil {
			t.Fatalf("AddRouter(%s): %v", r, err)
		}
	}
	for _, e := range [][2]string{{"r1", "r2"}, {"r2", "r1"}} {
		if err := g.AddRouterEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddRouterEdge: %v", err)
		}
	}
	for node, asn := range map[string]int{"r1": 10, "r2": 20} {
		if err := g.SetASN(node, asn); err != nil {
			t.Fatalf("SetASN(%s): %v", node, err)
		}
	}
	addSession(t, g, "r1", "r2")
	seedPrefix(t, g, "r1", "net0", nil)
	return g
}

// ecmpFanIn builds peer e (AS 10) attached to r1 and r2 (AS 20), both with
// iBGP sessions to r3.
func ecmpFanIn(t *testing.T) *topology.Graph {
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
			t.Fatalf("AddRouterEdge: %v", err)
		}
	}
	for _, pe := range [][2]string{{"e", "r1"}, {"r1", "e"}, {"e", "r2"}, {"r2", "e"}} {
		if err := g.AddPeerEdge(pe[0], pe[1]); err != nil {
			t.Fatalf("AddPeerEdge: %v", err)
		}
	}
	for node, asn := range map[string]int{"e": 10, "r1": 20, "r2": 20, "r3": 20} {
		if err := g.SetASN(node, asn); err != nil {
			t.Fatalf("SetASN(%s): %v", node, err)
		}
	}
	addSession(t, g, "e", "r1")
	addSession(t, g, "e", "r2")
	addSession(t, g, "r1", "r3")
	addSession(t, g, "r2", "r3")
	seedPrefix(t, g, "e", "net0", nil)
	return g
}

func TestComputeGraphs_SinglePathReq(t *testing.T) {
	g := twoASLine(t)
	b := newBuilder(t, g)

	res, err := b.ComputeGraphs([]reqs.Requirement{
		reqs.PathReq{Protocol: reqs.BGP, Dst: "net0", Path: []string{"r1", "r2"}},
	})
	if err != nil {
		t.Fatalf("ComputeGraphs: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %v", res.Violations)
	}

	ebgp := res.EBGP["net0"]
	if ebgp == nil {
		t.Fatal("expected an eBGP graph for net0")
	}
	if !ebgp.Node(20).Paths.Has(propagation.Path[int]{10, 20}) {
		t.Fatal("expected AS 20 to receive path (10, 20)")
	}
	if !ebgp.HasEdge(10, 20) {
		t.Fatal("expected AS-level edge 10-20")
	}

	ibgp := res.IBGP["net0"]
	info := ibgp.Node("r2")
	if info == nil || !info.Paths.Has(propagation.Path[string]{"r1", "r2"}) {
		t.Fatal("expected r2 to receive path r1>r2")
	}
	if info.Block.Len() != 0 {
		t.Fatalf("expected nothing blocked at r2, got %v", info.Block.Paths())
	}
	if len(info.Order) != 1 {
		t.Fatalf("expected one preference rank at r2, got %d", len(info.Order))
	}
}

func TestComputeGraphs_ECMPSharesOneRank(t *testing.T) {
	g := ecmpFanIn(t)
	b := newBuilder(t, g)

	res, err := b.ComputeGraphs([]reqs.Requirement{
		reqs.ECMPPathsReq{Protocol: reqs.BGP, Dst: "net0", Paths: []reqs.PathReq{
			{Protocol: reqs.BGP, Dst: "net0", Path: []string{"e", "r1", "r3"}},
			{Protocol: reqs.BGP, Dst: "net0", Path: []string{"e", "r2", "r3"}},
		}},
	})
	if err != nil {
		t.Fatalf("ComputeGraphs: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %v", res.Violations)
	}

	info := res.IBGP["net0"].Node("r3")
	if info == nil {
		t.Fatal("expected r3 in the router graph")
	}
	p1 := propagation.Path[string]{"e", "r1", "r3"}
	p2 := propagation.Path[string]{"e", "r2", "r3"}
	if !info.Paths.Has(p1) || !info.Paths.Has(p2) {
		t.Fatalf("expected both ECMP paths at r3, got %v", info.Paths.Paths())
	}
	if info.Block.Has(p1) || info.Block.Has(p2) {
		t.Fatal("ECMP paths must not be blocked")
	}
	if len(info.Order) != 1 {
		t.Fatalf("expected a single shared rank at r3, got %d", len(info.Order))
	}
	if !info.Order[0].Has(p1) || !info.Order[0].Has(p2) {
		t.Fatal("expected both ECMP paths in the shared rank")
	}
}

func TestComputeGraphs_KConnectedSingleUnorderedSet(t *testing.T) {
	g := ecmpFanIn(t)
	b := newBuilder(t, g)

	res, err := b.ComputeGraphs([]reqs.Requirement{
		reqs.KConnectedPathsReq{Protocol: reqs.BGP, Dst: "net0", Paths: []reqs.PathReq{
			{Protocol: reqs.BGP, Dst: "net0", Path: []string{"e", "r1", "r3"}},
			{Protocol: reqs.BGP, Dst: "net0", Path: []string{"e", "r2", "r3"}},
		}},
	})
	if err != nil {
		t.Fatalf("ComputeGraphs: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %v", res.Violations)
	}

	info := res.IBGP["net0"].Node("r3")
	if info == nil {
		t.Fatal("expected r3 in the router graph")
	}
	p1 := propagation.Path[string]{"e", "r1", "r3"}
	p2 := propagation.Path[string]{"e", "r2", "r3"}
	if !info.Paths.Has(p1) || !info.Paths.Has(p2) {
		t.Fatalf("expected both connected paths at r3, got %v", info.Paths.Paths())
	}
	if info.Block.Has(p1) || info.Block.Has(p2) {
		t.Fatal("connected paths must not be blocked")
	}
	// The member paths form one merged set with no ranking between them.
	if len(info.Order) != 1 {
		t.Fatalf("expected a single unordered rank at r3, got %d", len(info.Order))
	}
	if !info.Order[0].Has(p1) || !info.Order[0].Has(p2) {
		t.Fatal("expected both connected paths in the merged rank")
	}

	ebgp := res.EBGP["net0"]
	if !ebgp.Node(20).Paths.Has(propagation.Path[int]{10, 20}) {
		t.Fatal("expected AS 20 to receive path (10, 20)")
	}
}

func TestComputeGraphs_ExpansionClosureBlocksAlternates(t *testing.T) {
	g := ecmpFanIn(t)
	b := newBuilder(t, g)

	// Only the path through r1 is requested; the closure must record the
	// realizable alternates through r2 as blocked.
	res, err := b.ComputeGraphs([]reqs.Requirement{
		reqs.PathReq{Protocol: reqs.BGP, Dst: "net0", Path: []string{"e", "r1", "r3"}},
	})
	if err != nil {
		t.Fatalf("ComputeGraphs: %v", err)
	}

	info := res.IBGP["net0"].Node("r3")
	if !info.Paths.Has(propagation.Path[string]{"e", "r1", "r3"}) {
		t.Fatal("expected requested path at r3")
	}
	if !info.Block.Has(propagation.Path[string]{"e", "r2", "r3"}) {
		t.Fatalf("expected alternate e>r2>r3 blocked at r3, got %v", info.Block.Paths())
	}
	r2 := res.IBGP["net0"].Node("r2")
	if r2 == nil || !r2.Block.Has(propagation.Path[string]{"e", "r2"}) {
		t.Fatal("expected alternate e>r2 blocked at r2")
	}
}

func TestComputeGraphs_InfeasiblePathSkippedNotFatal(t *testing.T) {
	g := twoASLine(t)
	b := newBuilder(t, g)

	// r9 does not exist; the engine drops the path with a warning.
	res, err := b.ComputeGraphs([]reqs.Requirement{
		reqs.PathReq{Protocol: reqs.BGP, Dst: "net0", Path: []string{"r1", "r9"}},
	})
	if err != nil {
		t.Fatalf("expected infeasible path to be non-fatal, got %v", err)
	}
	if res.IBGP["net0"].HasNode("r9") {
		t.Fatal("expected no node for the unreachable router")
	}
	if info := res.IBGP["net0"].Node("r2"); info != nil && info.Paths.Len() != 0 {
		t.Fatalf("expected empty path set at r2, got %v", info.Paths.Paths())
	}
}

func TestComputeGraphs_OrderViolationAnnotatedWithPrefix(t *testing.T) {
	g := topology.New()
	for _, p := range []string{"e1", "e2"} {
		if err := g.AddPeer(p); err != nil {
			t.Fatalf("AddPeer: %v", err)
		}
	}
	for _, r := range []string{"r1", "r2"} {
		if err := g.AddRouter(r); err != nil {
			t.Fatalf("AddRouter: %v", err)
		}
	}
	for _, e := range [][2]string{{"r1", "r2"}, {"r2", "r1"}} {
		if err := g.AddRouterEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddRouterEdge: %v", err)
		}
	}
	for _, pe := range [][2]string{{"e1", "r1"}, {"r1", "e1"}, {"e2", "r1"}, {"r1", "e2"}} {
		if err := g.AddPeerEdge(pe[0], pe[1]); err != nil {
			t.Fatalf("AddPeerEdge: %v", err)
		}
	}
	for node, asn := range map[string]int{"e1": 10, "e2": 40, "r1": 20, "r2": 30} {
		if err := g.SetASN(node, asn); err != nil {
			t.Fatalf("SetASN(%s): %v", node, err)
		}
	}
	addSession(t, g, "e1", "r1")
	addSession(t, g, "e2", "r1")
	addSession(t, g, "r1", "r2")
	seedPrefix(t, g, "e1", "net0", []int{10})
	seedPrefix(t, g, "e2", "net0", []int{40})

	b := newBuilder(t, g)
	res, err := b.ComputeGraphs([]reqs.Requirement{
		reqs.PathOrderReq{Protocol: reqs.BGP, Dst: "net0", Paths: []reqs.PathReq{
			{Protocol: reqs.BGP, Dst: "net0", Path: []string{"e1", "r1", "r2"}},
			{Protocol: reqs.BGP, Dst: "net0", Path: []string{"e2", "r1", "r2"}},
		}},
	})
	if err != nil {
		t.Fatalf("ComputeGraphs: %v", err)
	}

	// Both paths reach AS 30 through AS 20, which only ever announces its
	// own best path. The requested ranking is unrealizable.
	if len(res.Violations) == 0 {
		t.Fatal("expected an order violation")
	}
	found := false
	for _, v := range res.Violations {
		if v.Prefix != "net0" {
			t.Errorf("expected violation annotated with prefix net0, got %q", v.Prefix)
		}
		if v.Node == "30" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a violation at AS 30, got %v", res.Violations)
	}
}
