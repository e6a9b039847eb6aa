package service

import (
	"testing"

	"github.com/route-beacon/bgp-synth/internal/reqs"
)

func TestDecode_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"malformed", `{`},
		{"no routers", `{"requirements":[{"kind":"path","dst":"net0","path":["r1"]}]}`},
		{"no requirements", `{"routers":[{"name":"r1"}]}`},
	}
	for _, tc := range cases {
		if _, err := Decode([]byte(tc.body)); err == nil {
			t.Errorf("%s: expected decode error", tc.name)
		}
	}

	req, err := Decode([]byte(`{
		"routers":[{"name":"r1","asn":10,"router_id":"?"}],
		"requirements":[{"kind":"path","dst":"net0","path":["r1"]}]
	}`))
	if err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if !req.Routers[0].RouterID.IsUnset() {
		t.Fatal("expected router_id placeholder to decode as a hole")
	}
}

func TestBuildTopology_WiresEverything(t *testing.T) {
	req, err := Decode([]byte(`{
		"routers":[
			{"name":"r1","asn":10},
			{"name":"r2","asn":20,"router_id":9}
		],
		"peers":[{"name":"p1","asn":30}],
		"networks":[{"name":"net0","router":"r1"}],
		"links":[["r1","r2"],["r2","p1"]],
		"sessions":[["r1","r2"],["r2","p1"]],
		"advertisements":[{"router":"p1","prefix":"net1","as_path":[30],"next_hop":"p1","local_pref":100}],
		"requirements":[{"kind":"path","dst":"net1","path":["p1","r2","r1"]}]
	}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	topo, requirements, err := BuildTopology(req)
	if err != nil {
		t.Fatalf("BuildTopology: %v", err)
	}

	if !topo.IsLocalRouter("r1") || !topo.IsPeer("p1") || !topo.IsNetwork("net0") {
		t.Fatal("expected node kinds to follow the request sections")
	}
	if topo.ASN("r2") != 20 || topo.ASN("p1") != 30 {
		t.Fatal("expected AS numbers applied")
	}
	if v, ok := topo.RouterID("r2").Get(); !ok || v != 9 {
		t.Fatalf("expected concrete router ID 9, got %d (%v)", v, ok)
	}
	// Links are inserted in both directions.
	if !topo.HasEdge("r1", "r2") || !topo.HasEdge("r2", "r1") {
		t.Fatal("expected router link in both directions")
	}
	if !topo.HasEdge("r2", "p1") || !topo.HasEdge("p1", "r2") {
		t.Fatal("expected peer link in both directions")
	}
	if !topo.HasEdge("r1", "net0") {
		t.Fatal("expected network attachment edge")
	}
	if _, ok := topo.BGPNeighbor("r2", "p1"); !ok {
		t.Fatal("expected eBGP session r2-p1")
	}
	anns := topo.Advertisements("p1")
	if len(anns) != 1 || anns[0].Prefix != "net1" || !anns[0].Permitted {
		t.Fatalf("expected one permitted net1 advertisement, got %v", anns)
	}

	if len(requirements) != 1 {
		t.Fatalf("expected one requirement, got %d", len(requirements))
	}
	pr, ok := requirements[0].(reqs.PathReq)
	if !ok || pr.Dst != "net1" || len(pr.Path) != 3 {
		t.Fatalf("unexpected requirement %+v", requirements[0])
	}
}

func TestBuildTopology_UnknownLinkEndpoint(t *testing.T) {
	req := &Request{
		Routers:      []RouterSpec{{Name: "r1"}},
		Links:        [][2]string{{"r1", "missing"}},
		Requirements: []RequirementSpec{{Kind: "path", Dst: "net0", Path: []string{"r1"}}},
	}
	if _, _, err := BuildTopology(req); err == nil {
		t.Fatal("expected unknown link endpoint to fail")
	}
}

func TestDecodeRequirements_Variants(t *testing.T) {
	specs := []RequirementSpec{
		{Kind: "path", Dst: "net0", Path: []string{"r1", "r2"}},
		{Kind: "order", Dst: "net0", Paths: [][]string{{"r1", "r2"}, {"r3", "r2"}}},
		{Kind: "kconnected", Dst: "net0", Paths: [][]string{{"r1", "r2"}, {"r3", "r2"}}},
		{Kind: "ecmp", Dst: "net0", Paths: [][]string{{"r1", "r2"}, {"r3", "r2"}}},
	}
	out, err := decodeRequirements(specs)
	if err != nil {
		t.Fatalf("decodeRequirements: %v", err)
	}
	if _, ok := out[0].(reqs.PathReq); !ok {
		t.Fatalf("expected PathReq, got %T", out[0])
	}
	if r, ok := out[1].(reqs.PathOrderReq); !ok || len(r.Paths) != 2 {
		t.Fatalf("expected PathOrderReq with 2 paths, got %T", out[1])
	}
	if _, ok := out[2].(reqs.KConnectedPathsReq); !ok {
		t.Fatalf("expected KConnectedPathsReq, got %T", out[2])
	}
	if _, ok := out[3].(reqs.ECMPPathsReq); !ok {
		t.Fatalf("expected ECMPPathsReq, got %T", out[3])
	}
}

func TestDecodeRequirements_Invalid(t *testing.T) {
	cases := []struct {
		name string
		spec RequirementSpec
	}{
		{"no dst", RequirementSpec{Kind: "path", Path: []string{"r1"}}},
		{"path without path", RequirementSpec{Kind: "path", Dst: "net0"}},
		{"order without paths", RequirementSpec{Kind: "order", Dst: "net0"}},
		{"empty nested path", RequirementSpec{Kind: "ecmp", Dst: "net0", Paths: [][]string{{}}}},
		{"unknown kind", RequirementSpec{Kind: "wat", Dst: "net0", Path: []string{"r1"}}},
	}
	for _, tc := range cases {
		if _, err := decodeRequirements([]RequirementSpec{tc.spec}); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
