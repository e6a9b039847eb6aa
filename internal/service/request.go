// Package service runs one synthesis job end to end: decode the wire
// request, build the topology through its typed constructors, drive the
// pipeline, persist the run, and shape the response. Both the HTTP handler
// and the Kafka consumer feed into it.
package service

import (
	"encoding/json"
	"fmt"

	"github.com/route-beacon/bgp-synth/internal/policy"
	"github.com/route-beacon/bgp-synth/internal/reqs"
	"github.com/route-beacon/bgp-synth/internal/sketch"
	"github.com/route-beacon/bgp-synth/internal/topology"
)

// Request is the synthesis job wire schema. It is this service's own
// contract, not a topology-description-format parser.
type Request struct {
	AutoAssignAS     bool `json:"auto_assign_as"`
	InjectPeers      bool `json:"inject_peers"`
	AssignIfaceNames bool `json:"assign_iface_names"`

	Routers        []RouterSpec        `json:"routers"`
	Peers          []RouterSpec        `json:"peers"`
	Networks       []NetworkSpec       `json:"networks"`
	Links          [][2]string         `json:"links"`
	Sessions       [][2]string         `json:"sessions"`
	Advertisements []AdvertisementSpec `json:"advertisements"`
	RouteMaps      []RouteMapSpec      `json:"route_maps"`
	Requirements   []RequirementSpec   `json:"requirements"`
}

type RouterSpec struct {
	Name string `json:"name"`
	ASN  int    `json:"asn"`
	// RouterID decodes "?" as a hole the synthesizer constrains.
	RouterID sketch.Value[int] `json:"router_id"`
}

type NetworkSpec struct {
	Name   string `json:"name"`
	Router string `json:"router"`
}

type AdvertisementSpec struct {
	Router    string `json:"router"`
	Prefix    string `json:"prefix"`
	ASPath    []int  `json:"as_path"`
	NextHop   string `json:"next_hop"`
	LocalPref int    `json:"local_pref"`
	MED       int    `json:"med"`
}

type RouteMapSpec struct {
	Router string          `json:"router"`
	Map    json.RawMessage `json:"map"`
}

// RequirementSpec carries one requirement; Kind selects the variant. "path"
// uses Path, the set variants use Paths.
type RequirementSpec struct {
	Kind  string     `json:"kind"`
	Dst   string     `json:"dst"`
	Path  []string   `json:"path,omitempty"`
	Paths [][]string `json:"paths,omitempty"`
}

// Decode parses and structurally validates a request body.
func Decode(body []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("service: decoding request: %w", err)
	}
	if len(req.Routers) == 0 {
		return nil, fmt.Errorf("service: request has no routers")
	}
	if len(req.Requirements) == 0 {
		return nil, fmt.Errorf("service: request has no requirements")
	}
	return &req, nil
}

// BuildTopology constructs the topology and requirement set from a decoded
// request. Every insertion goes through the typed constructors, so malformed
// requests fail here with the constructor's error.
func BuildTopology(req *Request) (*topology.Graph, []reqs.Requirement, error) {
	topo := topology.New()

	for _, r := range req.Routers {
		if err := topo.AddRouter(r.Name); err != nil {
			return nil, nil, err
		}
		if r.ASN > 0 {
			if err := topo.SetASN(r.Name, r.ASN); err != nil {
				return nil, nil, err
			}
		}
		if !r.RouterID.IsUnset() {
			if err := topo.SetRouterID(r.Name, r.RouterID); err != nil {
				return nil, nil, err
			}
		}
	}
	for _, p := range req.Peers {
		if err := topo.AddPeer(p.Name); err != nil {
			return nil, nil, err
		}
		if p.ASN > 0 {
			if err := topo.SetASN(p.Name, p.ASN); err != nil {
				return nil, nil, err
			}
		}
	}
	for _, n := range req.Networks {
		if err := topo.AddNetwork(n.Name); err != nil {
			return nil, nil, err
		}
		if n.Router != "" {
			if err := topo.AddNetworkEdge(n.Router, n.Name); err != nil {
				return nil, nil, err
			}
		}
	}

	for _, link := range req.Links {
		u, v := link[0], link[1]
		add := topo.AddRouterEdge
		if topo.IsPeer(u) || topo.IsPeer(v) {
			add = topo.AddPeerEdge
		}
		if err := add(u, v); err != nil {
			return nil, nil, err
		}
		if err := add(v, u); err != nil {
			return nil, nil, err
		}
	}

	for _, sess := range req.Sessions {
		if err := topo.AddBGPSession(sess[0], sess[1], sketch.Hole[string](), sketch.Hole[string](), ""); err != nil {
			return nil, nil, err
		}
	}

	for _, adv := range req.Advertisements {
		ann := &policy.Announcement{
			Prefix:    adv.Prefix,
			Peer:      adv.Router,
			Origin:    policy.OriginEBGP,
			ASPath:    adv.ASPath,
			ASPathLen: len(adv.ASPath),
			NextHop:   adv.NextHop,
			LocalPref: adv.LocalPref,
			MED:       adv.MED,
			Permitted: true,
		}
		if err := topo.AddAdvertisement(adv.Router, ann); err != nil {
			return nil, nil, err
		}
	}

	for _, spec := range req.RouteMaps {
		rm, err := policy.UnmarshalRouteMap(spec.Map)
		if err != nil {
			return nil, nil, err
		}
		if err := topo.AddRouteMap(spec.Router, rm); err != nil {
			return nil, nil, err
		}
	}

	requirements, err := decodeRequirements(req.Requirements)
	if err != nil {
		return nil, nil, err
	}
	return topo, requirements, nil
}

func decodeRequirements(specs []RequirementSpec) ([]reqs.Requirement, error) {
	out := make([]reqs.Requirement, 0, len(specs))
	for i, spec := range specs {
		if spec.Dst == "" {
			return nil, fmt.Errorf("service: requirement %d has no dst", i)
		}
		subPaths := func() ([]reqs.PathReq, error) {
			if len(spec.Paths) == 0 {
				return nil, fmt.Errorf("service: requirement %d (%s) has no paths", i, spec.Kind)
			}
			subs := make([]reqs.PathReq, len(spec.Paths))
			for j, p := range spec.Paths {
				if len(p) == 0 {
					return nil, fmt.Errorf("service: requirement %d path %d is empty", i, j)
				}
				subs[j] = reqs.PathReq{Protocol: reqs.BGP, Dst: spec.Dst, Path: p}
			}
			return subs, nil
		}
		switch spec.Kind {
		case "path":
			if len(spec.Path) == 0 {
				return nil, fmt.Errorf("service: requirement %d has no path", i)
			}
			out = append(out, reqs.PathReq{Protocol: reqs.BGP, Dst: spec.Dst, Path: spec.Path})
		case "order":
			subs, err := subPaths()
			if err != nil {
				return nil, err
			}
			out = append(out, reqs.PathOrderReq{Protocol: reqs.BGP, Dst: spec.Dst, Paths: subs})
		case "kconnected":
			subs, err := subPaths()
			if err != nil {
				return nil, err
			}
			out = append(out, reqs.KConnectedPathsReq{Protocol: reqs.BGP, Dst: spec.Dst, Paths: subs})
		case "ecmp":
			subs, err := subPaths()
			if err != nil {
				return nil, err
			}
			out = append(out, reqs.ECMPPathsReq{Protocol: reqs.BGP, Dst: spec.Dst, Paths: subs})
		default:
			return nil, fmt.Errorf("service: requirement %d has unknown kind %q", i, spec.Kind)
		}
	}
	return out, nil
}
