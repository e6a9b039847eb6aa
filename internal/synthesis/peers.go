package synthesis

import (
	"fmt"
	"sort"

	"github.com/route-beacon/bgp-synth/internal/policy"
	"github.com/route-beacon/bgp-synth/internal/reqs"
	"github.com/route-beacon/bgp-synth/internal/sketch"
	"github.com/route-beacon/bgp-synth/internal/topology"
)

// AssignEBGP gives every local router that has no AS number its own AS,
// counting 10, 20, 30, ... in sorted name order and skipping numbers already
// in use.
func AssignEBGP(topo *topology.Graph) error {
	used := make(map[int]bool)
	for _, node := range topo.Routers() {
		if asn := topo.ASN(node); asn > 0 {
			used[asn] = true
		}
	}
	next := 10
	for _, node := range topo.LocalRouters() {
		if topo.IsBGPEnabled(node) {
			continue
		}
		for used[next] {
			next += 10
		}
		if err := topo.SetASN(node, next); err != nil {
			return err
		}
		used[next] = true
	}
	return nil
}

// virtualPeerASNBase is where auto-assigned peer AS numbers start; real
// router AS numbers assigned by AssignEBGP stay far below it.
const virtualPeerASNBase = 10000

// InjectVirtualPeers attaches an external peer to the origin router of every
// requirement path, establishes the eBGP session, and seeds the prefix
// advertisement at the peer with the given AS-path suffix. It returns the
// requirements rewritten with the peer prepended to each path, so the
// propagation pipeline sees the announcement entering from outside.
//
// One peer is created per distinct origin router, named peer_<router>, with
// AS numbers counted upward from a base well above AssignEBGP's range.
func InjectVirtualPeers(topo *topology.Graph, rs []reqs.Requirement, seedASPath []int) ([]reqs.Requirement, error) {
	origins := make(map[string]map[string]bool)
	collect := func(r reqs.PathReq) error {
		if len(r.Path) == 0 {
			return fmt.Errorf("synthesis: empty path in requirement for %s", r.Dst)
		}
		origin := r.Path[0]
		if !topo.IsLocalRouter(origin) {
			return fmt.Errorf("synthesis: requirement origin %s is not a local router", origin)
		}
		if origins[origin] == nil {
			origins[origin] = make(map[string]bool)
		}
		origins[origin][r.Dst] = true
		return nil
	}
	if err := walkPaths(rs, collect); err != nil {
		return nil, err
	}

	used := make(map[int]bool)
	for _, node := range topo.Routers() {
		if asn := topo.ASN(node); asn > 0 {
			used[asn] = true
		}
	}

	originNames := make([]string, 0, len(origins))
	for o := range origins {
		originNames = append(originNames, o)
	}
	sort.Strings(originNames)

	peerOf := make(map[string]string, len(originNames))
	asn := virtualPeerASNBase
	for _, origin := range originNames {
		for used[asn] {
			asn += 10
		}
		peer := "peer_" + origin
		if err := topo.AddPeer(peer); err != nil {
			return nil, err
		}
		if err := topo.AddPeerEdge(origin, peer); err != nil {
			return nil, err
		}
		if err := topo.AddPeerEdge(peer, origin); err != nil {
			return nil, err
		}
		if err := topo.SetASN(peer, asn); err != nil {
			return nil, err
		}
		if err := topo.AddBGPSession(origin, peer, sketch.Hole[string](), sketch.Hole[string](), ""); err != nil {
			return nil, err
		}
		used[asn] = true
		peerOf[origin] = peer

		prefixes := make([]string, 0, len(origins[origin]))
		for p := range origins[origin] {
			prefixes = append(prefixes, p)
		}
		sort.Strings(prefixes)
		for _, prefix := range prefixes {
			ann := &policy.Announcement{
				Prefix:    prefix,
				Peer:      peer,
				Origin:    policy.OriginEBGP,
				ASPath:    append([]int(nil), seedASPath...),
				ASPathLen: len(seedASPath),
				NextHop:   peer,
				LocalPref: 100,
				MED:       10,
				Permitted: true,
			}
			if err := topo.AddAdvertisement(peer, ann); err != nil {
				return nil, err
			}
		}
	}

	rewritten := make([]reqs.Requirement, 0, len(rs))
	for _, r := range rs {
		rewritten = append(rewritten, prependPeer(r, peerOf))
	}
	return rewritten, nil
}

func walkPaths(rs []reqs.Requirement, fn func(reqs.PathReq) error) error {
	for _, r := range rs {
		switch req := r.(type) {
		case reqs.PathReq:
			if err := fn(req); err != nil {
				return err
			}
		case reqs.PathOrderReq:
			for _, sub := range req.Paths {
				if err := fn(sub); err != nil {
					return err
				}
			}
		case reqs.KConnectedPathsReq:
			for _, sub := range req.Paths {
				if err := fn(sub); err != nil {
					return err
				}
			}
		case reqs.ECMPPathsReq:
			for _, sub := range req.Paths {
				if err := fn(sub); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("synthesis: unknown requirement type %T", r)
		}
	}
	return nil
}

func prependPeer(r reqs.Requirement, peerOf map[string]string) reqs.Requirement {
	extend := func(sub reqs.PathReq) reqs.PathReq {
		peer, ok := peerOf[sub.Path[0]]
		if !ok {
			return sub
		}
		path := make([]string, 0, len(sub.Path)+1)
		path = append(path, peer)
		path = append(path, sub.Path...)
		sub.Path = path
		return sub
	}
	switch req := r.(type) {
	case reqs.PathReq:
		return extend(req)
	case reqs.PathOrderReq:
		out := make([]reqs.PathReq, len(req.Paths))
		for i, sub := range req.Paths {
			out[i] = extend(sub)
		}
		req.Paths = out
		return req
	case reqs.KConnectedPathsReq:
		out := make([]reqs.PathReq, len(req.Paths))
		for i, sub := range req.Paths {
			out[i] = extend(sub)
		}
		req.Paths = out
		return req
	case reqs.ECMPPathsReq:
		out := make([]reqs.PathReq, len(req.Paths))
		for i, sub := range req.Paths {
			out[i] = extend(sub)
		}
		req.Paths = out
		return req
	}
	return r
}
