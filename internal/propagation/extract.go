package propagation

import (
	"fmt"

	"github.com/route-beacon/bgp-synth/internal/reqs"
	"github.com/route-beacon/bgp-synth/internal/topology"
)

// CollapseASPath derives the AS-number sequence of a router path by dropping
// non-BGP transit routers and collapsing consecutive same-AS hops. The
// sequence keeps the path's announcement order: origin AS first.
func CollapseASPath(topo *topology.Graph, path Path[string]) Path[int] {
	var out Path[int]
	for _, node := range path {
		if !topo.IsBGPEnabled(node) {
			continue
		}
		asn := topo.ASN(node)
		if len(out) == 0 || out[len(out)-1] != asn {
			out = append(out, asn)
		}
	}
	return out
}

// extractFacts translates one prefix's requirements into the AS-level and
// router-level fact groups handed to the reachability engine. Rank structure
// follows the requirement kind: PathReq is a singleton, PathOrderReq keeps
// one rank per position, KConnectedPathsReq and ECMPPathsReq contribute one
// unranked (single-rank) merged set.
func extractFacts(topo *topology.Graph, rs []reqs.Requirement) ([]RankedFacts[int], []RankedFacts[string], error) {
	var asFacts []RankedFacts[int]
	var routerFacts []RankedFacts[string]

	pathFact := func(r reqs.PathReq) (Fact[int], Fact[string], error) {
		if len(r.Path) == 0 {
			return Fact[int]{}, Fact[string]{}, fmt.Errorf("propagation: empty path in requirement for %s", r.Dst)
		}
		rp := Path[string](r.Path)
		origin := rp[0]
		return Fact[int]{Origin: origin, Path: CollapseASPath(topo, rp)},
			Fact[string]{Origin: origin, Path: rp}, nil
	}

	for _, r := range rs {
		switch req := r.(type) {
		case reqs.PathReq:
			af, rf, err := pathFact(req)
			if err != nil {
				return nil, nil, err
			}
			asFacts = append(asFacts, RankedFacts[int]{{af}})
			routerFacts = append(routerFacts, RankedFacts[string]{{rf}})

		case reqs.PathOrderReq:
			var rankedAS RankedFacts[int]
			var rankedRouter RankedFacts[string]
			for _, sub := range req.Paths {
				af, rf, err := pathFact(sub)
				if err != nil {
					return nil, nil, err
				}
				rankedAS = append(rankedAS, []Fact[int]{af})
				rankedRouter = append(rankedRouter, []Fact[string]{rf})
			}
			asFacts = append(asFacts, rankedAS)
			routerFacts = append(routerFacts, rankedRouter)

		case reqs.KConnectedPathsReq:
			af, rf, err := mergedFacts(topo, req.Paths, pathFact)
			if err != nil {
				return nil, nil, err
			}
			asFacts = append(asFacts, af)
			routerFacts = append(routerFacts, rf)

		case reqs.ECMPPathsReq:
			af, rf, err := mergedFacts(topo, req.Paths, pathFact)
			if err != nil {
				return nil, nil, err
			}
			asFacts = append(asFacts, af)
			routerFacts = append(routerFacts, rf)

		default:
			return nil, nil, fmt.Errorf("propagation: unknown requirement type %T", r)
		}
	}
	return asFacts, routerFacts, nil
}

func mergedFacts(
	topo *topology.Graph,
	paths []reqs.PathReq,
	pathFact func(reqs.PathReq) (Fact[int], Fact[string], error),
) (RankedFacts[int], RankedFacts[string], error) {
	var asRank []Fact[int]
	var routerRank []Fact[string]
	for _, sub := range paths {
		af, rf, err := pathFact(sub)
		if err != nil {
			return nil, nil, err
		}
		asRank = append(asRank, af)
		routerRank = append(routerRank, rf)
	}
	return RankedFacts[int]{asRank}, RankedFacts[string]{routerRank}, nil
}
