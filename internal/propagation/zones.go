package propagation

import (
	"github.com/route-beacon/bgp-synth/internal/topology"
)

// Zones maps an AS number to the set of routers in that AS's iBGP zone: the
// BGP routers announcing the AS number plus every router transitively
// reachable from them through same-AS or non-BGP transit links.
type Zones map[int]map[string]bool

// Contains reports whether router is in the zone of asn.
func (z Zones) Contains(asn int, router string) bool {
	return z[asn][router]
}

// ExtractZones partitions the topology into iBGP zones. Every BGP-enabled
// router lands in exactly one zone, keyed by its own AS number; non-BGP
// transit routers may appear in several zones. The growth is a fixed point:
// monotone and bounded by the router set, so it always converges. Routers
// are visited in sorted order.
func ExtractZones(topo *topology.Graph) Zones {
	seeds := make(map[int][]string)
	for _, node := range topo.Routers() {
		if asn := topo.ASN(node); asn > 0 {
			seeds[asn] = append(seeds[asn], node)
		}
	}

	zones := make(Zones, len(seeds))
	for asn, members := range seeds {
		zone := make(map[string]bool, len(members))
		frontier := append([]string(nil), members...)
		for _, n := range frontier {
			zone[n] = true
		}
		for len(frontier) > 0 {
			node := frontier[0]
			frontier = frontier[1:]
			for _, neighbor := range topo.Neighbors(node) {
				if !topo.IsRouter(neighbor) || zone[neighbor] {
					continue
				}
				// Same-AS neighbors extend the zone; routers without BGP
				// are transit and carry the zone through.
				if topo.IsBGPEnabled(neighbor) && topo.ASN(neighbor) != asn {
					continue
				}
				zone[neighbor] = true
				frontier = append(frontier, neighbor)
			}
		}
		zones[asn] = zone
	}
	return zones
}
