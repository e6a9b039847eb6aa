package propagation

import (
	"sort"

	"github.com/route-beacon/bgp-synth/internal/topology"
)

// Expander turns abstract AS-number sequences into the concrete router-level
// paths that realize them, constrained by eBGP adjacency and zone
// membership.
type Expander struct {
	topo  *topology.Graph
	zones Zones
}

func NewExpander(topo *topology.Graph, zones Zones) *Expander {
	return &Expander{topo: topo, zones: zones}
}

// Expand returns all router paths whose collapsed AS sequence equals seq,
// starting from the given origin routers of seq's first AS. At every
// position but the last, each frontier path is extended by one eBGP-adjacent
// router of the next AS that lies in that AS's zone, plus an optional
// single-hop iBGP tail inside the next zone; frontier paths that cannot be
// extended are dropped silently. No returned path revisits a router.
func (x *Expander) Expand(seq Path[int], origins []string) []Path[string] {
	if len(seq) == 0 {
		return nil
	}

	sortedOrigins := append([]string(nil), origins...)
	sort.Strings(sortedOrigins)

	frontier := make([]Path[string], 0, len(sortedOrigins))
	for _, o := range sortedOrigins {
		frontier = append(frontier, Path[string]{o})
	}

	for index := 0; index < len(seq)-1; index++ {
		nextZone := x.zones[seq[index+1]]
		var next []Path[string]
		for _, path := range frontier {
			last := path.Last()
			curAS := x.topo.ASN(last)
			for _, neighbor := range x.topo.BGPNeighbors(last) {
				neighborAS := x.topo.ASN(neighbor)
				if neighborAS == curAS {
					continue
				}
				if path.Contains(neighbor) || !nextZone[neighbor] {
					continue
				}
				crossed := append(path.Clone(), neighbor)
				next = append(next, crossed)
				// Single-hop iBGP delivery inside the zone just entered.
				for _, nn := range x.topo.BGPNeighbors(neighbor) {
					if x.topo.ASN(nn) != neighborAS || crossed.Contains(nn) {
						continue
					}
					next = append(next, append(crossed.Clone(), nn))
				}
			}
		}
		frontier = next
	}

	// Dedup; distinct origins can converge on the same router path.
	out := NewPathSet[string]()
	for _, p := range frontier {
		out.Add(p)
	}
	return out.Paths()
}
