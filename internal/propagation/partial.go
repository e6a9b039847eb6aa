package propagation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/route-beacon/bgp-synth/internal/topology"
)

// PropagatedInfo is the canonical fact describing one concrete path's
// announcement at one router for one prefix. ASPath is ordered oldest-AS-
// last, matching real AS_PATH semantics. Prev points at the same
// announcement one hop closer to the origin; the chain has no forward
// pointers.
type PropagatedInfo struct {
	// ExternalPeer is the router that performed the eBGP hop into the
	// receiving zone, or "" when the path never crosses an AS boundary.
	ExternalPeer string
	// Egress is the in-zone router paired with ExternalPeer.
	Egress string
	// Peer is the next hop back toward the origin.
	Peer      string
	Prefix    string
	ASPath    Path[int]
	ASPathLen int
	Path      Path[string]
	Prev      *PropagatedInfo
}

// NodeFacts holds one node's evaluated facts for one prefix, keyed by path
// key. Order entries reference the same fact instances as Paths.
type NodeFacts struct {
	Paths map[string]*PropagatedInfo
	Block map[string]*PropagatedInfo
	Order []map[string]*PropagatedInfo
}

// Fact returns the fact for a path key, looking in Paths first.
func (nf *NodeFacts) Fact(key string) (*PropagatedInfo, bool) {
	if f, ok := nf.Paths[key]; ok {
		return f, true
	}
	f, ok := nf.Block[key]
	return f, ok
}

// All returns every fact (paths and block) in sorted path-key order.
func (nf *NodeFacts) All() []*PropagatedInfo {
	keys := make([]string, 0, len(nf.Paths)+len(nf.Block))
	for k := range nf.Paths {
		keys = append(keys, k)
	}
	for k := range nf.Block {
		if _, dup := nf.Paths[k]; !dup {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]*PropagatedInfo, 0, len(keys))
	for _, k := range keys {
		f, _ := nf.Fact(k)
		out = append(out, f)
	}
	return out
}

// Evaluated is the partial-evaluation output: per (node, prefix) facts and
// the distinct AS-path values observed, for registration as an enumerated
// solver sort.
type Evaluated struct {
	Facts   map[string]map[string]*NodeFacts
	ASPaths []Path[int]
}

// NodeFacts returns the facts of one node for one prefix, or nil.
func (e *Evaluated) NodeFacts(node, prefix string) *NodeFacts {
	return e.Facts[node][prefix]
}

// ASPathKey renders an AS path as the solver enum symbol for its value.
func ASPathKey(p Path[int]) string {
	parts := make([]string, len(p))
	for i, asn := range p {
		parts[i] = fmt.Sprint(asn)
	}
	return "as_path_" + strings.Join(parts, "_")
}

// PartialEval converts the merged router-level graph's raw paths into
// PropagatedInfo facts and builds the causal predecessor chain. A path whose
// origin router has no matching advertisement for the prefix is a data
// consistency error and aborts the run.
func PartialEval(topo *topology.Graph, merged *Merged[string]) (*Evaluated, error) {
	eval := &Evaluated{Facts: make(map[string]map[string]*NodeFacts)}

	// Prototype facts shared per (prefix, path); each node gets its own
	// copy so Prev assignment never aliases across nodes.
	protos := make(map[string]*PropagatedInfo)
	proto := func(prefix string, path Path[string]) (*PropagatedInfo, error) {
		key := prefix + "|" + path.Key()
		if p, ok := protos[key]; ok {
			return p, nil
		}
		externalPeer, egress, peer, asPath := deriveASInfo(topo, path)

		origin := path[0]
		var spliced bool
		for _, ann := range topo.Advertisements(origin) {
			if ann.Prefix == prefix {
				asPath = append(asPath, ann.ASPath...)
				spliced = true
				break
			}
		}
		if !spliced {
			return nil, fmt.Errorf("propagation: no advertisement for prefix %s at origin %s (path %s)",
				prefix, origin, path.Key())
		}

		p := &PropagatedInfo{
			ExternalPeer: externalPeer,
			Egress:       egress,
			Peer:         peer,
			Prefix:       prefix,
			ASPath:       asPath,
			ASPathLen:    len(asPath),
			Path:         path,
		}
		protos[key] = p
		return p, nil
	}

	// Phase 1: fact construction per node, prefix, path.
	for _, node := range merged.Nodes() {
		for _, prefix := range merged.Prefixes(node) {
			info := merged.Info(node, prefix)
			nf := &NodeFacts{
				Paths: make(map[string]*PropagatedInfo),
				Block: make(map[string]*PropagatedInfo),
			}

			copyOf := func(path Path[string]) (*PropagatedInfo, error) {
				p, err := proto(prefix, path)
				if err != nil {
					return nil, err
				}
				c := *p
				return &c, nil
			}

			for _, path := range info.Paths.Paths() {
				f, err := copyOf(path)
				if err != nil {
					return nil, err
				}
				nf.Paths[path.Key()] = f
			}
			for _, rank := range info.Order {
				rankFacts := make(map[string]*PropagatedInfo, rank.Len())
				for _, path := range rank.Paths() {
					f, ok := nf.Paths[path.Key()]
					if !ok {
						var err error
						f, err = copyOf(path)
						if err != nil {
							return nil, err
						}
						nf.Paths[path.Key()] = f
					}
					rankFacts[path.Key()] = f
				}
				nf.Order = append(nf.Order, rankFacts)
			}
			for _, path := range info.Block.Paths() {
				f, err := copyOf(path)
				if err != nil {
					return nil, err
				}
				nf.Block[path.Key()] = f
			}

			if eval.Facts[node] == nil {
				eval.Facts[node] = make(map[string]*NodeFacts)
			}
			eval.Facts[node][prefix] = nf
		}
	}

	// Phase 2: causal chaining. The predecessor fact lives at the peer
	// router under the same prefix, with this path minus its last router.
	// An absent predecessor is expected at propagation-graph boundaries.
	for _, node := range merged.Nodes() {
		for _, prefix := range merged.Prefixes(node) {
			nf := eval.Facts[node][prefix]
			for _, fact := range nf.All() {
				if len(fact.Path) < 2 || fact.Peer == "" {
					continue
				}
				peerFacts := eval.Facts[fact.Peer][prefix]
				if peerFacts == nil {
					continue
				}
				if prev, ok := peerFacts.Fact(fact.Path.Parent().Key()); ok {
					fact.Prev = prev
				}
			}
		}
	}

	// Distinct AS-path values, sorted for stable enum registration.
	keys := make([]string, 0, len(protos))
	byKey := make(map[string]Path[int], len(protos))
	for _, p := range protos {
		k := ASPathKey(p.ASPath)
		if _, ok := byKey[k]; !ok {
			byKey[k] = p.ASPath
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		eval.ASPaths = append(eval.ASPaths, byKey[k])
	}
	return eval, nil
}

// deriveASInfo walks the path origin-first collecting the collapsed AS
// sequence and the eBGP crossing nearest the receiving end, then reverses
// the sequence into AS_PATH order (newest AS first, oldest last).
func deriveASInfo(topo *topology.Graph, path Path[string]) (externalPeer, egress, peer string, asPath Path[int]) {
	asPath = Path[int]{topo.ASN(path[0])}
	for i := 1; i < len(path); i++ {
		node := path[i]
		prev := path[i-1]
		if !topo.IsBGPEnabled(node) {
			continue
		}
		if topo.IsBGPEnabled(prev) {
			peer = prev
			if topo.ASN(node) != topo.ASN(prev) {
				externalPeer = prev
				egress = node
			}
		}
		if asPath[len(asPath)-1] != topo.ASN(node) {
			asPath = append(asPath, topo.ASN(node))
		}
	}
	for i, j := 0, len(asPath)-1; i < j; i, j = i+1, j-1 {
		asPath[i], asPath[j] = asPath[j], asPath[i]
	}
	return externalPeer, egress, peer, asPath
}
