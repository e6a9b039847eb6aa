package topology

import (
	"fmt"

	"github.com/route-beacon/bgp-synth/internal/policy"
	"github.com/route-beacon/bgp-synth/internal/sketch"
)

// BGPNeighbor holds the per-session attributes a router keeps about one peer.
type BGPNeighbor struct {
	PeeringIface sketch.Value[string]
	Description  string
	ImportMap    string
	ExportMap    string
}

type bgpAttrs struct {
	asn            int
	routerID       sketch.Value[int]
	neighbors      map[string]*BGPNeighbor
	advertised     []*policy.Announcement
	announces      map[string]string // network -> route-map name ("" if none)
	communityLists map[int]*policy.CommunityList
	asPathLists    map[int]*policy.ASPathList
}

func (g *Graph) bgp(name string) (*bgpAttrs, error) {
	n, err := g.router(name)
	if err != nil {
		return nil, err
	}
	if n.bgp == nil {
		n.bgp = &bgpAttrs{
			routerID:       sketch.Hole[int](),
			neighbors:      make(map[string]*BGPNeighbor),
			announces:      make(map[string]string),
			communityLists: make(map[int]*policy.CommunityList),
			asPathLists:    make(map[int]*policy.ASPathList),
		}
	}
	return n.bgp, nil
}

// SetASN assigns the AS number of a router, enabling BGP on it.
func (g *Graph) SetASN(node string, asn int) error {
	if asn <= 0 {
		return fmt.Errorf("topology: invalid AS number %d for %s", asn, node)
	}
	attrs, err := g.bgp(node)
	if err != nil {
		return err
	}
	attrs.asn = asn
	return nil
}

// ASN returns the AS number of a router, or 0 when BGP is not enabled.
func (g *Graph) ASN(node string) int {
	n, ok := g.nodes[node]
	if !ok || n.bgp == nil {
		return 0
	}
	return n.bgp.asn
}

// IsBGPEnabled reports whether the router has an AS number assigned.
func (g *Graph) IsBGPEnabled(node string) bool { return g.ASN(node) > 0 }

// SetRouterID sets the BGP router ID. A concrete ID must be positive;
// symbolic and unset values are resolved by the synthesizer.
func (g *Graph) SetRouterID(node string, id sketch.Value[int]) error {
	attrs, err := g.bgp(node)
	if err != nil {
		return err
	}
	if attrs.asn == 0 {
		return fmt.Errorf("topology: BGP not enabled on %s", node)
	}
	if v, ok := id.Get(); ok && v <= 0 {
		return fmt.Errorf("topology: invalid router ID %d for %s", v, node)
	}
	attrs.routerID = id
	return nil
}

// RouterID returns the BGP router ID sketch value (Unset when never set).
func (g *Graph) RouterID(node string) sketch.Value[int] {
	n, ok := g.nodes[node]
	if !ok || n.bgp == nil {
		return sketch.Hole[int]()
	}
	return n.bgp.routerID
}

// AddBGPSession establishes a BGP session between two routers, recording the
// peering interface on each side. A duplicate session is an error.
func (g *Graph) AddBGPSession(a, b string, aIface, bIface sketch.Value[string], description string) error {
	attrsA, err := g.bgp(a)
	if err != nil {
		return err
	}
	attrsB, err := g.bgp(b)
	if err != nil {
		return err
	}
	if _, ok := attrsA.neighbors[b]; ok {
		return fmt.Errorf("topology: %s already has BGP neighbor %s", a, b)
	}
	if _, ok := attrsB.neighbors[a]; ok {
		return fmt.Errorf("topology: %s already has BGP neighbor %s", b, a)
	}
	descA, descB := description, description
	if description == "" {
		descA = "To " + b
		descB = "To " + a
	}
	attrsA.neighbors[b] = &BGPNeighbor{PeeringIface: bIface, Description: descA}
	attrsB.neighbors[a] = &BGPNeighbor{PeeringIface: aIface, Description: descB}
	return nil
}

// BGPNeighbors returns the names of the router's BGP neighbors, sorted.
func (g *Graph) BGPNeighbors(node string) []string {
	n, ok := g.nodes[node]
	if !ok || n.bgp == nil {
		return nil
	}
	return sortedKeys(n.bgp.neighbors)
}

// BGPNeighbor returns the session attributes for one neighbor.
func (g *Graph) BGPNeighbor(node, neighbor string) (*BGPNeighbor, bool) {
	n, ok := g.nodes[node]
	if !ok || n.bgp == nil {
		return nil, false
	}
	nb, ok := n.bgp.neighbors[neighbor]
	return nb, ok
}

func (g *Graph) session(node, neighbor string) (*BGPNeighbor, error) {
	nb, ok := g.BGPNeighbor(node, neighbor)
	if !ok {
		return nil, fmt.Errorf("topology: %s has no BGP neighbor %s", node, neighbor)
	}
	return nb, nil
}

// SetImportRouteMap attaches a previously registered route-map to the inbound
// direction of the session from neighbor.
func (g *Graph) SetImportRouteMap(node, neighbor, name string) error {
	if _, ok := g.RouteMap(node, name); !ok {
		return fmt.Errorf("topology: route-map %s not defined at %s", name, node)
	}
	nb, err := g.session(node, neighbor)
	if err != nil {
		return err
	}
	nb.ImportMap = name
	return nil
}

// SetExportRouteMap attaches a route-map to the outbound direction toward
// neighbor.
func (g *Graph) SetExportRouteMap(node, neighbor, name string) error {
	if _, ok := g.RouteMap(node, name); !ok {
		return fmt.Errorf("topology: route-map %s not defined at %s", name, node)
	}
	nb, err := g.session(node, neighbor)
	if err != nil {
		return err
	}
	nb.ExportMap = name
	return nil
}

// AddAdvertisement records an announcement originated by the node (typically
// a virtual external peer seeding a prefix).
func (g *Graph) AddAdvertisement(node string, ann *policy.Announcement) error {
	attrs, err := g.bgp(node)
	if err != nil {
		return err
	}
	attrs.advertised = append(attrs.advertised, ann)
	return nil
}

// Advertisements returns the announcements originated by the node, in
// insertion order.
func (g *Graph) Advertisements(node string) []*policy.Announcement {
	n, ok := g.nodes[node]
	if !ok || n.bgp == nil {
		return nil
	}
	return n.bgp.advertised
}

// AddAnnouncedNetwork marks a network to be announced over BGP by the node,
// optionally through a route-map registered at the node.
func (g *Graph) AddAnnouncedNetwork(node, network, routeMapName string) error {
	attrs, err := g.bgp(node)
	if err != nil {
		return err
	}
	if routeMapName != "" {
		if _, ok := g.RouteMap(node, routeMapName); !ok {
			return fmt.Errorf("topology: route-map %s not defined at %s", routeMapName, node)
		}
	}
	attrs.announces[network] = routeMapName
	return nil
}

// AnnouncedNetworks returns the networks the node announces, sorted.
func (g *Graph) AnnouncedNetworks(node string) []string {
	n, ok := g.nodes[node]
	if !ok || n.bgp == nil {
		return nil
	}
	return sortedKeys(n.bgp.announces)
}

// AddRouteMap registers a route-map at the node, replacing any map with the
// same name.
func (g *Graph) AddRouteMap(node string, rm *policy.RouteMap) error {
	n, err := g.router(node)
	if err != nil {
		return err
	}
	if rm.Name == "" {
		return fmt.Errorf("topology: route-map at %s has no name", node)
	}
	if n.routeMaps == nil {
		n.routeMaps = make(map[string]*policy.RouteMap)
	}
	n.routeMaps[rm.Name] = rm
	return nil
}

// RouteMap looks up a route-map registered at the node.
func (g *Graph) RouteMap(node, name string) (*policy.RouteMap, bool) {
	n, ok := g.nodes[node]
	if !ok || n.routeMaps == nil {
		return nil, false
	}
	rm, ok := n.routeMaps[name]
	return rm, ok
}

// RouteMapNames returns the names of route-maps registered at the node,
// sorted.
func (g *Graph) RouteMapNames(node string) []string {
	n, ok := g.nodes[node]
	if !ok {
		return nil
	}
	return sortedKeys(n.routeMaps)
}

// AddCommunityList registers a community list at the node. A zero ListID is
// assigned from the graph's sequence, skipping IDs already taken.
func (g *Graph) AddCommunityList(node string, cl *policy.CommunityList) (*policy.CommunityList, error) {
	attrs, err := g.bgp(node)
	if err != nil {
		return nil, err
	}
	if cl.ListID == 0 {
		id := g.seq.Next()
		for {
			if _, taken := attrs.communityLists[id]; !taken {
				break
			}
			id = g.seq.Next()
		}
		cl.ListID = id
	}
	attrs.communityLists[cl.ListID] = cl
	return cl, nil
}

// CommunityLists returns the community lists registered at the node keyed by
// list ID.
func (g *Graph) CommunityLists(node string) map[int]*policy.CommunityList {
	n, ok := g.nodes[node]
	if !ok || n.bgp == nil {
		return nil
	}
	return n.bgp.communityLists
}

// AddASPathList registers an AS-path list at the node. Duplicate IDs are an
// error.
func (g *Graph) AddASPathList(node string, l *policy.ASPathList) error {
	attrs, err := g.bgp(node)
	if err != nil {
		return err
	}
	if _, ok := attrs.asPathLists[l.ListID]; ok {
		return fmt.Errorf("topology: as-path list %d already defined at %s", l.ListID, node)
	}
	attrs.asPathLists[l.ListID] = l
	return nil
}

// ASPathLists returns the AS-path lists registered at the node keyed by ID.
func (g *Graph) ASPathLists(node string) map[int]*policy.ASPathList {
	n, ok := g.nodes[node]
	if !ok || n.bgp == nil {
		return nil
	}
	return n.bgp.asPathLists
}

// AddIPPrefixList registers a prefix list at the node. An empty name is
// generated as ip_list_<node>_<n> from the graph's sequence.
func (g *Graph) AddIPPrefixList(node string, pl *policy.IPPrefixList) (*policy.IPPrefixList, error) {
	n, err := g.router(node)
	if err != nil {
		return nil, err
	}
	if n.prefixLists == nil {
		n.prefixLists = make(map[string]*policy.IPPrefixList)
	}
	if pl.Name == "" {
		name := ""
		for {
			name = fmt.Sprintf("ip_list_%s_%d", node, g.seq.Next())
			if _, taken := n.prefixLists[name]; !taken {
				break
			}
		}
		pl.Name = name
	}
	n.prefixLists[pl.Name] = pl
	return pl, nil
}

// IPPrefixLists returns the prefix lists registered at the node keyed by
// name.
func (g *Graph) IPPrefixLists(node string) map[string]*policy.IPPrefixList {
	n, ok := g.nodes[node]
	if !ok {
		return nil
	}
	return n.prefixLists
}
