package policy

// Origin is the BGP ORIGIN attribute of an announcement.
type Origin string

const (
	OriginEBGP       Origin = "EBGP"
	OriginIGP        Origin = "IGP"
	OriginIncomplete Origin = "INCOMPLETE"
)

// Announcement is a route advertised by a router, typically the seed
// announcement injected at an external peer. ASPath is ordered oldest-AS-last,
// matching real AS_PATH semantics; the partial evaluator splices it onto the
// AS sequence it derives from the router-level path.
type Announcement struct {
	Prefix      string
	Peer        string
	Origin      Origin
	ASPath      []int
	ASPathLen   int
	NextHop     string
	LocalPref   int
	MED         int
	Communities map[Community]bool
	Permitted   bool
}
