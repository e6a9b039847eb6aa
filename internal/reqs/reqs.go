// Package reqs defines the operator-supplied reachability requirements the
// synthesizer works from. Requirements are immutable inputs: one destination
// prefix per instance, with a path shape describing how traffic to that
// prefix must flow.
package reqs

// Protocol tags which routing protocol a requirement targets.
type Protocol string

const (
	BGP  Protocol = "bgp"
	OSPF Protocol = "ospf"
)

// Requirement is one reachability intent for a destination prefix.
type Requirement interface {
	Proto() Protocol
	// DstNet is the destination prefix the requirement constrains.
	DstNet() string
}

// PathReq requires the prefix's announcement to follow one explicit router
// sequence, ordered advertising origin first, receiver last.
type PathReq struct {
	Protocol Protocol
	Dst      string
	Path     []string
	Strict   bool
}

func (r PathReq) Proto() Protocol { return r.Protocol }
func (r PathReq) DstNet() string  { return r.Dst }

// PathOrderReq requires a ranked list of paths: lower index is more
// preferred.
type PathOrderReq struct {
	Protocol Protocol
	Dst      string
	Paths    []PathReq
	Strict   bool
}

func (r PathOrderReq) Proto() Protocol { return r.Protocol }
func (r PathOrderReq) DstNet() string  { return r.Dst }

// KConnectedPathsReq requires an unordered set of paths that must all remain
// simultaneously viable (backup/resilience).
type KConnectedPathsReq struct {
	Protocol Protocol
	Dst      string
	Paths    []PathReq
}

func (r KConnectedPathsReq) Proto() Protocol { return r.Protocol }
func (r KConnectedPathsReq) DstNet() string  { return r.Dst }

// ECMPPathsReq requires a set of equal-preference paths selected together.
type ECMPPathsReq struct {
	Protocol Protocol
	Dst      string
	Paths    []PathReq
}

func (r ECMPPathsReq) Proto() Protocol { return r.Protocol }
func (r ECMPPathsReq) DstNet() string  { return r.Dst }
