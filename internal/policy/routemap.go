// Package policy holds the BGP policy intermediate representation: route-maps
// with ordered match/action lines, community lists, prefix lists and the
// announcements routers advertise. Line order is significant; the first
// matching line wins.
package policy

import (
	"github.com/route-beacon/bgp-synth/internal/sketch"
)

// Access is the outcome of a route-map line or list entry.
type Access string

const (
	Permit Access = "permit"
	Deny   Access = "deny"
)

// Community is a BGP community tag in "asn:value" notation.
type Community string

// CommunityList is a named match set of community tags. A zero ListID means
// the list has not been registered with a topology yet; registration assigns
// an ID from the graph's sequence.
type CommunityList struct {
	ListID      int
	Access      Access
	Communities []sketch.Value[Community]
}

// IPPrefixList is a named set of prefixes. An empty Name is assigned at
// registration time.
type IPPrefixList struct {
	Name     string
	Access   Access
	Networks []sketch.Value[string]
}

// ASPathList is a named set of AS-path match expressions.
type ASPathList struct {
	ListID  int
	Access  Access
	ASPaths []sketch.Value[string]
}

// Match is one predicate on a route-map line.
type Match interface {
	MatchType() string
}

// MatchNextHop matches on the announcement's next hop.
type MatchNextHop struct {
	NextHop sketch.Value[string]
}

func (MatchNextHop) MatchType() string { return "MatchNextHop" }

// MatchIPPrefixListList matches membership in an IP prefix list.
type MatchIPPrefixListList struct {
	List *IPPrefixList
}

func (MatchIPPrefixListList) MatchType() string { return "MatchIpPrefixListList" }

// MatchCommunitiesList matches membership in a community list.
type MatchCommunitiesList struct {
	List *CommunityList
}

func (MatchCommunitiesList) MatchType() string { return "MatchCommunitiesList" }

// Action is one attribute rewrite on a route-map line.
type Action interface {
	ActionType() string
}

// ActionSetLocalPref sets the local preference.
type ActionSetLocalPref struct {
	Value sketch.Value[int]
}

func (ActionSetLocalPref) ActionType() string { return "ActionSetLocalPref" }

// ActionSetCommunity attaches communities, optionally additive.
type ActionSetCommunity struct {
	Communities []sketch.Value[Community]
	Additive    bool
}

func (ActionSetCommunity) ActionType() string { return "ActionSetCommunity" }

// RouteMapLine is one permit/deny line with ordered matches and actions.
type RouteMapLine struct {
	Access  sketch.Value[Access]
	LineNo  int
	Matches []Match
	Actions []Action
}

// RouteMap is an ordered list of lines applied first-match-wins.
type RouteMap struct {
	Name  string
	Lines []*RouteMapLine
}
