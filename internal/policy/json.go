package policy

import (
	"encoding/json"
	"fmt"

	"github.com/route-beacon/bgp-synth/internal/sketch"
)

// Wire format for synthesized route-maps. A route-map serializes to an
// ordered list of line objects; matches and actions are tagged objects. The
// "?" placeholder marks values left for the solver and is distinct from an
// absent (null) field.

type lineWire struct {
	Name    string            `json:"name"`
	Access  json.RawMessage   `json:"access"`
	LineNo  int               `json:"lineno"`
	Matches []json.RawMessage `json:"matches"`
	Actions []json.RawMessage `json:"actions"`
}

type matchTag struct {
	MatchType string `json:"match_type"`
}

type actionTag struct {
	Action string `json:"action"`
}

type nextHopWire struct {
	MatchType string               `json:"match_type"`
	NextHop   sketch.Value[string] `json:"nexthop"`
}

type prefixListWire struct {
	Name     string                 `json:"name"`
	Access   Access                 `json:"access"`
	Networks []sketch.Value[string] `json:"networks"`
}

type matchPrefixListWire struct {
	MatchType  string         `json:"match_type"`
	PrefixList prefixListWire `json:"prefix_list"`
}

type communityListWire struct {
	ListID      int                       `json:"list_id"`
	Access      Access                    `json:"access"`
	Communities []sketch.Value[Community] `json:"communities"`
}

type matchCommunitiesWire struct {
	MatchType       string            `json:"match_type"`
	CommunitiesList communityListWire `json:"communities_list"`
}

type setLocalPrefWire struct {
	Action string            `json:"action"`
	Value  sketch.Value[int] `json:"value"`
}

type setCommunityWire struct {
	Action      string                    `json:"action"`
	Communities []sketch.Value[Community] `json:"communities"`
	Additive    bool                      `json:"additive"`
}

// MarshalRouteMap serializes a route-map to its wire form: one object per
// line, in line order.
func MarshalRouteMap(rm *RouteMap) ([]byte, error) {
	lines := make([]lineWire, 0, len(rm.Lines))
	for _, line := range rm.Lines {
		access, err := json.Marshal(line.Access)
		if err != nil {
			return nil, fmt.Errorf("policy: encoding access of %s: %w", rm.Name, err)
		}
		lw := lineWire{
			Name:   rm.Name,
			Access: access,
			LineNo: line.LineNo,
		}
		for _, m := range line.Matches {
			enc, err := marshalMatch(m)
			if err != nil {
				return nil, fmt.Errorf("policy: encoding match in %s: %w", rm.Name, err)
			}
			lw.Matches = append(lw.Matches, enc)
		}
		for _, a := range line.Actions {
			enc, err := marshalAction(a)
			if err != nil {
				return nil, fmt.Errorf("policy: encoding action in %s: %w", rm.Name, err)
			}
			lw.Actions = append(lw.Actions, enc)
		}
		lines = append(lines, lw)
	}
	return json.Marshal(lines)
}

func marshalMatch(m Match) (json.RawMessage, error) {
	switch match := m.(type) {
	case MatchNextHop:
		return json.Marshal(nextHopWire{MatchType: match.MatchType(), NextHop: match.NextHop})
	case MatchIPPrefixListList:
		return json.Marshal(matchPrefixListWire{
			MatchType: match.MatchType(),
			PrefixList: prefixListWire{
				Name:     match.List.Name,
				Access:   match.List.Access,
				Networks: match.List.Networks,
			},
		})
	case MatchCommunitiesList:
		return json.Marshal(matchCommunitiesWire{
			MatchType: match.MatchType(),
			CommunitiesList: communityListWire{
				ListID:      match.List.ListID,
				Access:      match.List.Access,
				Communities: match.List.Communities,
			},
		})
	default:
		return nil, fmt.Errorf("unknown match type %T", m)
	}
}

func marshalAction(a Action) (json.RawMessage, error) {
	switch action := a.(type) {
	case ActionSetLocalPref:
		return json.Marshal(setLocalPrefWire{Action: action.ActionType(), Value: action.Value})
	case ActionSetCommunity:
		return json.Marshal(setCommunityWire{
			Action:      action.ActionType(),
			Communities: action.Communities,
			Additive:    action.Additive,
		})
	default:
		return nil, fmt.Errorf("unknown action type %T", a)
	}
}

// UnmarshalRouteMap decodes the wire form back into a route-map. The name is
// taken from the first line (all lines carry the map name).
func UnmarshalRouteMap(data []byte) (*RouteMap, error) {
	var lines []lineWire
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("policy: decoding route-map: %w", err)
	}
	rm := &RouteMap{}
	for i, lw := range lines {
		if rm.Name == "" {
			rm.Name = lw.Name
		}
		var access sketch.Value[Access]
		if err := json.Unmarshal(lw.Access, &access); err != nil {
			return nil, fmt.Errorf("policy: decoding access of line %d: %w", i, err)
		}
		line := &RouteMapLine{Access: access, LineNo: lw.LineNo}
		for _, raw := range lw.Matches {
			m, err := unmarshalMatch(raw)
			if err != nil {
				return nil, fmt.Errorf("policy: decoding match in line %d: %w", i, err)
			}
			line.Matches = append(line.Matches, m)
		}
		for _, raw := range lw.Actions {
			a, err := unmarshalAction(raw)
			if err != nil {
				return nil, fmt.Errorf("policy: decoding action in line %d: %w", i, err)
			}
			line.Actions = append(line.Actions, a)
		}
		rm.Lines = append(rm.Lines, line)
	}
	return rm, nil
}

func unmarshalMatch(raw json.RawMessage) (Match, error) {
	var tag matchTag
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, err
	}
	switch tag.MatchType {
	case "MatchNextHop":
		var w nextHopWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return MatchNextHop{NextHop: w.NextHop}, nil
	case "MatchIpPrefixListList":
		var w matchPrefixListWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return MatchIPPrefixListList{List: &IPPrefixList{
			Name:     w.PrefixList.Name,
			Access:   w.PrefixList.Access,
			Networks: w.PrefixList.Networks,
		}}, nil
	case "MatchCommunitiesList":
		var w matchCommunitiesWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return MatchCommunitiesList{List: &CommunityList{
			ListID:      w.CommunitiesList.ListID,
			Access:      w.CommunitiesList.Access,
			Communities: w.CommunitiesList.Communities,
		}}, nil
	default:
		return nil, fmt.Errorf("unknown match_type %q", tag.MatchType)
	}
}

func unmarshalAction(raw json.RawMessage) (Action, error) {
	var tag actionTag
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, err
	}
	switch tag.Action {
	case "ActionSetLocalPref":
		var w setLocalPrefWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ActionSetLocalPref{Value: w.Value}, nil
	case "ActionSetCommunity":
		var w setCommunityWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ActionSetCommunity{Communities: w.Communities, Additive: w.Additive}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", tag.Action)
	}
}
