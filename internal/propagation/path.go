// Package propagation computes, per destination prefix, which routers
// receive, block or rank competing announcement paths, expands AS-level
// paths into concrete router paths across iBGP zone boundaries, merges the
// per-prefix results and partially evaluates them into canonical facts for
// the solver.
//
// Paths are stored announcement-order: the advertising origin first, the
// receiving router last. Wherever the algorithms pick among equally valid
// candidates they iterate in sorted key order; the results are deterministic
// by construction.
package propagation

import (
	"fmt"
	"strings"
)

// Path is an announcement path over graph nodes: router names in the
// router-level view, AS numbers in the eBGP peering view.
type Path[N comparable] []N

// Key returns a stable string form used for set membership and sorting.
func (p Path[N]) Key() string {
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ">")
}

// Last returns the receiving end of the path.
func (p Path[N]) Last() N { return p[len(p)-1] }

// Parent returns the path with its last node removed: the same announcement
// one hop closer to the origin.
func (p Path[N]) Parent() Path[N] { return p[:len(p)-1] }

// Contains reports whether the path visits node.
func (p Path[N]) Contains(node N) bool {
	for _, n := range p {
		if n == node {
			return true
		}
	}
	return false
}

// Equal reports element-wise equality.
func (p Path[N]) Equal(q Path[N]) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (p Path[N]) Clone() Path[N] {
	out := make(Path[N], len(p))
	copy(out, p)
	return out
}

// Fact is one desired announcement path derived from a requirement: the
// origin router that advertises the prefix and the path the announcement
// must take through the view.
type Fact[N comparable] struct {
	Origin string
	Path   Path[N]
}

// RankedFacts is one requirement's contribution: the outer index is the
// preference rank (0 most preferred); facts sharing a rank are equally
// preferred. Unranked requirement kinds contribute a single rank.
type RankedFacts[N comparable] [][]Fact[N]
