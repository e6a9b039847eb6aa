package reachability

import (
	"fmt"

	"github.com/route-beacon/bgp-synth/internal/propagation"
)

// Checker validates preference orderings against eBGP announcement
// semantics. A peer AS announces only its own best path for a prefix, so a
// node never sees two competing paths that enter through the same peer AS;
// any requested ranking between such a pair is unrealizable.
type Checker struct{}

func NewChecker() *Checker { return &Checker{} }

// CheckOrder scans each node's rank runs and reports every preferred /
// less-preferred pair that shares its penultimate AS. Prefix is left for the
// caller to fill in.
func (c *Checker) CheckOrder(g *propagation.Graph[int]) []propagation.OrderViolation {
	var out []propagation.OrderViolation
	for _, node := range g.Nodes() {
		order := g.Node(node).Order
		for i := 0; i < len(order); i++ {
			for j := i + 1; j < len(order); j++ {
				for _, preferred := range order[i].Paths() {
					for _, over := range order[j].Paths() {
						if !sameEntry(preferred, over) {
							continue
						}
						out = append(out, propagation.OrderViolation{
							Node:      fmt.Sprint(node),
							Preferred: preferred.Key(),
							Over:      over.Key(),
						})
					}
				}
			}
		}
	}
	return out
}

// sameEntry reports whether both paths enter their shared endpoint through
// the same previous AS.
func sameEntry(a, b propagation.Path[int]) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	return a[len(a)-2] == b[len(b)-2] && a.Last() == b.Last()
}
