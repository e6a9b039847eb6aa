package topology

import (
	"fmt"
	"sort"

	"github.com/route-beacon/bgp-synth/internal/sketch"
)

// Iface is a physical or loopback interface on a router.
type Iface struct {
	Addr        sketch.Value[string]
	Shutdown    sketch.Value[bool]
	Description string
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AddIface adds a physical interface to a router. Duplicate names are an
// error.
func (g *Graph) AddIface(node, name string, shutdown sketch.Value[bool]) error {
	n, err := g.router(node)
	if err != nil {
		return err
	}
	if n.ifaces == nil {
		n.ifaces = make(map[string]*Iface)
	}
	if _, ok := n.ifaces[name]; ok {
		return fmt.Errorf("topology: iface %s already defined at %s", name, node)
	}
	n.ifaces[name] = &Iface{Addr: sketch.Hole[string](), Shutdown: shutdown}
	return nil
}

// HasIface reports whether the router has a physical interface by that name.
func (g *Graph) HasIface(node, name string) bool {
	n, ok := g.nodes[node]
	if !ok {
		return false
	}
	_, ok = n.ifaces[name]
	return ok
}

// Ifaces returns the router's physical interface names, sorted.
func (g *Graph) Ifaces(node string) []string {
	n, ok := g.nodes[node]
	if !ok {
		return nil
	}
	return sortedKeys(n.ifaces)
}

func (g *Graph) iface(node, name string) (*Iface, error) {
	n, err := g.router(node)
	if err != nil {
		return nil, err
	}
	if ifc, ok := n.ifaces[name]; ok {
		return ifc, nil
	}
	if ifc, ok := n.loopbacks[name]; ok {
		return ifc, nil
	}
	return nil, fmt.Errorf("topology: undefined iface %s at %s", name, node)
}

// SetIfaceAddr assigns an address (possibly a hole) to an interface or
// loopback.
func (g *Graph) SetIfaceAddr(node, name string, addr sketch.Value[string]) error {
	ifc, err := g.iface(node, name)
	if err != nil {
		return err
	}
	ifc.Addr = addr
	return nil
}

// IfaceAddr returns the address of an interface or loopback.
func (g *Graph) IfaceAddr(node, name string) (sketch.Value[string], error) {
	ifc, err := g.iface(node, name)
	if err != nil {
		return sketch.Hole[string](), err
	}
	return ifc.Addr, nil
}

// SetIfaceDescription sets help text on an interface or loopback.
func (g *Graph) SetIfaceDescription(node, name, description string) error {
	ifc, err := g.iface(node, name)
	if err != nil {
		return err
	}
	ifc.Description = description
	return nil
}

// AddLoopback adds a loopback interface (lo0, lo1, ...) to a router.
func (g *Graph) AddLoopback(node, name string) error {
	n, err := g.router(node)
	if err != nil {
		return err
	}
	if n.loopbacks == nil {
		n.loopbacks = make(map[string]*Iface)
	}
	if _, ok := n.loopbacks[name]; ok {
		return fmt.Errorf("topology: loopback %s already defined at %s", name, node)
	}
	n.loopbacks[name] = &Iface{Addr: sketch.Hole[string](), Shutdown: sketch.Of(false)}
	return nil
}

// IsLoopback reports whether name is a loopback on the router.
func (g *Graph) IsLoopback(node, name string) bool {
	n, ok := g.nodes[node]
	if !ok {
		return false
	}
	_, ok = n.loopbacks[name]
	return ok
}

// Loopbacks returns the router's loopback names, sorted.
func (g *Graph) Loopbacks(node string) []string {
	n, ok := g.nodes[node]
	if !ok {
		return nil
	}
	return sortedKeys(n.loopbacks)
}

// SetEdgeIface records which interface of src faces dst.
func (g *Graph) SetEdgeIface(src, dst, iface string) error {
	e, err := g.edge(src, dst)
	if err != nil {
		return err
	}
	e.iface = iface
	return nil
}

// EdgeIface returns the interface assigned to the edge, or "".
func (g *Graph) EdgeIface(src, dst string) string {
	e, ok := g.out[src][dst]
	if !ok {
		return ""
	}
	return e.iface
}

// AssignIfaceNames generates interface names (Fa0/0, Fa0/1, ...) for every
// router-router edge and veth names for router-network edges that do not have
// one yet. Nodes and edges are visited in sorted order so generated names are
// stable across runs.
func (g *Graph) AssignIfaceNames() error {
	for _, node := range g.nodesOfKind(func(string) bool { return true }) {
		ifaceCount := 0
		for _, dst := range g.Neighbors(node) {
			if g.EdgeIface(node, dst) != "" {
				continue
			}
			switch {
			case g.IsRouter(node) && g.IsRouter(dst):
				iface := fmt.Sprintf("Fa%d/%d", ifaceCount/2, ifaceCount%2)
				for g.HasIface(node, iface) {
					ifaceCount++
					iface = fmt.Sprintf("Fa%d/%d", ifaceCount/2, ifaceCount%2)
				}
				if err := g.AddIface(node, iface, sketch.Of(false)); err != nil {
					return err
				}
				if err := g.SetEdgeIface(node, dst, iface); err != nil {
					return err
				}
				if err := g.SetIfaceDescription(node, iface, "To "+dst); err != nil {
					return err
				}
			case g.IsRouter(node) && g.IsNetwork(dst):
				iface := fmt.Sprintf("%s-veth%d", node, ifaceCount)
				if err := g.AddIface(node, iface, sketch.Of(false)); err != nil {
					return err
				}
				if err := g.SetEdgeIface(node, dst, iface); err != nil {
					return err
				}
				if err := g.SetIfaceDescription(node, iface, "To "+dst); err != nil {
					return err
				}
			case g.IsNetwork(node):
				continue
			default:
				return fmt.Errorf("topology: invalid link %s -> %s", node, dst)
			}
			ifaceCount++
		}
	}
	return nil
}
