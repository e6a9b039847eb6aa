// Package synthesis orchestrates one synthesis run: zone extraction,
// per-prefix propagation, merging, partial evaluation, solver-variable
// registration, and the per-node synthesis pass. The pipeline is a strict
// one-way state machine; a failed run is discarded and re-run from scratch.
package synthesis

import (
	"fmt"
	"sort"

	"github.com/route-beacon/bgp-synth/internal/propagation"
	"github.com/route-beacon/bgp-synth/internal/reqs"
	"github.com/route-beacon/bgp-synth/internal/smt"
	"github.com/route-beacon/bgp-synth/internal/topology"
	"go.uber.org/zap"
)

// State is the pipeline's position. Transitions are strictly sequential with
// no re-entry.
type State int

const (
	Uninitialized State = iota
	ZonesComputed
	PerPrefixGraphsBuilt
	Merged
	FactsEvaluated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case ZonesComputed:
		return "zones_computed"
	case PerPrefixGraphsBuilt:
		return "per_prefix_graphs_built"
	case Merged:
		return "merged"
	case FactsEvaluated:
		return "facts_evaluated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// NodeResult is what the per-node synthesis routine hands back: constraints
// and variables go straight into the solver context; generated IGP
// requirements are collected for the downstream OSPF pass.
type NodeResult struct {
	GeneratedOSPF []reqs.Requirement
}

// NodeFunc is the per-node synthesis routine, invoked once per router after
// propagation facts are evaluated. It must be pure with respect to the
// topology: all output goes through the context and the returned result.
type NodeFunc func(node string, facts map[string]*propagation.NodeFacts, ctx smt.Context) (NodeResult, error)

// Synthesizer drives one run over a topology and requirement set.
type Synthesizer struct {
	topo         *topology.Graph
	asEngine     propagation.Engine[int]
	routerEngine propagation.Engine[string]
	checker      propagation.OrderChecker
	ctx          smt.Context
	nodeFn       NodeFunc
	logger       *zap.Logger

	state State
}

func New(
	topo *topology.Graph,
	asEngine propagation.Engine[int],
	routerEngine propagation.Engine[string],
	checker propagation.OrderChecker,
	ctx smt.Context,
	nodeFn NodeFunc,
	logger *zap.Logger,
) *Synthesizer {
	return &Synthesizer{
		topo:         topo,
		asEngine:     asEngine,
		routerEngine: routerEngine,
		checker:      checker,
		ctx:          ctx,
		nodeFn:       nodeFn,
		logger:       logger,
		state:        Uninitialized,
	}
}

// State returns the pipeline's current position.
func (s *Synthesizer) State() State { return s.state }

// Result is a completed run's output. Violations are advisory; the caller
// decides whether they invalidate the run.
type Result struct {
	Zones         propagation.Zones
	Graphs        *propagation.Result
	Eval          *propagation.Evaluated
	GeneratedOSPF []reqs.Requirement
	Violations    []propagation.OrderViolation
}

// Run executes the full pipeline. The topology must not be mutated by anyone
// else for the duration of the call.
func (s *Synthesizer) Run(requirements []reqs.Requirement) (*Result, error) {
	if s.state != Uninitialized {
		return nil, fmt.Errorf("synthesis: run already started (state %s)", s.state)
	}

	zones := propagation.ExtractZones(s.topo)
	s.state = ZonesComputed
	s.logger.Debug("zones extracted", zap.Int("zones", len(zones)))

	builder := propagation.NewBuilder(s.topo, zones, s.asEngine, s.routerEngine, s.checker, s.logger)
	graphs, err := builder.ComputeGraphs(requirements)
	if err != nil {
		return nil, err
	}
	s.state = PerPrefixGraphsBuilt
	s.state = Merged

	if err := s.registerRouterIDs(); err != nil {
		return nil, err
	}

	eval, err := propagation.PartialEval(s.topo, graphs.MergedIBGP)
	if err != nil {
		return nil, err
	}
	s.state = FactsEvaluated

	if err := s.registerASPaths(eval); err != nil {
		return nil, err
	}

	res := &Result{
		Zones:      zones,
		Graphs:     graphs,
		Eval:       eval,
		Violations: graphs.Violations,
	}

	if s.nodeFn != nil {
		for _, node := range graphs.MergedIBGP.Nodes() {
			facts := make(map[string]*propagation.NodeFacts)
			for _, prefix := range graphs.MergedIBGP.Prefixes(node) {
				facts[prefix] = eval.NodeFacts(node, prefix)
			}
			nodeRes, err := s.nodeFn(node, facts, s.ctx)
			if err != nil {
				return nil, fmt.Errorf("synthesis: node %s: %w", node, err)
			}
			res.GeneratedOSPF = append(res.GeneratedOSPF, nodeRes.GeneratedOSPF...)
		}
	}

	s.logger.Info("synthesis pipeline complete",
		zap.Int("prefixes", len(graphs.IBGP)),
		zap.Int("as_paths", len(eval.ASPaths)),
		zap.Int("violations", len(res.Violations)),
	)
	return res, nil
}

// RouterIDVar is the solver variable name for a router's BGP router ID.
func RouterIDVar(node string) string { return "router_id_" + node }

// registerRouterIDs declares one integer variable per BGP router. Concrete
// IDs are pinned; symbolic and unset IDs get positivity, and all IDs are
// pairwise distinct.
func (s *Synthesizer) registerRouterIDs() error {
	var names []string
	for _, node := range s.topo.Routers() {
		if !s.topo.IsBGPEnabled(node) {
			continue
		}
		name := RouterIDVar(node)
		id := s.topo.RouterID(node)
		if v, ok := id.Get(); ok {
			if err := s.ctx.IntVar(name, &v); err != nil {
				return fmt.Errorf("synthesis: %w", err)
			}
		} else {
			if err := s.ctx.IntVar(name, nil); err != nil {
				return fmt.Errorf("synthesis: %w", err)
			}
			if err := s.ctx.Assert(smt.GE{Var: name, Bound: 1}); err != nil {
				return fmt.Errorf("synthesis: %w", err)
			}
		}
		names = append(names, name)
	}
	if len(names) > 1 {
		sort.Strings(names)
		if err := s.ctx.Assert(smt.NewDistinct(names)); err != nil {
			return fmt.Errorf("synthesis: %w", err)
		}
	}
	return nil
}

// ASPathSort is the enum sort name carrying all observed AS-path values.
const ASPathSort = "ASPathSort"

func (s *Synthesizer) registerASPaths(eval *propagation.Evaluated) error {
	if len(eval.ASPaths) == 0 {
		return nil
	}
	symbols := make([]string, len(eval.ASPaths))
	for i, p := range eval.ASPaths {
		symbols[i] = propagation.ASPathKey(p)
	}
	if err := s.ctx.EnumSort(ASPathSort, symbols); err != nil {
		return fmt.Errorf("synthesis: %w", err)
	}
	return nil
}
