package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/route-beacon/bgp-synth/internal/config"
	"github.com/route-beacon/bgp-synth/internal/metrics"
	"github.com/route-beacon/bgp-synth/internal/policy"
	"github.com/route-beacon/bgp-synth/internal/reachability"
	"github.com/route-beacon/bgp-synth/internal/smt"
	"github.com/route-beacon/bgp-synth/internal/store"
	"github.com/route-beacon/bgp-synth/internal/synthesis"
	"go.uber.org/zap"
)

// Runner executes synthesis jobs. Store may be nil for one-shot CLI use;
// runs are then not persisted or deduplicated.
type Runner struct {
	store  *store.Store
	cfg    config.SynthConfig
	logger *zap.Logger
}

func NewRunner(st *store.Store, cfg config.SynthConfig, logger *zap.Logger) *Runner {
	return &Runner{store: st, cfg: cfg, logger: logger}
}

// Response is the synthesis result wire shape.
type Response struct {
	RunID        int64               `json:"run_id,omitempty"`
	Status       string              `json:"status"`
	Deduplicated bool                `json:"deduplicated,omitempty"`
	Digest       string              `json:"digest"`
	Zones        map[int][]string    `json:"zones,omitempty"`
	Violations   []string            `json:"violations,omitempty"`
	Facts        []FactJSON          `json:"facts,omitempty"`
	ASPaths      [][]int             `json:"as_paths,omitempty"`
	Constraints  []string            `json:"constraints,omitempty"`
	Sorts        map[string][]string `json:"sorts,omitempty"`
	DurationMs   int64               `json:"duration_ms"`
}

// FactJSON is one PropagatedInfo on the wire.
type FactJSON struct {
	Node         string   `json:"node"`
	Prefix       string   `json:"prefix"`
	Path         []string `json:"path"`
	ASPath       []int    `json:"as_path"`
	Peer         string   `json:"peer,omitempty"`
	Egress       string   `json:"egress,omitempty"`
	ExternalPeer string   `json:"external_peer,omitempty"`
	Blocked      bool     `json:"blocked,omitempty"`
	PrevPath     []string `json:"prev_path,omitempty"`
}

// Run executes one synthesis job from a raw request body. The source label
// ("http" or "kafka") is used for metrics and stored with the run.
func (r *Runner) Run(ctx context.Context, body []byte, source string) (*Response, error) {
	if len(body) > r.cfg.MaxRequestBytes {
		metrics.RequestErrorsTotal.WithLabelValues("decode", "too_large").Inc()
		return nil, fmt.Errorf("service: request body %d bytes exceeds limit %d", len(body), r.cfg.MaxRequestBytes)
	}

	digest := store.ComputeRequestDigest(body)
	if r.store != nil {
		prev, err := r.store.FindSucceededRun(ctx, digest)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			metrics.RunDedupHitsTotal.Inc()
			return &Response{
				RunID:        prev.ID,
				Status:       prev.Status,
				Deduplicated: true,
				Digest:       hex.EncodeToString(digest),
				DurationMs:   prev.DurationMs,
			}, nil
		}
	}

	req, err := Decode(body)
	if err != nil {
		metrics.RequestErrorsTotal.WithLabelValues("decode", "invalid_request").Inc()
		return nil, err
	}

	start := time.Now()
	resp, routeMaps, synthErr := r.synthesize(req)
	durationMs := time.Since(start).Milliseconds()
	metrics.SynthRunDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	status := store.StatusSucceeded
	switch {
	case synthErr != nil:
		status = store.StatusFailed
	case len(resp.Violations) > 0:
		status = store.StatusViolated
	}
	metrics.SynthRunsTotal.WithLabelValues(source, status).Inc()

	if synthErr != nil {
		r.logger.Error("synthesis run failed",
			zap.String("source", source),
			zap.String("digest", hex.EncodeToString(digest)),
			zap.Error(synthErr),
		)
		return nil, synthErr
	}

	resp.Status = status
	resp.Digest = hex.EncodeToString(digest)
	resp.DurationMs = durationMs
	metrics.OrderViolationsTotal.Add(float64(len(resp.Violations)))
	metrics.PrefixesPerRun.Observe(float64(countPrefixes(resp.Facts)))
	metrics.ASPathDomainSize.Observe(float64(len(resp.ASPaths)))

	if r.store != nil {
		payload, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("service: encoding result: %w", err)
		}
		run := &store.Run{
			Digest:     digest,
			Source:     source,
			Status:     status,
			Violations: len(resp.Violations),
			Prefixes:   countPrefixes(resp.Facts),
			ASPaths:    len(resp.ASPaths),
			DurationMs: durationMs,
		}
		id, err := r.store.InsertRun(ctx, run, payload, routeMaps)
		if err != nil {
			return nil, err
		}
		resp.RunID = id
	}
	return resp, nil
}

func (r *Runner) synthesize(req *Request) (*Response, []store.RouteMapRow, error) {
	topo, requirements, err := BuildTopology(req)
	if err != nil {
		metrics.RequestErrorsTotal.WithLabelValues("build", "topology").Inc()
		return nil, nil, err
	}

	if req.AutoAssignAS {
		if err := synthesis.AssignEBGP(topo); err != nil {
			return nil, nil, err
		}
	}
	if req.InjectPeers {
		requirements, err = synthesis.InjectVirtualPeers(topo, requirements, r.cfg.SeedASPath)
		if err != nil {
			return nil, nil, err
		}
	}
	if req.AssignIfaceNames {
		if err := topo.AssignIfaceNames(); err != nil {
			return nil, nil, err
		}
	}

	recorder := smt.NewRecorder()
	synth := synthesis.New(
		topo,
		reachability.NewEngine[int](r.logger),
		reachability.NewEngine[string](r.logger),
		reachability.NewChecker(),
		recorder,
		nil,
		r.logger,
	)
	result, err := synth.Run(requirements)
	if err != nil {
		return nil, nil, err
	}

	resp := &Response{
		Zones: make(map[int][]string, len(result.Zones)),
		Sorts: make(map[string][]string),
	}
	for asn, members := range result.Zones {
		names := make([]string, 0, len(members))
		for m := range members {
			names = append(names, m)
		}
		sort.Strings(names)
		resp.Zones[asn] = names
	}
	for _, v := range result.Violations {
		resp.Violations = append(resp.Violations, v.String())
	}
	for _, node := range result.Graphs.MergedIBGP.Nodes() {
		for _, prefix := range result.Graphs.MergedIBGP.Prefixes(node) {
			nf := result.Eval.NodeFacts(node, prefix)
			if nf == nil {
				continue
			}
			for _, fact := range nf.All() {
				_, blocked := nf.Block[fact.Path.Key()]
				fj := FactJSON{
					Node:         node,
					Prefix:       prefix,
					Path:         fact.Path,
					ASPath:       fact.ASPath,
					Peer:         fact.Peer,
					Egress:       fact.Egress,
					ExternalPeer: fact.ExternalPeer,
					Blocked:      blocked,
				}
				if fact.Prev != nil {
					fj.PrevPath = fact.Prev.Path
				}
				resp.Facts = append(resp.Facts, fj)
			}
		}
	}
	for _, p := range result.Eval.ASPaths {
		resp.ASPaths = append(resp.ASPaths, p)
	}
	for _, c := range recorder.Constraints() {
		resp.Constraints = append(resp.Constraints, c.String())
	}
	for _, name := range recorder.SortNames() {
		resp.Sorts[name] = recorder.Sort(name)
	}

	// Round-trip the request's route-maps through the policy codec for
	// storage alongside the run.
	var rows []store.RouteMapRow
	for _, spec := range req.RouteMaps {
		rm, ok := topo.RouteMap(spec.Router, routeMapName(spec.Map))
		if !ok {
			continue
		}
		payload, err := policy.MarshalRouteMap(rm)
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, store.RouteMapRow{Node: spec.Router, Name: rm.Name, Payload: payload})
	}
	return resp, rows, nil
}

func routeMapName(raw json.RawMessage) string {
	var lines []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &lines); err != nil || len(lines) == 0 {
		return ""
	}
	return lines[0].Name
}

func countPrefixes(facts []FactJSON) int {
	seen := make(map[string]bool)
	for _, f := range facts {
		seen[f.Prefix] = true
	}
	return len(seen)
}
