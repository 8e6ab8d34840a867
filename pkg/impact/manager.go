// Package impact answers "which nodes of this topology are weak" by chaining
// reachability, a connection-count floor and a weak-node algorithm run.
package impact

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/osstelecom/topoweak/pkg/algorithm"
	"github.com/osstelecom/topoweak/pkg/graph"
)

// Report is the outcome of Manager.WeakNodes. Node lists are ordered by
// node ID and hold each node at most once.
type Report struct {
	Topology        uuid.UUID
	TopologyName    string
	Strategy        algorithm.Strategy
	ConnectionLimit int

	// Weak holds every Unreachable and BelowFloor node, plus the nodes no
	// endpoint job proved resilient.
	Weak []*graph.Node
	// Unreachable nodes cannot get to any endpoint.
	Unreachable []*graph.Node
	// BelowFloor nodes have fewer connections than the limit.
	BelowFloor []*graph.Node
	// Unverified nodes had at least one job fail. A failed job votes weak,
	// so an unverified node is also in Weak unless a job against another
	// endpoint proved it resilient.
	Unverified []*graph.Node

	// Impact maps each weak node to the nodes it alone keeps connected.
	// Filled only for exhaustive runs.
	Impact   map[*graph.Node][]*graph.Node
	Impacted []*graph.Node

	Jobs       int
	FailedJobs int
	CacheHits  int
	Duration   time.Duration
}

// IsWeak reports whether n is in the weak set.
func (r *Report) IsWeak(n *graph.Node) bool {
	for _, w := range r.Weak {
		if w == n {
			return true
		}
	}
	return false
}

// Manager is the single entry point for weak-node queries.
type Manager struct {
	Logger *slog.Logger

	tracer   trace.Tracer
	duration metric.Float64Histogram
}

// NewManager creates a manager logging to logger (slog.Default when nil).
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	duration, _ := otel.Meter("topoweak/impact").Float64Histogram("topoweak.analysis.duration",
		metric.WithDescription("Wall time of weak-node analyses"),
		metric.WithUnit("s"))
	return &Manager{
		Logger:   logger,
		tracer:   otel.Tracer("topoweak/impact"),
		duration: duration,
	}
}

// WeakNodes runs the full analysis on a snapshot of t:
//  1. unreachable nodes are weak;
//  2. nodes with fewer connections than the limit are weak;
//  3. every other non-endpoint node gets one job per active endpoint;
//  4. the selected algorithm drains the jobs;
//  5. its weak nodes are merged in.
//
// The call blocks until the run finishes. If ctx ends first the returned
// error matches algorithm.ErrRunIncomplete and no report is returned.
func (m *Manager) WeakNodes(ctx context.Context, t *graph.Topology, p Params) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	strategy, _ := algorithm.ParseStrategy(string(p.Strategy))

	ctx, span := m.tracer.Start(ctx, "Manager.WeakNodes", trace.WithAttributes(
		attribute.String("topology", t.UUID.String()),
		attribute.Int("connection_limit", p.ConnectionLimit),
		attribute.Int("workers", p.Workers),
		attribute.Bool("use_cache", p.UseCache),
		attribute.Bool("exhaustive", p.Exhaustive),
		attribute.String("strategy", string(strategy)),
	))
	defer span.End()

	start := time.Now()
	logger := m.Logger.With("topology", t.UUID, "name", t.Name)

	v := t.View()
	report := &Report{
		Topology:        t.UUID,
		TopologyName:    t.Name,
		Strategy:        strategy,
		ConnectionLimit: p.ConnectionLimit,
		Impact:          make(map[*graph.Node][]*graph.Node),
	}
	if v.Len() == 0 {
		return report, nil
	}

	inScope := scope(v, p.Nodes)
	weak := make([]bool, v.Len())

	_, rspan := m.tracer.Start(ctx, "Reachability")
	reached := graph.Reached(v, nil)
	for i := range v.Nodes {
		if v.Endpoint[i] || reached[i] || !inScope(i) {
			continue
		}
		weak[i] = true
		report.Unreachable = append(report.Unreachable, v.Nodes[i])
	}
	rspan.SetAttributes(attribute.Int("unreachable", len(report.Unreachable)))
	rspan.End()

	for i := range v.Nodes {
		if v.Endpoint[i] || weak[i] || !inScope(i) {
			continue
		}
		if v.Degree[i] < p.ConnectionLimit {
			weak[i] = true
			report.BelowFloor = append(report.BelowFloor, v.Nodes[i])
		}
	}

	endpoints := v.ActiveEndpoints()
	queue := algorithm.NewQueue()
	for i := range v.Nodes {
		if v.Endpoint[i] || weak[i] || !inScope(i) {
			continue
		}
		for _, e := range endpoints {
			queue.Push(algorithm.Job{
				Source:   v.Nodes[i],
				Target:   v.Nodes[e],
				Limit:    p.ConnectionLimit,
				UseCache: p.UseCache,
			})
		}
	}
	report.Jobs = queue.Len()
	logger.Info("Weak-node analysis started",
		"nodes", v.Len(), "endpoints", len(endpoints),
		"unreachable", len(report.Unreachable), "below_floor", len(report.BelowFloor),
		"jobs", report.Jobs, "strategy", strategy)

	if report.Jobs > 0 {
		alg, err := algorithm.New(strategy, v)
		if err != nil {
			return nil, err
		}
		alg.SubmitWithOptions(queue, algorithm.Options{
			Workers:  p.Workers,
			Logger:   logger,
			Progress: p.Progress,
		})
		res, err := alg.Run(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("weak-node analysis of %s: %w", t.UUID, err)
		}
		for _, n := range res.Weak() {
			if i, ok := v.Index(n); ok {
				weak[i] = true
			}
		}
		report.Unverified = res.Unverified()
		report.FailedJobs = res.Failed
		report.CacheHits = res.CacheHits
	}

	for i, isWeak := range weak {
		if isWeak {
			report.Weak = append(report.Weak, v.Nodes[i])
		}
	}

	if p.Exhaustive {
		m.fillImpact(v, reached, report)
	}

	report.Duration = time.Since(start)
	m.duration.Record(ctx, report.Duration.Seconds(), metric.WithAttributes(attribute.String("strategy", string(strategy))))
	span.SetAttributes(attribute.Int("weak", len(report.Weak)), attribute.Int("impacted", len(report.Impacted)))
	logger.Info("Weak-node analysis finished",
		"weak", len(report.Weak), "unverified", len(report.Unverified),
		"impacted", len(report.Impacted), "duration", report.Duration)
	return report, nil
}

// fillImpact computes, for every weak node, the nodes that lose their last
// route to an endpoint when it fails.
func (m *Manager) fillImpact(v *graph.View, reached []bool, r *Report) {
	seen := make(map[*graph.Node]bool)
	for _, w := range r.Weak {
		i, _ := v.Index(w)
		impacted := graph.ImpactFrom(v, reached, i)
		if len(impacted) == 0 {
			continue
		}
		r.Impact[w] = impacted
		for _, n := range impacted {
			seen[n] = true
		}
	}
	for _, n := range v.Nodes {
		if seen[n] {
			r.Impacted = append(r.Impacted, n)
		}
	}
}

// Unreachable returns the unreachable nodes of t and the active connections
// that touch them.
func (m *Manager) Unreachable(ctx context.Context, t *graph.Topology) ([]*graph.Node, []*graph.Connection) {
	_, span := m.tracer.Start(ctx, "Manager.Unreachable", trace.WithAttributes(
		attribute.String("topology", t.UUID.String()),
	))
	defer span.End()

	v := t.View()
	nodes := graph.UnreachableNodes(v)
	conns := graph.UnreachableConnections(v)
	span.SetAttributes(attribute.Int("unreachable", len(nodes)))
	return nodes, conns
}

func scope(v *graph.View, subset []*graph.Node) func(int) bool {
	if len(subset) == 0 {
		return func(int) bool { return true }
	}
	in := make(map[int]bool, len(subset))
	for _, n := range subset {
		if i, ok := v.Index(n); ok {
			in[i] = true
		}
	}
	return func(i int) bool { return in[i] }
}
