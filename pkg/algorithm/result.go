package algorithm

import (
	"sort"
	"sync"

	"github.com/osstelecom/topoweak/pkg/graph"
)

// Verdict accumulates every job run for one source node.
type Verdict struct {
	Node *graph.Node
	// Tested counts the endpoints the node was checked against.
	Tested int
	// Resilient is true once any endpoint had enough independent routes.
	Resilient bool
	// Unverified is true when at least one job for the node failed.
	Unverified bool
	// MaxPaths is the best route count seen, capped at the job limit.
	MaxPaths int
	// Errors holds the messages of failed jobs.
	Errors []string
}

// Weak reports whether the node failed against every endpoint it was tested on.
func (v Verdict) Weak() bool {
	return v.Tested > 0 && !v.Resilient
}

// Result is the outcome of one algorithm run.
type Result struct {
	Strategy  Strategy
	Total     int
	Completed int
	Failed    int
	CacheHits int

	mu       sync.Mutex
	verdicts map[*graph.Node]*Verdict
}

func newResult(s Strategy, total int) *Result {
	return &Result{
		Strategy: s,
		Total:    total,
		verdicts: make(map[*graph.Node]*Verdict),
	}
}

func (r *Result) verdict(n *graph.Node) *Verdict {
	v, ok := r.verdicts[n]
	if !ok {
		v = &Verdict{Node: n}
		r.verdicts[n] = v
	}
	return v
}

// record merges one definitive job outcome. Resilience is OR-combined.
func (r *Result) record(n *graph.Node, paths int, resilient bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.verdict(n)
	v.Tested++
	v.Resilient = v.Resilient || resilient
	if paths > v.MaxPaths {
		v.MaxPaths = paths
	}
}

// fail marks a job that could not be verified; it votes weak.
func (r *Result) fail(n *graph.Node, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed++
	if n == nil {
		return
	}
	v := r.verdict(n)
	v.Tested++
	v.Unverified = true
	v.Errors = append(v.Errors, err.Error())
}

func (r *Result) hit() {
	r.mu.Lock()
	r.CacheHits++
	r.mu.Unlock()
}

// Verdict returns the verdict of n.
func (r *Result) Verdict(n *graph.Node) (Verdict, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.verdicts[n]
	if !ok {
		return Verdict{}, false
	}
	return *v, true
}

// Verdicts returns every verdict ordered by node ID.
func (r *Result) Verdicts() []Verdict {
	r.mu.Lock()
	out := make([]Verdict, 0, len(r.verdicts))
	for _, v := range r.verdicts {
		out = append(out, *v)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Node.ID < out[j].Node.ID })
	return out
}

// Weak returns nodes that were weak against every endpoint they were tested on.
func (r *Result) Weak() []*graph.Node {
	var out []*graph.Node
	for _, v := range r.Verdicts() {
		if v.Weak() {
			out = append(out, v.Node)
		}
	}
	return out
}

// Unverified returns nodes with at least one failed job.
func (r *Result) Unverified() []*graph.Node {
	var out []*graph.Node
	for _, v := range r.Verdicts() {
		if v.Unverified {
			out = append(out, v.Node)
		}
	}
	return out
}
