// Package algorithm decides, job by job, whether a node has enough
// independent routes to an endpoint. Strategies are interchangeable and
// picked by value.
package algorithm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/osstelecom/topoweak/pkg/graph"
)

// Strategy names a registered route-counting implementation.
type Strategy string

const (
	// MaxFlow counts node-disjoint routes with unit vertex capacities.
	MaxFlow Strategy = "maxflow"
	// EdgeDisjoint counts connection-disjoint routes.
	EdgeDisjoint Strategy = "edge"
	// Naive counts the source's first hops that still reach the target.
	Naive Strategy = "naive"
)

// DefaultStrategy is used when none is configured.
const DefaultStrategy = MaxFlow

// PathCounter returns the number of independent routes from s to t in the
// snapshot it was built for, by snapshot index. It may stop counting once
// limit is reached. Implementations must only read the snapshot.
type PathCounter func(s, t, limit int) (int, error)

// Factory prepares a PathCounter for one snapshot. It runs once per Run.
type Factory func(v *graph.View) PathCounter

// Algorithm is a weak-node strategy: submit a queue, then run it.
type Algorithm interface {
	Name() Strategy
	Submit(q *Queue)
	SubmitWithOptions(q *Queue, opts Options)
	Run(ctx context.Context) (*Result, error)
}

// Options tune a run.
type Options struct {
	// Workers is the number of goroutines draining the queue (at least one).
	Workers int
	Logger  *slog.Logger
	// Progress, when set, is called after every job. Calls are serialised.
	Progress func(done, total int)
}

var (
	registryMu sync.RWMutex
	factories  = map[Strategy]Factory{}
)

// Register makes a strategy available to New. Registering a name twice
// replaces the earlier factory.
func Register(s Strategy, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[s] = f
}

// Strategies lists registered strategies in name order.
func Strategies() []Strategy {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Strategy, 0, len(factories))
	for s := range factories {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseStrategy resolves a strategy name; the empty string means DefaultStrategy.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	if s == "" {
		return DefaultStrategy, nil
	}
	registryMu.RLock()
	_, ok := factories[s]
	registryMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return s, nil
}

// New creates an Algorithm of the given strategy over snapshot v.
func New(s Strategy, v *graph.View) (Algorithm, error) {
	if s == "" {
		s = DefaultStrategy
	}
	registryMu.RLock()
	f, ok := factories[s]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
	return &runner{strategy: s, view: v, factory: f}, nil
}

func init() {
	Register(MaxFlow, func(v *graph.View) PathCounter {
		return newFlowNetwork(v, 1).count
	})
	Register(EdgeDisjoint, func(v *graph.View) PathCounter {
		return newFlowNetwork(v, unbounded).count
	})
	Register(Naive, naiveCounter)
}
