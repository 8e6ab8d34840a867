package algorithm

import (
	"math"

	"github.com/osstelecom/topoweak/pkg/graph"
)

const unbounded = math.MaxInt32

// flowNetwork is the node-split flow graph of a snapshot. Node i becomes
// in(i)=2i and out(i)=2i+1 joined by an arc of capacity vertexCap; every
// traversable direction of an active connection between active nodes is an
// arc out(a)->in(b) of capacity 1. Arcs are stored in pairs so arc^1 is the
// residual twin.
//
// With vertexCap 1 the max flow from out(s) to in(t) is the number of
// node-disjoint routes; with an unbounded vertexCap it is the number of
// connection-disjoint routes. Parallel connections are separate arcs.
type flowNetwork struct {
	view *graph.View
	head [][]int
	to   []int
	cap  []int
}

func newFlowNetwork(v *graph.View, vertexCap int) *flowNetwork {
	n := v.Len()
	f := &flowNetwork{
		view: v,
		head: make([][]int, 2*n),
	}
	for i := 0; i < n; i++ {
		c := vertexCap
		if !v.Active[i] {
			c = 0
		}
		f.addArc(2*i, 2*i+1, c)
	}
	for i := 0; i < n; i++ {
		if !v.Active[i] {
			continue
		}
		for _, a := range v.Out[i] {
			if v.Active[a.To] {
				f.addArc(2*i+1, 2*a.To, 1)
			}
		}
	}
	return f
}

func (f *flowNetwork) addArc(from, to, c int) {
	f.head[from] = append(f.head[from], len(f.to))
	f.to = append(f.to, to)
	f.cap = append(f.cap, c)
	f.head[to] = append(f.head[to], len(f.to))
	f.to = append(f.to, from)
	f.cap = append(f.cap, 0)
}

// count runs Edmonds-Karp until limit units of flow are found or no
// augmenting path is left. The template capacities are never written.
func (f *flowNetwork) count(s, t, limit int) (int, error) {
	if limit <= 0 || s == t {
		return 0, nil
	}
	if !f.view.SameComponent(s, t) {
		return 0, nil
	}

	residual := make([]int, len(f.cap))
	copy(residual, f.cap)
	parent := make([]int, len(f.head))
	queue := make([]int, 0, len(f.head))
	src, sink := 2*s+1, 2*t

	flow := 0
	for flow < limit {
		for i := range parent {
			parent[i] = -1
		}
		parent[src] = len(f.to)
		queue = append(queue[:0], src)

		found := false
		for len(queue) > 0 && !found {
			u := queue[0]
			queue = queue[1:]
			for _, arc := range f.head[u] {
				w := f.to[arc]
				if residual[arc] <= 0 || parent[w] != -1 {
					continue
				}
				parent[w] = arc
				if w == sink {
					found = true
					break
				}
				queue = append(queue, w)
			}
		}
		if !found {
			break
		}

		// every route crosses a unit connection arc, so the bottleneck is 1
		for w := sink; w != src; {
			arc := parent[w]
			residual[arc]--
			residual[arc^1]++
			w = f.to[arc^1]
		}
		flow++
	}
	return flow, nil
}
