package graph

import (
	"sort"
)

// Reached walks backwards from every active endpoint over active connections
// and active nodes. reached[i] is true when node i can get to some endpoint.
// Nodes in skip are treated as failed: they are neither entered nor reached.
// All traversal state is local to the call.
func Reached(v *View, skip map[int]bool) []bool {
	reached := make([]bool, v.Len())
	queue := make([]int, 0, v.Len())

	for _, e := range v.ActiveEndpoints() {
		if skip[e] {
			continue
		}
		reached[e] = true
		queue = append(queue, e)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		// In[cur] holds every node with an active connection into cur.
		for _, a := range v.In[cur] {
			if reached[a.To] || skip[a.To] || !v.Active[a.To] {
				continue
			}
			reached[a.To] = true
			queue = append(queue, a.To)
		}
	}
	return reached
}

// UnreachableNodes returns the non-endpoint nodes that cannot get to any
// endpoint, ordered by node ID. Inactive nodes are always unreachable; with
// no active endpoint every non-endpoint node is.
func UnreachableNodes(v *View) []*Node {
	return v.nodesAt(unreachableIndexes(v, Reached(v, nil)))
}

// UnreachableConnections returns active connections touching an unreachable node.
func UnreachableConnections(v *View) []*Connection {
	reached := Reached(v, nil)
	seen := make(map[*Connection]bool)
	var out []*Connection
	for _, i := range unreachableIndexes(v, reached) {
		for _, a := range v.Out[i] {
			if !seen[a.Conn] {
				seen[a.Conn] = true
				out = append(out, a.Conn)
			}
		}
		for _, a := range v.In[i] {
			if !seen[a.Conn] {
				seen[a.Conn] = true
				out = append(out, a.Conn)
			}
		}
	}
	sortConnections(out)
	return out
}

// FailureImpact returns the nodes that lose their last route to an endpoint
// when failed goes down. Nodes that were already unreachable and the failed
// node itself are not part of the impact.
func FailureImpact(v *View, failed *Node) []*Node {
	idx, ok := v.Index(failed)
	if !ok {
		return nil
	}
	return ImpactFrom(v, Reached(v, nil), idx)
}

// ImpactFrom is FailureImpact against a precomputed baseline from Reached,
// for callers that evaluate many failures on one snapshot.
func ImpactFrom(v *View, baseline []bool, failed int) []*Node {
	after := Reached(v, map[int]bool{failed: true})
	var out []int
	for i := range v.Nodes {
		if i == failed || v.Endpoint[i] {
			continue
		}
		if baseline[i] && !after[i] {
			out = append(out, i)
		}
	}
	return v.nodesAt(out)
}

// Unreachable snapshots t and returns its unreachable nodes.
func (t *Topology) Unreachable() []*Node {
	return UnreachableNodes(t.View())
}

func unreachableIndexes(v *View, reached []bool) []int {
	var out []int
	for i := range v.Nodes {
		if v.Endpoint[i] || reached[i] {
			continue
		}
		out = append(out, i)
	}
	return out
}

func sortConnections(conns []*Connection) {
	sort.Slice(conns, func(i, j int) bool { return conns[i].ID < conns[j].ID })
}
