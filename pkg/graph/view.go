package graph

import (
	"github.com/google/uuid"
)

// Arc is one traversable direction of an active connection.
type Arc struct {
	To   int
	Conn *Connection
}

// View is an immutable, index-based snapshot of a topology taken under its
// read lock. Analyses run against a View, so they never observe a topology
// half-way through a change and never write to it.
//
// Out[i] lists arcs leaving node i, In[i] lists arcs arriving at node i.
// Only active connections produce arcs; a bidirectional connection produces
// one arc in each direction.
type View struct {
	Topology  uuid.UUID
	Name      string
	Nodes     []*Node
	Active    []bool
	Endpoint  []bool
	Degree    []int
	Out       [][]Arc
	In        [][]Arc
	Component []int

	index map[*Node]int
}

// View snapshots the topology.
func (t *Topology) View() *View {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := len(t.nodes)
	v := &View{
		Topology: t.UUID,
		Name:     t.Name,
		Nodes:    make([]*Node, n),
		Active:   make([]bool, n),
		Endpoint: make([]bool, n),
		Degree:   make([]int, n),
		Out:      make([][]Arc, n),
		In:       make([][]Arc, n),
		index:    make(map[*Node]int, n),
	}
	for i, node := range t.nodes {
		v.Nodes[i] = node
		v.Active[i] = node.active
		v.Endpoint[i] = node.isEndpoint()
		v.Degree[i] = len(node.connections)
		v.index[node] = i
	}
	for _, c := range t.conns {
		if !c.active {
			continue
		}
		s, d := v.index[c.source], v.index[c.target]
		v.Out[s] = append(v.Out[s], Arc{To: d, Conn: c})
		v.In[d] = append(v.In[d], Arc{To: s, Conn: c})
		if !c.Directed {
			v.Out[d] = append(v.Out[d], Arc{To: s, Conn: c})
			v.In[s] = append(v.In[s], Arc{To: d, Conn: c})
		}
	}
	v.Component = v.labelComponents()
	return v
}

// Len returns the number of nodes in the snapshot.
func (v *View) Len() int { return len(v.Nodes) }

// Index returns the snapshot position of n.
func (v *View) Index(n *Node) (int, bool) {
	i, ok := v.index[n]
	return i, ok
}

// ActiveEndpoints returns the indexes of endpoints that can be traversed.
func (v *View) ActiveEndpoints() []int {
	var out []int
	for i := range v.Nodes {
		if v.Endpoint[i] && v.Active[i] {
			out = append(out, i)
		}
	}
	return out
}

// SameComponent reports whether i and j are linked by active elements,
// ignoring connection direction.
func (v *View) SameComponent(i, j int) bool {
	return v.Component[i] >= 0 && v.Component[i] == v.Component[j]
}

// Components groups active nodes into connected components, largest first.
func (v *View) Components() [][]*Node {
	groups := make(map[int][]*Node)
	var order []int
	for i, c := range v.Component {
		if c < 0 {
			continue
		}
		if _, seen := groups[c]; !seen {
			order = append(order, c)
		}
		groups[c] = append(groups[c], v.Nodes[i])
	}
	out := make([][]*Node, 0, len(order))
	for _, c := range order {
		out = append(out, groups[c])
	}
	sortBySizeDesc(out)
	return out
}

func (v *View) labelComponents() []int {
	uf := NewUnionFind(len(v.Nodes))
	for i, arcs := range v.Out {
		if !v.Active[i] {
			continue
		}
		for _, a := range arcs {
			if v.Active[a.To] {
				uf.Union(i, a.To)
			}
		}
	}
	labels := make([]int, len(v.Nodes))
	for i := range labels {
		if !v.Active[i] {
			labels[i] = -1
			continue
		}
		labels[i] = uf.Find(i)
	}
	return labels
}

func (v *View) nodesAt(idx []int) []*Node {
	out := make([]*Node, 0, len(idx))
	for _, i := range idx {
		out = append(out, v.Nodes[i])
	}
	return out
}
