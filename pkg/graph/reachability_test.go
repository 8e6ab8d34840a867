package graph

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestUnreachable_IsolatedNode(t *testing.T) {
	m := NewMockFactory("isolated")
	m.Chain("A", "B", "C")
	m.Endpoint("C")
	m.Node("D")

	got := UnreachableNodes(m.Topology.View())
	if len(got) != 1 || got[0].Name != "D" {
		t.Fatalf("expected [D], got %v", got)
	}
}

func TestUnreachable_NoEndpoints(t *testing.T) {
	m := NewMockFactory("no-exit")
	m.Chain("A", "B", "C")

	got := UnreachableNodes(m.Topology.View())
	if len(got) != 3 {
		t.Fatalf("expected every node unreachable, got %v", got)
	}
}

func TestUnreachable_Directed(t *testing.T) {
	// X -> A -> B -> E(endpoint); O hangs off E on an inactive link.
	topo := NewTopology("directed")
	a, b, e := topo.AddNode("A"), topo.AddNode("B"), topo.AddNode("E", Endpoint())
	x := topo.AddNode("X")
	orphan := topo.AddNode("O")
	topo.AddConnection(a, b, Directed())
	topo.AddConnection(b, e, Directed())
	topo.AddConnection(x, a, Directed())
	topo.AddConnection(e, orphan, InactiveConnection())

	got := UnreachableNodes(topo.View())
	if len(got) != 1 || got[0] != orphan {
		t.Fatalf("expected only O unreachable, got %v", got)
	}
}

func TestUnreachable_InactiveNodeBlocksPath(t *testing.T) {
	m := NewMockFactory("inactive")
	m.Chain("A", "B", "C")
	m.Endpoint("C")
	m.Topology.SetNodeActive(m.Must("B"), false)

	got := UnreachableNodes(m.Topology.View())
	if len(got) != 2 || got[0].Name != "A" || got[1].Name != "B" {
		t.Fatalf("expected [A B], got %v", got)
	}

	conns := UnreachableConnections(m.Topology.View())
	if len(conns) != 2 {
		t.Fatalf("expected both connections of the cut-off part, got %v", conns)
	}
}

func TestFailureImpact(t *testing.T) {
	// A - B - C(endpoint), D - B : B is a cut vertex for A and D.
	m := NewMockFactory("impact")
	m.Chain("A", "B", "C")
	m.Link("D", "B")
	m.Endpoint("C")
	m.Node("Z")

	got := FailureImpact(m.Topology.View(), m.Must("B"))
	if len(got) != 2 || got[0].Name != "A" || got[1].Name != "D" {
		t.Fatalf("expected [A D], got %v", got)
	}

	if got := FailureImpact(m.Topology.View(), m.Must("A")); len(got) != 0 {
		t.Fatalf("A is a leaf, expected no impact, got %v", got)
	}
}

// bfsReachesEndpoint is an independent forward search used to check the
// reverse traversal.
func bfsReachesEndpoint(start *Node) bool {
	if !start.IsActive() {
		return false
	}
	visited := map[*Node]bool{start: true}
	queue := []*Node{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.IsEndpoint() {
			return true
		}
		for _, c := range cur.Connections() {
			if !c.IsActive() {
				continue
			}
			var next *Node
			switch {
			case c.Source() == cur:
				next = c.Target()
			case !c.Directed:
				next = c.Source()
			default:
				continue
			}
			if visited[next] || !next.IsActive() {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return false
}

func randomTopology(seed int64, nodes, conns int) *Topology {
	r := rand.New(rand.NewSource(seed))
	topo := NewTopology(fmt.Sprintf("random-%d", seed))
	all := make([]*Node, nodes)
	for i := range all {
		var opts []NodeOption
		if r.Intn(10) == 0 {
			opts = append(opts, Endpoint())
		}
		all[i] = topo.AddNode(fmt.Sprintf("n%d", i), opts...)
		if r.Intn(15) == 0 {
			topo.SetNodeActive(all[i], false)
		}
	}
	for i := 0; i < conns; i++ {
		a, b := all[r.Intn(nodes)], all[r.Intn(nodes)]
		if a == b {
			continue
		}
		var opts []ConnectionOption
		if r.Intn(3) == 0 {
			opts = append(opts, Directed())
		}
		if r.Intn(12) == 0 {
			opts = append(opts, InactiveConnection())
		}
		topo.AddConnection(a, b, opts...)
	}
	return topo
}

func TestUnreachable_Soundness(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		topo := randomTopology(seed, 60, 80)
		unreachable := make(map[*Node]bool)
		for _, n := range UnreachableNodes(topo.View()) {
			unreachable[n] = true
		}
		for _, n := range topo.Nodes() {
			if n.IsEndpoint() {
				if unreachable[n] {
					t.Fatalf("seed %d: endpoint %s reported unreachable", seed, n.Name)
				}
				continue
			}
			if want := !bfsReachesEndpoint(n); unreachable[n] != want {
				t.Fatalf("seed %d: node %s unreachable=%v, independent BFS says %v", seed, n.Name, unreachable[n], want)
			}
		}
	}
}

func FuzzUnreachable(f *testing.F) {
	f.Add(int64(7), uint8(20), uint8(30))
	f.Add(int64(42), uint8(5), uint8(0))
	f.Fuzz(func(t *testing.T, seed int64, nodes, conns uint8) {
		if nodes == 0 {
			return
		}
		topo := randomTopology(seed, int(nodes), int(conns))
		v := topo.View()
		for _, n := range UnreachableNodes(v) {
			if bfsReachesEndpoint(n) {
				t.Fatalf("node %s reported unreachable but reaches an endpoint", n.Name)
			}
		}
	})
}
