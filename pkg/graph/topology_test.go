package graph

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddConnection_RegistersBothSides(t *testing.T) {
	topo := NewTopology("t")
	a := topo.AddNode("A")
	b := topo.AddNode("B")

	c, err := topo.AddConnection(a, b)
	require.NoError(t, err)

	assert.Equal(t, "A.B", c.Name)
	assert.Equal(t, []*Connection{c}, a.Connections())
	assert.Equal(t, []*Connection{c}, b.Connections())
	assert.True(t, c.IsRelatedTo(a))
	assert.True(t, c.IsRelatedTo(b))
	assert.Same(t, b, c.Other(a))

	byName, ok := topo.ConnectionByName("A.B")
	require.True(t, ok)
	assert.Same(t, c, byName)
}

func TestAddConnection_DuplicateExplicitName(t *testing.T) {
	topo := NewTopology("t")
	a, b, c := topo.AddNode("A"), topo.AddNode("B"), topo.AddNode("C")

	_, err := topo.AddConnection(a, b, ConnectionName("trunk-1"))
	require.NoError(t, err)

	_, err = topo.AddConnection(b, c, ConnectionName("trunk-1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateName))

	var dup *DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "trunk-1", dup.Name)

	// the failed call must not leave half a connection behind
	assert.Equal(t, 1, b.ConnectionCount())
	assert.Equal(t, 0, c.ConnectionCount())
}

func TestAddConnection_ParallelAutoNames(t *testing.T) {
	topo := NewTopology("t")
	a, b := topo.AddNode("A"), topo.AddNode("B")

	first, err := topo.AddConnection(a, b)
	require.NoError(t, err)
	second, err := topo.AddConnection(a, b)
	require.NoError(t, err)

	assert.Equal(t, first.Name, second.Name)
	indexed, _ := topo.ConnectionByName("A.B")
	assert.Same(t, first, indexed)
	assert.Equal(t, 2, a.ConnectionCount())
}

func TestAddConnection_Rejects(t *testing.T) {
	topo := NewTopology("t")
	other := NewTopology("other")
	a := topo.AddNode("A")
	foreign := other.AddNode("X")

	_, err := topo.AddConnection(a, foreign)
	assert.ErrorIs(t, err, ErrNodeNotInTopology)

	_, err = topo.AddConnection(a, a)
	assert.ErrorIs(t, err, ErrSelfConnection)
}

func TestAddNode_ExistingNameIsKept(t *testing.T) {
	topo := NewTopology("t")
	first := topo.AddNode("A", NodeWeight(3))
	again := topo.AddNode("A", NodeWeight(9), Endpoint())

	assert.Same(t, first, again)
	assert.Equal(t, 3.0, again.Weight)
	assert.False(t, again.IsEndpoint())
	n, _ := topo.Len()
	assert.Equal(t, 1, n)
}

func TestDisconnect(t *testing.T) {
	m := NewMockFactory("t")
	m.Chain("A", "B", "C")
	m.Link("B", "D")
	b := m.Must("B")

	removed := m.Topology.Disconnect(b)
	assert.Equal(t, 3, removed)

	for _, c := range m.Topology.Connections() {
		assert.False(t, c.IsRelatedTo(b), "connection %s still references B", c.Name)
	}
	for _, n := range m.Topology.Nodes() {
		for _, c := range n.Connections() {
			assert.False(t, c.IsRelatedTo(b), "node %s still holds %s", n.Name, c.Name)
		}
	}

	// idempotent
	assert.Equal(t, 0, m.Topology.Disconnect(b))
	assert.Equal(t, 0, b.ConnectionCount())
}

func TestRemoveNodeAndConnection(t *testing.T) {
	m := NewMockFactory("t")
	m.Chain("A", "B", "C")
	ab, _ := m.Topology.ConnectionByName("A.B")

	require.True(t, m.Topology.RemoveConnection(ab))
	assert.False(t, m.Topology.RemoveConnection(ab))
	_, ok := m.Topology.ConnectionByName("A.B")
	assert.False(t, ok)

	require.True(t, m.Topology.RemoveNode(m.Must("C")))
	_, ok = m.Topology.NodeByName("C")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Must("B").ConnectionCount())

	m.Topology.Destroy()
	nodes, conns := m.Topology.Len()
	assert.Zero(t, nodes)
	assert.Zero(t, conns)
}

func TestEndpointClassification(t *testing.T) {
	topo := NewTopology("t")
	a, b, c := topo.AddNode("A"), topo.AddNode("B"), topo.AddNode("C")
	flagged := topo.AddNode("F", Endpoint())
	isolated := topo.AddNode("I")

	_, err := topo.AddConnection(a, b, Directed())
	require.NoError(t, err)
	_, err = topo.AddConnection(b, c, Directed())
	require.NoError(t, err)

	assert.False(t, a.IsEndpoint())
	assert.False(t, b.IsEndpoint())
	assert.True(t, c.IsEndpoint(), "directed sink is an endpoint")
	assert.True(t, flagged.IsEndpoint())
	assert.False(t, isolated.IsEndpoint())

	// a bidirectional link gives C somewhere to go
	_, err = topo.AddConnection(c, isolated)
	require.NoError(t, err)
	assert.False(t, c.IsEndpoint())

	assert.ElementsMatch(t, []*Node{flagged}, topo.Endpoints())
}

func TestTopIncoming(t *testing.T) {
	topo := NewTopology("t")
	hub := topo.AddNode("hub")
	for _, name := range []string{"a", "b", "c"} {
		_, err := topo.AddConnection(topo.AddNode(name), hub, Directed())
		require.NoError(t, err)
	}
	_, err := topo.AddConnection(topo.AddNode("d"), topo.AddNode("e"))
	require.NoError(t, err)

	top := topo.TopIncoming(2)
	require.Len(t, top, 2)
	assert.Equal(t, "hub", top[0].Node.Name)
	assert.Equal(t, 3, top[0].Count)
	assert.Equal(t, 1, top[1].Count)
}

type recordingListener struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingListener) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recordingListener) OnNodeAdded(_ *Topology, n *Node)         { r.add("+n " + n.Name) }
func (r *recordingListener) OnNodeRemoved(_ *Topology, n *Node)       { r.add("-n " + n.Name) }
func (r *recordingListener) OnConnectionAdded(_ *Topology, c *Connection) {
	r.add("+c " + c.Name)
}
func (r *recordingListener) OnConnectionRemoved(_ *Topology, c *Connection) {
	r.add("-c " + c.Name)
}

func TestListenerEvents(t *testing.T) {
	topo := NewTopology("t")
	rec := &recordingListener{}
	topo.AddListener(rec)

	a, b := topo.AddNode("A"), topo.AddNode("B")
	_, err := topo.AddConnection(a, b)
	require.NoError(t, err)
	topo.RemoveNode(a)

	assert.Equal(t, []string{"+n A", "+n B", "+c A.B", "-c A.B", "-n A"}, rec.events)
}

func TestViewSnapshot(t *testing.T) {
	m := NewMockFactory("t")
	m.Chain("A", "B")
	m.Link("B", "C", Directed())
	m.Link("C", "D", InactiveConnection())
	m.Node("E")
	m.Topology.SetNodeActive(m.Must("E"), false)

	v := m.Topology.View()
	require.Equal(t, 5, v.Len())

	iA, _ := v.Index(m.Must("A"))
	iB, _ := v.Index(m.Must("B"))
	iC, _ := v.Index(m.Must("C"))
	iD, _ := v.Index(m.Must("D"))
	iE, _ := v.Index(m.Must("E"))

	assert.Len(t, v.Out[iA], 1)
	assert.Len(t, v.Out[iB], 2, "B reaches A and C")
	assert.Len(t, v.Out[iC], 0, "directed B->C has no way back and C-D is inactive")
	assert.Equal(t, 2, v.Degree[iC], "degree counts inactive connections")
	assert.True(t, v.SameComponent(iA, iC))
	assert.False(t, v.SameComponent(iC, iD))
	assert.Equal(t, -1, v.Component[iE])

	// the snapshot does not follow later changes
	m.Topology.SetNodeActive(m.Must("A"), false)
	assert.True(t, v.Active[iA])
}

func TestConnection_LeadsToEndpoint(t *testing.T) {
	topo := NewTopology("t")
	a, b := topo.AddNode("A"), topo.AddNode("B")
	core := topo.AddNode("CORE", Endpoint())

	up, err := topo.AddConnection(a, core)
	require.NoError(t, err)
	down, err := topo.AddConnection(core, b)
	require.NoError(t, err)
	oneWay, err := topo.AddConnection(core, a, Directed())
	require.NoError(t, err)
	side, err := topo.AddConnection(a, b)
	require.NoError(t, err)

	assert.True(t, up.LeadsToEndpoint())
	assert.True(t, down.LeadsToEndpoint(), "bidirectional link back to the endpoint")
	assert.False(t, oneWay.LeadsToEndpoint(), "directed away from the endpoint")
	assert.False(t, side.LeadsToEndpoint())

	topo.SetEndpoint(b, true)
	assert.True(t, side.LeadsToEndpoint())
}
