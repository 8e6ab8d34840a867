package graph

import (
	"fmt"
)

// MockFactory builds topology scenarios for tests.
type MockFactory struct {
	Topology *Topology
}

func NewMockFactory(name string) *MockFactory {
	return &MockFactory{Topology: NewTopology(name)}
}

// Node adds (or returns) a plain node.
func (m *MockFactory) Node(name string) *Node {
	return m.Topology.AddNode(name)
}

// Endpoint adds a node flagged as endpoint.
func (m *MockFactory) Endpoint(name string) *Node {
	n := m.Topology.AddNode(name, Endpoint())
	m.Topology.SetEndpoint(n, true)
	return n
}

// Link connects two named nodes, creating them when missing. It panics on
// error since fixtures are expected to be well formed.
func (m *MockFactory) Link(source, target string, opts ...ConnectionOption) *Connection {
	c, err := m.Topology.AddConnection(m.Node(source), m.Node(target), opts...)
	if err != nil {
		panic(fmt.Sprintf("mock link %s-%s: %v", source, target, err))
	}
	return c
}

// Chain links names in order with bidirectional connections.
func (m *MockFactory) Chain(names ...string) {
	for i := 1; i < len(names); i++ {
		m.Link(names[i-1], names[i])
	}
}

// Diamond builds src-{left,right}-dst with dst as endpoint: exactly two
// node-disjoint paths between src and dst.
func (m *MockFactory) Diamond(src, left, right, dst string) {
	m.Endpoint(dst)
	m.Link(src, left)
	m.Link(src, right)
	m.Link(left, dst)
	m.Link(right, dst)
}

// Ring links prefix-0 .. prefix-(n-1) in a cycle.
func (m *MockFactory) Ring(prefix string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	m.Chain(names...)
	if n > 2 {
		m.Link(names[n-1], names[0])
	}
	return names
}

// Must looks up a node that the fixture created.
func (m *MockFactory) Must(name string) *Node {
	n, ok := m.Topology.NodeByName(name)
	if !ok {
		panic("mock node not found: " + name)
	}
	return n
}
