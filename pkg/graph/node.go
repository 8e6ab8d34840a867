package graph

import (
	"github.com/google/uuid"
)

// Node is a vertex of a Topology.
// ID, UUID and Name never change after creation. Everything else is guarded
// by the owning topology's lock and must be changed through the topology.
type Node struct {
	ID         uint32
	UUID       uuid.UUID
	Name       string
	Attributes map[string]any
	Weight     float64

	active      bool
	endpoint    bool
	connections []*Connection
	topo        *Topology
}

// NodeOption customises a node created by Topology.AddNode.
type NodeOption func(*Node)

// Endpoint flags the node as an exit point of the network.
func Endpoint() NodeOption {
	return func(n *Node) { n.endpoint = true }
}

// Attributes sets the node's attribute map.
func Attributes(attrs map[string]any) NodeOption {
	return func(n *Node) {
		if attrs != nil {
			n.Attributes = attrs
		}
	}
}

// NodeWeight sets the node's weight.
func NodeWeight(w float64) NodeOption {
	return func(n *Node) { n.Weight = w }
}

// InactiveNode creates the node disabled.
func InactiveNode() NodeOption {
	return func(n *Node) { n.active = false }
}

// NodeUUID pins the node's uuid instead of generating one.
func NodeUUID(id uuid.UUID) NodeOption {
	return func(n *Node) { n.UUID = id }
}

// IsActive reports whether the node takes part in traversals.
func (n *Node) IsActive() bool {
	n.topo.mu.RLock()
	defer n.topo.mu.RUnlock()
	return n.active
}

// IsEndpoint reports whether the node is classified as an endpoint.
func (n *Node) IsEndpoint() bool {
	n.topo.mu.RLock()
	defer n.topo.mu.RUnlock()
	return n.isEndpoint()
}

// ConnectionCount returns the number of connections the node takes part in,
// regardless of their state.
func (n *Node) ConnectionCount() int {
	n.topo.mu.RLock()
	defer n.topo.mu.RUnlock()
	return len(n.connections)
}

// Connections returns a copy of the node's connections in insertion order.
func (n *Node) Connections() []*Connection {
	n.topo.mu.RLock()
	defer n.topo.mu.RUnlock()
	out := make([]*Connection, len(n.connections))
	copy(out, n.connections)
	return out
}

func (n *Node) String() string {
	return n.Name
}

// isEndpoint: explicitly flagged, or a sink that only receives directed
// connections and has nowhere further to go.
func (n *Node) isEndpoint() bool {
	if n.endpoint {
		return true
	}
	incoming := false
	for _, c := range n.connections {
		if !c.Directed {
			return false
		}
		if c.source == n {
			return false
		}
		incoming = true
	}
	return incoming
}

func (n *Node) detach(c *Connection) {
	for i, existing := range n.connections {
		if existing == c {
			n.connections = append(n.connections[:i], n.connections[i+1:]...)
			return
		}
	}
}
