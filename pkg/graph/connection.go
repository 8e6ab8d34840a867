package graph

import (
	"github.com/google/uuid"
)

// Connection joins exactly two nodes of the same topology.
// A connection that is not Directed can be traversed both ways.
type Connection struct {
	ID       uint32
	UUID     uuid.UUID
	Name     string
	Directed bool
	Weight   float64
	Payload  any

	active   bool
	explicit bool
	source   *Node
	target   *Node
}

// ConnectionOption customises a connection created by Topology.AddConnection.
type ConnectionOption func(*Connection)

// ConnectionName sets an explicit name. Explicit names must be unique.
func ConnectionName(name string) ConnectionOption {
	return func(c *Connection) {
		if name != "" {
			c.Name = name
			c.explicit = true
		}
	}
}

// Directed makes the connection one-way, from source to target.
func Directed() ConnectionOption {
	return func(c *Connection) { c.Directed = true }
}

// ConnectionWeight sets the connection's weight.
func ConnectionWeight(w float64) ConnectionOption {
	return func(c *Connection) { c.Weight = w }
}

// Payload attaches an opaque value to the connection.
func Payload(p any) ConnectionOption {
	return func(c *Connection) { c.Payload = p }
}

// InactiveConnection creates the connection disabled.
func InactiveConnection() ConnectionOption {
	return func(c *Connection) { c.active = false }
}

// Source returns the node the connection starts at.
func (c *Connection) Source() *Node { return c.source }

// Target returns the node the connection ends at.
func (c *Connection) Target() *Node { return c.target }

// IsRelatedTo reports whether n is the source or the target of c.
func (c *Connection) IsRelatedTo(n *Node) bool {
	return n != nil && (c.source == n || c.target == n)
}

// Other returns the opposite side of c from n, or nil if c does not touch n.
func (c *Connection) Other(n *Node) *Node {
	switch n {
	case c.source:
		return c.target
	case c.target:
		return c.source
	}
	return nil
}

// IsActive reports whether the connection takes part in traversals.
func (c *Connection) IsActive() bool {
	c.source.topo.mu.RLock()
	defer c.source.topo.mu.RUnlock()
	return c.active
}

// LeadsToEndpoint reports whether following c can step onto an endpoint:
// its target is one, or it is bidirectional and its source is one.
func (c *Connection) LeadsToEndpoint() bool {
	c.source.topo.mu.RLock()
	defer c.source.topo.mu.RUnlock()
	if c.target.isEndpoint() {
		return true
	}
	return !c.Directed && c.source.isEndpoint()
}

func (c *Connection) String() string {
	return c.Name
}
