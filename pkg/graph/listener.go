package graph

import (
	"log/slog"
)

// Listener observes structural changes of a topology.
// Callbacks run after the topology lock is released.
type Listener interface {
	OnNodeAdded(t *Topology, n *Node)
	OnNodeRemoved(t *Topology, n *Node)
	OnConnectionAdded(t *Topology, c *Connection)
	OnConnectionRemoved(t *Topology, c *Connection)
}

// LogListener writes topology changes to a logger at debug level.
type LogListener struct {
	Logger *slog.Logger
}

func (l LogListener) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l LogListener) OnNodeAdded(t *Topology, n *Node) {
	l.logger().Debug("Node added", "topology", t.UUID, "node", n.Name, "id", n.ID)
}

func (l LogListener) OnNodeRemoved(t *Topology, n *Node) {
	l.logger().Debug("Node removed", "topology", t.UUID, "node", n.Name, "id", n.ID)
}

func (l LogListener) OnConnectionAdded(t *Topology, c *Connection) {
	l.logger().Debug("Connection added", "topology", t.UUID, "connection", c.Name,
		"source", c.source.Name, "target", c.target.Name, "directed", c.Directed)
}

func (l LogListener) OnConnectionRemoved(t *Topology, c *Connection) {
	l.logger().Debug("Connection removed", "topology", t.UUID, "connection", c.Name)
}

type event func(Listener)

func (t *Topology) emit(listeners []Listener, events []event) {
	for _, l := range listeners {
		for _, ev := range events {
			ev(l)
		}
	}
}
