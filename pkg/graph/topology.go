package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Topology is the graph container: nodes, connections and the endpoints
// derived from them. It is safe for concurrent use.
type Topology struct {
	UUID uuid.UUID
	Name string

	mu         sync.RWMutex
	nodes      []*Node
	conns      []*Connection
	nodeByName map[string]*Node
	connByName map[string]*Connection
	nextNodeID uint32
	nextConnID uint32
	listeners  []Listener
}

// NewTopology creates an empty topology with a random uuid.
func NewTopology(name string) *Topology {
	return NewTopologyWithID(uuid.New(), name)
}

// NewTopologyWithID creates an empty topology with a fixed uuid, so a
// refreshed topology can replace its predecessor in a registry.
func NewTopologyWithID(id uuid.UUID, name string) *Topology {
	return &Topology{
		UUID:       id,
		Name:       name,
		nodes:      make([]*Node, 0, 64),
		conns:      make([]*Connection, 0, 64),
		nodeByName: make(map[string]*Node),
		connByName: make(map[string]*Connection),
	}
}

// AddListener registers l for structural change notifications.
func (t *Topology) AddListener(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, l)
}

// AddNode creates a node. If a node with the same name exists it is returned
// unchanged, so rebuilding a topology from the same source is idempotent.
func (t *Topology) AddNode(name string, opts ...NodeOption) *Node {
	t.mu.Lock()
	if existing, ok := t.nodeByName[name]; ok {
		t.mu.Unlock()
		return existing
	}

	t.nextNodeID++
	n := &Node{
		ID:         t.nextNodeID,
		UUID:       uuid.New(),
		Name:       name,
		Attributes: map[string]any{},
		active:     true,
		topo:       t,
	}
	for _, opt := range opts {
		opt(n)
	}
	t.nodes = append(t.nodes, n)
	t.nodeByName[name] = n
	listeners := t.listeners
	t.mu.Unlock()

	t.emit(listeners, []event{func(l Listener) { l.OnNodeAdded(t, n) }})
	return n
}

// AddConnection wires source to target and registers the connection on both
// nodes. Without an explicit name the connection is named
// "<source>.<target>"; an auto-derived name that is already taken stays on
// the connection but is not indexed again.
func (t *Topology) AddConnection(source, target *Node, opts ...ConnectionOption) (*Connection, error) {
	t.mu.Lock()
	if !t.owns(source) || !t.owns(target) {
		t.mu.Unlock()
		return nil, ErrNodeNotInTopology
	}
	if source == target {
		t.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", source.Name, ErrSelfConnection)
	}

	c := &Connection{
		UUID:   uuid.New(),
		Name:   source.Name + "." + target.Name,
		active: true,
		source: source,
		target: target,
	}
	for _, opt := range opts {
		opt(c)
	}

	_, taken := t.connByName[c.Name]
	if taken && c.explicit {
		t.mu.Unlock()
		return nil, &DuplicateNameError{Name: c.Name, Topology: t.UUID.String()}
	}

	t.nextConnID++
	c.ID = t.nextConnID
	source.connections = append(source.connections, c)
	target.connections = append(target.connections, c)
	t.conns = append(t.conns, c)
	if !taken {
		t.connByName[c.Name] = c
	}
	listeners := t.listeners
	t.mu.Unlock()

	t.emit(listeners, []event{func(l Listener) { l.OnConnectionAdded(t, c) }})
	return c, nil
}

// Disconnect severs every connection touching n on both sides and returns
// how many were removed. Disconnecting an isolated node is a no-op.
func (t *Topology) Disconnect(n *Node) int {
	t.mu.Lock()
	if !t.owns(n) {
		t.mu.Unlock()
		return 0
	}
	removed := t.disconnect(n)
	listeners := t.listeners
	t.mu.Unlock()

	events := make([]event, 0, len(removed))
	for _, c := range removed {
		c := c
		events = append(events, func(l Listener) { l.OnConnectionRemoved(t, c) })
	}
	t.emit(listeners, events)
	return len(removed)
}

// RemoveNode disconnects n and drops it from the topology.
func (t *Topology) RemoveNode(n *Node) bool {
	t.mu.Lock()
	if !t.owns(n) {
		t.mu.Unlock()
		return false
	}
	removed := t.disconnect(n)
	for i, existing := range t.nodes {
		if existing == n {
			t.nodes = append(t.nodes[:i], t.nodes[i+1:]...)
			break
		}
	}
	delete(t.nodeByName, n.Name)
	listeners := t.listeners
	t.mu.Unlock()

	events := make([]event, 0, len(removed)+1)
	for _, c := range removed {
		c := c
		events = append(events, func(l Listener) { l.OnConnectionRemoved(t, c) })
	}
	events = append(events, func(l Listener) { l.OnNodeRemoved(t, n) })
	t.emit(listeners, events)
	return true
}

// RemoveConnection severs c on both sides.
func (t *Topology) RemoveConnection(c *Connection) bool {
	t.mu.Lock()
	if c == nil || !t.owns(c.source) || !t.dropConnection(c) {
		t.mu.Unlock()
		return false
	}
	listeners := t.listeners
	t.mu.Unlock()

	t.emit(listeners, []event{func(l Listener) { l.OnConnectionRemoved(t, c) }})
	return true
}

// Destroy removes every node and connection. Listeners are not notified.
func (t *Topology) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.conns {
		c.source.connections = nil
		c.target.connections = nil
	}
	t.nodes = t.nodes[:0]
	t.conns = t.conns[:0]
	t.nodeByName = make(map[string]*Node)
	t.connByName = make(map[string]*Connection)
}

// SetNodeActive enables or disables n.
func (t *Topology) SetNodeActive(n *Node, active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n.active = active
}

// SetConnectionActive enables or disables c.
func (t *Topology) SetConnectionActive(c *Connection, active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c.active = active
}

// SetEndpoint sets or clears the explicit endpoint flag of n.
func (t *Topology) SetEndpoint(n *Node, endpoint bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n.endpoint = endpoint
}

// NodeByName looks a node up by its unique name.
func (t *Topology) NodeByName(name string) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodeByName[name]
	return n, ok
}

// ConnectionByName looks a connection up by name.
func (t *Topology) ConnectionByName(name string) (*Connection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.connByName[name]
	return c, ok
}

// Nodes returns a snapshot of all nodes in insertion order.
func (t *Topology) Nodes() []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Connections returns a snapshot of all connections in insertion order.
func (t *Topology) Connections() []*Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Connection, len(t.conns))
	copy(out, t.conns)
	return out
}

// Endpoints returns the nodes currently classified as endpoints.
func (t *Topology) Endpoints() []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*Node
	for _, n := range t.nodes {
		if n.isEndpoint() {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of nodes and connections.
func (t *Topology) Len() (nodes, connections int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes), len(t.conns)
}

// IncomingCount pairs a node with the number of connections arriving at it.
type IncomingCount struct {
	Node  *Node
	Count int
}

// TopIncoming returns the limit nodes with the most incoming connections,
// highest first. Bidirectional connections count for both sides.
func (t *Topology) TopIncoming(limit int) []IncomingCount {
	t.mu.RLock()
	counts := make([]IncomingCount, 0, len(t.nodes))
	for _, n := range t.nodes {
		in := 0
		for _, c := range n.connections {
			if !c.Directed || c.target == n {
				in++
			}
		}
		counts = append(counts, IncomingCount{Node: n, Count: in})
	}
	t.mu.RUnlock()

	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Node.ID < counts[j].Node.ID
	})
	if limit >= 0 && limit < len(counts) {
		counts = counts[:limit]
	}
	return counts
}

func (t *Topology) owns(n *Node) bool {
	if n == nil || n.topo != t {
		return false
	}
	existing, ok := t.nodeByName[n.Name]
	return ok && existing == n
}

func (t *Topology) disconnect(n *Node) []*Connection {
	removed := make([]*Connection, len(n.connections))
	copy(removed, n.connections)
	for _, c := range removed {
		t.dropConnection(c)
	}
	return removed
}

func (t *Topology) dropConnection(c *Connection) bool {
	found := false
	for i, existing := range t.conns {
		if existing == c {
			t.conns = append(t.conns[:i], t.conns[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}
	c.source.detach(c)
	c.target.detach(c)
	if indexed, ok := t.connByName[c.Name]; ok && indexed == c {
		delete(t.connByName, c.Name)
	}
	return true
}
