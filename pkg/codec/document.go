// Package codec turns topology documents (YAML/JSON, Graphviz DOT, HCL)
// into graph topologies.
package codec

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/osstelecom/topoweak/pkg/graph"
)

// Document is the format-neutral description of a topology.
type Document struct {
	ID          string           `yaml:"id,omitempty" json:"id,omitempty"`
	Name        string           `yaml:"name" json:"name"`
	Nodes       []NodeSpec       `yaml:"nodes" json:"nodes"`
	Connections []ConnectionSpec `yaml:"connections" json:"connections"`
}

type NodeSpec struct {
	Name       string         `yaml:"name" json:"name"`
	Endpoint   bool           `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Active     *bool          `yaml:"active,omitempty" json:"active,omitempty"`
	Weight     float64        `yaml:"weight,omitempty" json:"weight,omitempty"`
	Attributes map[string]any `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

type ConnectionSpec struct {
	Name     string  `yaml:"name,omitempty" json:"name,omitempty"`
	Source   string  `yaml:"source" json:"source"`
	Target   string  `yaml:"target" json:"target"`
	Directed bool    `yaml:"directed,omitempty" json:"directed,omitempty"`
	Active   *bool   `yaml:"active,omitempty" json:"active,omitempty"`
	Weight   float64 `yaml:"weight,omitempty" json:"weight,omitempty"`
}

// BuildOptions adjust a document while it is turned into a topology.
type BuildOptions struct {
	// ID pins the topology uuid. When zero the document id is used, and
	// failing that a random uuid.
	ID uuid.UUID
	// Endpoints names nodes to flag as endpoints.
	Endpoints []string
	// Disabled names nodes or connections to create inactive.
	Disabled []string
	Logger   *slog.Logger
}

// Build creates the topology described by d. Connections may reference
// nodes that are not declared; they are created on the fly.
func (d *Document) Build(opts BuildOptions) (*graph.Topology, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := opts.ID
	if id == uuid.Nil && d.ID != "" {
		parsed, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, fmt.Errorf("topology %q: invalid id: %w", d.Name, err)
		}
		id = parsed
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	t := graph.NewTopologyWithID(id, d.Name)

	endpoints := toSet(opts.Endpoints)
	disabled := toSet(opts.Disabled)

	for _, ns := range d.Nodes {
		if ns.Name == "" {
			return nil, fmt.Errorf("topology %q: node without a name", d.Name)
		}
		n := t.AddNode(ns.Name, graph.Attributes(ns.Attributes), graph.NodeWeight(ns.Weight))
		if ns.Endpoint || endpoints[ns.Name] {
			t.SetEndpoint(n, true)
		}
		if (ns.Active != nil && !*ns.Active) || disabled[ns.Name] {
			t.SetNodeActive(n, false)
		}
	}

	for _, cs := range d.Connections {
		if cs.Source == "" || cs.Target == "" {
			return nil, fmt.Errorf("topology %q: connection %q needs a source and a target", d.Name, cs.Name)
		}
		src := ensureNode(t, cs.Source, endpoints, disabled)
		dst := ensureNode(t, cs.Target, endpoints, disabled)

		copts := []graph.ConnectionOption{graph.ConnectionName(cs.Name), graph.ConnectionWeight(cs.Weight)}
		if cs.Directed {
			copts = append(copts, graph.Directed())
		}
		c, err := t.AddConnection(src, dst, copts...)
		if err != nil {
			return nil, fmt.Errorf("topology %q: %w", d.Name, err)
		}
		if (cs.Active != nil && !*cs.Active) || disabled[c.Name] {
			t.SetConnectionActive(c, false)
		}
	}

	for name := range endpoints {
		if _, ok := t.NodeByName(name); !ok {
			logger.Warn("Endpoint not found in topology", "topology", d.Name, "node", name)
		}
	}
	for name := range disabled {
		_, isNode := t.NodeByName(name)
		_, isConn := t.ConnectionByName(name)
		if !isNode && !isConn {
			logger.Warn("Disabled object not found in topology", "topology", d.Name, "name", name)
		}
	}
	return t, nil
}

// DeclareImplicitNodes appends a bare NodeSpec for every node that only
// appears in a connection, in order of first reference, and returns their
// names. Rules that walk d.Nodes see every node of the topology afterwards.
func (d *Document) DeclareImplicitNodes() []string {
	declared := make(map[string]bool, len(d.Nodes))
	for _, ns := range d.Nodes {
		declared[ns.Name] = true
	}
	var added []string
	for _, cs := range d.Connections {
		for _, name := range []string{cs.Source, cs.Target} {
			if name == "" || declared[name] {
				continue
			}
			declared[name] = true
			d.Nodes = append(d.Nodes, NodeSpec{Name: name})
			added = append(added, name)
		}
	}
	return added
}

func ensureNode(t *graph.Topology, name string, endpoints, disabled map[string]bool) *graph.Node {
	if n, ok := t.NodeByName(name); ok {
		return n
	}
	n := t.AddNode(name)
	if endpoints[name] {
		t.SetEndpoint(n, true)
	}
	if disabled[name] {
		t.SetNodeActive(n, false)
	}
	return n
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = true
		}
	}
	return set
}

// Degree returns the number of connections naming node in the document.
func (d *Document) Degree(node string) int {
	n := 0
	for _, c := range d.Connections {
		if c.Source == node {
			n++
		}
		if c.Target == node {
			n++
		}
	}
	return n
}
