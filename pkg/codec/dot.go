package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/awalterschulze/gographviz"
)

// DecodeDOT reads a Graphviz graph. A digraph yields directed connections.
// Only standard Graphviz attributes are accepted:
//
//	shape=doublecircle    endpoint node
//	style=dashed|invis    inactive node or connection
//	label                 connection name
//	weight                node or connection weight
func DecodeDOT(data []byte) (*Document, error) {
	ast, err := gographviz.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse dot graph: %w", err)
	}
	g := gographviz.NewGraph()
	if err := gographviz.Analyse(ast, g); err != nil {
		return nil, fmt.Errorf("failed to analyse dot graph: %w", err)
	}

	doc := &Document{Name: unquote(g.Name)}
	for _, n := range g.Nodes.Nodes {
		spec := NodeSpec{Name: unquote(n.Name)}
		if unquote(n.Attrs[gographviz.Shape]) == "doublecircle" {
			spec.Endpoint = true
		}
		if hiddenStyle(n.Attrs) {
			spec.Active = boolPtr(false)
		}
		w, err := dotWeight(n.Attrs)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", spec.Name, err)
		}
		spec.Weight = w
		doc.Nodes = append(doc.Nodes, spec)
	}

	for _, e := range g.Edges.Edges {
		spec := ConnectionSpec{
			Name:     unquote(e.Attrs[gographviz.Label]),
			Source:   unquote(e.Src),
			Target:   unquote(e.Dst),
			Directed: g.Directed,
		}
		if hiddenStyle(e.Attrs) {
			spec.Active = boolPtr(false)
		}
		w, err := dotWeight(e.Attrs)
		if err != nil {
			return nil, fmt.Errorf("edge %s -> %s: %w", spec.Source, spec.Target, err)
		}
		spec.Weight = w
		doc.Connections = append(doc.Connections, spec)
	}
	return doc, nil
}

func hiddenStyle(attrs gographviz.Attrs) bool {
	for _, s := range strings.Split(unquote(attrs[gographviz.Style]), ",") {
		switch strings.TrimSpace(s) {
		case "dashed", "invis":
			return true
		}
	}
	return false
}

func dotWeight(attrs gographviz.Attrs) (float64, error) {
	raw := unquote(attrs[gographviz.Weight])
	if raw == "" {
		return 0, nil
	}
	w, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid weight %q", raw)
	}
	return w, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	}
	return s
}

func boolPtr(b bool) *bool { return &b }
