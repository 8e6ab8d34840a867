package codec

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// hclFile is the top-level layout of an HCL topology:
//
//	name = "metro"
//	node "olt-1" {
//	  endpoint   = true
//	  attributes = { site = "north" }
//	}
//	connection {
//	  source = "onu-1"
//	  target = "olt-1"
//	}
type hclFile struct {
	ID          string          `hcl:"id,optional"`
	Name        string          `hcl:"name,optional"`
	Nodes       []hclNode       `hcl:"node,block"`
	Connections []hclConnection `hcl:"connection,block"`
}

type hclNode struct {
	Name       string    `hcl:"name,label"`
	Endpoint   bool      `hcl:"endpoint,optional"`
	Active     *bool     `hcl:"active,optional"`
	Weight     float64   `hcl:"weight,optional"`
	Attributes cty.Value `hcl:"attributes,optional"`
}

type hclConnection struct {
	Name     string  `hcl:"name,optional"`
	Source   string  `hcl:"source"`
	Target   string  `hcl:"target"`
	Directed bool    `hcl:"directed,optional"`
	Active   *bool   `hcl:"active,optional"`
	Weight   float64 `hcl:"weight,optional"`
}

// DecodeHCL parses an HCL topology. filename only shows up in diagnostics.
func DecodeHCL(filename string, data []byte) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	doc := &Document{ID: parsed.ID, Name: parsed.Name}
	for _, n := range parsed.Nodes {
		attrs, err := ctyToNative(n.Attributes)
		if err != nil {
			return nil, fmt.Errorf("node %q attributes: %w", n.Name, err)
		}
		spec := NodeSpec{Name: n.Name, Endpoint: n.Endpoint, Active: n.Active, Weight: n.Weight}
		if m, ok := attrs.(map[string]any); ok {
			spec.Attributes = m
		} else if attrs != nil {
			return nil, fmt.Errorf("node %q attributes must be an object", n.Name)
		}
		doc.Nodes = append(doc.Nodes, spec)
	}
	for _, c := range parsed.Connections {
		doc.Connections = append(doc.Connections, ConnectionSpec(c))
	}
	return doc, nil
}

// ctyToNative converts a cty value into plain Go values: strings, float64,
// bools, []any and map[string]any.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number: %w", err)
		}
		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, el := it.Element()
			native, err := ctyToNative(el)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, el := it.Element()
			native, err := ctyToNative(el)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}
