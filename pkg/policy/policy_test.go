package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osstelecom/topoweak/pkg/codec"
)

func metro() *codec.Document {
	return &codec.Document{
		Name: "metro",
		Nodes: []codec.NodeSpec{
			{Name: "core-1", Attributes: map[string]any{"role": "core"}},
			{Name: "agg-1", Attributes: map[string]any{"role": "aggregation", "site": "north"}},
			{Name: "onu-9", Weight: 0.5},
		},
		Connections: []codec.ConnectionSpec{
			{Source: "agg-1", Target: "core-1"},
			{Source: "onu-9", Target: "agg-1"},
		},
	}
}

func TestEngine_Apply(t *testing.T) {
	e, err := NewEngine(nil)
	require.NoError(t, err)
	require.NoError(t, e.Compile(RulesFrom(
		[]string{`has(attributes.role) && attributes.role == "core"`},
		[]string{`name.startsWith("onu-") && weight < 1.0`},
	)))
	assert.Equal(t, 2, e.Len())

	doc := metro()
	out := e.Apply(doc)
	assert.Equal(t, []string{"core-1"}, out.Endpoints)
	assert.Equal(t, []string{"onu-9"}, out.Disabled)

	assert.True(t, doc.Nodes[0].Endpoint)
	require.NotNil(t, doc.Nodes[2].Active)
	assert.False(t, *doc.Nodes[2].Active)

	// second pass changes nothing
	again := e.Apply(doc)
	assert.Empty(t, again.Endpoints)
	assert.Empty(t, again.Disabled)
}

func TestEngine_Degree(t *testing.T) {
	e, err := NewEngine(nil)
	require.NoError(t, err)
	require.NoError(t, e.Compile([]Rule{{ID: "hub", Condition: "degree >= 2", Action: ActionEndpoint}}))

	matches := e.Evaluate(map[string]any{
		"name": "x", "attributes": map[string]any{}, "degree": int64(3), "weight": 0.0, "endpoint": false,
	})
	require.Len(t, matches, 1)
	assert.Equal(t, "hub", matches[0].ID)

	out := e.Apply(metro())
	assert.Equal(t, []string{"agg-1"}, out.Endpoints)
}

func TestEngine_CompileErrors(t *testing.T) {
	e, err := NewEngine(nil)
	require.NoError(t, err)

	assert.Error(t, e.Compile([]Rule{{ID: "syntax", Condition: "name ==", Action: ActionEndpoint}}))
	assert.Error(t, e.Compile([]Rule{{ID: "not-bool", Condition: "degree + 1", Action: ActionEndpoint}}))
	assert.Error(t, e.Compile([]Rule{{ID: "undeclared", Condition: "cost > 1.0", Action: ActionEndpoint}}))
	assert.ErrorIs(t, e.Compile([]Rule{{ID: "act", Condition: "true", Action: "delete"}}), ErrUnknownAction)
	assert.Zero(t, e.Len())
}

func TestEngine_RuntimeErrorDoesNotMatch(t *testing.T) {
	e, err := NewEngine(nil)
	require.NoError(t, err)
	require.NoError(t, e.Compile([]Rule{{ID: "missing-key", Condition: `attributes.site == "north"`, Action: ActionDisable}}))

	out := e.Apply(metro())
	assert.Equal(t, []string{"agg-1"}, out.Disabled)
}

func TestEngine_ApplySeesConnectionOnlyNodes(t *testing.T) {
	e, err := NewEngine(nil)
	require.NoError(t, err)
	require.NoError(t, e.Compile(RulesFrom(
		[]string{`name.startsWith("core-")`},
		[]string{`name == "spare-2"`},
	)))

	doc := &codec.Document{
		Name: "implicit",
		Connections: []codec.ConnectionSpec{
			{Source: "olt-1", Target: "core-2"},
			{Source: "spare-2", Target: "olt-1"},
		},
	}
	out := e.Apply(doc)
	assert.Equal(t, []string{"core-2"}, out.Endpoints)
	assert.Equal(t, []string{"spare-2"}, out.Disabled)

	topo, err := doc.Build(codec.BuildOptions{})
	require.NoError(t, err)
	core, ok := topo.NodeByName("core-2")
	require.True(t, ok)
	assert.True(t, core.IsEndpoint())
	spare, ok := topo.NodeByName("spare-2")
	require.True(t, ok)
	assert.False(t, spare.IsActive())
}
