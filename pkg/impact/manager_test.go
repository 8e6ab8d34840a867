package impact

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osstelecom/topoweak/pkg/algorithm"
	"github.com/osstelecom/topoweak/pkg/graph"
)

func params(limit int) Params {
	p := DefaultParams()
	p.ConnectionLimit = limit
	return p
}

func names(nodes []*graph.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func TestWeakNodes_ChainScenario(t *testing.T) {
	m := graph.NewMockFactory("abc")
	m.Chain("A", "B", "C")
	m.Endpoint("C")

	r, err := NewManager(nil).WeakNodes(context.Background(), m.Topology, params(2))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, names(r.Weak))
	assert.Equal(t, []string{"A"}, names(r.BelowFloor))
	assert.Empty(t, r.Unreachable)
	assert.False(t, r.IsWeak(m.Must("C")))
}

func TestWeakNodes_IsolatedNodeIsAlwaysWeak(t *testing.T) {
	m := graph.NewMockFactory("isolated")
	m.Diamond("S", "L", "R", "E")
	m.Node("D")

	for _, limit := range []int{0, 1, 2, 5} {
		r, err := NewManager(nil).WeakNodes(context.Background(), m.Topology, params(limit))
		require.NoError(t, err)
		assert.Contains(t, names(r.Unreachable), "D", "limit %d", limit)
		assert.True(t, r.IsWeak(m.Must("D")), "limit %d", limit)
	}
}

func TestWeakNodes_Diamond(t *testing.T) {
	m := graph.NewMockFactory("diamond")
	m.Diamond("S", "L", "R", "E")
	src := m.Must("S")

	r, err := NewManager(nil).WeakNodes(context.Background(), m.Topology, params(1))
	require.NoError(t, err)
	assert.False(t, r.IsWeak(src))
	assert.Empty(t, r.Weak)

	r, err = NewManager(nil).WeakNodes(context.Background(), m.Topology, params(3))
	require.NoError(t, err)
	assert.True(t, r.IsWeak(src))
}

func TestWeakNodes_AlgorithmDecides(t *testing.T) {
	// S has three connections but every route crosses M.
	m := graph.NewMockFactory("cut")
	m.Endpoint("E")
	m.Link("S", "A")
	m.Link("S", "B")
	m.Link("S", "C")
	m.Link("A", "M")
	m.Link("B", "M")
	m.Link("C", "M")
	m.Link("M", "E")
	m.Link("M", "E")

	p := params(2)
	r, err := NewManager(nil).WeakNodes(context.Background(), m.Topology, p)
	require.NoError(t, err)
	assert.True(t, r.IsWeak(m.Must("S")))
	assert.False(t, r.IsWeak(m.Must("M")), "M has two parallel links to E")
	assert.Empty(t, r.BelowFloor)

	p.Strategy = algorithm.EdgeDisjoint
	r, err = NewManager(nil).WeakNodes(context.Background(), m.Topology, p)
	require.NoError(t, err)
	assert.False(t, r.IsWeak(m.Must("S")), "connection-disjoint routes exist")
}

func TestWeakNodes_NoEndpoints(t *testing.T) {
	m := graph.NewMockFactory("no-exit")
	m.Ring("r", 5)

	r, err := NewManager(nil).WeakNodes(context.Background(), m.Topology, params(1))
	require.NoError(t, err)
	assert.Len(t, r.Weak, 5)
	assert.Zero(t, r.Jobs)
}

func TestWeakNodes_EmptyTopology(t *testing.T) {
	r, err := NewManager(nil).WeakNodes(context.Background(), graph.NewTopology("empty"), params(2))
	require.NoError(t, err)
	assert.Empty(t, r.Weak)
	assert.Zero(t, r.Jobs)
}

func TestWeakNodes_InvalidParams(t *testing.T) {
	topo := graph.NewTopology("t")
	cases := []Params{
		{ConnectionLimit: -1, Workers: 1},
		{ConnectionLimit: 1, Workers: 0},
		{ConnectionLimit: 1, Workers: 1, Strategy: "astrology"},
	}
	for _, p := range cases {
		_, err := NewManager(nil).WeakNodes(context.Background(), topo, p)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidParameter)
		var ipe *InvalidParameterError
		assert.ErrorAs(t, err, &ipe)
	}
}

func TestWeakNodes_Subset(t *testing.T) {
	m := graph.NewMockFactory("subset")
	m.Chain("A", "B", "C")
	m.Endpoint("C")
	m.Node("D")

	p := params(2)
	p.Nodes = []*graph.Node{m.Must("B")}
	r, err := NewManager(nil).WeakNodes(context.Background(), m.Topology, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, names(r.Weak))
	assert.Equal(t, 1, r.Jobs)
}

func TestWeakNodes_Exhaustive(t *testing.T) {
	// A - B - C(endpoint) and D - B : B carries A and D.
	m := graph.NewMockFactory("exhaustive")
	m.Chain("A", "B", "C")
	m.Link("D", "B")
	m.Endpoint("C")

	p := params(2)
	p.Exhaustive = true
	r, err := NewManager(nil).WeakNodes(context.Background(), m.Topology, p)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "D"}, names(r.Weak))
	assert.Equal(t, []string{"A", "D"}, names(r.Impact[m.Must("B")]))
	assert.Equal(t, []string{"A", "D"}, names(r.Impacted))
	_, leaf := r.Impact[m.Must("A")]
	assert.False(t, leaf)
}

func TestWeakNodes_Cancelled(t *testing.T) {
	m := graph.NewMockFactory("cancel")
	m.Diamond("S", "L", "R", "E")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := NewManager(nil).WeakNodes(ctx, m.Topology, params(1))
	assert.Nil(t, r)
	assert.ErrorIs(t, err, algorithm.ErrRunIncomplete)
}

func randomTopology(seed int64, nodes, conns int) *graph.Topology {
	r := rand.New(rand.NewSource(seed))
	topo := graph.NewTopology(fmt.Sprintf("random-%d", seed))
	all := make([]*graph.Node, nodes)
	for i := range all {
		var opts []graph.NodeOption
		if r.Intn(8) == 0 {
			opts = append(opts, graph.Endpoint())
		}
		all[i] = topo.AddNode(fmt.Sprintf("n%d", i), opts...)
	}
	for i := 0; i < conns; i++ {
		a, b := all[r.Intn(nodes)], all[r.Intn(nodes)]
		if a == b {
			continue
		}
		var opts []graph.ConnectionOption
		if r.Intn(4) == 0 {
			opts = append(opts, graph.Directed())
		}
		topo.AddConnection(a, b, opts...)
	}
	return topo
}

func TestWeakNodes_Monotonic(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		topo := randomTopology(seed, 40, 90)
		var previous map[*graph.Node]bool
		for limit := 0; limit <= 5; limit++ {
			r, err := NewManager(nil).WeakNodes(context.Background(), topo, params(limit))
			require.NoError(t, err)

			current := make(map[*graph.Node]bool)
			for _, n := range r.Weak {
				assert.False(t, current[n], "seed %d limit %d: %s listed twice", seed, limit, n.Name)
				current[n] = true
				assert.False(t, n.IsEndpoint(), "endpoint %s reported weak", n.Name)
			}
			for n := range previous {
				assert.True(t, current[n], "seed %d: %s weak at limit %d but not at %d", seed, n.Name, limit-1, limit)
			}
			previous = current
		}
	}
}

func TestWeakNodes_ResultIndependentOfWorkers(t *testing.T) {
	topo := randomTopology(99, 60, 150)
	var baseline []string
	for _, workers := range []int{1, 3, 8} {
		p := params(2)
		p.Workers = workers
		r, err := NewManager(nil).WeakNodes(context.Background(), topo, p)
		require.NoError(t, err)
		if baseline == nil {
			baseline = names(r.Weak)
			continue
		}
		assert.Equal(t, baseline, names(r.Weak), "workers %d", workers)
	}
}

func TestWeakNodes_LargeTopology(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large topology in short mode")
	}
	topo := randomTopology(2024, 3000, 9000)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	p := params(2)
	p.Workers = 8
	r, err := NewManager(nil).WeakNodes(ctx, topo, p)
	require.NoError(t, err)
	assert.Positive(t, r.Jobs)
}

func TestWeakNodes_UnverifiedButResilient(t *testing.T) {
	const halfFlaky algorithm.Strategy = "test-half-flaky"
	algorithm.Register(halfFlaky, func(v *graph.View) algorithm.PathCounter {
		return func(s, t, limit int) (int, error) {
			if v.Nodes[t].Name == "E1" {
				return 0, fmt.Errorf("solver gave up")
			}
			return limit, nil
		}
	})

	m := graph.NewMockFactory("half-flaky")
	m.Endpoint("E1")
	m.Endpoint("E2")
	m.Link("S", "E1")
	m.Link("S", "E2")

	p := params(2)
	p.Strategy = halfFlaky
	r, err := NewManager(nil).WeakNodes(context.Background(), m.Topology, p)
	require.NoError(t, err)

	assert.Equal(t, []string{"S"}, names(r.Unverified))
	assert.False(t, r.IsWeak(m.Must("S")), "E2 proved S resilient")
	assert.Equal(t, 1, r.FailedJobs)
}
