package rank

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citeseek/citeseek/internal/corpus"
)

func defaultOptions() Options {
	return Options{Damping: 0.85, MaxIter: 100, Tolerance: 1e-6}
}

func TestComputeCycleIsUniform(t *testing.T) {
	g := NewGraph()
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	g.AddEdge(3, 1)

	result, err := Compute(g, defaultOptions())
	require.NoError(t, err)
	assert.True(t, result.Converged)

	for id := corpus.DocID(1); id <= 3; id++ {
		assert.InDelta(t, 1.0/3.0, result.Ranks[id], 1e-6, "doc %d", id)
	}
}

func TestComputeMassConservation(t *testing.T) {
	g := NewGraph()
	g.AddEdge(1, 2)
	g.AddEdge(1, 3)
	g.AddEdge(2, 3)
	g.AddNode(4) // dangling and unreferenced

	result, err := Compute(g, defaultOptions())
	require.NoError(t, err)

	sum := 0.0
	for _, score := range result.Ranks {
		sum += score
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestComputeDanglingNodeKeepsRank(t *testing.T) {
	// Node 2 has no out-links; its mass must flow back into the graph
	// instead of draining away.
	g := NewGraph()
	g.AddEdge(1, 2)

	result, err := Compute(g, defaultOptions())
	require.NoError(t, err)
	assert.True(t, result.Converged)

	assert.Greater(t, result.Ranks[2], result.Ranks[1])
	assert.Greater(t, result.Ranks[1], 0.0)
}

func TestComputeAuthorityOrdering(t *testing.T) {
	// Everyone points at 1; it must outrank the others.
	g := NewGraph()
	g.AddEdge(2, 1)
	g.AddEdge(3, 1)
	g.AddEdge(4, 1)
	g.AddEdge(1, 2)

	result, err := Compute(g, defaultOptions())
	require.NoError(t, err)

	assert.Greater(t, result.Ranks[1], result.Ranks[2])
	assert.Greater(t, result.Ranks[2], result.Ranks[3])
	assert.InDelta(t, result.Ranks[3], result.Ranks[4], 1e-9)
}

func TestComputeBudgetExhaustionIsNotAnError(t *testing.T) {
	g := NewGraph()
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	g.AddEdge(3, 1)

	result, err := Compute(g, Options{Damping: 0.85, MaxIter: 1, Tolerance: 1e-12})
	require.NoError(t, err)

	assert.False(t, result.Converged)
	assert.Equal(t, 1, result.Iterations)
	assert.Greater(t, result.Delta, 1e-12)
	assert.Len(t, result.Ranks, 3)
}

func TestComputeEmptyGraph(t *testing.T) {
	result, err := Compute(NewGraph(), defaultOptions())
	require.NoError(t, err)
	assert.True(t, result.Converged)
	assert.Empty(t, result.Ranks)
}

func TestComputeRejectsBadOptions(t *testing.T) {
	g := NewGraph()
	g.AddEdge(1, 2)

	for _, opts := range []Options{
		{Damping: 0, MaxIter: 10, Tolerance: 1e-6},
		{Damping: 1, MaxIter: 10, Tolerance: 1e-6},
		{Damping: 0.85, MaxIter: 0, Tolerance: 1e-6},
		{Damping: 0.85, MaxIter: 10, Tolerance: 0},
	} {
		_, err := Compute(g, opts)
		assert.Error(t, err, "options %+v", opts)
	}
}

func TestGraphCollapsesSelfLoopsAndDuplicates(t *testing.T) {
	g := NewGraph()
	g.AddEdge(1, 1)
	g.AddEdge(1, 2)
	g.AddEdge(1, 2)

	assert.Equal(t, 1, g.OutDegree(1))
	assert.Equal(t, []corpus.DocID{1, 2}, g.Nodes())
}

func TestGraphRegistersEdgeTargets(t *testing.T) {
	g := NewGraph()
	g.AddEdge(10, 20)

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 0, g.OutDegree(20))
}

func TestNormalizedMinMax(t *testing.T) {
	v := Vector{1: 0.2, 2: 0.5, 3: 0.8}
	n := v.Normalized()

	assert.InDelta(t, 0.0, n[1], 1e-12)
	assert.InDelta(t, 0.5, n[2], 1e-12)
	assert.InDelta(t, 1.0, n[3], 1e-12)
}

func TestNormalizedAllEqual(t *testing.T) {
	v := Vector{1: 0.25, 2: 0.25, 3: 0.25, 4: 0.25}
	for _, score := range v.Normalized() {
		assert.Equal(t, 1.0, score)
	}
}

func TestNormalizedEmpty(t *testing.T) {
	assert.Empty(t, Vector{}.Normalized())
}

func TestComputeTwoNodeAnalytic(t *testing.T) {
	// 1 -> 2 with node 2 dangling has a closed-form fixed point: dangling
	// mass is shared uniformly, so
	//   r1 = (1-d)/2 + d*r2/2
	//   r2 = (1-d)/2 + d*r1 + d*r2/2
	g := NewGraph()
	g.AddEdge(1, 2)

	result, err := Compute(g, defaultOptions())
	require.NoError(t, err)

	d := 0.85
	r1 := result.Ranks[1]
	r2 := result.Ranks[2]
	assert.InDelta(t, (1-d)/2+d*r2/2, r1, 1e-5)
	assert.InDelta(t, (1-d)/2+d*r1+d*r2/2, r2, 1e-5)
	assert.InDelta(t, 1.0, r1+r2, 1e-9)
	assert.False(t, math.IsNaN(r1))
}
