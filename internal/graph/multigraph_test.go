package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopologicalSort_NoEdgesKeepsInsertionOrder(t *testing.T) {
	g := NewMultigraph[string, string](nil)
	g.AddVertices("c", "a", "b")

	sorted, err := g.TopologicalSort(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, sorted)
}

func TestTopologicalSort_RespectsEdges(t *testing.T) {
	g := NewMultigraph[string, string](nil)
	g.AddVertices("orders", "customers", "lines")
	g.AddEdge("customers", "orders", "fk_orders_customer")
	g.AddEdge("orders", "lines", "fk_lines_order")

	sorted, err := g.TopologicalSort(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders", "lines"}, sorted)
}

func TestTopologicalSort_MultipleEdgesSamePair(t *testing.T) {
	g := NewMultigraph[string, string](nil)
	g.AddVertices("a", "b")
	g.AddEdge("b", "a", "fk1")
	g.AddEdge("b", "a", "fk2")

	assert.Equal(t, []string{"fk1", "fk2"}, g.Edges("b", "a"))

	sorted, err := g.TopologicalSort(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, sorted)
}

func TestTopologicalSort_UnbrokenCycle(t *testing.T) {
	g := NewMultigraph[string, string](nil)
	g.AddVertices("a", "b")
	g.AddEdge("a", "b", "x")
	g.AddEdge("b", "a", "y")

	_, err := g.TopologicalSort(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))
	assert.Contains(t, err.Error(), "b -> a -> b")
}

func TestTopologicalSort_BreaksCycleDeterministically(t *testing.T) {
	g := NewMultigraph[string, string](nil)
	g.AddVertices("a", "b")
	g.AddEdge("a", "b", "b_refs_a")
	g.AddEdge("b", "a", "a_refs_b")

	var broken []string
	sorted, err := g.TopologicalSort(func(from, to string, edges []string) bool {
		broken = append(broken, edges...)
		return true
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a_refs_b"}, broken)
	assert.Equal(t, []string{"a", "b"}, sorted)
}

func TestTopologicalSort_BreaksOnlyEdgesOnTheCycle(t *testing.T) {
	// c depends on a; a and b reference each other. The a -> c edge must
	// never be offered since it is not part of the cycle.
	g := NewMultigraph[string, string](nil)
	g.AddVertices("c", "a", "b")
	g.AddEdge("a", "c", "c_refs_a")
	g.AddEdge("a", "b", "b_refs_a")
	g.AddEdge("b", "a", "a_refs_b")

	var broken []string
	sorted, err := g.TopologicalSort(func(from, to string, edges []string) bool {
		broken = append(broken, edges...)
		return true
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a_refs_b"}, broken)
	assert.Equal(t, []string{"a", "b", "c"}, sorted)
}

func TestTopologicalSort_SelfLoop(t *testing.T) {
	g := NewMultigraph[string, string](nil)
	g.AddVertices("tree")
	g.AddEdge("tree", "tree", "parent")

	calls := 0
	sorted, err := g.TopologicalSort(func(from, to string, edges []string) bool {
		calls++
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"tree"}, sorted)
}

func TestAddEdge_IgnoresUnknownVertices(t *testing.T) {
	g := NewMultigraph[string, string](nil)
	g.AddVertex("a")
	g.AddEdge("a", "ghost", "x")

	assert.Nil(t, g.Edges("a", "ghost"))
}

func TestDetectCycles(t *testing.T) {
	g := NewMultigraph[int, string](nil)
	g.AddVertices(1, 2, 3)
	g.AddEdge(1, 2, "")
	g.AddEdge(2, 3, "")

	cycle, err := g.DetectCycles()
	require.NoError(t, err)
	assert.Nil(t, cycle)

	g.AddEdge(3, 1, "")
	cycle, err = g.DetectCycles()
	require.Error(t, err)
	assert.Equal(t, []int{1, 2, 3, 1}, cycle)
}
