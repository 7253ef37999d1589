package region_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/binstruct/structurer/il"
	"github.com/binstruct/structurer/region"
)

func block(addr int64) *il.Block { return &il.Block{AddrV: addr} }

func TestGraphDeterministicOrder(t *testing.T) {
	t.Parallel()

	g := region.NewGraph()
	a, b, c := block(1), block(2), block(3)
	g.AddEdge(a, c)
	g.AddEdge(a, b)
	require.Equal(t, []region.Node{a, c, b}, g.Nodes())
	require.Equal(t, []region.Node{c, b}, g.Successors(a))
}

func TestGraphTopologicalSort(t *testing.T) {
	t.Parallel()

	g := region.NewGraph()
	a, b, c := block(1), block(2), block(3)
	g.AddEdge(a, b)
	g.AddEdge(b, c)

	order, ok := g.TopologicalSort()
	require.True(t, ok)
	require.Equal(t, []region.Node{a, b, c}, order)
}

func TestGraphTopologicalSortCycle(t *testing.T) {
	t.Parallel()

	g := region.NewGraph()
	a, b := block(1), block(2)
	g.AddEdge(a, b)
	g.AddEdge(b, a)

	_, ok := g.TopologicalSort()
	require.False(t, ok)
}

func TestGraphStronglyConnectedComponents(t *testing.T) {
	t.Parallel()

	g := region.NewGraph()
	a, b, c, d := block(1), block(2), block(3), block(4)
	g.AddEdge(a, b)
	g.AddEdge(b, a)
	g.AddEdge(b, c)
	g.AddEdge(c, d)

	comps := g.StronglyConnectedComponents()
	require.Len(t, comps, 3)

	var sizes []int
	for _, c := range comps {
		sizes = append(sizes, len(c))
	}
	require.Contains(t, sizes, 2)
}

func TestGraphImmediateDominators(t *testing.T) {
	t.Parallel()

	g := region.NewGraph()
	entry, l, r, join := block(1), block(2), block(3), block(4)
	g.AddEdge(entry, l)
	g.AddEdge(entry, r)
	g.AddEdge(l, join)
	g.AddEdge(r, join)

	idom := g.ImmediateDominators(entry)
	require.Equal(t, entry, idom[l])
	require.Equal(t, entry, idom[r])
	require.Equal(t, entry, idom[join])
	require.Equal(t, entry, idom[entry])
}

func TestRegionRecursiveCopyIndependentBlocks(t *testing.T) {
	t.Parallel()

	a := block(1)
	a.AppendStatement(&il.Other{Text: "x"})
	g := region.NewGraph()
	g.AddEdge(a, block(2))

	r := region.NewRegion(a, g, nil)
	cp := r.RecursiveCopy()

	cpHead := cp.Head.(*il.Block)
	cpHead.AppendStatement(&il.Other{Text: "y"})

	require.Len(t, a.Statements, 1, "copy mutation must not alias the original block")
	require.Len(t, cpHead.Statements, 2)
	require.NotSame(t, a, cpHead)
}

func TestRegionRecursiveCopyNestedRegion(t *testing.T) {
	t.Parallel()

	inner := region.NewRegion(block(10), region.NewGraph(), nil)
	outer := region.NewGraph()
	outer.AddEdge(inner, block(20))
	r := region.NewRegion(inner, outer, nil)

	cp := r.RecursiveCopy()
	require.NotSame(t, r, cp)
	require.IsType(t, &region.Region{}, cp.Head)
	require.NotSame(t, inner, cp.Head)
}

func TestGraphWithSuccessorsSyntheticEdges(t *testing.T) {
	t.Parallel()

	g := region.NewGraph()
	a := block(1)
	g.AddNode(a)

	exit := block(99)
	r := region.NewRegion(a, g, []region.Node{exit})

	require.True(t, r.GraphWithSuccessors.HasEdge(a, exit))
	require.False(t, r.Graph.HasEdge(a, exit), "successor edges must not leak into the plain Graph")
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
