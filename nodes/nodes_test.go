package nodes_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/binstruct/structurer/boolformula"
	"github.com/binstruct/structurer/il"
	"github.com/binstruct/structurer/nodes"
)

func blockNode(addr int64, stmts ...il.Stmt) *nodes.ILBlock {
	return &nodes.ILBlock{Block: &il.Block{AddrV: addr, Statements: stmts}}
}

func TestSequenceFlattensNested(t *testing.T) {
	t.Parallel()

	inner := nodes.NewSequence(blockNode(1), blockNode(2))
	outer := nodes.NewSequence(blockNode(0), inner, blockNode(3))

	require.Len(t, outer.Nodes, 4)
}

func TestSequenceInsertRemove(t *testing.T) {
	t.Parallel()

	a, b, c := blockNode(1), blockNode(2), blockNode(3)
	s := nodes.NewSequence(a, c)
	s.InsertNode(1, b)
	require.Equal(t, []nodes.Node{a, b, c}, s.Nodes)

	require.True(t, s.RemoveNode(b))
	require.Equal(t, []nodes.Node{a, c}, s.Nodes)
	require.False(t, s.RemoveNode(b))
}

func TestIsEmpty(t *testing.T) {
	t.Parallel()

	require.True(t, nodes.IsEmpty(nil))
	require.True(t, nodes.IsEmpty(&nodes.ILBlock{Block: &il.Block{AddrV: 1}}))
	require.False(t, nodes.IsEmpty(blockNode(1, &il.Other{})))
	require.True(t, nodes.IsEmpty(nodes.NewSequence()))
	require.True(t, nodes.IsEmpty(&nodes.Code{Inner: nodes.NewSequence()}))
	require.False(t, nodes.IsEmpty(&nodes.Break{Addr: 1, Target: 2}))
}

func TestLastStatementTraversal(t *testing.T) {
	t.Parallel()

	j := &il.Jump{Target: &il.Const{Value: 0x10, BitsN: 64}}
	b := blockNode(1, &il.Other{Text: "a"}, j)
	seq := nodes.NewSequence(blockNode(0), &nodes.Code{Inner: b})

	last, err := nodes.LastStatement(seq)
	require.NoError(t, err)
	require.Same(t, j, last)
}

func TestLastStatementEmptyChain(t *testing.T) {
	t.Parallel()

	_, err := nodes.LastStatement(nodes.NewSequence())
	require.ErrorIs(t, err, nodes.ErrNoLastStatement)

	_, err = nodes.LastStatement(&nodes.Break{Addr: 1, Target: 2})
	require.ErrorIs(t, err, nodes.ErrNoLastStatement)
}

func TestRemoveAndAppendStatement(t *testing.T) {
	t.Parallel()

	j := &il.Jump{Target: &il.Const{Value: 0x10, BitsN: 64}}
	b := blockNode(1, &il.Other{Text: "a"}, j)
	loop := &nodes.Loop{Addr: 1, Sort: nodes.LoopEndless, Body: nodes.NewSequence(b)}

	removed := nodes.RemoveLastStatement(loop)
	require.Same(t, j, removed)
	require.Len(t, b.Block.Statements, 1)

	nodes.AppendStatement(loop, j)
	require.Len(t, b.Block.Statements, 2)
}

func TestDumpRendersNestedStructure(t *testing.T) {
	t.Parallel()

	u := boolformula.NewUniverse()
	inner := nodes.NewSequence(blockNode(1), blockNode(2))
	loop := &nodes.Loop{Addr: 1, Sort: nodes.LoopWhile, Condition: u.Leaf("x"), Body: inner}

	out := nodes.Dump(loop)
	require.Contains(t, out, "while")
	require.Contains(t, out, "block 0x1")
	require.Contains(t, out, "block 0x2")
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
