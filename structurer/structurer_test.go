package structurer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/binstruct/structurer/il"
	"github.com/binstruct/structurer/jumptable"
	"github.com/binstruct/structurer/nodes"
	"github.com/binstruct/structurer/project"
	"github.com/binstruct/structurer/region"
	"github.com/binstruct/structurer/structurer"
)

func constTarget(addr int64) il.Expr { return &il.Const{Value: addr, BitsN: 64} }

// trailingBreakTarget extracts the Target of the Break a goto-to-break conversion produced, which
// comes back either as a bare Break (the containing block had nothing else in it) or as the last
// element of a Sequence (the block's other statements survive ahead of the break).
func trailingBreakTarget(t *testing.T, n nodes.Node) int64 {
	t.Helper()
	if brk, ok := n.(*nodes.Break); ok {
		return brk.Target
	}
	seq, ok := n.(*nodes.Sequence)
	require.True(t, ok, "expected a Break or a Sequence ending in one, got %T", n)
	require.NotEmpty(t, seq.Nodes)
	brk, ok := seq.Nodes[len(seq.Nodes)-1].(*nodes.Break)
	require.True(t, ok, "expected sequence to end in a Break, got %T", seq.Nodes[len(seq.Nodes)-1])
	return brk.Target
}

func TestStructureLinearSequence(t *testing.T) {
	t.Parallel()

	a := &il.Block{AddrV: 1, Statements: []il.Stmt{&il.Other{Text: "a"}, &il.Jump{Target: constTarget(2)}}}
	b := &il.Block{AddrV: 2, Statements: []il.Stmt{&il.Other{Text: "b"}}}

	g := region.NewGraph()
	g.AddEdge(a, b)
	r := region.NewRegion(a, g, nil)

	result, err := structurer.Structure(r, project.Arch{Bits: 64}, nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	seq, ok := result.(*nodes.Sequence)
	require.True(t, ok)
	require.Len(t, seq.Nodes, 2)
}

func TestStructureIfElsePairing(t *testing.T) {
	t.Parallel()

	cond := &il.BinaryOp{Op: "CmpEQ", Operands: [2]il.Expr{&il.Register{Name: "rax", BitsN: 64}, &il.Const{Value: 0, BitsN: 64}}, BitsN: 1}
	head := &il.Block{AddrV: 1, Statements: []il.Stmt{&il.ConditionalJump{Condition: cond, TrueTarget: constTarget(2), FalseTarget: constTarget(3)}}}
	thenBlk := &il.Block{AddrV: 2, Statements: []il.Stmt{&il.Other{Text: "then"}}}
	elseBlk := &il.Block{AddrV: 3, Statements: []il.Stmt{&il.Other{Text: "else"}}}

	g := region.NewGraph()
	g.AddEdge(head, thenBlk)
	g.AddEdge(head, elseBlk)
	r := region.NewRegion(head, g, nil)

	result, err := structurer.Structure(r, project.Arch{Bits: 64}, nil)
	require.NoError(t, err)

	seq, ok := result.(*nodes.Sequence)
	require.True(t, ok)
	require.Len(t, seq.Nodes, 2)

	_, ok = seq.Nodes[0].(*nodes.ILBlock)
	require.True(t, ok)
	condNode, ok := seq.Nodes[1].(*nodes.Condition)
	require.True(t, ok)
	require.NotNil(t, condNode.True)
	require.NotNil(t, condNode.False)
}

func TestStructureWhileLoop(t *testing.T) {
	t.Parallel()

	cond := &il.BinaryOp{Op: "CmpGE", Operands: [2]il.Expr{&il.Tmp{Idx: 0, BitsN: 64}, &il.Const{Value: 10, BitsN: 64}}, BitsN: 1}
	head := &il.Block{AddrV: 1, Statements: []il.Stmt{&il.ConditionalJump{Condition: cond, TrueTarget: constTarget(99), FalseTarget: constTarget(2)}}}
	body := &il.Block{AddrV: 2, Statements: []il.Stmt{&il.Other{Text: "body"}, &il.Jump{Target: constTarget(1)}}}
	exit := &il.Block{AddrV: 99}

	g := region.NewGraph()
	g.AddEdge(head, body)
	g.AddEdge(body, head)

	r := region.NewRegion(head, g, []region.Node{exit})

	result, err := structurer.Structure(r, project.Arch{Bits: 64}, nil)
	require.NoError(t, err)

	loop, ok := result.(*nodes.Loop)
	require.True(t, ok)
	require.Equal(t, nodes.LoopWhile, loop.Sort)
	require.NotNil(t, loop.Condition)
}

func TestStructureDoWhileLoop(t *testing.T) {
	t.Parallel()

	head := &il.Block{AddrV: 1, Statements: []il.Stmt{&il.Other{Text: "body"}}}
	cond := &il.BinaryOp{Op: "CmpGE", Operands: [2]il.Expr{&il.Tmp{Idx: 0, BitsN: 64}, &il.Const{Value: 10, BitsN: 64}}, BitsN: 1}
	tail := &il.Block{AddrV: 2, Statements: []il.Stmt{&il.ConditionalJump{Condition: cond, TrueTarget: constTarget(99), FalseTarget: constTarget(1)}}}
	exit := &il.Block{AddrV: 99}

	g := region.NewGraph()
	g.AddEdge(head, tail)
	g.AddEdge(tail, head)

	r := region.NewRegion(head, g, []region.Node{exit})

	result, err := structurer.Structure(r, project.Arch{Bits: 64}, nil)
	require.NoError(t, err)

	loop, ok := result.(*nodes.Loop)
	require.True(t, ok)
	require.Equal(t, nodes.LoopDoWhile, loop.Sort)
}

func TestStructureEndlessLoop(t *testing.T) {
	t.Parallel()

	head := &il.Block{AddrV: 1, Statements: []il.Stmt{&il.Other{Text: "spin"}, &il.Jump{Target: constTarget(1)}}}

	g := region.NewGraph()
	g.AddEdge(head, head)
	r := region.NewRegion(head, g, nil)

	result, err := structurer.Structure(r, project.Arch{Bits: 64}, nil)
	require.NoError(t, err)

	loop, ok := result.(*nodes.Loop)
	require.True(t, ok)
	require.Equal(t, nodes.LoopEndless, loop.Sort)
	require.Nil(t, loop.Condition)
}

func TestStructureSwitchRecognition(t *testing.T) {
	t.Parallel()

	dispatch := &il.Block{AddrV: 1, Statements: []il.Stmt{&il.Jump{Target: &il.Tmp{Idx: 0, BitsN: 64}}}}
	case0 := &il.Block{AddrV: 10, Statements: []il.Stmt{&il.Other{Text: "case0"}, &il.Jump{Target: constTarget(99)}}}
	case1 := &il.Block{AddrV: 11, Statements: []il.Stmt{&il.Other{Text: "case1"}, &il.Jump{Target: constTarget(99)}}}

	g := region.NewGraph()
	g.AddEdge(dispatch, case0)
	g.AddEdge(dispatch, case1)
	r := region.NewRegion(dispatch, g, nil)

	jt := jumptable.NewMap()
	jt.Set(1, &jumptable.Table{Entries: []int64{10, 11}})

	result, err := structurer.Structure(r, project.Arch{Bits: 64}, jt)
	require.NoError(t, err)

	sc, ok := result.(*nodes.SwitchCase)
	require.True(t, ok)
	require.Equal(t, 2, sc.Cases.Len())

	// With no bounds-check predecessor, cmp_lb falls back to 0 and case keys stay raw indices.
	case0Body, ok := sc.Cases.Load(0)
	require.True(t, ok)
	require.Equal(t, int64(99), trailingBreakTarget(t, case0Body))
}

// TestStructureSwitchRecognitionWithBoundsCheck exercises the normal compiler shape: a predecessor
// guarding entry into the dispatch block with a bounds check on Sub(x, cmp_lb), so that case keys
// must be offset by cmp_lb and the switch's Expr must be the compared variable x, not the dispatch
// block's own indirect-jump temporary. Each case body ends in a plain Jump to the switch's common
// join address, which must come back out as a Break to that address (goto-to-break conversion).
func TestStructureSwitchRecognitionWithBoundsCheck(t *testing.T) {
	t.Parallel()

	x := &il.Register{Name: "rax", BitsN: 64}
	boundCond := &il.BinaryOp{
		Op:       "CmpGT",
		Operands: [2]il.Expr{&il.BinaryOp{Op: "Sub", Operands: [2]il.Expr{x, &il.Const{Value: 5, BitsN: 64}}, BitsN: 64}, &il.Const{Value: 1, BitsN: 64}},
		BitsN:    1,
	}
	pre := &il.Block{AddrV: 0, Statements: []il.Stmt{&il.ConditionalJump{Condition: boundCond, TrueTarget: constTarget(20), FalseTarget: constTarget(1)}}}
	dispatch := &il.Block{AddrV: 1, Statements: []il.Stmt{&il.Jump{Target: &il.Tmp{Idx: 0, BitsN: 64}}}}
	case0 := &il.Block{AddrV: 10, Statements: []il.Stmt{&il.Other{Text: "case0"}, &il.Jump{Target: constTarget(99)}}}
	case1 := &il.Block{AddrV: 11, Statements: []il.Stmt{&il.Other{Text: "case1"}, &il.Jump{Target: constTarget(99)}}}
	def := &il.Block{AddrV: 20, Statements: []il.Stmt{&il.Other{Text: "default"}, &il.Jump{Target: constTarget(99)}}}

	g := region.NewGraph()
	g.AddEdge(pre, dispatch)
	g.AddEdge(pre, def)
	g.AddEdge(dispatch, case0)
	g.AddEdge(dispatch, case1)
	r := region.NewRegion(dispatch, g, nil)

	jt := jumptable.NewMap()
	jt.Set(1, &jumptable.Table{Entries: []int64{10, 11}})

	result, err := structurer.Structure(r, project.Arch{Bits: 64}, jt)
	require.NoError(t, err)

	sc, ok := result.(*nodes.SwitchCase)
	require.True(t, ok)
	require.Equal(t, x, sc.Expr)
	require.Equal(t, 2, sc.Cases.Len())

	case5, ok := sc.Cases.Load(5)
	require.True(t, ok)
	require.Equal(t, int64(99), trailingBreakTarget(t, case5))

	case6, ok := sc.Cases.Load(6)
	require.True(t, ok)
	require.Equal(t, int64(99), trailingBreakTarget(t, case6))

	require.NotNil(t, sc.Default)
	require.Equal(t, int64(99), trailingBreakTarget(t, sc.Default))
}

func TestStructureEmptyBlockNotTreatedAsStatement(t *testing.T) {
	t.Parallel()

	a := &il.Block{AddrV: 1}
	g := region.NewGraph()
	g.AddNode(a)
	r := region.NewRegion(a, g, nil)

	result, err := structurer.Structure(r, project.Arch{Bits: 64}, nil)
	require.NoError(t, err)
	require.True(t, nodes.IsEmpty(result))
}

func TestBatchStructureParallel(t *testing.T) {
	t.Parallel()

	mkRegion := func(addr int64) *region.Region {
		a := &il.Block{AddrV: addr, Statements: []il.Stmt{&il.Other{Text: "x"}}}
		g := region.NewGraph()
		g.AddNode(a)
		return region.NewRegion(a, g, nil)
	}

	inputs := []structurer.BatchInput{
		{Region: mkRegion(1), Arch: project.Arch{Bits: 64}},
		{Region: mkRegion(2), Arch: project.Arch{Bits: 64}},
		{Region: mkRegion(3), Arch: project.Arch{Bits: 64}},
	}

	results, err := structurer.BatchStructure(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		require.NotNil(t, r.Node)
	}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
