package walker_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/binstruct/structurer/il"
	"github.com/binstruct/structurer/nodes"
	"github.com/binstruct/structurer/walker"
)

func blockNode(addr int64) *nodes.ILBlock {
	return &nodes.ILBlock{Block: &il.Block{AddrV: addr}}
}

func TestWalkerDefaultDescendsSequence(t *testing.T) {
	t.Parallel()

	a, b, c := blockNode(1), blockNode(2), blockNode(3)
	seq := nodes.NewSequence(a, b, c)

	var visited []int64
	w := walker.New(map[nodes.Kind]walker.Handler{
		nodes.KindILBlock: func(_ *walker.Walker, n nodes.Node, _ walker.Context) {
			visited = append(visited, n.NodeAddr())
		},
	})
	w.Walk(seq)

	require.Equal(t, []int64{1, 2, 3}, visited)
}

func TestWalkerConditionBranchLabels(t *testing.T) {
	t.Parallel()

	cond := &nodes.Condition{Addr: 0, True: blockNode(1), False: blockNode(2)}

	var labels []string
	w := walker.New(map[nodes.Kind]walker.Handler{
		nodes.KindILBlock: func(_ *walker.Walker, _ nodes.Node, ctx walker.Context) {
			labels = append(labels, ctx.Label)
		},
	})
	w.Walk(cond)

	require.Equal(t, []string{"true", "false"}, labels)
}

func TestWalkerHandlerCanContinueDescent(t *testing.T) {
	t.Parallel()

	inner := blockNode(5)
	seq := nodes.NewSequence(inner)
	loop := &nodes.Loop{Addr: 0, Sort: nodes.LoopEndless, Body: seq}

	var sawInner bool
	w := walker.New(map[nodes.Kind]walker.Handler{
		nodes.KindILBlock: func(_ *walker.Walker, _ nodes.Node, _ walker.Context) {
			sawInner = true
		},
		nodes.KindLoop: func(w *walker.Walker, n nodes.Node, ctx walker.Context) {
			w.Default(n, ctx)
		},
	})
	w.Walk(loop)
	require.True(t, sawInner)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
