package structurer

import (
	"fmt"
	"sort"

	"github.com/binstruct/structurer/boolformula"
	"github.com/binstruct/structurer/config"
	"github.com/binstruct/structurer/il"
	"github.com/binstruct/structurer/nodes"
	"github.com/binstruct/structurer/region"
	"github.com/binstruct/structurer/util/orderedmap"
)

// structureCyclicRegion builds the structured AST for a region whose graph is not a DAG. The loop
// itself is not assumed to span r.Graph's entire node set: loopNodeSet first computes the strongly
// connected component containing head and expands it to the set of nodes the loop actually owns,
// the same way the original algorithm's region identifier grows a loop from its SCC. Anything left
// over is structured as a trailing region that runs after the loop. The back edge(s) into the loop
// head are removed from the loop's own subgraph to get an acyclic body, which is structured the
// same way an acyclic region is; edges that would have left the loop (to one of r.Successors) are
// then rewritten into Break/ConditionalBreak nodes, multi-successor exits are disambiguated through
// a synthesized dispatch variable when necessary, and the resulting sequence is pattern-matched for
// an endless/while/do-while form.
func (e *Engine) structureCyclicRegion(r *region.Region) (nodes.Node, error) {
	head := r.Head

	loopSet := loopNodeSet(r.Graph, head)
	loopGraph := r.Graph
	var tail []region.Node
	if len(loopSet) < len(r.Graph.Nodes()) {
		var loopNodes []region.Node
		for _, n := range r.Graph.Nodes() {
			if loopSet[n] {
				loopNodes = append(loopNodes, n)
			} else {
				tail = append(tail, n)
			}
		}
		loopGraph = r.Graph.Subgraph(loopNodes)
	}

	acyclicGraph := loopGraph.Copy()
	for _, pred := range loopGraph.Predecessors(head) {
		acyclicGraph.RemoveEdge(pred, head)
	}
	if !acyclicGraph.IsDAG() {
		return nil, fmt.Errorf("%w: cyclic region has more than one back edge into its head", ErrMalformedRegion)
	}

	bodyRegion := region.NewRegion(head, acyclicGraph, r.Successors)
	body, err := e.structureAcyclicRegion(bodyRegion)
	if err != nil {
		return nil, err
	}

	bodySeq, ok := body.(*nodes.Sequence)
	if !ok {
		bodySeq = nodes.NewSequence(body)
	}

	successorAddrs := make(map[int64]bool, len(r.Successors))
	for _, s := range r.Successors {
		successorAddrs[region.AddrOf(s)] = true
	}

	rewritten, err := e.rewriteLoopExits(bodySeq, successorAddrs, region.AddrOf(head))
	if err != nil {
		return nil, err
	}
	bodySeq, ok = rewritten.(*nodes.Sequence)
	if !ok {
		bodySeq = nodes.NewSequence(rewritten)
	}

	var dispatcher nodes.Node
	if len(r.Successors) > 1 {
		targets := make(map[int64]bool)
		collectBreakTargets(bodySeq, targets)
		if len(targets) == 0 {
			return nil, fmt.Errorf("%w: loop has %d successors but records no break target", ErrLoopExitAmbiguous, len(r.Successors))
		}
		if len(targets) > 1 {
			selector := e.buildSuccessorSelector()
			disambiguated, err := e.disambiguateLoopExits(bodySeq, selector)
			if err != nil {
				return nil, err
			}
			bodySeq, ok = disambiguated.(*nodes.Sequence)
			if !ok {
				bodySeq = nodes.NewSequence(disambiguated)
			}
			dispatcher = buildSuccessorDispatcher(selector, targets)
			e.stats.LoopExitsDisambiguated++
		}
	}

	kind, cond := e.refineLoopSort(bodySeq)
	switch kind {
	case nodes.LoopWhile:
		e.stats.LoopsRefinedToWhile++
	case nodes.LoopDoWhile:
		e.stats.LoopsRefinedToDo++
	}

	loop := &nodes.Loop{Addr: region.AddrOf(head), Sort: kind, Condition: cond, Body: bodySeq}

	var result nodes.Node = loop
	if dispatcher != nil {
		result = nodes.NewSequence(loop, dispatcher)
	}
	if len(tail) == 0 {
		return result, nil
	}

	tailGraph := r.Graph.Subgraph(tail)
	tailHead := pickTailHead(r.Graph, loopSet, tail)
	tailRegion := region.NewRegion(tailHead, tailGraph, r.Successors)
	tailNode, err := e.structureSingleRegion(tailRegion)
	if err != nil {
		return nil, err
	}
	return nodes.NewSequence(result, tailNode), nil
}

// loopNodeSet computes the node set a cyclic region's loop actually owns: the strongly connected
// component containing head, expanded by repeatedly absorbing any node whose every predecessor (in
// g) is already in the set. Anything g contains beyond this set belongs to code that runs after the
// loop, not to the loop body itself.
func loopNodeSet(g *region.Graph, head region.Node) map[region.Node]bool {
	set := make(map[region.Node]bool)
	for _, comp := range g.StronglyConnectedComponents() {
		for _, n := range comp {
			if n == head {
				for _, m := range comp {
					set[m] = true
				}
			}
		}
	}

	for changed := true; changed; {
		changed = false
		for _, n := range g.Nodes() {
			if set[n] {
				continue
			}
			preds := g.Predecessors(n)
			if len(preds) == 0 {
				continue
			}
			allIn := true
			for _, p := range preds {
				if !set[p] {
					allIn = false
					break
				}
			}
			if allIn {
				set[n] = true
				changed = true
			}
		}
	}
	return set
}

// pickTailHead finds the entry point into the portion of g left over once the loop's own nodes
// (loopSet) are excluded: the tail node with a predecessor inside the loop. Falls back to the first
// tail node (in g's deterministic iteration order) if none has such a predecessor.
func pickTailHead(g *region.Graph, loopSet map[region.Node]bool, tail []region.Node) region.Node {
	for _, n := range tail {
		for _, p := range g.Predecessors(n) {
			if loopSet[p] {
				return n
			}
		}
	}
	if len(tail) > 0 {
		return tail[0]
	}
	return nil
}

// rewriteLoopExits walks n looking for IL blocks whose trailing Jump/ConditionalJump targets an
// address in successorAddrs, and converts that trailing jump into a Break/ConditionalBreak
// sibling node (removing the jump statement itself, since it is now implicit in the break). A
// trailing unconditional Jump back to headAddr is dropped outright rather than turned into a
// node: reaching the end of the loop body already implies restarting it, so the jump carries no
// information once the body is structured. A node that needs a new sibling but has no list to
// hold one (e.g. a Condition's True branch) is promoted into a two-element Sequence; the return
// value replaces n at the caller.
func (e *Engine) rewriteLoopExits(n nodes.Node, successorAddrs map[int64]bool, headAddr int64) (nodes.Node, error) {
	switch v := n.(type) {
	case nil:
		return nil, nil
	case *nodes.ILBlock:
		return e.rewriteBlockExit(v, successorAddrs, headAddr)
	case *nodes.Sequence:
		var out []nodes.Node
		for _, child := range v.Nodes {
			replaced, err := e.rewriteLoopExits(child, successorAddrs, headAddr)
			if err != nil {
				return nil, err
			}
			if seq2, ok := replaced.(*nodes.Sequence); ok {
				out = append(out, seq2.Nodes...)
			} else {
				out = append(out, replaced)
			}
		}
		v.Nodes = out
		return v, nil
	case *nodes.MultiBlock:
		var out []nodes.Node
		split := false
		for _, child := range v.Nodes {
			replaced, err := e.rewriteLoopExits(child, successorAddrs, headAddr)
			if err != nil {
				return nil, err
			}
			if seq2, ok := replaced.(*nodes.Sequence); ok {
				out = append(out, seq2.Nodes...)
				split = true
			} else {
				out = append(out, replaced)
			}
		}
		if split {
			return nodes.NewSequence(out...), nil
		}
		v.Nodes = out
		return v, nil
	case *nodes.Code:
		replaced, err := e.rewriteLoopExits(v.Inner, successorAddrs, headAddr)
		if err != nil {
			return nil, err
		}
		v.Inner = replaced
		return v, nil
	case *nodes.Condition:
		t, err := e.rewriteLoopExits(v.True, successorAddrs, headAddr)
		if err != nil {
			return nil, err
		}
		v.True = t
		if v.False != nil {
			f, err := e.rewriteLoopExits(v.False, successorAddrs, headAddr)
			if err != nil {
				return nil, err
			}
			v.False = f
		}
		return v, nil
	case *nodes.SwitchCase:
		for _, p := range v.Cases.Pairs {
			replaced, err := e.rewriteLoopExits(p.Value, successorAddrs, headAddr)
			if err != nil {
				return nil, err
			}
			v.Cases.Store(p.Key, replaced)
		}
		if v.Default != nil {
			d, err := e.rewriteLoopExits(v.Default, successorAddrs, headAddr)
			if err != nil {
				return nil, err
			}
			v.Default = d
		}
		return v, nil
	default:
		return n, nil
	}
}

func (e *Engine) rewriteBlockExit(blk *nodes.ILBlock, successorAddrs map[int64]bool, headAddr int64) (nodes.Node, error) {
	last, err := blk.Block.LastStatement()
	if err != nil {
		return blk, nil
	}
	switch s := last.(type) {
	case *il.Jump:
		c, ok := s.Target.(*il.Const)
		if !ok {
			return blk, nil
		}
		if c.Value == headAddr {
			blk.Block.RemoveLastStatement()
			return blk, nil
		}
		if successorAddrs[c.Value] {
			blk.Block.RemoveLastStatement()
			brk := &nodes.Break{Addr: blk.NodeAddr(), Target: c.Value}
			if nodes.IsEmpty(blk) {
				return brk, nil
			}
			return nodes.NewSequence(blk, brk), nil
		}
		return nil, fmt.Errorf("%w: block %#x ends in a jump to %#x, which is neither the loop head (%#x) nor a recognized successor", ErrStrayBackEdge, blk.NodeAddr(), c.Value, headAddr)
	case *il.ConditionalJump:
		trueIsExit := constAddrIn(s.TrueTarget, successorAddrs)
		falseIsExit := constAddrIn(s.FalseTarget, successorAddrs)
		if !trueIsExit && !falseIsExit {
			return blk, nil
		}
		cond, err := boolformula.LiftILExpr(e.universe, e.cm, s.Condition)
		if err != nil {
			return nil, err
		}
		var target int64
		if trueIsExit {
			target = s.TrueTarget.(*il.Const).Value
		} else {
			cond = e.universe.Not(cond)
			target = s.FalseTarget.(*il.Const).Value
		}
		blk.Block.RemoveLastStatement()
		cbrk := &nodes.ConditionalBreak{Addr: blk.NodeAddr(), Condition: cond, Target: target}
		if nodes.IsEmpty(blk) {
			return cbrk, nil
		}
		return nodes.NewSequence(blk, cbrk), nil
	}
	return blk, nil
}

func constAddrIn(e il.Expr, set map[int64]bool) bool {
	c, ok := e.(*il.Const)
	return ok && set[c.Value]
}

func collectBreakTargets(n nodes.Node, out map[int64]bool) {
	switch v := n.(type) {
	case *nodes.Break:
		out[v.Target] = true
	case *nodes.ConditionalBreak:
		out[v.Target] = true
	case *nodes.Sequence:
		for _, c := range v.Nodes {
			collectBreakTargets(c, out)
		}
	case *nodes.MultiBlock:
		for _, c := range v.Nodes {
			collectBreakTargets(c, out)
		}
	case *nodes.Code:
		collectBreakTargets(v.Inner, out)
	case *nodes.Condition:
		collectBreakTargets(v.True, out)
		collectBreakTargets(v.False, out)
	case *nodes.SwitchCase:
		for _, p := range v.Cases.Pairs {
			collectBreakTargets(p.Value, out)
		}
		collectBreakTargets(v.Default, out)
	}
}

// buildSuccessorSelector synthesizes the register standing in for the dispatch variable a
// multi-exit loop's breaks get rewritten to assign into before breaking to a single sentinel exit
// (config.SyntheticSuccessorAddr), mirroring the synthetic dispatch variable the original
// algorithm's successor-refinement pass introduces for the same purpose.
func (e *Engine) buildSuccessorSelector() il.Expr {
	bits := e.arch.Bits
	if bits == 0 {
		bits = 64
	}
	return &il.Register{Name: "structurer_loop_exit", BitsN: bits}
}

// disambiguateLoopExits rewrites every Break/ConditionalBreak in n so that, instead of breaking
// directly to its own Target, it first records Target into selector and then breaks to the shared
// sentinel address buildSuccessorDispatcher's switch will read selector back out of. A bare Break
// gets its assignment spliced in immediately before it; a ConditionalBreak's assignment only runs
// when its condition holds, so it becomes a Condition wrapping the assignment and the rewritten
// break (the implicit fallthrough-when-false behavior of ConditionalBreak is preserved since the
// Condition has no False branch).
func (e *Engine) disambiguateLoopExits(n nodes.Node, selector il.Expr) (nodes.Node, error) {
	switch v := n.(type) {
	case nil:
		return nil, nil
	case *nodes.Break:
		return nodes.NewSequence(syntheticAssignBlock(selector, v.Target), &nodes.Break{Addr: v.Addr, Target: config.SyntheticSuccessorAddr}), nil
	case *nodes.ConditionalBreak:
		assign := syntheticAssignBlock(selector, v.Target)
		brk := &nodes.Break{Addr: v.Addr, Target: config.SyntheticSuccessorAddr}
		return &nodes.Condition{Addr: v.Addr, Condition: v.Condition, True: nodes.NewSequence(assign, brk)}, nil
	case *nodes.Sequence:
		var out []nodes.Node
		for _, c := range v.Nodes {
			replaced, err := e.disambiguateLoopExits(c, selector)
			if err != nil {
				return nil, err
			}
			if seq2, ok := replaced.(*nodes.Sequence); ok {
				out = append(out, seq2.Nodes...)
			} else {
				out = append(out, replaced)
			}
		}
		v.Nodes = out
		return v, nil
	case *nodes.MultiBlock:
		var out []nodes.Node
		split := false
		for _, c := range v.Nodes {
			replaced, err := e.disambiguateLoopExits(c, selector)
			if err != nil {
				return nil, err
			}
			if seq2, ok := replaced.(*nodes.Sequence); ok {
				out = append(out, seq2.Nodes...)
				split = true
			} else {
				out = append(out, replaced)
			}
		}
		if split {
			return nodes.NewSequence(out...), nil
		}
		v.Nodes = out
		return v, nil
	case *nodes.Code:
		replaced, err := e.disambiguateLoopExits(v.Inner, selector)
		if err != nil {
			return nil, err
		}
		v.Inner = replaced
		return v, nil
	case *nodes.Condition:
		t, err := e.disambiguateLoopExits(v.True, selector)
		if err != nil {
			return nil, err
		}
		v.True = t
		if v.False != nil {
			f, err := e.disambiguateLoopExits(v.False, selector)
			if err != nil {
				return nil, err
			}
			v.False = f
		}
		return v, nil
	case *nodes.SwitchCase:
		for _, p := range v.Cases.Pairs {
			replaced, err := e.disambiguateLoopExits(p.Value, selector)
			if err != nil {
				return nil, err
			}
			v.Cases.Store(p.Key, replaced)
		}
		if v.Default != nil {
			d, err := e.disambiguateLoopExits(v.Default, selector)
			if err != nil {
				return nil, err
			}
			v.Default = d
		}
		return v, nil
	default:
		return n, nil
	}
}

// syntheticAssignBlock wraps a synthetic "selector = target" statement as an il.Other: the engine
// never inspects an Other's contents, so the textual form only needs to be readable in a dump.
func syntheticAssignBlock(selector il.Expr, target int64) *nodes.ILBlock {
	text := fmt.Sprintf("%s = %#x", selector, target)
	blk := &il.Block{AddrV: config.SyntheticSuccessorAddr, Statements: []il.Stmt{&il.Other{Text: text}}}
	return &nodes.ILBlock{Block: blk}
}

// buildSuccessorDispatcher builds the SwitchCase that follows a disambiguated loop: it reads
// selector back and dispatches to whichever of targets was recorded there, mirroring the nested
// dispatcher chain the original algorithm's successor-refinement pass synthesizes after a
// multi-exit loop.
func buildSuccessorDispatcher(selector il.Expr, targets map[int64]bool) nodes.Node {
	sorted := make([]int64, 0, len(targets))
	for t := range targets {
		sorted = append(sorted, t)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	cases := orderedmap.New[int64, nodes.Node]()
	for _, t := range sorted {
		cases.Store(t, &nodes.Break{Addr: t, Target: t})
	}
	return &nodes.SwitchCase{Addr: config.SyntheticSuccessorAddr, Expr: selector, Cases: cases}
}

// refineLoopSort pattern-matches a ConditionalBreak at the head of body (the endless-loop-with-
// leading-guard shape, equivalent to while(!cond) { rest }) or at its tail (the trailing-guard
// shape, equivalent to do { rest } while(!cond)), consuming the matched node and returning the
// refined loop sort and condition. Returns LoopEndless with a nil condition if neither shape
// matches.
func (e *Engine) refineLoopSort(body *nodes.Sequence) (nodes.LoopKind, *boolformula.Formula) {
	if len(body.Nodes) == 0 {
		return nodes.LoopEndless, nil
	}
	if cb, ok := body.Nodes[0].(*nodes.ConditionalBreak); ok {
		body.Nodes = body.Nodes[1:]
		return nodes.LoopWhile, e.universe.Not(cb.Condition)
	}
	last := body.Nodes[len(body.Nodes)-1]
	if cb, ok := last.(*nodes.ConditionalBreak); ok {
		body.Nodes = body.Nodes[:len(body.Nodes)-1]
		return nodes.LoopDoWhile, e.universe.Not(cb.Condition)
	}
	return nodes.LoopEndless, nil
}
