package structurer

import (
	"github.com/binstruct/structurer/config"
	"github.com/binstruct/structurer/il"
	"github.com/binstruct/structurer/nodes"
	"github.com/binstruct/structurer/region"
	"github.com/binstruct/structurer/util/orderedmap"
)

// tryRecognizeSwitch looks for the compiler-generated dispatch shape a jump table implies: r's
// head, once unpacked down to a raw IL block, ends in an indirect Jump whose address appears in
// the engine's jump-table metadata. When found, it builds a SwitchCase node whose cases are the
// sub-regions dominated by each table entry's address, rather than letting the general reaching-
// condition machinery turn the dispatch into a deeply nested if/else chain. Returns
// recognized=false (not an error) when r doesn't have this shape.
func (e *Engine) tryRecognizeSwitch(r *region.Region) (nodes.Node, bool, error) {
	var headNode nodes.Node
	switch v := r.Head.(type) {
	case *il.Block:
		headNode = &nodes.ILBlock{Block: v}
	case nodes.Node:
		headNode = v
	default:
		return nil, false, nil
	}

	head, prefix, ok := switchUnpackSequenceNode(headNode)
	if !ok {
		return nil, false, nil
	}
	table, ok := e.jumpTables.Get(head.AddrV)
	if !ok {
		return nil, false, nil
	}
	last, err := head.LastStatement()
	if err != nil {
		return nil, false, nil
	}
	_, ok = last.(*il.Jump)
	if !ok {
		return nil, false, nil
	}

	cmpExpr, cmpLB, defaultAddr, boundOK := e.extractSwitchBound(r, head)
	if !boundOK {
		// No bounds-check predecessor matched the shape extractSwitchBound expects: the switch
		// still gets recognized (an exhaustive dispatch compiled without a range check is common
		// enough), but there's no real compared variable or low bound to report, so the dispatch
		// block's own indirect-jump target stands in for cmp_expr and cmp_lb is 0.
		cmpExpr = last.(*il.Jump).Target
		cmpLB = 0
	}

	inSwitch := map[int64]bool{head.AddrV: true}

	type builtCase struct {
		key  int64
		body nodes.Node
	}
	var built []builtCase
	for idx, addr := range table.Entries {
		if defaultAddr != 0 && addr == defaultAddr {
			continue
		}
		body, owned, err := e.structureCaseBody(r, addr)
		if err != nil {
			return nil, false, err
		}
		for _, a := range owned {
			inSwitch[a] = true
		}
		built = append(built, builtCase{key: cmpLB + int64(idx), body: body})
	}

	var def nodes.Node
	if defaultAddr != 0 {
		var owned []int64
		def, owned, err = e.structureCaseBody(r, defaultAddr)
		if err != nil {
			return nil, false, err
		}
		for _, a := range owned {
			inSwitch[a] = true
		}
	}

	switchEnd, hasEnd := detectSwitchEnd(r, inSwitch)
	if hasEnd {
		targetSet := map[int64]bool{switchEnd: true}
		for i := range built {
			rewritten, err := e.rewriteLoopExits(built[i].body, targetSet, config.SyntheticSuccessorAddr)
			if err != nil {
				return nil, false, err
			}
			built[i].body = unwrapBreakOnly(rewritten)
		}
		if def != nil {
			rewritten, err := e.rewriteLoopExits(def, targetSet, config.SyntheticSuccessorAddr)
			if err != nil {
				return nil, false, err
			}
			def = unwrapBreakOnly(rewritten)
		}
	}

	cases := orderedmap.New[int64, nodes.Node]()
	for _, bc := range built {
		cases.Store(bc.key, bc.body)
	}

	sc := &nodes.SwitchCase{Addr: head.AddrV, Expr: cmpExpr, Cases: cases, Default: def}
	if prefix == nil {
		return sc, true, nil
	}
	return nodes.NewSequence(prefix, &nodes.Code{Inner: sc, ReachingCondition: e.universe.True()}), true, nil
}

// switchUnpackSequenceNode looks through n for a raw dispatch *il.Block, tolerating n already
// having been partially structured into a nodes.Sequence (e.g. because merge-same-conditioned ran
// before the switch pass reached it and fused the dispatch block into a run with its predecessor).
// The dispatch block, if present, is always the last element of such a run — everything before it
// is returned as prefix, to be kept ahead of the resulting SwitchCase rather than folded into it.
// Like the case it's modeled on, it does not attempt to unpack a nodes.Condition (a node with both
// branches already structured): that shape is left unrecognized rather than guessed at.
func switchUnpackSequenceNode(n nodes.Node) (head *il.Block, prefix nodes.Node, ok bool) {
	switch v := n.(type) {
	case *nodes.ILBlock:
		return v.Block, nil, true
	case *nodes.Code:
		return switchUnpackSequenceNode(v.Inner)
	case *nodes.Sequence:
		if len(v.Nodes) == 0 {
			return nil, nil, false
		}
		last := v.Nodes[len(v.Nodes)-1]
		h, _, ok := switchUnpackSequenceNode(last)
		if !ok {
			return nil, nil, false
		}
		if len(v.Nodes) == 1 {
			return h, nil, true
		}
		return h, nodes.NewSequence(v.Nodes[:len(v.Nodes)-1]...), true
	default:
		return nil, nil, false
	}
}

// extractSwitchBound looks for a predecessor of head whose terminator is a bounds check
// (ConditionalJump on a CmpLE/CmpGT comparison) guarding entry into the dispatch block. The
// comparison's left-hand side is either the switched-on value directly, or Sub(x, k) when the
// compiler has already subtracted the switch's low bound before comparing against the span; in the
// latter case cmp_expr is x and cmp_lb is k, so that a later case index idx is understood as the
// original, un-subtracted value cmp_lb+idx. defaultAddr is the address execution falls through to
// when the bound check fails (the switch's default case).
func (e *Engine) extractSwitchBound(r *region.Region, head *il.Block) (cmpExpr il.Expr, cmpLB int64, defaultAddr int64, ok bool) {
	for _, p := range r.Graph.Predecessors(head) {
		pb, isBlock := p.(*il.Block)
		if !isBlock {
			continue
		}
		last, err := pb.LastStatement()
		if err != nil {
			continue
		}
		cj, isCJ := last.(*il.ConditionalJump)
		if !isCJ {
			continue
		}
		cmp, isCmp := cj.Condition.(*il.BinaryOp)
		if !isCmp || (cmp.Op != "CmpLE" && cmp.Op != "CmpGT") {
			continue
		}
		rhs, isConst := cmp.Operands[1].(*il.Const)
		if !isConst {
			continue
		}
		_ = rhs // cmp_ub: the switch's high bound, not needed beyond having matched this shape

		var otherTarget il.Expr
		if c, ok := cj.TrueTarget.(*il.Const); ok && c.Value == head.AddrV {
			otherTarget = cj.FalseTarget
		} else if c, ok := cj.FalseTarget.(*il.Const); ok && c.Value == head.AddrV {
			otherTarget = cj.TrueTarget
		} else {
			continue
		}
		otherConst, isConst := otherTarget.(*il.Const)
		if !isConst {
			continue
		}

		expr, lb := splitSwitchLowerBound(cmp.Operands[0])
		return expr, lb, otherConst.Value, true
	}
	return nil, 0, 0, false
}

// splitSwitchLowerBound pattern-matches lhs for the Sub(x, k) shape a compiler emits when it has
// folded the switch's low bound into the bounds check itself, returning (x, k). Anything else is
// returned as-is with a zero low bound.
func splitSwitchLowerBound(lhs il.Expr) (expr il.Expr, lb int64) {
	if sub, ok := lhs.(*il.BinaryOp); ok && sub.Op == "Sub" {
		if k, ok := sub.Operands[1].(*il.Const); ok {
			return sub.Operands[0], k.Value
		}
	}
	return lhs, 0
}

// structureCaseBody structures the sub-region of r dominated by the node at addr: every node
// whose immediate-dominator chain passes through addr's node belongs to that case, mirroring how
// a compiler-emitted switch's case bodies don't re-converge until the switch's join point. It also
// returns the addresses of every node it claimed, so the caller can tell which of r's nodes belong
// to the switch at all (needed to find the switch's common exit address).
func (e *Engine) structureCaseBody(r *region.Region, addr int64) (nodes.Node, []int64, error) {
	var target region.Node
	for _, n := range r.Graph.Nodes() {
		if region.AddrOf(n) == addr {
			target = n
			break
		}
	}
	if target == nil {
		return nodes.NewSequence(), nil, nil
	}

	idom := r.Graph.ImmediateDominators(r.Head)
	owned := []region.Node{target}
	for _, n := range r.Graph.Nodes() {
		if n == target {
			continue
		}
		for cur := n; ; {
			p, ok := idom[cur]
			if !ok || p == cur {
				break
			}
			if p == target {
				owned = append(owned, n)
				break
			}
			cur = p
		}
	}

	addrs := make([]int64, len(owned))
	for i, n := range owned {
		addrs[i] = region.AddrOf(n)
	}

	sub := r.Graph.Subgraph(owned)
	subRegion := region.NewRegion(target, sub, nil)
	body, err := e.structureSingleRegion(subRegion)
	if err != nil {
		return nil, nil, err
	}
	return body, addrs, nil
}

// detectSwitchEnd scans every raw IL block belonging to the switch (inSwitch) for a trailing Jump
// whose target lies outside the switch, and returns the most common such target: the address every
// case and the default reconverge at once the switch is done (spec'd as the switch's goto-to-break
// rewrite target). Ties are broken by the lowest address, for determinism. ok is false when no
// case ends in a plain Jump leaving the switch (e.g. every case itself ends in a return).
func detectSwitchEnd(r *region.Region, inSwitch map[int64]bool) (addr int64, ok bool) {
	counts := make(map[int64]int)
	for _, n := range r.Graph.Nodes() {
		if !inSwitch[region.AddrOf(n)] {
			continue
		}
		blk, isBlock := n.(*il.Block)
		if !isBlock {
			continue
		}
		last, err := blk.LastStatement()
		if err != nil {
			continue
		}
		jmp, isJump := last.(*il.Jump)
		if !isJump {
			continue
		}
		c, isConst := jmp.Target.(*il.Const)
		if !isConst || inSwitch[c.Value] {
			continue
		}
		counts[c.Value]++
	}

	bestCount := 0
	for a, n := range counts {
		if n > bestCount || (n == bestCount && a < addr) {
			addr, bestCount = a, n
		}
	}
	return addr, bestCount > 0
}

// unwrapBreakOnly undoes rewriteLoopExits' Sequence-wrapping for the common case where a case
// body was nothing but the trailing jump: rewriteLoopExits always returns a bare Break there (an
// ILBlock that became empty is replaced outright), so this only matters when the body was a
// Sequence whose sole remaining element, after the jump was stripped, is empty. Kept distinct from
// the general-purpose promoteSingleElement used in the acyclic pipeline since there's no reaching
// condition involved here.
func unwrapBreakOnly(n nodes.Node) nodes.Node {
	if seq, ok := n.(*nodes.Sequence); ok {
		out := seq.Nodes[:0]
		for _, c := range seq.Nodes {
			if !nodes.IsEmpty(c) {
				out = append(out, c)
			}
		}
		seq.Nodes = out
		if len(seq.Nodes) == 1 {
			return seq.Nodes[0]
		}
	}
	return n
}
