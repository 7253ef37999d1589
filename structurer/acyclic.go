package structurer

import (
	"fmt"

	"github.com/binstruct/structurer/boolformula"
	"github.com/binstruct/structurer/config"
	"github.com/binstruct/structurer/il"
	"github.com/binstruct/structurer/nodes"
	"github.com/binstruct/structurer/region"
)

// structureAcyclicRegion builds the structured AST for a region whose graph is a DAG: it computes
// a reaching condition per node (the boolean formula describing which predecessor edges control
// must have taken to get here), wraps every node in a nodes.Code carrying that condition, and then
// runs the rewrite pipeline to fold that Code-per-node sequence down into conditionals.
func (e *Engine) structureAcyclicRegion(r *region.Region) (nodes.Node, error) {
	if sc, recognized, err := e.tryRecognizeSwitch(r); err != nil {
		return nil, err
	} else if recognized {
		e.stats.SwitchesRecognized++
		return sc, nil
	}

	order, ok := r.Graph.TopologicalSort()
	if !ok {
		return nil, fmt.Errorf("%w: acyclic region graph has a cycle", ErrMalformedRegion)
	}
	if len(order) == 0 {
		return nodes.NewSequence(), nil
	}

	rc, err := e.computeReachingConditions(r, order)
	if err != nil {
		return nil, err
	}

	seq := nodes.NewSequence()
	for _, n := range order {
		wrapped, err := e.wrapAsNode(n)
		if err != nil {
			return nil, err
		}
		seq.AddNode(&nodes.Code{Inner: wrapped, ReachingCondition: rc[n]})
	}

	return e.rewriteSequence(seq)
}

// computeReachingConditions assigns every node in order (the head first) the boolean formula
// describing the set of predecessor-edge choices that lead control there: RC(head) = true, and
// RC(n) = OR over each predecessor p of (RC(p) AND the condition guarding the p->n edge).
func (e *Engine) computeReachingConditions(r *region.Region, order []region.Node) (map[region.Node]*boolformula.Formula, error) {
	rc := make(map[region.Node]*boolformula.Formula, len(order))
	rc[r.Head] = e.universe.True()

	for _, n := range order {
		if n == r.Head {
			continue
		}
		var disjuncts []*boolformula.Formula
		for _, p := range r.Graph.Predecessors(n) {
			predRC, ok := rc[p]
			if !ok {
				continue
			}
			edgeCond, err := e.edgeCondition(p, n, r.Graph)
			if err != nil {
				return nil, err
			}
			disjuncts = append(disjuncts, e.universe.And(predRC, edgeCond))
		}
		if len(disjuncts) == 0 {
			rc[n] = e.universe.False()
			continue
		}
		rc[n] = boolformula.Simplify(e.universe, e.universe.Or(disjuncts...))
	}
	return rc, nil
}

// edgeCondition returns the formula guarding the p->n edge: true when p has only one successor
// (an unconditional fallthrough/jump), the lifted (or negated) branch condition when p ends in a
// ConditionalJump discriminating between n and some other target, and true as a conservative
// fallback when p's terminator doesn't name n explicitly (e.g. an indirect jump already resolved
// by the switch/case recognizer upstream).
func (e *Engine) edgeCondition(p, n region.Node, g *region.Graph) (*boolformula.Formula, error) {
	if len(g.Successors(p)) <= 1 {
		return e.universe.True(), nil
	}
	last, err := lastStatementOf(p)
	if err != nil {
		return e.universe.True(), nil
	}
	cj, ok := last.(*il.ConditionalJump)
	if !ok {
		return e.universe.True(), nil
	}
	cond, err := boolformula.LiftILExpr(e.universe, e.cm, cj.Condition)
	if err != nil {
		return nil, err
	}
	nAddr := region.AddrOf(n)
	if c, ok := cj.TrueTarget.(*il.Const); ok && c.Value == nAddr {
		return cond, nil
	}
	if c, ok := cj.FalseTarget.(*il.Const); ok && c.Value == nAddr {
		return e.universe.Not(cond), nil
	}
	return e.universe.True(), nil
}

// wrapAsNode turns a region.Node into a nodes.Node: leaf IL blocks become nodes.ILBlock; anything
// already a nodes.Node (substituted in by recursiveStructure, or a pre-merged nodes.MultiBlock the
// upstream region identifier handed us) passes through unchanged.
func (e *Engine) wrapAsNode(n region.Node) (nodes.Node, error) {
	switch v := n.(type) {
	case *il.Block:
		return &nodes.ILBlock{Block: v}, nil
	case nodes.Node:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized region node type %T", ErrMalformedRegion, n)
	}
}

// rewriteSequence folds a flat Code-per-node sequence down into conditionals by repeatedly
// applying, to a fixed point: empty-node removal, merging of adjacent same-conditioned nodes,
// if/else pairing of nodes with complementary conditions, and common-subexpression guarding.
// Convergence is bounded by config.MaxFixedPointRounds; exceeding it means a rewrite is
// re-creating work it just consumed, which is a malformed region, not a shape to silently
// truncate.
func (e *Engine) rewriteSequence(seq *nodes.Sequence) (nodes.Node, error) {
	round := 0
	for ; round < config.MaxFixedPointRounds; round++ {
		changed := false
		if e.removeEmptyNodes(seq) {
			changed = true
		}
		if e.mergeSameConditioned(seq) {
			changed = true
		}
		if e.pairITE(seq) {
			changed = true
		}
		if e.guardCommonSubexpr(seq) {
			changed = true
		}
		if !changed {
			break
		}
	}
	if round == config.MaxFixedPointRounds {
		return nil, fmt.Errorf("%w: sequence rewrite did not converge within %d rounds", ErrMalformedRegion, config.MaxFixedPointRounds)
	}
	e.stats.FixedPointRounds += round + 1
	return e.promoteSingleElement(seq), nil
}

func (e *Engine) removeEmptyNodes(seq *nodes.Sequence) bool {
	out := seq.Nodes[:0]
	changed := false
	for _, n := range seq.Nodes {
		if nodes.IsEmpty(n) {
			changed = true
			e.stats.EmptyNodesRemoved++
			continue
		}
		out = append(out, n)
	}
	seq.Nodes = out
	return changed
}

// mergeSameConditioned folds adjacent Code nodes whose reaching conditions are equivalent into a
// single Code wrapping a sub-sequence of both, e.g. two consecutive blocks both guarded by "x > 0"
// become one guarded block containing both.
func (e *Engine) mergeSameConditioned(seq *nodes.Sequence) bool {
	changed := false
	for i := 0; i < len(seq.Nodes)-1; i++ {
		c1, ok1 := seq.Nodes[i].(*nodes.Code)
		c2, ok2 := seq.Nodes[i+1].(*nodes.Code)
		if !ok1 || !ok2 || c1.ReachingCondition == nil || c2.ReachingCondition == nil {
			continue
		}
		if !boolformula.Equivalent(e.universe, c1.ReachingCondition, c2.ReachingCondition) {
			continue
		}
		merged := &nodes.Code{
			Inner:             nodes.NewSequence(c1.Inner, c2.Inner),
			ReachingCondition: c1.ReachingCondition,
		}
		seq.Nodes[i] = merged
		seq.Nodes = append(seq.Nodes[:i+1], seq.Nodes[i+2:]...)
		e.stats.NodesMerged++
		changed = true
		i--
	}
	return changed
}

// pairITE folds an adjacent pair of Code nodes whose reaching conditions are exact complements
// (cond2 ≡ ¬cond1) into a single Condition node with both a true and a false branch.
func (e *Engine) pairITE(seq *nodes.Sequence) bool {
	changed := false
	for i := 0; i < len(seq.Nodes)-1; i++ {
		c1, ok1 := seq.Nodes[i].(*nodes.Code)
		c2, ok2 := seq.Nodes[i+1].(*nodes.Code)
		if !ok1 || !ok2 || c1.ReachingCondition == nil || c2.ReachingCondition == nil {
			continue
		}
		if !boolformula.Equivalent(e.universe, e.universe.Not(c1.ReachingCondition), c2.ReachingCondition) {
			continue
		}
		cond := &nodes.Condition{
			Addr:      c1.Inner.NodeAddr(),
			Condition: c1.ReachingCondition,
			True:      c1.Inner,
			False:     c2.Inner,
		}
		seq.Nodes[i] = &nodes.Code{Inner: cond, ReachingCondition: e.universe.True()}
		seq.Nodes = append(seq.Nodes[:i+1], seq.Nodes[i+2:]...)
		e.stats.ITEsPaired++
		changed = true
	}
	return changed
}

// guardCommonSubexpr finds the longest run of consecutive Code nodes whose reaching conditions
// share a common sub-formula (e.g. every one of them is gated by the same "ptr != nil" check
// alongside something else) and factors that sub-formula out into a single enclosing Condition,
// leaving each member's own reaching condition reduced by that factor.
func (e *Engine) guardCommonSubexpr(seq *nodes.Sequence) bool {
	changed := false
	i := 0
	for i < len(seq.Nodes) {
		c, ok := seq.Nodes[i].(*nodes.Code)
		if !ok || c.ReachingCondition == nil || boolformula.IsTrue(e.universe, c.ReachingCondition) {
			i++
			continue
		}
		common := subexprSet(boolformula.Subexprs(c.ReachingCondition))
		j := i + 1
		for j < len(seq.Nodes) {
			c2, ok := seq.Nodes[j].(*nodes.Code)
			if !ok || c2.ReachingCondition == nil {
				break
			}
			common = intersectFormulas(common, subexprSet(boolformula.Subexprs(c2.ReachingCondition)))
			if len(common) == 0 {
				break
			}
			j++
		}
		if j-i < 2 || len(common) == 0 {
			i++
			continue
		}
		factor := smallestFormula(common)
		inner := nodes.NewSequence()
		for k := i; k < j; k++ {
			ck := seq.Nodes[k].(*nodes.Code)
			inner.AddNode(&nodes.Code{Inner: ck.Inner, ReachingCondition: factorOut(e.universe, ck.ReachingCondition, factor)})
		}
		guarded := &nodes.Code{
			Inner:             &nodes.Condition{Addr: seq.Nodes[i].NodeAddr(), Condition: factor, True: inner},
			ReachingCondition: e.universe.True(),
		}
		seq.Nodes = append(seq.Nodes[:i], append([]nodes.Node{guarded}, seq.Nodes[j:]...)...)
		e.stats.SubexprsGuarded++
		changed = true
		i++
	}
	return changed
}

func (e *Engine) promoteSingleElement(seq *nodes.Sequence) nodes.Node {
	if len(seq.Nodes) == 1 {
		if c, ok := seq.Nodes[0].(*nodes.Code); ok && c.ReachingCondition != nil && boolformula.IsTrue(e.universe, c.ReachingCondition) {
			return c.Inner
		}
	}
	return seq
}

func subexprSet(fs []*boolformula.Formula) map[*boolformula.Formula]bool {
	s := make(map[*boolformula.Formula]bool, len(fs))
	for _, f := range fs {
		s[f] = true
	}
	return s
}

func intersectFormulas(a, b map[*boolformula.Formula]bool) map[*boolformula.Formula]bool {
	out := make(map[*boolformula.Formula]bool)
	for f := range a {
		if b[f] {
			out[f] = true
		}
	}
	return out
}

func smallestFormula(set map[*boolformula.Formula]bool) *boolformula.Formula {
	var best *boolformula.Formula
	for f := range set {
		if best == nil || f.String() < best.String() {
			best = f
		}
	}
	return best
}

// factorOut returns f with the conjunct common removed: common itself becomes true, an And
// containing common as one of its operands becomes the And of the remaining operands (or true if
// common was the only one), and anything else is returned unchanged (the factor doesn't apply).
func factorOut(u *boolformula.Universe, f, common *boolformula.Formula) *boolformula.Formula {
	if f == common {
		return u.True()
	}
	if f.Op() == boolformula.OpAnd {
		var rest []*boolformula.Formula
		found := false
		for _, a := range f.Args() {
			if a == common {
				found = true
				continue
			}
			rest = append(rest, a)
		}
		if found {
			if len(rest) == 0 {
				return u.True()
			}
			return u.And(rest...)
		}
	}
	return f
}
