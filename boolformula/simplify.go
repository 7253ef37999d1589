package boolformula

import "github.com/binstruct/structurer/config"

// maxEquivalenceLeaves bounds the truth-table enumeration Equivalent performs. Formulas arising
// from real IL conditions are small (the engine never builds formulas over more than a handful of
// distinct comparisons), so this is generous headroom, not a tuning knob callers are expected to
// hit; beyond it, Equivalent degrades to hash-consed pointer equality rather than paying an
// exponential cost no formula in practice needs.
const maxEquivalenceLeaves = 16

// IsTrue reports whether f is equivalent to true.
func IsTrue(u *Universe, f *Formula) bool { return Equivalent(u, f, u.trueF) }

// IsFalse reports whether f is equivalent to false.
func IsFalse(u *Universe, f *Formula) bool { return Equivalent(u, f, u.falseF) }

// Equivalent reports whether a and b denote the same boolean function, checked by enumerating
// every assignment of the leaves appearing in either formula. This is the engine's substitute for
// a SAT/BDD solver; see the package doc and DESIGN.md for why no such library is wired in.
func Equivalent(u *Universe, a, b *Formula) bool {
	if a == b {
		return true
	}
	leafSet := map[string]bool{}
	for _, l := range Leaves(a) {
		leafSet[l] = true
	}
	for _, l := range Leaves(b) {
		leafSet[l] = true
	}
	if len(leafSet) > maxEquivalenceLeaves {
		return false
	}
	names := make([]string, 0, len(leafSet))
	for l := range leafSet {
		names = append(names, l)
	}

	n := len(names)
	total := 1 << uint(n)
	assignment := make(map[string]bool, n)
	for mask := 0; mask < total; mask++ {
		for i, name := range names {
			assignment[name] = mask&(1<<uint(i)) != 0
		}
		if eval(a, assignment) != eval(b, assignment) {
			return false
		}
	}
	return true
}

func eval(f *Formula, assignment map[string]bool) bool {
	switch f.op {
	case OpTrue:
		return true
	case OpFalse:
		return false
	case OpLeaf:
		return assignment[f.leaf]
	case OpNot:
		return !eval(f.args[0], assignment)
	case OpAnd:
		for _, a := range f.args {
			if !eval(a, assignment) {
				return false
			}
		}
		return true
	case OpOr:
		for _, a := range f.args {
			if eval(a, assignment) {
				return true
			}
		}
		return false
	}
	return false
}

// Simplify rewrites f to a (hash-cons-canonical) simplified form: the And/Or/Not construction in
// Universe already handles flattening, literal absorption, and duplicate/complementary-pair
// collapsing; Simplify additionally applies the short-circuit-reversal rewrite
// (¬A ∨ (A ∧ ¬B) ⇒ ¬(A ∧ B)) to a fixed point, bounded by config.StableRoundLimit.
func Simplify(u *Universe, f *Formula) *Formula {
	cur := rebuild(u, f)
	for i := 0; i < config.StableRoundLimit; i++ {
		next := revertShortCircuit(u, cur)
		if next == cur {
			return cur
		}
		cur = rebuild(u, next)
	}
	return cur
}

// rebuild recursively reconstructs f through u, so that a formula built by hand (or received from
// another Universe) ends up using this Universe's canonical flattening/dedup rules.
func rebuild(u *Universe, f *Formula) *Formula {
	switch f.op {
	case OpTrue:
		return u.trueF
	case OpFalse:
		return u.falseF
	case OpLeaf:
		return u.Leaf(f.leaf)
	case OpNot:
		return u.Not(rebuild(u, f.args[0]))
	case OpAnd:
		args := make([]*Formula, len(f.args))
		for i, a := range f.args {
			args[i] = rebuild(u, a)
		}
		return u.And(args...)
	case OpOr:
		args := make([]*Formula, len(f.args))
		for i, a := range f.args {
			args[i] = rebuild(u, a)
		}
		return u.Or(args...)
	}
	return f
}

// revertShortCircuit looks for the short-circuit pattern ¬A ∨ (A ∧ ¬B) at every Or inside f (the
// shape reaching conditions take when built from short-circuited source-level
// "if (!a || (a && !b))" style conditions) and rewrites it to ¬(A ∧ B) when an equivalence check
// confirms the rewrite is sound. Returns f unchanged if no instance is found.
func revertShortCircuit(u *Universe, f *Formula) *Formula {
	if f.op != OpOr {
		return rewriteChildren(u, f, revertShortCircuit)
	}
	for i, di := range f.args {
		notA, ok := asNot(di)
		if !ok {
			continue
		}
		a := notA
		for j, dj := range f.args {
			if i == j {
				continue
			}
			if dj.op != OpAnd {
				continue
			}
			for _, conj := range dj.args {
				if conj != a {
					continue
				}
				var rest []*Formula
				for _, c := range dj.args {
					if c != a {
						rest = append(rest, c)
					}
				}
				if len(rest) == 0 {
					continue
				}
				// rest holds ¬B, so the rewritten form is ¬(A ∧ ¬rest) = ¬(A ∧ B).
				restAnd := u.And(rest...)
				candidate := u.Not(u.And(a, u.Not(restAnd)))
				if Equivalent(u, candidate, f) {
					return rewriteChildren(u, candidate, revertShortCircuit)
				}
			}
		}
	}
	return rewriteChildren(u, f, revertShortCircuit)
}

func asNot(f *Formula) (*Formula, bool) {
	if f.op == OpNot {
		return f.args[0], true
	}
	return nil, false
}

func rewriteChildren(u *Universe, f *Formula, rw func(*Universe, *Formula) *Formula) *Formula {
	switch f.op {
	case OpNot:
		return u.Not(rw(u, f.args[0]))
	case OpAnd:
		args := make([]*Formula, len(f.args))
		for i, a := range f.args {
			args[i] = rw(u, a)
		}
		return u.And(args...)
	case OpOr:
		args := make([]*Formula, len(f.args))
		for i, a := range f.args {
			args[i] = rw(u, a)
		}
		return u.Or(args...)
	default:
		return f
	}
}
