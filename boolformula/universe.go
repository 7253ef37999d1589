package boolformula

import "sync"

// Universe is a hash-cons arena: it guarantees that two structurally-equal formulas built through
// it are the same *Formula pointer. An Engine owns one Universe by default (see the structurer
// package's WithSharedHashCons option for the cross-region-sharing alternative), in which case no
// locking is necessary; Universe is safe for concurrent use regardless; the mutex only matters
// when a Universe is shared across goroutines.
type Universe struct {
	mu   sync.Mutex
	cons map[string]*Formula

	trueF  *Formula
	falseF *Formula
}

// NewUniverse returns an empty hash-cons arena.
func NewUniverse() *Universe {
	u := &Universe{cons: make(map[string]*Formula)}
	u.trueF = &Formula{op: OpTrue, key: "true"}
	u.falseF = &Formula{op: OpFalse, key: "false"}
	u.cons[u.trueF.key] = u.trueF
	u.cons[u.falseF.key] = u.falseF
	return u
}

func (u *Universe) intern(f *Formula) *Formula {
	u.mu.Lock()
	defer u.mu.Unlock()
	if existing, ok := u.cons[f.key]; ok {
		return existing
	}
	u.cons[f.key] = f
	return f
}

// True returns the canonical true formula.
func (u *Universe) True() *Formula { return u.trueF }

// False returns the canonical false formula.
func (u *Universe) False() *Formula { return u.falseF }

// Leaf returns the canonical formula for the opaque variable named name, creating it if this is
// the first time name has been seen.
func (u *Universe) Leaf(name string) *Formula {
	return u.intern(&Formula{op: OpLeaf, leaf: name, key: "leaf(" + name + ")"})
}

// Not returns ¬f, collapsing double negation and literals.
func (u *Universe) Not(f *Formula) *Formula {
	switch f.op {
	case OpTrue:
		return u.falseF
	case OpFalse:
		return u.trueF
	case OpNot:
		return f.args[0]
	}
	return u.intern(&Formula{op: OpNot, args: []*Formula{f}, key: "not(" + f.key + ")"})
}

// And returns the conjunction of fs, flattening nested Ands, dropping duplicates and literal
// True operands, short-circuiting to False if any operand is False or if a formula and its
// negation both appear, and canonicalizing argument order so two conjunctions over the same
// operand set hash-cons to the same pointer regardless of construction order.
func (u *Universe) And(fs ...*Formula) *Formula {
	return u.assoc(OpAnd, fs)
}

// Or returns the disjunction of fs, with the same flattening/canonicalization/short-circuiting
// rules as And (mirrored: True short-circuits, False/duplicates drop, complementary pairs collapse
// to True).
func (u *Universe) Or(fs ...*Formula) *Formula {
	return u.assoc(OpOr, fs)
}

func (u *Universe) assoc(op Op, fs []*Formula) *Formula {
	var flat []*Formula
	var flatten func(*Formula)
	flatten = func(f *Formula) {
		if f.op == op {
			for _, a := range f.args {
				flatten(a)
			}
			return
		}
		flat = append(flat, f)
	}
	for _, f := range fs {
		flatten(f)
	}

	shortCircuit, identity := u.falseF, u.trueF
	if op == OpOr {
		shortCircuit, identity = u.trueF, u.falseF
	}

	seen := make(map[*Formula]bool)
	negSeen := make(map[*Formula]bool)
	var dedup []*Formula
	for _, f := range flat {
		if f == shortCircuit {
			return shortCircuit
		}
		if f == identity || seen[f] {
			continue
		}
		if negSeen[f] {
			return shortCircuit
		}
		seen[f] = true
		if f.op == OpNot {
			negSeen[f.args[0]] = true
		} else {
			negSeen[u.Not(f)] = true
		}
		dedup = append(dedup, f)
	}

	if len(dedup) == 0 {
		return identity
	}
	if len(dedup) == 1 {
		return dedup[0]
	}

	sortFormulas(dedup)

	opName := "and"
	if op == OpOr {
		opName = "or"
	}
	return u.intern(&Formula{op: op, args: dedup, key: joinKeys(opName, dedup)})
}
