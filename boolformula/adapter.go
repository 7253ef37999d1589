package boolformula

import (
	"fmt"

	"github.com/binstruct/structurer/il"
	"github.com/binstruct/structurer/util/orderedmap"
)

// ConditionMapping records, for every opaque leaf a Universe has produced while lifting IL
// expressions into formulas, the original il.Expr it stands in for. Lowering a formula back to IL
// consults this mapping; a leaf with no entry means the formula was built from a leaf name the
// adapter never produced (UnhandledBoolOp).
type ConditionMapping struct {
	exprOf *orderedmap.OrderedMap[string, il.Expr]
}

// NewConditionMapping returns an empty mapping.
func NewConditionMapping() *ConditionMapping {
	return &ConditionMapping{exprOf: orderedmap.New[string, il.Expr]()}
}

// Lookup returns the IL expression recorded for leaf name, if any.
func (cm *ConditionMapping) Lookup(leaf string) (il.Expr, bool) {
	return cm.exprOf.Load(leaf)
}

// Len reports how many distinct leaves have been recorded.
func (cm *ConditionMapping) Len() int { return cm.exprOf.Len() }

// LiftILExpr converts an IL expression into a formula. Only the two boolean connectives
// (LogicalAnd, LogicalOr) and logical negation are decomposed structurally; every other
// expression — comparisons, loads, registers, arithmetic, dirty calls — becomes a single opaque
// leaf keyed by the expression's canonical String(), with the original expression recorded in cm
// so LowerFormula can recover it verbatim.
func LiftILExpr(u *Universe, cm *ConditionMapping, e il.Expr) (*Formula, error) {
	if e == nil {
		return nil, fmt.Errorf("boolformula: %w: nil expression", ErrUnhandledILOp)
	}
	switch v := e.(type) {
	case *il.UnaryOp:
		if v.IsLogicalNot() {
			inner, err := LiftILExpr(u, cm, v.Operand)
			if err != nil {
				return nil, err
			}
			return u.Not(inner), nil
		}
	case *il.BinaryOp:
		if v.IsLogicalAnd() {
			l, err := LiftILExpr(u, cm, v.Operands[0])
			if err != nil {
				return nil, err
			}
			r, err := LiftILExpr(u, cm, v.Operands[1])
			if err != nil {
				return nil, err
			}
			return u.And(l, r), nil
		}
		if v.IsLogicalOr() {
			l, err := LiftILExpr(u, cm, v.Operands[0])
			if err != nil {
				return nil, err
			}
			r, err := LiftILExpr(u, cm, v.Operands[1])
			if err != nil {
				return nil, err
			}
			return u.Or(l, r), nil
		}
	}

	name := e.String()
	leaf := u.Leaf(name)
	if _, ok := cm.exprOf.Load(name); !ok {
		cm.exprOf.Store(name, e)
	}
	return leaf, nil
}

// LowerFormula converts a formula back into an IL expression, folding And/Or into left-nested
// LogicalAnd/LogicalOr binary ops and Not into a UnaryOp, and recovering opaque leaves verbatim
// from cm. Returns ErrUnhandledBoolOp if a leaf has no recorded expression.
func LowerFormula(cm *ConditionMapping, f *Formula) (il.Expr, error) {
	switch f.op {
	case OpTrue:
		return &il.Const{Value: 1, BitsN: 1}, nil
	case OpFalse:
		return &il.Const{Value: 0, BitsN: 1}, nil
	case OpLeaf:
		e, ok := cm.Lookup(f.leaf)
		if !ok {
			return nil, fmt.Errorf("boolformula: %w: leaf %q has no IL mapping", ErrUnhandledBoolOp, f.leaf)
		}
		return e, nil
	case OpNot:
		inner, err := LowerFormula(cm, f.args[0])
		if err != nil {
			return nil, err
		}
		return &il.UnaryOp{Op: "Not", Operand: inner, BitsN: 1}, nil
	case OpAnd:
		return foldBinary(cm, "LogicalAnd", f.args)
	case OpOr:
		return foldBinary(cm, "LogicalOr", f.args)
	}
	return nil, fmt.Errorf("boolformula: %w: unknown op", ErrUnhandledBoolOp)
}

func foldBinary(cm *ConditionMapping, op string, args []*Formula) (il.Expr, error) {
	first, err := LowerFormula(cm, args[0])
	if err != nil {
		return nil, err
	}
	acc := first
	for _, a := range args[1:] {
		next, err := LowerFormula(cm, a)
		if err != nil {
			return nil, err
		}
		acc = &il.BinaryOp{Op: op, Operands: [2]il.Expr{acc, next}, BitsN: 1}
	}
	return acc, nil
}
