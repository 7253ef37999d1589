// Package nodes defines the structured AST the engine builds out of a region tree: sequences,
// conditionals, loops, switch/case dispatches, and the leaf block/multi-block wrappers that carry
// the original IL forward. Every variant implements Node so generic passes (walker.Walker, the
// IL-adapter dispatch functions in this package) can traverse and rewrite the tree without a type
// switch at every call site.
package nodes

import (
	"github.com/binstruct/structurer/boolformula"
	"github.com/binstruct/structurer/il"
	"github.com/binstruct/structurer/util/orderedmap"
)

// Kind identifies a Node's concrete variant.
type Kind int

const (
	KindILBlock Kind = iota
	KindMultiBlock
	KindCode
	KindSequence
	KindCondition
	KindLoop
	KindSwitchCase
	KindBreak
	KindConditionalBreak
)

// Node is a structured AST node.
type Node interface {
	Kind() Kind
	// NodeAddr returns the node's entry address, used for deterministic ordering and as the
	// identity region.Graph substitutes back into a parent region's graph once this node's
	// sub-region has been structured.
	NodeAddr() int64
	// Copy returns a shallow copy of the node: same children by reference, independent top-level
	// struct, so a rewrite can attach a new reaching condition or swap a child without aliasing
	// the node it copied.
	Copy() Node
}

// ILBlock wraps a single IL block as an AST leaf.
type ILBlock struct {
	Block *il.Block
}

func (n *ILBlock) Kind() Kind      { return KindILBlock }
func (n *ILBlock) NodeAddr() int64 { return n.Block.AddrV }
func (n *ILBlock) Copy() Node      { return &ILBlock{Block: n.Block} }

// MultiBlock is a run of IL blocks (or already-structured nodes) treated as a single atomic unit,
// e.g. a chain the region identifier had already merged before structuring began.
type MultiBlock struct {
	Nodes []Node
}

func (n *MultiBlock) Kind() Kind { return KindMultiBlock }
func (n *MultiBlock) NodeAddr() int64 {
	if len(n.Nodes) == 0 {
		return 0
	}
	return n.Nodes[0].NodeAddr()
}
func (n *MultiBlock) Copy() Node {
	cp := make([]Node, len(n.Nodes))
	copy(cp, n.Nodes)
	return &MultiBlock{Nodes: cp}
}

// Code wraps an inner node with the boolean formula under which it executes. A nil
// ReachingCondition means "unconditional" (always true).
type Code struct {
	Inner             Node
	ReachingCondition *boolformula.Formula
}

func (n *Code) Kind() Kind      { return KindCode }
func (n *Code) NodeAddr() int64 { return n.Inner.NodeAddr() }
func (n *Code) Copy() Node {
	return &Code{Inner: n.Inner, ReachingCondition: n.ReachingCondition}
}

// Sequence is an ordered list of nodes executed one after another.
type Sequence struct {
	Nodes []Node
}

// NewSequence builds a Sequence from nodes, flattening any nested Sequence arguments so a
// Sequence never directly contains another Sequence.
func NewSequence(nodes ...Node) *Sequence {
	s := &Sequence{}
	for _, n := range nodes {
		s.AddNode(n)
	}
	return s
}

func (n *Sequence) Kind() Kind { return KindSequence }
func (n *Sequence) NodeAddr() int64 {
	if len(n.Nodes) == 0 {
		return 0
	}
	return n.Nodes[0].NodeAddr()
}
func (n *Sequence) Copy() Node {
	cp := make([]Node, len(n.Nodes))
	copy(cp, n.Nodes)
	return &Sequence{Nodes: cp}
}

// AddNode appends child to the sequence, flattening it in place if child is itself a Sequence.
func (s *Sequence) AddNode(child Node) {
	if inner, ok := child.(*Sequence); ok {
		s.Nodes = append(s.Nodes, inner.Nodes...)
		return
	}
	s.Nodes = append(s.Nodes, child)
}

// InsertNode inserts child at position idx.
func (s *Sequence) InsertNode(idx int, child Node) {
	s.Nodes = append(s.Nodes, nil)
	copy(s.Nodes[idx+1:], s.Nodes[idx:])
	s.Nodes[idx] = child
}

// IndexOf returns the position of child in the sequence, or -1 if absent.
func (s *Sequence) IndexOf(child Node) int {
	for i, n := range s.Nodes {
		if n == child {
			return i
		}
	}
	return -1
}

// RemoveNode removes the first occurrence of child, reporting whether it was found.
func (s *Sequence) RemoveNode(child Node) bool {
	idx := s.IndexOf(child)
	if idx < 0 {
		return false
	}
	s.Nodes = append(s.Nodes[:idx], s.Nodes[idx+1:]...)
	return true
}

// IsEmpty reports whether the sequence has no nodes.
func (s *Sequence) IsEmpty() bool { return len(s.Nodes) == 0 }

// LoopKind identifies which surface form a Loop should be rendered as.
type LoopKind int

const (
	LoopEndless LoopKind = iota
	LoopWhile
	LoopDoWhile
)

// Loop is a structured loop. Condition is nil for an endless loop (LoopEndless); for LoopWhile it
// is tested before Body runs, for LoopDoWhile after.
type Loop struct {
	Addr      int64
	Sort      LoopKind
	Condition *boolformula.Formula
	Body      *Sequence
}

func (n *Loop) Kind() Kind      { return KindLoop }
func (n *Loop) NodeAddr() int64 { return n.Addr }
func (n *Loop) Copy() Node      { c := *n; return &c }

// Condition is an if/else (when False is non-nil) or a bare if (False is nil).
type Condition struct {
	Addr      int64
	Condition *boolformula.Formula
	True      Node
	False     Node
}

func (n *Condition) Kind() Kind      { return KindCondition }
func (n *Condition) NodeAddr() int64 { return n.Addr }
func (n *Condition) Copy() Node      { c := *n; return &c }

// SwitchCase is a structured switch/case dispatch. Cases maps a normalized case value to the node
// executed for it; Default is the (possibly nil) node executed when no case matches.
type SwitchCase struct {
	Addr    int64
	Expr    il.Expr
	Cases   *orderedmap.OrderedMap[int64, Node]
	Default Node
}

func (n *SwitchCase) Kind() Kind      { return KindSwitchCase }
func (n *SwitchCase) NodeAddr() int64 { return n.Addr }
func (n *SwitchCase) Copy() Node      { c := *n; return &c }

// Break exits the nearest enclosing loop unconditionally, jumping conceptually to Target.
type Break struct {
	Addr   int64
	Target int64
}

func (n *Break) Kind() Kind      { return KindBreak }
func (n *Break) NodeAddr() int64 { return n.Addr }
func (n *Break) Copy() Node      { c := *n; return &c }

// ConditionalBreak exits the nearest enclosing loop when Condition holds.
type ConditionalBreak struct {
	Addr      int64
	Condition *boolformula.Formula
	Target    int64
}

func (n *ConditionalBreak) Kind() Kind      { return KindConditionalBreak }
func (n *ConditionalBreak) NodeAddr() int64 { return n.Addr }
func (n *ConditionalBreak) Copy() Node      { c := *n; return &c }

// IsEmpty reports whether n contributes no code to its parent: an ILBlock with no statements, a
// Sequence/MultiBlock with no children, or a Code wrapping an empty node. Everything else
// (Condition, Loop, SwitchCase, Break, ConditionalBreak) is never considered empty even if its
// children are, since the control-flow construct itself is meaningful.
func IsEmpty(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *ILBlock:
		return v.Block == nil || len(v.Block.Statements) == 0
	case *Sequence:
		return len(v.Nodes) == 0
	case *MultiBlock:
		return len(v.Nodes) == 0
	case *Code:
		return IsEmpty(v.Inner)
	default:
		return false
	}
}
