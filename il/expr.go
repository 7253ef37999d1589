// Package il models the narrow slice of an intermediate-language representation that the
// structuring engine consumes. It does not recover, parse, or interpret machine code; it only
// defines the block/statement/expression shapes the engine pattern-matches on when lifting jump
// targets and branch conditions out of a region tree.
package il

import "fmt"

// Expr is an IL expression. The engine treats every concrete Expr as opaque data except where it
// pattern-matches a handful of shapes explicitly (conditional-jump conditions, jump targets).
type Expr interface {
	// Bits reports the expression's bit width.
	Bits() int
	// String returns a canonical textual form. Two expressions that denote the same IL value
	// should produce the same string; boolformula uses this as the hash-cons key for the opaque
	// leaf standing in for the expression.
	String() string
}

// Const is an integer constant.
type Const struct {
	Value int64
	BitsN int
}

func (c *Const) Bits() int      { return c.BitsN }
func (c *Const) String() string { return fmt.Sprintf("%d<%d>", c.Value, c.BitsN) }

// Register is a read of an architectural register.
type Register struct {
	Name  string
	Idx   int
	BitsN int
}

func (r *Register) Bits() int { return r.BitsN }
func (r *Register) String() string {
	return fmt.Sprintf("reg_%s-%d<%d>", r.Name, r.Idx, r.BitsN)
}

// Load is a memory read.
type Load struct {
	Addr      Expr
	SizeBytes int
	BitsN     int
}

func (l *Load) Bits() int { return l.BitsN }
func (l *Load) String() string {
	return fmt.Sprintf("Load(addr=%s, size=%d)", l.Addr, l.SizeBytes)
}

// Tmp is a reference to a block-local temporary.
type Tmp struct {
	Idx   int
	BitsN int
}

func (t *Tmp) Bits() int      { return t.BitsN }
func (t *Tmp) String() string { return fmt.Sprintf("tmp_%d<%d>", t.Idx, t.BitsN) }

// Convert is a bit-width (or signedness) conversion.
type Convert struct {
	FromBits int
	ToBits   int
	Operand  Expr
}

func (c *Convert) Bits() int { return c.ToBits }
func (c *Convert) String() string {
	return fmt.Sprintf("Conv(%d->%d, %s)", c.FromBits, c.ToBits, c.Operand)
}

// UnaryOp applies a unary operator, e.g. "Not", "Neg".
type UnaryOp struct {
	Op      string
	Operand Expr
	BitsN   int
}

func (u *UnaryOp) Bits() int      { return u.BitsN }
func (u *UnaryOp) String() string { return fmt.Sprintf("%s(%s)", u.Op, u.Operand) }

// IsLogicalNot reports whether u is the boolean-negation operator, the one unary op boolformula
// decomposes structurally instead of treating as an opaque leaf.
func (u *UnaryOp) IsLogicalNot() bool { return u.Op == "Not" }

// BinaryOp applies a binary operator, e.g. "LogicalAnd", "LogicalOr", "CmpEQ", "CmpLE", "Add",
// "Sub", "Xor", "Shr".
type BinaryOp struct {
	Op       string
	Operands [2]Expr
	BitsN    int
}

func (b *BinaryOp) Bits() int { return b.BitsN }
func (b *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Operands[0], b.Op, b.Operands[1])
}

// IsLogicalAnd and IsLogicalOr report whether b is one of the two boolean connectives boolformula
// decomposes structurally; every other BinaryOp (comparisons, arithmetic, bitwise ops) becomes an
// opaque leaf when lifted into a formula.
func (b *BinaryOp) IsLogicalAnd() bool { return b.Op == "LogicalAnd" }
func (b *BinaryOp) IsLogicalOr() bool  { return b.Op == "LogicalOr" }

// DirtyExpression wraps a call to IL-external helper logic (e.g. a CPU flag computation) that the
// engine cannot interpret and carries forward opaquely.
type DirtyExpression struct {
	Name  string
	BitsN int
}

func (d *DirtyExpression) Bits() int      { return d.BitsN }
func (d *DirtyExpression) String() string { return fmt.Sprintf("Dirty(%s)", d.Name) }
