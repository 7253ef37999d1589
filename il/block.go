package il

import "errors"

// ErrEmptyBlock is returned by LastStatement when the block has no statements. The structuring
// engine treats it as a local signal rather than a failure: an empty block simply has no
// terminator to inspect, and is structured as an empty node.
var ErrEmptyBlock = errors.New("il: block has no statements")

// Block is a straight-line run of statements with a single entry address. It is the leaf node
// type of a region tree.
type Block struct {
	AddrV      int64
	Statements []Stmt
}

// NodeAddr implements the addressable interface region.Graph and nodes.Node rely on for
// deterministic tie-breaking and lookups against jump targets.
func (b *Block) NodeAddr() int64 { return b.AddrV }

// LastStatement returns the block's final statement, or ErrEmptyBlock if the block is empty.
func (b *Block) LastStatement() (Stmt, error) {
	if len(b.Statements) == 0 {
		return nil, ErrEmptyBlock
	}
	return b.Statements[len(b.Statements)-1], nil
}

// RemoveLastStatement pops and returns the block's final statement, or nil if the block is empty.
func (b *Block) RemoveLastStatement() Stmt {
	if len(b.Statements) == 0 {
		return nil
	}
	s := b.Statements[len(b.Statements)-1]
	b.Statements = b.Statements[:len(b.Statements)-1]
	return s
}

// AppendStatement appends s to the block.
func (b *Block) AppendStatement(s Stmt) {
	b.Statements = append(b.Statements, s)
}

// Copy returns a deep-enough copy of b: a new Block with an independent Statements slice, so that
// mutating the copy (via RemoveLastStatement/AppendStatement) never aliases the original region
// tree's blocks.
func (b *Block) Copy() *Block {
	stmts := make([]Stmt, len(b.Statements))
	copy(stmts, b.Statements)
	return &Block{AddrV: b.AddrV, Statements: stmts}
}

// NodeCopy implements region's optional copier interface so that region.Region.RecursiveCopy can
// deep-copy leaf blocks without region needing to import this package.
func (b *Block) NodeCopy() any { return b.Copy() }
