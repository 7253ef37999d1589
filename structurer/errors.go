package structurer

import (
	"errors"

	"github.com/binstruct/structurer/boolformula"
)

// Error kinds the engine reports. Every error Structure/BatchStructure returns wraps exactly one
// of these via errors.Is, so callers can branch on failure category without string matching.
var (
	// ErrEmptyBlock names the empty-block error kind. The engine's own passes do not return it:
	// an IL block with no statements is treated as having no terminator (see il.ErrEmptyBlock),
	// e.g. its outgoing edges get condition true, and it is structured as an empty node.
	ErrEmptyBlock = errors.New("structurer: empty block")

	// ErrUnhandledILOp wraps boolformula.ErrUnhandledILOp: an IL expression could not be lifted
	// into a formula.
	ErrUnhandledILOp = boolformula.ErrUnhandledILOp

	// ErrUnhandledBoolOp wraps boolformula.ErrUnhandledBoolOp: a formula leaf had no IL mapping
	// when lowering back to IL.
	ErrUnhandledBoolOp = boolformula.ErrUnhandledBoolOp

	// ErrLoopExitAmbiguous is raised when a cyclic region has more than one successor but its body
	// records no break target to any of them: the edges the region identifier promised exist were
	// never observed, so there is nothing for the multi-successor dispatch refinement to work from.
	// A body with more than one distinct break target is not an error case; it is disambiguated via
	// a synthesized selector and a post-loop dispatcher instead.
	ErrLoopExitAmbiguous = errors.New("structurer: loop has ambiguous exit target")

	// ErrMalformedRegion is raised when a region tree violates a structural precondition the
	// engine relies on: a node of an unrecognized type, a topological sort that fails on a region
	// claimed to be acyclic, or a fixed-point rewrite that didn't converge within
	// config.MaxFixedPointRounds.
	ErrMalformedRegion = errors.New("structurer: malformed region")

	// ErrStrayBackEdge is raised when a structured loop body or switch-case body ends in a trailing
	// Jump to an address that is neither the expected continuation (the loop head, for a loop body;
	// the switch's common exit, for a case body) nor a recognized successor: an edge the rewrite
	// pipeline has no rule for and should never have been handed in the first place.
	ErrStrayBackEdge = errors.New("structurer: stray back edge in acyclic region")
)
