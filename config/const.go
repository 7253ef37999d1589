// Package config hosts non-user-configurable parameters for the structuring engine. These are
// development-time constants, not options a caller can tune per analysis; see the structurer
// package's functional options for user-facing configuration.
package config

// MaxFixedPointRounds bounds the number of rounds the acyclic pipeline's rewrite pass
// (rewriteSequence) applies to a single region's top-level sequence. Nested sequences a rewrite
// creates (inside an if/else or a guarded group) are not rewritten by further rounds. A
// well-formed region tree converges in a handful of rounds; exceeding this limit
// means a rewrite rule is re-creating work it just consumed, which is a bug in the region tree or
// in the pipeline itself, not a shape the engine should silently truncate. Exceeding it produces a
// MalformedRegion error.
const MaxFixedPointRounds = 64

// SyntheticSuccessorAddr is the sentinel address successor refinement uses once a multi-exit loop's
// breaks are routed through a synthesized selector: every rewritten Break targets it, and the
// synthetic selector-assignment blocks and post-loop dispatcher carry it as their address. The
// switch/case goto-to-break conversion also passes it as an impossible loop-head address. It must
// not collide with any real block address.
const SyntheticSuccessorAddr = -1

// StableRoundLimit is the number of rounds the short-circuit-reversal rewrite
// (boolformula.Simplify) may be applied to a single formula before giving up and returning the
// formula as-is. Formulas arising from real IL comparisons are small; a formula that doesn't
// stabilize within this many passes indicates a malformed or cyclic expression tree upstream.
// Setting this too low could leave !A||(A&&!B) un-recognized as !(A&&B), which would cause
// if/else pairing (structurer's make_ites) to miss a pair it should have matched.
const StableRoundLimit = 5
