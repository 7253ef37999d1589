package boolformula

import "errors"

// ErrUnhandledILOp is the underlying cause wrapped into structurer's UnhandledILOp error kind: an
// IL expression could not be lifted into a formula at all (currently only a nil expression).
var ErrUnhandledILOp = errors.New("boolformula: unhandled IL operation")

// ErrUnhandledBoolOp is the underlying cause wrapped into structurer's UnhandledBoolOp error kind:
// a formula leaf had no recorded IL mapping when lowering back to IL.
var ErrUnhandledBoolOp = errors.New("boolformula: unhandled boolean operation")
