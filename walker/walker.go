// Package walker implements a generic pre-order traversal over a structured AST (nodes.Node), for
// passes that need to inspect or mutate nodes in place while knowing their parent, child index,
// and the edge's role (e.g. a Condition's "true" vs "false" branch). The structurer's own rewrite
// passes do not use it; they recurse over the node types directly.
package walker

import "github.com/binstruct/structurer/nodes"

// Context carries the parent/index/label triple of the edge a Handler was invoked on. Parent is
// nil at the root. Label disambiguates children that aren't part of an indexable slice (a
// Condition's True/False branches, a Loop's Body, a SwitchCase's cases/default).
type Context struct {
	Parent nodes.Node
	Index  int
	Label  string
}

// Handler is invoked for every node of the Kind it's registered for. A handler that wants to
// continue descending into n's own children should call w.Default(n, ctx) itself; returning
// without doing so prunes that subtree from the walk.
type Handler func(w *Walker, n nodes.Node, ctx Context)

// Walker drives a pre-order traversal, dispatching to a registered Handler per nodes.Kind and
// falling back to structural descent (Default) for kinds with no handler.
type Walker struct {
	Handlers map[nodes.Kind]Handler
}

// New returns a Walker with the given per-kind handlers.
func New(handlers map[nodes.Kind]Handler) *Walker {
	return &Walker{Handlers: handlers}
}

// Walk traverses root pre-order.
func (w *Walker) Walk(root nodes.Node) {
	w.walk(root, Context{})
}

func (w *Walker) walk(n nodes.Node, ctx Context) {
	if n == nil {
		return
	}
	if h, ok := w.Handlers[n.Kind()]; ok {
		h(w, n, ctx)
		return
	}
	w.Default(n, ctx)
}

// Default performs the structural descent into n's children, ignoring any handler registered for
// n's own kind (so a handler can invoke it to continue past the node it was just called with).
func (w *Walker) Default(n nodes.Node, ctx Context) {
	switch v := n.(type) {
	case *nodes.Sequence:
		for i, child := range v.Nodes {
			w.walk(child, Context{Parent: v, Index: i})
		}
	case *nodes.MultiBlock:
		for i, child := range v.Nodes {
			w.walk(child, Context{Parent: v, Index: i})
		}
	case *nodes.Code:
		w.walk(v.Inner, Context{Parent: v, Label: "inner"})
	case *nodes.Condition:
		w.walk(v.True, Context{Parent: v, Label: "true"})
		w.walk(v.False, Context{Parent: v, Label: "false"})
	case *nodes.Loop:
		w.walk(v.Body, Context{Parent: v, Label: "body"})
	case *nodes.SwitchCase:
		if v.Cases != nil {
			for _, p := range v.Cases.Pairs {
				w.walk(p.Value, Context{Parent: v, Label: "case"})
			}
		}
		w.walk(v.Default, Context{Parent: v, Label: "default"})
	}
}
