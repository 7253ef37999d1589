// Package structurer turns a region tree (the output of CFG recovery and region identification,
// both out of scope here) into a structured AST of sequences, conditionals, loops, and switch/
// case dispatches. It is the direct analogue of a decompiler's control-flow structuring phase.
package structurer

import (
	"github.com/binstruct/structurer/boolformula"
	"github.com/binstruct/structurer/il"
	"github.com/binstruct/structurer/jumptable"
	"github.com/binstruct/structurer/nodes"
	"github.com/binstruct/structurer/project"
	"github.com/binstruct/structurer/region"
)

// Engine structures region trees. An Engine is not safe for concurrent use on the same Structure
// call, but distinct Engines (the default under BatchStructure) may run concurrently; see
// WithSharedHashCons if you need one formula Universe shared across them.
type Engine struct {
	universe *boolformula.Universe
	cm       *boolformula.ConditionMapping
	stats    Stats

	arch       project.Arch
	jumpTables *jumptable.Map
}

// NewEngine returns an Engine configured by opts.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{cm: boolformula.NewConditionMapping()}
	for _, opt := range opts {
		opt(e)
	}
	if e.universe == nil {
		e.universe = boolformula.NewUniverse()
	}
	return e
}

// Stats returns a snapshot of the engine's diagnostic counters, accumulated across every
// Structure call made on it so far.
func (e *Engine) Stats() Stats { return e.stats }

// Structure turns r into a structured AST. r is not mutated; structuring works on a deep copy.
func Structure(r *region.Region, arch project.Arch, jumpTables *jumptable.Map) (nodes.Node, error) {
	return NewEngine().Structure(r, arch, jumpTables)
}

// Structure turns r into a structured AST using e's formula Universe and condition mapping. r is
// not mutated.
func (e *Engine) Structure(r *region.Region, arch project.Arch, jumpTables *jumptable.Map) (nodes.Node, error) {
	e.arch = arch
	e.jumpTables = jumpTables
	if e.jumpTables == nil {
		e.jumpTables = jumptable.NewMap()
	}
	return e.recursiveStructure(r.RecursiveCopy())
}

// recursiveStructure structures r bottom-up: every nested *region.Region appearing as a node in
// r's graph is structured first and substituted back in place of the sub-region node, so that by
// the time r itself is structured, its graph contains only leaf IL blocks and already-structured
// AST nodes.
func (e *Engine) recursiveStructure(r *region.Region) (nodes.Node, error) {
	for _, n := range r.Graph.Nodes() {
		sub, ok := n.(*region.Region)
		if !ok {
			continue
		}
		structured, err := e.recursiveStructure(sub)
		if err != nil {
			return nil, err
		}
		r.Replace(sub, structured)
	}
	if sub, ok := r.Head.(*region.Region); ok {
		structured, err := e.recursiveStructure(sub)
		if err != nil {
			return nil, err
		}
		r.Replace(sub, structured)
	}

	return e.structureSingleRegion(r)
}

func (e *Engine) structureSingleRegion(r *region.Region) (nodes.Node, error) {
	if r.Graph.IsDAG() {
		e.stats.recordRegion(false)
		return e.structureAcyclicRegion(r)
	}
	e.stats.recordRegion(true)
	return e.structureCyclicRegion(r)
}

func lastStatementOf(n region.Node) (il.Stmt, error) {
	switch v := n.(type) {
	case *il.Block:
		return v.LastStatement()
	case nodes.Node:
		return nodes.LastStatement(v)
	}
	return nil, nodes.ErrNoLastStatement
}
