package nodes

import (
	"errors"

	"github.com/binstruct/structurer/il"
	"github.com/binstruct/structurer/region"
)

// ErrNoLastStatement is returned by LastStatement when n (or, recursively, all of its children)
// carries no IL statement at all. An empty ILBlock reached directly (or through a Code) reports
// il.ErrEmptyBlock instead.
var ErrNoLastStatement = errors.New("nodes: node has no last statement")

// LastStatement returns the final IL statement n would emit, looking through the wrapper/
// container node kinds (Code, Sequence, MultiBlock, Loop) to find it. Condition, SwitchCase,
// Break, and ConditionalBreak never carry a trailing IL statement of their own.
func LastStatement(n Node) (il.Stmt, error) {
	switch v := any(n).(type) {
	case nil:
		return nil, ErrNoLastStatement
	case *ILBlock:
		return v.Block.LastStatement()
	case *MultiBlock:
		for i := len(v.Nodes) - 1; i >= 0; i-- {
			if s, err := LastStatement(v.Nodes[i]); err == nil {
				return s, nil
			}
		}
		return nil, ErrNoLastStatement
	case *Sequence:
		for i := len(v.Nodes) - 1; i >= 0; i-- {
			if s, err := LastStatement(v.Nodes[i]); err == nil {
				return s, nil
			}
		}
		return nil, ErrNoLastStatement
	case *Code:
		return LastStatement(v.Inner)
	case *Loop:
		return LastStatement(v.Body)
	case *region.Region:
		// Defensive: reaching here means a region-tree node slipped through without being
		// structured first. Mirrors the original algorithm's own defensive GraphRegion branch.
		return nil, ErrNoLastStatement
	default:
		return nil, ErrNoLastStatement
	}
}

// RemoveLastStatement pops and returns the final IL statement reachable from n (see
// LastStatement for the traversal rule), or nil if none exists.
func RemoveLastStatement(n Node) il.Stmt {
	switch v := n.(type) {
	case *ILBlock:
		return v.Block.RemoveLastStatement()
	case *MultiBlock:
		for i := len(v.Nodes) - 1; i >= 0; i-- {
			if s := RemoveLastStatement(v.Nodes[i]); s != nil {
				return s
			}
		}
	case *Sequence:
		for i := len(v.Nodes) - 1; i >= 0; i-- {
			if s := RemoveLastStatement(v.Nodes[i]); s != nil {
				return s
			}
		}
	case *Code:
		return RemoveLastStatement(v.Inner)
	case *Loop:
		return RemoveLastStatement(v.Body)
	}
	return nil
}

// AppendStatement appends s to the IL block at the end of n's traversal (see LastStatement for
// the traversal rule). It is a no-op for node kinds with no trailing IL block to append to.
func AppendStatement(n Node, s il.Stmt) {
	switch v := n.(type) {
	case *ILBlock:
		v.Block.AppendStatement(s)
	case *MultiBlock:
		if len(v.Nodes) > 0 {
			AppendStatement(v.Nodes[len(v.Nodes)-1], s)
		}
	case *Sequence:
		if len(v.Nodes) > 0 {
			AppendStatement(v.Nodes[len(v.Nodes)-1], s)
		}
	case *Code:
		AppendStatement(v.Inner, s)
	case *Loop:
		AppendStatement(v.Body, s)
	}
}
