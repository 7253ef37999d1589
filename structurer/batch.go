package structurer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/binstruct/structurer/jumptable"
	"github.com/binstruct/structurer/nodes"
	"github.com/binstruct/structurer/project"
	"github.com/binstruct/structurer/region"
)

// BatchInput is one region to structure as part of a BatchStructure call.
type BatchInput struct {
	Region     *region.Region
	Arch       project.Arch
	JumpTables *jumptable.Map
}

// BatchResult is the outcome of structuring one BatchInput, at the same index it was given.
type BatchResult struct {
	Node  nodes.Node
	Stats Stats
}

// BatchStructure structures every input concurrently, one Engine per input (so no formula
// Universe is shared and no goroutine contends on a mutex), and returns results in input order.
// It stops launching new work and returns the first error once any region fails to structure,
// following errgroup's usual cancellation behavior; opts apply to every per-input Engine (pass
// WithSharedHashCons explicitly if you want cross-region-comparable formulas, accepting the
// resulting lock contention).
func BatchStructure(ctx context.Context, inputs []BatchInput, opts ...Option) ([]BatchResult, error) {
	results := make([]BatchResult, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e := NewEngine(opts...)
			node, err := e.Structure(in.Region, in.Arch, in.JumpTables)
			if err != nil {
				return err
			}
			results[i] = BatchResult{Node: node, Stats: e.Stats()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
