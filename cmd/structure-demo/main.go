// structure-demo builds a handful of synthetic region trees and runs them through the structurer
// engine, printing the resulting AST and the engine's diagnostic counters. It exists to exercise
// the library end to end from the command line; it does not read real region trees off disk, since
// producing one (CFG recovery, region identification) is out of this module's scope.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/binstruct/structurer/il"
	"github.com/binstruct/structurer/jumptable"
	"github.com/binstruct/structurer/nodes"
	"github.com/binstruct/structurer/project"
	"github.com/binstruct/structurer/region"
	"github.com/binstruct/structurer/structurer"
)

var (
	_example = flag.String("example", "while", "which synthetic region tree to structure: while, if-else, switch, or all")
	_batch   = flag.Bool("batch", false, "structure every example concurrently via structurer.BatchStructure instead of one at a time")
)

func main() {
	flag.Parse()

	examples := map[string]func() *region.Region{
		"while":   whileLoopExample,
		"if-else": ifElseExample,
		"switch":  switchExample,
	}

	names := []string{*_example}
	if *_example == "all" {
		names = []string{"while", "if-else", "switch"}
	}

	var built []namedRegion
	for _, name := range names {
		mk, ok := examples[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown example %q (want while, if-else, switch, or all)\n", name)
			os.Exit(1)
		}
		built = append(built, namedRegion{name: name, region: mk()})
	}

	if *_batch {
		if err := runBatch(built); err != nil {
			fmt.Fprintf(os.Stderr, "structure: %v\n", err)
			os.Exit(1)
		}
		return
	}

	for _, nr := range built {
		if err := runOne(nr); err != nil {
			fmt.Fprintf(os.Stderr, "structure %s: %v\n", nr.name, err)
			os.Exit(1)
		}
	}
}

type namedRegion struct {
	name   string
	region *region.Region
}

func runOne(nr namedRegion) error {
	jt := jumptable.NewMap()
	if nr.name == "switch" {
		jt.Set(1, &jumptable.Table{Entries: []int64{10, 11, 12}})
	}

	e := structurer.NewEngine()
	node, err := e.Structure(nr.region, project.Arch{Bits: 64}, jt)
	if err != nil {
		return err
	}

	fmt.Printf("=== %s ===\n%s", nr.name, nodes.Dump(node))
	fmt.Printf("stats: %+v\n\n", e.Stats())
	return nil
}

func runBatch(regions []namedRegion) error {
	inputs := make([]structurer.BatchInput, len(regions))
	for i, nr := range regions {
		jt := jumptable.NewMap()
		if nr.name == "switch" {
			jt.Set(1, &jumptable.Table{Entries: []int64{10, 11, 12}})
		}
		inputs[i] = structurer.BatchInput{Region: nr.region, Arch: project.Arch{Bits: 64}, JumpTables: jt}
	}

	results, err := structurer.BatchStructure(context.Background(), inputs)
	if err != nil {
		return err
	}
	for i, res := range results {
		fmt.Printf("=== %s ===\n%s", regions[i].name, nodes.Dump(res.Node))
		fmt.Printf("stats: %+v\n\n", res.Stats)
	}
	return nil
}

func constTarget(addr int64) il.Expr { return &il.Const{Value: addr, BitsN: 64} }

// whileLoopExample builds the region tree for:
//
//	while (x < 10) { body(); }
func whileLoopExample() *region.Region {
	cond := &il.BinaryOp{Op: "CmpGE", Operands: [2]il.Expr{&il.Tmp{Idx: 0, BitsN: 64}, &il.Const{Value: 10, BitsN: 64}}, BitsN: 1}
	head := &il.Block{AddrV: 1, Statements: []il.Stmt{&il.ConditionalJump{Condition: cond, TrueTarget: constTarget(99), FalseTarget: constTarget(2)}}}
	body := &il.Block{AddrV: 2, Statements: []il.Stmt{&il.Other{Text: "body()"}, &il.Jump{Target: constTarget(1)}}}
	exit := &il.Block{AddrV: 99}

	g := region.NewGraph()
	g.AddEdge(head, body)
	g.AddEdge(body, head)
	return region.NewRegion(head, g, []region.Node{exit})
}

// ifElseExample builds the region tree for:
//
//	if (x == 0) { then() } else { else() }
func ifElseExample() *region.Region {
	cond := &il.BinaryOp{Op: "CmpEQ", Operands: [2]il.Expr{&il.Register{Name: "rax", BitsN: 64}, &il.Const{Value: 0, BitsN: 64}}, BitsN: 1}
	head := &il.Block{AddrV: 1, Statements: []il.Stmt{&il.ConditionalJump{Condition: cond, TrueTarget: constTarget(2), FalseTarget: constTarget(3)}}}
	thenBlk := &il.Block{AddrV: 2, Statements: []il.Stmt{&il.Other{Text: "then()"}}}
	elseBlk := &il.Block{AddrV: 3, Statements: []il.Stmt{&il.Other{Text: "else()"}}}

	g := region.NewGraph()
	g.AddEdge(head, thenBlk)
	g.AddEdge(head, elseBlk)
	return region.NewRegion(head, g, nil)
}

// switchExample builds the region tree for an indirect jump-table dispatch with three cases.
func switchExample() *region.Region {
	dispatch := &il.Block{AddrV: 1, Statements: []il.Stmt{&il.Jump{Target: &il.Tmp{Idx: 0, BitsN: 64}}}}
	case0 := &il.Block{AddrV: 10, Statements: []il.Stmt{&il.Other{Text: "case0()"}}}
	case1 := &il.Block{AddrV: 11, Statements: []il.Stmt{&il.Other{Text: "case1()"}}}
	case2 := &il.Block{AddrV: 12, Statements: []il.Stmt{&il.Other{Text: "case2()"}}}

	g := region.NewGraph()
	g.AddEdge(dispatch, case0)
	g.AddEdge(dispatch, case1)
	g.AddEdge(dispatch, case2)
	return region.NewRegion(dispatch, g, nil)
}
