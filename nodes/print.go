package nodes

import (
	"fmt"
	"strings"

	"github.com/binstruct/structurer/boolformula"
)

// Dump renders n as an indented tree, one line per node, primarily for debugging and the demo
// command; it is not a decompiler output format.
func Dump(n Node) string {
	var b strings.Builder
	dump(&b, n, 0)
	return b.String()
}

func condString(f *boolformula.Formula) string {
	if f == nil {
		return "true"
	}
	return f.String()
}

func dump(b *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := n.(type) {
	case nil:
		fmt.Fprintf(b, "%s<nil>\n", indent)
	case *ILBlock:
		fmt.Fprintf(b, "%sblock %#x (%d stmts)\n", indent, v.Block.AddrV, len(v.Block.Statements))
	case *MultiBlock:
		fmt.Fprintf(b, "%smulti\n", indent)
		for _, c := range v.Nodes {
			dump(b, c, depth+1)
		}
	case *Code:
		if v.ReachingCondition != nil {
			fmt.Fprintf(b, "%scode [%s]\n", indent, v.ReachingCondition)
		} else {
			fmt.Fprintf(b, "%scode\n", indent)
		}
		dump(b, v.Inner, depth+1)
	case *Sequence:
		fmt.Fprintf(b, "%sseq\n", indent)
		for _, c := range v.Nodes {
			dump(b, c, depth+1)
		}
	case *Condition:
		fmt.Fprintf(b, "%sif [%s]\n", indent, condString(v.Condition))
		dump(b, v.True, depth+1)
		if v.False != nil {
			fmt.Fprintf(b, "%selse\n", indent)
			dump(b, v.False, depth+1)
		}
	case *Loop:
		switch v.Sort {
		case LoopWhile:
			fmt.Fprintf(b, "%swhile [%s]\n", indent, condString(v.Condition))
		case LoopDoWhile:
			fmt.Fprintf(b, "%sdo-while [%s]\n", indent, condString(v.Condition))
		default:
			fmt.Fprintf(b, "%sloop\n", indent)
		}
		dump(b, v.Body, depth+1)
	case *SwitchCase:
		fmt.Fprintf(b, "%sswitch %#x on %s\n", indent, v.Addr, v.Expr)
		for _, p := range v.Cases.Pairs {
			fmt.Fprintf(b, "%s  case %d:\n", indent, p.Key)
			dump(b, p.Value, depth+2)
		}
		if v.Default != nil {
			fmt.Fprintf(b, "%s  default:\n", indent)
			dump(b, v.Default, depth+2)
		}
	case *Break:
		fmt.Fprintf(b, "%sbreak -> %#x\n", indent, v.Target)
	case *ConditionalBreak:
		fmt.Fprintf(b, "%sif [%s] break -> %#x\n", indent, condString(v.Condition), v.Target)
	default:
		fmt.Fprintf(b, "%s?%T\n", indent, n)
	}
}
