package region

// Region is a single entry of the region tree the engine structures: a head node, the graph over
// its immediate children, and the (possibly empty) set of nodes control leaves the region
// through. GraphWithSuccessors is Graph plus synthetic edges into Successors, kept alongside Graph
// (and updated by Replace) without mutating Graph itself; the structurer's own passes work on
// Graph and Successors and do not read it.
type Region struct {
	Head                Node
	Graph               *Graph
	Successors          []Node
	GraphWithSuccessors *Graph
}

// NewRegion builds a Region, deriving GraphWithSuccessors from graph plus edges from every node
// that has no successor within graph into each of successors (mirroring how graph_with_successors
// is constructed upstream of structuring).
func NewRegion(head Node, graph *Graph, successors []Node) *Region {
	gws := graph.Copy()
	for _, n := range graph.Nodes() {
		if len(graph.Successors(n)) > 0 {
			continue
		}
		for _, s := range successors {
			gws.AddEdge(n, s)
		}
	}
	return &Region{Head: head, Graph: graph, Successors: successors, GraphWithSuccessors: gws}
}

// Replace swaps every occurrence of old (in Graph, GraphWithSuccessors, Head, and Successors) for
// new. See Graph.Replace.
func (r *Region) Replace(old, new Node) {
	r.Graph.Replace(old, new)
	r.GraphWithSuccessors.Replace(old, new)
	if r.Head == old {
		r.Head = new
	}
	for i, s := range r.Successors {
		if s == old {
			r.Successors[i] = new
		}
	}
}

// NodeAddr lets a Region itself serve as a Node in a parent region's graph (a nested sub-region
// appears as a single vertex until it has been structured and substituted for its AST).
func (r *Region) NodeAddr() int64 { return AddrOf(r.Head) }

// RecursiveCopy returns a deep copy of r: a new Graph with the same shape, nested *Region children
// recursively copied, and leaf nodes copied via their optional copier interface (e.g. il.Block) so
// that structuring r's copy never mutates the caller's original region tree.
func (r *Region) RecursiveCopy() *Region {
	memo := make(map[Node]Node)
	var copyNode func(Node) Node
	copyNode = func(n Node) Node {
		if c, ok := memo[n]; ok {
			return c
		}
		var out Node
		switch v := n.(type) {
		case *Region:
			out = v.RecursiveCopy()
		default:
			if cp, ok := n.(copier); ok {
				out = cp.NodeCopy()
			} else {
				out = n
			}
		}
		memo[n] = out
		return out
	}

	newGraph := NewGraph()
	for _, n := range r.Graph.Nodes() {
		newGraph.AddNode(copyNode(n))
	}
	for _, u := range r.Graph.Nodes() {
		for _, v := range r.Graph.Successors(u) {
			newGraph.AddEdge(copyNode(u), copyNode(v))
		}
	}

	newSuccessors := make([]Node, len(r.Successors))
	for i, s := range r.Successors {
		newSuccessors[i] = copyNode(s)
	}

	return NewRegion(copyNode(r.Head), newGraph, newSuccessors)
}
