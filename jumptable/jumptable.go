// Package jumptable models compiler-emitted jump tables: the switch/case recognizer consults
// this metadata to tell an indirect-jump dispatch block apart from an ordinary conditional chain.
// Recovering jump tables from the binary is out of scope; this package only defines the shape the
// engine is handed.
package jumptable

import "github.com/binstruct/structurer/util/orderedmap"

// Table is a single jump table: the ordered list of block addresses it may dispatch to, indexed
// by the (already-normalized) case value.
type Table struct {
	Entries []int64
}

// Map associates the address of an indirect-jump block with its jump table.
type Map struct {
	m *orderedmap.OrderedMap[int64, *Table]
}

// NewMap returns an empty jump-table map.
func NewMap() *Map {
	return &Map{m: orderedmap.New[int64, *Table]()}
}

// Set records the jump table for the indirect-jump block at addr.
func (m *Map) Set(addr int64, t *Table) {
	m.m.Store(addr, t)
}

// Get returns the jump table for addr, if any.
func (m *Map) Get(addr int64) (*Table, bool) {
	return m.m.Load(addr)
}

// Len reports the number of recorded jump tables.
func (m *Map) Len() int {
	return m.m.Len()
}
