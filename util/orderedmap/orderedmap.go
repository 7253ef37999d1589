// Package orderedmap implements a generic ordered map that supports iteration in insertion
// order. The structuring engine relies on it anywhere the spec requires deterministic iteration
// over a node or address set (condition mappings, addr-to-node lookups, switch-case tables).
package orderedmap

// Pair is a key-value pair stored in the ordered map.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

// OrderedMap is an ordered map that supports iteration in insertion order. It is an _internal_
// helper type for the structuring engine and lacks some of the features of a full map.
type OrderedMap[K comparable, V any] struct {
	// Pairs is the list of pairs in insertion order. It should _never_ be modified directly (use
	// Store/Delete instead), but can be used for read-only purposes (e.g., iteration).
	Pairs []*Pair[K, V]
	// inner keeps the mapping between key and the pointer to a particular pair.
	inner map[K]*Pair[K, V]
}

// New creates a new OrderedMap.
func New[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{inner: make(map[K]*Pair[K, V])}
}

// Len returns the number of entries currently stored.
func (m *OrderedMap[K, V]) Len() int {
	return len(m.Pairs)
}

// Value returns the value stored in the map for the key, or the zero value if the key is not found.
// It is the same as Load, but without the additional bool.
func (m *OrderedMap[K, V]) Value(key K) V {
	if p := m.inner[key]; p != nil {
		return p.Value
	}
	var v V
	return v
}

// Load returns the value stored in the map for the key, with an additional bool indicating if
// the key was found.
func (m *OrderedMap[K, V]) Load(key K) (V, bool) {
	if p := m.inner[key]; p != nil {
		return p.Value, true
	}
	var v V
	return v, false
}

// Store stores the value in the map for the key, overwriting the previous value if the key exists.
// A fresh key is appended to Pairs, preserving insertion order.
func (m *OrderedMap[K, V]) Store(key K, value V) {
	if m.inner == nil {
		m.inner = make(map[K]*Pair[K, V])
	}
	if p := m.inner[key]; p != nil {
		p.Value = value
		return
	}
	p := &Pair[K, V]{Key: key, Value: value}
	m.Pairs = append(m.Pairs, p)
	m.inner[key] = p
}

// Delete removes key from the map, if present. The relative order of the remaining keys is
// preserved.
func (m *OrderedMap[K, V]) Delete(key K) {
	if _, ok := m.inner[key]; !ok {
		return
	}
	delete(m.inner, key)
	for i, p := range m.Pairs {
		if p.Key == key {
			m.Pairs = append(m.Pairs[:i], m.Pairs[i+1:]...)
			break
		}
	}
}

// Range calls f for every pair in insertion order, stopping early if f returns false.
func (m *OrderedMap[K, V]) Range(f func(key K, value V) bool) {
	for _, p := range m.Pairs {
		if !f(p.Key, p.Value) {
			return
		}
	}
}

// Keys returns the keys in insertion order.
func (m *OrderedMap[K, V]) Keys() []K {
	keys := make([]K, len(m.Pairs))
	for i, p := range m.Pairs {
		keys[i] = p.Key
	}
	return keys
}

// Copy returns a shallow copy of m: a new OrderedMap with the same key/value pairs in the same
// order, but independent storage so that Store/Delete on the copy do not affect m.
func (m *OrderedMap[K, V]) Copy() *OrderedMap[K, V] {
	out := New[K, V]()
	for _, p := range m.Pairs {
		out.Store(p.Key, p.Value)
	}
	return out
}
