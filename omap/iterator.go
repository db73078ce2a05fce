package omap

// Iterator walks entries via the threaded list, each step O(1) regardless
// of tree shape. A cursor built with Iterator steps forward with Next; one
// built with Last steps backward with Prev. Either method can be called
// from any position, but mixing directions on the same cursor walks off
// the synthetic starting node and is not meaningful.
type Iterator[K any, V any] struct {
	n *node[K, V]
}

// Iterator returns a cursor positioned before the smallest key.
func (m *Map[K, V]) Iterator() *Iterator[K, V] {
	if m.root == nil {
		return &Iterator[K, V]{}
	}
	return &Iterator[K, V]{n: &node[K, V]{next: m.root.min}}
}

// Last returns a cursor positioned after the largest key, ready for Prev
// to step backward through the map in descending key order.
func (m *Map[K, V]) Last() *Iterator[K, V] {
	if m.root == nil {
		return &Iterator[K, V]{}
	}
	return &Iterator[K, V]{n: &node[K, V]{prev: m.root.max}}
}

// Next advances to the next entry in ascending order and reports whether
// one was found.
func (it *Iterator[K, V]) Next() bool {
	if it.n == nil {
		return false
	}
	it.n = it.n.next
	return it.n != nil
}

// Prev advances to the next entry in descending order and reports whether
// one was found.
func (it *Iterator[K, V]) Prev() bool {
	if it.n == nil {
		return false
	}
	it.n = it.n.prev
	return it.n != nil
}

// Key returns the key at the iterator's current position.
func (it *Iterator[K, V]) Key() K { return it.n.key }

// Value returns the value at the iterator's current position.
func (it *Iterator[K, V]) Value() V { return it.n.val }
