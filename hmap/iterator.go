package hmap

// Iterator walks the FULL slots of a Map in metadata order. While one is
// alive the Map must not rehash.
// Close releases the lock; a Map mutated while an Iterator holds it without
// Close being called is a contract violation.
type Iterator[K comparable, V any] struct {
	m    *Map[K, V]
	idx  int
	key  *K
	val  *V
	done bool
}

// Iterator returns a cursor positioned before the first FULL slot and locks
// the table against rehashing until Close is called.
func (m *Map[K, V]) Iterator() *Iterator[K, V] {
	if m.pinned {
		panic("hmap: Iterator called while another iterator is active")
	}
	m.pinned = true
	return &Iterator[K, V]{m: m, idx: -1}
}

// Next advances to the next FULL slot and reports whether one was found.
func (it *Iterator[K, V]) Next() bool {
	if it.done {
		return false
	}
	m := it.m
	for it.idx++; it.idx < m.capacity; it.idx++ {
		if m.meta[it.idx] < emptyMeta { // FULL: top bit clear
			it.key = &m.keys[it.idx]
			it.val = &m.vals[it.idx]
			return true
		}
	}
	it.done = true
	return false
}

// Key returns the key at the iterator's current position.
func (it *Iterator[K, V]) Key() K { return *it.key }

// Value returns the value at the iterator's current position.
func (it *Iterator[K, V]) Value() V { return *it.val }

// ValuePtr returns a pointer to the value slot at the iterator's current
// position, valid until the next mutation or Close.
func (it *Iterator[K, V]) ValuePtr() *V { return it.val }

// Close releases the pointer-stability lock. Safe to call more than once.
func (it *Iterator[K, V]) Close() {
	if it.m != nil {
		it.m.pinned = false
		it.m = nil
	}
}
