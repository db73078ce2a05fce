// Package hmap implements an open-addressed, SwissTable-style hash table:
// power-of-two capacity, 16-wide probed metadata with a clone region,
// tombstones, and in-place rehashing. It is the foundational container of
// this module. lru builds its index directly on top of it.
//
// The table is single-threaded; callers provide external synchronisation.
// The one safety rail kept in-process is the pointer-stability lock an
// active Iterator holds.
package hmap

import (
	"fmt"

	"github.com/basekv/containers/arena"
	"github.com/basekv/containers/internal/xcpu"
)

// Map is an open-addressed hash table. Zero value is not usable; construct with
// New or NewWithContext.
type Map[K comparable, V any] struct {
	meta []byte // len = capacity+cloneWidth when capacity > 0, else nil
	keys []K
	vals []V

	capacity   int
	count      int
	growthLeft int // inserts remaining before a rehash is forced

	// _ is a full cache line of padding, so the slice headers and counters
	// above never share a cache line with the context, allocator and
	// iterator lock below.
	_ [xcpu.LineSize]byte

	ctx    Context[K]
	alloc  arena.Allocator
	pinned bool // pointer-stability lock held by an active Iterator
}

// New constructs an empty Map for comparable key type K using
// DefaultContext[K](). Storage is not allocated until the first insertion
// or an explicit EnsureTotalCapacity call.
func New[K comparable, V any](alloc arena.Allocator) *Map[K, V] {
	return NewWithContext[K, V](alloc, DefaultContext[K]())
}

// NewWithContext constructs an empty Map using a caller-supplied hashing
// and equality Context for a key type that isn't naturally comparable by
// DefaultContext's heuristics, or that wants a different hash mixer.
func NewWithContext[K comparable, V any](alloc arena.Allocator, ctx Context[K]) *Map[K, V] {
	return &Map[K, V]{ctx: ctx, alloc: arena.Or(alloc)}
}

// Count returns the number of live entries.
func (m *Map[K, V]) Count() int { return m.count }

// Capacity returns the current slot count, 0 if storage was never
// allocated.
func (m *Map[K, V]) Capacity() int { return m.capacity }

// Get returns the value stored for key, if any.
func (m *Map[K, V]) Get(key K) (V, bool) {
	idx, ok := m.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	return m.vals[idx], true
}

// GetPtr returns a pointer to the value stored for key, if any. The
// pointer is invalidated by any subsequent rehash.
func (m *Map[K, V]) GetPtr(key K) (*V, bool) {
	idx, ok := m.lookup(key)
	if !ok {
		return nil, false
	}
	return &m.vals[idx], true
}

// lookup runs the probe loop and returns the slot index of key, or
// (_, false) if absent. Guards capacity == 0 so that a table with null
// storage answers every Get with absence rather than dereferencing nil
// slices.
func (m *Map[K, V]) lookup(key K) (int, bool) {
	if m.capacity == 0 {
		return 0, false
	}
	h := m.ctx.Hash(key)
	target := h2(h)
	idx := h1(h, m.capacity)
	for {
		g := loadGroup(m.meta, idx)
		var found int
		hit := g.forEachMatch(target, func(off int) bool {
			slot := (idx + off) % m.capacity
			if m.ctx.Eql(m.keys[slot], key) {
				found = slot
				return true
			}
			return false
		})
		if hit {
			return found, true
		}
		if g.anyEqual(emptyMeta) {
			return 0, false
		}
		idx = (idx + groupWidth) % m.capacity
	}
}

// Put inserts or overwrites key's value. It shares the probe-and-insert
// machinery with GetOrPut, differing only in whether an existing entry is
// overwritten.
func (m *Map[K, V]) Put(key K, value V) error {
	_, _, err := m.insert(key, value, true)
	return err
}

// GetOrPut returns the existing value for key if present; otherwise it
// inserts value and returns it. found reports which case occurred. This is
// the classic "insert or fetch existing" operation.
func (m *Map[K, V]) GetOrPut(key K, value V) (actual V, found bool, err error) {
	return m.insert(key, value, false)
}

// insert probes for an existing key (recording the first DELETED slot
// along the way), and on a genuine miss, prefers reusing that DELETED slot
// over consuming a fresh EMPTY one.
//
// Growth is attempted eagerly, before the probe, whenever the available
// budget is exhausted, even when the eventual hit will turn out to be an
// overwrite of an existing key that needed no new slot at all. This eager
// ordering is what makes the allocation-failure carve-out meaningful: if
// growth fails, we still probe the untouched table for an existing entry
// before reporting failure.
func (m *Map[K, V]) insert(key K, value V, overwrite bool) (actual V, found bool, err error) {
	if m.pinned {
		panic("hmap: mutation while an Iterator is active")
	}
	if m.capacity == 0 || m.growthLeft == 0 {
		if growErr := m.growFor(1); growErr != nil {
			if idx, ok := m.lookup(key); ok {
				if overwrite {
					m.vals[idx] = value
				}
				return m.vals[idx], true, nil
			}
			var zero V
			return zero, false, growErr
		}
	}

	h := m.ctx.Hash(key)
	target := h2(h)
	idx := h1(h, m.capacity)
	firstDeleted := -1
	for {
		g := loadGroup(m.meta, idx)
		var hitSlot int
		hit := g.forEachMatch(target, func(off int) bool {
			slot := (idx + off) % m.capacity
			if m.ctx.Eql(m.keys[slot], key) {
				hitSlot = slot
				return true
			}
			return false
		})
		if hit {
			if overwrite {
				m.vals[hitSlot] = value
			}
			return m.vals[hitSlot], true, nil
		}
		if firstDeleted < 0 {
			g.forEachMatch(deletedMeta, func(off int) bool {
				firstDeleted = (idx + off) % m.capacity
				return true
			})
		}
		if g.anyEqual(emptyMeta) {
			break
		}
		idx = (idx + groupWidth) % m.capacity
	}

	// Key is absent. Choose the insertion slot: a recorded DELETED slot
	// costs nothing against the budget; otherwise take the first EMPTY
	// slot found from the group where the probe terminated.
	slot := firstDeleted
	consumingEmpty := firstDeleted < 0
	if consumingEmpty {
		slot = m.firstEmptyFrom(idx)
	}

	m.setMeta(slot, target)
	m.keys[slot] = key
	m.vals[slot] = value
	m.count++
	if consumingEmpty {
		m.growthLeft--
	}
	return value, false, nil
}

// firstEmptyFrom scans forward from idx (inclusive, wrapping) for the
// first EMPTY metadata byte. idx is always the group at which the probe
// loop in insert detected an EMPTY byte, so this terminates within one
// group in practice.
func (m *Map[K, V]) firstEmptyFrom(idx int) int {
	for {
		g := loadGroup(m.meta, idx)
		found := -1
		g.forEachMatch(emptyMeta, func(off int) bool {
			found = (idx + off) % m.capacity
			return true
		})
		if found >= 0 {
			return found
		}
		idx = (idx + groupWidth) % m.capacity
	}
}

// Remove deletes key if present, writing a tombstone.
// Tombstones do not return to the available-slot budget: they still cost
// probe steps until the next rehash sweeps them.
func (m *Map[K, V]) Remove(key K) bool {
	if m.pinned {
		panic("hmap: mutation while an Iterator is active")
	}
	idx, ok := m.lookup(key)
	if !ok {
		return false
	}
	m.setMeta(idx, deletedMeta)
	var zeroK K
	var zeroV V
	m.keys[idx] = zeroK
	m.vals[idx] = zeroV
	m.count--
	return true
}

// setMeta writes b at real slot idx and at every clone-region position
// that mirrors it. A clone position t (0 <= t < cloneWidth) mirrors real
// slot t % capacity, so for capacity >= cloneWidth+1 each slot has at
// most one mirror; for the smaller capacities still permitted
// (capacity can be as low as minCapacity == 8), a slot can have more
// than one, since the 16-byte group window wraps around it more than
// once (the clone region generalized to cyclic wrap).
func (m *Map[K, V]) setMeta(idx int, b byte) {
	m.meta[idx] = b
	for t := idx; t < cloneWidth; t += m.capacity {
		m.meta[m.capacity+t] = b
	}
}

// EnsureTotalCapacity grows the table, if needed, so it can hold at least
// n live entries without a further rehash.
func (m *Map[K, V]) EnsureTotalCapacity(n int) error {
	if n <= m.count || (m.capacity > 0 && m.growthLeft >= n-m.count) {
		return nil
	}
	if m.pinned {
		panic("hmap: mutation while an Iterator is active")
	}
	return m.growFor(n - m.count)
}

// growFor rehashes to a capacity able to absorb `requested` additional
// entries beyond the current live count.
func (m *Map[K, V]) growFor(requested int) error {
	newCap := capacityForSize(m.count + requested)
	return m.rehashTo(newCap)
}

// rehashTo allocates a fresh block of the given capacity, reinitializes
// metadata to EMPTY, reinserts every live entry via a no-clobber fast
// path, and swaps. Strong exception safety: on allocation
// failure the receiver is left exactly as it was.
func (m *Map[K, V]) rehashTo(newCap int) error {
	metaLen := newCap + cloneWidth
	chargeBytes := metaLen + newCap*int(sizeofVal[K]()) + newCap*int(sizeofVal[V]())
	if _, err := m.alloc.AllocBytes(chargeBytes); err != nil {
		return fmt.Errorf("hmap: rehash to %d: %w", newCap, err)
	}

	newMeta := make([]byte, metaLen)
	for i := range newMeta {
		newMeta[i] = emptyMeta
	}
	newKeys := make([]K, newCap)
	newVals := make([]V, newCap)

	oldMeta, oldKeys, oldVals, oldCap := m.meta, m.keys, m.vals, m.capacity
	m.meta, m.keys, m.vals, m.capacity = newMeta, newKeys, newVals, newCap
	m.growthLeft = newCap * MaxLoadPercentage / 100

	for i := 0; i < oldCap; i++ {
		if oldMeta[i] >= emptyMeta {
			continue // EMPTY or DELETED
		}
		m.insertFast(oldKeys[i], oldVals[i])
	}
	rehashTotal.Inc()
	return nil
}

// insertFast places a key known not to be present yet (used only during
// rehash, where every live key from the old table is by definition
// unique and absent from the fresh one) without probing for equality.
func (m *Map[K, V]) insertFast(key K, value V) {
	h := m.ctx.Hash(key)
	target := h2(h)
	idx := h1(h, m.capacity)
	for {
		g := loadGroup(m.meta, idx)
		found := -1
		g.forEachMatch(emptyMeta, func(off int) bool {
			found = (idx + off) % m.capacity
			return true
		})
		if found >= 0 {
			m.setMeta(found, target)
			m.keys[found] = key
			m.vals[found] = value
			m.growthLeft--
			return
		}
		idx = (idx + groupWidth) % m.capacity
	}
}

// Clear resets the table to empty while keeping its allocated capacity,
// cheaper than Destroy followed by a fresh construct.
func (m *Map[K, V]) Clear() {
	for i := range m.meta {
		m.meta[i] = emptyMeta
	}
	var zeroK K
	var zeroV V
	for i := range m.keys {
		m.keys[i] = zeroK
		m.vals[i] = zeroV
	}
	m.count = 0
	m.growthLeft = m.capacity * MaxLoadPercentage / 100
}

// Clone returns a new Map holding the same entries, sized freshly for the
// current live count rather than copying tombstones.
func (m *Map[K, V]) Clone() *Map[K, V] {
	out := NewWithContext[K, V](m.alloc, m.ctx)
	if m.count == 0 {
		return out
	}
	_ = out.growFor(m.count)
	for i := 0; i < m.capacity; i++ {
		if m.meta[i] < emptyMeta {
			out.insertFast(m.keys[i], m.vals[i])
		}
	}
	out.count = m.count
	return out
}

// Destroy drops the table's storage. Go's GC reclaims the backing arrays
// once unreachable; Destroy exists so callers following an
// explicit-teardown lifecycle have an operation to call.
func (m *Map[K, V]) Destroy() {
	m.meta, m.keys, m.vals = nil, nil, nil
	m.capacity, m.count, m.growthLeft = 0, 0, 0
}
