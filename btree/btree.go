// Package btree implements a standard in-memory B-tree of minimum degree
// t: sorted key/value arrays of length [t-1, 2t-1] per node, children
// arrays one longer, all leaves at equal depth. It rounds out the
// container surface alongside hmap, omap, rtrie, and lru but carries none
// of their cache-layout engineering.
package btree

import (
	"cmp"
	"unsafe"

	"github.com/VictoriaMetrics/metrics"
	"github.com/basekv/containers/arena"
)

var splitTotal = metrics.NewCounter("btree_split_total")

// Comparator gives a total order over K.
type Comparator[K any] func(a, b K) int

type node[K any, V any] struct {
	keys     []K
	vals     []V
	children []*node[K, V]
	leaf     bool
}

func (n *node[K, V]) full(maxKeys int) bool { return len(n.keys) == maxKeys }

// nodeSize is the byte cost charged against the allocator for one new
// tree node, measuring the node header the same shallow way omap and
// rtrie charge for their own nodes.
func nodeSize[K, V any]() int {
	return int(unsafe.Sizeof(node[K, V]{}))
}

// Tree is a B-tree of minimum degree t. Zero value is not usable;
// construct with New.
type Tree[K any, V any] struct {
	root  *node[K, V]
	t     int
	cmp   Comparator[K]
	size  int
	alloc arena.Allocator
}

// NewWithComparator constructs an empty Tree of minimum degree t (t >= 2)
// ordered by cmp.
func NewWithComparator[K any, V any](alloc arena.Allocator, cmp Comparator[K], t int) *Tree[K, V] {
	if t < 2 {
		panic("btree: minimum degree must be >= 2")
	}
	return &Tree[K, V]{t: t, cmp: cmp, alloc: arena.Or(alloc)}
}

// New constructs an empty Tree of minimum degree t ordered by K's natural
// ordering.
func New[K cmp.Ordered, V any](alloc arena.Allocator, t int) *Tree[K, V] {
	return NewWithComparator[K, V](alloc, func(a, b K) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}, t)
}

// Len returns the number of entries.
func (tr *Tree[K, V]) Len() int { return tr.size }

func (tr *Tree[K, V]) maxKeys() int { return 2*tr.t - 1 }

// Destroy drops the tree's storage. Go's GC reclaims every node once
// unreachable; Destroy exists so callers following an explicit-teardown
// lifecycle have an operation to call.
func (tr *Tree[K, V]) Destroy() {
	tr.root = nil
	tr.size = 0
}

// Search returns the value stored for key, if any.
func (tr *Tree[K, V]) Search(key K) (val V, ok bool) {
	n := tr.root
	for n != nil {
		i, found := n.locate(tr.cmp, key)
		if found {
			return n.vals[i], true
		}
		if n.leaf {
			return val, false
		}
		n = n.children[i]
	}
	return val, false
}

// locate returns the index of key if present, else the index of the
// first key greater than it (the child slot to descend into).
func (n *node[K, V]) locate(cmp Comparator[K], key K) (int, bool) {
	lo, hi := 0, len(n.keys)
	for lo < hi {
		mid := (lo + hi) / 2
		switch c := cmp(key, n.keys[mid]); {
		case c == 0:
			return mid, true
		case c < 0:
			hi = mid
		default:
			lo = mid + 1
		}
	}
	return lo, false
}

// Insert places val at key, overwriting any existing value. If the root
// is full it is split preemptively, same as every full child encountered
// while descending, so the single-pass insert never has to back up. Each
// new node is charged against the allocator before it is constructed and
// before anything it will be linked into is mutated, so a failure at any
// point leaves the tree exactly as it was, short of any preemptive splits
// that had already fully completed earlier in the same call: those are
// self-contained structural changes independent of whether the key being
// inserted ultimately lands, and leave the tree just as valid either way.
func (tr *Tree[K, V]) Insert(key K, val V) error {
	if tr.root == nil {
		if _, err := tr.alloc.AllocBytes(nodeSize[K, V]()); err != nil {
			return err
		}
		tr.root = &node[K, V]{leaf: true, keys: []K{key}, vals: []V{val}}
		tr.size = 1
		return nil
	}
	if tr.root.full(tr.maxKeys()) {
		if _, err := tr.alloc.AllocBytes(nodeSize[K, V]()); err != nil {
			return err
		}
		oldRoot := tr.root
		newRoot := &node[K, V]{children: []*node[K, V]{oldRoot}}
		if err := tr.splitChild(newRoot, 0); err != nil {
			return err
		}
		tr.root = newRoot
	}
	return tr.insertNonFull(tr.root, key, val)
}

func (tr *Tree[K, V]) insertNonFull(n *node[K, V], key K, val V) error {
	i, found := n.locate(tr.cmp, key)
	if found {
		n.vals[i] = val
		return nil
	}
	if n.leaf {
		n.keys = insertAt(n.keys, i, key)
		n.vals = insertAt(n.vals, i, val)
		tr.size++
		return nil
	}
	if n.children[i].full(tr.maxKeys()) {
		if err := tr.splitChild(n, i); err != nil {
			return err
		}
		switch c := tr.cmp(key, n.keys[i]); {
		case c > 0:
			i++
		case c == 0:
			n.vals[i] = val
			return nil
		}
	}
	return tr.insertNonFull(n.children[i], key, val)
}

// splitChild splits the full child at index i of n into two nodes of t-1
// keys each, promoting the median key/value into n at index i. The new
// right node is charged and constructed first, before child or n are
// touched, so a failed charge leaves both untouched.
func (tr *Tree[K, V]) splitChild(n *node[K, V], i int) error {
	child := n.children[i]
	if _, err := tr.alloc.AllocBytes(nodeSize[K, V]()); err != nil {
		return err
	}

	t := tr.t
	mid := t - 1
	medianKey, medianVal := child.keys[mid], child.vals[mid]

	right := &node[K, V]{
		leaf: child.leaf,
		keys: append([]K(nil), child.keys[mid+1:]...),
		vals: append([]V(nil), child.vals[mid+1:]...),
	}
	if !child.leaf {
		right.children = append([]*node[K, V](nil), child.children[mid+1:]...)
		child.children = child.children[:mid+1]
	}
	child.keys = child.keys[:mid]
	child.vals = child.vals[:mid]

	n.keys = insertAt(n.keys, i, medianKey)
	n.vals = insertAt(n.vals, i, medianVal)
	n.children = insertAt(n.children, i+1, right)

	splitTotal.Inc()
	return nil
}

func insertAt[T any](s []T, i int, v T) []T {
	s = append(s, v)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// Cursor walks entries in ascending key order via an explicit stack of
// (node, index) frames, matching the standard iterative in-order B-tree
// walk.
type Cursor[K any, V any] struct {
	stack []frame[K, V]
	key   K
	val   V
}

type frame[K any, V any] struct {
	n   *node[K, V]
	idx int
}

// Iterator returns a cursor positioned before the smallest key.
func (tr *Tree[K, V]) Iterator() *Cursor[K, V] {
	c := &Cursor[K, V]{}
	c.pushLeftSpine(tr.root)
	return c
}

func (c *Cursor[K, V]) pushLeftSpine(n *node[K, V]) {
	for n != nil {
		c.stack = append(c.stack, frame[K, V]{n: n, idx: 0})
		if n.leaf {
			return
		}
		n = n.children[0]
	}
}

// Next advances the cursor to the next entry and reports whether one was
// found.
func (c *Cursor[K, V]) Next() bool {
	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]
		if top.idx >= len(top.n.keys) {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		n, i := top.n, top.idx
		c.key, c.val = n.keys[i], n.vals[i]
		top.idx++
		if !n.leaf {
			c.pushLeftSpine(n.children[i+1])
		}
		return true
	}
	return false
}

// Key returns the key at the cursor's current position.
func (c *Cursor[K, V]) Key() K { return c.key }

// Value returns the value at the cursor's current position.
func (c *Cursor[K, V]) Value() V { return c.val }
