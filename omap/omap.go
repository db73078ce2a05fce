// Package omap implements a red-black tree ordered map augmented with
// per-node subtree size and subtree extrema, plus a global doubly-linked
// list threaded through every node in key order for O(1) stepping. It is
// the second foundational container of this module. rtrie uses one per
// node as its child-edge map.
package omap

import (
	"unsafe"

	"github.com/basekv/containers/arena"
)

// Ordering is the three-way comparison result a Comparator returns.
type Ordering int

const (
	LT Ordering = -1
	EQ Ordering = 0
	GT Ordering = 1
)

// Comparator gives a total order over K.
type Comparator[K any] func(a, b K) Ordering

type color uint8

const (
	red   color = 0
	black color = 1
)

type node[K any, V any] struct {
	key K
	val V

	color  color
	parent *node[K, V]
	left   *node[K, V]
	right  *node[K, V]

	prev *node[K, V]
	next *node[K, V]

	min  *node[K, V]
	max  *node[K, V]
	size int
}

// Map implements the augmented red-black tree described above. Zero value
// is not usable; construct with New or NewWithComparator.
type Map[K any, V any] struct {
	root  *node[K, V]
	size  int
	cmp   Comparator[K]
	alloc arena.Allocator
}

// NewWithComparator constructs an empty Map ordered by cmp.
func NewWithComparator[K any, V any](alloc arena.Allocator, cmp Comparator[K]) *Map[K, V] {
	return &Map[K, V]{cmp: cmp, alloc: arena.Or(alloc)}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return m.size }

// Destroy drops the tree's storage. Go's GC reclaims every node once
// unreachable; Destroy exists so callers following an explicit-teardown
// lifecycle have an operation to call.
func (m *Map[K, V]) Destroy() {
	m.root = nil
	m.size = 0
}

// Min returns the smallest key and its value, in O(1) via the root's
// augmented extremum pointer.
func (m *Map[K, V]) Min() (key K, val V, ok bool) {
	if m.root == nil {
		return key, val, false
	}
	return m.root.min.key, m.root.min.val, true
}

// Max returns the largest key and its value, in O(1).
func (m *Map[K, V]) Max() (key K, val V, ok bool) {
	if m.root == nil {
		return key, val, false
	}
	return m.root.max.key, m.root.max.val, true
}

// Search returns the value stored for key, if any.
func (m *Map[K, V]) Search(key K) (val V, ok bool) {
	if n := m.find(key); n != nil {
		return n.val, true
	}
	return val, false
}

func (m *Map[K, V]) find(key K) *node[K, V] {
	n := m.root
	for n != nil {
		switch m.cmp(key, n.key) {
		case LT:
			n = n.left
		case GT:
			n = n.right
		default:
			return n
		}
	}
	return nil
}

// nodeSize is the byte cost charged against the allocator for one new
// tree node. It measures the node header only, the same shallow
// accounting hmap applies to its own backing arrays.
func nodeSize[K, V any]() int {
	return int(unsafe.Sizeof(node[K, V]{}))
}

func sizeOf[K, V any](n *node[K, V]) int {
	if n == nil {
		return 0
	}
	return n.size
}

// refresh recomputes n's subtree size and extrema from its (already
// correct) children. It never recurses; the caller is responsible for
// calling it bottom-up.
func refresh[K, V any](n *node[K, V]) {
	n.size = 1 + sizeOf(n.left) + sizeOf(n.right)
	if n.left != nil {
		n.min = n.left.min
	} else {
		n.min = n
	}
	if n.right != nil {
		n.max = n.right.max
	} else {
		n.max = n
	}
}

// refreshAncestors walks from n up to the root, recomputing augmented
// fields at every level. It is called once after a structural change,
// before any rebalancing rotations: rotations keep every ancestor's
// total descendant set unchanged, so they only need to refresh the two
// nodes directly involved, which rotateLeft/rotateRight do themselves.
func (m *Map[K, V]) refreshAncestors(n *node[K, V]) {
	for n != nil {
		refresh(n)
		n = n.parent
	}
}

// Insert places val at key, overwriting any existing value. A search
// precedes every structural insert, so the tree never holds two nodes
// with the same key and a "put" never needs to reconcile duplicates
// after the fact. Overwriting an existing key never allocates and so
// never fails; only the structural-insert path can return
// arena.ErrAllocationFailure, and it does so before mutating anything,
// leaving the tree exactly as it was.
func (m *Map[K, V]) Insert(key K, val V) error {
	if existing := m.find(key); existing != nil {
		existing.val = val
		return nil
	}

	if _, err := m.alloc.AllocBytes(nodeSize[K, V]()); err != nil {
		return err
	}

	n := &node[K, V]{key: key, val: val, color: red, size: 1}
	n.min, n.max = n, n

	if m.root == nil {
		n.color = black
		m.root = n
		m.size = 1
		return nil
	}

	p := m.root
	var wentLeft bool
	for {
		if m.cmp(key, p.key) == LT {
			wentLeft = true
			if p.left == nil {
				p.left = n
				break
			}
			p = p.left
		} else {
			wentLeft = false
			if p.right == nil {
				p.right = n
				break
			}
			p = p.right
		}
	}
	n.parent = p

	// A freshly inserted leaf is always adjacent to its parent in the
	// in-order sequence: it becomes p's immediate predecessor if it's p's
	// left child (p had no left subtree yet), or p's immediate successor
	// if it's p's right child.
	if wentLeft {
		n.prev = p.prev
		n.next = p
		p.prev = n
		if n.prev != nil {
			n.prev.next = n
		}
	} else {
		n.next = p.next
		n.prev = p
		p.next = n
		if n.next != nil {
			n.next.prev = n
		}
	}

	m.size++
	m.refreshAncestors(p)
	m.insertFixup(n)
	m.root.color = black
	return nil
}

func (m *Map[K, V]) insertFixup(z *node[K, V]) {
	for z.parent != nil && z.parent.color == red {
		p := z.parent
		g := p.parent
		if p == g.left {
			u := g.right
			if u != nil && u.color == red {
				p.color, u.color, g.color = black, black, red
				z = g
				continue
			}
			if z == p.right {
				z = p
				m.rotateLeft(z)
				p = z.parent
			}
			p.color, g.color = black, red
			m.rotateRight(g)
		} else {
			u := g.left
			if u != nil && u.color == red {
				p.color, u.color, g.color = black, black, red
				z = g
				continue
			}
			if z == p.left {
				z = p
				m.rotateRight(z)
				p = z.parent
			}
			p.color, g.color = black, red
			m.rotateLeft(g)
		}
	}
}

// rotateLeft turns (x a (y b c)) into (y (x a b) c), refreshing the
// demoted pivot x then the promoted pivot y, in that order.
func (m *Map[K, V]) rotateLeft(x *node[K, V]) {
	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		m.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y

	refresh(x)
	refresh(y)
	rotationTotal.Inc()
}

// rotateRight turns (y (x a b) c) into (x a (y b c)), refreshing the
// demoted pivot y then the promoted pivot x, in that order.
func (m *Map[K, V]) rotateRight(y *node[K, V]) {
	x := y.left
	y.left = x.right
	if x.right != nil {
		x.right.parent = y
	}
	x.parent = y.parent
	switch {
	case y.parent == nil:
		m.root = x
	case y == y.parent.left:
		y.parent.left = x
	default:
		y.parent.right = x
	}
	x.right = y
	y.parent = x

	refresh(y)
	refresh(x)
	rotationTotal.Inc()
}

func (m *Map[K, V]) transplant(u, v *node[K, V]) {
	switch {
	case u.parent == nil:
		m.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	if v != nil {
		v.parent = u.parent
	}
}

func minimum[K, V any](n *node[K, V]) *node[K, V] {
	for n.left != nil {
		n = n.left
	}
	return n
}

// Delete removes key, if present, returning whether it was found.
func (m *Map[K, V]) Delete(key K) bool {
	z := m.find(key)
	if z == nil {
		return false
	}
	m.deleteNode(z)
	return true
}

func (m *Map[K, V]) deleteNode(z *node[K, V]) {
	if z.prev != nil {
		z.prev.next = z.next
	}
	if z.next != nil {
		z.next.prev = z.prev
	}

	y := z
	yOriginalColor := y.color
	var x, xParent *node[K, V]

	switch {
	case z.left == nil:
		x, xParent = z.right, z.parent
		m.transplant(z, z.right)
	case z.right == nil:
		x, xParent = z.left, z.parent
		m.transplant(z, z.left)
	default:
		y = minimum(z.right)
		yOriginalColor = y.color
		x = y.right
		if y.parent == z {
			xParent = y
		} else {
			xParent = y.parent
			m.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		m.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	m.size--
	if xParent != nil {
		m.refreshAncestors(xParent)
	}

	if yOriginalColor == black {
		m.deleteFixup(x, xParent)
	}
}

func colorOf[K, V any](n *node[K, V]) color {
	if n == nil {
		return black
	}
	return n.color
}

func (m *Map[K, V]) deleteFixup(x, parent *node[K, V]) {
	for x != m.root && colorOf(x) == black && parent != nil {
		if x == parent.left {
			w := parent.right
			if colorOf(w) == red {
				w.color, parent.color = black, red
				m.rotateLeft(parent)
				w = parent.right
			}
			if colorOf(w.left) == black && colorOf(w.right) == black {
				w.color = red
				x, parent = parent, parent.parent
				continue
			}
			if colorOf(w.right) == black {
				if w.left != nil {
					w.left.color = black
				}
				w.color = red
				m.rotateRight(w)
				w = parent.right
			}
			w.color = parent.color
			parent.color = black
			if w.right != nil {
				w.right.color = black
			}
			m.rotateLeft(parent)
			x, parent = m.root, nil
		} else {
			w := parent.left
			if colorOf(w) == red {
				w.color, parent.color = black, red
				m.rotateRight(parent)
				w = parent.left
			}
			if colorOf(w.right) == black && colorOf(w.left) == black {
				w.color = red
				x, parent = parent, parent.parent
				continue
			}
			if colorOf(w.left) == black {
				if w.right != nil {
					w.right.color = black
				}
				w.color = red
				m.rotateLeft(w)
				w = parent.left
			}
			w.color = parent.color
			parent.color = black
			if w.left != nil {
				w.left.color = black
			}
			m.rotateRight(parent)
			x, parent = m.root, nil
		}
	}
	if x != nil {
		x.color = black
	}
}
