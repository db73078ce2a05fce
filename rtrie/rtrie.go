// Package rtrie implements a prefix-compressed trie over byte-string
// keys. Each node's children are held in an omap.Map keyed by the first
// byte of the child's edge label, every node tracks its subtree's leaf
// count and leaf extrema, and every leaf is threaded into a single
// doubly-linked chain in lexicographic order. It is the third foundational
// container of this module, built directly on omap.
package rtrie

import (
	"bytes"
	"unsafe"

	"github.com/basekv/containers/arena"
	"github.com/basekv/containers/omap"
)

type node[V any] struct {
	prefix []byte
	parent *node[V]
	edges  *omap.Map[byte, *node[V]]

	hasLeaf bool
	leafKey []byte
	leafVal V
	prev    *node[V]
	next    *node[V]

	minLeaf   *node[V]
	maxLeaf   *node[V]
	leafCount int
}

// Trie maps byte-string keys to values. Zero value is not usable;
// construct with New.
type Trie[V any] struct {
	root  *node[V]
	alloc arena.Allocator
}

// New constructs an empty Trie.
func New[V any](alloc arena.Allocator) *Trie[V] {
	alloc = arena.Or(alloc)
	root := &node[V]{edges: omap.New[byte, *node[V]](alloc)}
	return &Trie[V]{root: root, alloc: alloc}
}

// Len returns the number of entries.
func (t *Trie[V]) Len() int { return t.root.leafCount }

// Destroy drops the trie's storage. Go's GC reclaims every node once
// unreachable; Destroy exists so callers following an explicit-teardown
// lifecycle have an operation to call.
func (t *Trie[V]) Destroy() {
	t.root = &node[V]{edges: omap.New[byte, *node[V]](t.alloc)}
}

// Get returns the value stored for key, if any.
func (t *Trie[V]) Get(key []byte) (val V, ok bool) {
	n := t.root
	remaining := key
	for {
		if len(remaining) == 0 {
			if n.hasLeaf {
				return n.leafVal, true
			}
			return val, false
		}
		child, found := n.edges.Search(remaining[0])
		if !found || !bytes.HasPrefix(remaining, child.prefix) {
			return val, false
		}
		remaining = remaining[len(child.prefix):]
		n = child
	}
}

// LongestPrefixMatch returns the value of the longest key in the trie
// that is a prefix of key, tracking the last leaf seen while descending.
func (t *Trie[V]) LongestPrefixMatch(key []byte) (val V, ok bool) {
	n := t.root
	remaining := key
	if n.hasLeaf {
		val, ok = n.leafVal, true
	}
	for len(remaining) > 0 {
		child, found := n.edges.Search(remaining[0])
		if !found || !bytes.HasPrefix(remaining, child.prefix) {
			break
		}
		remaining = remaining[len(child.prefix):]
		n = child
		if n.hasLeaf {
			val, ok = n.leafVal, true
		}
	}
	return val, ok
}

// GetAtIndex returns the (k+1)-th value in leaf-chain order, 0-indexed.
func (t *Trie[V]) GetAtIndex(k int) (val V, ok bool) {
	if k < 0 || k >= t.root.leafCount {
		return val, false
	}
	n := t.root
	for {
		if n.hasLeaf {
			if k == 0 {
				return n.leafVal, true
			}
			k--
		}
		it := n.edges.Iterator()
		advanced := false
		for it.Next() {
			child := it.Value()
			if k < child.leafCount {
				n = child
				advanced = true
				break
			}
			k -= child.leafCount
		}
		if !advanced {
			return val, false
		}
	}
}

// nodeSize is the byte cost charged against the allocator for one new
// trie node, measuring the node header the same shallow way omap charges
// for its own nodes.
func nodeSize[V any]() int {
	return int(unsafe.Sizeof(node[V]{}))
}

// Insert places val at key, overwriting any existing value. Every
// allocation the operation might need is charged and performed before
// anything reachable from the trie is mutated, so a failure anywhere
// along the way leaves the trie exactly as it was.
func (t *Trie[V]) Insert(key []byte, val V) error {
	n := t.root
	remaining := key
	for {
		if len(remaining) == 0 {
			n.hasLeaf = true
			n.leafKey = append([]byte(nil), key...)
			n.leafVal = val
			t.recomputeUp(n)
			return nil
		}

		label := remaining[0]
		child, found := n.edges.Search(label)
		if !found {
			leaf, err := newLeaf[V](t.alloc, append([]byte(nil), remaining...), n, key, val)
			if err != nil {
				return err
			}
			if err := n.edges.Insert(label, leaf); err != nil {
				return err
			}
			t.recomputeUp(n)
			return nil
		}

		common := commonPrefixLen(remaining, child.prefix)
		if common == len(child.prefix) {
			remaining = remaining[common:]
			n = child
			continue
		}

		// SPLIT: the edge to child only matches remaining for `common`
		// bytes, short of child's full prefix. Everything allocating is
		// done first against the still-unreachable mid/leaf pair and
		// mid's own (brand new, nothing-else-references-it-yet) edge
		// map; only once all of that has succeeded do we touch child or
		// n, and those remaining steps are plain field writes and a
		// guaranteed overwrite that cannot themselves fail.
		newChildFirstByte := child.prefix[common]

		if _, err := t.alloc.AllocBytes(nodeSize[V]()); err != nil {
			return err
		}
		mid := &node[V]{
			prefix: append([]byte(nil), child.prefix[:common]...),
			parent: n,
			edges:  omap.New[byte, *node[V]](t.alloc),
		}

		var leaf *node[V]
		var leafFirstByte byte
		if common < len(remaining) {
			suffix := remaining[common:]
			leafFirstByte = suffix[0]
			var err error
			leaf, err = newLeaf[V](t.alloc, append([]byte(nil), suffix...), mid, key, val)
			if err != nil {
				return err
			}
		}

		if err := mid.edges.Insert(newChildFirstByte, child); err != nil {
			return err
		}
		if leaf != nil {
			if err := mid.edges.Insert(leafFirstByte, leaf); err != nil {
				return err
			}
		} else {
			mid.hasLeaf = true
			mid.leafKey = append([]byte(nil), key...)
			mid.leafVal = val
		}

		child.prefix = append([]byte(nil), child.prefix[common:]...)
		child.parent = mid
		// label already names child in n.edges, so this is always an
		// overwrite and never allocates.
		if err := n.edges.Insert(label, mid); err != nil {
			return err
		}
		splitTotal.Inc()
		t.recomputeUp(mid)
		return nil
	}
}

func newLeaf[V any](alloc arena.Allocator, prefix []byte, parent *node[V], key []byte, val V) (*node[V], error) {
	if _, err := alloc.AllocBytes(nodeSize[V]()); err != nil {
		return nil, err
	}
	n := &node[V]{
		prefix:  prefix,
		parent:  parent,
		edges:   omap.New[byte, *node[V]](alloc),
		hasLeaf: true,
		leafKey: append([]byte(nil), key...),
		leafVal: val,
	}
	n.minLeaf, n.maxLeaf, n.leafCount = n, n, 1
	return n, nil
}

// Delete removes key, if present, returning whether it was found.
func (t *Trie[V]) Delete(key []byte) bool {
	n := t.root
	remaining := key
	for {
		if len(remaining) == 0 {
			if !n.hasLeaf {
				return false
			}
			break
		}
		child, found := n.edges.Search(remaining[0])
		if !found || !bytes.HasPrefix(remaining, child.prefix) {
			return false
		}
		remaining = remaining[len(child.prefix):]
		n = child
	}

	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	n.prev, n.next = nil, nil
	n.hasLeaf = false
	n.leafKey = nil
	var zero V
	n.leafVal = zero

	t.bubbleUp(n)
	return true
}

// bubbleUp walks from n up to the root. At each level it first restores
// the non-root structural invariant at n itself: merging n with its
// sole child if n now has no leaf and exactly one edge, then removes
// n's edge from its parent if n ends up with neither a leaf nor any
// edges at all, before continuing upward.
func (t *Trie[V]) bubbleUp(n *node[V]) {
	for {
		if n.parent != nil && !n.hasLeaf && n.edges.Len() == 1 {
			t.merge(n)
		} else {
			recompute(n)
		}

		p := n.parent
		if p == nil {
			return
		}
		if !n.hasLeaf && n.edges.Len() == 0 {
			p.edges.Delete(n.prefix[0])
		}
		n = p
	}
}

// merge absorbs p's sole remaining child into p: the child's prefix is
// appended to p's, and its leaf/edges move into p directly.
func (t *Trie[V]) merge(p *node[V]) {
	it := p.edges.Iterator()
	it.Next()
	child := it.Value()

	p.prefix = append(p.prefix, child.prefix...)
	p.hasLeaf = child.hasLeaf
	p.leafKey = child.leafKey
	p.leafVal = child.leafVal
	p.edges = child.edges

	cit := p.edges.Iterator()
	for cit.Next() {
		cit.Value().parent = p
	}

	mergeTotal.Inc()
	recompute(p)
}

func (t *Trie[V]) recomputeUp(n *node[V]) {
	for n != nil {
		recompute(n)
		n = n.parent
	}
}

// recompute rebuilds n's subtree leaf count and extrema from its own
// leaf (if any) and its children's already-correct augmented fields, and
// rethreads the boundary links between them: the node's own leaf,
// followed by each child's subtree leaves in edge-label order.
func recompute[V any](n *node[V]) {
	count := 0
	var first, last, prevBoundary *node[V]

	if n.hasLeaf {
		count = 1
		first, last, prevBoundary = n, n, n
	}

	it := n.edges.Iterator()
	for it.Next() {
		child := it.Value()
		count += child.leafCount
		if child.leafCount == 0 {
			continue
		}
		if first == nil {
			first = child.minLeaf
		}
		last = child.maxLeaf
		if prevBoundary != nil {
			prevBoundary.next = child.minLeaf
			child.minLeaf.prev = prevBoundary
		}
		prevBoundary = child.maxLeaf
	}

	n.leafCount = count
	n.minLeaf = first
	n.maxLeaf = last
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
