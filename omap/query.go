package omap

// Ceiling returns the smallest key >= x, found by a single root-to-leaf
// descent that records the best candidate seen so far.
func (m *Map[K, V]) Ceiling(x K) (key K, val V, ok bool) {
	n := m.root
	var best *node[K, V]
	for n != nil {
		if m.cmp(n.key, x) != LT {
			best = n
			n = n.left
		} else {
			n = n.right
		}
	}
	if best == nil {
		return key, val, false
	}
	return best.key, best.val, true
}

// Floor returns the largest key <= x.
func (m *Map[K, V]) Floor(x K) (key K, val V, ok bool) {
	n := m.root
	var best *node[K, V]
	for n != nil {
		if m.cmp(n.key, x) != GT {
			best = n
			n = n.right
		} else {
			n = n.left
		}
	}
	if best == nil {
		return key, val, false
	}
	return best.key, best.val, true
}

// Higher returns the smallest key strictly greater than x.
func (m *Map[K, V]) Higher(x K) (key K, val V, ok bool) {
	n := m.root
	var best *node[K, V]
	for n != nil {
		if m.cmp(n.key, x) == GT {
			best = n
			n = n.left
		} else {
			n = n.right
		}
	}
	if best == nil {
		return key, val, false
	}
	return best.key, best.val, true
}

// Lower returns the largest key strictly less than x.
func (m *Map[K, V]) Lower(x K) (key K, val V, ok bool) {
	n := m.root
	var best *node[K, V]
	for n != nil {
		if m.cmp(n.key, x) == LT {
			best = n
			n = n.right
		} else {
			n = n.left
		}
	}
	if best == nil {
		return key, val, false
	}
	return best.key, best.val, true
}

// FindKthLargest returns the k-th largest key (k == 1 is the maximum),
// descending via subtree size instead of a full in-order walk.
func (m *Map[K, V]) FindKthLargest(k int) (key K, val V, ok bool) {
	if k < 1 || k > m.size {
		return key, val, false
	}
	n := m.root
	for {
		r := sizeOf(n.right)
		switch {
		case k == r+1:
			return n.key, n.val, true
		case k <= r:
			n = n.right
		default:
			k -= r + 1
			n = n.left
		}
	}
}

// Range calls fn for every entry with key in [lo, hi], in ascending order,
// stopping early if fn returns false. It walks the threaded list starting
// from Ceiling(lo) rather than descending the tree per key, so a range of
// m consecutive keys costs O(log n + m).
func (m *Map[K, V]) Range(lo, hi K, fn func(key K, val V) bool) {
	n := m.ceilingNode(lo)
	for n != nil && m.cmp(n.key, hi) != GT {
		if !fn(n.key, n.val) {
			return
		}
		n = n.next
	}
}

func (m *Map[K, V]) ceilingNode(x K) *node[K, V] {
	n := m.root
	var best *node[K, V]
	for n != nil {
		if m.cmp(n.key, x) != LT {
			best = n
			n = n.left
		} else {
			n = n.right
		}
	}
	return best
}
