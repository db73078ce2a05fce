package omap

import (
	"errors"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/basekv/containers/arena"
)

func seedMap(t *testing.T, vals []int) *Map[int, int] {
	t.Helper()
	m := New[int, int](nil)
	for _, v := range vals {
		m.Insert(v, v*10)
	}
	return m
}

func TestMapDeleteScenario(t *testing.T) {
	vals := []int{7, 3, 18, 10, 22, 8, 11, 26, 2, 6, 13}
	m := seedMap(t, vals)
	if got := m.Len(); got != len(vals) {
		t.Fatalf("Len() = %d, want %d", got, len(vals))
	}

	for _, k := range []int{18, 11, 3} {
		if !m.Delete(k) {
			t.Fatalf("Delete(%d) = false, want true", k)
		}
	}
	if m.Delete(18) {
		t.Fatal("Delete(18) = true on already-removed key")
	}

	remaining := map[int]bool{10: true, 22: true, 8: true, 26: true, 2: true, 6: true, 13: true, 7: true}
	if got := m.Len(); got != len(remaining) {
		t.Fatalf("Len() = %d, want %d", got, len(remaining))
	}
	for k := range remaining {
		if _, ok := m.Search(k); !ok {
			t.Fatalf("Search(%d) not found after unrelated deletes", k)
		}
	}
	for _, k := range []int{18, 11, 3} {
		if _, ok := m.Search(k); ok {
			t.Fatalf("Search(%d) found a deleted key", k)
		}
	}

	checkInOrder(t, m)
	checkRBInvariants(t, m)
}

func TestMapDeleteThenKthLargestScenario(t *testing.T) {
	m := seedMap(t, []int{7, 3, 18, 10, 22, 8, 11, 26, 2, 6, 13})
	for _, k := range []int{18, 11, 3} {
		if !m.Delete(k) {
			t.Fatalf("Delete(%d) = false, want true", k)
		}
	}

	var order []int
	it := m.Iterator()
	for it.Next() {
		order = append(order, it.Key())
	}
	want := []int{2, 6, 7, 8, 10, 13, 22, 26}
	if len(order) != len(want) {
		t.Fatalf("forward iteration = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("forward iteration = %v, want %v", order, want)
		}
	}

	for _, c := range []struct{ k, want int }{{1, 26}, {4, 10}, {8, 2}} {
		if key, _, ok := m.FindKthLargest(c.k); !ok || key != c.want {
			t.Fatalf("FindKthLargest(%d) = %d,%v; want %d,true", c.k, key, ok, c.want)
		}
	}
	if _, _, ok := m.FindKthLargest(9); ok {
		t.Fatal("FindKthLargest(9) should be absent with 8 entries remaining")
	}
}

func TestMapRangeQueryScenario(t *testing.T) {
	m := seedMap(t, []int{2, 6, 7, 8, 10, 13, 22, 26})
	for _, c := range []struct {
		x    int
		want int
		ok   bool
	}{{5, 6, true}, {9, 10, true}, {27, 0, false}} {
		if k, _, ok := m.Ceiling(c.x); ok != c.ok || (ok && k != c.want) {
			t.Errorf("Ceiling(%d) = %d,%v; want %d,%v", c.x, k, ok, c.want, c.ok)
		}
	}
	for _, c := range []struct {
		x    int
		want int
		ok   bool
	}{{5, 2, true}, {9, 8, true}, {1, 0, false}} {
		if k, _, ok := m.Floor(c.x); ok != c.ok || (ok && k != c.want) {
			t.Errorf("Floor(%d) = %d,%v; want %d,%v", c.x, k, ok, c.want, c.ok)
		}
	}
	if k, _, ok := m.Higher(6); !ok || k != 7 {
		t.Errorf("Higher(6) = %d,%v; want 7,true", k, ok)
	}
	if _, _, ok := m.Higher(26); ok {
		t.Error("Higher(26) should be absent")
	}
	if k, _, ok := m.Lower(6); !ok || k != 2 {
		t.Errorf("Lower(6) = %d,%v; want 2,true", k, ok)
	}
	if _, _, ok := m.Lower(2); ok {
		t.Error("Lower(2) should be absent")
	}
}

func TestMapFindKthLargest(t *testing.T) {
	vals := []int{7, 3, 18, 10, 22, 8, 11, 26, 2, 6, 13}
	m := seedMap(t, vals)
	sorted := append([]int(nil), vals...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	for k := 1; k <= len(sorted); k++ {
		key, val, ok := m.FindKthLargest(k)
		if !ok || key != sorted[k-1] || val != sorted[k-1]*10 {
			t.Fatalf("FindKthLargest(%d) = %d,%d,%v; want %d,_,true", k, key, val, ok, sorted[k-1])
		}
	}
	if _, _, ok := m.FindKthLargest(0); ok {
		t.Fatal("FindKthLargest(0) should report not found")
	}
	if _, _, ok := m.FindKthLargest(len(vals) + 1); ok {
		t.Fatal("FindKthLargest(len+1) should report not found")
	}
}

func TestMapCeilingFloorHigherLower(t *testing.T) {
	vals := []int{2, 6, 7, 8, 10, 13}
	m := seedMap(t, vals)

	cases := []struct {
		x                                  int
		ceil, floor, higher, lower         int
		ceilOK, floorOK, higherOK, lowerOK bool
	}{
		{x: 7, ceil: 7, ceilOK: true, floor: 7, floorOK: true, higher: 8, higherOK: true, lower: 6, lowerOK: true},
		{x: 1, ceil: 2, ceilOK: true, floorOK: false, higher: 2, higherOK: true, lowerOK: false},
		{x: 14, ceilOK: false, floor: 13, floorOK: true, higherOK: false, lower: 13, lowerOK: true},
		{x: 9, ceil: 10, ceilOK: true, floor: 8, floorOK: true, higher: 10, higherOK: true, lower: 8, lowerOK: true},
	}
	for _, c := range cases {
		if k, _, ok := m.Ceiling(c.x); ok != c.ceilOK || (ok && k != c.ceil) {
			t.Errorf("Ceiling(%d) = %d,%v; want %d,%v", c.x, k, ok, c.ceil, c.ceilOK)
		}
		if k, _, ok := m.Floor(c.x); ok != c.floorOK || (ok && k != c.floor) {
			t.Errorf("Floor(%d) = %d,%v; want %d,%v", c.x, k, ok, c.floor, c.floorOK)
		}
		if k, _, ok := m.Higher(c.x); ok != c.higherOK || (ok && k != c.higher) {
			t.Errorf("Higher(%d) = %d,%v; want %d,%v", c.x, k, ok, c.higher, c.higherOK)
		}
		if k, _, ok := m.Lower(c.x); ok != c.lowerOK || (ok && k != c.lower) {
			t.Errorf("Lower(%d) = %d,%v; want %d,%v", c.x, k, ok, c.lower, c.lowerOK)
		}
	}
}

func TestMapRange(t *testing.T) {
	vals := []int{2, 6, 7, 8, 10, 13, 22, 26}
	m := seedMap(t, vals)

	var got []int
	m.Range(6, 13, func(k, v int) bool {
		got = append(got, k)
		return true
	})
	want := []int{6, 7, 8, 10, 13}
	if len(got) != len(want) {
		t.Fatalf("Range(6,13) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Range(6,13) = %v, want %v", got, want)
		}
	}

	var stopped []int
	m.Range(0, 100, func(k, v int) bool {
		stopped = append(stopped, k)
		return len(stopped) < 3
	})
	if len(stopped) != 3 {
		t.Fatalf("Range early-stop visited %d entries, want 3", len(stopped))
	}
}

func TestMapMinMax(t *testing.T) {
	m := New[int, int](nil)
	if _, _, ok := m.Min(); ok {
		t.Fatal("Min() on empty map should report not found")
	}
	vals := []int{5, 1, 9, 3, 7}
	for _, v := range vals {
		m.Insert(v, v)
	}
	if k, _, ok := m.Min(); !ok || k != 1 {
		t.Fatalf("Min() = %d,%v; want 1,true", k, ok)
	}
	if k, _, ok := m.Max(); !ok || k != 9 {
		t.Fatalf("Max() = %d,%v; want 9,true", k, ok)
	}
}

func TestMapInsertOverwritesValue(t *testing.T) {
	m := New[int, string](nil)
	m.Insert(1, "a")
	m.Insert(1, "b")
	if got := m.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1 (overwrite must not add a node)", got)
	}
	if v, ok := m.Search(1); !ok || v != "b" {
		t.Fatalf("Search(1) = %q,%v; want b,true", v, ok)
	}
}

func TestMapIteratorYieldsAscending(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	vals := make([]int, 500)
	for i := range vals {
		vals[i] = rng.IntN(10000)
	}
	m := seedMap(t, vals)

	seen := map[int]bool{}
	var order []int
	it := m.Iterator()
	for it.Next() {
		seen[it.Key()] = true
		order = append(order, it.Key())
	}
	for i := 1; i < len(order); i++ {
		if order[i-1] >= order[i] {
			t.Fatalf("iterator not strictly ascending at index %d: %d, %d", i, order[i-1], order[i])
		}
	}
	if len(seen) != m.Len() {
		t.Fatalf("iterator visited %d distinct keys, want %d", len(seen), m.Len())
	}
}

func TestMapLastIteratorYieldsDescending(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	vals := make([]int, 500)
	for i := range vals {
		vals[i] = rng.IntN(10000)
	}
	m := seedMap(t, vals)

	var order []int
	it := m.Last()
	for it.Prev() {
		order = append(order, it.Key())
	}
	for i := 1; i < len(order); i++ {
		if order[i-1] <= order[i] {
			t.Fatalf("Last/Prev not strictly descending at index %d: %d, %d", i, order[i-1], order[i])
		}
	}
	if len(order) != m.Len() {
		t.Fatalf("Last/Prev visited %d keys, want %d", len(order), m.Len())
	}

	var forward []int
	fit := m.Iterator()
	for fit.Next() {
		forward = append(forward, fit.Key())
	}
	for i := range order {
		if order[i] != forward[len(forward)-1-i] {
			t.Fatalf("Last/Prev order is not the reverse of Iterator/Next at index %d", i)
		}
	}
}

func TestMapDestroyResetsMap(t *testing.T) {
	m := seedMap(t, []int{1, 2, 3})
	m.Destroy()
	if got := m.Len(); got != 0 {
		t.Fatalf("Len() after Destroy = %d, want 0", got)
	}
	if _, ok := m.Search(1); ok {
		t.Fatal("Search found a key after Destroy")
	}
	m.Insert(4, 40)
	if got := m.Len(); got != 1 {
		t.Fatalf("Len() after Destroy then Insert = %d, want 1", got)
	}
}

func TestMapInsertAllocationFailureLeavesMapUnchanged(t *testing.T) {
	m := New[int, int](arena.NewBudgeted(0))
	if err := m.Insert(1, 10); !errors.Is(err, arena.ErrAllocationFailure) {
		t.Fatalf("expected allocation failure on first insert, got %v", err)
	}
	if got := m.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0 after a failed insert", got)
	}
	if _, ok := m.Search(1); ok {
		t.Fatal("Search found a key whose insert failed")
	}
}

func TestMapInsertAllocationFailureStillOverwritesExisting(t *testing.T) {
	m := seedMap(t, []int{1, 2, 3})
	m.alloc = arena.NewBudgeted(0)
	if err := m.Insert(2, 999); err != nil {
		t.Fatalf("overwriting an existing key should never allocate: %v", err)
	}
	if v, ok := m.Search(2); !ok || v != 999 {
		t.Fatalf("Search(2) = %d,%v; want 999,true", v, ok)
	}
}

func TestMapAgainstReferenceStress(t *testing.T) {
	m := New[int32, int32](nil)
	ref := map[int32]int32{}
	rng := rand.New(rand.NewPCG(42, 7))
	for i := 0; i < 20000; i++ {
		k := rng.Int32N(3000)
		switch rng.IntN(3) {
		case 0:
			v := rng.Int32()
			ref[k] = v
			m.Insert(k, v)
		case 1:
			delete(ref, k)
			m.Delete(k)
		case 2:
			want, wantOK := ref[k]
			got, gotOK := m.Search(k)
			if wantOK != gotOK || (wantOK && want != got) {
				t.Fatalf("at step %d, Search(%d) = %d,%v; want %d,%v", i, k, got, gotOK, want, wantOK)
			}
		}
	}
	if m.Len() != len(ref) {
		t.Fatalf("Len() = %d, want %d", m.Len(), len(ref))
	}
	checkInOrder(t, m)
	checkRBInvariants(t, m)
}

// checkInOrder verifies the threaded list matches an in-order walk of the
// tree.
func checkInOrder[K ~int | ~int32, V any](t *testing.T, m *Map[K, V]) {
	t.Helper()
	var walked []K
	var walk func(n *node[K, V])
	walk = func(n *node[K, V]) {
		if n == nil {
			return
		}
		walk(n.left)
		walked = append(walked, n.key)
		walk(n.right)
	}
	walk(m.root)

	var listed []K
	it := m.Iterator()
	for it.Next() {
		listed = append(listed, it.Key())
	}

	if len(walked) != len(listed) {
		t.Fatalf("in-order walk has %d keys, threaded list has %d", len(walked), len(listed))
	}
	for i := range walked {
		if walked[i] != listed[i] {
			t.Fatalf("threaded list diverges from in-order walk at index %d: %d vs %d", i, listed[i], walked[i])
		}
	}
}

// checkRBInvariants verifies red-black coloring, black-height balance, and
// the augmented size/min/max fields at every node.
func checkRBInvariants[K ~int | ~int32, V any](t *testing.T, m *Map[K, V]) {
	t.Helper()
	if m.root != nil && m.root.color != black {
		t.Fatal("root is not black")
	}
	var check func(n *node[K, V]) (blackHeight, size int)
	check = func(n *node[K, V]) (int, int) {
		if n == nil {
			return 0, 0
		}
		if n.color == red {
			if (n.left != nil && n.left.color == red) || (n.right != nil && n.right.color == red) {
				t.Fatalf("red node %d has a red child", n.key)
			}
		}
		lh, lsize := check(n.left)
		rh, rsize := check(n.right)
		if lh != rh {
			t.Fatalf("black-height mismatch at node %d: left=%d right=%d", n.key, lh, rh)
		}
		wantSize := 1 + lsize + rsize
		if n.size != wantSize {
			t.Fatalf("node %d size = %d, want %d", n.key, n.size, wantSize)
		}
		wantMin, wantMax := n.key, n.key
		if n.left != nil {
			wantMin = n.left.min.key
		}
		if n.right != nil {
			wantMax = n.right.max.key
		}
		if n.min.key != wantMin {
			t.Fatalf("node %d min = %d, want %d", n.key, n.min.key, wantMin)
		}
		if n.max.key != wantMax {
			t.Fatalf("node %d max = %d, want %d", n.key, n.max.key, wantMax)
		}
		add := 0
		if n.color == black {
			add = 1
		}
		return lh + add, wantSize
	}
	check(m.root)
}
