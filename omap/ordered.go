package omap

import (
	"bytes"
	"cmp"

	"github.com/basekv/containers/arena"
)

// New constructs an empty Map ordered by K's natural ordering.
func New[K cmp.Ordered, V any](alloc arena.Allocator) *Map[K, V] {
	return NewWithComparator[K, V](alloc, func(a, b K) Ordering {
		switch {
		case a < b:
			return LT
		case a > b:
			return GT
		default:
			return EQ
		}
	})
}

// NewBytes constructs an empty Map over []byte keys, ordered
// lexicographically by byte value.
func NewBytes[V any](alloc arena.Allocator) *Map[[]byte, V] {
	return NewWithComparator[[]byte, V](alloc, func(a, b []byte) Ordering {
		switch c := bytes.Compare(a, b); {
		case c < 0:
			return LT
		case c > 0:
			return GT
		default:
			return EQ
		}
	})
}
