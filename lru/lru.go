// Package lru implements a fixed-capacity cache: an hmap index mapping
// keys to list-node pointers, fused with an intrusive doubly-linked list
// ordered by recency. Eviction recycles the least-recently-used node's
// storage in place instead of freeing and reallocating.
package lru

import (
	"github.com/basekv/containers/arena"
	"github.com/basekv/containers/hmap"
	"github.com/basekv/containers/internal/xcpu"
)

type listNode[K comparable, V any] struct {
	key  K
	val  V
	prev *listNode[K, V]
	next *listNode[K, V]

	// _ gives each node a full line of slack so the head/tail pointer
	// fields, rewritten on every Get, don't share a line with a
	// neighboring node's own pointer fields. K and V vary in size, so
	// this is deliberately a flat line of headroom rather than a
	// remainder computed from the struct's exact size.
	_ [xcpu.LineSize]byte
}

// Cache is a fixed-capacity K->V map that evicts the least-recently-used
// entry when a Put would exceed its capacity. Zero value is not usable;
// construct with New.
type Cache[K comparable, V any] struct {
	index    *hmap.Map[K, *listNode[K, V]]
	head     *listNode[K, V] // most recently used
	tail     *listNode[K, V] // least recently used
	capacity int
	count    int
}

// New constructs an empty Cache holding at most capacity entries.
// Capacity 0 is allowed: every Put becomes a no-op after an immediate,
// uneventful eviction of the entry it would have introduced.
func New[K comparable, V any](alloc arena.Allocator, capacity int) *Cache[K, V] {
	return &Cache[K, V]{
		index:    hmap.New[K, *listNode[K, V]](alloc),
		capacity: capacity,
	}
}

// Len returns the number of entries currently cached.
func (c *Cache[K, V]) Len() int { return c.count }

// Destroy drops the cache's storage. Go's GC reclaims the index and list
// nodes once unreachable; Destroy exists so callers following an
// explicit-teardown lifecycle have an operation to call.
func (c *Cache[K, V]) Destroy() {
	c.index.Destroy()
	c.head, c.tail = nil, nil
	c.count = 0
}

// Get returns the value for key and marks it most-recently-used.
func (c *Cache[K, V]) Get(key K) (val V, ok bool) {
	n, found := c.index.Get(key)
	if !found {
		return val, false
	}
	c.unlink(n)
	c.linkAtHead(n)
	return n.val, true
}

// Peek returns the value for key without affecting recency order.
func (c *Cache[K, V]) Peek(key K) (val V, ok bool) {
	n, found := c.index.Get(key)
	if !found {
		return val, false
	}
	return n.val, true
}

// Put inserts or updates key's value and marks it most-recently-used,
// evicting the least-recently-used entry first if the cache is already
// at capacity. If the index can't grow to hold the new key, the cache is
// left exactly as it was and the error is returned: the eviction path
// indexes the new key before touching the evicted node or the list at
// all, and the fresh-node path indexes before linking or counting it, so
// neither can leave a node reachable from the list but not the index, or
// vice versa.
func (c *Cache[K, V]) Put(key K, val V) error {
	if c.capacity <= 0 {
		return nil
	}
	if n, found := c.index.Get(key); found {
		n.val = val
		c.unlink(n)
		c.linkAtHead(n)
		return nil
	}

	if c.count >= c.capacity {
		evicted := c.tail
		if err := c.index.Put(key, evicted); err != nil {
			return err
		}
		c.index.Remove(evicted.key)
		c.unlink(evicted)
		evicted.key, evicted.val = key, val
		c.linkAtHead(evicted)
		evictionTotal.Inc()
		return nil
	}

	n := &listNode[K, V]{key: key, val: val}
	if err := c.index.Put(key, n); err != nil {
		return err
	}
	c.linkAtHead(n)
	c.count++
	return nil
}

func (c *Cache[K, V]) linkAtHead(n *listNode[K, V]) {
	n.prev, n.next = nil, c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *Cache[K, V]) unlink(n *listNode[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
